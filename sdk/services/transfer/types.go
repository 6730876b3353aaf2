// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

package transfer

import (
	"io"

	"github.com/cfupload/cfupload/sdk/config"
)

type SourceKind int

const (
	SourceFile SourceKind = iota
	SourceStream
)

// InputSource is either a local path or an open stream (stdin).
type InputSource struct {
	Kind   SourceKind
	Path   string
	Stream io.Reader
}

func FilePath(path string) InputSource {
	return InputSource{Kind: SourceFile, Path: path}
}

func Stream(r io.Reader) InputSource {
	return InputSource{Kind: SourceStream, Stream: r}
}

// String is the name used in messages.
func (s InputSource) String() string {
	switch s.Kind {
	case SourceStream:
		return "<stdin>"
	default:
		return s.Path
	}
}

// -------- Invocation --------

// Options is the raw, merged (flag > env > profile) view of a command line.
type Options struct {
	APIKey      string
	Username    string
	Container   string
	Destination string
	ContentType string
	Args        []string

	Backend    string
	AuthURL    string
	UK         bool
	ServiceNet bool
	Quiet      bool

	S3 config.S3Config
}

// Invocation is a validated Options.
type Invocation struct {
	Config      config.Config
	Container   string
	Sources     []InputSource
	Destination string
	ContentType string
	Quiet       bool
}

// -------- Results --------

type TransferResult struct {
	Source      string `json:"source"                 yaml:"source"`
	Destination string `json:"destination"            yaml:"destination"`
	Success     bool   `json:"success"                yaml:"success"`
	Size        int64  `json:"size,omitempty"         yaml:"size,omitempty"`
	ETag        string `json:"etag,omitempty"         yaml:"etag,omitempty"`
	ContentType string `json:"content_type,omitempty" yaml:"content_type,omitempty"`
	Public      bool   `json:"public"                 yaml:"public"`
	PublicURL   string `json:"public_url,omitempty"   yaml:"public_url,omitempty"`
	Error       string `json:"error,omitempty"        yaml:"error,omitempty"`

	Err error `json:"-" yaml:"-"`
}
