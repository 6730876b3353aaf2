// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

// Package blobstore is the minimal object storage surface the uploader
// consumes: open a session, resolve a container, write one object.
package blobstore

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/cfupload/cfupload/sdk/config"
)

var (
	ErrContainerNotFound = errors.New("container not found")
	ErrAuthentication    = errors.New("authentication failed")
)

// Opener establishes a Session. Open is the production Opener; tests swap
// in (*Memory).Open.
type Opener func(ctx context.Context, conf config.Config) (Session, error)

type Session interface {
	// Container returns ErrContainerNotFound (wrapped) when the
	// container does not exist.
	Container(ctx context.Context, name string) (Container, error)
	// Close releases the session. It is safe to call more than once.
	Close() error
}

type Container interface {
	CreateObject(name string, opts ObjectOptions) Object
	IsPublic(ctx context.Context) (bool, error)
	// PublicURL is the CDN base URI of the container, without a
	// trailing slash. Empty when the container is not public.
	PublicURL(ctx context.Context) (string, error)
}

type Object interface {
	WriteFromStream(ctx context.Context, r io.Reader) (*ObjectInfo, error)
	WriteFromFile(ctx context.Context, path string) (*ObjectInfo, error)
}

type ObjectOptions struct {
	ContentType string
	// TransID is attached to every request made for the object
	TransID  string
	Progress *ProgressHook
}

type ObjectInfo struct {
	Name        string
	Size        int64
	ETag        string
	ContentType string
}

// Open dispatches on conf.Backend.
func Open(ctx context.Context, conf config.Config) (Session, error) {
	switch conf.BackendName() {
	case config.BackendCloudFiles:
		return OpenCloudFiles(ctx, conf)
	case config.BackendS3:
		return OpenS3(ctx, conf)
	default:
		return nil, fmt.Errorf("unsupported backend %q", conf.Backend)
	}
}
