// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

package transfer

import (
	"errors"
	"fmt"

	"github.com/cfupload/cfupload/sdk/blobstore"
)

// Kind classifies every error the uploader can report.
type Kind int

const (
	KindUsage Kind = iota + 1
	KindConfiguration
	KindAuthentication
	KindConnection
	KindContainerNotFound
	KindFileNotFound
	KindTransfer
)

func (k Kind) String() string {
	switch k {
	case KindUsage:
		return "usage"
	case KindConfiguration:
		return "configuration"
	case KindAuthentication:
		return "authentication"
	case KindConnection:
		return "connection"
	case KindContainerNotFound:
		return "container_not_found"
	case KindFileNotFound:
		return "file_not_found"
	case KindTransfer:
		return "transfer"
	default:
		return "unknown"
	}
}

// Error is the only error type that leaves this package. Message is what
// the user sees after "Error: ".
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s (%v)", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(kind Kind, err error, format string, a ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, a...), Err: err}
}

// KindOf returns the Kind of err, or 0 when err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

// IsKind reports whether err is an *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// Message is the single line shown to the user for err.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}

// connectError maps a blobstore error raised while opening the session or
// resolving the container.
func connectError(err error, service, container string) *Error {
	switch {
	case errors.Is(err, blobstore.ErrContainerNotFound):
		return newError(KindContainerNotFound, err, "Container %s does not exist.", container)
	case errors.Is(err, blobstore.ErrAuthentication):
		return newError(KindAuthentication, err, "%s authentication failed.", service)
	default:
		return newError(KindConnection, err, "Unable to establish connection to %s.", service)
	}
}
