package jarpatch

import (
	"context"
	"errors"
	"fmt"

	"github.com/meigma/jarpatch/classfile"
)

var (
	// ErrUsage is returned for a malformed invocation.
	ErrUsage = errors.New("jarpatch: usage")

	// ErrManifestAttributeMissing is returned when no class was given and the
	// archive manifest has no Main-Class attribute.
	ErrManifestAttributeMissing = errors.New("jarpatch: no main class found in the jar manifest and no class specified")

	// ErrClassNotFound is returned when a class descriptor does not resolve
	// to a class in the archive.
	ErrClassNotFound = errors.New("jarpatch: class not found")

	// ErrMethodNotFound is returned when an injection target method is not
	// declared by the class.
	ErrMethodNotFound = errors.New("jarpatch: method not found")

	// ErrIO is returned for archive and file read or write failures. The
	// underlying error stays reachable with errors.As.
	ErrIO = errors.New("jarpatch: i/o failure")
)

// Errors re-exported from classfile.
var (
	// ErrInvalidClass is returned when class bytes are not a class file.
	ErrInvalidClass = classfile.ErrInvalidMagic

	// ErrNoCode is returned when the target method has no body.
	ErrNoCode = classfile.ErrNoCode
)

// ioError marks err as an I/O failure of op. Context errors pass through.
func ioError(op string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("%w: %s: %w", ErrIO, op, err)
}
