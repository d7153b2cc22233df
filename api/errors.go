// File: api/errors.go
// Package api defines shared types and errors for hioload-reactor.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package api

import "fmt"

// Common errors used across the library.
var (
	// ErrCalledFromWorker is returned by Start, Stop and Close when invoked
	// from one of the reactor's own worker goroutines. Both calls block on
	// conditions a worker can never satisfy from inside itself.
	ErrCalledFromWorker = fmt.Errorf("operation not allowed from a reactor worker")

	// ErrWatchExists is returned by Watch when the exact (fd, mask) key is
	// already registered.
	ErrWatchExists = fmt.Errorf("descriptor watch already registered")

	// ErrWatchNotFound is returned by Unwatch when the exact (fd, mask) key
	// is not registered.
	ErrWatchNotFound = fmt.Errorf("descriptor watch not registered")

	// ErrReactorClosed is returned once Close has released the kernel handles.
	ErrReactorClosed = fmt.Errorf("reactor is closed")

	// ErrInvalidArgument signals a nil callback, negative descriptor or
	// empty readiness mask.
	ErrInvalidArgument = fmt.Errorf("invalid argument")

	// ErrNotSupported is returned on platforms without a readiness
	// multiplexer implementation.
	ErrNotSupported = fmt.Errorf("operation not supported on this platform")
)
