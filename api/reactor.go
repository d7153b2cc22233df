// File: api/reactor.go
// Package api defines the Reactor interface.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package api

import "time"

// Reactor is a shared readiness multiplexer combined with a deadline-ordered
// task queue, serviced by a pool of worker goroutines. Callbacks always run
// with the reactor's internal lock released, so they may call back into any
// operation except Start, Stop and Close.
type Reactor interface {
	// Start marks the reactor running and spawns the given number of
	// workers. Calling Start on an already-running reactor adds workers to
	// the same shared state.
	Start(workers int) error

	// Stop halts the reactor, discards all pending tasks and watches
	// without executing them, and blocks until every worker has exited.
	Stop() error

	// Close stops the reactor and releases its kernel handles. The reactor
	// is unusable afterward.
	Close() error

	// Now returns the current time in the same clock used for deadlines.
	Now() time.Time

	// Schedule runs fn once, no earlier than when.
	Schedule(fn Callback, when time.Time) error

	// ScheduleAfter runs fn once, no earlier than d from now.
	ScheduleAfter(fn Callback, d time.Duration) error

	// Defer runs fn on a worker as soon as possible. Deferred callbacks
	// preserve FIFO order relative to each other.
	Defer(fn Callback) error

	// Watch registers interest in mask conditions on fd. The (fd, mask)
	// pair is the registration identity; the same descriptor may carry
	// multiple watches under distinct masks.
	Watch(fd int, mask Ready, fn IOCallback) error

	// Unwatch removes the registration for the exact (fd, mask) key.
	Unwatch(fd int, mask Ready) error

	// Running reports whether the reactor currently owns workers.
	Running() bool

	// Workers returns the number of live worker goroutines.
	Workers() int

	// Stats returns runtime counters.
	Stats() map[string]any
}
