// Copyright (c) 2026
// Author: momentics <momentics@gmail.com>

// Package reactor implements a shared, multi-worker readiness reactor: one
// epoll instance and one deadline-ordered task queue serviced by a pool of
// worker goroutines.
//
// Callers register descriptor watches and schedule deferred callbacks; worker
// goroutines block on the multiplexer with a timeout derived from the nearest
// pending deadline, dispatch matching descriptor callbacks, then drain all due
// tasks. An eventfd doorbell registered with the multiplexer lets any mutation
// of shared state rouse a sleeping worker, so a newly armed descriptor or an
// earlier deadline takes effect without waiting out a full poll cycle.
//
// A single mutex orders all access to the watch table, the timer heap, the
// immediate run queue and the worker registry. The mutex is never held across
// the poll wait, the stop-side join, or any callback invocation; callbacks may
// therefore call back into Schedule, Defer, Watch and Unwatch freely. Start,
// Stop and Close reject calls made from a worker goroutine instead of
// deadlocking against it.
package reactor
