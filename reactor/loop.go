// File: reactor/loop.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// The per-worker reactor loop. Any number of workers run this loop against
// the same shared state; any subset of them may be woken for a given poll
// batch. The mutex is held for every state transition except the poll wait
// and each callback invocation.

package reactor

import (
	"container/heap"
	"time"

	"github.com/momentics/hioload-reactor/api"
)

// loop blocks on the multiplexer with a timeout derived from the nearest
// deadline, dispatches fired descriptor callbacks, then drains all due tasks,
// until the reactor stops running.
func (r *Reactor) loop() {
	buf := newEventBuf(r.cfg.MaxEvents)
	var matched []api.IOCallback

	r.mu.Lock()
	for r.running {
		timeout := r.waitTimeoutLocked()

		r.mu.Unlock()
		events, err := r.poll.wait(buf, timeout)
		r.mu.Lock()

		if err != nil {
			// A single bad wait must not take down the shared state of
			// every worker; log it and keep looping.
			r.pollFaults.Add(1)
			r.log.Error().Err(err).Msg("poll wait failed")
			continue
		}

		for _, ev := range events {
			if ev.fd == r.wakeFd {
				// Doorbell: consume and re-check state, nothing more.
				drainWakeFd(r.wakeFd, r.wakeBuf[:])
				continue
			}
			matched = r.dispatchLocked(ev, matched[:0])
		}

		r.drainDeferredLocked()
		r.runTimersLocked()
	}
	// Shutting down: rouse a sibling still blocked in the poll wait.
	r.signalWake()
	r.mu.Unlock()
}

// waitTimeoutLocked derives the poll timeout: zero when deferred work is
// already due, time to the earliest deadline otherwise, bounded default when
// nothing is scheduled.
func (r *Reactor) waitTimeoutLocked() time.Duration {
	if r.ready.Length() > 0 {
		return 0
	}
	if r.timers.Len() > 0 {
		d := time.Until(r.timers[0].when)
		if d < 0 {
			d = 0
		}
		return d
	}
	return r.cfg.DefaultWait
}

// dispatchLocked fires every watch on the event's descriptor whose registered
// mask is covered by the fired mask. Matches are snapshotted under the mutex,
// then invoked with it released, so a callback may mutate the watch table.
func (r *Reactor) dispatchLocked(ev event, matched []api.IOCallback) []api.IOCallback {
	for mask, fn := range r.watches[ev.fd] {
		if ev.mask.Contains(mask) {
			matched = append(matched, fn)
		}
	}
	for _, fn := range matched {
		r.mu.Unlock()
		fn(ev.mask)
		r.mu.Lock()
		r.eventsDispatched.Add(1)
	}
	return matched
}

// drainDeferredLocked runs the immediate FIFO queue ahead of due timers.
func (r *Reactor) drainDeferredLocked() {
	for r.ready.Length() > 0 {
		fn := r.ready.Remove().(api.Callback)
		r.mu.Unlock()
		fn()
		r.mu.Lock()
		r.tasksFired.Add(1)
	}
}

// runTimersLocked pops and executes every task whose deadline has passed, in
// earliest-deadline-first order. The clock is re-read after each execution so
// a long callback lets subsequently-due tasks fire in the same pass.
func (r *Reactor) runTimersLocked() {
	for r.timers.Len() > 0 && !r.timers[0].when.After(time.Now()) {
		t := heap.Pop(&r.timers).(task)
		r.mu.Unlock()
		t.fn()
		r.mu.Lock()
		r.tasksFired.Add(1)
	}
}
