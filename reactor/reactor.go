// File: reactor/reactor.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Shared reactor state and the public operation set. One mutex totally orders
// access to the watch table, timer heap, immediate run queue and worker
// registry; it is never held across a poll wait, a join, or a callback.

package reactor

import (
	"container/heap"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/eapache/queue"
	"github.com/rs/zerolog"

	"github.com/momentics/hioload-reactor/affinity"
	"github.com/momentics/hioload-reactor/api"
)

// event is one fired readiness notification, platform-neutral.
type event struct {
	fd   int
	mask api.Ready
}

// Reactor multiplexes descriptor readiness and deadline callbacks across a
// pool of worker goroutines. See the package documentation for the
// concurrency model.
type Reactor struct {
	cfg Config
	log zerolog.Logger

	poll   *poller
	wakeFd int

	mu      sync.Mutex
	running bool
	closed  bool

	// watches maps fd -> registered mask -> callback. The kernel interest
	// for an fd is the union of its registered masks.
	watches  map[int]map[api.Ready]api.IOCallback
	nwatches int

	timers taskHeap
	ready  *queue.Queue // FIFO of api.Callback, guarded by mu

	// workers maps a worker's goroutine ID to its done channel; used to
	// reject reentrant Start/Stop/Close and to join on shutdown.
	workers map[uint64]chan struct{}
	spawned int

	wakeBuf [8]byte

	tasksFired       atomic.Uint64
	eventsDispatched atomic.Uint64
	wakeups          atomic.Uint64
	pollFaults       atomic.Uint64
}

var _ api.Reactor = (*Reactor)(nil)

// New creates a reactor, its epoll instance and its eventfd doorbell. Both
// kernel handles are owned by the reactor until Close.
func New(cfg Config) (*Reactor, error) {
	cfg = cfg.withDefaults()

	poll, err := newPoller()
	if err != nil {
		return nil, err
	}
	wakeFd, err := newWakeFd()
	if err != nil {
		_ = poll.close()
		return nil, err
	}
	if err := poll.add(wakeFd, api.ReadyRead); err != nil {
		_ = poll.close()
		_ = closeWakeFd(wakeFd)
		return nil, err
	}

	return &Reactor{
		cfg:     cfg,
		log:     *cfg.Logger,
		poll:    poll,
		wakeFd:  wakeFd,
		watches: make(map[int]map[api.Ready]api.IOCallback),
		ready:   queue.New(),
		workers: make(map[uint64]chan struct{}),
	}, nil
}

// Start marks the reactor running and spawns workers; workers <= 0 means the
// configured default. Every spawned worker is recorded in the registry before
// Start returns. Starting an already-running reactor adds workers.
func (r *Reactor) Start(workers int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return api.ErrReactorClosed
	}
	if _, ok := r.workers[curGoroutineID()]; ok {
		return api.ErrCalledFromWorker
	}
	if workers <= 0 {
		workers = r.cfg.Workers
	}

	r.running = true
	for i := 0; i < workers; i++ {
		cpu := -1
		if r.cfg.PinWorkers {
			cpu = r.spawned % affinity.NumCPUs()
		}
		r.spawned++
		done := make(chan struct{})
		idCh := make(chan uint64)
		go r.worker(idCh, done, cpu)
		r.workers[<-idCh] = done
	}
	r.log.Debug().Int("workers", workers).Msg("reactor started")
	return nil
}

// worker reports its goroutine ID back to Start, then runs the reactor loop
// until the running flag drops.
func (r *Reactor) worker(idCh chan<- uint64, done chan<- struct{}, cpu int) {
	defer close(done)
	if cpu >= 0 {
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()
		if err := affinity.Pin(cpu); err != nil {
			r.log.Warn().Err(err).Int("cpu", cpu).Msg("worker pin failed")
		}
	}
	idCh <- curGoroutineID()
	r.loop()
}

// Stop halts the reactor, discards all pending tasks and watches without
// executing them, and joins every worker. It fails with ErrCalledFromWorker
// when invoked from a worker goroutine: a worker cannot join itself.
func (r *Reactor) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return api.ErrReactorClosed
	}
	return r.stopLocked()
}

// stopLocked is Stop's body; it expects the mutex held and returns with it
// held, releasing it only around each worker join.
func (r *Reactor) stopLocked() error {
	if _, ok := r.workers[curGoroutineID()]; ok {
		return api.ErrCalledFromWorker
	}

	r.running = false

	// Discarded work is a caller-hygiene issue, not an error; removal is the
	// caller's responsibility.
	if r.nwatches > 0 {
		r.log.Warn().Int("watches", r.nwatches).
			Msg("stopping reactor with active descriptor watches; consider Unwatch first")
	}
	if r.timers.Len() > 0 || r.ready.Length() > 0 {
		r.log.Warn().Int("timers", r.timers.Len()).Int("deferred", r.ready.Length()).
			Msg("stopping reactor with pending tasks")
	}

	// Deregister every watched fd from the kernel; a stale registration
	// would make a later Watch of the same fd fail against epoll.
	for fd := range r.watches {
		if err := r.poll.del(fd); err != nil {
			r.log.Warn().Err(err).Int("fd", fd).Msg("stop-time deregistration failed")
		}
	}
	r.watches = make(map[int]map[api.Ready]api.IOCallback)
	r.nwatches = 0
	r.timers = nil
	for r.ready.Length() > 0 {
		r.ready.Remove()
	}

	r.signalWake()

	// Join workers one at a time with the mutex released: a worker cannot
	// exit its loop while the caller holds the mutex it needs.
	for len(r.workers) > 0 {
		var (
			id   uint64
			done chan struct{}
		)
		for id, done = range r.workers {
			break
		}
		delete(r.workers, id)
		r.mu.Unlock()
		<-done
		r.mu.Lock()
	}
	r.log.Debug().Msg("reactor stopped")
	return nil
}

// Close stops the reactor and releases both kernel handles exactly once.
func (r *Reactor) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return api.ErrReactorClosed
	}
	if err := r.stopLocked(); err != nil {
		return err
	}
	r.closed = true
	err := r.poll.close()
	if cerr := closeWakeFd(r.wakeFd); err == nil {
		err = cerr
	}
	return err
}

// Now returns the current time in the clock used for deadlines.
func (r *Reactor) Now() time.Time {
	return time.Now()
}

// Schedule runs fn once, no earlier than when. The doorbell is rung only if
// the new task became the earliest deadline; otherwise a sleeping worker's
// current timeout already covers it.
func (r *Reactor) Schedule(fn api.Callback, when time.Time) error {
	if fn == nil {
		return api.ErrInvalidArgument
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return api.ErrReactorClosed
	}
	newFront := r.timers.Len() == 0 || when.Before(r.timers[0].when)
	heap.Push(&r.timers, task{when: when, fn: fn})
	if newFront {
		r.signalWake()
	}
	return nil
}

// ScheduleAfter runs fn once, no earlier than d from now.
func (r *Reactor) ScheduleAfter(fn api.Callback, d time.Duration) error {
	return r.Schedule(fn, time.Now().Add(d))
}

// Defer runs fn on a worker as soon as possible. Deferred callbacks fire in
// FIFO order relative to each other, before any due timer in the same cycle.
func (r *Reactor) Defer(fn api.Callback) error {
	if fn == nil {
		return api.ErrInvalidArgument
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return api.ErrReactorClosed
	}
	r.ready.Add(fn)
	r.signalWake()
	return nil
}

// Watch registers fn for mask conditions on fd. The exact (fd, mask) pair is
// the registration identity: a duplicate key fails, while a second watch on
// the same fd under a different mask is a distinct entry. The kernel interest
// becomes the union of the fd's registered masks.
func (r *Reactor) Watch(fd int, mask api.Ready, fn api.IOCallback) error {
	if fn == nil || fd < 0 || mask == 0 {
		return api.ErrInvalidArgument
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return api.ErrReactorClosed
	}
	if fd == r.wakeFd {
		return api.ErrInvalidArgument
	}

	entries := r.watches[fd]
	if _, ok := entries[mask]; ok {
		return api.ErrWatchExists
	}

	old := unionLocked(entries)
	next := old | mask
	if entries == nil {
		if err := r.poll.add(fd, next); err != nil {
			return err
		}
		entries = make(map[api.Ready]api.IOCallback)
		r.watches[fd] = entries
	} else if next != old {
		if err := r.poll.mod(fd, next); err != nil {
			return err
		}
	}
	entries[mask] = fn
	r.nwatches++

	// A worker already blocked in the poll wait needs a kick so the kernel
	// interest set takes effect on its next cycle.
	r.signalWake()
	return nil
}

// Unwatch removes the registration for the exact (fd, mask) key, shrinking
// the fd's kernel interest or deleting it entirely. Removal never needs to
// wake anyone early.
func (r *Reactor) Unwatch(fd int, mask api.Ready) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return api.ErrReactorClosed
	}

	entries := r.watches[fd]
	if _, ok := entries[mask]; !ok {
		return api.ErrWatchNotFound
	}
	delete(entries, mask)
	r.nwatches--

	next := unionLocked(entries)
	if next == 0 {
		delete(r.watches, fd)
		if err := r.poll.del(fd); err != nil {
			r.log.Warn().Err(err).Int("fd", fd).Msg("deregistration failed")
		}
	} else if err := r.poll.mod(fd, next); err != nil {
		r.log.Warn().Err(err).Int("fd", fd).Msg("interest update failed")
	}
	return nil
}

// unionLocked folds an fd's registered masks into its kernel interest.
func unionLocked(entries map[api.Ready]api.IOCallback) api.Ready {
	var u api.Ready
	for mask := range entries {
		u |= mask
	}
	return u
}

// Running reports whether the reactor is marked running.
func (r *Reactor) Running() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

// Workers returns the number of live worker goroutines.
func (r *Reactor) Workers() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.workers)
}

// Stats returns runtime counters.
func (r *Reactor) Stats() map[string]any {
	r.mu.Lock()
	workers := len(r.workers)
	timers := r.timers.Len()
	deferred := r.ready.Length()
	watches := r.nwatches
	r.mu.Unlock()

	return map[string]any{
		"workers":           workers,
		"pending_timers":    timers,
		"pending_deferred":  deferred,
		"watches":           watches,
		"tasks_fired":       r.tasksFired.Load(),
		"events_dispatched": r.eventsDispatched.Load(),
		"wakeups":           r.wakeups.Load(),
		"poll_faults":       r.pollFaults.Load(),
	}
}

// signalWake rings the doorbell once.
func (r *Reactor) signalWake() {
	r.wakeups.Add(1)
	signalWakeFd(r.wakeFd)
}
