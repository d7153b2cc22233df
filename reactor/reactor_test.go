// File: reactor/reactor_test.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package reactor_test

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/momentics/hioload-reactor/api"
	"github.com/momentics/hioload-reactor/reactor"
)

func newTestReactor(t *testing.T) *reactor.Reactor {
	t.Helper()
	nop := zerolog.Nop()
	r, err := reactor.New(reactor.Config{Logger: &nop})
	if err != nil {
		if errors.Is(err, api.ErrNotSupported) {
			t.Skip("no readiness multiplexer on this platform")
		}
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = r.Close() })
	return r
}

func waitFor(t *testing.T, d time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(d)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met within %v", d)
}

func TestDeadlineOrdering(t *testing.T) {
	r := newTestReactor(t)

	var mu sync.Mutex
	var got []string
	add := func(label string) api.Callback {
		return func() {
			mu.Lock()
			got = append(got, label)
			mu.Unlock()
		}
	}

	now := r.Now()
	if err := r.Schedule(add("A"), now.Add(300*time.Millisecond)); err != nil {
		t.Fatal(err)
	}
	if err := r.Schedule(add("B"), now.Add(100*time.Millisecond)); err != nil {
		t.Fatal(err)
	}
	if err := r.Schedule(add("C"), now.Add(200*time.Millisecond)); err != nil {
		t.Fatal(err)
	}

	// One worker keeps execution order observable.
	if err := r.Start(1); err != nil {
		t.Fatal(err)
	}
	waitFor(t, 2*time.Second, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 3
	})
	if err := r.Stop(); err != nil {
		t.Fatal(err)
	}

	want := []string{"B", "C", "A"}
	for i, label := range want {
		if got[i] != label {
			t.Fatalf("fired %v, want %v", got, want)
		}
	}
}

func TestPastDeadlineFiresPromptly(t *testing.T) {
	r := newTestReactor(t)
	if err := r.Start(1); err != nil {
		t.Fatal(err)
	}

	// The worker is asleep in its bounded default wait; an already-due task
	// must ring the doorbell instead of waiting out the full cycle.
	time.Sleep(50 * time.Millisecond)
	var fired atomic.Int32
	start := time.Now()
	if err := r.Schedule(func() { fired.Add(1) }, r.Now()); err != nil {
		t.Fatal(err)
	}
	waitFor(t, 2*time.Second, func() bool { return fired.Load() == 1 })
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("task took %v to fire", elapsed)
	}
	if err := r.Stop(); err != nil {
		t.Fatal(err)
	}
}

func TestDeferFIFO(t *testing.T) {
	r := newTestReactor(t)
	if err := r.Start(1); err != nil {
		t.Fatal(err)
	}

	var mu sync.Mutex
	var got []int
	const n = 8
	for i := 0; i < n; i++ {
		i := i
		if err := r.Defer(func() {
			mu.Lock()
			got = append(got, i)
			mu.Unlock()
		}); err != nil {
			t.Fatal(err)
		}
	}
	waitFor(t, 2*time.Second, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == n
	})
	if err := r.Stop(); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < n; i++ {
		if got[i] != i {
			t.Fatalf("deferred order %v", got)
		}
	}
}

func TestStartStopTerminates(t *testing.T) {
	r := newTestReactor(t)
	if err := r.Start(4); err != nil {
		t.Fatal(err)
	}
	if w := r.Workers(); w != 4 {
		t.Fatalf("workers = %d, want 4", w)
	}

	stopped := make(chan error, 1)
	go func() { stopped <- r.Stop() }()
	select {
	case err := <-stopped:
		if err != nil {
			t.Fatal(err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("stop did not complete")
	}
	if w := r.Workers(); w != 0 {
		t.Fatalf("workers = %d after stop", w)
	}
}

func TestStartWhileRunningAddsWorkers(t *testing.T) {
	r := newTestReactor(t)
	if err := r.Start(1); err != nil {
		t.Fatal(err)
	}
	if err := r.Start(2); err != nil {
		t.Fatal(err)
	}
	if w := r.Workers(); w != 3 {
		t.Fatalf("workers = %d, want 3", w)
	}
	if err := r.Stop(); err != nil {
		t.Fatal(err)
	}
}

func TestLifecycleFromWorkerRejected(t *testing.T) {
	r := newTestReactor(t)
	if err := r.Start(2); err != nil {
		t.Fatal(err)
	}

	errCh := make(chan error, 3)
	if err := r.Defer(func() {
		errCh <- r.Stop()
		errCh <- r.Start(1)
		errCh <- r.Close()
	}); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 3; i++ {
		select {
		case err := <-errCh:
			if !errors.Is(err, api.ErrCalledFromWorker) {
				t.Fatalf("err = %v, want ErrCalledFromWorker", err)
			}
		case <-time.After(2 * time.Second):
			t.Fatal("callback did not run")
		}
	}

	// The registry survived the rejected calls; a normal stop still works.
	if err := r.Stop(); err != nil {
		t.Fatal(err)
	}
}

func TestScheduleNilCallback(t *testing.T) {
	r := newTestReactor(t)
	if err := r.Schedule(nil, r.Now()); !errors.Is(err, api.ErrInvalidArgument) {
		t.Fatalf("err = %v, want ErrInvalidArgument", err)
	}
	if err := r.Defer(nil); !errors.Is(err, api.ErrInvalidArgument) {
		t.Fatalf("err = %v, want ErrInvalidArgument", err)
	}
}

func TestCloseIdempotent(t *testing.T) {
	r := newTestReactor(t)
	if err := r.Close(); err != nil {
		t.Fatal(err)
	}
	if err := r.Close(); !errors.Is(err, api.ErrReactorClosed) {
		t.Fatalf("second close = %v, want ErrReactorClosed", err)
	}
	if err := r.Start(1); !errors.Is(err, api.ErrReactorClosed) {
		t.Fatalf("start = %v, want ErrReactorClosed", err)
	}
	if err := r.Stop(); !errors.Is(err, api.ErrReactorClosed) {
		t.Fatalf("stop = %v, want ErrReactorClosed", err)
	}
	if err := r.Schedule(func() {}, r.Now()); !errors.Is(err, api.ErrReactorClosed) {
		t.Fatalf("schedule = %v, want ErrReactorClosed", err)
	}
	if err := r.Watch(0, api.ReadyRead, func(api.Ready) {}); !errors.Is(err, api.ErrReactorClosed) {
		t.Fatalf("watch = %v, want ErrReactorClosed", err)
	}
	if err := r.Unwatch(0, api.ReadyRead); !errors.Is(err, api.ErrReactorClosed) {
		t.Fatalf("unwatch = %v, want ErrReactorClosed", err)
	}
}

func TestStats(t *testing.T) {
	r := newTestReactor(t)
	if err := r.Start(2); err != nil {
		t.Fatal(err)
	}

	var fired atomic.Int32
	if err := r.Defer(func() { fired.Add(1) }); err != nil {
		t.Fatal(err)
	}
	waitFor(t, 2*time.Second, func() bool { return fired.Load() == 1 })

	stats := r.Stats()
	if stats["workers"].(int) != 2 {
		t.Fatalf("workers stat = %v", stats["workers"])
	}
	if stats["tasks_fired"].(uint64) < 1 {
		t.Fatalf("tasks_fired stat = %v", stats["tasks_fired"])
	}
	if stats["wakeups"].(uint64) < 1 {
		t.Fatalf("wakeups stat = %v", stats["wakeups"])
	}
	if err := r.Stop(); err != nil {
		t.Fatal(err)
	}
}
