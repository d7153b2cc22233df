//go:build linux

// File: reactor/epoll_linux.go
// Author: momentics <momentics@gmail.com>
//
// Linux epoll(7) backend for the readiness multiplexer.

package reactor

import (
	"fmt"
	"time"

	"golang.org/x/sys/unix"

	"github.com/momentics/hioload-reactor/api"
)

// poller wraps one epoll instance. The descriptor is owned by the Reactor for
// its full lifetime and closed exactly once by Close.
type poller struct {
	epfd int
}

// newPoller creates the epoll instance.
func newPoller() (*poller, error) {
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("epoll create: %w", err)
	}
	return &poller{epfd: epfd}, nil
}

// add registers fd with the given interest mask.
func (p *poller) add(fd int, mask api.Ready) error {
	ev := unix.EpollEvent{Events: readyToEpoll(mask), Fd: int32(fd)}
	if err := unix.EpollCtl(p.epfd, unix.EPOLL_CTL_ADD, fd, &ev); err != nil {
		return fmt.Errorf("epoll ctl add: %w", err)
	}
	return nil
}

// mod replaces the interest mask of an already-registered fd.
func (p *poller) mod(fd int, mask api.Ready) error {
	ev := unix.EpollEvent{Events: readyToEpoll(mask), Fd: int32(fd)}
	if err := unix.EpollCtl(p.epfd, unix.EPOLL_CTL_MOD, fd, &ev); err != nil {
		return fmt.Errorf("epoll ctl mod: %w", err)
	}
	return nil
}

// del removes fd from the interest set.
func (p *poller) del(fd int) error {
	if err := unix.EpollCtl(p.epfd, unix.EPOLL_CTL_DEL, fd, nil); err != nil {
		return fmt.Errorf("epoll ctl del: %w", err)
	}
	return nil
}

// close releases the epoll descriptor.
func (p *poller) close() error {
	return unix.Close(p.epfd)
}

// eventBuf holds per-worker poll buffers so concurrent waiters on the same
// epoll instance never share storage.
type eventBuf struct {
	raw []unix.EpollEvent
	out []event
}

func newEventBuf(n int) *eventBuf {
	return &eventBuf{
		raw: make([]unix.EpollEvent, n),
		out: make([]event, 0, n),
	}
}

// pollMillis converts a wait timeout to epoll milliseconds, rounding a
// sub-millisecond gap up to 1ms so a near deadline does not truncate to a
// busy zero-timeout wait.
func pollMillis(timeout time.Duration) int {
	ms := int(timeout / time.Millisecond)
	if ms == 0 && timeout > 0 {
		ms = 1
	}
	return ms
}

// wait blocks for up to timeout and returns the batch of ready events.
// Interrupted waits are swallowed and reported as an empty batch.
func (p *poller) wait(buf *eventBuf, timeout time.Duration) ([]event, error) {
	n, err := unix.EpollWait(p.epfd, buf.raw, pollMillis(timeout))
	if err != nil {
		if err == unix.EINTR {
			return nil, nil
		}
		return nil, fmt.Errorf("epoll wait: %w", err)
	}
	buf.out = buf.out[:0]
	for i := 0; i < n; i++ {
		buf.out = append(buf.out, event{
			fd:   int(buf.raw[i].Fd),
			mask: epollToReady(buf.raw[i].Events),
		})
	}
	return buf.out, nil
}

// readyToEpoll converts a readiness mask to epoll interest flags. Error and
// hangup conditions are always reported by epoll; requesting them explicitly
// only adds EPOLLRDHUP so a peer shutdown surfaces as hangup.
func readyToEpoll(mask api.Ready) uint32 {
	var ev uint32
	if mask&api.ReadyRead != 0 {
		ev |= unix.EPOLLIN
	}
	if mask&api.ReadyWrite != 0 {
		ev |= unix.EPOLLOUT
	}
	if mask&api.ReadyHangup != 0 {
		ev |= unix.EPOLLRDHUP
	}
	return ev
}

// epollToReady converts fired epoll flags to a readiness mask.
func epollToReady(ev uint32) api.Ready {
	var mask api.Ready
	if ev&(unix.EPOLLIN|unix.EPOLLPRI) != 0 {
		mask |= api.ReadyRead
	}
	if ev&unix.EPOLLOUT != 0 {
		mask |= api.ReadyWrite
	}
	if ev&unix.EPOLLERR != 0 {
		mask |= api.ReadyError
	}
	if ev&(unix.EPOLLHUP|unix.EPOLLRDHUP) != 0 {
		mask |= api.ReadyHangup
	}
	return mask
}
