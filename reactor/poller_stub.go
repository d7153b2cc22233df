//go:build !linux

// File: reactor/poller_stub.go
// Author: momentics <momentics@gmail.com>
//
// Stub backend for platforms without an epoll implementation. New fails with
// ErrNotSupported; the remaining symbols exist only to keep the package
// compiling.

package reactor

import (
	"time"

	"github.com/momentics/hioload-reactor/api"
)

type poller struct{}

func newPoller() (*poller, error) { return nil, api.ErrNotSupported }

func (p *poller) add(fd int, mask api.Ready) error { return api.ErrNotSupported }
func (p *poller) mod(fd int, mask api.Ready) error { return api.ErrNotSupported }
func (p *poller) del(fd int) error                 { return api.ErrNotSupported }
func (p *poller) close() error                     { return nil }

type eventBuf struct{}

func newEventBuf(n int) *eventBuf { return &eventBuf{} }

func (p *poller) wait(buf *eventBuf, timeout time.Duration) ([]event, error) {
	return nil, api.ErrNotSupported
}

func newWakeFd() (int, error)        { return -1, api.ErrNotSupported }
func signalWakeFd(fd int)            {}
func drainWakeFd(fd int, buf []byte) {}
func closeWakeFd(fd int) error       { return nil }
