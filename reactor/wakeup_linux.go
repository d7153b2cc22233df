//go:build linux

// File: reactor/wakeup_linux.go
// Author: momentics <momentics@gmail.com>
//
// Eventfd doorbell used to rouse workers blocked in the poll wait. The
// counting semantics are not relied upon: every wakeup means "re-check shared
// state", never a precise count of pending reasons.

package reactor

import (
	"encoding/binary"
	"fmt"

	"golang.org/x/sys/unix"
)

// newWakeFd creates the non-blocking eventfd doorbell.
func newWakeFd() (int, error) {
	fd, err := unix.Eventfd(0, unix.EFD_NONBLOCK|unix.EFD_CLOEXEC)
	if err != nil {
		return -1, fmt.Errorf("eventfd: %w", err)
	}
	return fd, nil
}

// signalWakeFd increments the doorbell counter. EAGAIN means the counter is
// saturated and the fd already readable, so a sleeping worker will wake
// regardless; the signal is dropped deliberately.
func signalWakeFd(fd int) {
	var b [8]byte
	binary.NativeEndian.PutUint64(b[:], 1)
	_, _ = unix.Write(fd, b[:])
}

// drainWakeFd resets the doorbell counter. A failed read means a sibling
// worker drained it first; both outcomes leave the fd quiet.
func drainWakeFd(fd int, buf []byte) {
	_, _ = unix.Read(fd, buf)
}

// closeWakeFd releases the doorbell descriptor.
func closeWakeFd(fd int) error {
	return unix.Close(fd)
}
