//go:build !linux

// File: affinity/affinity_stub.go
// Author: momentics <momentics@gmail.com>
//
// Stub affinity implementation for platforms without sched_setaffinity.

package affinity

import "github.com/momentics/hioload-reactor/api"

// pinPlatform reports affinity as unsupported on this platform.
func pinPlatform(cpu int) error {
	return api.ErrNotSupported
}
