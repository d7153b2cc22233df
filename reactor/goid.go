// File: reactor/goid.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package reactor

import "runtime"

// curGoroutineID returns the current goroutine's ID, parsed from the
// "goroutine N [...]:" header of a single-goroutine stack dump. Used only for
// the worker-registry identity check in Start, Stop and Close.
func curGoroutineID() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	var id uint64
	for i := len("goroutine "); i < n; i++ {
		if buf[i] < '0' || buf[i] > '9' {
			break
		}
		id = id*10 + uint64(buf[i]-'0')
	}
	return id
}
