// File: api/events.go
// Package api defines readiness masks and callback types.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package api

import "strings"

// Ready is a bitmask of readiness conditions on a descriptor.
type Ready uint32

const (
	// ReadyRead indicates the descriptor has data available to read.
	ReadyRead Ready = 1 << iota
	// ReadyWrite indicates the descriptor accepts writes without blocking.
	ReadyWrite
	// ReadyError indicates an error condition on the descriptor.
	ReadyError
	// ReadyHangup indicates the peer closed its end of the connection.
	ReadyHangup
)

// Contains reports whether m includes every bit of sub.
func (m Ready) Contains(sub Ready) bool {
	return m&sub == sub
}

// String renders the mask as a "|"-joined list of condition names.
func (m Ready) String() string {
	if m == 0 {
		return "none"
	}
	var parts []string
	if m&ReadyRead != 0 {
		parts = append(parts, "read")
	}
	if m&ReadyWrite != 0 {
		parts = append(parts, "write")
	}
	if m&ReadyError != 0 {
		parts = append(parts, "error")
	}
	if m&ReadyHangup != 0 {
		parts = append(parts, "hangup")
	}
	return strings.Join(parts, "|")
}

// Callback is an opaque unit of deferred work executed by a reactor worker.
type Callback func()

// IOCallback handles a descriptor readiness event. It receives the mask that
// actually fired, which may be broader than the mask it was registered under.
type IOCallback func(Ready)
