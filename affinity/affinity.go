// File: affinity/affinity.go
// Author: momentics <momentics@gmail.com>
//
// Platform-neutral API for CPU affinity. Platform-specific implementations are
// located in separate files (affinity_linux.go, affinity_stub.go) guarded by
// build tags.

package affinity

import "runtime"

// Pin binds the calling OS thread to the given logical CPU. Callers that need
// the pin to outlive the current function must hold runtime.LockOSThread for
// the duration. On unsupported platforms Pin returns an error.
func Pin(cpu int) error {
	return pinPlatform(cpu)
}

// NumCPUs returns the number of logical CPUs.
func NumCPUs() int {
	return runtime.NumCPU()
}
