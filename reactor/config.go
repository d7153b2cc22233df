// File: reactor/config.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package reactor

import (
	"os"
	"runtime"
	"time"

	"github.com/rs/zerolog"
)

const (
	defaultMaxEvents = 32
	defaultWait      = 10 * time.Second
)

// Config carries reactor tunables. The zero value is usable; New normalizes
// every field.
type Config struct {
	// Workers is the worker count used by Start(0).
	// Defaults to runtime.NumCPU().
	Workers int

	// MaxEvents bounds the number of readiness events a worker accepts from
	// a single poll wait. Defaults to 32.
	MaxEvents int

	// DefaultWait bounds a worker's poll timeout when no deadline is
	// pending, so the loop still wakes periodically with nothing scheduled.
	// Defaults to 10s.
	DefaultWait time.Duration

	// PinWorkers binds each worker goroutine to an OS thread and pins that
	// thread to a logical CPU, round-robin across the machine.
	PinWorkers bool

	// Logger receives poll faults and lifecycle diagnostics. Defaults to a
	// stderr logger at warn level.
	Logger *zerolog.Logger
}

// withDefaults returns cfg with unset fields normalized.
func (cfg Config) withDefaults() Config {
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.NumCPU()
	}
	if cfg.MaxEvents <= 0 {
		cfg.MaxEvents = defaultMaxEvents
	}
	if cfg.DefaultWait <= 0 {
		cfg.DefaultWait = defaultWait
	}
	if cfg.Logger == nil {
		l := zerolog.New(os.Stderr).With().Timestamp().Logger().Level(zerolog.WarnLevel)
		cfg.Logger = &l
	}
	return cfg
}
