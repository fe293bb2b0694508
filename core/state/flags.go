package state

import "sync/atomic"

// Flags holds runtime toggles shared between the router handlers and the
// telemetry pipelines. All accessors are safe for concurrent use.
type Flags struct {
	debug atomic.Bool
}

// NewFlags returns a Flags set with everything off.
func NewFlags() *Flags { return &Flags{} }

// SetDebug switches verbose telemetry reporting on or off.
func (f *Flags) SetDebug(on bool) { f.debug.Store(on) }

// Debug reports whether verbose telemetry reporting is enabled.
func (f *Flags) Debug() bool { return f.debug.Load() }
