package obd

import (
	"context"
	"errors"
	"time"
)

// Status is the adapter session state.
type Status int

const (
	StatusDisconnected Status = iota
	StatusConnected
)

func (s Status) String() string {
	if s == StatusConnected {
		return "connected"
	}
	return "disconnected"
}

// TroubleCode is one stored diagnostic trouble code.
type TroubleCode struct {
	Code        string
	Description string
}

// Reading is one sample delivered by the adapter. Value carries the formatted
// value including its unit; Null marks an empty answer from the ECU. DTC
// readings carry the codes instead of a value.
type Reading struct {
	Command string
	Value   string
	Unit    string
	Time    time.Time
	Null    bool
	DTCs    []TroubleCode
}

// Device is an open OBD2 adapter session. Watch callbacks run on the device's
// polling goroutine and must not block.
type Device interface {
	Watch(cmd string, fn func(Reading)) error
	Unwatch(cmd string) error
	Query(ctx context.Context, cmd string) (Reading, error)
	Supports(cmd string) bool
	Status() Status
	Close() error
}

// Opener establishes adapter sessions. Implementations scan for an adapter
// and return a connected Device or an error describing why none was found.
type Opener interface {
	Open(ctx context.Context) (Device, error)
}

// ErrNoDevice is returned for device operations while no adapter session is
// established.
var ErrNoDevice = errors.New("obd: no device connected")

// ErrUnknownCommand is returned when a command name is not in the tables.
var ErrUnknownCommand = errors.New("obd: unknown command")
