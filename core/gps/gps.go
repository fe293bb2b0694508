package gps

import (
	"context"
	"time"
)

// Fix is one merged position sample. Sources accumulate partial sentences, so
// a Fix may carry position only, with the optional channels marked by the
// Has flags.
type Fix struct {
	Latitude    float64
	Longitude   float64
	Altitude    float64
	SpeedMS     float64
	Track       float64
	HasPosition bool
	HasAltitude bool
	HasSpeed    bool
	HasTrack    bool
	Time        time.Time
}

// Source yields successive fixes. Next blocks until new data arrives, the
// source fails, or the context is cancelled. Implementations live under
// infra: a serial NMEA reader and a simulator.
type Source interface {
	Next(ctx context.Context) (Fix, error)
	Close() error
}
