package gps

import (
	"context"
	"math"
	"time"

	coregps "github.com/pitwall/vtms/core/gps"
)

// SimSource emits a synthetic fix tracing laps around a base point. It lets
// the full pipeline run on a bench without a receiver plugged in.
type SimSource struct {
	lat     float64
	lon     float64
	alt     float64
	heading float64
}

// NewSimSource creates a simulated receiver. A zero base position falls back
// to a built-in circuit location.
func NewSimSource(lat, lon float64) *SimSource {
	if lat == 0 && lon == 0 {
		lat, lon = 45.5965, -122.6942
	}
	return &SimSource{lat: lat, lon: lon, alt: 60}
}

// Next advances the simulated car one step along its lap and returns the fix.
// Pacing is left to the caller, like a live receiver read loop.
func (s *SimSource) Next(ctx context.Context) (coregps.Fix, error) {
	if err := ctx.Err(); err != nil {
		return coregps.Fix{}, err
	}
	const speed = 22.0 // m/s
	s.heading += 4
	if s.heading >= 360 {
		s.heading -= 360
	}
	rad := s.heading * math.Pi / 180
	s.lat += speed * math.Cos(rad) / 111320
	s.lon += speed * math.Sin(rad) / (111320 * math.Cos(s.lat*math.Pi/180))
	return coregps.Fix{
		Latitude:    s.lat,
		Longitude:   s.lon,
		Altitude:    s.alt,
		SpeedMS:     speed,
		Track:       s.heading,
		HasPosition: true,
		HasAltitude: true,
		HasSpeed:    true,
		HasTrack:    true,
		Time:        time.Now(),
	}, nil
}

// Close is a no-op for the simulator.
func (s *SimSource) Close() error { return nil }
