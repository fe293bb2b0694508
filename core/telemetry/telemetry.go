package telemetry

import "time"

// Record is one telemetry sample kept for post-session analysis.
type Record struct {
	ID     int64
	Source string
	Name   string
	Value  string
	Time   time.Time
}

// Known record sources.
const (
	SourceOBD = "obd"
	SourceGPS = "gps"
)

// Filter narrows a Query. Zero values match everything; Limit of 0 means no
// limit.
type Filter struct {
	Source string
	Name   string
	Since  time.Time
	Limit  int
}

// Store persists telemetry records. Append is called from the telemetry
// pipelines and must be safe for concurrent use.
type Store interface {
	Append(rec Record) error
	Query(f Filter) ([]Record, error)
	Close() error
}

// NopStore discards all records. Used when persistence is disabled.
type NopStore struct{}

func (NopStore) Append(Record) error            { return nil }
func (NopStore) Query(Filter) ([]Record, error) { return nil, nil }
func (NopStore) Close() error                   { return nil }
