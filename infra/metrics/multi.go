package metrics

import coremetrics "github.com/pitwall/vtms/core/metrics"

// MultiSink fans gateway events out to multiple sinks.
type MultiSink struct {
	Sinks []coremetrics.MetricsSink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...coremetrics.MetricsSink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordPublish forwards the event to all sinks, returning the first error encountered.
func (m *MultiSink) RecordPublish(ev coremetrics.PublishEvent) error {
	for _, s := range m.Sinks {
		if err := s.RecordPublish(ev); err != nil {
			return err
		}
	}
	return nil
}

// RecordConnection forwards connection state changes to sinks that track them.
func (m *MultiSink) RecordConnection(ev coremetrics.ConnectionEvent) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(coremetrics.ConnectionRecorder); ok {
			if err := rec.RecordConnection(ev); err != nil {
				return err
			}
		}
	}
	return nil
}

// RecordBuffer forwards buffer depth snapshots to sinks that track them.
func (m *MultiSink) RecordBuffer(ev coremetrics.BufferEvent) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(coremetrics.BufferRecorder); ok {
			if err := rec.RecordBuffer(ev); err != nil {
				return err
			}
		}
	}
	return nil
}

// RecordReading forwards telemetry readings to sinks that track them.
func (m *MultiSink) RecordReading(ev coremetrics.ReadingEvent) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(coremetrics.ReadingRecorder); ok {
			if err := rec.RecordReading(ev); err != nil {
				return err
			}
		}
	}
	return nil
}
