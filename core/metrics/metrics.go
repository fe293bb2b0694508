package metrics

import "time"

// PublishResult classifies the outcome of one gateway publish attempt.
type PublishResult string

const (
	// ResultSent means the message reached the bus, immediately or via flush.
	ResultSent PublishResult = "sent"
	// ResultBuffered means the message was queued for a later flush.
	ResultBuffered PublishResult = "buffered"
	// ResultDropped means the oldest buffered message was evicted on overflow.
	ResultDropped PublishResult = "dropped"
	// ResultExpired means a buffered message aged out before it could be sent.
	ResultExpired PublishResult = "expired"
)

// PublishEvent describes one publish outcome.
type PublishEvent struct {
	Topic  string
	Result PublishResult
	Time   time.Time
}

// MetricsSink records publish outcomes for observability purposes.
type MetricsSink interface {
	RecordPublish(ev PublishEvent) error
}

// ConnectionEvent is a snapshot of bus connectivity taken when it changes or
// when a reconnect attempt concludes.
type ConnectionEvent struct {
	Connected bool
	Retries   int
	Time      time.Time
}

// ConnectionRecorder records connectivity snapshots.
type ConnectionRecorder interface {
	RecordConnection(ev ConnectionEvent) error
}

// BufferEvent is a snapshot of the outbound queue after a mutation.
type BufferEvent struct {
	Size     int
	Capacity int
	Time     time.Time
}

// BufferRecorder records queue depth snapshots.
type BufferRecorder interface {
	RecordBuffer(ev BufferEvent) error
}

// ReadingEvent is one telemetry value leaving the gateway.
type ReadingEvent struct {
	Source string
	Name   string
	Value  string
	Time   time.Time
}

// ReadingRecorder records telemetry readings.
type ReadingRecorder interface {
	RecordReading(ev ReadingEvent) error
}

// NopSink implements MetricsSink with no-op methods.
type NopSink struct{}

func (NopSink) RecordPublish(PublishEvent) error { return nil }
