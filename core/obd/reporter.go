package obd

import (
	"time"

	"github.com/pitwall/vtms/core/bus"
	"github.com/pitwall/vtms/core/logger"
	"github.com/pitwall/vtms/core/metrics"
	"github.com/pitwall/vtms/core/state"
	"github.com/pitwall/vtms/core/telemetry"
)

// Publisher is the gateway surface the reporter publishes through.
type Publisher interface {
	Publish(topic string, payload any, qos byte, retain bool) bool
}

// Reporter turns adapter readings into bus publishes, telemetry records and
// metrics. It is the single downstream of every watch callback and query
// response.
type Reporter struct {
	pub    Publisher
	topics bus.Topics
	store  telemetry.Store
	sink   metrics.MetricsSink
	flags  *state.Flags
	log    logger.Logger
}

// NewReporter creates a Reporter. A nil store disables persistence, a nil
// sink disables metrics.
func NewReporter(pub Publisher, topics bus.Topics, store telemetry.Store, sink metrics.MetricsSink, flags *state.Flags, log logger.Logger) *Reporter {
	if store == nil {
		store = telemetry.NopStore{}
	}
	if sink == nil {
		sink = metrics.NopSink{}
	}
	return &Reporter{pub: pub, topics: topics, store: store, sink: sink, flags: flags, log: log}
}

// Metric publishes a scalar reading to <ns>/<CMD>. Null readings are skipped.
func (r *Reporter) Metric(rd Reading) {
	if rd.Null {
		return
	}
	if r.flags.Debug() {
		r.log.Debugf("new metric: %s = %s", rd.Command, rd.Value)
	}
	r.pub.Publish(r.topics.Metric(rd.Command), rd.Value, 0, false)
	r.persist(rd)
}

// Monitor publishes an on-board monitor result block to <ns>/<CMD>.
func (r *Reporter) Monitor(rd Reading) {
	if rd.Null {
		return
	}
	if r.flags.Debug() {
		r.log.Debugf("new monitor: %s", rd.Command)
	}
	r.pub.Publish(r.topics.Metric(rd.Command), rd.Value, 0, false)
	r.persist(rd)
}

// DTC publishes each trouble code to <ns>/DTC/<code> with its description as
// the payload.
func (r *Reporter) DTC(rd Reading) {
	for _, tc := range rd.DTCs {
		if r.flags.Debug() {
			r.log.Debugf("new DTC: %s %s", tc.Code, tc.Description)
		}
		r.pub.Publish(r.topics.DTC(tc.Code), tc.Description, 0, false)
		r.append(telemetry.Record{Source: telemetry.SourceOBD, Name: CommandDTC, Value: tc.Code, Time: readingTime(rd)})
	}
}

// Dispatch routes a query response by command class. Unknown commands are
// reported as metrics, matching the adapter's default formatting.
func (r *Reporter) Dispatch(cmd string, rd Reading) {
	class, ok := Classify(cmd)
	if !ok {
		if r.flags.Debug() {
			r.log.Warnf("no handler for query %q, defaulting to metric", cmd)
		}
		r.Metric(rd)
		return
	}
	switch class {
	case ClassMonitor:
		r.Monitor(rd)
	case ClassDTC:
		r.DTC(rd)
	default:
		r.Metric(rd)
	}
}

// CallbackFor returns the watch callback matching the command class.
func (r *Reporter) CallbackFor(cmd string) func(Reading) {
	class, _ := Classify(cmd)
	switch class {
	case ClassMonitor:
		return r.Monitor
	case ClassDTC:
		return r.DTC
	default:
		return r.Metric
	}
}

func (r *Reporter) persist(rd Reading) {
	r.append(telemetry.Record{Source: telemetry.SourceOBD, Name: rd.Command, Value: rd.Value, Time: readingTime(rd)})
	if rr, ok := r.sink.(metrics.ReadingRecorder); ok {
		_ = rr.RecordReading(metrics.ReadingEvent{Source: telemetry.SourceOBD, Name: rd.Command, Value: rd.Value, Time: readingTime(rd)})
	}
}

func (r *Reporter) append(rec telemetry.Record) {
	if err := r.store.Append(rec); err != nil {
		r.log.Errorf("telemetry store append: %v", err)
	}
}

func readingTime(rd Reading) time.Time {
	if rd.Time.IsZero() {
		return time.Now()
	}
	return rd.Time
}
