package gps

import (
	"context"
	"strconv"
	"time"

	"github.com/pitwall/vtms/core/bus"
	"github.com/pitwall/vtms/core/logger"
	"github.com/pitwall/vtms/core/metrics"
	"github.com/pitwall/vtms/core/state"
	"github.com/pitwall/vtms/core/telemetry"
)

// Reporter defaults. The publish cadence matches the bus consumers' update
// rate; the error delay keeps a dead receiver from busy-looping the log.
const (
	DefaultInterval   = time.Second
	DefaultErrorDelay = 10 * time.Second
)

// Publisher is the gateway surface the reporter publishes through.
type Publisher interface {
	Publish(topic string, payload any, qos byte, retain bool) bool
}

// Reporter drains a Source and publishes position data to the gps topics.
// Source errors are logged and retried, the loop only stops with the context.
type Reporter struct {
	src      Source
	pub      Publisher
	topics   bus.Topics
	store    telemetry.Store
	sink     metrics.MetricsSink
	flags    *state.Flags
	interval time.Duration
	errDelay time.Duration
	log      logger.Logger
}

// NewReporter creates a Reporter. Zero durations fall back to the defaults; a
// nil store disables persistence, a nil sink disables metrics.
func NewReporter(src Source, pub Publisher, topics bus.Topics, store telemetry.Store, sink metrics.MetricsSink, flags *state.Flags, interval, errDelay time.Duration, log logger.Logger) *Reporter {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if errDelay <= 0 {
		errDelay = DefaultErrorDelay
	}
	if store == nil {
		store = telemetry.NopStore{}
	}
	if sink == nil {
		sink = metrics.NopSink{}
	}
	return &Reporter{src: src, pub: pub, topics: topics, store: store, sink: sink, flags: flags, interval: interval, errDelay: errDelay, log: log}
}

// Run publishes fixes until the context is cancelled.
func (r *Reporter) Run(ctx context.Context) {
	for {
		fix, err := r.src.Next(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			r.log.Errorf("gps read: %v", err)
			if !sleep(ctx, r.errDelay) {
				return
			}
			continue
		}
		if fix.HasPosition {
			r.publishFix(fix)
		}
		if !sleep(ctx, r.interval) {
			return
		}
	}
}

func (r *Reporter) publishFix(fix Fix) {
	lat := formatFloat(fix.Latitude)
	lon := formatFloat(fix.Longitude)
	count := 0
	publish := func(topic, name, value string) {
		r.pub.Publish(topic, value, 0, false)
		r.persist(name, value, fix.Time)
		count++
	}
	publish(r.topics.GPSPos(), "pos", lat+","+lon)
	publish(r.topics.GPSLatitude(), "latitude", lat)
	publish(r.topics.GPSLongitude(), "longitude", lon)
	if fix.HasSpeed {
		publish(r.topics.GPSSpeed(), "speed", formatFloat(fix.SpeedMS))
	}
	if fix.HasAltitude {
		publish(r.topics.GPSAltitude(), "altitude", formatFloat(fix.Altitude))
	}
	if fix.HasTrack {
		publish(r.topics.GPSTrack(), "track", formatFloat(fix.Track))
	}
	if r.flags.Debug() {
		r.log.Debugf("gps data published: %d topics, position: %s,%s", count, lat, lon)
	}
}

func (r *Reporter) persist(name, value string, ts time.Time) {
	if ts.IsZero() {
		ts = time.Now()
	}
	if err := r.store.Append(telemetry.Record{Source: telemetry.SourceGPS, Name: name, Value: value, Time: ts}); err != nil {
		r.log.Errorf("telemetry store append: %v", err)
	}
	if rr, ok := r.sink.(metrics.ReadingRecorder); ok {
		_ = rr.RecordReading(metrics.ReadingEvent{Source: telemetry.SourceGPS, Name: name, Value: value, Time: ts})
	}
}

// sleep waits d or until ctx is done, reporting whether the wait completed.
func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
