package gps

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/pitwall/vtms/core/bus"
	"github.com/pitwall/vtms/core/state"
	"github.com/pitwall/vtms/core/telemetry"
)

type nopLogger struct{}

func (nopLogger) Debugf(string, ...any)         {}
func (nopLogger) Debugw(string, map[string]any) {}
func (nopLogger) Infof(string, ...any)          {}
func (nopLogger) Warnf(string, ...any)          {}
func (nopLogger) Errorf(string, ...any)         {}

type pubCall struct {
	topic   string
	payload any
}

type fakePub struct {
	mu    sync.Mutex
	calls []pubCall
}

func (p *fakePub) Publish(topic string, payload any, qos byte, retain bool) bool {
	p.mu.Lock()
	p.calls = append(p.calls, pubCall{topic: topic, payload: payload})
	p.mu.Unlock()
	return true
}

func (p *fakePub) byTopic() map[string]any {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make(map[string]any, len(p.calls))
	for _, c := range p.calls {
		out[c.topic] = c.payload
	}
	return out
}

// scriptSource returns pre-baked fixes and errors, then stops the run.
type scriptSource struct {
	mu    sync.Mutex
	steps []any
	done  func()
}

func (s *scriptSource) Next(ctx context.Context) (Fix, error) {
	s.mu.Lock()
	if len(s.steps) == 0 {
		s.mu.Unlock()
		if s.done != nil {
			s.done()
		}
		<-ctx.Done()
		return Fix{}, ctx.Err()
	}
	step := s.steps[0]
	s.steps = s.steps[1:]
	s.mu.Unlock()
	switch v := step.(type) {
	case Fix:
		return v, nil
	case error:
		return Fix{}, v
	default:
		return Fix{}, io.EOF
	}
}

func (s *scriptSource) Close() error { return nil }

type recordStore struct {
	mu   sync.Mutex
	recs []telemetry.Record
}

func (s *recordStore) Append(rec telemetry.Record) error {
	s.mu.Lock()
	s.recs = append(s.recs, rec)
	s.mu.Unlock()
	return nil
}

func (s *recordStore) Query(telemetry.Filter) ([]telemetry.Record, error) { return nil, nil }
func (s *recordStore) Close() error                                       { return nil }

func runReporter(t *testing.T, src *scriptSource, pub Publisher, store telemetry.Store) {
	t.Helper()
	r := NewReporter(src, pub, bus.NewTopics("avl"), store, nil, state.NewFlags(), time.Millisecond, time.Millisecond, nopLogger{})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	src.done = cancel
	r.Run(ctx)
}

func TestReporterPublishesAllChannels(t *testing.T) {
	src := &scriptSource{steps: []any{Fix{
		Latitude: 45.012, Longitude: -122.5, Altitude: 120.5, SpeedMS: 31.2, Track: 88.0,
		HasPosition: true, HasAltitude: true, HasSpeed: true, HasTrack: true,
	}}}
	pub := &fakePub{}
	store := &recordStore{}
	runReporter(t, src, pub, store)

	got := pub.byTopic()
	want := map[string]string{
		"avl/gps/pos":       "45.012,-122.5",
		"avl/gps/latitude":  "45.012",
		"avl/gps/longitude": "-122.5",
		"avl/gps/speed":     "31.2",
		"avl/gps/altitude":  "120.5",
		"avl/gps/track":     "88",
	}
	for topic, payload := range want {
		if got[topic] != payload {
			t.Fatalf("topic %s = %v, want %q (all: %v)", topic, got[topic], payload, got)
		}
	}
	store.mu.Lock()
	defer store.mu.Unlock()
	if len(store.recs) != 6 {
		t.Fatalf("stored %d records, want 6", len(store.recs))
	}
}

func TestReporterSkipsMissingChannels(t *testing.T) {
	src := &scriptSource{steps: []any{Fix{Latitude: 1, Longitude: 2, HasPosition: true}}}
	pub := &fakePub{}
	runReporter(t, src, pub, &recordStore{})

	got := pub.byTopic()
	if len(got) != 3 {
		t.Fatalf("published %d topics, want 3: %v", len(got), got)
	}
	for _, forbidden := range []string{"avl/gps/speed", "avl/gps/altitude", "avl/gps/track"} {
		if _, ok := got[forbidden]; ok {
			t.Fatalf("unexpected publish to %s", forbidden)
		}
	}
}

func TestReporterSkipsFixWithoutPosition(t *testing.T) {
	src := &scriptSource{steps: []any{Fix{Altitude: 5, HasAltitude: true}}}
	pub := &fakePub{}
	runReporter(t, src, pub, &recordStore{})
	if len(pub.byTopic()) != 0 {
		t.Fatalf("unexpected publishes: %v", pub.byTopic())
	}
}

func TestReporterSurvivesSourceErrors(t *testing.T) {
	src := &scriptSource{steps: []any{
		errors.New("serial hiccup"),
		Fix{Latitude: 1, Longitude: 2, HasPosition: true},
	}}
	pub := &fakePub{}
	runReporter(t, src, pub, &recordStore{})
	if _, ok := pub.byTopic()["avl/gps/pos"]; !ok {
		t.Fatalf("no publish after recovered error: %v", pub.byTopic())
	}
}
