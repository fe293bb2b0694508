package obd

import (
	"context"
	"errors"
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

func (p *fakePub) topics() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.calls))
	for i, c := range p.calls {
		out[i] = c.topic
	}
	return out
}

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

type fakeDevice struct {
	mu       sync.Mutex
	supports map[string]bool
	watched  []string
	status   Status
	queryRd  Reading
	closed   bool
}

func newFakeDevice(cmds ...string) *fakeDevice {
	sup := make(map[string]bool)
	for _, c := range cmds {
		sup[c] = true
	}
	return &fakeDevice{supports: sup, status: StatusConnected}
}

func (d *fakeDevice) Watch(cmd string, fn func(Reading)) error {
	d.mu.Lock()
	d.watched = append(d.watched, cmd)
	d.mu.Unlock()
	return nil
}

func (d *fakeDevice) Unwatch(cmd string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i, w := range d.watched {
		if w == cmd {
			d.watched = append(d.watched[:i], d.watched[i+1:]...)
			return nil
		}
	}
	return nil
}

func (d *fakeDevice) Query(context.Context, string) (Reading, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.queryRd, nil
}

func (d *fakeDevice) Supports(cmd string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.supports[cmd]
}

func (d *fakeDevice) Status() Status {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.status
}

func (d *fakeDevice) setStatus(s Status) {
	d.mu.Lock()
	d.status = s
	d.mu.Unlock()
}

func (d *fakeDevice) watchedCmds() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.watched...)
}

func (d *fakeDevice) Close() error {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()
	return nil
}

type fakeOpener struct {
	mu      sync.Mutex
	errs    int
	devices []*fakeDevice
	opened  int
}

func (o *fakeOpener) Open(context.Context) (Device, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.errs > 0 {
		o.errs--
		return nil, errors.New("no ports found")
	}
	if o.opened >= len(o.devices) {
		return nil, errors.New("no more devices")
	}
	d := o.devices[o.opened]
	o.opened++
	return d, nil
}

func newReporter(pub *fakePub, store *recordStore) *Reporter {
	return NewReporter(pub, bus.NewTopics("avl"), store, nil, state.NewFlags(), nopLogger{})
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timeout waiting for %s", what)
}

func TestCommandTables(t *testing.T) {
	if len(MetricCommands) != 81 {
		t.Fatalf("metric command count = %d, want 81", len(MetricCommands))
	}
	if c, ok := Classify("RPM"); !ok || c != ClassMetric {
		t.Fatalf("RPM class = %v ok=%v", c, ok)
	}
	if c, ok := Classify("MONITOR_CATALYST_B1"); !ok || c != ClassMonitor {
		t.Fatalf("monitor class = %v ok=%v", c, ok)
	}
	if c, ok := Classify(CommandDTC); !ok || c != ClassDTC {
		t.Fatalf("dtc class = %v ok=%v", c, ok)
	}
	if Known("WARP_DRIVE") {
		t.Fatalf("unexpected known command")
	}
}

func TestReporterSkipsNullReadings(t *testing.T) {
	pub := &fakePub{}
	rep := newReporter(pub, &recordStore{})
	rep.Metric(Reading{Command: "RPM", Null: true})
	rep.Monitor(Reading{Command: "MONITOR_CATALYST_B1", Null: true})
	if len(pub.calls) != 0 {
		t.Fatalf("null readings published: %v", pub.topics())
	}
}

func TestReporterMetricPublishAndPersist(t *testing.T) {
	pub := &fakePub{}
	store := &recordStore{}
	rep := newReporter(pub, store)
	rep.Metric(Reading{Command: "RPM", Value: "4200 rpm", Time: time.Now()})
	if len(pub.calls) != 1 || pub.calls[0].topic != "avl/RPM" || pub.calls[0].payload != "4200 rpm" {
		t.Fatalf("calls = %#v", pub.calls)
	}
	if len(store.recs) != 1 || store.recs[0].Name != "RPM" || store.recs[0].Source != telemetry.SourceOBD {
		t.Fatalf("records = %#v", store.recs)
	}
}

func TestReporterDTCFanout(t *testing.T) {
	pub := &fakePub{}
	rep := newReporter(pub, &recordStore{})
	rep.DTC(Reading{Command: CommandDTC, DTCs: []TroubleCode{
		{Code: "P0301", Description: "Cylinder 1 Misfire Detected"},
		{Code: "P0420", Description: "Catalyst System Efficiency Below Threshold"},
	}})
	got := pub.topics()
	if len(got) != 2 || got[0] != "avl/DTC/P0301" || got[1] != "avl/DTC/P0420" {
		t.Fatalf("topics = %v", got)
	}
	if pub.calls[0].payload != "Cylinder 1 Misfire Detected" {
		t.Fatalf("payload = %v", pub.calls[0].payload)
	}
}

func TestReporterDispatchUnknownDefaultsToMetric(t *testing.T) {
	pub := &fakePub{}
	rep := newReporter(pub, &recordStore{})
	rep.Dispatch("MYSTERY", Reading{Command: "MYSTERY", Value: "1"})
	if len(pub.calls) != 1 || pub.calls[0].topic != "avl/MYSTERY" {
		t.Fatalf("calls = %#v", pub.calls)
	}
}

func TestControlHandlerWatchQuery(t *testing.T) {
	dev := newFakeDevice("RPM", "SPEED")
	dev.queryRd = Reading{Command: "SPEED", Value: "88 kph"}
	opener := &fakeOpener{devices: []*fakeDevice{dev}}
	pub := &fakePub{}
	rep := newReporter(pub, &recordStore{})
	mgr := NewManager(opener, rep, time.Millisecond, time.Minute, nopLogger{})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go mgr.Run(ctx)
	waitFor(t, "adapter session", mgr.Connected)

	topics := bus.NewTopics("avl")
	h := NewControlHandler(mgr, rep, topics, nopLogger{})

	// COOLANT_TEMP is not in the device's support set, so the standing watch
	// setup leaves it alone and the control path is the only writer.
	h.Dispatch(topics.OBDWatch(), []byte("COOLANT_TEMP"))
	waitFor(t, "watch install", func() bool {
		for _, c := range dev.watchedCmds() {
			if c == "COOLANT_TEMP" {
				return true
			}
		}
		return false
	})

	h.Dispatch(topics.OBDQuery(), []byte("SPEED"))
	found := false
	for _, c := range pub.topics() {
		if c == "avl/SPEED" {
			found = true
		}
	}
	if !found {
		t.Fatalf("query response not published: %v", pub.topics())
	}

	h.Dispatch(topics.OBDUnwatch(), []byte("COOLANT_TEMP"))
	for _, c := range dev.watchedCmds() {
		if c == "COOLANT_TEMP" {
			t.Fatalf("unwatch did not remove COOLANT_TEMP: %v", dev.watchedCmds())
		}
	}
}

func TestControlHandlerIgnoresUnknown(t *testing.T) {
	dev := newFakeDevice("RPM")
	opener := &fakeOpener{devices: []*fakeDevice{dev}}
	pub := &fakePub{}
	rep := newReporter(pub, &recordStore{})
	mgr := NewManager(opener, rep, time.Millisecond, time.Minute, nopLogger{})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go mgr.Run(ctx)
	// RPM plus the trouble code watch.
	waitFor(t, "watch setup", func() bool { return len(dev.watchedCmds()) >= 2 })

	topics := bus.NewTopics("avl")
	h := NewControlHandler(mgr, rep, topics, nopLogger{})
	before := len(dev.watchedCmds())
	h.Dispatch(topics.OBDWatch(), []byte("WARP_DRIVE"))
	h.Dispatch("avl/RPM", []byte("4200 rpm"))
	if got := len(dev.watchedCmds()); got != before {
		t.Fatalf("unexpected watch change: %v", dev.watchedCmds())
	}
	if len(pub.calls) != 0 {
		t.Fatalf("unexpected publish: %v", pub.topics())
	}
}

func TestManagerRetriesAndInstallsWatches(t *testing.T) {
	dev := newFakeDevice("RPM", "SPEED", "MONITOR_CATALYST_B1")
	opener := &fakeOpener{errs: 2, devices: []*fakeDevice{dev}}
	pub := &fakePub{}
	rep := newReporter(pub, &recordStore{})
	mgr := NewManager(opener, rep, time.Millisecond, time.Minute, nopLogger{})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go mgr.Run(ctx)

	waitFor(t, "watch setup", func() bool { return len(dev.watchedCmds()) >= 4 })
	got := dev.watchedCmds()
	want := []string{"RPM", "SPEED", "MONITOR_CATALYST_B1", CommandDTC}
	for _, w := range want {
		found := false
		for _, g := range got {
			if g == w {
				found = true
			}
		}
		if !found {
			t.Fatalf("missing watch for %s in %v", w, got)
		}
	}
}

func TestManagerReconnectsOnStatusLoss(t *testing.T) {
	dev1 := newFakeDevice("RPM")
	dev2 := newFakeDevice("RPM")
	opener := &fakeOpener{devices: []*fakeDevice{dev1, dev2}}
	pub := &fakePub{}
	rep := newReporter(pub, &recordStore{})
	mgr := NewManager(opener, rep, time.Millisecond, 2*time.Millisecond, nopLogger{})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go mgr.Run(ctx)

	waitFor(t, "first session", func() bool { return len(dev1.watchedCmds()) > 0 })
	dev1.setStatus(StatusDisconnected)
	waitFor(t, "second session", func() bool { return len(dev2.watchedCmds()) > 0 })
	dev1.mu.Lock()
	closed := dev1.closed
	dev1.mu.Unlock()
	if !closed {
		t.Fatalf("lost session was not closed")
	}
}
