package scenarios

import (
	"testing"

	"github.com/pitwall/vtms/core/bus"
	"github.com/pitwall/vtms/core/router"
	"github.com/pitwall/vtms/core/signal"
	"github.com/pitwall/vtms/core/state"
	"github.com/pitwall/vtms/infra/logger"
)

// lampRecorder remembers the last state set for each lamp.
type lampRecorder struct {
	lamps map[string]bool
}

func newLampRecorder() *lampRecorder { return &lampRecorder{lamps: make(map[string]bool)} }

func (r *lampRecorder) Set(lamp string, on bool) { r.lamps[lamp] = on }

// countingHandler counts dispatches that missed the routing table.
type countingHandler struct{ n int }

func (h *countingHandler) Dispatch(string, []byte) { h.n++ }

// RunScenario replays the scenario's messages through a routing table wired
// like the gateway's and checks the outcome against the expectations.
func RunScenario(t *testing.T, sc *Scenario) {
	ns := sc.Namespace
	if ns == "" {
		ns = "vtms"
	}
	topics := bus.NewTopics(ns)
	flags := state.NewFlags()
	lamps := newLampRecorder()
	fallback := &countingHandler{}

	table, err := buildTable(topics, flags, lamps)
	if err != nil {
		t.Fatalf("table: %v", err)
	}

	routed := 0
	for _, m := range sc.Messages {
		topic := ns + "/" + m.Topic
		if table.Route(topic, []byte(m.Payload)) {
			routed++
		} else {
			fallback.Dispatch(topic, []byte(m.Payload))
		}
	}

	if routed != sc.Expected.Routed {
		t.Errorf("scenario %s expected %d routed, got %d", sc.Name, sc.Expected.Routed, routed)
	}
	if fallback.n != sc.Expected.Fallback {
		t.Errorf("scenario %s expected %d fallback, got %d", sc.Name, sc.Expected.Fallback, fallback.n)
	}
	if flags.Debug() != sc.Expected.Debug {
		t.Errorf("scenario %s expected debug=%v, got %v", sc.Name, sc.Expected.Debug, flags.Debug())
	}
	for lamp, want := range sc.Expected.Lamps {
		if got := lamps.lamps[lamp]; got != want {
			t.Errorf("scenario %s expected lamp %s=%v, got %v", sc.Name, lamp, want, got)
		}
	}
}

// buildTable mirrors the gateway's control-topic registrations.
func buildTable(topics bus.Topics, flags *state.Flags, sig signal.Signaler) (*router.Table, error) {
	log := logger.NopLogger{}
	table := router.NewTable()
	pit := router.NewPitHandler(topics.Pit(), topics.Box(), sig, log)
	exact := []struct {
		topic string
		h     router.Handler
	}{
		{topics.Debug(), router.NewDebugHandler(flags, log)},
		{topics.Message(), router.NewMessageHandler(log)},
		{topics.Pit(), pit},
		{topics.Box(), pit},
	}
	for _, e := range exact {
		if err := table.Register(e.topic, e.h); err != nil {
			return nil, err
		}
	}
	if err := table.RegisterPrefix(topics.FlagPrefix(), router.NewFlagHandler(sig, log)); err != nil {
		return nil, err
	}
	return table, nil
}
