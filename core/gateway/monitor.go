package gateway

import (
	"context"
	"time"

	"github.com/pitwall/vtms/core/bus"
	"github.com/pitwall/vtms/core/logger"
	"github.com/pitwall/vtms/core/metrics"
)

// Monitor defaults, chosen so a flaky link recovers within a check period and
// a dead one is retried at most every BackoffCap.
const (
	DefaultCheckInterval = 30 * time.Second
	DefaultBackoffStep   = 2 * time.Second
	DefaultBackoffCap    = 30 * time.Second
)

// Monitor owns the reconnect policy. The transport never reconnects on its
// own; every CheckInterval the monitor looks at the link and, when it is down,
// waits min(retries*BackoffStep, BackoffCap) before dialing again. A healthy
// check or a successful connect resets the retry counter.
type Monitor struct {
	transport bus.Transport
	state     *ConnectionState
	gw        *Gateway
	interval  time.Duration
	step      time.Duration
	cap       time.Duration
	log       logger.Logger
	sink      metrics.MetricsSink
}

// NewMonitor creates a Monitor. Zero durations fall back to the defaults.
func NewMonitor(transport bus.Transport, state *ConnectionState, gw *Gateway, interval, step, backoffCap time.Duration, log logger.Logger, sink metrics.MetricsSink) *Monitor {
	if interval <= 0 {
		interval = DefaultCheckInterval
	}
	if step <= 0 {
		step = DefaultBackoffStep
	}
	if backoffCap <= 0 {
		backoffCap = DefaultBackoffCap
	}
	if sink == nil {
		sink = metrics.NopSink{}
	}
	return &Monitor{transport: transport, state: state, gw: gw, interval: interval, step: step, cap: backoffCap, log: log, sink: sink}
}

// Backoff returns the wait before reconnect attempt number retries.
func (m *Monitor) Backoff(retries int) time.Duration {
	wait := time.Duration(retries) * m.step
	if wait > m.cap {
		wait = m.cap
	}
	return wait
}

// Run checks the link until the context is cancelled.
func (m *Monitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		m.checkOnce(ctx)
	}
}

// checkOnce performs a single health check and, when the link is down, one
// backoff-delayed reconnect attempt.
func (m *Monitor) checkOnce(ctx context.Context) {
	if m.transport.IsConnected() {
		m.state.ResetRetries()
		return
	}
	retries := m.state.IncrementRetries()
	wait := m.Backoff(retries)
	m.log.Warnf("bus disconnected, reconnect attempt %d in %s", retries, wait)
	select {
	case <-ctx.Done():
		return
	case <-time.After(wait):
	}
	if err := m.transport.Connect(ctx); err != nil {
		m.log.Errorf("reconnect attempt %d failed: %v", retries, err)
		m.recordConnection(false)
		return
	}
	// The Connected event resets the counter as well; doing it here keeps the
	// state right even if the event is lost.
	m.state.ResetRetries()
	m.recordConnection(true)
	m.log.Infof("bus connection restored after %d attempts", retries)
	m.gw.Flush()
}

func (m *Monitor) recordConnection(connected bool) {
	if cr, ok := m.sink.(metrics.ConnectionRecorder); ok {
		_ = cr.RecordConnection(metrics.ConnectionEvent{Connected: connected, Retries: m.state.Retries(), Time: time.Now()})
	}
}
