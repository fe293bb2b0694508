package obd

import (
	"context"
	"sync"
	"time"

	"github.com/pitwall/vtms/core/logger"
)

// Manager defaults, matching the pace of a car that may be powered off for
// minutes at a time.
const (
	DefaultRetryDelay   = 15 * time.Second
	DefaultPollInterval = 10 * time.Second
)

// Manager owns the adapter session lifecycle: it connects through the Opener,
// installs the initial watches, polls the session health and reconnects when
// the car drops off the port. A lost adapter never stops the gateway, the
// manager just keeps retrying.
type Manager struct {
	opener   Opener
	rep      *Reporter
	retry    time.Duration
	interval time.Duration
	log      logger.Logger

	mu  sync.Mutex
	dev Device
}

// NewManager creates a Manager. Zero durations fall back to the defaults.
func NewManager(opener Opener, rep *Reporter, retry, interval time.Duration, log logger.Logger) *Manager {
	if retry <= 0 {
		retry = DefaultRetryDelay
	}
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Manager{opener: opener, rep: rep, retry: retry, interval: interval, log: log}
}

// Run connects and supervises the adapter session until the context is
// cancelled.
func (m *Manager) Run(ctx context.Context) {
	for {
		dev, err := m.opener.Open(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			m.log.Warnf("no OBD adapter available, retrying in %s: %v", m.retry, err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(m.retry):
			}
			continue
		}
		m.setDevice(dev)
		m.log.Infof("OBD adapter connected")
		m.setupWatches(dev)

		if !m.poll(ctx, dev) {
			return
		}
		// Session lost, go back to connecting.
		_ = dev.Close()
		m.setDevice(nil)
	}
}

// poll watches the session health every interval. It returns false when the
// context was cancelled and true when the session was lost.
func (m *Manager) poll(ctx context.Context, dev Device) bool {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return false
		case <-ticker.C:
		}
		if dev.Status() != StatusConnected {
			m.log.Warnf("OBD connection lost, attempting to reconnect")
			return true
		}
	}
}

// setupWatches installs the standing watches: every supported metric and
// monitor command plus the trouble code poll.
func (m *Manager) setupWatches(dev Device) {
	for _, cmd := range MetricCommands {
		if !dev.Supports(cmd) {
			continue
		}
		m.log.Infof("starting metrics watch for %s", cmd)
		if err := dev.Watch(cmd, m.rep.Metric); err != nil {
			m.log.Errorf("watch %s: %v", cmd, err)
		}
	}
	for _, cmd := range MonitorCommands {
		if !dev.Supports(cmd) {
			continue
		}
		m.log.Infof("starting monitor watch for %s", cmd)
		if err := dev.Watch(cmd, m.rep.Monitor); err != nil {
			m.log.Errorf("watch %s: %v", cmd, err)
		}
	}
	if err := dev.Watch(CommandDTC, m.rep.DTC); err != nil {
		m.log.Errorf("watch %s: %v", CommandDTC, err)
	}
}

func (m *Manager) setDevice(dev Device) {
	m.mu.Lock()
	m.dev = dev
	m.mu.Unlock()
}

func (m *Manager) device() Device {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.dev
}

// Connected reports whether an adapter session is established. Used by the
// health reporter.
func (m *Manager) Connected() bool {
	dev := m.device()
	return dev != nil && dev.Status() == StatusConnected
}

// Watch installs a watch on the current session.
func (m *Manager) Watch(cmd string, fn func(Reading)) error {
	dev := m.device()
	if dev == nil {
		return ErrNoDevice
	}
	return dev.Watch(cmd, fn)
}

// Unwatch removes a watch from the current session.
func (m *Manager) Unwatch(cmd string) error {
	dev := m.device()
	if dev == nil {
		return ErrNoDevice
	}
	return dev.Unwatch(cmd)
}

// Query runs a one-shot command on the current session.
func (m *Manager) Query(ctx context.Context, cmd string) (Reading, error) {
	dev := m.device()
	if dev == nil {
		return Reading{}, ErrNoDevice
	}
	return dev.Query(ctx, cmd)
}

// Close tears down the current session.
func (m *Manager) Close() error {
	dev := m.device()
	if dev == nil {
		return nil
	}
	m.setDevice(nil)
	return dev.Close()
}
