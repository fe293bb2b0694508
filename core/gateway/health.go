package gateway

import (
	"context"
	"time"

	"github.com/pitwall/vtms/core/logger"
)

// DefaultHealthInterval is how often the health snapshot is published.
const DefaultHealthInterval = 60 * time.Second

// HealthSnapshot is the payload published to the health topic.
type HealthSnapshot struct {
	BusConnected            bool  `json:"bus_connected"`
	UpstreamDeviceConnected bool  `json:"upstream_device_connected"`
	Timestamp               int64 `json:"timestamp"`
}

// HealthReporter periodically publishes a HealthSnapshot. Snapshots are
// published only while the bus is connected: a stale health report flushed
// minutes later would claim a liveness that no longer holds.
type HealthReporter struct {
	gw       *Gateway
	state    *ConnectionState
	device   func() bool
	topic    string
	interval time.Duration
	log      logger.Logger
}

// NewHealthReporter creates a HealthReporter. device reports upstream device
// connectivity and may be nil when no device is attached.
func NewHealthReporter(gw *Gateway, state *ConnectionState, device func() bool, topic string, interval time.Duration, log logger.Logger) *HealthReporter {
	if interval <= 0 {
		interval = DefaultHealthInterval
	}
	if device == nil {
		device = func() bool { return false }
	}
	return &HealthReporter{gw: gw, state: state, device: device, topic: topic, interval: interval, log: log}
}

// Run publishes snapshots until the context is cancelled.
func (h *HealthReporter) Run(ctx context.Context) {
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.reportOnce()
		}
	}
}

func (h *HealthReporter) reportOnce() {
	busUp := h.state.Connected()
	deviceUp := h.device()
	if !busUp {
		h.log.Warnf("bus disconnected, skipping health report")
		return
	}
	if !deviceUp {
		h.log.Warnf("upstream device is not connected")
	}
	snap := HealthSnapshot{BusConnected: busUp, UpstreamDeviceConnected: deviceUp, Timestamp: time.Now().Unix()}
	h.gw.Publish(h.topic, snap, 0, false)
	h.log.Debugf("health published: bus=%v device=%v", busUp, deviceUp)
}
