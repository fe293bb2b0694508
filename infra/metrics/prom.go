package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	coremetrics "github.com/pitwall/vtms/core/metrics"
)

// PromSink records gateway events in Prometheus metrics.
type PromSink struct {
	publishes   *prometheus.CounterVec
	connections *prometheus.CounterVec
	connected   prometheus.Gauge
	bufferSize  prometheus.Gauge
	readings    *prometheus.CounterVec
}

// NewPromSink registers gateway metrics on the default Prometheus registerer.
// The Prometheus server should be started separately using cfg.PrometheusAddr.
func NewPromSink(cfg coremetrics.Config) (coremetrics.MetricsSink, error) {
	return NewPromSinkWithRegistry(cfg, prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer.
func NewPromSinkWithRegistry(_ coremetrics.Config, reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	publishes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gateway_publish_events_total",
		Help: "Total number of publish attempts by outcome",
	}, []string{"result"})
	connections := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gateway_connection_events_total",
		Help: "Total number of broker connection state changes",
	}, []string{"connected"})
	connected := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "gateway_bus_connected",
		Help: "Whether the broker connection is up (1) or down (0)",
	})
	bufferSize := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "gateway_buffer_messages",
		Help: "Number of messages held in the store-and-forward buffer",
	})
	readings := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gateway_readings_total",
		Help: "Total number of telemetry readings by source and channel",
	}, []string{"source", "name"})

	if err := reg.Register(publishes); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			publishes = are.ExistingCollector.(*prometheus.CounterVec)
		} else {
			return nil, err
		}
	}
	if err := reg.Register(connections); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			connections = are.ExistingCollector.(*prometheus.CounterVec)
		} else {
			return nil, err
		}
	}
	if err := reg.Register(connected); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			connected = are.ExistingCollector.(prometheus.Gauge)
		} else {
			return nil, err
		}
	}
	if err := reg.Register(bufferSize); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			bufferSize = are.ExistingCollector.(prometheus.Gauge)
		} else {
			return nil, err
		}
	}
	if err := reg.Register(readings); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			readings = are.ExistingCollector.(*prometheus.CounterVec)
		} else {
			return nil, err
		}
	}

	return &PromSink{
		publishes:   publishes,
		connections: connections,
		connected:   connected,
		bufferSize:  bufferSize,
		readings:    readings,
	}, nil
}

// RecordPublish increments the publish counter for the outcome.
func (s *PromSink) RecordPublish(ev coremetrics.PublishEvent) error {
	s.publishes.WithLabelValues(string(ev.Result)).Inc()
	return nil
}

// RecordConnection tracks connection state changes.
func (s *PromSink) RecordConnection(ev coremetrics.ConnectionEvent) error {
	s.connections.WithLabelValues(strconv.FormatBool(ev.Connected)).Inc()
	if ev.Connected {
		s.connected.Set(1)
	} else {
		s.connected.Set(0)
	}
	return nil
}

// RecordBuffer sets the buffer depth gauge.
func (s *PromSink) RecordBuffer(ev coremetrics.BufferEvent) error {
	s.bufferSize.Set(float64(ev.Size))
	return nil
}

// RecordReading counts a telemetry reading.
func (s *PromSink) RecordReading(ev coremetrics.ReadingEvent) error {
	s.readings.WithLabelValues(ev.Source, ev.Name).Inc()
	return nil
}
