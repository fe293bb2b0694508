package gateway

import (
	"encoding/json"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/pitwall/vtms/core/buffer"
	"github.com/pitwall/vtms/core/bus"
	"github.com/pitwall/vtms/core/logger"
	"github.com/pitwall/vtms/core/metrics"
)

// DefaultMaxAge is how long a buffered message stays eligible for flushing.
const DefaultMaxAge = 300 * time.Second

// Gateway is the single path to the bus for all telemetry producers. When the
// bus is reachable it sends immediately; otherwise it queues into the bounded
// buffer so data survives outages. Producers never see an error: the outcome
// is logged, counted and, when possible, repaired by a later flush.
type Gateway struct {
	transport bus.Transport
	buf       *buffer.Buffer
	state     *ConnectionState
	maxAge    time.Duration
	log       logger.Logger
	sink      metrics.MetricsSink

	flushing atomic.Bool
}

// New creates a Gateway draining into transport. A nil sink disables metrics.
func New(transport bus.Transport, buf *buffer.Buffer, state *ConnectionState, maxAge time.Duration, log logger.Logger, sink metrics.MetricsSink) *Gateway {
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}
	if sink == nil {
		sink = metrics.NopSink{}
	}
	return &Gateway{transport: transport, buf: buf, state: state, maxAge: maxAge, log: log, sink: sink}
}

// Publish sends one message to the bus, buffering it when the bus is
// unreachable or the send fails. The return value reports an immediate send;
// false means the message was queued (or dropped if it could not be encoded).
func (g *Gateway) Publish(topic string, payload any, qos byte, retain bool) bool {
	data, err := encodePayload(payload)
	if err != nil {
		g.log.Errorf("cannot encode payload for %s: %v", topic, err)
		return false
	}
	m := buffer.Message{Topic: topic, Payload: data, QoS: qos, Retain: retain, EnqueuedAt: time.Now()}
	if !g.state.Connected() {
		g.enqueue(m)
		return false
	}
	if err := g.transport.Publish(topic, data, qos, retain); err != nil {
		g.log.Warnf("publish to %s failed, buffering message: %v", topic, err)
		g.enqueue(m)
		return false
	}
	g.record(topic, metrics.ResultSent)
	return true
}

// Flush drains the buffer oldest-first while sends keep succeeding. Expired
// messages are dropped without a send attempt; the first failure re-queues the
// message at the front and halts so ordering is preserved. Only one flush runs
// at a time, concurrent triggers return immediately.
func (g *Gateway) Flush() {
	if !g.flushing.CompareAndSwap(false, true) {
		return
	}
	defer g.flushing.Store(false)

	if !g.state.Connected() || g.buf.Len() == 0 {
		return
	}
	g.log.Debugf("flushing %d buffered messages", g.buf.Len())

	now := time.Now()
	flushed := 0
	for {
		m, ok := g.buf.PopOldest()
		if !ok {
			break
		}
		if now.Sub(m.EnqueuedAt) > g.maxAge {
			g.log.Warnf("dropping expired buffered message to %s", m.Topic)
			g.record(m.Topic, metrics.ResultExpired)
			continue
		}
		if err := g.transport.Publish(m.Topic, m.Payload, m.QoS, m.Retain); err != nil {
			g.buf.Requeue(m)
			g.log.Warnf("failed to flush message to %s, stopping buffer flush: %v", m.Topic, err)
			break
		}
		g.record(m.Topic, metrics.ResultSent)
		flushed++
	}
	if flushed > 0 {
		g.log.Infof("flushed %d buffered messages, %d remaining", flushed, g.buf.Len())
	}
}

// Buffered returns the number of queued messages.
func (g *Gateway) Buffered() int { return g.buf.Len() }

func (g *Gateway) enqueue(m buffer.Message) {
	evicted, dropped := g.buf.Push(m)
	if dropped {
		g.log.Warnf("dropping old buffered message to %s", evicted.Topic)
		g.record(evicted.Topic, metrics.ResultDropped)
	}
	g.record(m.Topic, metrics.ResultBuffered)
	g.log.Debugf("buffered message to %s, buffer size: %d", m.Topic, g.buf.Len())
}

func (g *Gateway) record(topic string, result metrics.PublishResult) {
	_ = g.sink.RecordPublish(metrics.PublishEvent{Topic: topic, Result: result, Time: time.Now()})
	if br, ok := g.sink.(metrics.BufferRecorder); ok {
		_ = br.RecordBuffer(metrics.BufferEvent{Size: g.buf.Len(), Capacity: g.buf.Cap(), Time: time.Now()})
	}
}

// encodePayload turns the caller's value into bus bytes: strings and byte
// slices pass through, scalars are formatted, everything else is JSON.
func encodePayload(payload any) ([]byte, error) {
	switch v := payload.(type) {
	case nil:
		return nil, nil
	case []byte:
		return v, nil
	case string:
		return []byte(v), nil
	case bool:
		return []byte(strconv.FormatBool(v)), nil
	case int:
		return []byte(strconv.Itoa(v)), nil
	case int64:
		return []byte(strconv.FormatInt(v, 10)), nil
	case float32:
		return []byte(strconv.FormatFloat(float64(v), 'f', -1, 32)), nil
	case float64:
		return []byte(strconv.FormatFloat(v, 'f', -1, 64)), nil
	default:
		return json.Marshal(v)
	}
}
