package obd

import (
	"context"
	"time"

	"github.com/pitwall/vtms/core/bus"
	"github.com/pitwall/vtms/core/logger"
)

const queryTimeout = 5 * time.Second

// ControlHandler executes remote device-control commands: watch, unwatch and
// one-shot query. It is wired as the router fallback, so it also swallows the
// gateway's own telemetry echoed back by the wildcard subscription.
type ControlHandler struct {
	mgr    *Manager
	rep    *Reporter
	topics bus.Topics
	log    logger.Logger
}

// NewControlHandler creates a ControlHandler bound to the manager's session.
func NewControlHandler(mgr *Manager, rep *Reporter, topics bus.Topics, log logger.Logger) *ControlHandler {
	return &ControlHandler{mgr: mgr, rep: rep, topics: topics, log: log}
}

// Dispatch handles one inbound message. Unknown commands and unrelated topics
// are dropped with a debug log, a malformed request must never disturb the
// telemetry loops.
func (h *ControlHandler) Dispatch(topic string, payload []byte) {
	cmd := string(payload)
	switch topic {
	case h.topics.OBDWatch():
		if !Known(cmd) {
			h.log.Debugf("ignoring watch for unknown command %q", cmd)
			return
		}
		if err := h.mgr.Watch(cmd, h.rep.CallbackFor(cmd)); err != nil {
			h.log.Warnf("watch %s: %v", cmd, err)
		}
	case h.topics.OBDUnwatch():
		if !Known(cmd) {
			h.log.Debugf("ignoring unwatch for unknown command %q", cmd)
			return
		}
		if err := h.mgr.Unwatch(cmd); err != nil {
			h.log.Warnf("unwatch %s: %v", cmd, err)
		}
	case h.topics.OBDQuery():
		if !Known(cmd) {
			h.log.Debugf("ignoring query for unknown command %q", cmd)
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
		defer cancel()
		rd, err := h.mgr.Query(ctx, cmd)
		if err != nil {
			h.log.Warnf("query %s: %v", cmd, err)
			return
		}
		h.rep.Dispatch(cmd, rd)
	default:
		h.log.Debugf("no handler for topic %s", topic)
	}
}
