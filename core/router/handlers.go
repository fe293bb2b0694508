package router

import (
	"strings"

	"github.com/pitwall/vtms/core/logger"
	"github.com/pitwall/vtms/core/signal"
	"github.com/pitwall/vtms/core/state"
)

// DebugHandler toggles verbose telemetry reporting. Payload "true" enables it,
// any other payload disables it.
type DebugHandler struct {
	flags *state.Flags
	log   logger.Logger
}

func NewDebugHandler(flags *state.Flags, log logger.Logger) *DebugHandler {
	return &DebugHandler{flags: flags, log: log}
}

func (h *DebugHandler) Dispatch(_ string, payload []byte) {
	on := string(payload) == "true"
	h.flags.SetDebug(on)
	if on {
		h.log.Infof("debug mode enabled")
	} else {
		h.log.Infof("debug mode disabled")
	}
}

// FlagHandler reacts to race flag topics. The colour is the last topic
// segment; red and black drive the matching lamp and a warning log, other
// colours are ignored.
type FlagHandler struct {
	sig signal.Signaler
	log logger.Logger
}

func NewFlagHandler(sig signal.Signaler, log logger.Logger) *FlagHandler {
	return &FlagHandler{sig: sig, log: log}
}

func (h *FlagHandler) Dispatch(topic string, payload []byte) {
	colour := topic[strings.LastIndex(topic, "/")+1:]
	on := string(payload) == "true"
	switch colour {
	case signal.LampRed, signal.LampBlack:
		h.sig.Set(colour, on)
		if on {
			h.log.Warnf("%s flag: %s", colour, payload)
		}
	default:
		h.log.Debugf("ignoring unknown flag %q", colour)
	}
}

// PitHandler reacts to the pit and box call topics, driving the matching lamp.
// A box call is the urgent variant and is logged at warning level.
type PitHandler struct {
	pitTopic string
	boxTopic string
	sig      signal.Signaler
	log      logger.Logger
}

func NewPitHandler(pitTopic, boxTopic string, sig signal.Signaler, log logger.Logger) *PitHandler {
	return &PitHandler{pitTopic: pitTopic, boxTopic: boxTopic, sig: sig, log: log}
}

func (h *PitHandler) Dispatch(topic string, payload []byte) {
	on := string(payload) == "true"
	switch topic {
	case h.pitTopic:
		h.sig.Set(signal.LampPit, on)
		if on {
			h.log.Infof("pit soon: %s", payload)
		}
	case h.boxTopic:
		h.sig.Set(signal.LampBox, on)
		if on {
			h.log.Warnf("box box: %s", payload)
		}
	}
}

// MessageHandler logs free-text messages from the pit wall.
type MessageHandler struct {
	log logger.Logger
}

func NewMessageHandler(log logger.Logger) *MessageHandler {
	return &MessageHandler{log: log}
}

func (h *MessageHandler) Dispatch(_ string, payload []byte) {
	h.log.Infof("pit message: %s", payload)
}
