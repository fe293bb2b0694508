package router

import (
	"fmt"
	"strings"
	"sync"
)

// Handler consumes one inbound control message. Implementations perform a
// single external effect and must not block for unbounded time: Dispatch runs
// on the inbound-message delivery path.
type Handler interface {
	Dispatch(topic string, payload []byte)
}

type prefixEntry struct {
	prefix  string
	handler Handler
}

// Table routes inbound messages to handlers. Exact topics win over prefixes;
// prefixes are tried in registration order. The table is populated once during
// startup, registration conflicts are reported immediately rather than
// resolved at dispatch time.
type Table struct {
	mu       sync.RWMutex
	exact    map[string]Handler
	prefixes []prefixEntry
}

// NewTable returns an empty routing table.
func NewTable() *Table {
	return &Table{exact: make(map[string]Handler)}
}

// Register binds an exact topic to a handler. Registering the same topic twice
// returns ErrDuplicateTopic.
func (t *Table) Register(topic string, h Handler) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.exact[topic]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateTopic, topic)
	}
	t.exact[topic] = h
	return nil
}

// RegisterPrefix binds a topic prefix to a handler. A prefix that contains, or
// is contained by, an already registered prefix would make dispatch depend on
// registration order, so it is rejected with ErrPrefixConflict.
func (t *Table) RegisterPrefix(prefix string, h Handler) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, e := range t.prefixes {
		if strings.HasPrefix(prefix, e.prefix) || strings.HasPrefix(e.prefix, prefix) {
			return fmt.Errorf("%w: %s overlaps %s", ErrPrefixConflict, prefix, e.prefix)
		}
	}
	t.prefixes = append(t.prefixes, prefixEntry{prefix: prefix, handler: h})
	return nil
}

// Route dispatches the message to the registered handler and reports whether
// one ran. Exact matches are checked first, then prefixes in registration
// order. Unhandled messages are left to the caller's fallback.
func (t *Table) Route(topic string, payload []byte) bool {
	t.mu.RLock()
	h, ok := t.exact[topic]
	if !ok {
		for _, e := range t.prefixes {
			if strings.HasPrefix(topic, e.prefix) {
				h, ok = e.handler, true
				break
			}
		}
	}
	t.mu.RUnlock()
	if !ok {
		return false
	}
	h.Dispatch(topic, payload)
	return true
}
