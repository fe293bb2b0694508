package gateway

import (
	"sync"
	"time"
)

// ConnectionState tracks bus connectivity as seen by the event dispatcher and
// the reconnect attempts counted by the monitor. It is the single shared
// record between the two; every mutation happens under one mutex.
type ConnectionState struct {
	mu          sync.Mutex
	connected   bool
	retries     int
	lastSuccess time.Time
}

// NewConnectionState returns a disconnected state.
func NewConnectionState() *ConnectionState { return &ConnectionState{} }

// SetConnected records a connectivity change. A transition to connected also
// stamps the last success time.
func (s *ConnectionState) SetConnected(on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connected = on
	if on {
		s.lastSuccess = time.Now()
	}
}

// Connected reports the last connectivity notification from the transport.
func (s *ConnectionState) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}

// IncrementRetries bumps the reconnect attempt counter and returns the new
// value.
func (s *ConnectionState) IncrementRetries() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.retries++
	return s.retries
}

// ResetRetries clears the reconnect attempt counter after a healthy check or a
// successful connect.
func (s *ConnectionState) ResetRetries() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.retries = 0
}

// Retries returns the current reconnect attempt counter.
func (s *ConnectionState) Retries() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.retries
}

// Snapshot is a point-in-time copy of the connection state.
type Snapshot struct {
	Connected   bool
	Retries     int
	LastSuccess time.Time
}

// Snapshot returns a consistent copy of the state.
func (s *ConnectionState) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{Connected: s.connected, Retries: s.retries, LastSuccess: s.lastSuccess}
}
