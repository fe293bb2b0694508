package buffer

import (
	"sync"
	"time"
)

// DefaultCapacity bounds the buffer when no capacity is configured.
const DefaultCapacity = 1000

// Message is one publish captured while the bus was unreachable. It is
// immutable once enqueued; EnqueuedAt drives expiry during flush.
type Message struct {
	Topic      string
	Payload    []byte
	QoS        byte
	Retain     bool
	EnqueuedAt time.Time
}

// Buffer is a capacity-bounded FIFO of unsent messages. When full, Push evicts
// the oldest entry so the newest data always wins. All methods are safe for
// concurrent use; compound operations hold the mutex for their full duration.
type Buffer struct {
	mu       sync.Mutex
	items    []Message
	capacity int
}

// New returns a Buffer holding at most capacity messages. A capacity of zero
// or less falls back to DefaultCapacity.
func New(capacity int) *Buffer {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Buffer{capacity: capacity}
}

// Push appends m. If the buffer is full the oldest entry is evicted and
// returned with dropped=true so the caller can log and count the loss.
// Push itself never fails.
func (b *Buffer) Push(m Message) (evicted Message, dropped bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.items) >= b.capacity {
		evicted = b.items[0]
		copy(b.items, b.items[1:])
		b.items = b.items[:len(b.items)-1]
		dropped = true
	}
	b.items = append(b.items, m)
	return evicted, dropped
}

// PopOldest removes and returns the head of the queue. ok is false when the
// buffer is empty.
func (b *Buffer) PopOldest() (m Message, ok bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.items) == 0 {
		return Message{}, false
	}
	m = b.items[0]
	copy(b.items, b.items[1:])
	b.items = b.items[:len(b.items)-1]
	return m, true
}

// Requeue returns m to the front of the queue, preserving its original
// EnqueuedAt. Used when a flush attempt fails mid-way. If the buffer filled up
// in the meantime the newest entry is evicted to make room.
func (b *Buffer) Requeue(m Message) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.items) >= b.capacity {
		b.items = b.items[:len(b.items)-1]
	}
	b.items = append(b.items, Message{})
	copy(b.items[1:], b.items)
	b.items[0] = m
}

// Len returns the number of buffered messages.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.items)
}

// Cap returns the configured capacity.
func (b *Buffer) Cap() int { return b.capacity }
