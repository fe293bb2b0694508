package buffer

import (
	"fmt"
	"testing"
	"time"
)

func msg(topic string) Message {
	return Message{Topic: topic, Payload: []byte("v"), EnqueuedAt: time.Now()}
}

func TestBufferFIFOOrder(t *testing.T) {
	b := New(10)
	for i := 0; i < 3; i++ {
		b.Push(msg(fmt.Sprintf("t%d", i)))
	}
	for i := 0; i < 3; i++ {
		m, ok := b.PopOldest()
		if !ok || m.Topic != fmt.Sprintf("t%d", i) {
			t.Fatalf("pop %d: got %q ok=%v", i, m.Topic, ok)
		}
	}
	if _, ok := b.PopOldest(); ok {
		t.Fatalf("expected empty buffer")
	}
}

func TestBufferEvictsOldestWhenFull(t *testing.T) {
	b := New(2)
	b.Push(msg("a"))
	b.Push(msg("b"))
	evicted, dropped := b.Push(msg("c"))
	if !dropped || evicted.Topic != "a" {
		t.Fatalf("expected eviction of a, got %q dropped=%v", evicted.Topic, dropped)
	}
	if b.Len() != 2 {
		t.Fatalf("len = %d, want 2", b.Len())
	}
	m, _ := b.PopOldest()
	if m.Topic != "b" {
		t.Fatalf("head = %q, want b", m.Topic)
	}
}

func TestBufferPushNeverFails(t *testing.T) {
	b := New(1)
	for i := 0; i < 100; i++ {
		b.Push(msg("t"))
	}
	if b.Len() != 1 {
		t.Fatalf("len = %d, want 1", b.Len())
	}
}

func TestBufferRequeueFront(t *testing.T) {
	b := New(10)
	b.Push(msg("second"))
	b.Push(msg("third"))
	first := msg("first")
	b.Requeue(first)
	var got []string
	for {
		m, ok := b.PopOldest()
		if !ok {
			break
		}
		got = append(got, m.Topic)
	}
	want := []string{"first", "second", "third"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order = %v, want %v", got, want)
		}
	}
}

func TestBufferRequeueIntoFullDropsNewest(t *testing.T) {
	b := New(2)
	b.Push(msg("a"))
	b.Push(msg("b"))
	b.Requeue(msg("head"))
	var got []string
	for {
		m, ok := b.PopOldest()
		if !ok {
			break
		}
		got = append(got, m.Topic)
	}
	if len(got) != 2 || got[0] != "head" || got[1] != "a" {
		t.Fatalf("order = %v, want [head a]", got)
	}
}

func TestBufferRequeuePreservesEnqueueTime(t *testing.T) {
	b := New(10)
	old := Message{Topic: "t", EnqueuedAt: time.Now().Add(-time.Minute)}
	b.Requeue(old)
	m, _ := b.PopOldest()
	if !m.EnqueuedAt.Equal(old.EnqueuedAt) {
		t.Fatalf("enqueue time changed: %v", m.EnqueuedAt)
	}
}

func TestBufferDefaultCapacity(t *testing.T) {
	b := New(0)
	if b.Cap() != DefaultCapacity {
		t.Fatalf("cap = %d, want %d", b.Cap(), DefaultCapacity)
	}
}
