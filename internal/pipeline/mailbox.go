package pipeline

import (
	"context"
	"sync"
	"sync/atomic"
)

// Mailbox holds at most one pending value. A newer Put replaces an
// unconsumed value and counts it as dropped.
type Mailbox[T any] struct {
	mu      sync.Mutex
	value   T
	full    bool
	closed  bool
	notify  chan struct{}
	busy    atomic.Bool
	dropped atomic.Uint64
}

func NewMailbox[T any]() *Mailbox[T] {
	return &Mailbox[T]{notify: make(chan struct{}, 1)}
}

// Put stores v, overwriting any pending value. It never blocks.
// It returns false once the mailbox is closed.
func (m *Mailbox[T]) Put(v T) bool {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return false
	}
	if m.full {
		m.dropped.Add(1)
	}
	m.value = v
	m.full = true
	m.mu.Unlock()

	select {
	case m.notify <- struct{}{}:
	default:
	}
	return true
}

// Take waits for a value. ok is false when ctx is done or the mailbox is closed.
func (m *Mailbox[T]) Take(ctx context.Context) (v T, ok bool) {
	for {
		m.mu.Lock()
		if m.full {
			v = m.value
			var zero T
			m.value = zero
			m.full = false
			m.mu.Unlock()
			return v, true
		}
		closed := m.closed
		m.mu.Unlock()

		if closed {
			return v, false
		}

		select {
		case <-m.notify:
		case <-ctx.Done():
			return v, false
		}
	}
}

// Close wakes any waiting Take. Pending values are discarded.
func (m *Mailbox[T]) Close() {
	m.mu.Lock()
	if !m.closed {
		m.closed = true
		if m.full {
			m.dropped.Add(1)
		}
		var zero T
		m.value = zero
		m.full = false
	}
	m.mu.Unlock()

	select {
	case m.notify <- struct{}{}:
	default:
	}
}

// SetBusy marks whether the consumer is mid-pass.
func (m *Mailbox[T]) SetBusy(busy bool) {
	m.busy.Store(busy)
}

func (m *Mailbox[T]) Busy() bool {
	return m.busy.Load()
}

// Dropped is the number of values overwritten before they were taken.
func (m *Mailbox[T]) Dropped() uint64 {
	return m.dropped.Load()
}
