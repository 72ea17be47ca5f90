package feed

import "sync"

// Latest is a single-slot mailbox. Put replaces whatever has not been taken
// yet, so a slow reader only ever sees the newest value. With a merge
// function the undelivered value is folded into the new one instead.
type Latest[T any] struct {
	mu    sync.Mutex
	value T
	full  bool
	merge func(older, newer T) T
	ready chan struct{}
}

func NewLatest[T any]() *Latest[T] {
	return &Latest[T]{ready: make(chan struct{}, 1)}
}

// NewMergingLatest returns a Latest that combines an untaken value with the
// next one through merge.
func NewMergingLatest[T any](merge func(older, newer T) T) *Latest[T] {
	l := NewLatest[T]()
	l.merge = merge
	return l
}

func (l *Latest[T]) Put(v T) {
	l.mu.Lock()
	if l.full && l.merge != nil {
		v = l.merge(l.value, v)
	}
	l.value = v
	l.full = true
	l.mu.Unlock()

	select {
	case l.ready <- struct{}{}:
	default:
	}
}

// Ready signals that a value may be waiting.
func (l *Latest[T]) Ready() <-chan struct{} { return l.ready }

// Take empties the slot.
func (l *Latest[T]) Take() (T, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	v, ok := l.value, l.full
	var zero T
	l.value, l.full = zero, false
	return v, ok
}
