package realtime

import (
	"context"
	"errors"
	"sync"
)

const defaultQueueSize = 256

// ErrQueueClosed is returned when publishing after Close.
var ErrQueueClosed = errors.New("realtime: event queue closed")

// Queue carries gateway events to the single aggregator loop in arrival order.
// Publishing blocks while the buffer is full rather than dropping events.
type Queue struct {
	mu     sync.RWMutex
	stream chan Event
	closed bool
}

// NewQueue builds a queue with the given buffer size; non-positive sizes use the default.
func NewQueue(size int) *Queue {
	if size <= 0 {
		size = defaultQueueSize
	}
	return &Queue{stream: make(chan Event, size)}
}

// Events exposes the receive side for Aggregator.Run.
func (q *Queue) Events() <-chan Event {
	return q.stream
}

// Publish enqueues an event, waiting for buffer space until ctx is done.
func (q *Queue) Publish(ctx context.Context, event Event) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return ErrQueueClosed
	}
	select {
	case q.stream <- event:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops further publishing and closes the stream once in-flight
// publishers have returned. It is safe to call more than once.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	close(q.stream)
}
