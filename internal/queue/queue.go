package queue

import (
	"context"
	"errors"
	"sync"

	"github.com/ignite/relaymail/internal/mail"
)

// ErrClosed is returned by Enqueue and Dequeue once the queue has been shut
// down (and, for Dequeue, drained).
var ErrClosed = errors.New("dispatch queue closed")

// DefaultCapacity bounds pending envelopes when no capacity is configured.
const DefaultCapacity = 1024

// Queue is the bounded FIFO dispatch queue between message admission and the
// delivery worker. Any number of admission requests may enqueue concurrently;
// exactly one worker dequeues. A full queue blocks producers (backpressure)
// instead of dropping envelopes.
type Queue struct {
	ch        chan *mail.Envelope
	done      chan struct{}
	closeOnce sync.Once
}

// New creates a queue with the given capacity, or DefaultCapacity if
// capacity <= 0.
func New(capacity int) *Queue {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Queue{
		ch:   make(chan *mail.Envelope, capacity),
		done: make(chan struct{}),
	}
}

// Enqueue hands an envelope to the queue, blocking while the queue is at
// capacity. The two-outcome contract: nil means accepted for delivery,
// ErrClosed means the queue is shut down and the envelope was not accepted.
// A context cancellation surfaces as the context's error.
func (q *Queue) Enqueue(ctx context.Context, env *mail.Envelope) error {
	select {
	case <-q.done:
		return ErrClosed
	default:
	}

	select {
	case q.ch <- env:
		return nil
	case <-q.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Dequeue removes the oldest pending envelope, blocking while the queue is
// empty. After Close, buffered envelopes are still handed out in order;
// once drained, Dequeue returns ErrClosed.
func (q *Queue) Dequeue(ctx context.Context) (*mail.Envelope, error) {
	// Buffered envelopes take priority so a closed queue drains fully.
	select {
	case env := <-q.ch:
		return env, nil
	default:
	}

	select {
	case env := <-q.ch:
		return env, nil
	case <-q.done:
		select {
		case env := <-q.ch:
			return env, nil
		default:
			return nil, ErrClosed
		}
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close shuts the queue down. Idempotent. Producers are rejected from this
// point on; the consumer drains what is buffered and then sees ErrClosed.
func (q *Queue) Close() {
	q.closeOnce.Do(func() { close(q.done) })
}

// Len reports the number of pending envelopes.
func (q *Queue) Len() int { return len(q.ch) }

// Cap reports the queue's fixed capacity.
func (q *Queue) Cap() int { return cap(q.ch) }
