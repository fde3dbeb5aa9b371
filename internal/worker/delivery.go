package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/ignite/relaymail/internal/mail"
	"github.com/ignite/relaymail/internal/pkg/logger"
	"github.com/ignite/relaymail/internal/queue"
)

// DeliveryWorker drains the dispatch queue and pushes envelopes to the mail
// transport, one at a time. It is the queue's single consumer: deliveries
// reach the transport in enqueue order. A failed send is logged and dropped;
// the requester already got its accept response, so there is nobody left to
// report the failure to.
type DeliveryWorker struct {
	queue       *queue.Queue
	transport   mail.Transport
	sendTimeout time.Duration

	sent   int64
	failed int64

	done chan struct{}
}

// NewDeliveryWorker creates a delivery worker. sendTimeout bounds each
// transport call so a hanging relay cannot stall the queue forever.
func NewDeliveryWorker(q *queue.Queue, transport mail.Transport, sendTimeout time.Duration) *DeliveryWorker {
	if sendTimeout <= 0 {
		sendTimeout = 30 * time.Second
	}
	return &DeliveryWorker{
		queue:       q,
		transport:   transport,
		sendTimeout: sendTimeout,
		done:        make(chan struct{}),
	}
}

// Run processes envelopes until the queue is closed and drained, or ctx is
// cancelled. Start it exactly once, in its own goroutine.
func (w *DeliveryWorker) Run(ctx context.Context) {
	defer close(w.done)
	logger.Info("delivery worker started")

	for {
		env, err := w.queue.Dequeue(ctx)
		if err != nil {
			if errors.Is(err, queue.ErrClosed) {
				logger.Info("delivery worker stopping: queue closed and drained",
					"sent", atomic.LoadInt64(&w.sent),
					"failed", atomic.LoadInt64(&w.failed))
			} else {
				logger.Info("delivery worker stopping", "reason", err.Error())
			}
			return
		}

		w.deliver(ctx, env)
	}
}

func (w *DeliveryWorker) deliver(ctx context.Context, env *mail.Envelope) {
	sendCtx, cancel := context.WithTimeout(ctx, w.sendTimeout)
	defer cancel()

	if err := w.transport.Send(sendCtx, env); err != nil {
		atomic.AddInt64(&w.failed, 1)
		logger.Error("delivery failed, dropping envelope",
			"message_id", env.ID.String(),
			"to", env.To,
			"error", err.Error())
		return
	}

	atomic.AddInt64(&w.sent, 1)
	logger.Info("message delivered",
		"message_id", env.ID.String(),
		"to", env.To)
}

// Done is closed when Run has returned; used for graceful-shutdown waits.
func (w *DeliveryWorker) Done() <-chan struct{} { return w.done }

// Sent reports the number of successfully delivered envelopes.
func (w *DeliveryWorker) Sent() int64 { return atomic.LoadInt64(&w.sent) }

// Failed reports the number of envelopes dropped after a transport failure.
func (w *DeliveryWorker) Failed() int64 { return atomic.LoadInt64(&w.failed) }
