package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/ignite/relaymail/internal/mail"
	"github.com/ignite/relaymail/internal/queue"
)

// recordingTransport captures sent envelopes and can be told to fail.
type recordingTransport struct {
	mu      sync.Mutex
	sent    []*mail.Envelope
	failOn  map[string]error
	blockCh chan struct{}
}

func newRecordingTransport() *recordingTransport {
	return &recordingTransport{failOn: map[string]error{}}
}

func (rt *recordingTransport) Send(ctx context.Context, env *mail.Envelope) error {
	if rt.blockCh != nil {
		select {
		case <-rt.blockCh:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	rt.mu.Lock()
	defer rt.mu.Unlock()
	if err, ok := rt.failOn[env.Subject]; ok {
		return err
	}
	rt.sent = append(rt.sent, env)
	return nil
}

func (rt *recordingTransport) subjects() []string {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	out := make([]string, len(rt.sent))
	for i, env := range rt.sent {
		out[i] = env.Subject
	}
	return out
}

func testEnvelope(subject string) *mail.Envelope {
	return mail.NewEnvelope("relay@example.com", "hidden@example.com",
		"sender@example.com", "", "", subject, "a body of at least ten chars")
}

func TestRunDeliversInFIFOOrder(t *testing.T) {
	q := queue.New(16)
	rt := newRecordingTransport()
	w := NewDeliveryWorker(q, rt, time.Second)

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		if err := q.Enqueue(ctx, testEnvelope(fmt.Sprintf("msg-%d", i))); err != nil {
			t.Fatalf("Enqueue() error: %v", err)
		}
	}
	q.Close()

	go w.Run(ctx)
	select {
	case <-w.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not finish draining")
	}

	got := rt.subjects()
	if len(got) != 5 {
		t.Fatalf("delivered %d envelopes, want 5", len(got))
	}
	for i, subject := range got {
		if want := fmt.Sprintf("msg-%d", i); subject != want {
			t.Errorf("delivery order[%d] = %q, want %q", i, subject, want)
		}
	}
	if w.Sent() != 5 || w.Failed() != 0 {
		t.Errorf("Sent()/Failed() = %d/%d, want 5/0", w.Sent(), w.Failed())
	}
}

func TestRunContinuesAfterSendFailure(t *testing.T) {
	q := queue.New(16)
	rt := newRecordingTransport()
	rt.failOn["msg-1"] = errors.New("relay rejected message")
	w := NewDeliveryWorker(q, rt, time.Second)

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if err := q.Enqueue(ctx, testEnvelope(fmt.Sprintf("msg-%d", i))); err != nil {
			t.Fatalf("Enqueue() error: %v", err)
		}
	}
	q.Close()

	go w.Run(ctx)
	select {
	case <-w.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not finish draining")
	}

	// The failed envelope is dropped, not retried; the rest still go out
	got := rt.subjects()
	if len(got) != 2 || got[0] != "msg-0" || got[1] != "msg-2" {
		t.Errorf("delivered = %v, want [msg-0 msg-2]", got)
	}
	if w.Sent() != 2 || w.Failed() != 1 {
		t.Errorf("Sent()/Failed() = %d/%d, want 2/1", w.Sent(), w.Failed())
	}
}

func TestRunStopsOnContextCancel(t *testing.T) {
	q := queue.New(16)
	rt := newRecordingTransport()
	w := NewDeliveryWorker(q, rt, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	go w.Run(ctx)

	cancel()
	select {
	case <-w.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop on cancellation")
	}
}

func TestSendTimeoutBoundsHangingTransport(t *testing.T) {
	q := queue.New(16)
	rt := newRecordingTransport()
	rt.blockCh = make(chan struct{}) // never closed: transport hangs
	w := NewDeliveryWorker(q, rt, 50*time.Millisecond)

	ctx := context.Background()
	if err := q.Enqueue(ctx, testEnvelope("hanging")); err != nil {
		t.Fatalf("Enqueue() error: %v", err)
	}
	q.Close()

	go w.Run(ctx)
	select {
	case <-w.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("send timeout did not fire")
	}

	if w.Failed() != 1 {
		t.Errorf("Failed() = %d, want 1", w.Failed())
	}
}
