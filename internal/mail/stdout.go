package mail

import (
	"context"

	"github.com/ignite/relaymail/internal/pkg/logger"
)

// StdoutTransport logs envelopes instead of sending them. Used in
// development and as a safe default when no relay is configured.
type StdoutTransport struct{}

// NewStdoutTransport creates a stdout transport.
func NewStdoutTransport() *StdoutTransport {
	return &StdoutTransport{}
}

// Send logs the envelope and reports success.
func (t *StdoutTransport) Send(_ context.Context, env *Envelope) error {
	logger.Info("stdout transport delivery",
		"message_id", env.ID.String(),
		"to", env.To,
		"reply_to", env.ReplyTo,
		"subject", env.Subject,
		"body_bytes", len(env.Body),
	)
	return nil
}
