package mail

import (
	"context"
	"fmt"

	"github.com/ignite/relaymail/internal/config"
)

// Transport delivers a single envelope to the external mail relay. The core
// treats it as an opaque synchronous send capability: one call, one message,
// success or error.
type Transport interface {
	Send(ctx context.Context, env *Envelope) error
}

// New builds the transport selected by cfg.Transport.
func New(cfg config.MailConfig) (Transport, error) {
	switch cfg.Transport {
	case "smtp":
		return NewSMTPTransport(cfg.SMTP), nil
	case "ses":
		return NewSESTransport(cfg.SES)
	case "stdout":
		return NewStdoutTransport(), nil
	default:
		return nil, fmt.Errorf("unknown mail transport %q", cfg.Transport)
	}
}
