package mail

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"strconv"

	"github.com/ignite/relaymail/internal/config"
)

// SMTPTransport delivers envelopes through an authenticated SMTP relay,
// upgrading the connection with STARTTLS when the server offers it.
type SMTPTransport struct {
	host     string
	port     int
	username string
	password string
}

// NewSMTPTransport creates an SMTP transport from config.
func NewSMTPTransport(cfg config.SMTPConfig) *SMTPTransport {
	return &SMTPTransport{
		host:     cfg.Host,
		port:     cfg.Port,
		username: cfg.Username,
		password: cfg.Password,
	}
}

// Send delivers one envelope. The context deadline bounds the whole SMTP
// conversation, including the dial.
func (t *SMTPTransport) Send(ctx context.Context, env *Envelope) error {
	addr := net.JoinHostPort(t.host, strconv.Itoa(t.port))

	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("smtp dial %s: %w", addr, err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		conn.SetDeadline(deadline)
	}

	client, err := smtp.NewClient(conn, t.host)
	if err != nil {
		conn.Close()
		return fmt.Errorf("smtp handshake: %w", err)
	}
	defer client.Close()

	if ok, _ := client.Extension("STARTTLS"); ok {
		if err := client.StartTLS(&tls.Config{ServerName: t.host}); err != nil {
			return fmt.Errorf("smtp starttls: %w", err)
		}
	}

	if t.username != "" {
		auth := smtp.PlainAuth("", t.username, t.password, t.host)
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("smtp auth: %w", err)
		}
	}

	if err := client.Mail(env.From); err != nil {
		return fmt.Errorf("smtp mail from: %w", err)
	}
	if err := client.Rcpt(env.To); err != nil {
		return fmt.Errorf("smtp rcpt to: %w", err)
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("smtp data: %w", err)
	}
	if _, err := w.Write(env.Message()); err != nil {
		w.Close()
		return fmt.Errorf("smtp write body: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("smtp close body: %w", err)
	}

	return client.Quit()
}
