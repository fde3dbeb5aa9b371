package mail

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/relaymail/internal/config"
)

func TestNewTransport(t *testing.T) {
	tr, err := New(config.MailConfig{Transport: "stdout"})
	require.NoError(t, err)
	assert.IsType(t, &StdoutTransport{}, tr)

	tr, err = New(config.MailConfig{
		Transport: "smtp",
		SMTP:      config.SMTPConfig{Host: "smtp.example.com", Port: 587},
	})
	require.NoError(t, err)
	assert.IsType(t, &SMTPTransport{}, tr)

	_, err = New(config.MailConfig{Transport: "carrier-pigeon"})
	assert.Error(t, err)
}

func TestStdoutTransportSend(t *testing.T) {
	tr := NewStdoutTransport()
	env := NewEnvelope("relay@example.com", "hidden@example.com", "sender@example.com",
		"", "", "", "a body of at least ten chars")
	assert.NoError(t, tr.Send(context.Background(), env))
}
