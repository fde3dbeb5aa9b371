package mail

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Envelope is a fully-constructed outbound email, held in memory only while
// it travels from admission to the delivery worker. To is the account's
// protected address; the message sender only ever sees the token.
type Envelope struct {
	ID          uuid.UUID
	From        string
	ReplyTo     string
	ReplyToName string
	To          string
	Subject     string
	Body        string
}

// DefaultSubject is used when the sender supplies no subject.
const DefaultSubject = "No subject"

// NewEnvelope builds an outbound envelope. from is the relay's fixed sending
// identity, to the protected destination, replyTo the message sender's own
// address. The reply-to display name joins first and last name when both are
// present and falls back to whichever one is.
func NewEnvelope(from, to, replyTo, firstName, lastName, subject, body string) *Envelope {
	if subject == "" {
		subject = DefaultSubject
	}
	return &Envelope{
		ID:          uuid.New(),
		From:        from,
		ReplyTo:     replyTo,
		ReplyToName: DisplayName(firstName, lastName),
		To:          to,
		Subject:     subject,
		Body:        body,
	}
}

// DisplayName concatenates the optional name parts for the Reply-To header.
// Empty when neither part is present.
func DisplayName(firstName, lastName string) string {
	switch {
	case firstName != "" && lastName != "":
		return firstName + " " + lastName
	case firstName != "":
		return firstName
	default:
		return lastName
	}
}

// ReplyToAddress renders the Reply-To header value, with the display name
// when one was supplied.
func (e *Envelope) ReplyToAddress() string {
	if e.ReplyToName != "" {
		return fmt.Sprintf("%s <%s>", e.ReplyToName, e.ReplyTo)
	}
	return fmt.Sprintf("<%s>", e.ReplyTo)
}

// Message renders the envelope as a plain-text RFC 5322 message.
func (e *Envelope) Message() []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: <%s>\r\n", e.From)
	fmt.Fprintf(&b, "To: <%s>\r\n", e.To)
	fmt.Fprintf(&b, "Reply-To: %s\r\n", e.ReplyToAddress())
	fmt.Fprintf(&b, "Subject: %s\r\n", e.Subject)
	fmt.Fprintf(&b, "Message-ID: <%s@relaymail>\r\n", e.ID)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(e.Body)
	return []byte(b.String())
}
