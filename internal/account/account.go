package account

import (
	"errors"
	"time"

	"github.com/oklog/ulid/v2"
)

// ErrNotFound is returned when no account matches the given token or email.
var ErrNotFound = errors.New("account not found")

// Account binds an opaque token to a protected email address. The token is
// both the primary key and the caller's credential: anyone who knows it may
// relay messages to the email behind it, and nothing else about the account
// is ever disclosed.
type Account struct {
	Token      string    `json:"token"`
	Email      string    `json:"email"`
	Counter    int64     `json:"counter"`
	LastAction time.Time `json:"-"`
}

// TokenLength is the length of issued tokens.
const TokenLength = 26 // ulid.EncodedSize

// NewToken mints a fresh high-entropy account token. Collisions are not
// checked here; the primary-key constraint on the accounts table is the
// uniqueness backstop.
func NewToken() string {
	return ulid.Make().String()
}
