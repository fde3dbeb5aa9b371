package account

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// Store provides database operations for relay accounts
type Store struct {
	db *sql.DB
}

// NewStore creates a new account store
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// EnsureSchema creates the accounts table if it does not exist yet.
func (s *Store) EnsureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS accounts (
			token       VARCHAR(64) PRIMARY KEY,
			email       VARCHAR(250) NOT NULL UNIQUE,
			counter     BIGINT NOT NULL DEFAULT 0,
			last_action TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`)
	if err != nil {
		return fmt.Errorf("ensure accounts schema: %w", err)
	}
	return nil
}

// GetOrCreate returns the account for email, creating it with a fresh token
// when none exists. Creation is idempotent per email: a second call returns
// the original account unchanged.
func (s *Store) GetOrCreate(ctx context.Context, email string) (*Account, error) {
	email = normalizeEmail(email)

	acct, err := s.getByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if acct != nil {
		return acct, nil
	}

	acct = &Account{
		Token: NewToken(),
		Email: email,
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO accounts (token, email) VALUES ($1, $2)`,
		acct.Token, acct.Email)
	if err != nil {
		// A concurrent request may have created the account between our
		// lookup and insert; the unique constraint on email catches that.
		// Retry the lookup once before giving up.
		if existing, lookupErr := s.getByEmail(ctx, email); lookupErr == nil && existing != nil {
			return existing, nil
		}
		return nil, fmt.Errorf("insert account: %w", err)
	}
	return acct, nil
}

// FindByToken resolves a token to its account, or ErrNotFound.
func (s *Store) FindByToken(ctx context.Context, token string) (*Account, error) {
	acct := &Account{}
	err := s.db.QueryRowContext(ctx,
		`SELECT token, email, counter, last_action FROM accounts WHERE token = $1`,
		token).Scan(&acct.Token, &acct.Email, &acct.Counter, &acct.LastAction)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find account by token: %w", err)
	}
	return acct, nil
}

// RecordSubmission bumps the usage counter and touches last_action for the
// account behind token. The increment is a single UPDATE so concurrent
// submissions to the same token never lose a count. Returns ErrNotFound when
// the token matches no account.
func (s *Store) RecordSubmission(ctx context.Context, token string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE accounts SET counter = counter + 1, last_action = NOW() WHERE token = $1`,
		token)
	if err != nil {
		return fmt.Errorf("record submission: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("record submission rows: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteByEmail removes the account for email. Succeeds only when exactly
// one row was deleted; otherwise ErrNotFound. Envelopes already queued for
// the account are unaffected.
func (s *Store) DeleteByEmail(ctx context.Context, email string) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM accounts WHERE email = $1`, normalizeEmail(email))
	if err != nil {
		return fmt.Errorf("delete account: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete account rows: %w", err)
	}
	if n != 1 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) getByEmail(ctx context.Context, email string) (*Account, error) {
	acct := &Account{}
	err := s.db.QueryRowContext(ctx,
		`SELECT token, email, counter, last_action FROM accounts WHERE email = $1`,
		email).Scan(&acct.Token, &acct.Email, &acct.Counter, &acct.LastAction)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find account by email: %w", err)
	}
	return acct, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
