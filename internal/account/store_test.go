package account

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func setupTestDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	return db, mock, func() { db.Close() }
}

func accountRows(token, email string, counter int64) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"token", "email", "counter", "last_action"}).
		AddRow(token, email, counter, time.Now())
}

func TestNewToken(t *testing.T) {
	a := NewToken()
	b := NewToken()
	if len(a) != TokenLength {
		t.Errorf("token length = %d, want %d", len(a), TokenLength)
	}
	if a == b {
		t.Error("two freshly minted tokens should not collide")
	}
}

func TestGetOrCreate_New(t *testing.T) {
	db, mock, cleanup := setupTestDB(t)
	defer cleanup()

	mock.ExpectQuery("SELECT token, email, counter, last_action FROM accounts WHERE email").
		WithArgs("a@example.com").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectExec("INSERT INTO accounts").
		WithArgs(sqlmock.AnyArg(), "a@example.com").
		WillReturnResult(sqlmock.NewResult(0, 1))

	store := NewStore(db)
	acct, err := store.GetOrCreate(context.Background(), "a@example.com")
	if err != nil {
		t.Fatalf("GetOrCreate() error: %v", err)
	}
	if acct.Email != "a@example.com" {
		t.Errorf("email = %q, want a@example.com", acct.Email)
	}
	if len(acct.Token) != TokenLength {
		t.Errorf("token length = %d, want %d", len(acct.Token), TokenLength)
	}
	if acct.Counter != 0 {
		t.Errorf("counter = %d, want 0", acct.Counter)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestGetOrCreate_Existing(t *testing.T) {
	db, mock, cleanup := setupTestDB(t)
	defer cleanup()

	mock.ExpectQuery("SELECT token, email, counter, last_action FROM accounts WHERE email").
		WithArgs("a@example.com").
		WillReturnRows(accountRows("01HTESTTOKEN00000000000000", "a@example.com", 7))

	store := NewStore(db)
	acct, err := store.GetOrCreate(context.Background(), "a@example.com")
	if err != nil {
		t.Fatalf("GetOrCreate() error: %v", err)
	}
	// Existing account returned unchanged, no insert issued
	if acct.Token != "01HTESTTOKEN00000000000000" {
		t.Errorf("token = %q, want existing token", acct.Token)
	}
	if acct.Counter != 7 {
		t.Errorf("counter = %d, want 7", acct.Counter)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestGetOrCreate_NormalizesEmail(t *testing.T) {
	db, mock, cleanup := setupTestDB(t)
	defer cleanup()

	mock.ExpectQuery("SELECT token, email, counter, last_action FROM accounts WHERE email").
		WithArgs("a@example.com").
		WillReturnRows(accountRows("01HTESTTOKEN00000000000000", "a@example.com", 0))

	store := NewStore(db)
	if _, err := store.GetOrCreate(context.Background(), "  A@Example.COM "); err != nil {
		t.Fatalf("GetOrCreate() error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestGetOrCreate_InsertRace(t *testing.T) {
	db, mock, cleanup := setupTestDB(t)
	defer cleanup()

	mock.ExpectQuery("SELECT token, email, counter, last_action FROM accounts WHERE email").
		WithArgs("a@example.com").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectExec("INSERT INTO accounts").
		WillReturnError(errors.New(`pq: duplicate key value violates unique constraint "accounts_email_key"`))
	// Losing the race falls back to the winner's row
	mock.ExpectQuery("SELECT token, email, counter, last_action FROM accounts WHERE email").
		WithArgs("a@example.com").
		WillReturnRows(accountRows("01HWINNER00000000000000000", "a@example.com", 0))

	store := NewStore(db)
	acct, err := store.GetOrCreate(context.Background(), "a@example.com")
	if err != nil {
		t.Fatalf("GetOrCreate() error: %v", err)
	}
	if acct.Token != "01HWINNER00000000000000000" {
		t.Errorf("token = %q, want winner's token", acct.Token)
	}
}

func TestFindByToken(t *testing.T) {
	db, mock, cleanup := setupTestDB(t)
	defer cleanup()

	mock.ExpectQuery("SELECT token, email, counter, last_action FROM accounts WHERE token").
		WithArgs("01HTESTTOKEN00000000000000").
		WillReturnRows(accountRows("01HTESTTOKEN00000000000000", "a@example.com", 3))

	store := NewStore(db)
	acct, err := store.FindByToken(context.Background(), "01HTESTTOKEN00000000000000")
	if err != nil {
		t.Fatalf("FindByToken() error: %v", err)
	}
	if acct.Email != "a@example.com" {
		t.Errorf("email = %q, want a@example.com", acct.Email)
	}
}

func TestFindByToken_NotFound(t *testing.T) {
	db, mock, cleanup := setupTestDB(t)
	defer cleanup()

	mock.ExpectQuery("SELECT token, email, counter, last_action FROM accounts WHERE token").
		WithArgs("bogus").
		WillReturnError(sql.ErrNoRows)

	store := NewStore(db)
	_, err := store.FindByToken(context.Background(), "bogus")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("FindByToken() error = %v, want ErrNotFound", err)
	}
}

func TestRecordSubmission(t *testing.T) {
	db, mock, cleanup := setupTestDB(t)
	defer cleanup()

	mock.ExpectExec("UPDATE accounts SET counter = counter \\+ 1").
		WithArgs("01HTESTTOKEN00000000000000").
		WillReturnResult(sqlmock.NewResult(0, 1))

	store := NewStore(db)
	if err := store.RecordSubmission(context.Background(), "01HTESTTOKEN00000000000000"); err != nil {
		t.Fatalf("RecordSubmission() error: %v", err)
	}
}

func TestRecordSubmission_NotFound(t *testing.T) {
	db, mock, cleanup := setupTestDB(t)
	defer cleanup()

	mock.ExpectExec("UPDATE accounts SET counter = counter \\+ 1").
		WithArgs("bogus").
		WillReturnResult(sqlmock.NewResult(0, 0))

	store := NewStore(db)
	err := store.RecordSubmission(context.Background(), "bogus")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("RecordSubmission() error = %v, want ErrNotFound", err)
	}
}

func TestDeleteByEmail(t *testing.T) {
	db, mock, cleanup := setupTestDB(t)
	defer cleanup()

	mock.ExpectExec("DELETE FROM accounts WHERE email").
		WithArgs("a@example.com").
		WillReturnResult(sqlmock.NewResult(0, 1))

	store := NewStore(db)
	if err := store.DeleteByEmail(context.Background(), "a@example.com"); err != nil {
		t.Fatalf("DeleteByEmail() error: %v", err)
	}
}

func TestDeleteByEmail_NotFound(t *testing.T) {
	db, mock, cleanup := setupTestDB(t)
	defer cleanup()

	mock.ExpectExec("DELETE FROM accounts WHERE email").
		WithArgs("missing@example.com").
		WillReturnResult(sqlmock.NewResult(0, 0))

	store := NewStore(db)
	err := store.DeleteByEmail(context.Background(), "missing@example.com")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("DeleteByEmail() error = %v, want ErrNotFound", err)
	}
}
