package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/veilleux/sesame/internal/model"
)

// UserStore persists one UserSession row per email. Each mutator touches only
// its own columns, so disjoint updates merge instead of clobbering the record
// (the document-store set-with-merge semantics the handlers rely on).
type UserStore struct {
	db *sql.DB
}

func NewUserStore(db *sql.DB) *UserStore {
	return &UserStore{db: db}
}

const userSessionCols = `email, code_hash, issued_at, session_expiry, authenticated, created_at, updated_at`

func scanUserSession(scanner interface{ Scan(...any) error }) (*model.UserSession, error) {
	var u model.UserSession
	var expiry sql.NullInt64

	err := scanner.Scan(
		&u.Email, &u.CodeHash, &u.IssuedAt, &expiry, &u.Authenticated,
		&u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if expiry.Valid {
		u.SessionExpiry = &expiry.Int64
	}
	return &u, nil
}

// Get returns the record for email, or nil if none exists.
func (s *UserStore) Get(ctx context.Context, email string) (*model.UserSession, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+userSessionCols+` FROM user_sessions WHERE email = ?`, email)
	u, err := scanUserSession(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user session: %w", err)
	}
	return u, nil
}

// SetCode stores a freshly issued code hash for email, creating the record if
// absent. A previous pending code is overwritten unconditionally.
func (s *UserStore) SetCode(ctx context.Context, email, codeHash string, issuedAt int64) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO user_sessions (email, code_hash, issued_at, updated_at)
		 VALUES (?, ?, ?, unixepoch())
		 ON CONFLICT(email) DO UPDATE SET
		   code_hash = excluded.code_hash,
		   issued_at = excluded.issued_at,
		   updated_at = unixepoch()`,
		email, codeHash, issuedAt,
	)
	if err != nil {
		return fmt.Errorf("set code: %w", err)
	}
	return nil
}

// ClearCode removes the pending code so it cannot be replayed.
func (s *UserStore) ClearCode(ctx context.Context, email string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE user_sessions SET code_hash = '', updated_at = unixepoch() WHERE email = ?`,
		email,
	)
	if err != nil {
		return fmt.Errorf("clear code: %w", err)
	}
	return nil
}

// SetSessionExpiry marks the record authenticated with the given expiry instant.
// Returns sql.ErrNoRows if no record exists for email.
func (s *UserStore) SetSessionExpiry(ctx context.Context, email string, expiry int64) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE user_sessions SET session_expiry = ?, authenticated = 1, updated_at = unixepoch() WHERE email = ?`,
		expiry, email,
	)
	if err != nil {
		return fmt.Errorf("set session expiry: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("set session expiry: %w", err)
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ClearSession drops the session expiry and authenticated flag. The record
// itself persists for the next issuance. A missing record is not an error.
func (s *UserStore) ClearSession(ctx context.Context, email string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE user_sessions SET session_expiry = NULL, authenticated = 0, updated_at = unixepoch() WHERE email = ?`,
		email,
	)
	if err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}
