package auth

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/veilleux/sesame/internal/store"
)

// Mailer delivers a one-time code out of band. Delivery is best-effort from
// the service's perspective: the outcome is returned so the service can log
// it, but a failed send never fails the issuance.
type Mailer interface {
	Send(ctx context.Context, to, code string) error
}

// Event describes a lifecycle transition, published to the optional notifier
// for the dashboard's live feed.
type Event struct {
	Type          string `json:"type"`
	Email         string `json:"email"`
	SessionExpiry int64  `json:"session_expiry,omitempty"`
}

const (
	EventCodeIssued       = "code_issued"
	EventAuthenticated    = "authenticated"
	EventSessionRefreshed = "session_refreshed"
	EventSessionExpired   = "session_expired"
	EventLoggedOut        = "logged_out"
)

// Service owns the per-identity state machine:
// anonymous -> code-issued -> authenticated -> (expired|logged-out) -> anonymous.
type Service struct {
	users  *store.UserStore
	mailer Mailer
	ttl    time.Duration
	now    func() time.Time
	notify func(Event)
	logger *slog.Logger
}

type Option func(*Service)

// WithClock overrides the time source. Tests use this to walk sessions past
// their expiry without sleeping.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// WithNotifier registers a sink for lifecycle events.
func WithNotifier(fn func(Event)) Option {
	return func(s *Service) {
		s.notify = fn
	}
}

// NewService constructs the issuer/validator. sessionTTL is the sliding
// window applied on validation, refresh, and activity updates.
func NewService(users *store.UserStore, mailer Mailer, sessionTTL time.Duration, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		users:  users,
		mailer: mailer,
		ttl:    sessionTTL,
		now:    time.Now,
		notify: func(Event) {},
		logger: logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SessionTTL returns the configured sliding-window duration.
func (s *Service) SessionTTL() time.Duration {
	return s.ttl
}

// generateCode returns a 128-bit random code, hex encoded.
func generateCode() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate code: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// IssueCode creates (or reuses) the record for email, stores a fresh one-time
// code, and mails it. Reissuing overwrites any pending code unconditionally;
// there is no limit on issuance frequency. A delivery failure is logged and
// swallowed; the caller still gets issuance success.
func (s *Service) IssueCode(ctx context.Context, email string) error {
	if email == "" {
		return fmt.Errorf("%w: email is required", ErrInvalidInput)
	}

	code, err := generateCode()
	if err != nil {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash code: %w", err)
	}

	if err := s.users.SetCode(ctx, email, string(hash), s.now().UTC().Unix()); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	if err := s.mailer.Send(ctx, email, code); err != nil {
		s.logger.Error("send magic link", "email", email, "error", err)
	}

	s.notify(Event{Type: EventCodeIssued, Email: email})
	return nil
}

// ValidateCode checks the submitted code against the pending one. On match
// the code is consumed (single use) and the session becomes authenticated
// with expiry now+TTL, returned as UTC epoch seconds.
func (s *Service) ValidateCode(ctx context.Context, email, code string) (int64, error) {
	if email == "" || code == "" {
		return 0, fmt.Errorf("%w: email and code are required", ErrInvalidInput)
	}

	u, err := s.users.Get(ctx, email)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if u == nil {
		return 0, ErrNotFound
	}
	if u.CodeHash == "" {
		// Never issued, or already consumed.
		return 0, ErrInvalidCode
	}
	if bcrypt.CompareHashAndPassword([]byte(u.CodeHash), []byte(code)) != nil {
		return 0, ErrInvalidCode
	}

	expiry := s.now().UTC().Add(s.ttl).Unix()
	if err := s.users.SetSessionExpiry(ctx, email, expiry); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrNotFound
		}
		return 0, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if err := s.users.ClearCode(ctx, email); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	s.notify(Event{Type: EventAuthenticated, Email: email, SessionExpiry: expiry})
	return expiry, nil
}

// CheckSession reports whether the session is still live and returns its
// expiry. It does not extend the window, but an expired session is moved
// back toward anonymous as a side effect.
func (s *Service) CheckSession(ctx context.Context, email string) (int64, error) {
	if email == "" {
		return 0, fmt.Errorf("%w: email is required", ErrInvalidInput)
	}

	u, err := s.users.Get(ctx, email)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if u == nil {
		return 0, ErrNotFound
	}
	if u.SessionExpiry == nil || *u.SessionExpiry <= s.now().UTC().Unix() {
		if err := s.users.ClearSession(ctx, email); err != nil {
			s.logger.Error("clear expired session", "email", email, "error", err)
		}
		s.notify(Event{Type: EventSessionExpired, Email: email})
		return 0, ErrExpired
	}
	return *u.SessionExpiry, nil
}

// RefreshSession slides the expiry window to now+TTL. Only a currently valid
// session can be refreshed; an expired or absent one must re-authenticate.
func (s *Service) RefreshSession(ctx context.Context, email string) (int64, error) {
	if email == "" {
		return 0, fmt.Errorf("%w: email is required", ErrInvalidInput)
	}

	u, err := s.users.Get(ctx, email)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if u == nil || u.SessionExpiry == nil || *u.SessionExpiry <= s.now().UTC().Unix() {
		return 0, ErrExpired
	}

	expiry := s.now().UTC().Add(s.ttl).Unix()
	if err := s.users.SetSessionExpiry(ctx, email, expiry); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	s.notify(Event{Type: EventSessionRefreshed, Email: email, SessionExpiry: expiry})
	return expiry, nil
}

// Touch records user activity by setting expiry to now+TTL unconditionally,
// whatever the current session state. Fails only if the record is missing.
func (s *Service) Touch(ctx context.Context, email string) (int64, error) {
	if email == "" {
		return 0, fmt.Errorf("%w: email is required", ErrInvalidInput)
	}

	expiry := s.now().UTC().Add(s.ttl).Unix()
	if err := s.users.SetSessionExpiry(ctx, email, expiry); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrNotFound
		}
		return 0, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	s.notify(Event{Type: EventSessionRefreshed, Email: email, SessionExpiry: expiry})
	return expiry, nil
}

// Logout clears the session unconditionally. Idempotent: logging out an
// already-anonymous or unknown email succeeds.
func (s *Service) Logout(ctx context.Context, email string) error {
	if email == "" {
		return fmt.Errorf("%w: email is required", ErrInvalidInput)
	}

	if err := s.users.ClearSession(ctx, email); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	s.notify(Event{Type: EventLoggedOut, Email: email})
	return nil
}
