package auth

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestTokenRoundTrip(t *testing.T) {
	codec := NewTokenCodec([]byte("test-secret"), false)

	token, err := codec.Mint("alice@example.com", time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("mint: %v", err)
	}

	email, err := codec.Parse(token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if email != "alice@example.com" {
		t.Errorf("email = %q, want %q", email, "alice@example.com")
	}
}

func TestTokenExpired(t *testing.T) {
	codec := NewTokenCodec([]byte("test-secret"), false)

	token, _ := codec.Mint("alice@example.com", time.Now().Add(-time.Minute))

	if _, err := codec.Parse(token); err == nil {
		t.Error("expected error for expired token")
	}

	// Logout still needs the identity out of a stale cookie.
	email, err := codec.ParseAllowExpired(token)
	if err != nil {
		t.Fatalf("parse allow expired: %v", err)
	}
	if email != "alice@example.com" {
		t.Errorf("email = %q, want %q", email, "alice@example.com")
	}
}

func TestTokenWrongKey(t *testing.T) {
	codec := NewTokenCodec([]byte("test-secret"), false)
	other := NewTokenCodec([]byte("other-secret"), false)

	token, _ := codec.Mint("alice@example.com", time.Now().Add(time.Hour))

	if _, err := other.Parse(token); err == nil {
		t.Error("expected error for wrong signing key")
	}
	if _, err := other.ParseAllowExpired(token); err == nil {
		t.Error("expected signature check even when expiry is ignored")
	}
}

func TestSetCookieAttributes(t *testing.T) {
	codec := NewTokenCodec([]byte("test-secret"), true)

	rec := httptest.NewRecorder()
	codec.SetCookie(rec, "token-value", time.Hour)

	cookies := rec.Result().Cookies()
	if len(cookies) != 1 {
		t.Fatalf("got %d cookies, want 1", len(cookies))
	}
	c := cookies[0]
	if c.Name != SessionCookieName {
		t.Errorf("name = %q, want %q", c.Name, SessionCookieName)
	}
	if !c.HttpOnly {
		t.Error("expected HttpOnly")
	}
	if !c.Secure {
		t.Error("expected Secure in production mode")
	}
	if c.SameSite != http.SameSiteStrictMode {
		t.Errorf("samesite = %v, want strict", c.SameSite)
	}
	if c.MaxAge != 3600 {
		t.Errorf("max-age = %d, want 3600", c.MaxAge)
	}
}

func TestClearCookie(t *testing.T) {
	codec := NewTokenCodec([]byte("test-secret"), false)

	rec := httptest.NewRecorder()
	codec.ClearCookie(rec)

	header := rec.Header().Get("Set-Cookie")
	if !strings.Contains(header, SessionCookieName+"=") {
		t.Errorf("Set-Cookie = %q, want session cookie cleared", header)
	}
	if !strings.Contains(header, "Max-Age=0") {
		t.Errorf("Set-Cookie = %q, want Max-Age=0", header)
	}
}
