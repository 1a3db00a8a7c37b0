package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/veilleux/sesame/internal/auth"
)

func TestRequireSessionNoCookie(t *testing.T) {
	codec := auth.NewTokenCodec([]byte("test-secret"), false)

	handler := RequireSession(codec)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("should not reach handler")
	}))

	req := httptest.NewRequest("GET", "/session-status", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

func TestRequireSessionBadToken(t *testing.T) {
	codec := auth.NewTokenCodec([]byte("test-secret"), false)

	handler := RequireSession(codec)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("should not reach handler")
	}))

	req := httptest.NewRequest("GET", "/session-status", nil)
	req.AddCookie(&http.Cookie{Name: auth.SessionCookieName, Value: "garbage"})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

func TestRequireSessionExpiredToken(t *testing.T) {
	codec := auth.NewTokenCodec([]byte("test-secret"), false)
	token, _ := codec.Mint("alice@example.com", time.Now().Add(-time.Minute))

	handler := RequireSession(codec)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("should not reach handler")
	}))

	req := httptest.NewRequest("GET", "/session-status", nil)
	req.AddCookie(&http.Cookie{Name: auth.SessionCookieName, Value: token})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

func TestRequireSessionValidToken(t *testing.T) {
	codec := auth.NewTokenCodec([]byte("test-secret"), false)
	token, _ := codec.Mint("alice@example.com", time.Now().Add(time.Hour))

	var gotEmail string
	handler := RequireSession(codec)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotEmail = auth.EmailFrom(r.Context())
	}))

	req := httptest.NewRequest("GET", "/session-status", nil)
	req.AddCookie(&http.Cookie{Name: auth.SessionCookieName, Value: token})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if gotEmail != "alice@example.com" {
		t.Errorf("context email = %q, want %q", gotEmail, "alice@example.com")
	}
}
