package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/veilleux/sesame/internal/auth"
)

// AuthHandler exposes the magic-link flow over HTTP. Two transport
// conventions coexist: the body-state endpoints re-send the email on every
// call, and the cookie-state endpoints recover it from the signed session
// token set on validation.
type AuthHandler struct {
	svc    *auth.Service
	codec  *auth.TokenCodec
	logger *slog.Logger
}

func NewAuthHandler(svc *auth.Service, codec *auth.TokenCodec, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{svc: svc, codec: codec, logger: logger}
}

type emailRequest struct {
	Email string `json:"email"`
}

type validateRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

// SendMagicLink handles POST /send-magic-link.
func (h *AuthHandler) SendMagicLink(w http.ResponseWriter, r *http.Request) {
	var req emailRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Email is required")
		return
	}

	if err := h.svc.IssueCode(r.Context(), req.Email); err != nil {
		if !errors.Is(err, auth.ErrInvalidInput) {
			h.logger.Error("issue code", "email", req.Email, "error", err)
		}
		writeAuthError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Magic Link sent!"})
}

// ValidateMagicLink handles POST /validate-magic-link. On success the
// response carries the new expiry and sets the signed session cookie.
func (h *AuthHandler) ValidateMagicLink(w http.ResponseWriter, r *http.Request) {
	var req validateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Email and code are required")
		return
	}
	if req.Email == "" || req.Code == "" {
		writeError(w, http.StatusBadRequest, "Email and code are required")
		return
	}

	expiry, err := h.svc.ValidateCode(r.Context(), req.Email, req.Code)
	if err != nil {
		if errors.Is(err, auth.ErrStoreUnavailable) {
			h.logger.Error("validate code", "email", req.Email, "error", err)
		}
		writeAuthError(w, err)
		return
	}

	token, err := h.codec.Mint(req.Email, time.Unix(expiry, 0))
	if err != nil {
		h.logger.Error("mint session token", "email", req.Email, "error", err)
		writeError(w, http.StatusInternalServerError, "Internal error")
		return
	}
	h.codec.SetCookie(w, token, h.svc.SessionTTL())

	writeJSON(w, http.StatusOK, map[string]any{
		"message":        "Authentication successful",
		"session_expiry": expiry,
	})
}

// CheckSession handles POST /check-session, the body-state liveness probe.
func (h *AuthHandler) CheckSession(w http.ResponseWriter, r *http.Request) {
	var req emailRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Email is required")
		return
	}

	expiry, err := h.svc.CheckSession(r.Context(), req.Email)
	if err != nil {
		if errors.Is(err, auth.ErrStoreUnavailable) {
			h.logger.Error("check session", "email", req.Email, "error", err)
		}
		writeAuthError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message":        "Session active",
		"session_expiry": expiry,
	})
}

// SessionStatus handles GET /session-status, the cookie-state probe. The
// identity comes from the session middleware.
func (h *AuthHandler) SessionStatus(w http.ResponseWriter, r *http.Request) {
	email := auth.EmailFrom(r.Context())

	if _, err := h.svc.CheckSession(r.Context(), email); err != nil {
		// An unknown record behind a valid token reads the same as expired.
		if errors.Is(err, auth.ErrExpired) || errors.Is(err, auth.ErrNotFound) {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"status": "expired"})
			return
		}
		h.logger.Error("session status", "email", email, "error", err)
		writeError(w, http.StatusInternalServerError, "Internal error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status": "active",
		"email":  email,
	})
}

// RefreshSession handles POST /refresh-session. A valid session slides its
// window and gets a re-minted cookie.
func (h *AuthHandler) RefreshSession(w http.ResponseWriter, r *http.Request) {
	email := auth.EmailFrom(r.Context())

	expiry, err := h.svc.RefreshSession(r.Context(), email)
	if err != nil {
		if errors.Is(err, auth.ErrStoreUnavailable) {
			h.logger.Error("refresh session", "email", email, "error", err)
		}
		writeAuthError(w, err)
		return
	}

	token, err := h.codec.Mint(email, time.Unix(expiry, 0))
	if err != nil {
		h.logger.Error("mint session token", "email", email, "error", err)
		writeError(w, http.StatusInternalServerError, "Internal error")
		return
	}
	h.codec.SetCookie(w, token, h.svc.SessionTTL())

	writeJSON(w, http.StatusOK, map[string]any{
		"message":        "Session refreshed",
		"session_expiry": expiry,
	})
}

// UpdateActivity handles POST /update-activity, the body-state keep-alive.
func (h *AuthHandler) UpdateActivity(w http.ResponseWriter, r *http.Request) {
	var req emailRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Email is required")
		return
	}

	expiry, err := h.svc.Touch(r.Context(), req.Email)
	if err != nil {
		if errors.Is(err, auth.ErrStoreUnavailable) {
			h.logger.Error("update activity", "email", req.Email, "error", err)
		}
		writeAuthError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message":        "Activity updated",
		"session_expiry": expiry,
	})
}

// Logout handles POST /logout. Idempotent: the cookie is cleared whether or
// not it decodes, and a missing record is not an error. An expired token is
// still good enough to find the record to clear.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(auth.SessionCookieName); err == nil && cookie.Value != "" {
		if email, err := h.codec.ParseAllowExpired(cookie.Value); err == nil {
			if err := h.svc.Logout(r.Context(), email); err != nil {
				h.logger.Error("logout", "email", email, "error", err)
			}
		}
	}

	h.codec.ClearCookie(w)
	writeJSON(w, http.StatusOK, map[string]string{"message": "Logout successful"})
}
