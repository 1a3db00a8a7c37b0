package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/veilleux/sesame/internal/auth"
)

// RequireSession verifies the signed session cookie and puts the identity on
// the request context. Requests without a valid, unexpired token get a JSON
// 401 and must re-authenticate through the magic-link flow.
func RequireSession(codec *auth.TokenCodec) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(auth.SessionCookieName)
			if err != nil || cookie.Value == "" {
				unauthorized(w, "expired")
				return
			}

			email, err := codec.Parse(cookie.Value)
			if err != nil {
				unauthorized(w, "invalid")
				return
			}

			ctx := auth.WithEmail(r.Context(), email)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func unauthorized(w http.ResponseWriter, status string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]string{"status": status})
}
