package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/veilleux/sesame/internal/auth"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// writeAuthError maps the service's sentinel errors onto the HTTP contract.
// Infrastructure failures become a generic 500; the detail stays in the logs.
func writeAuthError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, auth.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, "Email is required")
	case errors.Is(err, auth.ErrNotFound):
		writeError(w, http.StatusNotFound, "Email not found")
	case errors.Is(err, auth.ErrInvalidCode):
		writeError(w, http.StatusUnauthorized, "Invalid code")
	case errors.Is(err, auth.ErrExpired):
		writeError(w, http.StatusUnauthorized, "Session expired")
	default:
		writeError(w, http.StatusInternalServerError, "Internal error")
	}
}
