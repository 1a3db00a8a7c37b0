package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/veilleux/sesame/internal/exchange"
)

// ExchangeHandler proxies chat requests to the upstream AI providers. The
// provider keys stay server-side; clients only ever see this surface.
type ExchangeHandler struct {
	client *exchange.Client
	logger *slog.Logger
}

func NewExchangeHandler(client *exchange.Client, logger *slog.Logger) *ExchangeHandler {
	return &ExchangeHandler{client: client, logger: logger}
}

type generateRequest struct {
	Message string `json:"message"`
}

type askRequest struct {
	Query string `json:"query"`
}

// Generate handles POST /exchange/gemini.
func (h *ExchangeHandler) Generate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Message == "" {
		writeError(w, http.StatusBadRequest, "No message provided")
		return
	}

	reply, err := h.client.Generate(r.Context(), req.Message)
	if err != nil {
		h.logger.Error("generate", "error", err)
		writeError(w, http.StatusBadGateway, "Provider request failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"response": reply})
}

// Ask handles POST /exchange/sonar.
func (h *ExchangeHandler) Ask(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Query == "" {
		writeError(w, http.StatusBadRequest, "No query provided")
		return
	}

	answer, err := h.client.Ask(r.Context(), req.Query)
	if err != nil {
		h.logger.Error("ask", "error", err)
		writeError(w, http.StatusBadGateway, "Provider request failed")
		return
	}

	writeJSON(w, http.StatusOK, answer)
}

// Ping handles GET /exchange/ping, a connectivity probe for clients.
func (h *ExchangeHandler) Ping(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "OK",
		"message": "Ping successful",
	})
}
