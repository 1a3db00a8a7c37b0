package handler

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/veilleux/sesame/internal/objstore"
	"github.com/veilleux/sesame/internal/store"
)

// maxCSVBody caps uploads at 4 MiB. The endpoint is a demo converter, not a
// bulk ingest path.
const maxCSVBody = 4 << 20

// ConvertHandler turns uploaded CSV into JSON records and keeps an audit
// trail of each call, locally in sqlite and best-effort in object storage.
type ConvertHandler struct {
	conversions *store.ConversionStore
	archive     *objstore.Archive
	logger      *slog.Logger
	now         func() time.Time
}

func NewConvertHandler(conversions *store.ConversionStore, archive *objstore.Archive, logger *slog.Logger) *ConvertHandler {
	return &ConvertHandler{
		conversions: conversions,
		archive:     archive,
		logger:      logger,
		now:         time.Now,
	}
}

type convertRequest struct {
	UserID     string `json:"user_id"`
	CSVContent string `json:"csv_content"`
}

// Convert handles POST /convert/csv. The first row of csv_content is the
// header; every following row becomes one JSON object keyed by header name.
// Callers may identify themselves with user_id, otherwise one is generated
// for the call.
func (h *ConvertHandler) Convert(w http.ResponseWriter, r *http.Request) {
	var req convertRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxCSVBody)).Decode(&req); err != nil || req.CSVContent == "" {
		writeError(w, http.StatusBadRequest, "CSV payload is empty or malformed")
		return
	}

	userID := req.UserID
	if userID == "" {
		userID = uuid.NewString()
	}

	reader := csv.NewReader(strings.NewReader(req.CSVContent))
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		writeError(w, http.StatusBadRequest, "CSV payload is empty or malformed")
		return
	}

	var records []map[string]string
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			writeError(w, http.StatusBadRequest, "CSV payload is empty or malformed")
			return
		}
		record := make(map[string]string, len(header))
		for i, name := range header {
			if i < len(row) {
				record[name] = row[i]
			} else {
				record[name] = ""
			}
		}
		records = append(records, record)
	}
	if records == nil {
		records = []map[string]string{}
	}

	ts := h.now().UTC().Unix()
	outputLen := 0
	for _, rec := range records {
		for _, v := range rec {
			outputLen += len(v)
		}
	}

	if _, err := h.conversions.Create(r.Context(), userID, ts, outputLen); err != nil {
		h.logger.Error("record conversion", "user_id", userID, "error", err)
		writeError(w, http.StatusInternalServerError, "Internal error")
		return
	}

	if h.archive.Configured() {
		line := fmt.Sprintf("%s | %d | %d characters", userID, ts, outputLen)
		if err := h.archive.Append(r.Context(), line); err != nil {
			// Archive misses never fail the conversion itself.
			h.logger.Warn("append conversion archive", "user_id", userID, "error", err)
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"user_id": userID,
		"records": records,
	})
}

// Logs handles GET /convert/logs and returns the archived conversion lines.
func (h *ConvertHandler) Logs(w http.ResponseWriter, r *http.Request) {
	if !h.archive.Configured() {
		writeError(w, http.StatusNotFound, "No logs found.")
		return
	}

	lines, err := h.archive.Lines(r.Context())
	if err != nil {
		h.logger.Error("read conversion archive", "error", err)
		writeError(w, http.StatusInternalServerError, "Internal error")
		return
	}
	if len(lines) == 0 {
		writeError(w, http.StatusNotFound, "No logs found.")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"logs": lines})
}

// History handles GET /convert/history and lists a user's recorded
// conversions from the local store.
func (h *ConvertHandler) History(w http.ResponseWriter, r *http.Request) {
	userID := strings.TrimSpace(r.URL.Query().Get("user_id"))
	if userID == "" {
		writeError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	logs, err := h.conversions.ListByUser(r.Context(), userID)
	if err != nil {
		h.logger.Error("list conversions", "user_id", userID, "error", err)
		writeError(w, http.StatusInternalServerError, "Internal error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"user_id":     userID,
		"conversions": logs,
	})
}
