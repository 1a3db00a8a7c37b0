package handler

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/veilleux/sesame/internal/database"
	"github.com/veilleux/sesame/internal/objstore"
	"github.com/veilleux/sesame/internal/store"
)

func newConvertHandler(t *testing.T) (*ConvertHandler, *store.ConversionStore) {
	t.Helper()

	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	conversions := store.NewConversionStore(db)
	archive := objstore.New(objstore.S3Config{})
	return NewConvertHandler(conversions, archive, slog.New(slog.DiscardHandler)), conversions
}

func TestConvertCSV(t *testing.T) {
	h, conversions := newConvertHandler(t)

	body := `{"user_id":"u-1","csv_content":"name,city\nAlice,Lyon\nBob,Oslo\n"}`
	w := postJSON(t, h.Convert, body)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}

	got := decodeBody(t, w)
	if got["user_id"] != "u-1" {
		t.Errorf("user_id = %v", got["user_id"])
	}
	records := got["records"].([]any)
	if len(records) != 2 {
		t.Fatalf("records = %d, want 2", len(records))
	}
	first := records[0].(map[string]any)
	if first["name"] != "Alice" || first["city"] != "Lyon" {
		t.Errorf("first record = %v", first)
	}

	logs, err := conversions.ListByUser(t.Context(), "u-1")
	if err != nil {
		t.Fatalf("list conversions: %v", err)
	}
	if len(logs) != 1 {
		t.Fatalf("recorded conversions = %d, want 1", len(logs))
	}
}

func TestConvertCSVGeneratesUserID(t *testing.T) {
	h, _ := newConvertHandler(t)

	w := postJSON(t, h.Convert, `{"csv_content":"a,b\n1,2\n"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	userID, _ := decodeBody(t, w)["user_id"].(string)
	if len(userID) != 36 {
		t.Errorf("generated user_id = %q, want a UUID", userID)
	}
}

func TestConvertCSVShortRow(t *testing.T) {
	h, _ := newConvertHandler(t)

	// Missing trailing fields come back as empty strings.
	w := postJSON(t, h.Convert, `{"csv_content":"a,b,c\n1,2\n"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}
	record := decodeBody(t, w)["records"].([]any)[0].(map[string]any)
	if record["c"] != "" {
		t.Errorf("missing field = %v, want empty string", record["c"])
	}
}

func TestConvertCSVEmptyPayload(t *testing.T) {
	h, _ := newConvertHandler(t)

	for _, body := range []string{``, `{}`, `{"csv_content":""}`, `not json`} {
		w := postJSON(t, h.Convert, body)
		if w.Code != http.StatusBadRequest {
			t.Errorf("body %q: status = %d, want 400", body, w.Code)
		}
	}
}

func TestConvertCSVHeaderOnly(t *testing.T) {
	h, _ := newConvertHandler(t)

	w := postJSON(t, h.Convert, `{"csv_content":"a,b\n"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if records := decodeBody(t, w)["records"].([]any); len(records) != 0 {
		t.Errorf("records = %v, want empty array", records)
	}
}

func TestConvertLogsUnconfigured(t *testing.T) {
	h, _ := newConvertHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/convert/logs", nil)
	w := httptest.NewRecorder()
	h.Logs(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
	if got := decodeBody(t, w)["error"]; got != "No logs found." {
		t.Errorf("error = %q", got)
	}
}

func TestConvertHistory(t *testing.T) {
	h, conversions := newConvertHandler(t)

	if _, err := conversions.Create(t.Context(), "u-9", 100, 42); err != nil {
		t.Fatalf("seed conversion: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/convert/history?user_id=u-9", nil)
	w := httptest.NewRecorder()
	h.History(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	got := decodeBody(t, w)["conversions"].([]any)
	if len(got) != 1 {
		t.Errorf("conversions = %d, want 1", len(got))
	}
}

func TestConvertHistoryMissingUserID(t *testing.T) {
	h, _ := newConvertHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/convert/history", nil)
	w := httptest.NewRecorder()
	h.History(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}
