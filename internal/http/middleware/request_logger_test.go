package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/wolfman30/assistant-relay/pkg/logging"
)

func TestRequestLoggerLogsStatusAndRequestID(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.NewWithOptions(logging.Options{Output: &buf})

	handler := RequestLogger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	req := httptest.NewRequest(http.MethodPost, "/generate", nil)
	req.Header.Set("X-Request-ID", "req-42")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if got := rec.Header().Get("X-Request-ID"); got != "req-42" {
		t.Fatalf("expected request id echoed, got %q", got)
	}

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("expected one JSON log line, got %q: %v", buf.String(), err)
	}
	if record["request_id"] != "req-42" {
		t.Fatalf("unexpected request_id %v", record["request_id"])
	}
	if record["status"] != float64(http.StatusTeapot) {
		t.Fatalf("unexpected status %v", record["status"])
	}
	if record["path"] != "/generate" {
		t.Fatalf("unexpected path %v", record["path"])
	}
}

func TestRequestLoggerGeneratesRequestID(t *testing.T) {
	handler := RequestLogger(logging.Discard())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	got := rec.Header().Get("X-Request-ID")
	if _, err := uuid.Parse(got); err != nil {
		t.Fatalf("expected generated UUID request id, got %q: %v", got, err)
	}
}

func TestRequestLoggerPrefersChiRequestID(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.NewWithOptions(logging.Options{Output: &buf})

	var chiID string
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		chiID = chimw.GetReqID(r.Context())
	})
	handler := chimw.RequestID(RequestLogger(logger)(inner))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if chiID == "" {
		t.Fatalf("expected chi request id in context")
	}
	if got := rec.Header().Get("X-Request-ID"); got != chiID {
		t.Fatalf("expected chi request id %q echoed, got %q", chiID, got)
	}
	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("expected one JSON log line, got %q: %v", buf.String(), err)
	}
	if record["request_id"] != chiID {
		t.Fatalf("unexpected request_id %v", record["request_id"])
	}
}
