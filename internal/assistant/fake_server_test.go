package assistant

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	openai "github.com/sashabaranov/go-openai"
)

// fakeAssistants emulates the slice of the Assistants v2 API the relay uses.
type fakeAssistants struct {
	t *testing.T

	mu           sync.Mutex
	calls        []string
	headers      []http.Header
	messageBody  map[string]any
	runBody      map[string]any
	listQuery    string
	statuses     []openai.RunStatus
	statusPolls  int
	listMessages []openai.Message

	failThread  int
	failMessage int
	failRun     int
	failList    int
	// failStatus answers the first N status polls with a 500 API error.
	failStatus int
}

func newFakeAssistants(t *testing.T) *fakeAssistants {
	return &fakeAssistants{t: t}
}

func (f *fakeAssistants) start() (*httptest.Server, *openai.Client) {
	server := httptest.NewServer(http.HandlerFunc(f.serve))
	f.t.Cleanup(server.Close)
	client := NewOpenAIClient(ClientConfig{APIKey: "sk-test", BaseURL: server.URL + "/v1"})
	return server, client
}

func (f *fakeAssistants) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeAssistants) serve(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls = append(f.calls, r.Method+" "+r.URL.Path)
	f.headers = append(f.headers, r.Header.Clone())

	path := strings.TrimPrefix(r.URL.Path, "/v1")
	switch {
	case r.Method == http.MethodPost && path == "/threads":
		if f.failThread != 0 {
			writeAPIError(w, f.failThread, "thread quota exceeded")
			return
		}
		writeBody(w, openai.Thread{ID: "thread_1", Object: "thread"})
	case r.Method == http.MethodPost && path == "/threads/thread_1/messages":
		f.messageBody = decodeBody(f.t, r.Body)
		if f.failMessage != 0 {
			writeAPIError(w, f.failMessage, "message rejected")
			return
		}
		writeBody(w, openai.Message{ID: "msg_user", Role: "user", ThreadID: "thread_1"})
	case r.Method == http.MethodPost && path == "/threads/thread_1/runs":
		f.runBody = decodeBody(f.t, r.Body)
		if f.failRun != 0 {
			writeAPIError(w, f.failRun, "No assistant found")
			return
		}
		writeBody(w, openai.Run{ID: "run_1", ThreadID: "thread_1", Status: openai.RunStatusQueued})
	case r.Method == http.MethodGet && path == "/threads/thread_1/runs/run_1":
		if f.statusPolls < f.failStatus {
			f.statusPolls++
			writeAPIError(w, http.StatusInternalServerError, "server overloaded")
			return
		}
		status := openai.RunStatusInProgress
		if f.statusPolls < len(f.statuses) {
			status = f.statuses[f.statusPolls]
		}
		f.statusPolls++
		writeBody(w, openai.Run{ID: "run_1", ThreadID: "thread_1", Status: status})
	case r.Method == http.MethodGet && path == "/threads/thread_1/messages":
		f.listQuery = r.URL.RawQuery
		if f.failList != 0 {
			writeAPIError(w, f.failList, "boom")
			return
		}
		writeBody(w, openai.MessagesList{Object: "list", Messages: f.listMessages})
	default:
		http.NotFound(w, r)
	}
}

func writeBody(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func writeAPIError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{"message": message, "type": "invalid_request_error"},
	})
}

func decodeBody(t *testing.T, body io.Reader) map[string]any {
	t.Helper()
	out := map[string]any{}
	data, err := io.ReadAll(body)
	if err != nil {
		t.Errorf("read body: %v", err)
		return out
	}
	if len(data) == 0 {
		return out
	}
	if err := json.Unmarshal(data, &out); err != nil {
		t.Errorf("decode body %q: %v", data, err)
	}
	return out
}

func assistantMessage(id, text string) openai.Message {
	return openai.Message{
		ID:   id,
		Role: openai.ChatMessageRoleAssistant,
		Content: []openai.MessageContent{
			{Type: "text", Text: &openai.MessageText{Value: text}},
		},
	}
}

func userMessage(id, text string) openai.Message {
	return openai.Message{
		ID:   id,
		Role: openai.ChatMessageRoleUser,
		Content: []openai.MessageContent{
			{Type: "text", Text: &openai.MessageText{Value: text}},
		},
	}
}
