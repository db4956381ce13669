package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/wolfman30/assistant-relay/internal/assistant"
	"github.com/wolfman30/assistant-relay/pkg/logging"
)

const maxGenerateBody = 1 << 20

// Generator produces an assistant reply for a request.
type Generator interface {
	Generate(ctx context.Context, req assistant.Request) (*assistant.Result, error)
}

// GenerateResponse is the success payload.
type GenerateResponse struct {
	Response string `json:"response"`
}

// ErrorResponse is the failure payload shared by every route.
type ErrorResponse struct {
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}

// GenerateHandler exposes the assistant relay over HTTP.
type GenerateHandler struct {
	relay  Generator
	logger *logging.Logger
}

func NewGenerateHandler(relay Generator, logger *logging.Logger) *GenerateHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &GenerateHandler{relay: relay, logger: logger}
}

// Generate handles POST /generate.
func (h *GenerateHandler) Generate(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetReqID(r.Context())

	var req assistant.Request
	body := http.MaxBytesReader(w, r.Body, maxGenerateBody)
	if err := json.NewDecoder(body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		h.logger.Warn("invalid generate request body", "request_id", reqID, "error", err)
		WriteJSON(w, http.StatusBadRequest, ErrorResponse{Error: "Corpo da requisição inválido"})
		return
	}

	result, err := h.relay.Generate(r.Context(), req)
	if err != nil {
		kind := assistant.KindOf(err)
		resp := ErrorResponse{Error: kind.Message()}
		var relayErr *assistant.Error
		if errors.As(err, &relayErr) {
			resp.Detail = relayErr.Detail
		}
		h.logger.Error("generate failed", "request_id", reqID, "kind", kind, "error", err)
		WriteJSON(w, kind.HTTPStatus(), resp)
		return
	}

	WriteJSON(w, http.StatusOK, GenerateResponse{Response: result.Reply})
}

// Health handles GET /health.
func (h *GenerateHandler) Health(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// MethodNotAllowed answers unsupported verbs with a JSON body.
func MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusMethodNotAllowed, ErrorResponse{Error: "Método não permitido"})
}

// NotFound answers unknown routes with a JSON body.
func NotFound(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusNotFound, ErrorResponse{Error: "Não encontrado"})
}

// WriteJSON encodes payload with the given status.
func WriteJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
