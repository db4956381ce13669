package assistant

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// Kind classifies a relay failure.
type Kind string

const (
	KindEmptyContent            Kind = "empty_content"
	KindMissingConfiguration    Kind = "missing_configuration"
	KindContextCreationFailed   Kind = "context_creation_failed"
	KindMessageSubmissionFailed Kind = "message_submission_failed"
	KindJobStartFailed          Kind = "job_start_failed"
	KindPollTimeout             Kind = "poll_timeout"
	KindInternalError           Kind = "internal_error"
)

var kindMessages = map[Kind]string{
	KindEmptyContent:            "Conteúdo vazio",
	KindMissingConfiguration:    "Assistente não configurado",
	KindContextCreationFailed:   "Falha ao criar thread",
	KindMessageSubmissionFailed: "Falha ao enviar mensagem",
	KindJobStartFailed:          "Falha ao iniciar execução",
	KindPollTimeout:             "Timeout",
	KindInternalError:           "Erro interno",
}

// Message is the caller-facing text for the kind.
func (k Kind) Message() string {
	if msg, ok := kindMessages[k]; ok {
		return msg
	}
	return kindMessages[KindInternalError]
}

// HTTPStatus maps the kind onto the status returned to callers.
func (k Kind) HTTPStatus() int {
	if k == KindEmptyContent {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// Error is returned by Relay.Generate for every failure.
type Error struct {
	Kind Kind
	// Detail is the remote error text, only set for the remote-call kinds.
	Detail string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("assistant: %s: %v", e.Kind, e.Err)
	}
	return "assistant: " + string(e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches another *Error by kind so callers can compare against the sentinels below.
func (e *Error) Is(target error) bool {
	var other *Error
	if errors.As(target, &other) {
		return other.Kind == e.Kind && other.Detail == "" && other.Err == nil
	}
	return false
}

var (
	ErrEmptyContent         = &Error{Kind: KindEmptyContent}
	ErrMissingConfiguration = &Error{Kind: KindMissingConfiguration}
	ErrPollTimeout          = &Error{Kind: KindPollTimeout}
)

// KindOf extracts the kind from err, treating anything unrecognised as internal.
func KindOf(err error) Kind {
	var relayErr *Error
	if errors.As(err, &relayErr) {
		return relayErr.Kind
	}
	return KindInternalError
}

func newError(kind Kind, err error) *Error {
	e := &Error{Kind: kind, Err: err}
	switch kind {
	case KindContextCreationFailed, KindMessageSubmissionFailed, KindJobStartFailed:
		e.Detail = remoteDetail(err)
	}
	return e
}

// remoteDetail pulls the most useful description out of a go-openai error.
func remoteDetail(err error) string {
	if err == nil {
		return ""
	}
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && strings.TrimSpace(apiErr.Message) != "" {
		return apiErr.Message
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && len(reqErr.Body) > 0 {
		return strings.TrimSpace(string(reqErr.Body))
	}
	return err.Error()
}

// isRemoteReply reports whether err came from a response the API actually
// sent, as opposed to a transport or decoding failure.
func isRemoteReply(err error) bool {
	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	return errors.As(err, &apiErr) || errors.As(err, &reqErr)
}
