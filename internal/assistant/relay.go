package assistant

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"github.com/wolfman30/assistant-relay/internal/observability/metrics"
	"github.com/wolfman30/assistant-relay/pkg/logging"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const defaultEmptyReply = "Sem resposta"

var relayTracer = otel.Tracer("assistant-relay.internal.assistant")

// Request is the inbound payload: an optional subject and message body.
type Request struct {
	Subject  string `json:"subject,omitempty"`
	Messages string `json:"messages,omitempty"`
}

// Content joins subject and messages with a blank line and trims the result.
func (r Request) Content() string {
	return strings.TrimSpace(r.Subject + "\n\n" + r.Messages)
}

// Result is a successful relay exchange.
type Result struct {
	Reply    string
	ThreadID string
	RunID    string
	Attempts int
}

// Settings are the per-deployment values the relay needs. They are checked on
// every call so a misconfigured function still answers with a JSON error.
type Settings struct {
	APIKey          string
	AssistantID     string
	PollMaxAttempts int
	PollInterval    time.Duration
	EmptyReply      string
}

// Validate reports a missing API key or assistant ID.
func (s Settings) Validate() error {
	var missing []string
	if strings.TrimSpace(s.APIKey) == "" {
		missing = append(missing, "api key")
	}
	if strings.TrimSpace(s.AssistantID) == "" {
		missing = append(missing, "assistant id")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing %s", strings.Join(missing, ", "))
	}
	return nil
}

// Relay drives one thread/message/run/poll/fetch exchange per call.
type Relay struct {
	client   Client
	settings Settings
	poller   Poller
	logger   *logging.Logger
	metrics  *metrics.RelayMetrics
	now      func() time.Time
}

// Option customises a Relay.
type Option func(*Relay)

// WithSleep replaces the poll wait, mainly so tests avoid real delays.
func WithSleep(sleep SleepFunc) Option {
	return func(r *Relay) { r.poller.Sleep = sleep }
}

// WithMetrics attaches Prometheus instrumentation.
func WithMetrics(m *metrics.RelayMetrics) Option {
	return func(r *Relay) { r.metrics = m }
}

// NewRelay returns a relay. client may be nil only when settings are
// incomplete, in which case every call fails with KindMissingConfiguration.
func NewRelay(client Client, settings Settings, logger *logging.Logger, opts ...Option) *Relay {
	if logger == nil {
		logger = logging.Default()
	}
	if settings.PollMaxAttempts <= 0 {
		settings.PollMaxAttempts = defaultPollAttempts
	}
	if settings.PollInterval <= 0 {
		settings.PollInterval = defaultPollInterval
	}
	if strings.TrimSpace(settings.EmptyReply) == "" {
		settings.EmptyReply = defaultEmptyReply
	}

	r := &Relay{
		client:   client,
		settings: settings,
		poller: Poller{
			MaxAttempts: settings.PollMaxAttempts,
			Interval:    settings.PollInterval,
		},
		logger: logger,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Generate forwards the request content to the assistant and returns its reply.
// Every returned error is an *Error.
func (r *Relay) Generate(ctx context.Context, req Request) (result *Result, err error) {
	ctx, span := relayTracer.Start(ctx, "assistant.generate")
	defer span.End()

	start := r.now()
	attempts := 0
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("assistant relay panicked", "panic", fmt.Sprint(rec))
			result, err = nil, &Error{Kind: KindInternalError, Err: fmt.Errorf("panic: %v", rec)}
		}
		outcome := "success"
		if err != nil {
			outcome = string(KindOf(err))
			span.RecordError(err)
			span.SetStatus(codes.Error, outcome)
		}
		r.metrics.ObserveOutcome(outcome, r.now().Sub(start).Seconds())
		if attempts > 0 {
			r.metrics.ObservePollAttempts(attempts)
		}
	}()

	content := req.Content()
	if content == "" {
		return nil, ErrEmptyContent
	}
	if cfgErr := r.settings.Validate(); cfgErr != nil || r.client == nil {
		if cfgErr == nil {
			cfgErr = errors.New("missing assistant client")
		}
		r.logger.Error("assistant relay not configured", "error", cfgErr)
		return nil, &Error{Kind: KindMissingConfiguration, Err: cfgErr}
	}

	threadID, err := r.createThread(ctx)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("assistant.thread_id", threadID))

	if err := r.submitMessage(ctx, threadID, content); err != nil {
		return nil, err
	}

	runID, err := r.startRun(ctx, threadID)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("assistant.run_id", runID))

	attempts, err = r.awaitRun(ctx, threadID, runID)
	span.SetAttributes(attribute.Int("assistant.poll_attempts", attempts))
	if err != nil {
		return nil, err
	}

	reply, err := r.fetchReply(ctx, threadID)
	if err != nil {
		return nil, err
	}

	r.logger.Info("assistant reply relayed",
		"thread_id", threadID,
		"run_id", runID,
		"attempts", attempts,
	)
	return &Result{
		Reply:    reply,
		ThreadID: threadID,
		RunID:    runID,
		Attempts: attempts,
	}, nil
}

func (r *Relay) createThread(ctx context.Context) (string, error) {
	ctx, span := relayTracer.Start(ctx, "assistant.create_thread")
	defer span.End()

	thread, err := r.client.CreateThread(ctx, openai.ThreadRequest{})
	if err == nil && strings.TrimSpace(thread.ID) == "" {
		err = errors.New("response missing thread id")
	}
	if err != nil {
		return "", r.fail(span, KindContextCreationFailed, err)
	}
	r.logger.Debug("thread created", "thread_id", thread.ID)
	return thread.ID, nil
}

func (r *Relay) submitMessage(ctx context.Context, threadID, content string) error {
	ctx, span := relayTracer.Start(ctx, "assistant.create_message",
		trace.WithAttributes(attribute.Int("assistant.content_length", len(content))))
	defer span.End()

	_, err := r.client.CreateMessage(ctx, threadID, openai.MessageRequest{
		Role:    openai.ChatMessageRoleUser,
		Content: content,
	})
	if err != nil {
		return r.fail(span, KindMessageSubmissionFailed, err, "thread_id", threadID)
	}
	return nil
}

func (r *Relay) startRun(ctx context.Context, threadID string) (string, error) {
	ctx, span := relayTracer.Start(ctx, "assistant.create_run")
	defer span.End()

	run, err := r.client.CreateRun(ctx, threadID, openai.RunRequest{
		AssistantID: r.settings.AssistantID,
	})
	if err == nil && strings.TrimSpace(run.ID) == "" {
		err = errors.New("response missing run id")
	}
	if err != nil {
		return "", r.fail(span, KindJobStartFailed, err, "thread_id", threadID)
	}
	r.logger.Debug("run started", "thread_id", threadID, "run_id", run.ID)
	return run.ID, nil
}

func (r *Relay) awaitRun(ctx context.Context, threadID, runID string) (int, error) {
	ctx, span := relayTracer.Start(ctx, "assistant.poll_run")
	defer span.End()

	var lastStatus openai.RunStatus
	attempts, err := r.poller.Until(ctx, func(ctx context.Context, attempt int) (bool, error) {
		run, err := r.client.RetrieveRun(ctx, threadID, runID)
		if err != nil {
			if !isRemoteReply(err) {
				return false, err
			}
			r.logger.Warn("run status check failed",
				"thread_id", threadID,
				"run_id", runID,
				"attempt", attempt,
				"error", err,
			)
			return false, nil
		}
		lastStatus = run.Status
		r.logger.Debug("run status", "run_id", runID, "attempt", attempt, "status", run.Status)
		return run.Status == openai.RunStatusCompleted, nil
	})
	span.SetAttributes(
		attribute.Int("assistant.poll_attempts", attempts),
		attribute.String("assistant.run_status", string(lastStatus)),
	)

	switch {
	case err == nil:
		return attempts, nil
	case errors.Is(err, errPollExhausted):
		r.logger.Error("run did not complete in time",
			"thread_id", threadID,
			"run_id", runID,
			"attempts", attempts,
			"last_status", lastStatus,
		)
		span.SetStatus(codes.Error, string(KindPollTimeout))
		return attempts, &Error{Kind: KindPollTimeout, Err: fmt.Errorf("run %s last status %q: %w", runID, lastStatus, err)}
	default:
		return attempts, r.fail(span, KindInternalError, err, "thread_id", threadID, "run_id", runID)
	}
}

func (r *Relay) fetchReply(ctx context.Context, threadID string) (string, error) {
	ctx, span := relayTracer.Start(ctx, "assistant.list_messages")
	defer span.End()

	order := "asc"
	list, err := r.client.ListMessage(ctx, threadID, nil, &order, nil, nil, nil)
	if err != nil {
		return "", r.fail(span, KindInternalError, err, "thread_id", threadID)
	}

	reply, ok := ExtractReply(list.Messages)
	if !ok {
		r.logger.Warn("no assistant reply found", "thread_id", threadID, "messages", len(list.Messages))
		return r.settings.EmptyReply, nil
	}
	return reply, nil
}

func (r *Relay) fail(span trace.Span, kind Kind, err error, attrs ...any) *Error {
	span.RecordError(err)
	span.SetStatus(codes.Error, string(kind))
	args := append([]any{"kind", kind, "error", err}, attrs...)
	r.logger.Error("assistant relay step failed", args...)
	return newError(kind, err)
}
