package bootstrap

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/wolfman30/assistant-relay/internal/api/router"
	"github.com/wolfman30/assistant-relay/internal/assistant"
	appconfig "github.com/wolfman30/assistant-relay/internal/config"
	"github.com/wolfman30/assistant-relay/internal/http/handlers"
	httpmiddleware "github.com/wolfman30/assistant-relay/internal/http/middleware"
	"github.com/wolfman30/assistant-relay/internal/observability/metrics"
	"github.com/wolfman30/assistant-relay/pkg/logging"
)

// App is the wired relay shared by the standalone server and the Lambda function.
type App struct {
	Handler http.Handler
	Relay   *assistant.Relay

	redis   *redis.Client
	limiter httpmiddleware.Limiter
}

// Close releases the Redis client and limiter goroutines.
func (a *App) Close() {
	if a == nil {
		return
	}
	if closer, ok := a.limiter.(interface{ Close() }); ok {
		closer.Close()
	}
	if a.redis != nil {
		_ = a.redis.Close()
	}
}

// Options carries overrides used mostly by tests.
type Options struct {
	// Registry receives relay metrics; a fresh one is created when nil.
	Registry *prometheus.Registry
	// Client replaces the go-openai client.
	Client assistant.Client
	// RelayOptions are appended when building the relay.
	RelayOptions []assistant.Option
	// VerifyRedis pings Redis at startup and falls back to memory on failure.
	VerifyRedis bool
}

// BuildRelay constructs the assistant relay from configuration. Missing
// credentials are not fatal: every call then reports a configuration error.
func BuildRelay(cfg *appconfig.Config, client assistant.Client, m *metrics.RelayMetrics, logger *logging.Logger, opts ...assistant.Option) *assistant.Relay {
	if logger == nil {
		logger = logging.Default()
	}
	if client == nil && cfg.HasCredentials() {
		client = assistant.NewOpenAIClient(assistant.ClientConfig{
			APIKey:  cfg.OpenAIAPIKey,
			BaseURL: cfg.OpenAIBaseURL,
			Timeout: cfg.OpenAITimeout,
		})
	}
	if !cfg.HasCredentials() {
		logger.Warn("OPENAI_API_KEY or ASSISTANT_ID missing; relay calls will fail until configured")
	}

	settings := assistant.Settings{
		APIKey:          cfg.OpenAIAPIKey,
		AssistantID:     cfg.AssistantID,
		PollMaxAttempts: cfg.PollMaxAttempts,
		PollInterval:    cfg.PollInterval,
		EmptyReply:      cfg.EmptyReply,
	}
	opts = append([]assistant.Option{assistant.WithMetrics(m)}, opts...)
	return assistant.NewRelay(client, settings, logger, opts...)
}

// BuildApp wires relay, metrics, rate limiting and the router.
func BuildApp(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger, opts Options) *App {
	if logger == nil {
		logger = logging.Default()
	}
	reg := opts.Registry
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	relayMetrics := metrics.NewRelayMetrics(reg)
	relay := BuildRelay(cfg, opts.Client, relayMetrics, logger, opts.RelayOptions...)

	redisClient := BuildRedisClient(ctx, cfg, logger, opts.VerifyRedis)
	limiter := BuildRateLimiter(cfg, redisClient, logger)

	routerCfg := &router.Config{
		Logger:             logger,
		GenerateHandler:    handlers.NewGenerateHandler(relay, logger),
		GeneratePath:       cfg.GeneratePath,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		RateLimiter:        limiter,
	}
	if cfg.MetricsEnabled {
		routerCfg.MetricsHandler = promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
	}

	return &App{
		Handler: router.New(routerCfg),
		Relay:   relay,
		redis:   redisClient,
		limiter: limiter,
	}
}
