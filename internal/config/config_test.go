package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func clearRelayEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"PORT", "ENV", "LOG_LEVEL", "LOG_FORMAT",
		"OPENAI_API_KEY", "ASSISTANT_ID", "OPENAI_BASE_URL", "OPENAI_TIMEOUT",
		"RELAY_POLL_MAX_ATTEMPTS", "RELAY_POLL_INTERVAL", "RELAY_EMPTY_REPLY",
		"GENERATE_PATH", "CORS_ALLOWED_ORIGINS", "RATE_LIMIT_RPS", "RATE_LIMIT_BURST",
		"METRICS_ENABLED", "SERVERLESS_ROUTE_ALL", "REDIS_ADDR", "REDIS_PASSWORD", "REDIS_TLS",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearRelayEnv(t)
	cfg := FromEnv()
	if cfg.Port != "8080" {
		t.Fatalf("expected default port, got %s", cfg.Port)
	}
	if cfg.Env != "development" {
		t.Fatalf("expected default env, got %s", cfg.Env)
	}
	if cfg.OpenAIBaseURL != DefaultOpenAIBaseURL {
		t.Fatalf("expected default base url, got %s", cfg.OpenAIBaseURL)
	}
	if cfg.PollMaxAttempts != 10 {
		t.Fatalf("expected 10 poll attempts, got %d", cfg.PollMaxAttempts)
	}
	if cfg.PollInterval != 1500*time.Millisecond {
		t.Fatalf("expected 1500ms poll interval, got %s", cfg.PollInterval)
	}
	if cfg.EmptyReply != "Sem resposta" {
		t.Fatalf("expected default sentinel, got %q", cfg.EmptyReply)
	}
	if cfg.GeneratePath != "/generate" {
		t.Fatalf("expected default path, got %s", cfg.GeneratePath)
	}
	if len(cfg.CORSAllowedOrigins) != 1 || cfg.CORSAllowedOrigins[0] != "*" {
		t.Fatalf("expected wildcard CORS, got %v", cfg.CORSAllowedOrigins)
	}
	if cfg.RateLimitRPS != 0 {
		t.Fatalf("expected rate limiting disabled, got %v", cfg.RateLimitRPS)
	}
	if !cfg.MetricsEnabled || !cfg.ServerlessRouteAll {
		t.Fatalf("expected metrics and serverless route-all enabled by default")
	}
	if cfg.HasCredentials() {
		t.Fatalf("expected no credentials by default")
	}
}

func TestLoadOverrides(t *testing.T) {
	clearRelayEnv(t)
	t.Setenv("PORT", "3000")
	t.Setenv("OPENAI_API_KEY", " sk-test ")
	t.Setenv("ASSISTANT_ID", "asst_123")
	t.Setenv("OPENAI_BASE_URL", "http://localhost:9999/v1/")
	t.Setenv("RELAY_POLL_MAX_ATTEMPTS", "3")
	t.Setenv("RELAY_POLL_INTERVAL", "10ms")
	t.Setenv("RELAY_EMPTY_REPLY", "No response")
	t.Setenv("GENERATE_PATH", "api/generate")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example ,")
	t.Setenv("RATE_LIMIT_RPS", "2.5")
	t.Setenv("RATE_LIMIT_BURST", "4")
	t.Setenv("METRICS_ENABLED", "false")
	t.Setenv("REDIS_ADDR", "localhost:6379")

	cfg := FromEnv()
	if cfg.Port != "3000" {
		t.Fatalf("expected override port, got %s", cfg.Port)
	}
	if cfg.OpenAIAPIKey != "sk-test" {
		t.Fatalf("expected trimmed api key, got %q", cfg.OpenAIAPIKey)
	}
	if !cfg.HasCredentials() {
		t.Fatalf("expected credentials present")
	}
	if cfg.OpenAIBaseURL != "http://localhost:9999/v1" {
		t.Fatalf("expected trailing slash trimmed, got %s", cfg.OpenAIBaseURL)
	}
	if cfg.PollMaxAttempts != 3 || cfg.PollInterval != 10*time.Millisecond {
		t.Fatalf("unexpected poll settings %d/%s", cfg.PollMaxAttempts, cfg.PollInterval)
	}
	if cfg.EmptyReply != "No response" {
		t.Fatalf("expected sentinel override, got %q", cfg.EmptyReply)
	}
	if cfg.GeneratePath != "/api/generate" {
		t.Fatalf("expected leading slash added, got %s", cfg.GeneratePath)
	}
	if len(cfg.CORSAllowedOrigins) != 2 || cfg.CORSAllowedOrigins[1] != "https://b.example" {
		t.Fatalf("unexpected origins %v", cfg.CORSAllowedOrigins)
	}
	if cfg.RateLimitRPS != 2.5 || cfg.RateLimitBurst != 4 {
		t.Fatalf("unexpected rate limit %v/%d", cfg.RateLimitRPS, cfg.RateLimitBurst)
	}
	if cfg.MetricsEnabled {
		t.Fatalf("expected metrics disabled")
	}
	if cfg.RedisAddr != "localhost:6379" {
		t.Fatalf("expected redis addr, got %s", cfg.RedisAddr)
	}
}

func TestLoadInvalidValuesFallBack(t *testing.T) {
	clearRelayEnv(t)
	t.Setenv("RELAY_POLL_MAX_ATTEMPTS", "many")
	t.Setenv("RELAY_POLL_INTERVAL", "soon")
	t.Setenv("METRICS_ENABLED", "maybe")

	cfg := FromEnv()
	if cfg.PollMaxAttempts != DefaultPollMaxAttempts {
		t.Fatalf("expected default attempts, got %d", cfg.PollMaxAttempts)
	}
	if cfg.PollInterval != DefaultPollInterval {
		t.Fatalf("expected default interval, got %s", cfg.PollInterval)
	}
	if !cfg.MetricsEnabled {
		t.Fatalf("expected metrics default true")
	}
}

func TestLoadReadsDotEnv(t *testing.T) {
	clearRelayEnv(t)
	os.Unsetenv("ASSISTANT_ID")

	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("ASSISTANT_ID=asst_from_file\n"), 0o600); err != nil {
		t.Fatalf("write .env: %v", err)
	}
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })
	t.Cleanup(func() { os.Unsetenv("ASSISTANT_ID") })

	cfg := Load()
	if cfg.AssistantID != "asst_from_file" {
		t.Fatalf("expected assistant id from .env, got %q", cfg.AssistantID)
	}
}
