package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DefaultOpenAIBaseURL   = "https://api.openai.com/v1"
	DefaultPollMaxAttempts = 10
	DefaultPollInterval    = 1500 * time.Millisecond
	DefaultEmptyReply      = "Sem resposta"
	DefaultGeneratePath    = "/generate"
)

// Config holds application configuration
type Config struct {
	Port      string
	Env       string
	LogLevel  string
	LogFormat string

	// OpenAI Assistants
	OpenAIAPIKey    string
	AssistantID     string
	OpenAIBaseURL   string
	OpenAITimeout   time.Duration
	PollMaxAttempts int
	PollInterval    time.Duration
	EmptyReply      string

	// HTTP surface
	GeneratePath       string
	CORSAllowedOrigins []string
	RateLimitRPS       float64
	RateLimitBurst     int
	MetricsEnabled     bool
	ServerlessRouteAll bool

	// Redis (optional, shared rate limiting)
	RedisAddr     string
	RedisPassword string
	RedisTLS      bool
}

// Load reads configuration from environment variables. A .env file in the
// working directory is applied first when present; real env vars win.
func Load() *Config {
	_ = godotenv.Load()
	return FromEnv()
}

// FromEnv reads configuration from the process environment only.
func FromEnv() *Config {
	return &Config{
		Port:      getEnv("PORT", "8080"),
		Env:       getEnv("ENV", "development"),
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),

		OpenAIAPIKey:    strings.TrimSpace(getEnv("OPENAI_API_KEY", "")),
		AssistantID:     strings.TrimSpace(getEnv("ASSISTANT_ID", "")),
		OpenAIBaseURL:   strings.TrimRight(getEnv("OPENAI_BASE_URL", DefaultOpenAIBaseURL), "/"),
		OpenAITimeout:   getEnvAsDuration("OPENAI_TIMEOUT", 30*time.Second),
		PollMaxAttempts: getEnvAsInt("RELAY_POLL_MAX_ATTEMPTS", DefaultPollMaxAttempts),
		PollInterval:    getEnvAsDuration("RELAY_POLL_INTERVAL", DefaultPollInterval),
		EmptyReply:      getEnv("RELAY_EMPTY_REPLY", DefaultEmptyReply),

		GeneratePath:       normalizePath(getEnv("GENERATE_PATH", DefaultGeneratePath)),
		CORSAllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS", []string{"*"}),
		RateLimitRPS:       getEnvAsFloat("RATE_LIMIT_RPS", 0),
		RateLimitBurst:     getEnvAsInt("RATE_LIMIT_BURST", 10),
		MetricsEnabled:     getEnvAsBool("METRICS_ENABLED", true),
		ServerlessRouteAll: getEnvAsBool("SERVERLESS_ROUTE_ALL", true),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisTLS:      getEnvAsBool("REDIS_TLS", false),
	}
}

// HasCredentials reports whether the secrets required to reach the assistant are present.
func (c *Config) HasCredentials() bool {
	return c.OpenAIAPIKey != "" && c.AssistantID != ""
}

func normalizePath(path string) string {
	path = strings.TrimSpace(path)
	if path == "" {
		return DefaultGeneratePath
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return path
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
