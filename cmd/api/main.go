package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/wolfman30/assistant-relay/internal/app/bootstrap"
	appconfig "github.com/wolfman30/assistant-relay/internal/config"
	"github.com/wolfman30/assistant-relay/pkg/logging"
)

func main() {
	// Load configuration
	cfg := appconfig.Load()

	// Initialize logger
	logger := logging.NewWithOptions(logging.Options{Level: cfg.LogLevel, Format: cfg.LogFormat})
	logger.Info("starting assistant relay API server",
		"env", cfg.Env,
		"port", cfg.Port,
		"generate_path", cfg.GeneratePath,
	)

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	app := bootstrap.BuildApp(context.Background(), cfg, logger, bootstrap.Options{
		Registry:    reg,
		VerifyRedis: true,
	})
	defer app.Close()

	srv := newHTTPServer(cfg, app.Handler)

	// Start server in a goroutine
	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
	fmt.Println("Server exited gracefully")
}

// newHTTPServer sizes the write timeout to cover the whole poll budget plus
// the four non-poll upstream calls.
func newHTTPServer(cfg *appconfig.Config, handler http.Handler) *http.Server {
	writeTimeout := time.Duration(cfg.PollMaxAttempts)*cfg.PollInterval + 4*cfg.OpenAITimeout
	if writeTimeout < 15*time.Second {
		writeTimeout = 15 * time.Second
	}
	return &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: writeTimeout,
		IdleTimeout:  60 * time.Second,
	}
}
