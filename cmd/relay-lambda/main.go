package main

import (
	"context"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/wolfman30/assistant-relay/internal/app/bootstrap"
	appconfig "github.com/wolfman30/assistant-relay/internal/config"
	"github.com/wolfman30/assistant-relay/internal/serverless"
	"github.com/wolfman30/assistant-relay/pkg/logging"
)

func main() {
	cfg := appconfig.Load()
	logger := logging.NewWithOptions(logging.Options{Level: cfg.LogLevel, Format: cfg.LogFormat})

	// Missing credentials are reported per invocation, not at cold start,
	// so preflight requests keep working.
	app := bootstrap.BuildApp(context.Background(), cfg, logger, bootstrap.Options{})
	defer app.Close()

	adapter := serverless.NewAdapter(app.Handler, serverless.Config{
		GeneratePath: cfg.GeneratePath,
		RouteAll:     cfg.ServerlessRouteAll,
	}, logger)

	logger.Info("starting assistant relay lambda", "env", cfg.Env, "generate_path", cfg.GeneratePath)
	lambda.Start(adapter.Handle)
}
