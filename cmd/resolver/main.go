// Command resolver serves the codebytes GraphQL fields as a direct Lambda
// resolver.
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/nisimpson/codebytes/config"
	"github.com/nisimpson/codebytes/resolver"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		slog.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))

	table, err := cfg.NewTable(context.Background(), logger)
	if err != nil {
		logger.Error("failed to open table", slog.Any("error", err))
		os.Exit(1)
	}

	lambda.Start(resolver.New(table, logger).Handle)
}
