package main

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/fittrack/apigw/internal/observability"
)

func newServeCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the gateway (default command)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, opts)
		},
	}
}

// runServe starts the gateway and blocks until the command context is
// cancelled, then shuts down gracefully.
func runServe(cmd *cobra.Command, opts *rootOptions) error {
	cfg, err := opts.loadConfig()
	if err != nil {
		return err
	}

	logger, err := initLogger(cfg.Logging)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("starting apigw",
		observability.String("version", version),
		observability.String("commit", gitCommit),
		observability.Int("port", cfg.Port),
	)

	gin.SetMode(gin.ReleaseMode)

	app, err := initApplication(cfg, logger)
	if err != nil {
		logger.Error("failed to initialize gateway", observability.Error(err))
		return err
	}

	return app.run(cmd.Context())
}

// run serves until ctx is done.
func (app *application) run(ctx context.Context) error {
	if err := app.gateway.Start(ctx); err != nil {
		return fmt.Errorf("failed to start gateway: %w", err)
	}

	app.startMetricsServerIfEnabled()

	return app.waitForShutdown(ctx)
}
