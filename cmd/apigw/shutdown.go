package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/fittrack/apigw/internal/observability"
)

// waitForShutdown blocks until ctx is done and then stops every
// component within the configured shutdown timeout.
func (app *application) waitForShutdown(ctx context.Context) error {
	<-ctx.Done()
	app.logger.Info("received shutdown signal",
		observability.String("cause", context.Cause(ctx).Error()),
	)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), app.config.ShutdownTimeout.Duration())
	defer cancel()

	return app.shutdown(shutdownCtx)
}

// shutdown stops the metrics server, drains the gateway and flushes
// pending spans.
func (app *application) shutdown(ctx context.Context) error {
	var errs []error

	if app.metricsServer != nil {
		app.logger.Info("stopping metrics server")
		if err := app.metricsServer.Shutdown(ctx); err != nil {
			app.logger.Error("failed to stop metrics server gracefully", observability.Error(err))
			errs = append(errs, fmt.Errorf("metrics server: %w", err))
		}
	}

	if err := app.gateway.Stop(ctx); err != nil {
		app.logger.Error("failed to stop gateway gracefully", observability.Error(err))
		errs = append(errs, fmt.Errorf("gateway: %w", err))
	}

	if err := app.tracer.Shutdown(ctx); err != nil {
		app.logger.Error("failed to shutdown tracer", observability.Error(err))
		errs = append(errs, fmt.Errorf("tracer: %w", err))
	}

	app.logger.Info("gateway stopped")

	return errors.Join(errs...)
}
