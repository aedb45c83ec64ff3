package main

import (
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/fittrack/apigw/internal/observability"
)

// createMetricsServer creates the metrics HTTP server.
func createMetricsServer(
	addr string,
	path string,
	metrics *observability.Metrics,
	logger observability.Logger,
) *http.Server {
	mux := http.NewServeMux()
	mux.Handle(path, metrics.Handler())

	logger.Info("starting metrics server",
		observability.String("address", addr),
		observability.String("metrics_path", path),
	)

	return &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      10 * time.Second,
	}
}

// runMetricsServer runs the metrics HTTP server.
func runMetricsServer(server *http.Server, logger observability.Logger) {
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("metrics server error", observability.Error(err))
	}
}

// startMetricsServerIfEnabled starts the metrics server if enabled.
func (app *application) startMetricsServerIfEnabled() {
	if app.metrics == nil {
		return
	}

	addr := net.JoinHostPort("", strconv.Itoa(app.config.Metrics.Port))
	app.metricsServer = createMetricsServer(addr, app.config.Metrics.Path, app.metrics, app.logger)
	go runMetricsServer(app.metricsServer, app.logger)
}
