package main

import (
	"fmt"
	"net/http"

	"github.com/fittrack/apigw/internal/config"
	"github.com/fittrack/apigw/internal/gateway"
	"github.com/fittrack/apigw/internal/observability"
	"github.com/fittrack/apigw/internal/proxy"
)

// application holds all application components.
type application struct {
	config        *config.Config
	logger        observability.Logger
	gateway       *gateway.Gateway
	metrics       *observability.Metrics
	metricsServer *http.Server
	tracer        *observability.Tracer
}

// initApplication wires the gateway from the loaded configuration.
// Extra gateway options are applied last.
func initApplication(
	cfg *config.Config,
	logger observability.Logger,
	extra ...gateway.Option,
) (*application, error) {
	app := &application{
		config: cfg,
		logger: logger,
	}

	tracer, err := initTracer(cfg.Tracing)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize tracer: %w", err)
	}
	app.tracer = tracer

	opts := []gateway.Option{
		gateway.WithLogger(logger),
		gateway.WithVersion(version),
		gateway.WithTransport(proxy.NewTransport(cfg.Upstream)),
		gateway.WithShutdownTimeout(cfg.ShutdownTimeout.Duration()),
	}

	if cfg.Metrics.Enabled {
		app.metrics = observability.NewMetrics("gateway")
		app.metrics.SetBuildInfo(version, gitCommit, buildTime)
		opts = append(opts, gateway.WithMetrics(app.metrics))
	}

	if tracer.Enabled() {
		opts = append(opts, gateway.WithTracer(tracer))
	}

	gw, err := gateway.New(cfg, append(opts, extra...)...)
	if err != nil {
		return nil, err
	}
	app.gateway = gw

	logger.Info("application initialized",
		observability.Int("routes", len(gw.Router().Routes())),
		observability.Bool("metrics", cfg.Metrics.Enabled),
		observability.Bool("tracing", tracer.Enabled()),
		observability.Bool("cors", cfg.CORS.Enabled),
		observability.Bool("rate_limit", cfg.RateLimit.Enabled),
		observability.Bool("circuit_breaker", cfg.CircuitBreaker.Enabled),
		observability.Duration("upstream_timeout", cfg.Upstream.Timeout.Duration()),
	)

	return app, nil
}

// initTracer creates the tracer. A disabled configuration yields a
// tracer that exports nothing.
func initTracer(cfg config.TracingConfig) (*observability.Tracer, error) {
	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = config.DefaultName
	}

	return observability.NewTracer(observability.TracerConfig{
		ServiceName:    serviceName,
		ServiceVersion: version,
		OTLPEndpoint:   cfg.OTLPEndpoint,
		SamplingRate:   cfg.SamplingRate,
		Enabled:        cfg.Enabled,
	})
}

// initLogger creates the logger and installs it globally.
func initLogger(cfg config.LoggingConfig) (observability.Logger, error) {
	logger, err := observability.NewLogger(observability.LogConfig{
		Level:  cfg.Level,
		Format: cfg.Format,
		Output: cfg.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	observability.SetGlobalLogger(logger)
	return logger, nil
}
