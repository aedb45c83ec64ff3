// Package observability provides logging, metrics, and tracing
// functionality for the API Gateway.
//
// # Logging
//
// The Logger interface wraps zap for structured logging:
//
//	logger, err := observability.NewLogger(observability.LogConfig{
//	    Level:  "info",
//	    Format: "json",
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer logger.Sync()
//
//	logger.Info("request forwarded",
//	    observability.String("service", "Workouts"),
//	    observability.Int("status", 200),
//	)
//
// # Metrics
//
// Prometheus metrics for inbound requests, labelled by the matched
// upstream service rather than the raw path:
//
//	metrics := observability.NewMetrics("gateway")
//	handler := observability.MetricsMiddleware(metrics)(next)
//	http.Handle("/metrics", metrics.Handler())
//
// # Tracing
//
// OpenTelemetry tracing with optional OTLP gRPC export. Trace context
// is extracted from inbound requests and injected into forwarded
// ones so upstream services join the same trace.
package observability
