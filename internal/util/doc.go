// Package util provides utility functions and types for the
// API Gateway.
//
// This package contains shared utilities used across the gateway
// including context helpers, error types and HTTP response helpers.
//
// # Context Helpers
//
// Context utilities for request-scoped data:
//
//	ctx = util.ContextWithService(ctx, "Workouts")
//	service := util.ServiceFromContext(ctx)
//
// # Error Types
//
// Structured error types for consistent error handling:
//
//   - ConfigError: configuration validation errors
//   - Common sentinel errors: ErrTimeout, ErrCircuitOpen, etc.
//
// # HTTP Utilities
//
// JSON response writing and status capturing wrappers:
//
//	util.WriteJSON(w, http.StatusOK, body)
//
//	rw := util.NewStatusCapturingResponseWriter(w)
//	handler.ServeHTTP(rw, r)
//	statusCode := rw.StatusCode
package util
