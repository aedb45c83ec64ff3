// Package middleware provides HTTP middleware components for the
// API Gateway.
//
// # Middleware Components
//
//   - RequestID: unique request identifier, propagated upstream
//   - Recovery: panic recovery with stack trace logging
//   - Logging: one structured access log line per request
//   - CORS: optional Cross-Origin Resource Sharing for the web client
//   - RateLimit: optional token bucket limiter, global or per client
//
// # Usage
//
// Middleware functions follow the standard Go pattern:
//
//	handler := middleware.Recovery(logger)(
//	    middleware.RequestID()(
//	        middleware.Logging(logger)(yourHandler),
//	    ),
//	)
package middleware
