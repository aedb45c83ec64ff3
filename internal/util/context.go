package util

import (
	"context"
	"net/http"
	"time"
)

// Context keys.
type ctxKey string

const (
	ctxKeyStartTime   ctxKey = "start_time"
	ctxKeyRequestInfo ctxKey = "request_info"
)

// RequestInfo carries the dispatch result of a request back to the
// middleware that wrapped it. Middleware deeper in the chain only see
// derived contexts, so the matched route is recorded on a shared
// pointer instead of a context value.
type RequestInfo struct {
	Route   string
	Service string
}

// ContextWithStartTime adds a start time to the context.
func ContextWithStartTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, ctxKeyStartTime, t)
}

// StartTimeFromContext extracts the start time from context.
func StartTimeFromContext(ctx context.Context) time.Time {
	if v, ok := ctx.Value(ctxKeyStartTime).(time.Time); ok {
		return v
	}
	return time.Time{}
}

// ElapsedTime returns the elapsed time since the start time in context.
func ElapsedTime(ctx context.Context) time.Duration {
	startTime := StartTimeFromContext(ctx)
	if startTime.IsZero() {
		return 0
	}
	return time.Since(startTime)
}

// RequestInfoFromContext returns the request info holder, or nil.
func RequestInfoFromContext(ctx context.Context) *RequestInfo {
	if v, ok := ctx.Value(ctxKeyRequestInfo).(*RequestInfo); ok {
		return v
	}
	return nil
}

// EnsureRequestInfo returns the request's info holder, attaching a new
// one to the request context if none exists yet.
func EnsureRequestInfo(r *http.Request) (*http.Request, *RequestInfo) {
	if info := RequestInfoFromContext(r.Context()); info != nil {
		return r, info
	}
	info := &RequestInfo{}
	return r.WithContext(context.WithValue(r.Context(), ctxKeyRequestInfo, info)), info
}

// RecordRoute stores the matched route and service on the holder in
// ctx. It is a no-op when no holder is present.
func RecordRoute(ctx context.Context, route, service string) {
	if info := RequestInfoFromContext(ctx); info != nil {
		info.Route = route
		info.Service = service
	}
}

// RouteFromContext returns the matched route prefix, or "".
func RouteFromContext(ctx context.Context) string {
	if info := RequestInfoFromContext(ctx); info != nil {
		return info.Route
	}
	return ""
}

// ServiceFromContext returns the matched upstream service name, or "".
func ServiceFromContext(ctx context.Context) string {
	if info := RequestInfoFromContext(ctx); info != nil {
		return info.Service
	}
	return ""
}
