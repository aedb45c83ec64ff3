package middleware

// HTTP header constants.
const (
	// HeaderContentType is the Content-Type header name.
	HeaderContentType = "Content-Type"

	// HeaderRetryAfter is the Retry-After header name.
	HeaderRetryAfter = "Retry-After"

	// HeaderOrigin is the Origin header name.
	HeaderOrigin = "Origin"

	// HeaderXRequestID is the X-Request-ID header name.
	HeaderXRequestID = "X-Request-ID"
)

// ContentTypeJSON is the JSON content type.
const ContentTypeJSON = "application/json; charset=utf-8"

// Error response bodies.
const (
	// ErrInternalServer is written when a handler panics.
	ErrInternalServer = `{"error":"internal server error"}`

	// ErrRateLimitExceeded is written when a request is throttled.
	ErrRateLimitExceeded = `{"error":"Too Many Requests","message":"rate limit exceeded"}`
)

// unmatchedService labels requests that did not reach an upstream.
const unmatchedService = "gateway"
