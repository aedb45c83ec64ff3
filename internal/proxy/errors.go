package proxy

import (
	"context"
	"errors"
	"fmt"
	"net"
	"syscall"

	"github.com/sony/gobreaker"

	"github.com/fittrack/apigw/internal/util"
)

// Sentinel errors for proxy operations.
var (
	// ErrUpstreamTimeout indicates that the upstream did not answer in time.
	ErrUpstreamTimeout = errors.New("upstream request timed out")

	// ErrUpstreamUnavailable indicates that the upstream could not be reached.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
)

// Failure reasons used as metric labels and log fields.
const (
	ReasonTimeout           = "timeout"
	ReasonConnectionRefused = "connection_refused"
	ReasonDNS               = "dns"
	ReasonCircuitOpen       = "circuit_open"
	ReasonCanceled          = "canceled"
	ReasonOther             = "other"
)

// UpstreamError describes a failed forwarding attempt.
type UpstreamError struct {
	Service  string // Display name of the upstream service
	Upstream string // Upstream base URL
	Reason   string // One of the Reason* constants
	Cause    error  // Underlying transport error
}

// Error implements the error interface.
func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream %s (%s) failed [%s]: %v", e.Service, e.Upstream, e.Reason, e.Cause)
}

// Unwrap returns the underlying error.
func (e *UpstreamError) Unwrap() error {
	return e.Cause
}

// Is checks if the error matches the target.
func (e *UpstreamError) Is(target error) bool {
	switch target {
	case ErrUpstreamUnavailable, util.ErrBackendUnavail:
		return true
	case ErrUpstreamTimeout, util.ErrTimeout:
		return e.Reason == ReasonTimeout
	case util.ErrCircuitOpen:
		return e.Reason == ReasonCircuitOpen
	}
	_, ok := target.(*UpstreamError)
	return ok
}

// NewUpstreamError classifies cause and wraps it.
func NewUpstreamError(service, upstream string, cause error) *UpstreamError {
	return &UpstreamError{
		Service:  service,
		Upstream: upstream,
		Reason:   classifyError(cause),
		Cause:    cause,
	}
}

// IsUpstreamError checks if an error is an UpstreamError.
func IsUpstreamError(err error) bool {
	var upstreamErr *UpstreamError
	return errors.As(err, &upstreamErr)
}

// classifyError maps a transport error to a failure reason.
func classifyError(err error) string {
	if err == nil {
		return ReasonOther
	}

	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return ReasonCircuitOpen
	}
	if errors.Is(err, context.Canceled) {
		return ReasonCanceled
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ReasonTimeout
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		if dnsErr.IsTimeout {
			return ReasonTimeout
		}
		return ReasonDNS
	}

	if errors.Is(err, syscall.ECONNREFUSED) {
		return ReasonConnectionRefused
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ReasonTimeout
	}

	return ReasonOther
}
