package proxy

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/sony/gobreaker"

	"github.com/fittrack/apigw/internal/config"
	"github.com/fittrack/apigw/internal/observability"
)

// NewTransport creates the pooled transport shared by all forwarders.
// The upstream timeout bounds dialing and the wait for response
// headers; it does not limit how long a response body may stream.
func NewTransport(cfg config.UpstreamConfig) *http.Transport {
	timeout := cfg.Timeout.Duration()
	if timeout <= 0 {
		timeout = config.DefaultUpstreamTimeout
	}

	maxIdle := cfg.MaxIdleConns
	if maxIdle <= 0 {
		maxIdle = config.DefaultMaxIdleConns
	}

	idleTimeout := cfg.IdleConnTimeout.Duration()
	if idleTimeout <= 0 {
		idleTimeout = config.DefaultIdleConnTimeout
	}

	dialer := &net.Dialer{
		Timeout:   timeout,
		KeepAlive: 30 * time.Second,
	}

	return &http.Transport{
		Proxy:                 nil,
		DialContext:           dialer.DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          maxIdle,
		MaxIdleConnsPerHost:   maxIdle,
		IdleConnTimeout:       idleTimeout,
		TLSHandshakeTimeout:   timeout,
		ResponseHeaderTimeout: timeout,
		ExpectContinueTimeout: time.Second,
	}
}

// breakerTransport guards an upstream with a circuit breaker. Only
// transport errors count as failures; any HTTP response, including
// 5xx, is a success from the breaker's point of view.
type breakerTransport struct {
	next http.RoundTripper
	cb   *gobreaker.CircuitBreaker
}

// newBreakerTransport creates a breaker for one service.
func newBreakerTransport(
	service string,
	next http.RoundTripper,
	cfg config.CircuitBreakerConfig,
	logger observability.Logger,
	metrics *proxyMetrics,
) *breakerTransport {
	threshold := safeIntToUint32(cfg.Threshold)

	settings := gobreaker.Settings{
		Name:        service,
		MaxRequests: 1,
		Timeout:     cfg.Timeout.Duration(),
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("circuit breaker state change",
				observability.String("service", name),
				observability.String("from", from.String()),
				observability.String("to", to.String()),
			)
			metrics.breakerState.WithLabelValues(name).Set(float64(to))
		},
	}

	metrics.breakerState.WithLabelValues(service).Set(float64(gobreaker.StateClosed))

	return &breakerTransport{
		next: next,
		cb:   gobreaker.NewCircuitBreaker(settings),
	}
}

// RoundTrip implements http.RoundTripper.
func (t *breakerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	result, err := t.cb.Execute(func() (interface{}, error) {
		return t.next.RoundTrip(req)
	})
	if err != nil {
		return nil, err
	}
	return result.(*http.Response), nil
}

// State returns the current breaker state.
func (t *breakerTransport) State() gobreaker.State {
	return t.cb.State()
}

// safeIntToUint32 safely converts int to uint32.
func safeIntToUint32(n int) uint32 {
	if n < 0 {
		return 0
	}
	if n > int(^uint32(0)) {
		return ^uint32(0)
	}
	return uint32(n) //nolint:gosec // bounds checked above
}
