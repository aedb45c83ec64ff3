package proxy

import (
	"net/http"
	"net/http/httputil"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/fittrack/apigw/internal/config"
	"github.com/fittrack/apigw/internal/observability"
	"github.com/fittrack/apigw/internal/router"
	"github.com/fittrack/apigw/internal/util"
)

// ReverseProxy dispatches requests to the forwarder of the matched route.
type ReverseProxy struct {
	router     *router.Router
	forwarders map[*router.Route]*forwarder
	logger     observability.Logger
	transport  http.RoundTripper
	registerer prometheus.Registerer
	breaker    *config.CircuitBreakerConfig
	metrics    *proxyMetrics
}

// ProxyOption is a functional option for configuring the proxy.
type ProxyOption func(*ReverseProxy)

// WithProxyLogger sets the logger for the proxy.
func WithProxyLogger(logger observability.Logger) ProxyOption {
	return func(p *ReverseProxy) {
		p.logger = logger
	}
}

// WithTransport sets the transport shared by all forwarders.
func WithTransport(transport http.RoundTripper) ProxyOption {
	return func(p *ReverseProxy) {
		p.transport = transport
	}
}

// WithMetricsRegisterer sets the registerer for proxy metrics.
func WithMetricsRegisterer(registerer prometheus.Registerer) ProxyOption {
	return func(p *ReverseProxy) {
		p.registerer = registerer
	}
}

// WithCircuitBreaker enables a circuit breaker per upstream service.
func WithCircuitBreaker(cfg config.CircuitBreakerConfig) ProxyOption {
	return func(p *ReverseProxy) {
		p.breaker = &cfg
	}
}

// NewReverseProxy creates a proxy with one forwarder per route.
func NewReverseProxy(r *router.Router, opts ...ProxyOption) *ReverseProxy {
	p := &ReverseProxy{
		router: r,
		logger: observability.NopLogger(),
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.transport == nil {
		p.transport = NewTransport(config.UpstreamConfig{})
	}
	p.metrics = newProxyMetrics(p.registerer)

	routes := r.Routes()
	p.forwarders = make(map[*router.Route]*forwarder, len(routes))
	for _, route := range routes {
		p.forwarders[route] = p.newForwarder(route)
	}

	return p
}

// ServeHTTP implements http.Handler.
func (p *ReverseProxy) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	route, err := p.router.Match(r.URL.Path)
	if err != nil {
		p.handleRouteNotFound(w, r, err)
		return
	}

	util.RecordRoute(r.Context(), route.PathPrefix, route.ServiceName)
	p.forwarders[route].ServeHTTP(w, r)
}

// notFoundResponse is the body returned for unmatched paths.
type notFoundResponse struct {
	Error           string   `json:"error"`
	Message         string   `json:"message"`
	AvailableRoutes []string `json:"availableRoutes"`
}

// handleRouteNotFound writes the 404 listing the configured prefixes.
func (p *ReverseProxy) handleRouteNotFound(w http.ResponseWriter, r *http.Request, err error) {
	p.logger.WithContext(r.Context()).Debug("route not found",
		observability.String("method", r.Method),
		observability.String("path", r.URL.Path),
		observability.Error(err),
	)

	util.WriteJSON(w, http.StatusNotFound, notFoundResponse{
		Error:           "Not Found",
		Message:         "Route " + r.URL.Path + " not found",
		AvailableRoutes: p.router.Prefixes(),
	})
}

// BreakerState returns the circuit breaker state of a service, or false
// when breaking is disabled or the service is unknown.
func (p *ReverseProxy) BreakerState(service string) (string, bool) {
	for route, f := range p.forwarders {
		if route.ServiceName == service && f.breaker != nil {
			return f.breaker.State().String(), true
		}
	}
	return "", false
}

// forwarder proxies requests for a single route.
type forwarder struct {
	route   *router.Route
	proxy   *httputil.ReverseProxy
	breaker *breakerTransport
	logger  observability.Logger
	metrics *proxyMetrics
}

func (p *ReverseProxy) newForwarder(route *router.Route) *forwarder {
	f := &forwarder{
		route:   route,
		logger:  p.logger.With(observability.String("service", route.ServiceName)),
		metrics: p.metrics,
	}

	transport := p.transport
	if p.breaker != nil && p.breaker.Enabled {
		f.breaker = newBreakerTransport(route.ServiceName, transport, *p.breaker, p.logger, p.metrics)
		transport = f.breaker
	}

	f.proxy = &httputil.ReverseProxy{
		Rewrite:        f.rewrite,
		Transport:      transport,
		FlushInterval:  -1, // flush immediately
		ErrorHandler:   f.handleError,
		ModifyResponse: f.recordResponse,
	}

	p.metrics.initServiceLabels(route.ServiceName)

	return f
}

// ServeHTTP implements http.Handler.
func (f *forwarder) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if util.StartTimeFromContext(r.Context()).IsZero() {
		r = r.WithContext(util.ContextWithStartTime(r.Context(), time.Now()))
	}
	f.proxy.ServeHTTP(w, r)
}

// rewrite builds the outbound request: prefix stripped, upstream base
// URL joined, Host set to the upstream and X-Forwarded-* appended.
func (f *forwarder) rewrite(pr *httputil.ProxyRequest) {
	f.route.RewriteURL(pr.Out.URL)
	pr.SetURL(f.route.Upstream)

	// Keep an existing X-Forwarded-For chain; SetXForwarded appends.
	if prior, ok := pr.In.Header["X-Forwarded-For"]; ok {
		pr.Out.Header["X-Forwarded-For"] = prior
	}
	pr.SetXForwarded()

	observability.InjectTraceContext(pr.Out.Context(), pr.Out.Header)
}

// recordResponse counts the upstream response; it never alters it.
func (f *forwarder) recordResponse(resp *http.Response) error {
	service := f.route.ServiceName
	f.metrics.upstreamRequests.WithLabelValues(service, strconv.Itoa(resp.StatusCode)).Inc()
	if resp.Request != nil {
		f.metrics.upstreamDuration.WithLabelValues(service).
			Observe(util.ElapsedTime(resp.Request.Context()).Seconds())
	}
	return nil
}

// unavailableResponse is the body returned when the upstream fails.
type unavailableResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// handleError answers a failed forwarding attempt with a 503.
func (f *forwarder) handleError(w http.ResponseWriter, r *http.Request, err error) {
	upstreamErr := NewUpstreamError(f.route.ServiceName, f.route.Upstream.String(), err)
	f.metrics.upstreamErrors.WithLabelValues(upstreamErr.Service, upstreamErr.Reason).Inc()

	logger := f.logger.WithContext(r.Context())
	fields := []observability.Field{
		observability.String("upstream", upstreamErr.Upstream),
		observability.String("reason", upstreamErr.Reason),
		observability.String("method", r.Method),
		observability.String("path", r.URL.Path),
		observability.Error(err),
	}
	if upstreamErr.Reason == ReasonCanceled {
		logger.Debug("client canceled upstream request", fields...)
	} else {
		logger.Error("upstream request failed", fields...)
	}

	util.WriteJSON(w, http.StatusServiceUnavailable, unavailableResponse{
		Error:   f.route.ServiceName + " Service unavailable",
		Message: err.Error(),
	})
}
