package gateway

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/fittrack/apigw/internal/config"
	"github.com/fittrack/apigw/internal/health"
	"github.com/fittrack/apigw/internal/middleware"
	"github.com/fittrack/apigw/internal/observability"
	"github.com/fittrack/apigw/internal/proxy"
	"github.com/fittrack/apigw/internal/router"
)

// State represents the gateway state.
type State int32

const (
	// StateStopped indicates the gateway is stopped.
	StateStopped State = iota
	// StateStarting indicates the gateway is starting.
	StateStarting
	// StateRunning indicates the gateway is running.
	StateRunning
	// StateStopping indicates the gateway is stopping.
	StateStopping
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateStopped:
		return "stopped"
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	default:
		return "unknown"
	}
}

// Gateway is the main API Gateway struct.
type Gateway struct {
	config    *config.Config
	logger    observability.Logger
	version   string
	address   string
	router    *router.Router
	proxy     *proxy.ReverseProxy
	checker   *health.Checker
	engine    *gin.Engine
	handler   http.Handler
	transport http.RoundTripper
	metrics   *observability.Metrics
	tracer    *observability.Tracer
	listener  *Listener
	state     atomic.Int32
	startTime time.Time

	shutdownTimeout time.Duration
}

// Option is a functional option for configuring the gateway.
type Option func(*Gateway)

// WithLogger sets the logger for the gateway.
func WithLogger(logger observability.Logger) Option {
	return func(g *Gateway) {
		g.logger = logger
	}
}

// WithVersion sets the version reported by / and /health.
func WithVersion(version string) Option {
	return func(g *Gateway) {
		g.version = version
	}
}

// WithAddress overrides the listen address derived from the port.
func WithAddress(address string) Option {
	return func(g *Gateway) {
		g.address = address
	}
}

// WithTransport sets the upstream round tripper shared by all routes.
func WithTransport(transport http.RoundTripper) Option {
	return func(g *Gateway) {
		g.transport = transport
	}
}

// WithMetrics enables request metrics and registers the proxy metrics
// on the metrics registry.
func WithMetrics(metrics *observability.Metrics) Option {
	return func(g *Gateway) {
		g.metrics = metrics
	}
}

// WithTracer enables server spans and outbound trace propagation.
func WithTracer(tracer *observability.Tracer) Option {
	return func(g *Gateway) {
		g.tracer = tracer
	}
}

// WithShutdownTimeout sets the shutdown timeout.
func WithShutdownTimeout(timeout time.Duration) Option {
	return func(g *Gateway) {
		g.shutdownTimeout = timeout
	}
}

// New builds the route table, the proxy and the HTTP handler. Route
// table errors are wrapped in ErrInvalidConfig and are fatal.
func New(cfg *config.Config, opts ...Option) (*Gateway, error) {
	if cfg == nil {
		return nil, ErrNilConfig
	}

	g := &Gateway{
		config:          cfg,
		logger:          observability.NopLogger(),
		version:         "dev",
		address:         net.JoinHostPort("", strconv.Itoa(cfg.Port)),
		shutdownTimeout: cfg.ShutdownTimeout.Duration(),
	}

	for _, opt := range opts {
		opt(g)
	}

	if g.shutdownTimeout <= 0 {
		g.shutdownTimeout = config.DefaultShutdownTimeout
	}

	rt, err := router.New(cfg.Services, router.WithLogger(g.logger))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	g.router = rt

	if g.transport == nil {
		g.transport = proxy.NewTransport(cfg.Upstream)
	}

	proxyOpts := []proxy.ProxyOption{
		proxy.WithProxyLogger(g.logger),
		proxy.WithTransport(g.transport),
	}
	if g.metrics != nil {
		proxyOpts = append(proxyOpts, proxy.WithMetricsRegisterer(g.metrics.Registry()))
	}
	if cfg.CircuitBreaker.Enabled {
		proxyOpts = append(proxyOpts, proxy.WithCircuitBreaker(cfg.CircuitBreaker))
	}
	g.proxy = proxy.NewReverseProxy(rt, proxyOpts...)

	g.checker = health.NewChecker(g.version, health.WithLogger(g.logger))
	for _, check := range health.UpstreamChecks(rt.Routes()) {
		g.checker.RegisterCheck(check)
	}

	g.engine = g.newEngine()
	g.handler = g.buildHandler(g.engine)
	g.state.Store(int32(StateStopped))

	return g, nil
}

// newEngine registers the fixed endpoints and hands everything else to
// the dispatcher.
func (g *Gateway) newEngine() *gin.Engine {
	engine := gin.New()
	engine.RedirectTrailingSlash = false
	engine.RedirectFixedPath = false

	g.checker.RegisterRoutes(engine)
	engine.GET("/", g.infoHandler())
	engine.NoRoute(dispatch(g.proxy))

	return engine
}

// dispatch adapts the proxy to gin. The status is committed afterwards
// so gin never appends its own 404 body to an empty upstream 404.
func dispatch(h http.Handler) gin.HandlerFunc {
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
		c.Writer.WriteHeaderNow()
	}
}

// buildHandler wraps the engine with the middleware chain, outermost
// first: recovery, request ID, tracing, metrics, access log, CORS and
// rate limiting.
func (g *Gateway) buildHandler(engine http.Handler) http.Handler {
	h := engine

	h = middleware.RateLimitFromConfig(g.config.RateLimit, g.logger)(h)

	if g.config.CORS.Enabled {
		h = middleware.CORS(g.config.CORS)(h)
	}

	h = middleware.Logging(g.logger)(h)

	if g.metrics != nil {
		h = observability.MetricsMiddleware(g.metrics)(h)
	}
	if g.tracer != nil {
		h = observability.TracingMiddleware(g.tracer)(h)
	}

	h = middleware.RequestID()(h)
	h = middleware.Recovery(g.logger)(h)

	return h
}

// Handler returns the complete HTTP handler, middleware included.
func (g *Gateway) Handler() http.Handler {
	return g.handler
}

// Router returns the route table.
func (g *Gateway) Router() *router.Router {
	return g.router
}

// Checker returns the health checker.
func (g *Gateway) Checker() *health.Checker {
	return g.checker
}

// Engine returns the gin engine.
func (g *Gateway) Engine() *gin.Engine {
	return g.engine
}

// Start starts serving on the configured address.
func (g *Gateway) Start(ctx context.Context) error {
	if !g.state.CompareAndSwap(int32(StateStopped), int32(StateStarting)) {
		return ErrGatewayNotStopped
	}

	g.logger.Info("starting gateway",
		observability.String("name", g.config.Name),
		observability.String("version", g.version),
		observability.String("address", g.address),
	)

	for _, route := range g.router.Routes() {
		g.logger.Info("route registered",
			observability.String("prefix", route.PathPrefix),
			observability.String("service", route.ServiceName),
			observability.String("upstream", route.Upstream.String()),
			observability.Bool("strip_prefix", route.StripPrefix),
		)
	}

	g.listener = NewListener(g.config.Name, g.address, g.handler, WithListenerLogger(g.logger))
	if err := g.listener.Start(ctx); err != nil {
		g.state.Store(int32(StateStopped))
		return fmt.Errorf("failed to start listener %s: %w", g.listener.Name(), err)
	}

	g.startTime = time.Now()
	g.state.Store(int32(StateRunning))

	g.logger.Info("gateway started",
		observability.String("name", g.config.Name),
		observability.String("address", g.listener.Addr().String()),
	)

	return nil
}

// Stop stops the gateway gracefully. Without a deadline on ctx the
// shutdown timeout applies.
func (g *Gateway) Stop(ctx context.Context) error {
	if !g.state.CompareAndSwap(int32(StateRunning), int32(StateStopping)) {
		return ErrGatewayNotRunning
	}

	g.logger.Info("stopping gateway",
		observability.String("name", g.config.Name),
	)

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.shutdownTimeout)
		defer cancel()
	}

	err := g.listener.Stop(ctx)
	if err != nil {
		g.logger.Error("failed to stop listener",
			observability.String("name", g.listener.Name()),
			observability.Error(err),
		)
	}

	g.state.Store(int32(StateStopped))

	g.logger.Info("gateway stopped",
		observability.String("name", g.config.Name),
	)

	return err
}

// State returns the current gateway state.
func (g *Gateway) State() State {
	return State(g.state.Load())
}

// IsRunning returns true if the gateway is running.
func (g *Gateway) IsRunning() bool {
	return g.State() == StateRunning
}

// Addr returns the bound listen address, or nil when not started.
func (g *Gateway) Addr() net.Addr {
	if g.listener == nil {
		return nil
	}
	return g.listener.Addr()
}

// Uptime returns the gateway uptime.
func (g *Gateway) Uptime() time.Duration {
	if g.startTime.IsZero() {
		return 0
	}
	return time.Since(g.startTime)
}

// Config returns the configuration the gateway was built from.
func (g *Gateway) Config() *config.Config {
	return g.config
}
