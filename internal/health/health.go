package health

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"github.com/fittrack/apigw/internal/observability"
)

// Status represents the health status.
type Status string

const (
	// StatusOK is reported by /health while the process serves requests.
	StatusOK Status = "OK"
	// StatusHealthy indicates the check passed.
	StatusHealthy Status = "healthy"
	// StatusUnhealthy indicates the check failed.
	StatusUnhealthy Status = "unhealthy"
	// StatusDegraded indicates at least one upstream is unreachable.
	StatusDegraded Status = "degraded"
)

// ServiceName is reported by /health.
const ServiceName = "API Gateway"

// DefaultCheckTimeout bounds a single readiness check.
const DefaultCheckTimeout = 2 * time.Second

// timestampLayout renders millisecond ISO 8601 timestamps in UTC.
const timestampLayout = "2006-01-02T15:04:05.000Z07:00"

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status        Status  `json:"status"`
	Service       string  `json:"service"`
	Timestamp     string  `json:"timestamp"`
	UptimeSeconds float64 `json:"uptimeSeconds"`
}

// ReadinessResponse represents the readiness check response.
type ReadinessResponse struct {
	Status    Status           `json:"status"`
	Checks    map[string]Check `json:"checks"`
	Timestamp string           `json:"timestamp"`
}

// Check represents an individual check result.
type Check struct {
	Status  Status `json:"status"`
	Target  string `json:"target,omitempty"`
	Message string `json:"message,omitempty"`
}

// Checker provides health and readiness checking functionality.
type Checker struct {
	version   string
	startTime time.Time
	timeout   time.Duration
	logger    observability.Logger
	metrics   *HealthMetrics
	checks    []*DependencyCheck
	mu        sync.RWMutex
}

// CheckerOption is a functional option for configuring the checker.
type CheckerOption func(*Checker)

// WithLogger sets the logger for failed checks.
func WithLogger(logger observability.Logger) CheckerOption {
	return func(c *Checker) {
		c.logger = logger
	}
}

// WithCheckTimeout sets the per-check timeout.
func WithCheckTimeout(timeout time.Duration) CheckerOption {
	return func(c *Checker) {
		c.timeout = timeout
	}
}

// NewChecker creates a new health checker. Uptime is measured from now.
func NewChecker(version string, opts ...CheckerOption) *Checker {
	c := &Checker{
		version:   version,
		startTime: time.Now(),
		timeout:   DefaultCheckTimeout,
		logger:    observability.NopLogger(),
		metrics:   GetHealthMetrics(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// RegisterCheck adds a readiness check. Checks are reported by name.
func (c *Checker) RegisterCheck(check *DependencyCheck) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.checks = append(c.checks, check)
}

// Version returns the gateway version reported by the checker.
func (c *Checker) Version() string {
	return c.version
}

// Uptime returns the time since the checker was created.
func (c *Checker) Uptime() time.Duration {
	return time.Since(c.startTime)
}

// Health returns the health status.
func (c *Checker) Health() HealthResponse {
	return HealthResponse{
		Status:        StatusOK,
		Service:       ServiceName,
		Timestamp:     formatTimestamp(time.Now()),
		UptimeSeconds: c.Uptime().Seconds(),
	}
}

// Readiness runs all registered checks concurrently.
func (c *Checker) Readiness(ctx context.Context) ReadinessResponse {
	c.mu.RLock()
	checks := make([]*DependencyCheck, len(c.checks))
	copy(checks, c.checks)
	c.mu.RUnlock()

	results := make([]Check, len(checks))

	var g errgroup.Group
	for i, check := range checks {
		g.Go(func() error {
			checkCtx, cancel := context.WithTimeout(ctx, c.timeout)
			defer cancel()

			result := Check{Status: StatusHealthy, Target: check.Target()}
			if err := check.Check(checkCtx); err != nil {
				result.Status = StatusUnhealthy
				result.Message = err.Error()
				c.logger.Warn("readiness check failed",
					observability.String("check", check.Name()),
					observability.String("target", check.Target()),
					observability.Error(err),
				)
			}
			c.metrics.checksTotal.WithLabelValues(check.Name(), string(result.Status)).Inc()
			results[i] = result
			return nil
		})
	}
	_ = g.Wait()

	response := ReadinessResponse{
		Status:    StatusHealthy,
		Checks:    make(map[string]Check, len(checks)),
		Timestamp: formatTimestamp(time.Now()),
	}
	for i, check := range checks {
		response.Checks[check.Name()] = results[i]
		if results[i].Status != StatusHealthy {
			response.Status = StatusDegraded
		}
	}

	return response
}

// HealthHandler returns a gin handler for /health.
func (c *Checker) HealthHandler() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, c.Health())
	}
}

// ReadinessHandler returns a gin handler for /ready. It always answers
// 200; upstream failures show up as a degraded status.
func (c *Checker) ReadinessHandler() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, c.Readiness(ctx.Request.Context()))
	}
}

// LivenessHandler returns a gin handler for /live.
func (c *Checker) LivenessHandler() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}

// RegisterRoutes mounts /health, /ready and /live.
func (c *Checker) RegisterRoutes(routes gin.IRoutes) {
	routes.GET("/health", c.HealthHandler())
	routes.GET("/ready", c.ReadinessHandler())
	routes.GET("/live", c.LivenessHandler())
}

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}
