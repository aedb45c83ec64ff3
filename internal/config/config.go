package config

import "time"

// Default values.
const (
	DefaultName            = "api-gateway"
	DefaultPort            = 3000
	DefaultUpstreamTimeout = 10 * time.Second
	DefaultShutdownTimeout = 30 * time.Second
	DefaultMetricsPort     = 9090
	DefaultMetricsPath     = "/metrics"
	DefaultMaxIdleConns    = 100
	DefaultIdleConnTimeout = 90 * time.Second
)

// Config holds all configuration settings for the API Gateway.
type Config struct {
	Name            string               `yaml:"name" json:"name"`
	Port            int                  `yaml:"port" json:"port"`
	ShutdownTimeout Duration             `yaml:"shutdownTimeout" json:"shutdownTimeout"`
	Services        []ServiceConfig      `yaml:"services" json:"services"`
	Upstream        UpstreamConfig       `yaml:"upstream" json:"upstream"`
	Logging         LoggingConfig        `yaml:"logging" json:"logging"`
	Metrics         MetricsConfig        `yaml:"metrics" json:"metrics"`
	Tracing         TracingConfig        `yaml:"tracing" json:"tracing"`
	CORS            CORSConfig           `yaml:"cors" json:"cors"`
	RateLimit       RateLimitConfig      `yaml:"rateLimit" json:"rateLimit"`
	CircuitBreaker  CircuitBreakerConfig `yaml:"circuitBreaker" json:"circuitBreaker"`
}

// ServiceConfig describes one upstream service and the path prefix
// routed to it.
type ServiceConfig struct {
	// Key is the short identifier used in the info endpoint (e.g. "auth").
	Key string `yaml:"key" json:"key"`

	// Name is the display name used in 503 responses (e.g. "Auth").
	Name string `yaml:"name" json:"name"`

	// Prefix is the inbound path prefix (e.g. "/api/auth").
	Prefix string `yaml:"prefix" json:"prefix"`

	// URL is the upstream base URL.
	URL string `yaml:"url" json:"url"`

	// EnvVar names the environment variable overriding URL.
	EnvVar string `yaml:"envVar,omitempty" json:"envVar,omitempty"`

	// StripPrefix removes Prefix before forwarding. Defaults to true.
	StripPrefix *bool `yaml:"stripPrefix,omitempty" json:"stripPrefix,omitempty"`

	// DocsPath is appended to URL for the informational docs link.
	DocsPath string `yaml:"docsPath,omitempty" json:"docsPath,omitempty"`
}

// ShouldStripPrefix reports whether the prefix is removed before forwarding.
func (s ServiceConfig) ShouldStripPrefix() bool {
	return s.StripPrefix == nil || *s.StripPrefix
}

// UpstreamConfig configures the shared upstream transport.
type UpstreamConfig struct {
	// Timeout bounds dialing and waiting for response headers.
	Timeout         Duration `yaml:"timeout" json:"timeout"`
	MaxIdleConns    int      `yaml:"maxIdleConns" json:"maxIdleConns"`
	IdleConnTimeout Duration `yaml:"idleConnTimeout" json:"idleConnTimeout"`
}

// LoggingConfig configures the logger.
type LoggingConfig struct {
	Level  string `yaml:"level" json:"level"`
	Format string `yaml:"format" json:"format"`
	Output string `yaml:"output" json:"output"`
}

// MetricsConfig configures the Prometheus listener.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Port    int    `yaml:"port" json:"port"`
	Path    string `yaml:"path" json:"path"`
}

// TracingConfig configures OpenTelemetry tracing.
type TracingConfig struct {
	Enabled      bool    `yaml:"enabled" json:"enabled"`
	OTLPEndpoint string  `yaml:"otlpEndpoint" json:"otlpEndpoint"`
	SamplingRate float64 `yaml:"samplingRate" json:"samplingRate"`
	ServiceName  string  `yaml:"serviceName" json:"serviceName"`
}

// CORSConfig configures cross-origin handling for the browser client.
type CORSConfig struct {
	Enabled          bool     `yaml:"enabled" json:"enabled"`
	AllowOrigins     []string `yaml:"allowOrigins" json:"allowOrigins"`
	AllowMethods     []string `yaml:"allowMethods" json:"allowMethods"`
	AllowHeaders     []string `yaml:"allowHeaders" json:"allowHeaders"`
	ExposeHeaders    []string `yaml:"exposeHeaders" json:"exposeHeaders"`
	AllowCredentials bool     `yaml:"allowCredentials" json:"allowCredentials"`
	MaxAge           int      `yaml:"maxAge" json:"maxAge"`
}

// RateLimitConfig configures the token bucket limiter.
type RateLimitConfig struct {
	Enabled   bool `yaml:"enabled" json:"enabled"`
	RPS       int  `yaml:"rps" json:"rps"`
	Burst     int  `yaml:"burst" json:"burst"`
	PerClient bool `yaml:"perClient" json:"perClient"`
}

// CircuitBreakerConfig configures per-upstream circuit breakers.
type CircuitBreakerConfig struct {
	Enabled   bool     `yaml:"enabled" json:"enabled"`
	Threshold int      `yaml:"threshold" json:"threshold"`
	Timeout   Duration `yaml:"timeout" json:"timeout"`
}

// DefaultServices returns the six fitness-tracker upstreams in routing
// order.
func DefaultServices() []ServiceConfig {
	return []ServiceConfig{
		{Key: "auth", Name: "Auth", Prefix: "/api/auth", URL: "http://localhost:3001", EnvVar: "AUTH_SERVICE_URL"},
		{Key: "workouts", Name: "Workouts", Prefix: "/api/workouts", URL: "http://localhost:3002", EnvVar: "WORKOUTS_SERVICE_URL"},
		{Key: "nutrition", Name: "Nutrition", Prefix: "/api/nutrition", URL: "http://localhost:3003", EnvVar: "NUTRITION_SERVICE_URL"},
		{Key: "pr", Name: "PR", Prefix: "/api/pr", URL: "http://localhost:3004", EnvVar: "PR_SERVICE_URL"},
		{Key: "templates", Name: "Templates", Prefix: "/api/templates", URL: "http://localhost:3005", EnvVar: "TEMPLATES_SERVICE_URL"},
		{Key: "chatbot", Name: "Chatbot", Prefix: "/api/chatbot", URL: "http://localhost:3006", EnvVar: "CHATBOT_SERVICE_URL"},
	}
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		Name:            DefaultName,
		Port:            DefaultPort,
		ShutdownTimeout: Duration(DefaultShutdownTimeout),
		Services:        DefaultServices(),
		Upstream: UpstreamConfig{
			Timeout:         Duration(DefaultUpstreamTimeout),
			MaxIdleConns:    DefaultMaxIdleConns,
			IdleConnTimeout: Duration(DefaultIdleConnTimeout),
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Metrics: MetricsConfig{
			Port: DefaultMetricsPort,
			Path: DefaultMetricsPath,
		},
		Tracing: TracingConfig{
			SamplingRate: 1.0,
			ServiceName:  DefaultName,
		},
		CORS: CORSConfig{
			AllowOrigins: []string{"*"},
			AllowMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders: []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID"},
			MaxAge:       86400,
		},
		RateLimit: RateLimitConfig{
			RPS:   100,
			Burst: 200,
		},
		CircuitBreaker: CircuitBreakerConfig{
			Threshold: 5,
			Timeout:   Duration(30 * time.Second),
		},
	}
}

// DocsURL returns the informational documentation URL of a service.
func (s ServiceConfig) DocsURL() string {
	path := s.DocsPath
	if path == "" {
		path = "/api-docs"
	}
	return trimTrailingSlash(s.URL) + path
}

func trimTrailingSlash(s string) string {
	for len(s) > 0 && s[len(s)-1] == '/' {
		s = s[:len(s)-1]
	}
	return s
}
