package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/fittrack/apigw/internal/util"
)

// Environment variable names other than the per-service *_SERVICE_URL
// variables, which live on ServiceConfig.EnvVar.
const (
	EnvConfigPath            = "GATEWAY_CONFIG_PATH"
	EnvPort                  = "PORT"
	EnvUpstreamTimeout       = "GATEWAY_UPSTREAM_TIMEOUT"
	EnvShutdownTimeout       = "GATEWAY_SHUTDOWN_TIMEOUT"
	EnvLogLevel              = "GATEWAY_LOG_LEVEL"
	EnvLogFormat             = "GATEWAY_LOG_FORMAT"
	EnvMetricsEnabled        = "GATEWAY_METRICS_ENABLED"
	EnvMetricsPort           = "GATEWAY_METRICS_PORT"
	EnvTracingEnabled        = "GATEWAY_TRACING_ENABLED"
	EnvOTLPEndpoint          = "GATEWAY_OTLP_ENDPOINT"
	EnvTracingSamplingRate   = "GATEWAY_TRACING_SAMPLING_RATE"
	EnvCORSEnabled           = "GATEWAY_CORS_ENABLED"
	EnvCORSOrigins           = "GATEWAY_CORS_ORIGINS"
	EnvRateLimitEnabled      = "GATEWAY_RATE_LIMIT_ENABLED"
	EnvRateLimitRPS          = "GATEWAY_RATE_LIMIT_RPS"
	EnvRateLimitBurst        = "GATEWAY_RATE_LIMIT_BURST"
	EnvCircuitBreakerEnabled = "GATEWAY_CIRCUIT_BREAKER_ENABLED"
)

// envReader reads typed values and keeps the first parse error.
type envReader struct {
	lookup LookupFunc
	err    error
}

func (r *envReader) get(key string) (string, bool) {
	value, ok := r.lookup(key)
	if !ok || strings.TrimSpace(value) == "" {
		return "", false
	}
	return strings.TrimSpace(value), true
}

func (r *envReader) fail(key, value string, cause error) {
	if r.err == nil {
		r.err = util.NewConfigErrorWithCause(key, fmt.Sprintf("invalid value %q", value), cause)
	}
}

func (r *envReader) string(key string, dst *string) {
	if value, ok := r.get(key); ok {
		*dst = value
	}
}

func (r *envReader) int(key string, dst *int) {
	value, ok := r.get(key)
	if !ok {
		return
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		r.fail(key, value, err)
		return
	}
	*dst = n
}

func (r *envReader) float(key string, dst *float64) {
	value, ok := r.get(key)
	if !ok {
		return
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		r.fail(key, value, err)
		return
	}
	*dst = f
}

// bool accepts true/false, 1/0, yes/no and on/off, case-insensitively.
func (r *envReader) bool(key string, dst *bool) {
	value, ok := r.get(key)
	if !ok {
		return
	}
	switch strings.ToLower(value) {
	case "true", "1", "yes", "on":
		*dst = true
	case "false", "0", "no", "off":
		*dst = false
	default:
		r.fail(key, value, fmt.Errorf("not a boolean"))
	}
}

func (r *envReader) duration(key string, dst *Duration) {
	value, ok := r.get(key)
	if !ok {
		return
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		r.fail(key, value, err)
		return
	}
	*dst = Duration(d)
}

func (r *envReader) list(key string, dst *[]string) {
	value, ok := r.get(key)
	if !ok {
		return
	}
	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	*dst = items
}

// ApplyEnv overrides cfg with values from the environment. Unset or
// blank variables leave the current value in place.
func ApplyEnv(cfg *Config, lookup LookupFunc) error {
	r := &envReader{lookup: lookup}

	r.int(EnvPort, &cfg.Port)

	for i := range cfg.Services {
		if cfg.Services[i].EnvVar != "" {
			r.string(cfg.Services[i].EnvVar, &cfg.Services[i].URL)
		}
	}

	r.duration(EnvUpstreamTimeout, &cfg.Upstream.Timeout)
	r.duration(EnvShutdownTimeout, &cfg.ShutdownTimeout)

	r.string(EnvLogLevel, &cfg.Logging.Level)
	r.string(EnvLogFormat, &cfg.Logging.Format)

	r.bool(EnvMetricsEnabled, &cfg.Metrics.Enabled)
	r.int(EnvMetricsPort, &cfg.Metrics.Port)

	r.bool(EnvTracingEnabled, &cfg.Tracing.Enabled)
	r.string(EnvOTLPEndpoint, &cfg.Tracing.OTLPEndpoint)
	r.float(EnvTracingSamplingRate, &cfg.Tracing.SamplingRate)

	r.bool(EnvCORSEnabled, &cfg.CORS.Enabled)
	r.list(EnvCORSOrigins, &cfg.CORS.AllowOrigins)

	r.bool(EnvRateLimitEnabled, &cfg.RateLimit.Enabled)
	r.int(EnvRateLimitRPS, &cfg.RateLimit.RPS)
	r.int(EnvRateLimitBurst, &cfg.RateLimit.Burst)

	r.bool(EnvCircuitBreakerEnabled, &cfg.CircuitBreaker.Enabled)

	return r.err
}
