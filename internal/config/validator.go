package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/fittrack/apigw/internal/util"
)

// ErrDuplicatePrefix indicates two services share a path prefix.
var ErrDuplicatePrefix = errors.New("duplicate path prefix")

// ValidationError represents a single configuration validation error.
type ValidationError struct {
	Path    string
	Message string
	Cause   error
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s", e.Path, e.Message)
	}
	return e.Message
}

// Unwrap returns the underlying error.
func (e ValidationError) Unwrap() error {
	return e.Cause
}

// Is reports every validation error as util.ErrConfigInvalid.
func (e ValidationError) Is(target error) bool {
	return target == util.ErrConfigInvalid
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

// Error implements the error interface.
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%d validation errors:", len(e))
	for i, err := range e {
		fmt.Fprintf(&sb, "\n  %d. %s", i+1, err.Error())
	}
	return sb.String()
}

// Unwrap exposes the individual errors to errors.Is and errors.As.
func (e ValidationErrors) Unwrap() []error {
	errs := make([]error, len(e))
	for i := range e {
		errs[i] = e[i]
	}
	return errs
}

// validator accumulates validation errors.
type validator struct {
	errors ValidationErrors
}

func (v *validator) add(path, message string) {
	v.errors = append(v.errors, ValidationError{Path: path, Message: message})
}

func (v *validator) addCause(path, message string, cause error) {
	v.errors = append(v.errors, ValidationError{Path: path, Message: message, Cause: cause})
}

// Validate checks the configuration for structural problems.
func Validate(cfg *Config) error {
	if cfg == nil {
		return ValidationErrors{{Message: "configuration is nil"}}
	}

	v := &validator{}

	if cfg.Port < 1 || cfg.Port > 65535 {
		v.add("port", fmt.Sprintf("must be between 1 and 65535, got %d", cfg.Port))
	}
	if cfg.Upstream.Timeout.Duration() <= 0 {
		v.add("upstream.timeout", "must be positive")
	}
	if cfg.ShutdownTimeout.Duration() <= 0 {
		v.add("shutdownTimeout", "must be positive")
	}

	v.validateServices(cfg.Services)
	v.validateObservability(cfg)
	v.validateResilience(cfg)

	if len(v.errors) > 0 {
		return v.errors
	}
	return nil
}

func (v *validator) validateServices(services []ServiceConfig) {
	if len(services) == 0 {
		v.add("services", "at least one service is required")
		return
	}

	prefixes := make(map[string]int, len(services))
	names := make(map[string]int, len(services))

	for i, svc := range services {
		path := fmt.Sprintf("services[%d]", i)

		if svc.Name == "" {
			v.add(path+".name", "is required")
		} else if first, ok := names[svc.Name]; ok {
			v.add(path+".name", fmt.Sprintf("duplicates services[%d].name %q", first, svc.Name))
		} else {
			names[svc.Name] = i
		}

		v.validatePrefix(path+".prefix", svc.Prefix)
		if first, ok := prefixes[svc.Prefix]; ok && svc.Prefix != "" {
			v.addCause(path+".prefix",
				fmt.Sprintf("%q duplicates services[%d].prefix", svc.Prefix, first),
				ErrDuplicatePrefix)
		} else {
			prefixes[svc.Prefix] = i
		}

		v.validateURL(path+".url", svc.URL)
	}
}

func (v *validator) validatePrefix(path, prefix string) {
	switch {
	case prefix == "":
		v.add(path, "is required")
	case !strings.HasPrefix(prefix, "/"):
		v.add(path, fmt.Sprintf("%q must start with /", prefix))
	case len(prefix) > 1 && strings.HasSuffix(prefix, "/"):
		v.add(path, fmt.Sprintf("%q must not end with /", prefix))
	case strings.ContainsAny(prefix, "?#"):
		v.add(path, fmt.Sprintf("%q must not contain a query or fragment", prefix))
	}
}

func (v *validator) validateURL(path, raw string) {
	if raw == "" {
		v.add(path, "is required")
		return
	}
	u, err := url.Parse(raw)
	if err != nil {
		v.addCause(path, fmt.Sprintf("%q is not a valid URL", raw), err)
		return
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		v.add(path, fmt.Sprintf("%q must use http or https", raw))
	}
	if u.Host == "" {
		v.add(path, fmt.Sprintf("%q must include a host", raw))
	}
	if u.RawQuery != "" || u.Fragment != "" {
		v.add(path, fmt.Sprintf("%q must not contain a query or fragment", raw))
	}
}

func (v *validator) validateObservability(cfg *Config) {
	if !validLogLevel(cfg.Logging.Level) {
		v.add("logging.level", fmt.Sprintf("unsupported level %q", cfg.Logging.Level))
	}

	switch cfg.Logging.Format {
	case "", "json", "console":
	default:
		v.add("logging.format", fmt.Sprintf("unsupported format %q", cfg.Logging.Format))
	}

	if cfg.Metrics.Enabled {
		if cfg.Metrics.Port < 1 || cfg.Metrics.Port > 65535 {
			v.add("metrics.port", fmt.Sprintf("must be between 1 and 65535, got %d", cfg.Metrics.Port))
		}
		if cfg.Metrics.Port == cfg.Port {
			v.add("metrics.port", "must differ from the gateway port")
		}
	}

	if cfg.Tracing.SamplingRate < 0 || cfg.Tracing.SamplingRate > 1 {
		v.add("tracing.samplingRate", "must be between 0 and 1")
	}
}

func (v *validator) validateResilience(cfg *Config) {
	if cfg.RateLimit.Enabled {
		if cfg.RateLimit.RPS <= 0 {
			v.add("rateLimit.rps", "must be positive")
		}
		if cfg.RateLimit.Burst <= 0 {
			v.add("rateLimit.burst", "must be positive")
		}
	}

	if cfg.CircuitBreaker.Enabled {
		if cfg.CircuitBreaker.Threshold <= 0 {
			v.add("circuitBreaker.threshold", "must be positive")
		}
		if cfg.CircuitBreaker.Timeout.Duration() <= 0 {
			v.add("circuitBreaker.timeout", "must be positive")
		}
	}
}

// validLogLevel accepts the level names zap parses, all lower or all upper case.
func validLogLevel(level string) bool {
	lower := strings.ToLower(level)
	if level != lower && level != strings.ToUpper(level) {
		return false
	}
	switch lower {
	case "", "debug", "info", "warn", "error", "dpanic", "panic", "fatal":
		return true
	}
	return false
}
