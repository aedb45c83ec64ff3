package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/fittrack/apigw/internal/util"
)

// envVarPattern matches ${VAR} and ${VAR:-default} patterns.
var envVarPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

// LookupFunc looks up an environment variable. os.LookupEnv satisfies it.
type LookupFunc func(key string) (string, bool)

// Load builds the configuration: defaults, then the YAML file at path
// (skipped when path is empty), then environment overrides. The result
// is validated.
func Load(path string, lookup LookupFunc) (*Config, error) {
	if lookup == nil {
		lookup = os.LookupEnv
	}

	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path) //nolint:gosec // operator-supplied config path
		if err != nil {
			return nil, util.NewConfigErrorWithCause("", fmt.Sprintf("failed to read config file %s", path), err)
		}
		if err := decodeYAML(data, cfg, lookup); err != nil {
			return nil, err
		}
	}

	if err := ApplyEnv(cfg, lookup); err != nil {
		return nil, err
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// ResolvePath returns the config file path: the flag value when set,
// otherwise GATEWAY_CONFIG_PATH. An empty result means no file.
func ResolvePath(flagValue string, lookup LookupFunc) string {
	if flagValue != "" {
		return flagValue
	}
	if lookup == nil {
		lookup = os.LookupEnv
	}
	path, _ := lookup(EnvConfigPath)
	return path
}

// decodeYAML overlays YAML data onto cfg after environment substitution.
func decodeYAML(data []byte, cfg *Config, lookup LookupFunc) error {
	content := substituteEnvVars(string(data), lookup)

	dec := yaml.NewDecoder(strings.NewReader(content))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		// An empty document leaves the defaults untouched.
		if errors.Is(err, io.EOF) {
			return nil
		}
		return util.NewConfigErrorWithCause("", "failed to parse YAML", err)
	}
	return nil
}

// substituteEnvVars replaces ${VAR} and ${VAR:-default} patterns with
// environment variable values. "$$" escapes a literal dollar sign.
func substituteEnvVars(content string, lookup LookupFunc) string {
	const escaped = "\x00ESCAPED_DOLLAR\x00"
	content = strings.ReplaceAll(content, "$$", escaped)

	result := envVarPattern.ReplaceAllStringFunc(content, func(match string) string {
		submatches := envVarPattern.FindStringSubmatch(match)
		if value, ok := lookup(submatches[1]); ok {
			return value
		}
		return submatches[2]
	})

	return strings.ReplaceAll(result, escaped, "$")
}
