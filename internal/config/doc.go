// Package config provides configuration types and loading for the
// API Gateway.
//
// Configuration is assembled once at startup and never mutated
// afterwards. Sources are applied in order, each overriding the last:
//
//   - DefaultConfig: the six fitness-tracker upstreams on their
//     well-known local ports, listen port 3000.
//   - An optional YAML file with ${VAR} and ${VAR:-default}
//     substitution.
//   - Environment variables (PORT, AUTH_SERVICE_URL, ...).
//
// # Loading
//
//	cfg, err := config.Load(path, os.LookupEnv)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// Load validates the result; a structurally invalid route table
// (duplicate prefixes, malformed upstream URLs) is an error, while an
// unset upstream URL silently falls back to its default.
package config
