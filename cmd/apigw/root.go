package main

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/fittrack/apigw/internal/config"
)

// rootOptions holds the persistent flags shared by all commands.
type rootOptions struct {
	configPath string
	logLevel   string
	logFormat  string
	lookup     config.LookupFunc
}

// NewRootCommand builds the apigw command tree. Without a subcommand it
// serves the gateway.
func NewRootCommand(lookup config.LookupFunc) *cobra.Command {
	opts := &rootOptions{lookup: lookup}

	rootCmd := &cobra.Command{
		Use:   "apigw",
		Short: "Fitness Tracker API Gateway",
		Long: `apigw routes requests for the fitness tracker by path prefix to the
auth, workouts, nutrition, personal-records, templates and chatbot services.

Configuration comes from defaults, an optional YAML file and environment
variables (PORT, AUTH_SERVICE_URL, WORKOUTS_SERVICE_URL, ...), in that order.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, opts)
		},
	}

	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"{{.Name}} version {{.Version}}\nBuild time: %s\nGit commit: %s\nGo version: %s\n",
		buildTime, gitCommit, runtime.Version()))

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "",
		"Path to configuration file (default $"+config.EnvConfigPath+", none if unset)")
	flags.StringVar(&opts.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	flags.StringVar(&opts.logFormat, "log-format", "", "Log format (json, console)")

	rootCmd.AddCommand(newServeCommand(opts))
	rootCmd.AddCommand(newRoutesCommand(opts))
	rootCmd.AddCommand(newVersionCommand())

	return rootCmd
}

// loadConfig loads the configuration and applies the logging flags. The
// result is validated again since flags override validated values.
func (o *rootOptions) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(config.ResolvePath(o.configPath, o.lookup), o.lookup)
	if err != nil {
		return nil, err
	}

	if o.logLevel != "" {
		cfg.Logging.Level = o.logLevel
	}
	if o.logFormat != "" {
		cfg.Logging.Format = o.logFormat
	}

	if err := config.Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}
