package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Shivanand-hulikatti/event-api/internal/config"
)

var (
	configPath string
	logLevel   string
	logFormat  string
)

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "eventapi",
		Short: "Event catalog HTTP API",
		Long: `eventapi stores events in a document store and serves create, fetch,
paginated listing, update and delete over HTTP under /api/v3/app/events.

Running without a subcommand starts the server.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd)
		},
	}

	root.PersistentFlags().StringVar(&configPath, "config", "", "YAML config file (optional, env vars override it)")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error) (default: info)")
	root.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format (json, console) (default: json)")

	root.AddCommand(newServeCommand())
	root.AddCommand(newMigrateCommand())
	root.AddCommand(newVersionCommand())
	return root
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig() (config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return config.Config{}, err
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	if logFormat != "" {
		cfg.Logging.Format = logFormat
	}
	return cfg, nil
}
