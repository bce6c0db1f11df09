package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Shivanand-hulikatti/event-api/internal/config"
	"github.com/Shivanand-hulikatti/event-api/internal/database"
)

func newMigrateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or roll back the Postgres events schema",
		Long: `Manage the schema of the Postgres backend. MongoDB needs no migrations.
The server applies pending migrations itself on startup; these commands are for
operators who want to run them separately.`,
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			url, err := postgresURL()
			if err != nil {
				return err
			}
			if err := database.MigrateUp(url); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return nil
		},
	})

	var steps int
	down := &cobra.Command{
		Use:   "down",
		Short: "Roll back migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			url, err := postgresURL()
			if err != nil {
				return err
			}
			if err := database.MigrateDown(url, steps); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "rolled back %d migration(s)\n", steps)
			return nil
		},
	}
	down.Flags().IntVar(&steps, "steps", 1, "number of migrations to roll back")
	cmd.AddCommand(down)

	return cmd
}

func postgresURL() (string, error) {
	cfg, err := loadConfig()
	if err != nil {
		return "", fmt.Errorf("config error: %w", err)
	}
	if cfg.Store.Driver != config.DriverPostgres {
		return "", fmt.Errorf("migrations only apply to the %s driver, configured driver is %s", config.DriverPostgres, cfg.Store.Driver)
	}
	return cfg.Store.URL, nil
}
