// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 BienesRaices Contributors

package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/bienesraices/bienesraices/internal/config"
	"github.com/bienesraices/bienesraices/internal/store"
)

// NewMigrateCmd creates the migrate command and its subcommands.
func NewMigrateCmd() *cobra.Command {
	return newMigrateCmdWithDeps(nil)
}

func newMigrateCmdWithDeps(deps *MigrateDeps) *cobra.Command {
	if deps == nil {
		deps = &MigrateDeps{}
	}
	if deps.MigratorFactory == nil {
		deps.MigratorFactory = func(url string) (Migrator, error) {
			return store.NewMigrator(url)
		}
	}
	if deps.Getenv == nil {
		deps.Getenv = os.Getenv
	}

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage database migrations",
		Long:  `Apply, roll back and inspect the PostgreSQL schema migrations.
Without a subcommand, applies all pending migrations.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runMigrateUp(cmd, deps)
		},
	}
	cmd.PersistentFlags().String("database-url", "", "PostgreSQL connection string (default $DATABASE_URL)")

	up := &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runMigrateUp(cmd, deps)
		},
	}

	var steps int
	var all bool
	down := &cobra.Command{
		Use:   "down",
		Short: "Roll back migrations (one step by default)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runMigrateDown(cmd, deps, steps, all)
		},
	}
	down.Flags().IntVar(&steps, "steps", 1, "number of migrations to roll back")
	down.Flags().BoolVar(&all, "all", false, "roll back every migration")

	status := &cobra.Command{
		Use:   "status",
		Short: "Show applied and pending migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runMigrateStatus(cmd, deps)
		},
	}

	force := &cobra.Command{
		Use:   "force VERSION",
		Short: "Set the schema version without running migrations (clears dirty state)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			version, err := parseForceVersion(args[0])
			if err != nil {
				return err
			}
			return withMigrator(cmd, deps, func(m Migrator) error {
				if err := m.Force(version); err != nil {
					return err
				}
				cmd.Printf("Forced schema version to %d\n", version)
				return nil
			})
		},
	}

	cmd.AddCommand(up, down, status, force)
	return cmd
}

// migrateDatabaseURL resolves the database URL from --database-url, the
// config file, then $DATABASE_URL.
func migrateDatabaseURL(cmd *cobra.Command, deps *MigrateDeps) (string, error) {
	cfg, err := config.Read(config.LoadOptions{
		Path:   resolveConfigFile(deps.Getenv),
		Flags:  cmd.Flags(),
		Getenv: deps.Getenv,
	})
	if err != nil {
		return "", err
	}
	if cfg.Database.URL == "" {
		return "", oops.Code("CONFIG_INVALID").
			Errorf("database url is required: set --database-url, database.url or %s", config.EnvDatabaseURL)
	}
	return cfg.Database.URL, nil
}

func withMigrator(cmd *cobra.Command, deps *MigrateDeps, fn func(Migrator) error) error {
	url, err := migrateDatabaseURL(cmd, deps)
	if err != nil {
		return err
	}

	m, err := deps.MigratorFactory(url)
	if err != nil {
		return oops.With("operation", "create migrator").Wrap(err)
	}
	defer func() {
		if closeErr := m.Close(); closeErr != nil {
			slog.Warn("failed to close migrator", "error", closeErr)
		}
	}()

	return fn(m)
}

func runMigrateUp(cmd *cobra.Command, deps *MigrateDeps) error {
	return withMigrator(cmd, deps, func(m Migrator) error {
		pending, err := m.PendingMigrations()
		if err != nil {
			return err
		}
		if len(pending) == 0 {
			cmd.Println("No pending migrations")
			return nil
		}

		cmd.Printf("Applying %d migration(s)...\n", len(pending))
		if err := m.Up(); err != nil {
			return oops.Code("MIGRATION_FAILED").With("operation", "migrate up").Wrap(err)
		}
		for _, v := range pending {
			cmd.Printf("  applied %s\n", migrationLabel(v))
		}
		cmd.Println("Migrations completed successfully")
		return nil
	})
}

func runMigrateDown(cmd *cobra.Command, deps *MigrateDeps, steps int, all bool) error {
	if !all && steps < 1 {
		return oops.Code("INVALID_STEPS").With("steps", steps).Errorf("steps must be at least 1")
	}
	return withMigrator(cmd, deps, func(m Migrator) error {
		if all {
			if err := m.Down(); err != nil {
				return oops.Code("MIGRATION_FAILED").With("operation", "migrate down").Wrap(err)
			}
			cmd.Println("Rolled back all migrations")
			return nil
		}
		if err := m.Steps(-steps); err != nil {
			return oops.Code("MIGRATION_FAILED").With("operation", "migrate down").With("steps", steps).Wrap(err)
		}
		cmd.Printf("Rolled back %d migration(s)\n", steps)
		return nil
	})
}

func runMigrateStatus(cmd *cobra.Command, deps *MigrateDeps) error {
	return withMigrator(cmd, deps, func(m Migrator) error {
		version, dirty, err := m.Version()
		if err != nil {
			return err
		}
		applied, err := m.AppliedMigrations()
		if err != nil {
			return err
		}
		pending, err := m.PendingMigrations()
		if err != nil {
			return err
		}

		state := "clean"
		if dirty {
			state = "dirty (run migrate force after fixing the database)"
		}
		cmd.Printf("Current version: %d (%s)\n", version, state)
		cmd.Printf("Applied: %d\n", len(applied))
		for _, v := range applied {
			cmd.Printf("  %s\n", migrationLabel(v))
		}
		cmd.Printf("Pending: %d\n", len(pending))
		for _, v := range pending {
			cmd.Printf("  %s\n", migrationLabel(v))
		}
		return nil
	})
}

// parseForceVersion reads the leading integer of s.
func parseForceVersion(s string) (int, error) {
	var version int
	if _, err := fmt.Sscanf(s, "%d", &version); err != nil {
		return 0, oops.Code("INVALID_VERSION").With("version", s).Wrap(err)
	}
	return version, nil
}

func migrationLabel(version uint) string {
	name, err := store.MigrationName(version)
	if err != nil || name == "" {
		return fmt.Sprintf("%06d", version)
	}
	return name
}
