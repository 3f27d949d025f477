package main

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/agualoti/backend/internal/infrastructure/config"
	"github.com/agualoti/backend/internal/infrastructure/logger"
	"github.com/agualoti/backend/internal/infrastructure/migration"
	"github.com/agualoti/backend/migrations"
	_ "github.com/lib/pq"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const defaultMigrationsPath = "migrations"

type options struct {
	path     string
	embedded bool
	logLevel string
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:           "migrate",
		Short:         "Manage the PostgreSQL schema of the billing database",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.path, "path", "", "migrations directory (default ./migrations)")
	root.PersistentFlags().BoolVar(&opts.embedded, "embedded", false, "use the migrations compiled into the binary")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "info", "log level: debug, info, warn, error")

	root.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			Args:  cobra.NoArgs,
			RunE: withMigrator(opts, func(m *migration.Migrator, _ *zap.Logger, _ []string) error {
				return m.Up()
			}),
		},
		&cobra.Command{
			Use:   "down",
			Short: "Roll back every migration",
			Args:  cobra.NoArgs,
			RunE: withMigrator(opts, func(m *migration.Migrator, _ *zap.Logger, _ []string) error {
				return m.Down()
			}),
		},
		&cobra.Command{
			Use:   "step <n>",
			Short: "Apply n migrations, rolling back when n is negative",
			Args:  cobra.ExactArgs(1),
			RunE: withMigrator(opts, func(m *migration.Migrator, _ *zap.Logger, args []string) error {
				n, err := strconv.Atoi(args[0])
				if err != nil {
					return fmt.Errorf("invalid step count %q", args[0])
				}
				return m.Steps(n)
			}),
		},
		&cobra.Command{
			Use:   "goto <version>",
			Short: "Migrate up or down to a version",
			Args:  cobra.ExactArgs(1),
			RunE: withMigrator(opts, func(m *migration.Migrator, _ *zap.Logger, args []string) error {
				version, err := strconv.ParseUint(args[0], 10, 64)
				if err != nil {
					return fmt.Errorf("invalid version %q", args[0])
				}
				return m.GoTo(uint(version))
			}),
		},
		&cobra.Command{
			Use:   "version",
			Short: "Show the applied migration version",
			Args:  cobra.NoArgs,
			RunE: withMigrator(opts, func(m *migration.Migrator, log *zap.Logger, _ []string) error {
				version, dirty, err := m.Version()
				if err != nil {
					return err
				}
				if version == 0 {
					log.Info("No migrations applied")
					return nil
				}
				log.Info("Current migration version", zap.Uint("version", version), zap.Bool("dirty", dirty))
				return nil
			}),
		},
		&cobra.Command{
			Use:   "force <version>",
			Short: "Record a version as applied to clear a dirty state",
			Args:  cobra.ExactArgs(1),
			RunE: withMigrator(opts, func(m *migration.Migrator, _ *zap.Logger, args []string) error {
				version, err := strconv.Atoi(args[0])
				if err != nil {
					return fmt.Errorf("invalid version %q", args[0])
				}
				return m.Force(version)
			}),
		},
		newCreateCmd(opts),
		newListCmd(opts),
	)
	return root
}

func newCreateCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "create <name> [description]",
		Short: "Create an empty up/down migration pair",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			log, err := newLogger(opts.logLevel)
			if err != nil {
				return err
			}
			description := ""
			if len(args) == 2 {
				description = args[1]
			}
			mf, err := migration.CreateMigration(resolvePath(opts.path), args[0], description, time.Now())
			if err != nil {
				return err
			}
			log.Info("Migration created",
				zap.String("version", mf.Version),
				zap.String("up_file", mf.UpPath),
				zap.String("down_file", mf.DownPath))
			return nil
		},
	}
}

func newListCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the migrations found in the migrations directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			names, err := migration.ListMigrations(resolvePath(opts.path))
			if err != nil {
				return err
			}
			if len(names) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No migrations found")
				return nil
			}
			for _, name := range names {
				fmt.Fprintln(cmd.OutOrStdout(), "  -", name)
			}
			return nil
		},
	}
}

type migratorFunc func(m *migration.Migrator, log *zap.Logger, args []string) error

// withMigrator opens the configured database, builds a Migrator and runs fn
func withMigrator(opts *options, fn migratorFunc) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		log, err := newLogger(opts.logLevel)
		if err != nil {
			return err
		}
		defer func() { _ = log.Sync() }()

		cfg, err := config.Load()
		if err != nil {
			return err
		}
		if cfg.Database.Driver != "postgres" {
			return fmt.Errorf("migrations target postgres; database.driver is %q", cfg.Database.Driver)
		}

		db, err := sql.Open("postgres", cfg.Database.DSN())
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		if err := db.PingContext(cmd.Context()); err != nil {
			_ = db.Close()
			return fmt.Errorf("failed to ping database: %w", err)
		}

		var m *migration.Migrator
		if opts.embedded {
			m, err = migration.NewEmbedded(db, migrations.FS, log)
		} else {
			path := resolvePath(opts.path)
			log.Debug("Using migrations directory", zap.String("path", path))
			m, err = migration.New(db, path, log)
		}
		if err != nil {
			_ = db.Close()
			return err
		}
		defer func() { _ = m.Close() }()

		log.Info("Running migration command", zap.String("command", cmd.Name()))
		return fn(m, log, args)
	}
}

func newLogger(level string) (*zap.Logger, error) {
	return logger.New(&logger.Config{Level: level, Format: "console", Output: "stdout"})
}

// resolvePath makes the migrations directory absolute, falling back to the
// directory two levels above the executable when ./migrations is missing
func resolvePath(path string) string {
	if path == "" {
		path = defaultMigrationsPath
		if _, err := os.Stat(path); err != nil {
			if exe, err := os.Executable(); err == nil {
				candidate := filepath.Join(filepath.Dir(exe), "..", "..", defaultMigrationsPath)
				if _, err := os.Stat(candidate); err == nil {
					path = candidate
				}
			}
		}
	}
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return path
}
