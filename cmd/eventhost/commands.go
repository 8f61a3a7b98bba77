package main

import (
	"bufio"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/phrazzld/eventhost/internal/config"
	"github.com/phrazzld/eventhost/internal/platform/logger"
	"github.com/phrazzld/eventhost/internal/platform/postgres"
	"github.com/phrazzld/eventhost/internal/service/auth"
	"github.com/spf13/cobra"
)

const (
	configFlagName      = "config"
	migrateFlagName     = "migrate"
	databaseURLFlagName = "database-url"
	logLevelFlagName    = "log-level"
)

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "eventhost",
		Short:         "Host an event bus behind an administrative HTTP API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().String(configFlagName, "",
		"path to a YAML config file (default: ./config.yaml if present)")

	root.AddCommand(
		newServeCommand(),
		newMigrateCommand(),
		newHashPasswordCommand(),
	)
	return root
}

func newServeCommand() *cobra.Command {
	command := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server and the hosted event bus",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			cfg, err := loadAppConfig(cmd)
			if err != nil {
				return err
			}

			log, err := logger.Setup(cfg.Server.LogLevel)
			if err != nil {
				return fmt.Errorf("failed to set up logger: %w", err)
			}
			log.Info("Server configuration loaded",
				"port", cfg.Server.Port,
				"log_level", cfg.Server.LogLevel,
				"shutdown_timeout", cfg.Server.ShutdownTimeout().String(),
				"database_configured", cfg.Database.URL != "",
				"plugins_file", cfg.Plugins.File)

			db, err := setupAppDatabase(ctx, cfg, log)
			if err != nil {
				return err
			}

			migrate, _ := cmd.Flags().GetBool(migrateFlagName)
			if migrate && db != nil {
				if err := postgres.Migrate(ctx, db, "up", log); err != nil {
					_ = db.Close()
					return err
				}
			}

			app, err := newApplication(cfg, log, db)
			if err != nil {
				if db != nil {
					_ = db.Close()
				}
				return fmt.Errorf("failed to initialize application: %w", err)
			}

			return app.Run(ctx)
		},
	}
	command.Flags().Bool(migrateFlagName, false, "apply pending migrations before serving")
	return command
}

func newMigrateCommand() *cobra.Command {
	command := &cobra.Command{
		Use:       "migrate [" + strings.Join(postgres.MigrationCommands, "|") + "]",
		Short:     "Manage the event journal schema",
		Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
		ValidArgs: postgres.MigrationCommands,
		RunE: func(cmd *cobra.Command, args []string) error {
			migration := "up"
			if len(args) == 1 {
				migration = args[0]
			}

			dbURL, _ := cmd.Flags().GetString(databaseURLFlagName)
			level, _ := cmd.Flags().GetString(logLevelFlagName)
			if dbURL == "" {
				cfg, err := loadAppConfig(cmd)
				if err != nil {
					return err
				}
				dbURL = cfg.Database.URL
				if !cmd.Flags().Changed(logLevelFlagName) {
					level = cfg.Server.LogLevel
				}
			}
			if dbURL == "" {
				return errors.New("migrate requires database.url or --database-url")
			}

			log, err := logger.Setup(level)
			if err != nil {
				return fmt.Errorf("failed to set up logger: %w", err)
			}

			return runMigrations(cmd.Context(), dbURL, migration, log)
		},
	}
	command.Flags().String(databaseURLFlagName, "", "database URL, overriding configuration")
	command.Flags().String(logLevelFlagName, "info", "log level")
	return command
}

func runMigrations(ctx context.Context, dbURL, command string, log *slog.Logger) error {
	db, err := postgres.Open(ctx, dbURL, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database connection", "error", err)
		}
	}()

	log.Info("Executing migrations", "command", command)
	return postgres.Migrate(ctx, db, command, log)
}

func newHashPasswordCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-password",
		Short: "Read a password from stdin and print its bcrypt hash for auth.admin_password_hash",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			scanner := bufio.NewScanner(cmd.InOrStdin())
			if !scanner.Scan() {
				if err := scanner.Err(); err != nil {
					return fmt.Errorf("failed to read password: %w", err)
				}
				return errors.New("no password given on stdin")
			}

			hash, err := auth.HashPassword(strings.TrimRight(scanner.Text(), "\r"))
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), hash)
			return err
		},
	}
}

// loadAppConfig loads configuration from the --config file and environment.
func loadAppConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString(configFlagName)
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg, nil
}

// setupAppDatabase opens the database when one is configured. A nil *sql.DB
// means the service runs with the in-memory journal.
func setupAppDatabase(ctx context.Context, cfg *config.Config, log *slog.Logger) (*sql.DB, error) {
	if cfg.Database.URL == "" {
		log.Warn("no database configured, events are journaled in memory only")
		return nil, nil
	}
	return postgres.Open(ctx, cfg.Database.URL, log)
}
