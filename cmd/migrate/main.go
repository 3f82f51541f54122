package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hackgods/clinic-appointment-booking/internal/config"
	"github.com/hackgods/clinic-appointment-booking/internal/db"
	"github.com/hackgods/clinic-appointment-booking/internal/logging"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the clinic booking database schema",
	}

	rootCmd.AddCommand(
		migrationCmd("up", "Apply all pending migrations", func(ctx context.Context, m *db.Migrator) error {
			return m.Up(ctx)
		}),
		migrationCmd("down", "Roll back the most recent migration", func(ctx context.Context, m *db.Migrator) error {
			return m.Down(ctx)
		}),
		migrationCmd("status", "Show applied and pending migrations", func(ctx context.Context, m *db.Migrator) error {
			return m.Status(ctx)
		}),
		migrationCmd("version", "Print the current schema version", func(ctx context.Context, m *db.Migrator) error {
			v, err := m.Version(ctx)
			if err != nil {
				return err
			}
			fmt.Println(v)
			return nil
		}),
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func migrationCmd(use, short string, run func(ctx context.Context, m *db.Migrator) error) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			logger, err := logging.New(cfg.Env, cfg.LogLevel)
			if err != nil {
				log.Fatalf("logger init error: %v", err)
			}
			defer func() { _ = logger.Sync() }()

			ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Minute)
			defer cancel()

			pool, err := db.ConnectPostgres(ctx, db.PoolOptions{DSN: cfg.PostgresDSN, MaxConns: 2})
			if err != nil {
				return err
			}
			defer pool.Close()

			migrator, err := db.NewMigrator(pool, logger)
			if err != nil {
				return err
			}
			defer func() { _ = migrator.Close() }()

			if err := run(ctx, migrator); err != nil {
				logger.Error("migration command failed", zap.String("command", use), zap.Error(err))
				return err
			}
			return nil
		},
	}
}
