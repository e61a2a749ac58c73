// Package main is the entry point for the moodquest server.
//
// The binary has two jobs, exposed as cobra subcommands:
//
//	server serve            run the HTTP API (also the default)
//	server sessions prune   delete expired sessions once and exit
//
// All real work lives in internal/; main only loads configuration, builds
// the logger and hands off.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sakif/moodquest/internal/config"
	sqliteRepo "github.com/sakif/moodquest/internal/repository/sqlite"
	"github.com/sakif/moodquest/internal/server"
	"github.com/sakif/moodquest/internal/service"
)

func main() {
	config.LoadDotEnv()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newLogger(level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "server",
		Short:         "Wellness app backend: accounts, sessions, leaderboard and mood tests",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runServe,
	}

	cmd.AddCommand(newServeCommand())
	cmd.AddCommand(newSessionsCommand())
	return cmd
}

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}
	logger := newLogger(cfg.LogLevel)

	srv, err := server.Open(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}

	// Start blocks until SIGINT/SIGTERM and then shuts down gracefully.
	return srv.Start()
}

func newSessionsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "Session table maintenance",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	cmd.AddCommand(newSessionsPruneCommand())
	return cmd
}

func newSessionsPruneCommand() *cobra.Command {
	var dbPath string

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete every session whose expiry has passed",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			cfg, err := config.LoadSessions(ctx)
			if err != nil {
				return err
			}
			if dbPath != "" {
				cfg.DBPath = dbPath
			}
			logger := newLogger(slog.LevelInfo)

			db, err := sqliteRepo.New(ctx, cfg.DBPath)
			if err != nil {
				return fmt.Errorf("opening session database: %w", err)
			}
			defer db.Close()

			n, err := service.NewSessionService(db, cfg.TTL, logger).Prune(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "pruned %d expired sessions\n", n)
			return nil
		},
	}

	cmd.Flags().StringVar(&dbPath, "db", "", "Session database path (overrides SESSION_DB_PATH)")
	return cmd
}
