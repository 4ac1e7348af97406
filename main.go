package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"tubearchivist/internal/app"
	"tubearchivist/internal/cfg"
	"tubearchivist/internal/es/backup"
	"tubearchivist/internal/release"
	"tubearchivist/internal/server"
	"tubearchivist/internal/utils/logging"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var logFile string

	root := &cobra.Command{
		Use:           "tubearchivist",
		Short:         "Self-hosted YouTube media server backend",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&logFile, "log-file", "", "also write logs to this file")

	root.AddCommand(
		serveCmd(&logFile),
		migrateCmd(&logFile),
		backupCmd(&logFile),
		versionCmd(),
	)
	return root
}

// boot loads the environment and wires the application.
func boot(ctx context.Context, logFile string) (*app.App, error) {
	env, err := cfg.LoadEnv()
	if err != nil {
		return nil, err
	}
	if err := logging.Setup(env.LogLevel, logFile); err != nil {
		return nil, err
	}
	return app.New(ctx, env)
}

func serveCmd(logFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run startup checks, the task scheduler and the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := boot(ctx, *logFile)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.Startup(ctx); err != nil {
				return err
			}

			go a.Scheduler.RunLoop(ctx)

			srv := server.New(a)
			errCh := make(chan error, 1)
			go func() { errCh <- srv.ListenAndServe() }()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}

			logging.I("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}
}

func migrateCmd(logFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Reconcile index mappings and exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := boot(cmd.Context(), *logFile)
			if err != nil {
				return err
			}
			defer a.Close()
			return a.IndexMgr.Migrate(cmd.Context())
		},
	}
}

func backupCmd(logFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "backup",
		Short: "Export all indices to a zip archive and exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := boot(cmd.Context(), *logFile)
			if err != nil {
				return err
			}
			defer a.Close()

			name, err := a.Backups.Run(cmd.Context(), backup.ReasonManual)
			if err != nil {
				return err
			}
			fmt.Println(name)
			return nil
		},
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Println(release.Version)
		},
	}
}
