package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/mcclellann/debtplan/pkg/config"
	"github.com/mcclellann/debtplan/pkg/ledger"
	"github.com/mcclellann/debtplan/pkg/reminders"
	"github.com/mcclellann/debtplan/pkg/store"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:           "debtplan",
	Short:         "Debt schedule and monthly planning backend",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, _ []string) error {
		// Show help when no subcommand is provided
		return cmd.Help()
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the invoke API and deliver payment reminders",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.Load(cfgFile, cmd.Flags())
		if err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return serve(ctx, cfg)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "Config file (YAML)")

	serveCmd.Flags().String("address", "", "Listen address (default 127.0.0.1)")
	serveCmd.Flags().Int("port", 0, "Listen port (default 8080)")
	serveCmd.Flags().String("db", "", "SQLite database path (default debtplan.db)")
	serveCmd.Flags().String("log-level", "", "Log level (default info)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(newScheduleCmd())
}

// serve runs the API until ctx is cancelled, then shuts down gracefully.
func serve(ctx context.Context, cfg *config.Config) error {
	logger := cfg.NewLogger()

	// Initialize SQLite Store
	sqliteStore, err := store.NewSQLiteStore(cfg.Database.Path, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize SQLite store: %w", err)
	}
	defer sqliteStore.Close()

	l := ledger.NewLedger(sqliteStore,
		ledger.WithLogger(logger),
		ledger.WithReminderLeadDays(cfg.Reminders.LeadDays),
	)
	server := NewServer(l, sqliteStore, logger, cfg.Server.RequestTimeout)

	var scheduler *reminders.Scheduler
	if cfg.Reminders.Enabled {
		scheduler = reminders.NewScheduler(sqliteStore, newNotifier(cfg, logger), logger,
			reminders.WithTimeout(cfg.Reminders.Timeout))
		if err := scheduler.Start(cfg.Reminders.Schedule); err != nil {
			return err
		}
	}

	httpServer := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      server.Router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.WithField("addr", httpServer.Addr).Info("Server starting")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
		logger.Info("Shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if scheduler != nil {
		scheduler.Stop(shutdownCtx)
	}
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	return nil
}

func newNotifier(cfg *config.Config, logger logrus.FieldLogger) reminders.Notifier {
	notifiers := reminders.Multi{reminders.LogNotifier{Logger: logger}}
	if cfg.SMTP.Enabled() {
		notifiers = append(notifiers, reminders.NewEmailNotifier(cfg.SMTP, logger))
	}
	return notifiers
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
