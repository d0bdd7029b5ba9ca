package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"slidepack/config"
	"slidepack/ledger"
	"slidepack/logger"
	"slidepack/mirror"
	"slidepack/retention"
	"slidepack/routes"
	"slidepack/storage"
)

const (
	cleanupInterval = 24 * time.Hour
	shutdownTimeout = 30 * time.Second
)

func newServeCommand(loadConfig func() (*config.Config, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server (default)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg)
		},
	}
}

func serve(ctx context.Context, cfg *config.Config) error {
	if err := logger.Init(cfg.LogFile, true); err != nil {
		return err
	}
	defer logger.Close()
	level, err := logger.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	logger.SetLevel(level)

	logger.Info("Starting slidepack server initialization")

	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}
	dirs, err := storage.New(cfg.TempDir, cfg.DownloadsDir)
	if err != nil {
		return err
	}

	logger.Debug("Opening ledger")
	led, err := ledger.Open(cfg.LedgerPath())
	if err != nil {
		return err
	}
	defer led.Close()
	logger.Infof("Ledger opened at %s", cfg.LedgerPath())

	if n, err := dirs.SweepTemp(); err != nil {
		logger.Errorf("Failed to sweep temp dir: %v", err)
	} else if n > 0 {
		logger.Infof("Removed %d stale request dirs", n)
	}

	pub, err := mirror.NewPublisher(cfg.Mirrors, 0)
	if err != nil {
		return err
	}
	if pub.Enabled() {
		logger.Infof("Publishing artifacts to %d mirrors", len(cfg.Mirrors))
	}

	sched := retention.NewScheduler(nil)
	srv := routes.New(cfg, dirs, led, sched, pub)
	if err := srv.Reconcile(); err != nil {
		logger.Errorf("Failed to reconcile artifacts: %v", err)
	}

	cleanupCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go cleanupRoutine(cleanupCtx, led, sched, cfg.RecordMaxAge.Duration)

	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Infof("slidepack %s listening on port %s", routes.Version(), cfg.Port)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			sched.Stop()
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
		logger.Info("Shutting down")
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancelShutdown()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Errorf("Graceful shutdown failed: %v", err)
		}
	}

	sched.Stop()
	pub.Wait()
	logger.Info("Server stopped")
	return nil
}

// cleanupRoutine periodically drops old ledger records and finished tasks.
func cleanupRoutine(ctx context.Context, led *ledger.Ledger, sched *retention.Scheduler, maxAge time.Duration) {
	logger.Infof("Cleanup routine started - will run every %v", cleanupInterval)
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("Cleanup routine stopped")
			return
		case <-ticker.C:
			logger.Debugf("Cleaning up records older than %v", maxAge)
			n, err := led.CleanupOldRecords(maxAge)
			if err != nil {
				logger.Errorf("Failed to cleanup old records: %v", err)
			} else {
				logger.Infof("Removed %d old ledger records", n)
			}
			sched.Prune(cleanupInterval)
		}
	}
}
