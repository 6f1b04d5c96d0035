package cli

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/yapay-ai/spendwatch/internal/scheduler"
	"github.com/yapay-ai/spendwatch/internal/server"
	"github.com/yapay-ai/spendwatch/pkg/metrics"
	"github.com/yapay-ai/spendwatch/pkg/notify"
	"github.com/yapay-ai/spendwatch/pkg/poller"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the polling service and HTTP API",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringP("listen", "l", "", "Listen address (default from config)")
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	listen, _ := cmd.Flags().GetString("listen")
	if listen != "" {
		cfg.Server.Listen = listen
	}

	logger := newLogger(cfg)

	st, err := initStore(cfg)
	if err != nil {
		return fmt.Errorf("init storage: %w", err)
	}
	defer st.Close()

	registry, err := initRegistry(cfg)
	if err != nil {
		return err
	}

	promRegistry := prometheus.NewRegistry()
	m := metrics.New(promRegistry)

	dispatcher := notify.NewDispatcher(st, initChannels(cfg), m, logger)
	pollTimeout := parseDuration(cfg.Poller.PollTimeout, 30*time.Second)
	orch := poller.New(st, registry, dispatcher, m, logger, cfg.Poller.Concurrency, pollTimeout)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sched := scheduler.New(orch, cfg.Poller.Schedule, logger)
	if err := sched.Start(ctx); err != nil {
		return err
	}
	defer sched.Stop()

	apiServer := server.NewServer(st, registry, promRegistry, cfg.Server.AuthToken, pollTimeout, logger)

	srv := &http.Server{
		Addr:         cfg.Server.Listen,
		Handler:      apiServer.Handler(),
		ReadTimeout:  parseDuration(cfg.Server.ReadTimeout, 15*time.Second),
		WriteTimeout: parseDuration(cfg.Server.WriteTimeout, 60*time.Second),
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("spendwatch started", "listen", cfg.Server.Listen, "schedule", cfg.Poller.Schedule)
		errCh <- srv.ListenAndServe()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case sig := <-quit:
		logger.Info("shutting down", "signal", sig.String())
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown error: %w", err)
		}
	}

	logger.Info("spendwatch stopped")
	return nil
}
