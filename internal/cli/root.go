package cli

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/yapay-ai/spendwatch/internal/config"
	"github.com/yapay-ai/spendwatch/pkg/notify"
	"github.com/yapay-ai/spendwatch/pkg/provider"
	"github.com/yapay-ai/spendwatch/pkg/store"
)

// Version is set at build time via ldflags.
var Version = "dev"

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "spendwatch",
	Short: "spendwatch - Multi-provider AI usage polling and budget alerting",
	Long: `spendwatch polls usage and cost metrics from AI API providers on behalf
of many users, persists the latest snapshot per subscription, and raises push
notifications when month-to-date spend crosses configured budget limits.`,
	SilenceUsage: true,
}

// Execute runs the CLI.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ~/.spendwatch/config.yaml)")
}

// loadConfig loads the configuration.
func loadConfig() (*config.Config, error) {
	return config.Load(cfgFile)
}

// newLogger creates a structured logger from config.
func newLogger(cfg *config.Config) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.Logging.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	var handler slog.Handler
	if cfg.Logging.Format == "text" {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	} else {
		handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	}

	return slog.New(handler)
}

// initStore creates the snapshot store from config.
func initStore(cfg *config.Config) (store.Store, error) {
	switch cfg.Storage.Backend {
	case "sqlite", "":
		return store.NewSQLite(cfg.Storage.Path)
	case "bolt":
		return store.NewBolt(cfg.Storage.Path)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}

// initRegistry creates and populates the provider adapter registry.
func initRegistry(cfg *config.Config) (*provider.Registry, error) {
	pollTimeout := parseDuration(cfg.Poller.PollTimeout, 30*time.Second)
	client := newHTTPClient(pollTimeout)

	registry := provider.NewRegistry()
	for _, adapter := range []provider.Adapter{
		provider.NewOpenAI("", client),
		provider.NewAnthropic("", client),
		provider.NewOpenRouter("", client),
	} {
		if err := registry.Register(adapter); err != nil {
			return nil, err
		}
	}
	return registry, nil
}

// initChannels creates notification channels from config.
func initChannels(cfg *config.Config) []notify.Channel {
	var channels []notify.Channel

	if cfg.Push.FCM.Enabled && cfg.Push.FCM.ServerKey != "" {
		channels = append(channels, notify.NewFCM("", cfg.Push.FCM.ServerKey))
	}

	if cfg.Push.Webhook.Enabled && cfg.Push.Webhook.URL != "" {
		channels = append(channels, notify.NewWebhook(cfg.Push.Webhook.URL, cfg.Push.Webhook.Secret))
	}

	return channels
}

func newHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{Timeout: timeout}
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
