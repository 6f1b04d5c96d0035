package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all spendwatch configuration.
type Config struct {
	Storage StorageConfig `mapstructure:"storage"`
	Server  ServerConfig  `mapstructure:"server"`
	Poller  PollerConfig  `mapstructure:"poller"`
	Push    PushConfig    `mapstructure:"push"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// StorageConfig defines the snapshot store backend.
type StorageConfig struct {
	Backend string `mapstructure:"backend"` // "sqlite" or "bolt"
	Path    string `mapstructure:"path"`
}

// ServerConfig defines the HTTP API settings.
type ServerConfig struct {
	Listen       string `mapstructure:"listen"`
	AuthToken    string `mapstructure:"auth_token"`
	ReadTimeout  string `mapstructure:"read_timeout"`
	WriteTimeout string `mapstructure:"write_timeout"`
}

// PollerConfig defines the polling cycle settings.
type PollerConfig struct {
	Schedule    string `mapstructure:"schedule"` // cron expression
	Concurrency int    `mapstructure:"concurrency"`
	PollTimeout string `mapstructure:"poll_timeout"`
}

// PushConfig defines notification channel settings.
type PushConfig struct {
	FCM     FCMConfig         `mapstructure:"fcm"`
	Webhook PushWebhookConfig `mapstructure:"webhook"`
}

// FCMConfig defines Firebase Cloud Messaging settings.
type FCMConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	ServerKey string `mapstructure:"server_key"`
}

// PushWebhookConfig defines generic push gateway settings.
type PushWebhookConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	URL     string `mapstructure:"url"`
	Secret  string `mapstructure:"secret"`
}

// LoggingConfig defines logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from file and environment variables.
func Load(cfgFile string) (*Config, error) {
	v := viper.New()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("find home directory: %w", err)
		}

		v.AddConfigPath(filepath.Join(home, ".spendwatch"))
		v.AddConfigPath(".")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	// Defaults
	home, _ := os.UserHomeDir()
	v.SetDefault("storage.backend", "sqlite")
	v.SetDefault("storage.path", filepath.Join(home, ".spendwatch", "spendwatch.db"))
	v.SetDefault("server.listen", ":8787")
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "60s")
	v.SetDefault("poller.schedule", "*/5 * * * *")
	v.SetDefault("poller.concurrency", 4)
	v.SetDefault("poller.poll_timeout", "30s")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	// Environment variables
	v.SetEnvPrefix("SPENDWATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file (ignore if not found)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	return &cfg, nil
}
