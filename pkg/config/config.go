// Package config loads the relay configuration from a YAML file and
// PICOMMANDER_* environment variables, environment taking precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix for environment overrides, e.g.
// PICOMMANDER_BOT_TOKEN.
const EnvPrefix = "PICOMMANDER"

// LogConfig selects logging behavior.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	File   string `yaml:"file,omitempty"`
}

// WatchdogConfig controls the periodic service health probe.
type WatchdogConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Schedule string `yaml:"schedule"`
	ChatID   int64  `yaml:"chat_id"`
}

// Config is read once at startup and treated as read-only afterwards.
type Config struct {
	// BotToken authenticates against the Telegram bot API. Never logged.
	BotToken string `yaml:"bot_token"`

	// WebhookURL is the public base URL registered with Telegram; the
	// /webhook path is appended on registration.
	WebhookURL string `yaml:"webhook_url"`

	ListenAddr  string `yaml:"listen_addr"`
	SecretToken string `yaml:"secret_token,omitempty"`

	// Service is the systemd unit administered by the bot commands.
	Service string `yaml:"service"`

	Log      LogConfig      `yaml:"log"`
	Watchdog WatchdogConfig `yaml:"watchdog"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		ListenAddr: ":5000",
		Service:    "fail2ban",
		Log:        LogConfig{Level: "info", Format: "text"},
		Watchdog:   WatchdogConfig{Schedule: "* * * * *"},
	}
}

// Load reads configuration from path (or ./config.yaml when empty) merged
// with environment variables. A missing default file is tolerated; a
// missing explicit path is an error.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	def := Default()
	v.SetDefault("listen_addr", def.ListenAddr)
	v.SetDefault("service", def.Service)
	v.SetDefault("log.level", def.Log.Level)
	v.SetDefault("log.format", def.Log.Format)
	v.SetDefault("watchdog.enabled", false)
	v.SetDefault("watchdog.schedule", def.Watchdog.Schedule)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config: %w", err)
			}
			// No file is fine, env and defaults carry the day.
		}
	}

	cfg := &Config{
		BotToken:    v.GetString("bot_token"),
		WebhookURL:  strings.TrimRight(v.GetString("webhook_url"), "/"),
		ListenAddr:  v.GetString("listen_addr"),
		SecretToken: v.GetString("secret_token"),
		Service:     v.GetString("service"),
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			File:   v.GetString("log.file"),
		},
		Watchdog: WatchdogConfig{
			Enabled:  v.GetBool("watchdog.enabled"),
			Schedule: v.GetString("watchdog.schedule"),
			ChatID:   v.GetInt64("watchdog.chat_id"),
		},
	}
	return cfg, nil
}

// Validate checks the fields every runtime command needs.
func (c *Config) Validate() error {
	if c.BotToken == "" {
		return errors.New("bot_token must be provided")
	}
	return nil
}

// WriteDefault scaffolds a starter config file at path. Refuses to
// overwrite an existing file.
func WriteDefault(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	data, err := yaml.Marshal(Default())
	if err != nil {
		return err
	}
	// 0600: the file will hold the bot token.
	return os.WriteFile(path, data, 0o600)
}
