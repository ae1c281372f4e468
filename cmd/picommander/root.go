// Command picommander relays Telegram webhook deliveries to administrative
// bot commands that manage a host service through systemctl.
package main

import (
	"fmt"
	"log/slog"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"picommander/pkg/config"
	"picommander/pkg/logging"
)

var cfgFile string

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "picommander",
		Short:        "Telegram service administration bot",
		Long:         "PiCommander runs a Telegram bot session and a webhook HTTP server,\nrelaying chat commands to the host service manager.",
		SilenceUsage: true,
		// Bare invocation behaves like `picommander run`.
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDaemon(cmd)
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file path (default ./config.yaml)")

	cmd.AddCommand(newRunCmd())
	cmd.AddCommand(newWebhookCmd())
	cmd.AddCommand(newConfigCmd())
	return cmd
}

// setup loads .env, the config file and the logger shared by every
// subcommand that talks to the platform.
func setup() (*config.Config, *slog.Logger, error) {
	_ = godotenv.Load()

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	log, err := logging.New(logging.Options{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		File:   cfg.Log.File,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("logging: %w", err)
	}
	slog.SetDefault(log)
	return cfg, log, nil
}
