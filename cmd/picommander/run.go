package main

import (
	"github.com/spf13/cobra"

	"picommander/pkg/app"
)

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Start the bot session and the webhook HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDaemon(cmd)
		},
	}
}

func runDaemon(cmd *cobra.Command) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}

	a, err := app.New(cfg, log)
	if err != nil {
		log.Error("startup failed", "error", err)
		return err
	}
	return a.Run(cmd.Context())
}
