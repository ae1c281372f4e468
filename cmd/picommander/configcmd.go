package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"picommander/pkg/config"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration helpers",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Write a starter config.yaml",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := cfgFile
			if path == "" {
				path = "config.yaml"
			}
			if err := config.WriteDefault(path); err != nil {
				return err
			}
			fmt.Printf("Created config file at %s\n", path)
			return nil
		},
	})
	return cmd
}
