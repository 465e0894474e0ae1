package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/robertroyster/lookbook-admin/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "lookbook-admin",
	Short: "Admin backend for photo-first restaurant menus",
	Long:  "Ingests scraped restaurant listings into draft menus, issues ownership claims, and publishes versioned menu documents.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
