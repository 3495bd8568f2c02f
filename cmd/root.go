package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/studioforge/asset-cli/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "asset-cli",
	Short: "AI-assisted asset classification pipeline",
	Long:  "Extracts validated features from asset images, derives category priors, ranks classification candidates by embedding similarity, and records auditable auto-assign decisions.",
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
