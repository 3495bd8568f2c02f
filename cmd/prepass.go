package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/studioforge/asset-cli/internal/prepass"
)

var (
	prepassAssetID string
	prepassProject string
	prepassActor   string
)

var prepassCmd = &cobra.Command{
	Use:   "prepass <image>",
	Short: "Extract and cache subject features for one asset image",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("prepass"); err != nil {
			return err
		}

		env, err := initPipeline(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		result, err := env.Prepass.Run(cmd.Context(), prepass.Request{
			AssetID:   prepassAssetID,
			ProjectID: prepassProject,
			ImagePath: args[0],
			Actor:     prepassActor,
		})
		if err != nil {
			return err
		}

		zap.L().Info("prepass complete",
			zap.String("asset_id", result.AssetID),
			zap.Bool("unchanged", result.Unchanged),
		)

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	},
}

func init() {
	prepassCmd.Flags().StringVar(&prepassAssetID, "asset", "", "asset id (required)")
	prepassCmd.Flags().StringVar(&prepassProject, "project", "", "project id")
	prepassCmd.Flags().StringVar(&prepassActor, "actor", "cli", "acting user recorded in the audit log")
	_ = prepassCmd.MarkFlagRequired("asset")
	rootCmd.AddCommand(prepassCmd)
}
