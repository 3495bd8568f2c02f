package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/studioforge/asset-cli/internal/classify"
)

var (
	classifyAssetID string
	classifyProject string
	classifyActor   string
)

var classifyCmd = &cobra.Command{
	Use:   "classify <image>",
	Short: "Classify one asset image and decide auto-assign or review",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("classify"); err != nil {
			return err
		}

		env, err := initPipeline(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		result, err := env.Classify.Run(cmd.Context(), classify.Request{
			AssetID:   classifyAssetID,
			ProjectID: classifyProject,
			ImagePath: args[0],
			Actor:     classifyActor,
		})
		if err != nil {
			return err
		}

		zap.L().Info("classification complete",
			zap.String("asset_id", result.AssetID),
			zap.String("status", string(result.Decision.Status)),
			zap.String("reason", result.Decision.Reason),
		)

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	},
}

func init() {
	classifyCmd.Flags().StringVar(&classifyAssetID, "asset", "", "asset id (required)")
	classifyCmd.Flags().StringVar(&classifyProject, "project", "", "project id")
	classifyCmd.Flags().StringVar(&classifyActor, "actor", "cli", "acting user recorded in the audit log")
	_ = classifyCmd.MarkFlagRequired("asset")
	rootCmd.AddCommand(classifyCmd)
}
