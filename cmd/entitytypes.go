package main

import (
	"context"
	"encoding/json"
	"os"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/studioforge/asset-cli/internal/classify"
	"github.com/studioforge/asset-cli/internal/model"
	"github.com/studioforge/asset-cli/internal/store"
)

var (
	typesAssetID string
	typesProject string
	typesCatalog string
)

var entityTypesCmd = &cobra.Command{
	Use:   "entity-types",
	Short: "Rank and manage project entity types",
}

var entityTypesRankCmd = &cobra.Command{
	Use:   "rank",
	Short: "Rank entity types against an asset's cached features",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("entity-types"); err != nil {
			return err
		}

		st, err := initStore(cmd.Context())
		if err != nil {
			return err
		}
		defer st.Close()

		entry, err := st.GetPrepass(cmd.Context(), typesAssetID)
		if err != nil {
			return err
		}
		if entry == nil {
			return eris.Errorf("no cached prepass for asset %s, run prepass first", typesAssetID)
		}

		types, err := st.ListEntityTypes(cmd.Context(), typesProject)
		if err != nil {
			return err
		}

		ranking := classify.RankEntityTypes(types, entry.Features, entry.Priors, nil)

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(ranking)
	},
}

var entityTypesSeedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the entity-type catalog from a YAML file",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("entity-types"); err != nil {
			return err
		}

		types, err := loadCatalog(typesCatalog)
		if err != nil {
			return err
		}

		st, err := initStore(cmd.Context())
		if err != nil {
			return err
		}
		defer st.Close()

		seeder, ok := st.(interface {
			SeedEntityTypes(ctx context.Context, projectID string, types []model.EntityType) error
		})
		if !ok {
			return eris.New("store does not support seeding")
		}
		if err := seeder.SeedEntityTypes(cmd.Context(), typesProject, types); err != nil {
			return err
		}

		cmd.Printf("seeded %d entity types for project %s\n", len(types), typesProject)
		return nil
	},
}

// loadCatalog reads a YAML list of entity types. Entries without an id get a
// generated one.
func loadCatalog(path string) ([]model.EntityType, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "read catalog file")
	}

	var doc struct {
		Types []struct {
			ID   string `yaml:"id"`
			Name string `yaml:"name"`
		} `yaml:"types"`
	}
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, eris.Wrap(err, "parse catalog file")
	}

	types := make([]model.EntityType, 0, len(doc.Types))
	for _, t := range doc.Types {
		if t.Name == "" {
			return nil, eris.New("catalog entry missing name")
		}
		id := t.ID
		if id == "" {
			id = uuid.New().String()
		}
		types = append(types, model.EntityType{ID: id, Name: t.Name})
	}
	return types, nil
}

// ensure the interface assertion in seed stays in sync with both backends
var (
	_ interface {
		SeedEntityTypes(ctx context.Context, projectID string, types []model.EntityType) error
	} = (*store.SQLiteStore)(nil)
	_ interface {
		SeedEntityTypes(ctx context.Context, projectID string, types []model.EntityType) error
	} = (*store.PostgresStore)(nil)
)

func init() {
	entityTypesRankCmd.Flags().StringVar(&typesAssetID, "asset", "", "asset id (required)")
	entityTypesRankCmd.Flags().StringVar(&typesProject, "project", "", "project id")
	_ = entityTypesRankCmd.MarkFlagRequired("asset")

	entityTypesSeedCmd.Flags().StringVar(&typesProject, "project", "", "project id (required)")
	entityTypesSeedCmd.Flags().StringVar(&typesCatalog, "catalog", "", "YAML catalog file (required)")
	_ = entityTypesSeedCmd.MarkFlagRequired("project")
	_ = entityTypesSeedCmd.MarkFlagRequired("catalog")

	entityTypesCmd.AddCommand(entityTypesRankCmd, entityTypesSeedCmd)
	rootCmd.AddCommand(entityTypesCmd)
}
