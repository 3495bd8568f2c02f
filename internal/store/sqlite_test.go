package store

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studioforge/asset-cli/internal/model"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func sampleEntry(assetID string) model.PrepassCacheEntry {
	f := model.FallbackPrepassFeatures()
	f.PrimarySubject = model.SubjectHuman
	f.SubjectsPresent = []model.Subject{model.SubjectHuman}
	f.Counts.Humans = 1
	f.FreeCaption = "a rider"
	f.Confidence.Overall = 0.8

	priors := model.ZeroPriors()
	priors[model.CategoryCharacter] = 0.65

	return model.PrepassCacheEntry{
		AssetID:    assetID,
		Features:   f,
		Priors:     priors,
		Model:      "vision-model",
		Confidence: 0.8,
	}
}

func TestSQLite_PrepassMissReturnsNil(t *testing.T) {
	s := newTestStore(t)

	entry, err := s.GetPrepass(context.Background(), "missing")
	require.NoError(t, err)
	assert.Nil(t, entry)
}

func TestSQLite_PrepassUpsertOverwrites(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first := sampleEntry("asset-1")
	require.NoError(t, s.UpsertPrepass(ctx, first))

	got, err := s.GetPrepass(ctx, "asset-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, model.SubjectHuman, got.Features.PrimarySubject)
	assert.InDelta(t, 0.65, got.Priors[model.CategoryCharacter], 1e-9)

	// Second write replaces, never appends.
	second := first
	second.Features.FreeCaption = "two riders"
	second.Features.Counts.Humans = 2
	require.NoError(t, s.UpsertPrepass(ctx, second))

	got, err = s.GetPrepass(ctx, "asset-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "two riders", got.Features.FreeCaption)
	assert.Equal(t, 2, got.Features.Counts.Humans)
}

func TestSQLite_AuditAppendAndList(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	conf := 0.7
	recs := []model.AuditRecord{
		{
			ID:        uuid.New().String(),
			AssetID:   "asset-1",
			ProjectID: "proj-1",
			Action:    "prepass",
			Input:     map[string]any{"image": "a.png"},
			Output:    map[string]any{"primary_subject": "human"},
			Confidence: &conf,
			Status:    model.AuditOK,
			Diff:      map[string]any{"added": map[string]any{"free_caption": "a rider"}},
			Actor:     "tester",
			CreatedAt: time.Now().UTC().Add(-time.Minute),
		},
		{
			ID:        uuid.New().String(),
			AssetID:   "asset-1",
			Action:    "classify",
			Status:    model.AuditError,
			Error:     "upstream: vision call failed",
			Actor:     "tester",
			CreatedAt: time.Now().UTC(),
		},
	}
	for _, rec := range recs {
		require.NoError(t, s.AppendAudit(ctx, rec))
	}

	got, err := s.ListAudit(ctx, "asset-1", 10)
	require.NoError(t, err)
	require.Len(t, got, 2)

	// Newest first.
	assert.Equal(t, "classify", got[0].Action)
	assert.Equal(t, model.AuditError, got[0].Status)
	assert.Contains(t, got[0].Error, "upstream")
	assert.Nil(t, got[0].Diff)

	assert.Equal(t, "prepass", got[1].Action)
	require.NotNil(t, got[1].Confidence)
	assert.InDelta(t, 0.7, *got[1].Confidence, 1e-9)
	assert.Equal(t, "human", got[1].Output["primary_subject"])
	assert.NotNil(t, got[1].Diff)

	other, err := s.ListAudit(ctx, "asset-2", 10)
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestSQLite_EntityTypeCatalog(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	types := []model.EntityType{
		{ID: "t1", Name: "Main Character"},
		{ID: "t2", Name: "Forest Location"},
	}
	require.NoError(t, s.SeedEntityTypes(ctx, "proj-1", types))
	// Seeding twice is a no-op.
	require.NoError(t, s.SeedEntityTypes(ctx, "proj-1", types))

	got, err := s.ListEntityTypes(ctx, "proj-1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Forest Location", got[0].Name)

	empty, err := s.ListEntityTypes(ctx, "proj-2")
	require.NoError(t, err)
	assert.Empty(t, empty)
}
