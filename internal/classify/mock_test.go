package classify

import (
	"context"
	"sync"

	"github.com/studioforge/asset-cli/internal/extract"
	"github.com/studioforge/asset-cli/internal/model"
)

// mockAI serves canned extraction output and deterministic per-text
// embedding vectors.
type mockAI struct {
	mu sync.Mutex

	raw        map[string]any
	extractErr error
	embedErr   error
	vectors    map[string][]float64

	extractCalls int
	embedded     []string
}

func (m *mockAI) Extract(ctx context.Context, img extract.Image, schema map[string]any, instruction string, maxRetries int) (map[string]any, error) {
	m.mu.Lock()
	m.extractCalls++
	m.mu.Unlock()
	if m.extractErr != nil {
		return nil, m.extractErr
	}
	return m.raw, nil
}

func (m *mockAI) Embed(ctx context.Context, text string) ([]float64, error) {
	m.mu.Lock()
	m.embedded = append(m.embedded, text)
	m.mu.Unlock()
	if m.embedErr != nil {
		return nil, m.embedErr
	}
	if vec, ok := m.vectors[text]; ok {
		return vec, nil
	}
	return []float64{1, 0, 0}, nil
}

func (m *mockAI) EmbedAll(ctx context.Context, texts []string) ([][]float64, error) {
	out := make([][]float64, len(texts))
	for i, text := range texts {
		vec, err := m.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		out[i] = vec
	}
	return out, nil
}

func (m *mockAI) Model() string { return "vision-model" }

// mockStore is an in-memory store.Store.
type mockStore struct {
	cached  *model.PrepassCacheEntry
	upserts []model.PrepassCacheEntry
	audits  []model.AuditRecord
	types   []model.EntityType
}

func (m *mockStore) GetPrepass(ctx context.Context, assetID string) (*model.PrepassCacheEntry, error) {
	return m.cached, nil
}

func (m *mockStore) UpsertPrepass(ctx context.Context, entry model.PrepassCacheEntry) error {
	m.upserts = append(m.upserts, entry)
	return nil
}

func (m *mockStore) AppendAudit(ctx context.Context, rec model.AuditRecord) error {
	m.audits = append(m.audits, rec)
	return nil
}

func (m *mockStore) ListAudit(ctx context.Context, assetID string, limit int) ([]model.AuditRecord, error) {
	return m.audits, nil
}

func (m *mockStore) ListEntityTypes(ctx context.Context, projectID string) ([]model.EntityType, error) {
	return m.types, nil
}

func (m *mockStore) Migrate(ctx context.Context) error { return nil }
func (m *mockStore) Close() error                      { return nil }
