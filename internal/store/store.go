package store

import (
	"context"

	"github.com/studioforge/asset-cli/internal/model"
)

// Store defines the persistence interface for the classification pipeline:
// an upsert-by-asset-id prepass cache, an append-only audit trail, and the
// read-only entity-type catalog.
type Store interface {
	// Prepass cache. GetPrepass returns (nil, nil) on a cache miss.
	GetPrepass(ctx context.Context, assetID string) (*model.PrepassCacheEntry, error)
	UpsertPrepass(ctx context.Context, entry model.PrepassCacheEntry) error

	// Audit trail. Records are append-only and never mutated.
	AppendAudit(ctx context.Context, rec model.AuditRecord) error
	ListAudit(ctx context.Context, assetID string, limit int) ([]model.AuditRecord, error)

	// Entity-type catalog.
	ListEntityTypes(ctx context.Context, projectID string) ([]model.EntityType, error)

	// Lifecycle.
	Migrate(ctx context.Context) error
	Close() error
}
