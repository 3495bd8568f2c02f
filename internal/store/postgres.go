package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/studioforge/asset-cli/internal/model"
)

// Pool is the subset of pgxpool.Pool the store uses; pgxmock satisfies it.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close()
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool Pool
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

// NewPostgresWithPool wraps an existing pool (used by tests with pgxmock).
func NewPostgresWithPool(pool Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS prepass_cache (
	asset_id   TEXT PRIMARY KEY,
	features   JSONB NOT NULL,
	priors     JSONB NOT NULL,
	model      TEXT NOT NULL,
	confidence DOUBLE PRECISION NOT NULL DEFAULT 0,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS audit_log (
	id         TEXT PRIMARY KEY,
	asset_id   TEXT NOT NULL,
	project_id TEXT NOT NULL DEFAULT '',
	action     TEXT NOT NULL,
	input      JSONB,
	output     JSONB,
	confidence DOUBLE PRECISION,
	status     TEXT NOT NULL,
	error      TEXT NOT NULL DEFAULT '',
	diff       JSONB,
	actor      TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_audit_log_asset_id ON audit_log(asset_id, created_at DESC);

CREATE TABLE IF NOT EXISTS entity_types (
	id         TEXT PRIMARY KEY,
	project_id TEXT NOT NULL,
	name       TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_entity_types_project ON entity_types(project_id);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.pool != nil {
		s.pool.Close()
	}
	return nil
}

func (s *PostgresStore) GetPrepass(ctx context.Context, assetID string) (*model.PrepassCacheEntry, error) {
	var entry model.PrepassCacheEntry
	var featuresJSON, priorsJSON []byte

	err := s.pool.QueryRow(ctx,
		`SELECT asset_id, features, priors, model, confidence, created_at, updated_at
		 FROM prepass_cache WHERE asset_id = $1`,
		assetID,
	).Scan(&entry.AssetID, &featuresJSON, &priorsJSON, &entry.Model, &entry.Confidence, &entry.CreatedAt, &entry.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrap(err, "postgres: get prepass")
	}
	if err := json.Unmarshal(featuresJSON, &entry.Features); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal features")
	}
	if err := json.Unmarshal(priorsJSON, &entry.Priors); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal priors")
	}
	return &entry, nil
}

func (s *PostgresStore) UpsertPrepass(ctx context.Context, entry model.PrepassCacheEntry) error {
	featuresJSON, err := json.Marshal(entry.Features)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal features")
	}
	priorsJSON, err := json.Marshal(entry.Priors)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal priors")
	}

	now := time.Now().UTC()
	_, err = s.pool.Exec(ctx,
		`INSERT INTO prepass_cache (asset_id, features, priors, model, confidence, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $6)
		 ON CONFLICT (asset_id) DO UPDATE SET
			features = EXCLUDED.features,
			priors = EXCLUDED.priors,
			model = EXCLUDED.model,
			confidence = EXCLUDED.confidence,
			updated_at = EXCLUDED.updated_at`,
		entry.AssetID, featuresJSON, priorsJSON, entry.Model, entry.Confidence, now,
	)
	return eris.Wrap(err, "postgres: upsert prepass")
}

func (s *PostgresStore) AppendAudit(ctx context.Context, rec model.AuditRecord) error {
	inputJSON, err := marshalNullable(rec.Input)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal audit input")
	}
	outputJSON, err := marshalNullable(rec.Output)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal audit output")
	}
	diffJSON, err := marshalNullable(rec.Diff)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal audit diff")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO audit_log (id, asset_id, project_id, action, input, output, confidence, status, error, diff, actor, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		rec.ID, rec.AssetID, rec.ProjectID, rec.Action, inputJSON, outputJSON,
		rec.Confidence, string(rec.Status), rec.Error, diffJSON, rec.Actor, rec.CreatedAt,
	)
	return eris.Wrap(err, "postgres: append audit")
}

func (s *PostgresStore) ListAudit(ctx context.Context, assetID string, limit int) ([]model.AuditRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, asset_id, project_id, action, input, output, confidence, status, error, diff, actor, created_at
		 FROM audit_log WHERE asset_id = $1 ORDER BY created_at DESC LIMIT $2`,
		assetID, limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list audit")
	}
	defer rows.Close()

	var records []model.AuditRecord
	for rows.Next() {
		var rec model.AuditRecord
		var status string
		var inputJSON, outputJSON, diffJSON []byte
		if err := rows.Scan(&rec.ID, &rec.AssetID, &rec.ProjectID, &rec.Action,
			&inputJSON, &outputJSON, &rec.Confidence, &status, &rec.Error,
			&diffJSON, &rec.Actor, &rec.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan audit row")
		}
		rec.Status = model.AuditStatus(status)
		if err := unmarshalNullable(inputJSON, &rec.Input); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal audit input")
		}
		if err := unmarshalNullable(outputJSON, &rec.Output); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal audit output")
		}
		if err := unmarshalNullable(diffJSON, &rec.Diff); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal audit diff")
		}
		records = append(records, rec)
	}
	return records, eris.Wrap(rows.Err(), "postgres: iterate audit rows")
}

func (s *PostgresStore) ListEntityTypes(ctx context.Context, projectID string) ([]model.EntityType, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, name FROM entity_types WHERE project_id = $1 ORDER BY name`,
		projectID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list entity types")
	}
	defer rows.Close()

	var types []model.EntityType
	for rows.Next() {
		var et model.EntityType
		if err := rows.Scan(&et.ID, &et.Name); err != nil {
			return nil, eris.Wrap(err, "postgres: scan entity type")
		}
		types = append(types, et)
	}
	return types, eris.Wrap(rows.Err(), "postgres: iterate entity types")
}

// SeedEntityTypes inserts catalog rows if absent.
func (s *PostgresStore) SeedEntityTypes(ctx context.Context, projectID string, types []model.EntityType) error {
	for _, et := range types {
		if _, err := s.pool.Exec(ctx,
			`INSERT INTO entity_types (id, project_id, name) VALUES ($1, $2, $3)
			 ON CONFLICT (id) DO NOTHING`,
			et.ID, projectID, et.Name,
		); err != nil {
			return eris.Wrapf(err, "postgres: seed entity type %s", et.Name)
		}
	}
	return nil
}

func marshalNullable(m map[string]any) ([]byte, error) {
	if m == nil {
		return nil, nil
	}
	return json.Marshal(m)
}

func unmarshalNullable(raw []byte, dst *map[string]any) error {
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, dst)
}
