package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/studioforge/asset-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite. It backs local
// development and single-node deployments.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS prepass_cache (
	asset_id   TEXT PRIMARY KEY,
	features   TEXT NOT NULL,
	priors     TEXT NOT NULL,
	model      TEXT NOT NULL,
	confidence REAL NOT NULL DEFAULT 0,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS audit_log (
	id         TEXT PRIMARY KEY,
	asset_id   TEXT NOT NULL,
	project_id TEXT NOT NULL DEFAULT '',
	action     TEXT NOT NULL,
	input      TEXT,
	output     TEXT,
	confidence REAL,
	status     TEXT NOT NULL,
	error      TEXT NOT NULL DEFAULT '',
	diff       TEXT,
	actor      TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_audit_log_asset_id ON audit_log(asset_id, created_at DESC);

CREATE TABLE IF NOT EXISTS entity_types (
	id         TEXT PRIMARY KEY,
	project_id TEXT NOT NULL,
	name       TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_entity_types_project ON entity_types(project_id);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) GetPrepass(ctx context.Context, assetID string) (*model.PrepassCacheEntry, error) {
	var entry model.PrepassCacheEntry
	var featuresJSON, priorsJSON string

	err := s.db.QueryRowContext(ctx,
		`SELECT asset_id, features, priors, model, confidence, created_at, updated_at
		 FROM prepass_cache WHERE asset_id = ?`,
		assetID,
	).Scan(&entry.AssetID, &featuresJSON, &priorsJSON, &entry.Model, &entry.Confidence, &entry.CreatedAt, &entry.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, eris.Wrap(err, "sqlite: get prepass")
	}
	if err := json.Unmarshal([]byte(featuresJSON), &entry.Features); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal features")
	}
	if err := json.Unmarshal([]byte(priorsJSON), &entry.Priors); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal priors")
	}
	return &entry, nil
}

func (s *SQLiteStore) UpsertPrepass(ctx context.Context, entry model.PrepassCacheEntry) error {
	featuresJSON, err := json.Marshal(entry.Features)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal features")
	}
	priorsJSON, err := json.Marshal(entry.Priors)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal priors")
	}

	now := time.Now().UTC()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO prepass_cache (asset_id, features, priors, model, confidence, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (asset_id) DO UPDATE SET
			features = excluded.features,
			priors = excluded.priors,
			model = excluded.model,
			confidence = excluded.confidence,
			updated_at = excluded.updated_at`,
		entry.AssetID, string(featuresJSON), string(priorsJSON), entry.Model, entry.Confidence, now, now,
	)
	return eris.Wrap(err, "sqlite: upsert prepass")
}

func (s *SQLiteStore) AppendAudit(ctx context.Context, rec model.AuditRecord) error {
	inputJSON, err := marshalNullable(rec.Input)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal audit input")
	}
	outputJSON, err := marshalNullable(rec.Output)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal audit output")
	}
	diffJSON, err := marshalNullable(rec.Diff)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal audit diff")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO audit_log (id, asset_id, project_id, action, input, output, confidence, status, error, diff, actor, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.AssetID, rec.ProjectID, rec.Action, nullableText(inputJSON), nullableText(outputJSON),
		rec.Confidence, string(rec.Status), rec.Error, nullableText(diffJSON), rec.Actor, rec.CreatedAt,
	)
	return eris.Wrap(err, "sqlite: append audit")
}

func (s *SQLiteStore) ListAudit(ctx context.Context, assetID string, limit int) ([]model.AuditRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, asset_id, project_id, action, input, output, confidence, status, error, diff, actor, created_at
		 FROM audit_log WHERE asset_id = ? ORDER BY created_at DESC LIMIT ?`,
		assetID, limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list audit")
	}
	defer rows.Close()

	var records []model.AuditRecord
	for rows.Next() {
		var rec model.AuditRecord
		var status string
		var inputJSON, outputJSON, diffJSON sql.NullString
		if err := rows.Scan(&rec.ID, &rec.AssetID, &rec.ProjectID, &rec.Action,
			&inputJSON, &outputJSON, &rec.Confidence, &status, &rec.Error,
			&diffJSON, &rec.Actor, &rec.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan audit row")
		}
		rec.Status = model.AuditStatus(status)
		if err := unmarshalNullable([]byte(inputJSON.String), &rec.Input); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal audit input")
		}
		if err := unmarshalNullable([]byte(outputJSON.String), &rec.Output); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal audit output")
		}
		if err := unmarshalNullable([]byte(diffJSON.String), &rec.Diff); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal audit diff")
		}
		records = append(records, rec)
	}
	return records, eris.Wrap(rows.Err(), "sqlite: iterate audit rows")
}

func (s *SQLiteStore) ListEntityTypes(ctx context.Context, projectID string) ([]model.EntityType, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name FROM entity_types WHERE project_id = ? ORDER BY name`,
		projectID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list entity types")
	}
	defer rows.Close()

	var types []model.EntityType
	for rows.Next() {
		var et model.EntityType
		if err := rows.Scan(&et.ID, &et.Name); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan entity type")
		}
		types = append(types, et)
	}
	return types, eris.Wrap(rows.Err(), "sqlite: iterate entity types")
}

// SeedEntityTypes inserts catalog rows if absent (development convenience).
func (s *SQLiteStore) SeedEntityTypes(ctx context.Context, projectID string, types []model.EntityType) error {
	for _, et := range types {
		if _, err := s.db.ExecContext(ctx,
			`INSERT OR IGNORE INTO entity_types (id, project_id, name) VALUES (?, ?, ?)`,
			et.ID, projectID, et.Name,
		); err != nil {
			return eris.Wrapf(err, "sqlite: seed entity type %s", et.Name)
		}
	}
	return nil
}

func nullableText(raw []byte) any {
	if raw == nil {
		return nil
	}
	return string(raw)
}
