package persist

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/lib/pq"
)

// =============================================================================
// POSTGRES STORE
// =============================================================================

// PostgresStore implements Store over database/sql with the pq driver.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore wraps db and ensures the schema exists.
func NewPostgresStore(db *sql.DB) (*PostgresStore, error) {
	store := &PostgresStore{db: db}
	if err := store.ensureSchema(); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return store, nil
}

// ensureSchema creates the required tables if they don't exist.
func (s *PostgresStore) ensureSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS raw_ingestions (
		id BIGSERIAL PRIMARY KEY,
		source TEXT NOT NULL,
		hash TEXT NOT NULL,
		file_path TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'ingested',
		metadata JSONB DEFAULT '{}',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE(source, hash)
	);

	CREATE TABLE IF NOT EXISTS extracted_entities (
		id BIGSERIAL PRIMARY KEY,
		source TEXT NOT NULL,
		entity_class TEXT NOT NULL,
		attributes JSONB NOT NULL DEFAULT '{}',
		discovered_attributes JSONB NOT NULL DEFAULT '{}',
		external_ids JSONB NOT NULL DEFAULT '{}',
		raw_ingestion_id BIGINT NOT NULL REFERENCES raw_ingestions(id),
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS entities (
		id BIGSERIAL PRIMARY KEY,
		entity_name TEXT NOT NULL,
		entity_class TEXT NOT NULL,
		slug TEXT NOT NULL UNIQUE,
		canonical_activities TEXT[] DEFAULT '{}',
		canonical_roles TEXT[] DEFAULT '{}',
		canonical_place_types TEXT[] DEFAULT '{}',
		canonical_access TEXT[] DEFAULT '{}',
		groupings TEXT[] DEFAULT '{}',
		modules JSONB DEFAULT '{}',
		lat DOUBLE PRECISION,
		lng DOUBLE PRECISION,
		address TEXT,
		street TEXT,
		city TEXT,
		postcode TEXT,
		country TEXT,
		phone TEXT,
		email TEXT,
		website TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS connector_usage (
		connector_name TEXT NOT NULL,
		date DATE NOT NULL,
		request_count INTEGER NOT NULL DEFAULT 0,
		UNIQUE(connector_name, date)
	);

	CREATE TABLE IF NOT EXISTS orchestration_runs (
		id TEXT PRIMARY KEY,
		query TEXT NOT NULL,
		lens_id TEXT,
		started_at TIMESTAMPTZ NOT NULL,
		finished_at TIMESTAMPTZ,
		candidates_found INTEGER DEFAULT 0,
		accepted_entities INTEGER DEFAULT 0,
		persisted_count INTEGER DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_raw_source_hash ON raw_ingestions(source, hash);
	CREATE INDEX IF NOT EXISTS idx_extracted_raw ON extracted_entities(raw_ingestion_id);
	CREATE INDEX IF NOT EXISTS idx_entities_class ON entities(entity_class);
	CREATE INDEX IF NOT EXISTS idx_entities_activities ON entities USING gin(canonical_activities);
	`
	_, err := s.db.Exec(schema)
	return err
}

// FindRawIngestion implements Store.
func (s *PostgresStore) FindRawIngestion(ctx context.Context, source, hash string) (int64, bool, error) {
	var id int64
	err := s.db.QueryRowContext(ctx,
		`SELECT id FROM raw_ingestions WHERE source = $1 AND hash = $2`,
		source, hash).Scan(&id)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("find raw ingestion: %w", err)
	}
	return id, true, nil
}

// CreateRawIngestion implements Store.
func (s *PostgresStore) CreateRawIngestion(ctx context.Context, rec *RawIngestion) (int64, error) {
	metadata, err := json.Marshal(rec.Metadata)
	if err != nil {
		return 0, fmt.Errorf("marshal metadata: %w", err)
	}
	if rec.Status == "" {
		rec.Status = StatusIngested
	}

	var id int64
	err = s.db.QueryRowContext(ctx, `
		INSERT INTO raw_ingestions (source, hash, file_path, status, metadata)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (source, hash) DO UPDATE SET status = EXCLUDED.status
		RETURNING id
	`, rec.Source, rec.Hash, rec.FilePath, rec.Status, metadata).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert raw ingestion: %w", err)
	}
	return id, nil
}

// InsertExtractedEntity implements Store.
func (s *PostgresStore) InsertExtractedEntity(ctx context.Context, rec *ExtractedEntity) (int64, error) {
	attrs, err := json.Marshal(rec.Attributes)
	if err != nil {
		return 0, fmt.Errorf("marshal attributes: %w", err)
	}
	discovered, err := json.Marshal(rec.DiscoveredAttributes)
	if err != nil {
		return 0, fmt.Errorf("marshal discovered attributes: %w", err)
	}
	externalIDs, err := json.Marshal(rec.ExternalIDs)
	if err != nil {
		return 0, fmt.Errorf("marshal external ids: %w", err)
	}

	var id int64
	err = s.db.QueryRowContext(ctx, `
		INSERT INTO extracted_entities
			(source, entity_class, attributes, discovered_attributes, external_ids, raw_ingestion_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`, rec.Source, rec.EntityClass, attrs, discovered, externalIDs, rec.RawIngestionID).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert extracted entity: %w", err)
	}
	return id, nil
}

// UpsertEntity implements Store. The slug carries the unique constraint.
func (s *PostgresStore) UpsertEntity(ctx context.Context, e *Entity) (bool, error) {
	modules, err := json.Marshal(e.Modules)
	if err != nil {
		return false, fmt.Errorf("marshal modules: %w", err)
	}

	var created bool
	err = s.db.QueryRowContext(ctx, `
		INSERT INTO entities
			(entity_name, entity_class, slug,
			 canonical_activities, canonical_roles, canonical_place_types, canonical_access,
			 groupings, modules, lat, lng, address, street, city, postcode, country,
			 phone, email, website, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, NOW())
		ON CONFLICT (slug) DO UPDATE SET
			entity_name = EXCLUDED.entity_name,
			entity_class = EXCLUDED.entity_class,
			canonical_activities = EXCLUDED.canonical_activities,
			canonical_roles = EXCLUDED.canonical_roles,
			canonical_place_types = EXCLUDED.canonical_place_types,
			canonical_access = EXCLUDED.canonical_access,
			groupings = EXCLUDED.groupings,
			modules = EXCLUDED.modules,
			lat = COALESCE(EXCLUDED.lat, entities.lat),
			lng = COALESCE(EXCLUDED.lng, entities.lng),
			address = COALESCE(NULLIF(EXCLUDED.address, ''), entities.address),
			street = COALESCE(NULLIF(EXCLUDED.street, ''), entities.street),
			city = COALESCE(NULLIF(EXCLUDED.city, ''), entities.city),
			postcode = COALESCE(NULLIF(EXCLUDED.postcode, ''), entities.postcode),
			country = COALESCE(NULLIF(EXCLUDED.country, ''), entities.country),
			phone = COALESCE(NULLIF(EXCLUDED.phone, ''), entities.phone),
			email = COALESCE(NULLIF(EXCLUDED.email, ''), entities.email),
			website = COALESCE(NULLIF(EXCLUDED.website, ''), entities.website),
			updated_at = NOW()
		RETURNING (xmax = 0)
	`, e.EntityName, e.EntityClass, e.Slug,
		pq.Array(e.Activities), pq.Array(e.Roles), pq.Array(e.PlaceTypes), pq.Array(e.Access),
		pq.Array(e.Groupings), modules, e.Lat, e.Lng, e.Address, e.Street, e.City, e.Postcode, e.Country,
		e.Phone, e.Email, e.Website).Scan(&created)
	if err != nil {
		return false, fmt.Errorf("upsert entity: %w", err)
	}
	return created, nil
}

// RecordRun implements Store.
func (s *PostgresStore) RecordRun(ctx context.Context, run *RunRecord) error {
	finished := sql.NullTime{Time: run.FinishedAt, Valid: !run.FinishedAt.IsZero()}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO orchestration_runs
			(id, query, lens_id, started_at, finished_at,
			 candidates_found, accepted_entities, persisted_count)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			finished_at = EXCLUDED.finished_at,
			candidates_found = EXCLUDED.candidates_found,
			accepted_entities = EXCLUDED.accepted_entities,
			persisted_count = EXCLUDED.persisted_count
	`, run.ID, run.Query, run.LensID, run.StartedAt, finished,
		run.CandidatesFound, run.AcceptedEntities, run.PersistedCount)
	if err != nil {
		return fmt.Errorf("record run: %w", err)
	}
	return nil
}

var _ Store = (*PostgresStore)(nil)

// MarkRawStatus updates a raw record's status after extraction.
func (s *PostgresStore) MarkRawStatus(ctx context.Context, id int64, status string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE raw_ingestions SET status = $2 WHERE id = $1`, id, status)
	if err != nil {
		return fmt.Errorf("mark raw status: %w", err)
	}
	return nil
}
