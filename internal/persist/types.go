// Package persist implements the persistence pipeline: raw payload storage,
// extraction, and cross-source entity finalization over Postgres.
package persist

import (
	"context"
	"time"
)

// RawIngestion is one stored raw payload, unique per (source, hash).
type RawIngestion struct {
	ID        int64
	Source    string
	Hash      string
	FilePath  string
	Status    string
	Metadata  map[string]any
	CreatedAt time.Time
}

// Raw ingestion statuses.
const (
	StatusIngested  = "ingested"
	StatusExtracted = "extracted"
	StatusFailed    = "failed"
)

// ExtractedEntity is the per-source extraction result for one raw record.
type ExtractedEntity struct {
	ID                   int64
	Source               string
	EntityClass          string
	Attributes           map[string]any
	DiscoveredAttributes map[string]any
	ExternalIDs          map[string]string
	RawIngestionID       int64
	CreatedAt            time.Time
}

// Entity is the merged, deduplicated cross-source result.
type Entity struct {
	EntityName  string
	EntityClass string
	Slug        string

	Activities []string
	Roles      []string
	PlaceTypes []string
	Access     []string
	Groupings  []string
	Modules    map[string]any

	Lat      *float64
	Lng      *float64
	Address  string
	Street   string
	City     string
	Postcode string
	Country  string

	Phone   string
	Email   string
	Website string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// RunRecord is one orchestration run row.
type RunRecord struct {
	ID               string
	Query            string
	LensID           string
	StartedAt        time.Time
	FinishedAt       time.Time
	CandidatesFound  int
	AcceptedEntities int
	PersistedCount   int
}

// Store is the relational backend of the persistence pipeline.
type Store interface {
	// FindRawIngestion returns the id of an existing (source, hash) record.
	FindRawIngestion(ctx context.Context, source, hash string) (int64, bool, error)

	// CreateRawIngestion inserts a new raw record and returns its id.
	CreateRawIngestion(ctx context.Context, rec *RawIngestion) (int64, error)

	// InsertExtractedEntity inserts one extraction result.
	InsertExtractedEntity(ctx context.Context, rec *ExtractedEntity) (int64, error)

	// UpsertEntity inserts or updates by slug; created reports which.
	UpsertEntity(ctx context.Context, e *Entity) (created bool, err error)

	// RecordRun stores the orchestration run row.
	RecordRun(ctx context.Context, run *RunRecord) error
}
