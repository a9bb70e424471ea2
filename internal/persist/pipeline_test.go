package persist

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LarjGit/edinburgh-finds-sub000/internal/core"
	"github.com/LarjGit/edinburgh-finds-sub000/internal/dedup"
	"github.com/LarjGit/edinburgh-finds-sub000/internal/lens"
)

// =============================================================================
// IN-MEMORY STORE
// =============================================================================

type memoryStore struct {
	rawByKey  map[string]int64
	raws      []RawIngestion
	extracted []ExtractedEntity
	entities  map[string]*Entity
	runs      []RunRecord

	failEntityUpsert bool
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		rawByKey: make(map[string]int64),
		entities: make(map[string]*Entity),
	}
}

func (m *memoryStore) FindRawIngestion(_ context.Context, source, hash string) (int64, bool, error) {
	id, ok := m.rawByKey[source+"|"+hash]
	return id, ok, nil
}

func (m *memoryStore) CreateRawIngestion(_ context.Context, rec *RawIngestion) (int64, error) {
	id := int64(len(m.raws) + 1)
	rec.ID = id
	m.raws = append(m.raws, *rec)
	m.rawByKey[rec.Source+"|"+rec.Hash] = id
	return id, nil
}

func (m *memoryStore) InsertExtractedEntity(_ context.Context, rec *ExtractedEntity) (int64, error) {
	id := int64(len(m.extracted) + 1)
	rec.ID = id
	m.extracted = append(m.extracted, *rec)
	return id, nil
}

func (m *memoryStore) UpsertEntity(_ context.Context, e *Entity) (bool, error) {
	if m.failEntityUpsert {
		return false, fmt.Errorf("simulated database failure")
	}
	_, exists := m.entities[e.Slug]
	m.entities[e.Slug] = e
	return !exists, nil
}

func (m *memoryStore) RecordRun(_ context.Context, run *RunRecord) error {
	m.runs = append(m.runs, *run)
	return nil
}

var _ Store = (*memoryStore)(nil)

// =============================================================================
// FIXTURES
// =============================================================================

func placeCandidate() core.Candidate {
	return core.Candidate{
		Name:   "Oriam",
		IDs:    map[string]string{"google": "ChIJ123"},
		Lat:    core.Float64Ptr(55.9213),
		Lng:    core.Float64Ptr(-3.1234),
		Source: "google_places",
		Raw: core.RawItem{
			"name":              "Oriam",
			"place_id":          "ChIJ123",
			"formatted_address": "Riccarton, Edinburgh",
			"types":             []any{"gym"},
			"lat":               55.9213,
			"lng":               -3.1234,
		},
	}
}

func stateWith(candidates ...core.Candidate) *core.State {
	state := core.NewState("oriam")
	state.Report.RunID = "run-1"
	state.Candidates = candidates
	dedup.Run(state)
	return state
}

// =============================================================================
// PIPELINE
// =============================================================================

func TestPersist_Unit_FullPath(t *testing.T) {
	store := newMemoryStore()
	raw := NewRawStore(t.TempDir(), nil, nil)
	pipe := NewPipeline(store, raw, nil)

	state := stateWith(placeCandidate())
	require.NoError(t, pipe.Persist(context.Background(), state, nil, time.Now()))

	require.Len(t, store.raws, 1)
	require.Len(t, store.extracted, 1)
	assert.Equal(t, "place", store.extracted[0].EntityClass)
	assert.Equal(t, map[string]string{"google": "ChIJ123"}, store.extracted[0].ExternalIDs)

	require.Len(t, store.entities, 1)
	entity, ok := store.entities["google_places-oriam"]
	require.True(t, ok, "slug is <source>-<normalised_name>")
	assert.Equal(t, "Oriam", entity.EntityName)
	require.NotNil(t, entity.Lat)
	assert.Equal(t, 55.9213, *entity.Lat)

	assert.Equal(t, 1, state.Report.PersistedCount)
	assert.Equal(t, 1, state.Report.EntitiesCreated)
	assert.Equal(t, 0, state.Report.EntitiesUpdated)
	assert.Equal(t, 1, state.Report.ExtractionSuccess)
	require.Len(t, store.runs, 1)
	assert.Equal(t, "run-1", store.runs[0].ID)
}

func TestPersist_Unit_Idempotent(t *testing.T) {
	store := newMemoryStore()
	raw := NewRawStore(t.TempDir(), nil, nil)
	pipe := NewPipeline(store, raw, nil)

	first := stateWith(placeCandidate())
	require.NoError(t, pipe.Persist(context.Background(), first, nil, time.Now()))

	second := stateWith(placeCandidate())
	require.NoError(t, pipe.Persist(context.Background(), second, nil, time.Now()))

	assert.Len(t, store.raws, 1, "same (source, hash) reuses the raw record")
	assert.Len(t, store.entities, 1, "same slug upserts, never duplicates")
	assert.Equal(t, 1, second.Report.EntitiesUpdated)
	assert.Equal(t, 0, second.Report.EntitiesCreated)
}

func TestPersist_Unit_ChangedPayloadGetsNewRawRecord(t *testing.T) {
	store := newMemoryStore()
	raw := NewRawStore(t.TempDir(), nil, nil)
	pipe := NewPipeline(store, raw, nil)

	first := stateWith(placeCandidate())
	require.NoError(t, pipe.Persist(context.Background(), first, nil, time.Now()))

	// Same mapped fields, enriched raw payload.
	enriched := placeCandidate()
	enriched.Raw["rating"] = 4.7
	second := stateWith(enriched)
	require.NoError(t, pipe.Persist(context.Background(), second, nil, time.Now()))

	require.Len(t, store.raws, 2, "distinct payloads never share a raw record")
	assert.NotEqual(t, store.raws[0].Hash, store.raws[1].Hash)
	assert.Len(t, store.entities, 1, "entity still upserts by slug")
}

func TestPersist_Unit_ExtractionFailureContinues(t *testing.T) {
	store := newMemoryStore()
	pipe := NewPipeline(store, NewRawStore(t.TempDir(), nil, nil), nil)

	broken := core.Candidate{
		Name:   "Broken",
		Source: "google_places",
		Raw:    core.RawItem{"types": []any{"gym"}}, // no name or place_id
	}
	state := stateWith(broken, placeCandidate())
	require.NoError(t, pipe.Persist(context.Background(), state, nil, time.Now()))

	assert.Equal(t, 2, state.Report.ExtractionTotal)
	assert.Equal(t, 1, state.Report.ExtractionSuccess)
	require.Len(t, state.Report.ExtractionErrors, 1)
	assert.Contains(t, state.Report.ExtractionErrors[0], "Broken")
	assert.Len(t, store.entities, 1, "healthy candidate still persisted")
}

func TestPersist_Unit_SinkFailureStillPersists(t *testing.T) {
	store := newMemoryStore()
	pipe := NewPipeline(store, NewRawStore(t.TempDir(), &failingSink{}, nil), nil)

	state := stateWith(placeCandidate())
	require.NoError(t, pipe.Persist(context.Background(), state, nil, time.Now()))

	assert.Empty(t, state.Report.PersistenceErrors)
	assert.Len(t, store.raws, 1)
	assert.Len(t, store.entities, 1)
}

func TestPersist_Unit_UpsertFailureRecorded(t *testing.T) {
	store := newMemoryStore()
	store.failEntityUpsert = true
	pipe := NewPipeline(store, NewRawStore(t.TempDir(), nil, nil), nil)

	state := stateWith(placeCandidate())
	require.NoError(t, pipe.Persist(context.Background(), state, nil, time.Now()),
		"persistence errors never fail the run")
	require.Len(t, state.Report.PersistenceErrors, 1)
	assert.Equal(t, 0, state.Report.PersistedCount)
}

func TestPersist_Unit_UnstructuredWithoutLLMIsExtractionError(t *testing.T) {
	store := newMemoryStore()
	pipe := NewPipeline(store, NewRawStore(t.TempDir(), nil, nil), nil)

	state := stateWith(core.Candidate{
		Name: "Oriam Scotland", Source: "serper",
		Raw: core.RawItem{"title": "Oriam Scotland", "snippet": "sports centre"},
	})
	require.NoError(t, pipe.Persist(context.Background(), state, nil, time.Now()))
	assert.Equal(t, 0, state.Report.ExtractionSuccess)
	require.Len(t, state.Report.ExtractionErrors, 1)
}

func TestPersist_Unit_ClassifierRolesReachEntity(t *testing.T) {
	store := newMemoryStore()
	pipe := NewPipeline(store, NewRawStore(t.TempDir(), nil, nil), nil)

	c := placeCandidate()
	c.Raw["types"] = []any{"gym"}
	state := stateWith(c)
	require.NoError(t, pipe.Persist(context.Background(), state, nil, time.Now()))

	entity := store.entities["google_places-oriam"]
	require.NotNil(t, entity)
	assert.Equal(t, "place", entity.EntityClass)
}

func TestPersist_Unit_DerivedGroupingsReachEntity(t *testing.T) {
	store := newMemoryStore()
	pipe := NewPipeline(store, NewRawStore(t.TempDir(), nil, nil), nil)

	contract := &lens.Contract{
		DerivedGroupings: []lens.DerivedGrouping{
			{ID: "venues", Rules: []lens.GroupingRule{{EntityClass: "place"}}},
			{ID: "clubs", Rules: []lens.GroupingRule{{EntityClass: "organization"}}},
		},
	}
	execCtx := &core.ExecutionContext{LensID: "edinburgh-sports", Lens: contract}

	state := stateWith(placeCandidate())
	require.NoError(t, pipe.Persist(context.Background(), state, execCtx, time.Now()))

	entity := store.entities["google_places-oriam"]
	require.NotNil(t, entity)
	assert.Equal(t, []string{"venues"}, entity.Groupings)
}

// =============================================================================
// SLUGS
// =============================================================================

func TestSlug_Unit_Normalisation(t *testing.T) {
	assert.Equal(t, "serper-oriam-scotland", Slug("serper", "Oriam  Scotland"))
	assert.Equal(t, "google_places-game4padel-ltd", Slug("google_places", "Game4Padel Ltd."))
	assert.Equal(t, "osm_overpass-king-s-theatre", Slug("osm_overpass", "King's Theatre"))
}
