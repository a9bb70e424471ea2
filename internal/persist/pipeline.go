package persist

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/LarjGit/edinburgh-finds-sub000/internal/classify"
	"github.com/LarjGit/edinburgh-finds-sub000/internal/core"
	"github.com/LarjGit/edinburgh-finds-sub000/internal/extract"
	"github.com/LarjGit/edinburgh-finds-sub000/internal/lens"
	"github.com/LarjGit/edinburgh-finds-sub000/internal/lensapply"
	"github.com/LarjGit/edinburgh-finds-sub000/internal/merge"
)

// =============================================================================
// PERSISTENCE PIPELINE
// Raw upsert -> extraction -> lens application -> classification ->
// extracted-entity insert -> merge & entity finalization. One candidate's
// failure never aborts the others.
// =============================================================================

// Pipeline drives persistence for one run's accepted entities.
type Pipeline struct {
	store  Store
	raw    *RawStore
	llm    extract.LLMExtractor
	logger *zap.Logger

	// trustFor resolves a source name to its trust level for merging.
	trustFor func(source string) int
}

// PipelineOption configures a Pipeline.
type PipelineOption func(*Pipeline)

// WithLLM sets the extractor for unstructured sources.
func WithLLM(llm extract.LLMExtractor) PipelineOption {
	return func(p *Pipeline) { p.llm = llm }
}

// WithTrust sets the source trust resolver used for merge conflicts.
func WithTrust(trustFor func(source string) int) PipelineOption {
	return func(p *Pipeline) { p.trustFor = trustFor }
}

// NewPipeline creates a persistence pipeline.
func NewPipeline(store Store, raw *RawStore, logger *zap.Logger, opts ...PipelineOption) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &Pipeline{
		store:    store,
		raw:      raw,
		logger:   logger,
		trustFor: func(string) int { return 0 },
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// group collects extraction results sharing one merge key.
type group struct {
	key         string
	source      string
	name        string
	entityClass string
	members     []merge.Sourced
}

// Persist runs the pipeline over the state's accepted entities, updating the
// report counters in place.
func (p *Pipeline) Persist(ctx context.Context, state *core.State, execCtx *core.ExecutionContext, startedAt time.Time) error {
	report := state.Report

	var contract *lens.Contract
	lensID := ""
	if execCtx != nil {
		contract, _ = execCtx.Lens.(*lens.Contract)
		lensID = execCtx.LensID
	}

	var groups []*group
	groupIndex := make(map[string]*group)

	for i := range state.AcceptedEntities {
		accepted := &state.AcceptedEntities[i]
		candidate := &accepted.Candidate

		rawID, err := p.upsertRaw(ctx, candidate, report.RunID)
		if err != nil {
			report.PersistenceErrors = append(report.PersistenceErrors,
				fmt.Sprintf("%s: %v", candidate.Name, err))
			continue
		}

		report.ExtractionTotal++
		attrs, err := extract.Run(ctx, candidate.Source, candidate.Raw, p.llm)
		if err != nil {
			report.ExtractionErrors = append(report.ExtractionErrors,
				fmt.Sprintf("%s: %v", candidate.Name, err))
			continue
		}
		report.ExtractionSuccess++

		resolved := classify.Resolve(attrs)
		schemaAttrs, discovered := extract.Split(attrs)
		applied := lensapply.Apply(schemaAttrs, contract, candidate.Source, resolved.EntityClass)
		mergeRoles(applied, resolved.Roles)

		if _, err := p.store.InsertExtractedEntity(ctx, &ExtractedEntity{
			Source:               candidate.Source,
			EntityClass:          resolved.EntityClass,
			Attributes:           applied,
			DiscoveredAttributes: discovered,
			ExternalIDs:          externalIDs(attrs, candidate),
			RawIngestionID:       rawID,
		}); err != nil {
			report.PersistenceErrors = append(report.PersistenceErrors,
				fmt.Sprintf("%s: %v", candidate.Name, err))
			continue
		}

		g, ok := groupIndex[accepted.Key]
		if !ok {
			g = &group{
				key:         accepted.Key,
				source:      candidate.Source,
				name:        candidate.Name,
				entityClass: resolved.EntityClass,
			}
			groupIndex[accepted.Key] = g
			groups = append(groups, g)
		}
		g.members = append(g.members, merge.Sourced{
			Source: candidate.Source,
			Trust:  p.trustFor(candidate.Source),
			Attrs:  applied,
		})
	}

	// Finalization: merge each group and upsert by slug.
	for _, g := range groups {
		merged := merge.Attributes(g.members)
		entity := entityFromAttributes(merged, g)
		entity.Groupings = lensapply.Groupings(contract, entity.EntityClass, entity.Roles)

		created, err := p.store.UpsertEntity(ctx, entity)
		if err != nil {
			report.PersistenceErrors = append(report.PersistenceErrors,
				fmt.Sprintf("%s: %v", entity.Slug, err))
			continue
		}
		report.PersistedCount++
		if created {
			report.EntitiesCreated++
		} else {
			report.EntitiesUpdated++
		}
	}

	run := &RunRecord{
		ID:               report.RunID,
		Query:            report.Query,
		LensID:           lensID,
		StartedAt:        startedAt,
		FinishedAt:       time.Now(),
		CandidatesFound:  len(state.Candidates),
		AcceptedEntities: len(state.AcceptedEntities),
		PersistedCount:   report.PersistedCount,
	}
	if err := p.store.RecordRun(ctx, run); err != nil {
		p.logger.Warn("record run", zap.Error(err))
	}
	return nil
}

// upsertRaw stores the candidate's raw payload, reusing by (source, hash).
func (p *Pipeline) upsertRaw(ctx context.Context, c *core.Candidate, runID string) (int64, error) {
	hash := c.PayloadHash()

	if id, found, err := p.store.FindRawIngestion(ctx, c.Source, hash); err != nil {
		return 0, err
	} else if found {
		return id, nil
	}

	payload, err := json.Marshal(c.Raw)
	if err != nil {
		return 0, fmt.Errorf("marshal raw payload: %w", err)
	}

	path := ""
	if p.raw != nil {
		path, err = p.raw.Write(ctx, c.Source, hash, payload)
		if err != nil {
			return 0, err
		}
	}

	return p.store.CreateRawIngestion(ctx, &RawIngestion{
		Source:   c.Source,
		Hash:     hash,
		FilePath: path,
		Status:   StatusIngested,
		Metadata: map[string]any{"run_id": runID, "candidate_name": c.Name},
	})
}

// mergeRoles folds classifier roles into the canonical_roles dimension.
func mergeRoles(attrs map[string]any, roles []string) {
	if len(roles) == 0 {
		return
	}
	seen := make(map[string]bool)
	var out []string
	if existing, ok := attrs[lens.DimRoles].([]string); ok {
		for _, r := range existing {
			if !seen[r] {
				seen[r] = true
				out = append(out, r)
			}
		}
	}
	for _, r := range roles {
		if !seen[r] {
			seen[r] = true
			out = append(out, r)
		}
	}
	sort.Strings(out)
	attrs[lens.DimRoles] = out
}

// externalIDs prefers extracted ids, falling back to the candidate's.
func externalIDs(attrs map[string]any, c *core.Candidate) map[string]string {
	if ids, ok := attrs["external_ids"].(map[string]string); ok && len(ids) > 0 {
		return ids
	}
	return c.IDs
}

// =============================================================================
// ENTITY FINALIZATION
// =============================================================================

var slugStrip = regexp.MustCompile(`[^a-z0-9]+`)

// Slug derives the unique entity slug from source and name.
func Slug(source, name string) string {
	norm := slugStrip.ReplaceAllString(strings.ToLower(name), "-")
	norm = strings.Trim(norm, "-")
	return source + "-" + norm
}

// entityFromAttributes materialises the final entity row from merged
// attributes.
func entityFromAttributes(attrs map[string]any, g *group) *Entity {
	name := stringValue(attrs, "entity_name")
	if name == "" {
		name = g.name
	}

	e := &Entity{
		EntityName:  name,
		EntityClass: g.entityClass,
		Slug:        Slug(g.source, name),

		Activities: stringList(attrs, lens.DimActivities),
		Roles:      stringList(attrs, lens.DimRoles),
		PlaceTypes: stringList(attrs, lens.DimPlaceTypes),
		Access:     stringList(attrs, lens.DimAccess),

		Address:  stringValue(attrs, "address"),
		Street:   stringValue(attrs, "street"),
		City:     stringValue(attrs, "city"),
		Postcode: stringValue(attrs, "postcode"),
		Country:  stringValue(attrs, "country"),
		Phone:    stringValue(attrs, "phone"),
		Email:    stringValue(attrs, "email"),
		Website:  stringValue(attrs, "website"),
	}
	if lat, ok := floatValue(attrs, "latitude"); ok {
		e.Lat = core.Float64Ptr(lat)
	}
	if lng, ok := floatValue(attrs, "longitude"); ok {
		e.Lng = core.Float64Ptr(lng)
	}
	if modules, ok := attrs["modules"].(map[string]any); ok {
		e.Modules = modules
	}
	return e
}

func stringValue(attrs map[string]any, key string) string {
	s, _ := attrs[key].(string)
	return strings.TrimSpace(s)
}

func floatValue(attrs map[string]any, key string) (float64, bool) {
	switch v := attrs[key].(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	}
	return 0, false
}

func stringList(attrs map[string]any, key string) []string {
	switch v := attrs[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
