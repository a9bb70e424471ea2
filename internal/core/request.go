package core

// =============================================================================
// INGESTION REQUEST MODELS
// =============================================================================

// Mode selects the ingestion strategy for a request.
type Mode string

const (
	// ModeResolveOne resolves a single high-confidence entity.
	ModeResolveOne Mode = "resolve_one"
	// ModeDiscoverMany maximises discovery breadth.
	ModeDiscoverMany Mode = "discover_many"
)

// Phase orders connector execution. Phases are strict barriers.
type Phase int

const (
	PhaseDiscovery Phase = iota
	PhaseStructured
	PhaseEnrichment
)

// String returns the phase name used in plans and reports.
func (p Phase) String() string {
	switch p {
	case PhaseDiscovery:
		return "discovery"
	case PhaseStructured:
		return "structured"
	case PhaseEnrichment:
		return "enrichment"
	default:
		return "unknown"
	}
}

// AllPhases lists phases in execution order.
func AllPhases() []Phase {
	return []Phase{PhaseDiscovery, PhaseStructured, PhaseEnrichment}
}

// IngestionRequest is a validated request driving one orchestration run.
type IngestionRequest struct {
	Query             string  // Natural-language query
	LensID            string  // Resolved lens identifier
	Mode              Mode    // resolve_one or discover_many
	BudgetUSD         float64 // 0 means unbounded
	MinConfidence     float64 // RESOLVE_ONE early-stop threshold
	TargetEntityCount int     // DISCOVER_MANY early-stop threshold
	Persist           bool    // Drive the persistence pipeline after dedup
	Connector         string  // Diagnostic path: run only this connector
}
