package core

// =============================================================================
// EXECUTION CONTEXT & ORCHESTRATOR STATE
// The frozen context is safe to share and log; the state is owned exclusively
// by the running orchestrator and never escapes the request.
// =============================================================================

// ExecutionContext is the immutable per-request context.
type ExecutionContext struct {
	LensID   string
	Lens     any    // *lens.Contract; kept as any to avoid an import cycle
	LensHash string // SHA-256 of the validated contract
}

// AcceptedEntity is a candidate that survived dedup, indexed by its dedup key.
type AcceptedEntity struct {
	Key       string
	Candidate Candidate
}

// State is the mutable bookkeeping container for one orchestration run.
// Single-writer: only the orchestrator mutates it, between suspension points.
type State struct {
	Candidates         []Candidate
	AcceptedEntities   []AcceptedEntity
	AcceptedEntityKeys map[string]int // dedup key -> index into AcceptedEntities

	// Seeds are external ids known before any connector ran, keyed by
	// normalised candidate name.
	Seeds map[string]map[string]string

	// Evidence holds context.* values produced by connectors for dataflow
	// dependencies between adapters.
	Evidence map[string]any

	BudgetSpentUSD float64
	Confidence     float64

	Report *Report
}

// NewState creates an empty state for a request.
func NewState(query string) *State {
	return &State{
		AcceptedEntityKeys: make(map[string]int),
		Seeds:              make(map[string]map[string]string),
		Evidence:           make(map[string]any),
		Report: &Report{
			Query:      query,
			Connectors: make(map[string]*ConnectorMetrics),
		},
	}
}

// ContextValue returns the evidence value for a context.* key, if set and
// non-empty.
func (s *State) ContextValue(key string) (any, bool) {
	v, ok := s.Evidence[key]
	if !ok || v == nil {
		return nil, false
	}
	if str, isStr := v.(string); isStr && str == "" {
		return nil, false
	}
	return v, true
}
