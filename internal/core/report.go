package core

// =============================================================================
// RUN REPORT
// Structured outcome of one orchestration run, pretty-printed by the CLI.
// =============================================================================

// ConnectorMetrics records per-connector execution facts.
type ConnectorMetrics struct {
	Executed        bool    `json:"executed"`
	ItemsReceived   int     `json:"items_received"`
	CandidatesAdded int     `json:"candidates_added"`
	MappingFailures int     `json:"mapping_failures"`
	ExecutionTimeMS int64   `json:"execution_time_ms"`
	CostUSD         float64 `json:"cost_usd"`
	Error           string  `json:"error,omitempty"`
	RateLimited     bool    `json:"rate_limited,omitempty"`
}

// ConnectorError is one entry of the report's errors list.
type ConnectorError struct {
	Connector       string `json:"connector"`
	Error           string `json:"error"`
	ExecutionTimeMS int64  `json:"execution_time_ms"`
	RateLimited     bool   `json:"rate_limited,omitempty"`
}

// Report is the structured object returned by orchestration.
type Report struct {
	RunID            string                      `json:"run_id"`
	Query            string                      `json:"query"`
	LensHash         string                      `json:"lens_hash,omitempty"`
	DurationMS       int64                       `json:"duration_ms"`
	CandidatesFound  int                         `json:"candidates_found"`
	AcceptedEntities int                         `json:"accepted_entities"`

	PersistedCount    int `json:"persisted_count,omitempty"`
	EntitiesCreated   int `json:"entities_created,omitempty"`
	EntitiesUpdated   int `json:"entities_updated,omitempty"`
	ExtractionTotal   int `json:"extraction_total,omitempty"`
	ExtractionSuccess int `json:"extraction_success,omitempty"`

	Connectors map[string]*ConnectorMetrics `json:"connectors"`
	Errors     []ConnectorError             `json:"errors,omitempty"`

	PersistenceErrors []string `json:"persistence_errors,omitempty"`
	ExtractionErrors  []string `json:"extraction_errors,omitempty"`
	Warnings          []string `json:"warnings,omitempty"`
}

// Metrics returns the metrics bucket for a connector, creating it on demand.
func (r *Report) Metrics(connector string) *ConnectorMetrics {
	if r.Connectors == nil {
		r.Connectors = make(map[string]*ConnectorMetrics)
	}
	m, ok := r.Connectors[connector]
	if !ok {
		m = &ConnectorMetrics{}
		r.Connectors[connector] = m
	}
	return m
}
