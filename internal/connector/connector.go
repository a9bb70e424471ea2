// Package connector defines the uniform contract every source adapter
// implements and the registries the planner and orchestrator consume.
//
// A connector only knows how to fetch raw items for a query. Everything else
// (phase placement, trust, budgets, mapping to candidates) is metadata and
// functions registered alongside the factory, never behaviour baked into the
// connector itself.
package connector

import (
	"context"

	"github.com/LarjGit/edinburgh-finds-sub000/internal/core"
)

// Connector fetches raw items from a single external source.
type Connector interface {
	// SourceName returns the unique connector name.
	SourceName() string

	// Fetch executes one query against the source. Implementations must
	// honour ctx cancellation; the orchestrator applies the timeout bound.
	Fetch(ctx context.Context, query string) (*core.FetchResult, error)
}

// Metadata describes a connector at planning time.
type Metadata struct {
	Name              string
	Phase             core.Phase
	TrustLevel        int
	SupportsQueryOnly bool
	EstimatedCostUSD  float64
	TimeoutSeconds    int
	RateLimitPerDay   int // 0 means unlimited

	// Requires/Provides are path-like strings. Items under context.* are
	// dataflow dependencies between connectors.
	Requires []string
	Provides []string

	// RequiredEnv names the API-key environment variable, if any. The CLI
	// surfaces a warning when the planner selects a connector whose key is
	// missing.
	RequiredEnv string
}

// Mapper normalises one raw item to a candidate. A mapping failure is
// signalled by error; the orchestrator counts it and continues.
type Mapper func(item core.RawItem) (core.Candidate, error)

// Translator converts the user query into the connector's input form, using
// the run state's evidence when the connector has context.* requirements.
// A nil translator means the query is passed through as-is.
type Translator func(query string, evidence map[string]any) (string, error)

// Factory creates a connector instance from configuration.
type Factory func(config map[string]any) (Connector, error)
