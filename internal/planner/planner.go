// Package planner selects and orders connectors for one ingestion request.
//
// Selection is lens-driven through connector_rules; without lens input a
// mode-dependent default applies. The planner never touches the network: it
// works from connector metadata alone.
package planner

import (
	"sort"
	"strings"

	"github.com/LarjGit/edinburgh-finds-sub000/internal/connector"
	"github.com/LarjGit/edinburgh-finds-sub000/internal/core"
	"github.com/LarjGit/edinburgh-finds-sub000/internal/lens"
	"github.com/LarjGit/edinburgh-finds-sub000/internal/queryfeat"
)

// AdapterSpec is one planned connector with its inferred dependencies.
type AdapterSpec struct {
	Name      string
	Metadata  connector.Metadata
	DependsOn []string // connector names that must run earlier
}

// ExecutionPlan is the ordered connector list for a request.
type ExecutionPlan struct {
	Adapters []AdapterSpec
}

// Phase returns the plan's adapters for one phase, already ordered.
func (p *ExecutionPlan) Phase(phase core.Phase) []AdapterSpec {
	var out []AdapterSpec
	for _, a := range p.Adapters {
		if a.Metadata.Phase == phase {
			out = append(out, a)
		}
	}
	return out
}

// Names returns the planned connector names in plan order.
func (p *ExecutionPlan) Names() []string {
	names := make([]string, 0, len(p.Adapters))
	for _, a := range p.Adapters {
		names = append(names, a.Name)
	}
	return names
}

// Select builds the execution plan for a request.
func Select(req *core.IngestionRequest, features queryfeat.Features, contract *lens.Contract, registry *connector.Registry) *ExecutionPlan {
	selected := make(map[string]bool)
	add := func(name string) {
		if name != "" {
			selected[name] = true
		}
	}

	// Always include one general discovery connector.
	add(pickGeneralDiscovery(registry))

	// Category searches get the free breadth source; DISCOVER_MANY always
	// maximises breadth.
	if features.LooksLikeCategorySearch || req.Mode == core.ModeDiscoverMany {
		add(pickFreeDiscovery(registry))
	}

	// Always include one authoritative enrichment connector.
	add(pickAuthoritativeEnrichment(registry))

	// Lens connector rules add domain-specific connectors.
	if contract != nil {
		for name, rule := range contract.ConnectorRules {
			if rule.Always ||
				(rule.WhenCategorySearch && features.LooksLikeCategorySearch) ||
				(rule.WhenGeoIntent && features.HasGeoIntent) {
				add(name)
			}
		}
	}

	// RESOLVE_ONE minimises discovery: keep only the general discovery
	// connector among discovery-phase selections.
	if req.Mode == core.ModeResolveOne {
		general := pickGeneralDiscovery(registry)
		for name := range selected {
			meta, ok := metadataFor(registry, name)
			if ok && meta.Phase == core.PhaseDiscovery && name != general {
				delete(selected, name)
			}
		}
	}

	// Materialise specs in phase order, alphabetical within a phase.
	names := make([]string, 0, len(selected))
	for name := range selected {
		if _, ok := metadataFor(registry, name); ok {
			names = append(names, name)
		}
	}
	sort.Slice(names, func(i, j int) bool {
		mi, _ := metadataFor(registry, names[i])
		mj, _ := metadataFor(registry, names[j])
		if mi.Phase != mj.Phase {
			return mi.Phase < mj.Phase
		}
		return names[i] < names[j]
	})

	plan := &ExecutionPlan{}
	for _, name := range names {
		meta, _ := metadataFor(registry, name)
		spec := AdapterSpec{Name: name, Metadata: meta}
		spec.DependsOn = inferDependencies(meta, plan.Adapters)
		plan.Adapters = append(plan.Adapters, spec)
	}
	return plan
}

// inferDependencies resolves context.* requirements against earlier adapters.
// Items under request.* or query_features.* never create dependencies.
func inferDependencies(meta connector.Metadata, earlier []AdapterSpec) []string {
	var deps []string
	seen := make(map[string]bool)

	for _, req := range meta.Requires {
		if !strings.HasPrefix(req, "context.") {
			continue
		}
		provider := pickProvider(req, earlier)
		if provider != "" && !seen[provider] {
			deps = append(deps, provider)
			seen[provider] = true
		}
	}
	sort.Strings(deps)
	return deps
}

// pickProvider chooses among earlier adapters providing the key:
// higher trust wins; equal trust, earlier phase wins; equal phase,
// lexicographically smaller name wins.
func pickProvider(key string, earlier []AdapterSpec) string {
	var best *AdapterSpec
	for i := range earlier {
		a := &earlier[i]
		if !provides(a.Metadata, key) {
			continue
		}
		if best == nil {
			best = a
			continue
		}
		switch {
		case a.Metadata.TrustLevel != best.Metadata.TrustLevel:
			if a.Metadata.TrustLevel > best.Metadata.TrustLevel {
				best = a
			}
		case a.Metadata.Phase != best.Metadata.Phase:
			if a.Metadata.Phase < best.Metadata.Phase {
				best = a
			}
		case a.Name < best.Name:
			best = a
		}
	}
	if best == nil {
		return ""
	}
	return best.Name
}

func provides(meta connector.Metadata, key string) bool {
	for _, p := range meta.Provides {
		if p == key {
			return true
		}
	}
	return false
}

// ShouldSkip applies the aggregate gate for an adapter with context.*
// requirements: skip only when the adapter cannot run on the query alone AND
// nothing in state could feed it.
func ShouldSkip(meta connector.Metadata, state *core.State) bool {
	hasContextReq := false
	anyContextValue := false
	for _, req := range meta.Requires {
		if !strings.HasPrefix(req, "context.") {
			continue
		}
		hasContextReq = true
		if _, ok := state.ContextValue(req); ok {
			anyContextValue = true
		}
	}
	if !hasContextReq {
		return false
	}

	return !meta.SupportsQueryOnly &&
		len(state.Candidates) == 0 &&
		len(state.AcceptedEntities) == 0 &&
		!anyContextValue
}

// =============================================================================
// DEFAULT SELECTION HELPERS
// Engine code names no connector; the defaults are derived from metadata.
// =============================================================================

// pickGeneralDiscovery returns the paid discovery connector with the highest
// estimated cost (ties broken by name).
func pickGeneralDiscovery(registry *connector.Registry) string {
	return pick(registry, func(m connector.Metadata) bool {
		return m.Phase == core.PhaseDiscovery && m.SupportsQueryOnly && m.EstimatedCostUSD > 0
	}, func(a, b connector.Metadata) bool {
		return a.EstimatedCostUSD > b.EstimatedCostUSD
	})
}

// pickFreeDiscovery returns the zero-cost discovery connector with the
// highest trust.
func pickFreeDiscovery(registry *connector.Registry) string {
	return pick(registry, func(m connector.Metadata) bool {
		return m.Phase == core.PhaseDiscovery && m.EstimatedCostUSD == 0
	}, func(a, b connector.Metadata) bool {
		return a.TrustLevel > b.TrustLevel
	})
}

// pickAuthoritativeEnrichment returns the highest-trust enrichment connector.
func pickAuthoritativeEnrichment(registry *connector.Registry) string {
	return pick(registry, func(m connector.Metadata) bool {
		return m.Phase == core.PhaseEnrichment && m.SupportsQueryOnly
	}, func(a, b connector.Metadata) bool {
		return a.TrustLevel > b.TrustLevel
	})
}

func pick(registry *connector.Registry, include func(connector.Metadata) bool, better func(a, b connector.Metadata) bool) string {
	var bestName string
	var bestMeta connector.Metadata
	for _, name := range registry.List() { // List is sorted: name tie-break for free
		reg, _ := registry.Get(name)
		if !include(reg.Metadata) {
			continue
		}
		if bestName == "" || better(reg.Metadata, bestMeta) {
			bestName = name
			bestMeta = reg.Metadata
		}
	}
	return bestName
}

func metadataFor(registry *connector.Registry, name string) (connector.Metadata, bool) {
	reg, ok := registry.Get(name)
	if !ok {
		return connector.Metadata{}, false
	}
	return reg.Metadata, true
}
