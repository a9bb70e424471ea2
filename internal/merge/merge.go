// Package merge implements the deterministic cross-source merge used for
// evidence written by concurrent connectors and for entity finalization.
//
// Scalars: higher trust wins; on tie, the lexicographically later source name
// wins. Lists accumulate, then sort lexicographically. Dicts merge by key
// with the scalar rule applied recursively.
package merge

import (
	"fmt"
	"sort"
)

// Sourced is one attribute set with its provenance.
type Sourced struct {
	Source string
	Trust  int
	Attrs  map[string]any
}

// Attributes merges attribute sets from multiple sources into one map.
// The inputs are not mutated; ordering of the input slice does not affect
// the result.
func Attributes(inputs []Sourced) map[string]any {
	// Stable provenance order so equal-trust conflicts resolve identically
	// regardless of input order.
	sorted := make([]Sourced, len(inputs))
	copy(sorted, inputs)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Source < sorted[j].Source
	})

	out := make(map[string]any)
	winner := make(map[string]Sourced)

	for _, in := range sorted {
		for key, value := range in.Attrs {
			existing, present := out[key]
			if !present {
				out[key] = cloneValue(value)
				winner[key] = in
				continue
			}
			out[key] = mergeValue(existing, winner[key], value, in)
			if scalarWins(winner[key], in) {
				winner[key] = in
			}
		}
	}

	return out
}

// mergeValue resolves one key collision.
func mergeValue(existing any, existingSrc Sourced, incoming any, incomingSrc Sourced) any {
	existingList, existingIsList := asList(existing)
	incomingList, incomingIsList := asList(incoming)
	if existingIsList && incomingIsList {
		return mergeLists(existingList, incomingList)
	}

	existingMap, existingIsMap := existing.(map[string]any)
	incomingMap, incomingIsMap := incoming.(map[string]any)
	if existingIsMap && incomingIsMap {
		merged := make(map[string]any, len(existingMap)+len(incomingMap))
		for k, v := range existingMap {
			merged[k] = v
		}
		for k, v := range incomingMap {
			if current, ok := merged[k]; ok {
				merged[k] = mergeValue(current, existingSrc, v, incomingSrc)
			} else {
				merged[k] = cloneValue(v)
			}
		}
		return merged
	}

	// Scalar conflict.
	if scalarWins(existingSrc, incomingSrc) {
		return cloneValue(incoming)
	}
	return existing
}

// scalarWins reports whether incoming beats current for a scalar slot.
func scalarWins(current, incoming Sourced) bool {
	if incoming.Trust != current.Trust {
		return incoming.Trust > current.Trust
	}
	return incoming.Source > current.Source
}

// mergeLists appends then sorts lexicographically, dropping duplicates.
func mergeLists(a, b []any) []string {
	seen := make(map[string]bool, len(a)+len(b))
	var out []string
	for _, list := range [][]any{a, b} {
		for _, item := range list {
			s := fmt.Sprint(item)
			if !seen[s] {
				seen[s] = true
				out = append(out, s)
			}
		}
	}
	sort.Strings(out)
	return out
}

func asList(v any) ([]any, bool) {
	switch list := v.(type) {
	case []any:
		return list, true
	case []string:
		out := make([]any, len(list))
		for i, s := range list {
			out[i] = s
		}
		return out, true
	}
	return nil, false
}

func cloneValue(v any) any {
	switch typed := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(typed))
		for k, val := range typed {
			out[k] = cloneValue(val)
		}
		return out
	case []any:
		out := make([]any, len(typed))
		for i, val := range typed {
			out[i] = cloneValue(val)
		}
		return out
	case []string:
		out := make([]string, len(typed))
		copy(out, typed)
		return out
	default:
		return v
	}
}
