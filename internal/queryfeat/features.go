// Package queryfeat derives boolean signals from a raw query.
//
// Extraction is a deterministic pure function over the query text and the
// lens-supplied keyword sets; no engine code carries domain vocabulary.
package queryfeat

import (
	"strings"

	"github.com/LarjGit/edinburgh-finds-sub000/internal/core"
	"github.com/LarjGit/edinburgh-finds-sub000/internal/lens"
)

// Features are the planner-facing signals of one query.
type Features struct {
	LooksLikeCategorySearch bool
	HasGeoIntent            bool
}

// Geographic prepositions and proximity markers are language-level, not
// domain-level, so they live here rather than in the lens.
var geoPrepositions = []string{" in ", " near ", " around ", " at "}
var proximityMarkers = []string{"near me", "nearby"}

// Extract computes the features for a query.
// An empty or whitespace-only query yields all-false features.
func Extract(query string, _ *core.IngestionRequest, keywords lens.Keywords) Features {
	normalized := core.NormalizeName(query)
	if normalized == "" {
		return Features{}
	}

	var out Features

	// Category search: any category keyword present AND no specific-venue
	// marker present.
	hasCategory := containsAny(normalized, keywords.Categories)
	hasVenueMarker := containsAny(normalized, keywords.SpecificVenues)
	out.LooksLikeCategorySearch = hasCategory && !hasVenueMarker

	// Geo intent: preposition, proximity marker, or lens location name.
	padded := " " + normalized + " "
	for _, prep := range geoPrepositions {
		if strings.Contains(padded, prep) {
			out.HasGeoIntent = true
			break
		}
	}
	if !out.HasGeoIntent {
		for _, marker := range proximityMarkers {
			if strings.Contains(normalized, marker) {
				out.HasGeoIntent = true
				break
			}
		}
	}
	if !out.HasGeoIntent && containsAny(normalized, keywords.Locations) {
		out.HasGeoIntent = true
	}

	return out
}

func containsAny(haystack string, needles []string) bool {
	for _, n := range needles {
		n = core.NormalizeName(n)
		if n != "" && strings.Contains(haystack, n) {
			return true
		}
	}
	return false
}
