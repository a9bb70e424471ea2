// Package dedup implements cross-source deduplication of candidates.
//
// Keys are generated in three tiers (strong ids, geo, content hash) with a
// bidirectional fuzzy pass between the exact tiers and the hash fallback.
package dedup

import (
	"fmt"
	"sort"
	"strings"

	"github.com/LarjGit/edinburgh-finds-sub000/internal/core"
)

// FuzzyThreshold is the token-set-ratio score (0-100) above which two names
// are considered the same entity.
const FuzzyThreshold = 85

// ReasonDuplicate is reported when a candidate collides with an accepted one.
const ReasonDuplicate = "duplicate"

// Key generates the dedup key for a candidate, first matching tier wins.
// Seeds are external ids known before any connector ran, keyed by normalised
// candidate name; they stand in when the candidate itself has no strong ids.
func Key(c *core.Candidate, seeds map[string]map[string]string) string {
	// Tier 1: strong external ids.
	ids := c.IDs
	if len(ids) == 0 && seeds != nil {
		ids = seeds[core.NormalizeName(c.Name)]
	}
	if len(ids) > 0 {
		kinds := make([]string, 0, len(ids))
		for kind := range ids {
			kinds = append(kinds, kind)
		}
		sort.Strings(kinds)
		return fmt.Sprintf("%s:%s", kinds[0], ids[kinds[0]])
	}

	// Tier 2: name + rounded coordinates.
	if c.HasCoordinates() && strings.TrimSpace(c.Name) != "" {
		return fmt.Sprintf("%s:%.4f:%.4f", core.NormalizeName(c.Name), *c.Lat, *c.Lng)
	}

	// Tier 3: content hash of the canonical serialisation.
	return c.ContentHash()
}

// Accept applies the acceptance policy for one candidate against state.
// Returns (accepted, key, reason). The reason is empty on acceptance and
// ReasonDuplicate on rejection.
func Accept(c *core.Candidate, state *core.State) (bool, string, string) {
	key := Key(c, state.Seeds)

	// Exact-key hit: duplicate.
	if _, exists := state.AcceptedEntityKeys[key]; exists {
		return false, key, ReasonDuplicate
	}

	// Tier 2.5: bidirectional fuzzy match against the accepted list.
	candRich := isRich(c)
	candName := stripLeadingArticle(core.NormalizeName(c.Name))
	for i := range state.AcceptedEntities {
		accepted := &state.AcceptedEntities[i]
		acceptedRich := isRich(&accepted.Candidate)

		// Two strong records are never fuzzy-merged.
		if candRich && acceptedRich {
			continue
		}

		acceptedName := stripLeadingArticle(core.NormalizeName(accepted.Candidate.Name))
		if TokenSetRatio(candName, acceptedName) < FuzzyThreshold {
			continue
		}

		// First match wins. Richer incoming record replaces the weaker one.
		if candRich && !acceptedRich {
			delete(state.AcceptedEntityKeys, accepted.Key)
			accepted.Key = key
			accepted.Candidate = *c
			state.AcceptedEntityKeys[key] = i
			return true, key, ""
		}
		return false, accepted.Key, ReasonDuplicate
	}

	// No hit: accept.
	state.AcceptedEntities = append(state.AcceptedEntities, core.AcceptedEntity{
		Key:       key,
		Candidate: *c,
	})
	state.AcceptedEntityKeys[key] = len(state.AcceptedEntities) - 1
	return true, key, ""
}

// Run deduplicates every candidate in state, in order, populating the
// accepted list.
func Run(state *core.State) {
	for i := range state.Candidates {
		Accept(&state.Candidates[i], state)
	}
}

// isRich reports whether a candidate carries strong ids or coordinates.
func isRich(c *core.Candidate) bool {
	return c.HasStrongIDs() || c.HasCoordinates()
}

// stripLeadingArticle removes a leading "the", "a" or "an" token.
func stripLeadingArticle(name string) string {
	for _, article := range []string{"the ", "a ", "an "} {
		if strings.HasPrefix(name, article) {
			return strings.TrimSpace(strings.TrimPrefix(name, article))
		}
	}
	return name
}
