package core

import (
	"crypto/sha1"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
	"strings"
)

// =============================================================================
// RAW ITEMS & CANDIDATES
// The uniform shapes every connector emits.
// =============================================================================

// RawItem is the untyped payload produced by a connector, one per result of a
// single fetch. The engine never interprets it beyond JSON round-tripping.
type RawItem map[string]any

// FetchResult is the uniform output of a connector fetch.
type FetchResult struct {
	Results []RawItem
}

// Candidate is the canonical in-memory form all connectors emit.
// Candidates are short-lived: produced by mappers, consumed by dedup and
// persistence, never stored directly.
type Candidate struct {
	Name    string            `json:"name"`              // Required, non-empty
	IDs     map[string]string `json:"ids,omitempty"`     // External-system key -> external id
	Lat     *float64          `json:"lat,omitempty"`     // Optional; 0.0 is a valid coordinate
	Lng     *float64          `json:"lng,omitempty"`     // Optional; 0.0 is a valid coordinate
	Address string            `json:"address,omitempty"` // Optional
	Source  string            `json:"source"`            // Connector name
	Raw     RawItem           `json:"raw,omitempty"`     // Normalised snapshot of the original item
}

// HasCoordinates reports whether both coordinates are present.
// A zero value is a coordinate, not an absence.
func (c *Candidate) HasCoordinates() bool {
	return c.Lat != nil && c.Lng != nil
}

// HasStrongIDs reports whether the candidate carries any external id.
func (c *Candidate) HasStrongIDs() bool {
	return len(c.IDs) > 0
}

// NormalizeName casefolds, trims and collapses inner whitespace.
func NormalizeName(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(strings.TrimSpace(name))), " ")
}

// ContentHash returns the SHA-1 hex digest of the candidate's canonical JSON
// serialisation: keys sorted, string values normalised like names. This is the
// deduplication tier-3 key; raw payload identity uses PayloadHash.
func (c *Candidate) ContentHash() string {
	canon := map[string]any{
		"name":    NormalizeName(c.Name),
		"source":  NormalizeName(c.Source),
		"address": NormalizeName(c.Address),
	}
	if c.Lat != nil {
		canon["lat"] = *c.Lat
	}
	if c.Lng != nil {
		canon["lng"] = *c.Lng
	}
	if len(c.IDs) > 0 {
		keys := make([]string, 0, len(c.IDs))
		for k := range c.IDs {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		ids := make(map[string]string, len(keys))
		for _, k := range keys {
			ids[k] = c.IDs[k]
		}
		canon["ids"] = ids
	}
	data, _ := json.Marshal(canon)
	sum := sha1.Sum(data)
	return hex.EncodeToString(sum[:])
}

// PayloadHash returns the raw payload's content hash: SHA-256 of the
// payload's canonical JSON serialisation (keys sorted), truncated to 16 hex
// characters. Any payload difference changes the hash, so distinct raw items
// never share a Raw Ingestion record even when they map to equal candidates.
func (c *Candidate) PayloadHash() string {
	data, _ := json.Marshal(c.Raw)
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])[:16]
}

// Float64Ptr returns a pointer to v. Convenience for optional coordinates.
func Float64Ptr(v float64) *float64 {
	return &v
}
