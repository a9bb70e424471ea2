// Package extract implements Phase 1: per-source deterministic extraction of
// schema primitives from raw items.
//
// Phase 1 emits primitives only. Canonical dimensions and modules belong to
// Phase 2; an extractor emitting them violates the extraction boundary and
// the whole extraction is rejected.
package extract

// Attribute names every Phase 1 extractor may emit.
var schemaVocabulary = map[string]bool{
	"entity_name":  true,
	"description":  true,
	"latitude":     true,
	"longitude":    true,
	"address":      true,
	"street":       true,
	"city":         true,
	"postcode":     true,
	"country":      true,
	"phone":        true,
	"email":        true,
	"website":      true,
	"external_ids": true,

	"raw_categories": true,
	"type_hint":      true,

	"start_datetime": true,
	"end_datetime":   true,
	"start_date":     true,
	"end_date":       true,

	"provides_equipment":   true,
	"equipment_count":      true,
	"membership_required":  true,
	"is_members_only":      true,
	"provides_instruction": true,
	"sells_goods":          true,
	"is_person":            true,
}

// Phase 2 outputs. Their presence in a Phase 1 result is a boundary
// violation.
var forbiddenPhase1 = []string{
	"canonical_activities",
	"canonical_roles",
	"canonical_place_types",
	"canonical_access",
	"modules",
}

// SchemaVocabulary returns the known schema attribute names.
func SchemaVocabulary() []string {
	out := make([]string, 0, len(schemaVocabulary))
	for k := range schemaVocabulary {
		out = append(out, k)
	}
	return out
}
