package extract

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/LarjGit/edinburgh-finds-sub000/internal/core"
)

// =============================================================================
// PER-SOURCE EXTRACTORS
// Each structured source has a deterministic extractor over its raw item
// shape. Unstructured sources delegate to the LLM subsystem (llm.go).
// =============================================================================

// Func extracts schema primitives from one raw item.
type Func func(item core.RawItem) (map[string]any, error)

// extractors maps source name to its deterministic extractor. Sources absent
// from this table are unstructured and route through the LLM subsystem.
var extractors = map[string]Func{
	"osm_overpass":       extractOverpass,
	"google_places":      extractPlaces,
	"gov_geojson":        extractGovGeo,
	"bulk_geo":           extractBulkGeo,
	"companies_registry": extractCompanies,
}

// For returns the deterministic extractor for a source, if one exists.
func For(source string) (Func, bool) {
	fn, ok := extractors[source]
	return fn, ok
}

// Run extracts and validates primitives for one raw item. Structured sources
// use their deterministic extractor; everything else goes through llm, which
// may be nil when no LLM subsystem is configured.
func Run(ctx context.Context, source string, item core.RawItem, llm LLMExtractor) (map[string]any, error) {
	var (
		attrs map[string]any
		err   error
	)
	if fn, ok := For(source); ok {
		attrs, err = fn(item)
	} else {
		if llm == nil {
			return nil, &core.CodedError{
				Code: core.CodeExtraction,
				Err:  fmt.Errorf("source %s needs extraction but no extractor is configured", source),
			}
		}
		attrs, err = llm.Extract(ctx, item, source)
	}
	if err != nil {
		return nil, &core.CodedError{Code: core.CodeExtraction, Err: fmt.Errorf("extract %s: %w", source, err)}
	}
	return Validate(attrs)
}

// =============================================================================
// STRUCTURED SOURCE EXTRACTORS
// =============================================================================

func extractOverpass(item core.RawItem) (map[string]any, error) {
	tags, _ := item["tags"].(map[string]any)
	name := stringField(tags, "name")
	if name == "" {
		return nil, fmt.Errorf("overpass element has no name tag")
	}

	attrs := map[string]any{"entity_name": name}
	if lat, ok := floatField(item, "lat"); ok {
		attrs["latitude"] = lat
	}
	if lon, ok := floatField(item, "lon"); ok {
		attrs["longitude"] = lon
	}
	if street := stringField(tags, "addr:street"); street != "" {
		attrs["street"] = street
	}
	if city := stringField(tags, "addr:city"); city != "" {
		attrs["city"] = city
	}
	if pc := stringField(tags, "addr:postcode"); pc != "" {
		attrs["postcode"] = pc
	}
	if phone := stringField(tags, "phone"); phone != "" {
		attrs["phone"] = phone
	}
	if site := stringField(tags, "website"); site != "" {
		attrs["website"] = site
	}

	var cats []string
	for _, key := range []string{"leisure", "sport", "amenity", "shop"} {
		if v := stringField(tags, key); v != "" {
			// Multi-valued tags use semicolons.
			for _, part := range strings.Split(v, ";") {
				if part = strings.TrimSpace(part); part != "" {
					cats = append(cats, part)
				}
			}
		}
	}
	if len(cats) > 0 {
		attrs["raw_categories"] = cats
	}

	if id := stringField(item, "type"); id != "" {
		attrs["external_ids"] = map[string]string{
			"osm": fmt.Sprintf("%s/%s", id, anyString(item["id"])),
		}
	}
	return attrs, nil
}

func extractPlaces(item core.RawItem) (map[string]any, error) {
	name := stringField(item, "name")
	placeID := stringField(item, "place_id")
	if name == "" || placeID == "" {
		return nil, fmt.Errorf("place result missing name or place_id")
	}

	attrs := map[string]any{
		"entity_name":  name,
		"external_ids": map[string]string{"google": placeID},
	}
	if lat, ok := floatField(item, "lat"); ok {
		attrs["latitude"] = lat
	}
	if lng, ok := floatField(item, "lng"); ok {
		attrs["longitude"] = lng
	}
	if addr := stringField(item, "formatted_address"); addr != "" {
		attrs["address"] = addr
	}
	if types, ok := item["types"].([]any); ok {
		var cats []string
		for _, t := range types {
			if s, ok := t.(string); ok && s != "" {
				cats = append(cats, s)
			}
		}
		if len(cats) > 0 {
			attrs["raw_categories"] = cats
		}
	}
	return attrs, nil
}

func extractGovGeo(item core.RawItem) (map[string]any, error) {
	props, _ := item["properties"].(map[string]any)
	name := stringField(props, "name")
	if name == "" {
		name = stringField(props, "facility_name")
	}
	if name == "" {
		return nil, fmt.Errorf("feature has no name property")
	}

	attrs := map[string]any{"entity_name": name}
	if lat, ok := floatField(item, "lat"); ok {
		attrs["latitude"] = lat
	}
	if lng, ok := floatField(item, "lng"); ok {
		attrs["longitude"] = lng
	}
	if addr := stringField(props, "address"); addr != "" {
		attrs["address"] = addr
	}
	if pc := stringField(props, "postcode"); pc != "" {
		attrs["postcode"] = pc
	}

	var cats []string
	for _, key := range []string{"sport", "facility_type", "category"} {
		if v := stringField(props, key); v != "" {
			cats = append(cats, v)
		}
	}
	if len(cats) > 0 {
		attrs["raw_categories"] = cats
	}
	if id := stringField(item, "id"); id != "" {
		attrs["external_ids"] = map[string]string{"gov": id}
	}
	return attrs, nil
}

func extractBulkGeo(item core.RawItem) (map[string]any, error) {
	name := stringField(item, "name")
	if name == "" {
		return nil, fmt.Errorf("release row has no name")
	}

	attrs := map[string]any{"entity_name": name}
	if lat, ok := floatField(item, "latitude"); ok {
		attrs["latitude"] = lat
	}
	if lng, ok := floatField(item, "longitude"); ok {
		attrs["longitude"] = lng
	}
	if country := stringField(item, "country"); country != "" {
		attrs["country"] = country
	}
	if pt := stringField(item, "placetype"); pt != "" {
		attrs["raw_categories"] = []string{pt}
	}
	if id := stringField(item, "id"); id != "" {
		attrs["external_ids"] = map[string]string{"wof": id}
	}
	return attrs, nil
}

func extractCompanies(item core.RawItem) (map[string]any, error) {
	title := stringField(item, "title")
	number := stringField(item, "company_number")
	if title == "" || number == "" {
		return nil, fmt.Errorf("registry item missing title or company_number")
	}

	attrs := map[string]any{
		"entity_name":  title,
		"type_hint":    "business",
		"external_ids": map[string]string{"companies_house": number},
	}
	var parts []string
	for _, key := range []string{"address_line_1", "locality", "postal_code"} {
		if v := stringField(item, key); v != "" {
			parts = append(parts, v)
		}
	}
	if len(parts) > 0 {
		attrs["address"] = strings.Join(parts, ", ")
	}
	return attrs, nil
}

// =============================================================================
// VALIDATE & SPLIT
// =============================================================================

// Validate enforces the extraction boundary and basic shape rules: Phase 2
// keys are rejected outright, entity_name is required, out-of-range
// coordinates are dropped and raw category lists are deduplicated.
func Validate(attrs map[string]any) (map[string]any, error) {
	for _, forbidden := range forbiddenPhase1 {
		if _, ok := attrs[forbidden]; ok {
			return nil, &core.CodedError{
				Code: core.CodeExtraction,
				Err:  fmt.Errorf("extraction boundary: phase 1 emitted %q", forbidden),
			}
		}
	}

	name, _ := attrs["entity_name"].(string)
	if strings.TrimSpace(name) == "" {
		return nil, &core.CodedError{
			Code: core.CodeExtraction,
			Err:  fmt.Errorf("entity_name is required"),
		}
	}

	if lat, ok := floatField(attrs, "latitude"); ok && (lat > 90 || lat < -90) {
		delete(attrs, "latitude")
		delete(attrs, "longitude")
	}
	if lng, ok := floatField(attrs, "longitude"); ok && (lng > 180 || lng < -180) {
		delete(attrs, "latitude")
		delete(attrs, "longitude")
	}

	if cats, ok := attrs["raw_categories"].([]string); ok {
		attrs["raw_categories"] = dedupeStrings(cats)
	}
	return attrs, nil
}

// Split partitions attributes by the schema vocabulary. Unknown keys are
// preserved as discovered attributes rather than dropped.
func Split(attrs map[string]any) (schema map[string]any, discovered map[string]any) {
	schema = make(map[string]any)
	discovered = make(map[string]any)
	for k, v := range attrs {
		if schemaVocabulary[k] {
			schema[k] = v
		} else {
			discovered[k] = v
		}
	}
	return schema, discovered
}

// =============================================================================
// FIELD HELPERS
// =============================================================================

func stringField(m map[string]any, key string) string {
	if m == nil {
		return ""
	}
	s, _ := m[key].(string)
	return strings.TrimSpace(s)
}

func floatField(m map[string]any, key string) (float64, bool) {
	if m == nil {
		return 0, false
	}
	switch v := m[key].(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	}
	return 0, false
}

func anyString(v any) string {
	return strings.TrimSpace(fmt.Sprint(v))
}

func dedupeStrings(in []string) []string {
	seen := make(map[string]bool, len(in))
	var out []string
	for _, s := range in {
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}
