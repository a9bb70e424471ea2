// Package classify assigns an entity class and roles from schema primitives.
//
// The classifier is domain-blind: it reasons over structural signals
// (time-bound fields, coordinates, generic commerce hints) and never over
// vertical vocabulary, which lives entirely in the lens.
package classify

import (
	"sort"
	"strings"
)

// Entity classes, in priority order.
const (
	ClassEvent        = "event"
	ClassPlace        = "place"
	ClassOrganization = "organization"
	ClassPerson       = "person"
	ClassThing        = "thing"
)

// Role keys.
const (
	RoleProvidesFacility    = "provides_facility"
	RoleMembershipOrg       = "membership_org"
	RoleProvidesInstruction = "provides_instruction"
	RoleSellsGoods          = "sells_goods"
)

// timeBoundFields force the event class when any is present.
var timeBoundFields = []string{"start_datetime", "end_datetime", "start_date", "end_date"}

// organizationHints are type hints implying an organization.
var organizationHints = map[string]bool{
	"retailer": true, "shop": true, "business": true, "organization": true,
	"league": true, "club": true, "association": true,
}

// organizationCategoryMarkers are substrings of raw categories implying an
// organization.
var organizationCategoryMarkers = []string{"retail", "shop", "business", "league", "chain"}

// sellerHints are type hints implying the sells_goods role.
var sellerHints = map[string]bool{"retailer": true, "shop": true}

// Result is a classification outcome.
type Result struct {
	EntityClass string   `json:"entity_class"`
	Roles       []string `json:"canonical_roles"`
}

// Resolve classifies one attribute set. First matching class wins; roles are
// derived independently and forced empty for events.
func Resolve(attrs map[string]any) Result {
	class := resolveClass(attrs)

	var roles []string
	if class != ClassEvent {
		roles = resolveRoles(attrs)
	}
	return Result{EntityClass: class, Roles: roles}
}

func resolveClass(attrs map[string]any) string {
	for _, field := range timeBoundFields {
		if _, ok := attrs[field]; ok {
			return ClassEvent
		}
	}

	_, hasLat := attrs["latitude"]
	_, hasLng := attrs["longitude"]
	if hasLat && hasLng {
		return ClassPlace
	}
	if stringAttr(attrs, "address") != "" || stringAttr(attrs, "street") != "" {
		return ClassPlace
	}

	hint := strings.ToLower(stringAttr(attrs, "type_hint"))
	if organizationHints[hint] {
		return ClassOrganization
	}
	for _, cat := range categoryList(attrs) {
		lower := strings.ToLower(cat)
		for _, marker := range organizationCategoryMarkers {
			if strings.Contains(lower, marker) {
				return ClassOrganization
			}
		}
	}

	if hint == "person" || boolAttr(attrs, "is_person") {
		return ClassPerson
	}
	return ClassThing
}

func resolveRoles(attrs map[string]any) []string {
	set := make(map[string]bool)

	if boolAttr(attrs, "provides_equipment") || numAttr(attrs, "equipment_count") > 0 {
		set[RoleProvidesFacility] = true
	}
	if boolAttr(attrs, "membership_required") || boolAttr(attrs, "is_members_only") {
		set[RoleMembershipOrg] = true
	}
	if boolAttr(attrs, "provides_instruction") {
		set[RoleProvidesInstruction] = true
	}
	hint := strings.ToLower(stringAttr(attrs, "type_hint"))
	if sellerHints[hint] || boolAttr(attrs, "sells_goods") {
		set[RoleSellsGoods] = true
	}

	if len(set) == 0 {
		return nil
	}
	roles := make([]string, 0, len(set))
	for role := range set {
		roles = append(roles, role)
	}
	sort.Strings(roles)
	return roles
}

// =============================================================================
// ATTRIBUTE HELPERS
// =============================================================================

func stringAttr(attrs map[string]any, key string) string {
	s, _ := attrs[key].(string)
	return strings.TrimSpace(s)
}

func boolAttr(attrs map[string]any, key string) bool {
	switch v := attrs[key].(type) {
	case bool:
		return v
	case string:
		return strings.EqualFold(v, "true")
	}
	return false
}

func numAttr(attrs map[string]any, key string) float64 {
	switch v := attrs[key].(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	}
	return 0
}

func categoryList(attrs map[string]any) []string {
	switch v := attrs["raw_categories"].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
