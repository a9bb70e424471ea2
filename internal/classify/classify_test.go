package classify

import (
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// CLASS PRIORITY
// =============================================================================

func TestResolve_Unit_EventPrecedence(t *testing.T) {
	// Time-bound fields beat everything, including coordinates.
	result := Resolve(map[string]any{
		"entity_name":    "Edinburgh Racket Open 2024",
		"start_datetime": "2024-05-15T09:00:00Z",
		"end_datetime":   "2024-05-17T18:00:00Z",
		"latitude":       55.9,
		"longitude":      -3.1,
	})
	assert.Equal(t, ClassEvent, result.EntityClass)
	assert.Empty(t, result.Roles, "events carry no roles")
}

func TestResolve_Unit_EventRolesForcedEmpty(t *testing.T) {
	result := Resolve(map[string]any{
		"entity_name":         "Club Open Day",
		"start_date":          "2024-06-01",
		"membership_required": true,
		"provides_equipment":  true,
	})
	assert.Equal(t, ClassEvent, result.EntityClass)
	assert.Empty(t, result.Roles)
}

func TestResolve_Unit_PlaceWithMultipleRoles(t *testing.T) {
	result := Resolve(map[string]any{
		"entity_name":         "Craigmillar Racket Club",
		"address":             "123 Court Road",
		"latitude":            55.9,
		"longitude":           -3.1,
		"provides_equipment":  true,
		"membership_required": true,
	})
	assert.Equal(t, ClassPlace, result.EntityClass)
	assert.Subset(t, result.Roles, []string{RoleProvidesFacility, RoleMembershipOrg})
}

func TestResolve_Unit_AddressAloneMakesPlace(t *testing.T) {
	result := Resolve(map[string]any{"entity_name": "X", "street": "1 High Street"})
	assert.Equal(t, ClassPlace, result.EntityClass)
}

func TestResolve_Unit_SingleCoordinateIsNotPlace(t *testing.T) {
	result := Resolve(map[string]any{"entity_name": "X", "latitude": 55.9})
	assert.NotEqual(t, ClassPlace, result.EntityClass)
}

func TestResolve_Unit_OrganizationHints(t *testing.T) {
	for _, hint := range []string{"retailer", "shop", "business", "organization", "league", "club", "association"} {
		result := Resolve(map[string]any{"entity_name": "X", "type_hint": hint})
		assert.Equal(t, ClassOrganization, result.EntityClass, hint)
	}

	result := Resolve(map[string]any{
		"entity_name":    "X",
		"raw_categories": []string{"sporting goods retail"},
	})
	assert.Equal(t, ClassOrganization, result.EntityClass, "category substring match")
}

func TestResolve_Unit_PersonAndThing(t *testing.T) {
	assert.Equal(t, ClassPerson, Resolve(map[string]any{"entity_name": "X", "type_hint": "person"}).EntityClass)
	assert.Equal(t, ClassPerson, Resolve(map[string]any{"entity_name": "X", "is_person": true}).EntityClass)
	assert.Equal(t, ClassThing, Resolve(map[string]any{"entity_name": "X"}).EntityClass)
}

// =============================================================================
// ROLES
// =============================================================================

func TestResolveRoles_Unit_AllSignals(t *testing.T) {
	result := Resolve(map[string]any{
		"entity_name":          "X",
		"type_hint":            "retailer",
		"equipment_count":      3,
		"membership_required":  true,
		"provides_instruction": true,
	})
	assert.Equal(t, []string{
		RoleMembershipOrg, RoleProvidesFacility, RoleProvidesInstruction, RoleSellsGoods,
	}, result.Roles, "roles are sorted")
}

func TestResolveRoles_Unit_EquipmentCountZeroIsNotFacility(t *testing.T) {
	result := Resolve(map[string]any{"entity_name": "X", "equipment_count": 0})
	assert.NotContains(t, result.Roles, RoleProvidesFacility)
}

func TestResolveRoles_Unit_SellsGoodsFlag(t *testing.T) {
	result := Resolve(map[string]any{"entity_name": "X", "sells_goods": true})
	assert.Contains(t, result.Roles, RoleSellsGoods)
}

// =============================================================================
// PURITY LINT
// The classifier must stay domain-blind: vertical vocabulary belongs to the
// lens, never to this package.
// =============================================================================

func TestClassifierSource_Unit_NoDomainLiterals(t *testing.T) {
	src, err := os.ReadFile("classify.go")
	require.NoError(t, err)
	lower := strings.ToLower(string(src))

	for _, word := range []string{
		"padel", "tennis", "golf", "squash", "yoga", "swim",
		"wine", "restaurant", "cafe", "coffee", "hotel", "gym",
		"edinburgh", "scotland",
	} {
		assert.NotContains(t, lower, word, "domain literal leaked into the classifier")
	}
}
