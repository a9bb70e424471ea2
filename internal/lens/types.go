// Package lens loads and validates lens contracts.
//
// A lens is an external YAML artifact telling the engine how to interpret raw
// observations for a vertical. Contracts are validated once per process and
// frozen; any gate failure is a fatal configuration error.
package lens

import "regexp"

// =============================================================================
// CANONICAL DIMENSIONS
// =============================================================================

// Canonical dimension names. Every facet binds to exactly one of these.
const (
	DimActivities = "canonical_activities"
	DimRoles      = "canonical_roles"
	DimPlaceTypes = "canonical_place_types"
	DimAccess     = "canonical_access"
)

// CanonicalDimensions lists the four dimension arrays in stable order.
func CanonicalDimensions() []string {
	return []string{DimActivities, DimRoles, DimPlaceTypes, DimAccess}
}

// EntityClasses lists the valid top-level entity classes.
func EntityClasses() []string {
	return []string{"place", "person", "organization", "event", "thing"}
}

// =============================================================================
// CONTRACT COMPONENTS
// =============================================================================

// Facet is a lens-level semantic grouping bound to one canonical dimension.
type Facet struct {
	DimensionSource string         `yaml:"dimension_source"`
	UILabel         string         `yaml:"ui_label"`
	DisplayMode     string         `yaml:"display_mode"`
	Order           int            `yaml:"order"`
	Flags           map[string]any `yaml:"flags"`
}

// Value is one canonical value belonging to a facet.
type Value struct {
	Key         string `yaml:"key"`
	Facet       string `yaml:"facet"`
	DisplayName string `yaml:"display_name"`
}

// MappingRule maps a raw-text pattern onto a canonical value.
type MappingRule struct {
	Pattern      string   `yaml:"pattern"`
	Canonical    string   `yaml:"canonical"`
	Confidence   float64  `yaml:"confidence"`
	SourceFields []string `yaml:"source_fields"`

	// Compiled is populated at validation time.
	Compiled *regexp.Regexp `yaml:"-"`
}

// FieldRule populates one dotted target path of a module.
type FieldRule struct {
	TargetPath    string        `yaml:"target_path"`
	Extractor     string        `yaml:"extractor"` // regex_capture | numeric_parser
	Pattern       string        `yaml:"pattern"`
	SourceFields  []string      `yaml:"source_fields"`
	Normalizers   []string      `yaml:"normalizers"` // trim | lowercase | round_integer
	Applicability Applicability `yaml:"applicability"`

	Compiled *regexp.Regexp `yaml:"-"`
}

// Applicability restricts a field rule to sources or entity classes.
type Applicability struct {
	Source      []string `yaml:"source"`
	EntityClass []string `yaml:"entity_class"`
}

// Module defines a structured sub-object attachable to entities.
type Module struct {
	Description string      `yaml:"description"`
	Fields      []string    `yaml:"fields"`
	FieldRules  []FieldRule `yaml:"field_rules"`
}

// TriggerWhen is the firing condition of a module trigger.
type TriggerWhen struct {
	Facet string `yaml:"facet"`
	Value string `yaml:"value"`
}

// TriggerCondition further restricts a trigger.
type TriggerCondition struct {
	EntityClass string `yaml:"entity_class"`
}

// ModuleTrigger attaches modules when a canonical value is present.
type ModuleTrigger struct {
	When       TriggerWhen        `yaml:"when"`
	AddModules []string           `yaml:"add_modules"`
	Conditions []TriggerCondition `yaml:"conditions"`
}

// GroupingRule is one membership rule of a derived grouping.
type GroupingRule struct {
	EntityClass string   `yaml:"entity_class"`
	Roles       []string `yaml:"roles"`
}

// DerivedGrouping tags entities matching any of its rules.
type DerivedGrouping struct {
	ID    string         `yaml:"id"`
	Label string         `yaml:"label"`
	Rules []GroupingRule `yaml:"rules"`
}

// ConnectorRule tells the planner when to add a domain-specific connector.
type ConnectorRule struct {
	WhenCategorySearch bool `yaml:"when_category_search"`
	WhenGeoIntent      bool `yaml:"when_geo_intent"`
	Always             bool `yaml:"always"`
}

// Keywords are lens-supplied signal vocabularies for query features.
type Keywords struct {
	Categories     []string `yaml:"categories"`
	SpecificVenues []string `yaml:"specific_venues"`
	Locations      []string `yaml:"locations"`
}

// Schema declares the lens identity and version.
type Schema struct {
	ID      string `yaml:"id"`
	Version string `yaml:"version"`
	Label   string `yaml:"label"`
}

// =============================================================================
// CONTRACT
// =============================================================================

// Contract is a fully validated, immutable lens.
type Contract struct {
	Schema           Schema                   `yaml:"schema"`
	Facets           map[string]Facet         `yaml:"facets"`
	Values           []Value                  `yaml:"values"`
	MappingRules     []MappingRule            `yaml:"mapping_rules"`
	Modules          map[string]Module        `yaml:"modules"`
	ModuleTriggers   []ModuleTrigger          `yaml:"module_triggers"`
	DerivedGroupings []DerivedGrouping        `yaml:"derived_groupings"`
	ConnectorRules   map[string]ConnectorRule `yaml:"connector_rules"`
	Keywords         Keywords                 `yaml:"keywords"`

	ConfidenceThreshold float64 `yaml:"confidence_threshold"`
}

// ValueByKey returns the value definition for a key.
func (c *Contract) ValueByKey(key string) (Value, bool) {
	for _, v := range c.Values {
		if v.Key == key {
			return v, true
		}
	}
	return Value{}, false
}

// DimensionForFacet resolves facet key -> canonical dimension name.
func (c *Contract) DimensionForFacet(facet string) (string, bool) {
	f, ok := c.Facets[facet]
	if !ok {
		return "", false
	}
	return f.DimensionSource, true
}
