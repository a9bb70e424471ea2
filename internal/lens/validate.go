package lens

import (
	"regexp"

	"github.com/LarjGit/edinburgh-finds-sub000/internal/core"
)

// =============================================================================
// VALIDATION GATES
// All gates run eagerly; the first violation is returned as a configuration
// error naming the broken contract. No partial or lazy validation.
// =============================================================================

// Validate checks a parsed contract against every gate and compiles all
// patterns in place. registeredConnectors is the set of valid connector names.
func Validate(c *Contract, registeredConnectors []string) error {
	// Gate 1: required top-level sections.
	if c.Schema.ID == "" {
		return core.ConfigError("lens contract: schema section missing or schema.id empty")
	}
	if len(c.Facets) == 0 {
		return core.ConfigError("lens contract: facets section is required")
	}
	if len(c.Values) == 0 {
		return core.ConfigError("lens contract: values section is required")
	}
	if len(c.MappingRules) == 0 {
		return core.ConfigError("lens contract: mapping_rules section is required")
	}

	// Gate 2: dimension integrity.
	valid := make(map[string]bool)
	for _, dim := range CanonicalDimensions() {
		valid[dim] = true
	}
	for key, facet := range c.Facets {
		if !valid[facet.DimensionSource] {
			return core.ConfigError("facet %q: dimension_source %q is not a canonical dimension", key, facet.DimensionSource)
		}
	}

	// Gate 3: value -> facet integrity. Gate 5: unique value keys.
	seenKeys := make(map[string]bool)
	valuesByFacet := make(map[string]int)
	for _, v := range c.Values {
		if _, ok := c.Facets[v.Facet]; !ok {
			return core.ConfigError("value %q: facet %q is not defined", v.Key, v.Facet)
		}
		if seenKeys[v.Key] {
			return core.ConfigError("value key %q is defined more than once", v.Key)
		}
		seenKeys[v.Key] = true
		valuesByFacet[v.Facet]++
	}

	// Gate 4: rule -> value integrity. Gate 7: regex compilation.
	for i := range c.MappingRules {
		rule := &c.MappingRules[i]
		if !seenKeys[rule.Canonical] {
			return core.ConfigError("mapping rule %d: canonical %q is not a defined value key", i, rule.Canonical)
		}
		compiled, err := regexp.Compile(rule.Pattern)
		if err != nil {
			return core.ConfigError("mapping rule %d: pattern %q does not compile: %v", i, rule.Pattern, err)
		}
		rule.Compiled = compiled
	}

	// Gate 6: connector rule references.
	if len(c.ConnectorRules) > 0 {
		known := make(map[string]bool, len(registeredConnectors))
		for _, name := range registeredConnectors {
			known[name] = true
		}
		for name := range c.ConnectorRules {
			if !known[name] {
				return core.ConfigError("connector_rules: %q is not a registered connector", name)
			}
		}
	}

	// Gate 8: every facet has at least one value.
	for key := range c.Facets {
		if valuesByFacet[key] == 0 {
			return core.ConfigError("facet %q has no values", key)
		}
	}

	// Gate 9: module trigger references.
	for i, trigger := range c.ModuleTriggers {
		if _, ok := c.Facets[trigger.When.Facet]; !ok {
			return core.ConfigError("module trigger %d: when.facet %q is not a defined facet", i, trigger.When.Facet)
		}
		for _, mod := range trigger.AddModules {
			if _, ok := c.Modules[mod]; !ok {
				return core.ConfigError("module trigger %d: add_modules entry %q is not a defined module", i, mod)
			}
		}
	}

	// Gate 10: derived grouping references.
	classes := make(map[string]bool)
	for _, cls := range EntityClasses() {
		classes[cls] = true
	}
	for _, grouping := range c.DerivedGroupings {
		for _, rule := range grouping.Rules {
			if rule.EntityClass != "" && !classes[rule.EntityClass] {
				return core.ConfigError("derived grouping %q: entity_class %q is not valid", grouping.ID, rule.EntityClass)
			}
		}
	}

	// Compile module field rule patterns up front so apply never compiles.
	for name, mod := range c.Modules {
		for i := range mod.FieldRules {
			rule := &mod.FieldRules[i]
			if rule.Pattern == "" {
				continue
			}
			compiled, err := regexp.Compile(rule.Pattern)
			if err != nil {
				return core.ConfigError("module %q field rule %d: pattern %q does not compile: %v", name, i, rule.Pattern, err)
			}
			rule.Compiled = compiled
		}
		c.Modules[name] = mod
	}

	return nil
}
