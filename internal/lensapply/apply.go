// Package lensapply implements Phase 2: projecting a validated lens contract
// onto Phase 1 primitives. Mapping rules populate canonical dimension arrays,
// module triggers decide which structured sub-objects to build, and field
// rules populate them.
//
// With no lens, Phase 2 is the identity function.
package lensapply

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/LarjGit/edinburgh-finds-sub000/internal/lens"
)

// Default source fields for mapping rules that do not name their own.
var defaultSourceFields = []string{"entity_name", "description", "raw_categories"}

// numericPattern finds the first signed integer or decimal in free text.
var numericPattern = regexp.MustCompile(`[-+]?\d+(?:\.\d+)?`)

// Apply runs the mapping pass, module triggers and field rules, returning the
// input attributes extended with canonical dimensions and modules. The input
// map is not mutated.
func Apply(attrs map[string]any, contract *lens.Contract, source, entityClass string) map[string]any {
	out := make(map[string]any, len(attrs)+5)
	for k, v := range attrs {
		out[k] = v
	}
	if contract == nil {
		return out
	}

	valuesByFacet := mappingPass(out, contract)
	required := evaluateTriggers(contract, valuesByFacet, entityClass)
	modules := executeFieldRules(out, contract, required, source, entityClass)
	if len(modules) > 0 {
		out["modules"] = modules
	}
	return out
}

// =============================================================================
// MAPPING PASS
// =============================================================================

// mappingPass appends canonical values to dimension arrays on attrs and
// returns the collected values keyed by facet.
func mappingPass(attrs map[string]any, contract *lens.Contract) map[string]map[string]bool {
	valuesByFacet := make(map[string]map[string]bool)
	dims := make(map[string][]string)

	for _, rule := range contract.MappingRules {
		value, ok := contract.ValueByKey(rule.Canonical)
		if !ok {
			continue
		}
		dim, ok := contract.DimensionForFacet(value.Facet)
		if !ok {
			continue
		}
		if rule.Compiled == nil {
			continue
		}

		fields := rule.SourceFields
		if len(fields) == 0 {
			fields = defaultSourceFields
		}
		for _, field := range fields {
			text := fieldText(attrs, field)
			if text == "" || !rule.Compiled.MatchString(text) {
				continue
			}
			dims[dim] = append(dims[dim], rule.Canonical)
			if valuesByFacet[value.Facet] == nil {
				valuesByFacet[value.Facet] = make(map[string]bool)
			}
			valuesByFacet[value.Facet][rule.Canonical] = true
			break // first field hit wins per rule
		}
	}

	for dim, values := range dims {
		attrs[dim] = dedupeSorted(values)
	}
	return valuesByFacet
}

// =============================================================================
// MODULE TRIGGERS
// =============================================================================

// evaluateTriggers returns the sorted names of modules required by the
// collected canonical values.
func evaluateTriggers(contract *lens.Contract, valuesByFacet map[string]map[string]bool, entityClass string) []string {
	required := make(map[string]bool)
	for _, trigger := range contract.ModuleTriggers {
		if !valuesByFacet[trigger.When.Facet][trigger.When.Value] {
			continue
		}
		satisfied := true
		for _, cond := range trigger.Conditions {
			if cond.EntityClass != "" && cond.EntityClass != entityClass {
				satisfied = false
				break
			}
		}
		if !satisfied {
			continue
		}
		for _, name := range trigger.AddModules {
			required[name] = true
		}
	}

	out := make([]string, 0, len(required))
	for name := range required {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// =============================================================================
// FIELD RULES
// =============================================================================

// executeFieldRules builds the modules object for the required modules.
// Target paths are relative to the owning module; modules where no rule
// produced a value are omitted.
func executeFieldRules(attrs map[string]any, contract *lens.Contract, required []string, source, entityClass string) map[string]any {
	modules := make(map[string]any)
	for _, name := range required {
		module, ok := contract.Modules[name]
		if !ok {
			continue
		}
		fields := make(map[string]any)
		for _, rule := range module.FieldRules {
			if !applicable(rule.Applicability, source, entityClass) {
				continue
			}
			value, ok := runExtractor(attrs, rule)
			if !ok {
				continue
			}
			value = normalize(value, rule.Normalizers)
			assignPath(fields, rule.TargetPath, value)
		}
		if len(fields) > 0 {
			modules[name] = fields
		}
	}
	return modules
}

func applicable(a lens.Applicability, source, entityClass string) bool {
	if len(a.Source) > 0 && !contains(a.Source, source) {
		return false
	}
	if len(a.EntityClass) > 0 && !contains(a.EntityClass, entityClass) {
		return false
	}
	return true
}

// runExtractor runs the rule's extractor over its source fields in order and
// returns the first hit.
func runExtractor(attrs map[string]any, rule lens.FieldRule) (any, bool) {
	for _, field := range rule.SourceFields {
		text := fieldText(attrs, field)
		if text == "" {
			continue
		}
		switch rule.Extractor {
		case "regex_capture":
			if rule.Compiled == nil {
				return nil, false
			}
			if m := rule.Compiled.FindStringSubmatch(text); len(m) > 1 {
				return m[1], true
			}
		case "numeric_parser":
			if m := numericPattern.FindString(text); m != "" {
				return m, true
			}
		}
	}
	return nil, false
}

// normalize applies the rule's normalizer pipeline left to right.
func normalize(value any, normalizers []string) any {
	for _, n := range normalizers {
		switch n {
		case "trim":
			if s, ok := value.(string); ok {
				value = strings.TrimSpace(s)
			}
		case "lowercase":
			if s, ok := value.(string); ok {
				value = strings.ToLower(s)
			}
		case "round_integer":
			if f, err := strconv.ParseFloat(strings.TrimSpace(fmt.Sprint(value)), 64); err == nil {
				value = int(f) // truncates toward zero
			}
		}
	}
	return value
}

// assignPath writes value at a dotted path, creating nested maps on the way.
func assignPath(root map[string]any, path string, value any) {
	segments := strings.Split(path, ".")
	current := root
	for _, seg := range segments[:len(segments)-1] {
		next, ok := current[seg].(map[string]any)
		if !ok {
			next = make(map[string]any)
			current[seg] = next
		}
		current = next
	}
	current[segments[len(segments)-1]] = value
}

// =============================================================================
// HELPERS
// =============================================================================

// fieldText renders an attribute as searchable text. List values are joined
// with a single space.
func fieldText(attrs map[string]any, field string) string {
	switch v := attrs[field].(type) {
	case string:
		return v
	case []string:
		return strings.Join(v, " ")
	case []any:
		parts := make([]string, 0, len(v))
		for _, item := range v {
			parts = append(parts, fmt.Sprint(item))
		}
		return strings.Join(parts, " ")
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

func dedupeSorted(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
