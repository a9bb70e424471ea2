package lensapply

import (
	"sort"

	"github.com/LarjGit/edinburgh-finds-sub000/internal/lens"
)

// Groupings returns the ids of the contract's derived groupings the entity
// belongs to. A grouping matches when any of its rules does; a rule requires
// its entity class (when set) and every listed role.
func Groupings(contract *lens.Contract, entityClass string, roles []string) []string {
	if contract == nil {
		return nil
	}

	roleSet := make(map[string]bool, len(roles))
	for _, r := range roles {
		roleSet[r] = true
	}

	var out []string
	for _, grouping := range contract.DerivedGroupings {
		for _, rule := range grouping.Rules {
			if rule.EntityClass != "" && rule.EntityClass != entityClass {
				continue
			}
			if !hasAllRoles(roleSet, rule.Roles) {
				continue
			}
			out = append(out, grouping.ID)
			break
		}
	}
	sort.Strings(out)
	return out
}

func hasAllRoles(have map[string]bool, want []string) bool {
	for _, r := range want {
		if !have[r] {
			return false
		}
	}
	return true
}
