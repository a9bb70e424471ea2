package dedup

import (
	"sort"
	"strings"
)

// =============================================================================
// TOKEN-SET RATIO
// The classic fuzzy-matching score: tokenize both strings, build the shared
// and distinct token groups, and take the best pairwise similarity. Robust to
// word order and to one side carrying extra descriptive tokens.
// =============================================================================

// TokenSetRatio scores two strings on a 0-100 scale.
func TokenSetRatio(a, b string) int {
	tokensA := tokenSet(a)
	tokensB := tokenSet(b)
	if len(tokensA) == 0 && len(tokensB) == 0 {
		return 100
	}
	if len(tokensA) == 0 || len(tokensB) == 0 {
		return 0
	}

	var inter, onlyA, onlyB []string
	for tok := range tokensA {
		if tokensB[tok] {
			inter = append(inter, tok)
		} else {
			onlyA = append(onlyA, tok)
		}
	}
	for tok := range tokensB {
		if !tokensA[tok] {
			onlyB = append(onlyB, tok)
		}
	}
	sort.Strings(inter)
	sort.Strings(onlyA)
	sort.Strings(onlyB)

	base := strings.Join(inter, " ")
	combinedA := strings.TrimSpace(base + " " + strings.Join(onlyA, " "))
	combinedB := strings.TrimSpace(base + " " + strings.Join(onlyB, " "))

	best := ratio(base, combinedA)
	if r := ratio(base, combinedB); r > best {
		best = r
	}
	if r := ratio(combinedA, combinedB); r > best {
		best = r
	}
	return best
}

// tokenSet splits on anything non-alphanumeric, so "Scotland's" and
// "Scotland" share a token.
func tokenSet(s string) map[string]bool {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if r >= 'a' && r <= 'z' || r >= '0' && r <= '9' {
			b.WriteRune(r)
		} else {
			b.WriteRune(' ')
		}
	}
	out := make(map[string]bool)
	for _, tok := range strings.Fields(b.String()) {
		out[tok] = true
	}
	return out
}

// ratio is the normalised indel similarity of two strings on 0-100.
func ratio(a, b string) int {
	if a == "" && b == "" {
		return 100
	}
	lensum := len(a) + len(b)
	if lensum == 0 {
		return 100
	}
	dist := indelDistance(a, b)
	return (lensum - dist) * 100 / lensum
}

// indelDistance is the edit distance with insertions and deletions only
// (substitution costs two), computed with a rolling row.
func indelDistance(a, b string) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := 0; j <= len(b); j++ {
		prev[j] = j
	}

	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			if a[i-1] == b[j-1] {
				curr[j] = prev[j-1]
			} else {
				del := prev[j] + 1
				ins := curr[j-1] + 1
				if del < ins {
					curr[j] = del
				} else {
					curr[j] = ins
				}
			}
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}
