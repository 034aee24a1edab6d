// Package suggest finds the closest known name for a misspelled one.
package suggest

import (
	"sort"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"
)

// Closest returns the candidate that best matches target, or "" if none is close.
//
// Abbreviations ("atach" for "attached") are matched first, case-insensitively.
// Otherwise the candidate with the smallest edit distance wins, provided it is
// within half the length of target.
func Closest(target string, candidates []string) string {
	if target == "" || len(candidates) == 0 {
		return ""
	}

	if ranks := fuzzy.RankFindFold(target, candidates); len(ranks) > 0 {
		sort.Sort(ranks)
		return ranks[0].Target
	}

	best, bestDist := "", len(target)/2+1
	lower := strings.ToLower(target)
	for _, c := range candidates {
		if d := fuzzy.LevenshteinDistance(lower, strings.ToLower(c)); d < bestDist {
			best, bestDist = c, d
		}
	}
	return best
}
