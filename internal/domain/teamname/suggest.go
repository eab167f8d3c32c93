package teamname

import (
	"sort"

	"github.com/lithammer/fuzzysearch/fuzzy"
)

// Suggest ranks known names that loosely resemble name. It is only used to
// help an operator extend the alias table and never drives a match.
func Suggest(name string, known []string, limit int) []string {
	if name == "" || len(known) == 0 || limit <= 0 {
		return nil
	}

	ranks := fuzzy.RankFindNormalizedFold(name, known)
	for i, target := range known {
		if fuzzy.MatchNormalizedFold(target, name) {
			ranks = append(ranks, fuzzy.Rank{
				Source:        target,
				Target:        target,
				Distance:      fuzzy.LevenshteinDistance(MatchKey(target), MatchKey(name)),
				OriginalIndex: i,
			})
		}
	}
	sort.Sort(ranks)

	seen := make(map[string]struct{}, limit)
	out := make([]string, 0, limit)
	for _, rank := range ranks {
		if _, ok := seen[rank.Target]; ok {
			continue
		}
		seen[rank.Target] = struct{}{}
		out = append(out, rank.Target)
		if len(out) == limit {
			break
		}
	}
	return out
}
