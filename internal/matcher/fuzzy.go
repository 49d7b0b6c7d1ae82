package matcher

import (
	"sort"
	"strings"

	"github.com/adrg/strutil"
	"github.com/adrg/strutil/metrics"

	"dabhounds/internal/dab"
)

// TokenSetRatio scores two strings 0-100, insensitive to word order and
// duplicate words: both sides are whitespace-tokenized into sets, then
// the canonical strings built from the intersection and the two
// symmetric differences are compared pairwise and the best ratio wins.
func TokenSetRatio(a, b string) int {
	ta := tokenSet(a)
	tb := tokenSet(b)
	if len(ta) == 0 && len(tb) == 0 {
		return 0
	}

	var inter, onlyA, onlyB []string
	for _, tok := range ta {
		if contains(tb, tok) {
			inter = append(inter, tok)
		} else {
			onlyA = append(onlyA, tok)
		}
	}
	for _, tok := range tb {
		if !contains(ta, tok) {
			onlyB = append(onlyB, tok)
		}
	}

	base := strings.Join(inter, " ")
	combA := strings.TrimSpace(base + " " + strings.Join(onlyA, " "))
	combB := strings.TrimSpace(base + " " + strings.Join(onlyB, " "))

	lev := metrics.NewLevenshtein()
	score := ratio(base, combA, lev)
	if s := ratio(base, combB, lev); s > score {
		score = s
	}
	if s := ratio(combA, combB, lev); s > score {
		score = s
	}
	return score
}

func ratio(a, b string, lev *metrics.Levenshtein) int {
	if a == "" && b == "" {
		return 0
	}
	return int(strutil.Similarity(a, b, lev)*100 + 0.5)
}

// tokenSet lowercases, splits on whitespace and returns the sorted set
// of unique tokens.
func tokenSet(s string) []string {
	fields := strings.Fields(strings.ToLower(s))
	seen := make(map[string]struct{}, len(fields))
	var out []string
	for _, f := range fields {
		if _, ok := seen[f]; ok {
			continue
		}
		seen[f] = struct{}{}
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}

func contains(set []string, tok string) bool {
	for _, s := range set {
		if s == tok {
			return true
		}
	}
	return false
}

// BestFuzzy returns the candidate whose "artist title" string scores
// highest against the query, provided the best score clears the
// threshold. The first candidate seen keeps a tied score.
func BestFuzzy(query string, candidates []dab.Track, threshold int) *dab.Track {
	bestScore := 0
	var best *dab.Track

	for i := range candidates {
		cand := &candidates[i]
		score := TokenSetRatio(query, cand.Artist+" "+cand.Title)
		if score > bestScore {
			bestScore = score
			best = cand
		}
	}

	if best != nil && bestScore >= threshold {
		return best
	}
	return nil
}
