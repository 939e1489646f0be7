package search

import "strings"

// wordOverlap returns the fraction of query's distinct words (case
// insensitive) that appear somewhere in candidate. It's the shared
// relevance check every provider applies to its raw results before
// returning them, per spec.md §4.8.
func wordOverlap(query, candidate string) float64 {
	queryWords := uniqueWords(query)
	if len(queryWords) == 0 {
		return 0
	}
	candidateWords := wordSet(candidate)

	matches := 0
	for w := range queryWords {
		if _, ok := candidateWords[w]; ok {
			matches++
		}
	}
	return float64(matches) / float64(len(queryWords))
}

func uniqueWords(s string) map[string]struct{} {
	return wordSet(s)
}

func wordSet(s string) map[string]struct{} {
	words := strings.Fields(strings.ToLower(s))
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		w = strings.Trim(w, ".,:;!?()[]{}'\"")
		if w != "" {
			set[w] = struct{}{}
		}
	}
	return set
}

// meetsOverlapThreshold reports whether candidate's title overlaps query
// enough to be considered relevant. preferredLanguage requests the looser
// 50% bar; otherwise the stricter 60% bar applies.
func meetsOverlapThreshold(query, candidate string, isPreferredLanguage bool) bool {
	threshold := 0.6
	if isPreferredLanguage {
		threshold = 0.5
	}
	return wordOverlap(query, candidate) >= threshold
}
