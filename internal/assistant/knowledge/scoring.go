package knowledge

import (
	"sort"
	"strings"
	"unicode"
)

// tokenize lowercases and splits text on non-alphanumeric runes, dropping
// single-character fragments.
func tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	out := fields[:0]
	for _, f := range fields {
		if len(f) > 1 {
			out = append(out, f)
		}
	}
	return out
}

// relevance scores a document against a query as the fraction of query tokens
// present in the document. 0 means no overlap, 1 means every query token
// appears.
func relevance(query, content string) float64 {
	qTokens := tokenize(query)
	if len(qTokens) == 0 {
		return 0
	}

	docTokens := make(map[string]struct{})
	for _, t := range tokenize(content) {
		docTokens[t] = struct{}{}
	}

	var hits int
	for _, t := range qTokens {
		if _, ok := docTokens[t]; ok {
			hits++
		}
	}
	return float64(hits) / float64(len(qTokens))
}

// rank scores and filters docs, returning the topK best matches with a
// non-zero score, ordered by descending score then by id for stability.
func rank(query string, category Category, docs []Snippet, topK int) []Snippet {
	scored := make([]Snippet, 0, len(docs))
	for _, d := range docs {
		if category != CategoryAny && d.Category != category {
			continue
		}
		s := relevance(query, d.Content)
		if s <= 0 {
			continue
		}
		d.Score = s
		scored = append(scored, d)
	}

	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return scored[i].ID < scored[j].ID
	})

	if len(scored) > topK {
		scored = scored[:topK]
	}
	return scored
}
