package reranker

import "strings"

// tokenize converts text into a set of lowercase words for overlap
// comparison.
func tokenize(text string) map[string]struct{} {
	words := strings.Fields(strings.ToLower(text))
	wordSet := make(map[string]struct{}, len(words))
	for _, word := range words {
		// Remove common punctuation
		word = strings.Trim(word, ".,!?;:\"'()[]{}=<>")
		if len(word) > 2 { // Skip very short tokens
			wordSet[word] = struct{}{}
		}
	}
	return wordSet
}

// jaccardSimilarity computes the Jaccard similarity between two word
// sets. Returns a value between 0 (no overlap) and 1 (identical).
func jaccardSimilarity(set1, set2 map[string]struct{}) float64 {
	if len(set1) == 0 && len(set2) == 0 {
		return 1.0
	}
	if len(set1) == 0 || len(set2) == 0 {
		return 0.0
	}

	intersection := 0
	for word := range set1 {
		if _, exists := set2[word]; exists {
			intersection++
		}
	}

	union := len(set1) + len(set2) - intersection

	return float64(intersection) / float64(union)
}
