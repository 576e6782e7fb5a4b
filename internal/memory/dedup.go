package memory

import "strings"

// tokenOverlapRatio is spec §4.2's fuzzy duplicate-task signal: the
// fraction of the smaller token set shared between two descriptions.
func tokenOverlapRatio(a, b string) float64 {
	tokensA := tokenSet(a)
	tokensB := tokenSet(b)
	if len(tokensA) == 0 || len(tokensB) == 0 {
		return 0
	}

	smaller, larger := tokensA, tokensB
	if len(larger) < len(smaller) {
		smaller, larger = larger, smaller
	}

	shared := 0
	for token := range smaller {
		if larger[token] {
			shared++
		}
	}

	return float64(shared) / float64(len(smaller))
}

func tokenSet(s string) map[string]bool {
	tokens := make(map[string]bool)
	for _, word := range strings.Fields(strings.ToLower(s)) {
		word = strings.Trim(word, ".,!?;:\"'()")
		if word != "" {
			tokens[word] = true
		}
	}
	return tokens
}
