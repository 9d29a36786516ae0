package domain

// EstimateTokens estimates the token count for a given text using a Unicode-aware heuristic.
// ASCII characters are weighted at ~4 per token, other runes at ~1 per token.
// The estimate grows monotonically with text size, which is all pruning needs.
func EstimateTokens(text string) int {
	weight := 0
	for _, r := range text {
		switch {
		case r <= 127:
			weight += 1
		default:
			weight += 4
		}
	}
	return (weight + 3) / 4
}
