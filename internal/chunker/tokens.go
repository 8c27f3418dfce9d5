package chunker

// EstimateTokens approximates a token count as ceil(len/4). It is a sizing
// heuristic, not a tokenizer.
func EstimateTokens(s string) int {
	return (len(s) + 3) / 4
}

func tokensToChars(tokens int) int {
	return tokens * 4
}
