package contextengine

import "unicode/utf8"

// DefaultCharsPerToken is tuned for mixed Portuguese and English text.
const DefaultCharsPerToken = 3.5

// TokenCounter estimates token counts from text length.
type TokenCounter struct {
	charsPerToken float64
}

// NewTokenCounter creates a counter with the default calibration.
func NewTokenCounter() *TokenCounter {
	return &TokenCounter{charsPerToken: DefaultCharsPerToken}
}

// CountString estimates the tokens in s.
func (tc *TokenCounter) CountString(s string) int {
	if s == "" {
		return 0
	}
	return int(float64(utf8.RuneCountInString(s)) / tc.charsPerToken)
}
