package metrics

import (
	"fmt"
	"sync"

	"github.com/tiktoken-go/tokenizer"
)

// TokenCounter provides token estimates. Every provider is approximated with the
// GPT-4 encoding; counts are for trend lines, not billing.
type TokenCounter struct {
	codec tokenizer.Codec
}

// NewTokenCounter creates a token counter using the GPT-4 encoding.
func NewTokenCounter() (*TokenCounter, error) {
	codec, err := tokenizer.ForModel(tokenizer.GPT4)
	if err != nil {
		return nil, fmt.Errorf("failed to create tokenizer codec: %w", err)
	}
	return &TokenCounter{codec: codec}, nil
}

// CountTokens returns the number of tokens in the given text.
func (tc *TokenCounter) CountTokens(text string) int {
	if tc == nil || tc.codec == nil {
		// Fallback to character-based estimation (4 chars ≈ 1 token)
		return len(text) / 4
	}

	count, err := tc.codec.Count(text)
	if err != nil {
		return len(text) / 4
	}
	return count
}

var (
	sharedCounter     *TokenCounter //nolint:gochecknoglobals // codec tables are expensive to build
	sharedCounterOnce sync.Once     //nolint:gochecknoglobals
)

// CountTokensSimple counts tokens with a lazily built shared counter.
func CountTokensSimple(text string) int {
	sharedCounterOnce.Do(func() {
		sharedCounter, _ = NewTokenCounter()
	})
	return sharedCounter.CountTokens(text)
}
