// Package tokenizer measures text length in LLM tokens.
package tokenizer

import (
	"fmt"
	"unicode/utf8"

	tiktoken "github.com/pkoukk/tiktoken-go"
)

// DefaultEncoding is the BPE encoding used by gpt-3.5-turbo and gpt-4.
const DefaultEncoding = "cl100k_base"

// Counter returns the token length of a string. Implementations must be deterministic.
type Counter interface {
	Count(text string) int
}

// Tiktoken counts tokens with a tiktoken BPE encoding.
type Tiktoken struct {
	enc *tiktoken.Tiktoken
}

// New loads the named encoding. An empty name selects DefaultEncoding.
func New(encoding string) (*Tiktoken, error) {
	if encoding == "" {
		encoding = DefaultEncoding
	}
	enc, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return nil, fmt.Errorf("tokenizer: get encoding %s: %w", encoding, err)
	}
	return &Tiktoken{enc: enc}, nil
}

// ForModel loads the encoding registered for an OpenAI model name.
func ForModel(model string) (*Tiktoken, error) {
	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		return nil, fmt.Errorf("tokenizer: encoding for model %s: %w", model, err)
	}
	return &Tiktoken{enc: enc}, nil
}

// Count returns the number of tokens in text.
func (t *Tiktoken) Count(text string) int {
	if text == "" {
		return 0
	}
	return len(t.enc.Encode(text, nil, nil))
}

// Estimator approximates tokens as one per four characters, rounded up.
// It needs no BPE ranks, which makes it the counter of choice for offline tests.
type Estimator struct{}

// NewEstimator returns the character heuristic counter.
func NewEstimator() Estimator { return Estimator{} }

// Count returns ceil(runes/4).
func (Estimator) Count(text string) int {
	return (utf8.RuneCountInString(text) + 3) / 4
}
