// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package tokenize bounds prompt size by model tokens. The tokenizer
// vocabularies are embedded, so nothing is fetched at runtime.
package tokenize

import (
	"fmt"
	"sync"

	"github.com/pkoukk/tiktoken-go"
	tiktoken_loader "github.com/pkoukk/tiktoken-go-loader"
)

// DefaultModel is the model whose vocabulary bounds prompts.
const DefaultModel = "gpt-4o"

// fallbackEncoding is used when the model name is unknown to tiktoken.
const fallbackEncoding = "cl100k_base"

// Tokenizer converts between text and model tokens.
type Tokenizer interface {
	Encode(text string) []int
	Decode(tokens []int) string
}

// Truncate returns text cut to at most max tokens. Text already within the
// bound is returned unchanged.
func Truncate(tok Tokenizer, text string, max int) string {
	tokens := tok.Encode(text)
	if len(tokens) <= max {
		return text
	}
	return tok.Decode(tokens[:max])
}

var loaderOnce sync.Once

// Tiktoken wraps a tiktoken encoding.
type Tiktoken struct {
	enc *tiktoken.Tiktoken
}

// NewTiktoken returns the encoding for model, falling back to cl100k_base
// when the model is not recognized.
func NewTiktoken(model string) (*Tiktoken, error) {
	loaderOnce.Do(func() {
		tiktoken.SetBpeLoader(tiktoken_loader.NewOfflineLoader())
	})
	if model == "" {
		model = DefaultModel
	}
	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		enc, err = tiktoken.GetEncoding(fallbackEncoding)
		if err != nil {
			return nil, fmt.Errorf("loading tokenizer for %s: %w", model, err)
		}
	}
	return &Tiktoken{enc: enc}, nil
}

// Encode treats special-token text as ordinary text.
func (t *Tiktoken) Encode(text string) []int {
	return t.enc.Encode(text, nil, nil)
}

func (t *Tiktoken) Decode(tokens []int) string {
	return t.enc.Decode(tokens)
}
