// Package tiktoken adapts tiktoken-go encodings to the research tokenizer.
package tiktoken

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"

	errs "github.com/sweetpotato0/mapshock/errors"
	"github.com/sweetpotato0/mapshock/research"
)

var _ research.Tokenizer = (*Tokenizer)(nil)

type Tokenizer struct {
	enc *tiktoken.Tiktoken
}

// NewTiktokenTokenizer resolves name as a model first, then as an encoding
// such as "cl100k_base".
func NewTiktokenTokenizer(name string) (*Tokenizer, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: tokenizer model is required", errs.ErrInvalidInput)
	}
	enc, err := tiktoken.EncodingForModel(name)
	if err != nil {
		enc, err = tiktoken.GetEncoding(name)
		if err != nil {
			return nil, fmt.Errorf("unknown tokenizer %q: %w", name, err)
		}
	}
	return &Tokenizer{enc: enc}, nil
}

func (t *Tokenizer) Encode(text string) []int {
	return t.enc.Encode(text, nil, nil)
}

func (t *Tokenizer) CountTokens(text string) int {
	return len(t.Encode(text))
}

func (t *Tokenizer) DecodeIds(ids []int) string {
	return t.enc.Decode(ids)
}
