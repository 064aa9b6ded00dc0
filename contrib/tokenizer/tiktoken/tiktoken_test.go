package tiktoken

import (
	"errors"
	"testing"

	errs "github.com/sweetpotato0/mapshock/errors"
)

func TestNewRequiresName(t *testing.T) {
	if _, err := NewTiktokenTokenizer(""); !errors.Is(err, errs.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestRoundTrip(t *testing.T) {
	tok, err := NewTiktokenTokenizer("cl100k_base")
	if err != nil {
		// encodings are fetched on first use
		t.Skipf("encoding unavailable: %v", err)
	}
	text := "Analyze Acme Corp market position"
	ids := tok.Encode(text)
	if len(ids) == 0 {
		t.Fatal("expected tokens")
	}
	if tok.CountTokens(text) != len(ids) {
		t.Errorf("CountTokens = %d, want %d", tok.CountTokens(text), len(ids))
	}
	if got := tok.DecodeIds(ids); got != text {
		t.Errorf("round trip = %q", got)
	}
}
