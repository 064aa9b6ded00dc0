package gemini

import (
	"errors"
	"testing"

	"github.com/google/generative-ai-go/genai"

	errs "github.com/sweetpotato0/mapshock/errors"
)

func TestNewRequiresAPIKey(t *testing.T) {
	if _, err := New(&Config{}); !errors.Is(err, errs.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestNewDefaultsModel(t *testing.T) {
	p, err := New(&Config{APIKey: "key"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if p.config.Model != defaultModel {
		t.Errorf("expected %s, got %s", defaultModel, p.config.Model)
	}
	if err := p.Close(); err != nil {
		t.Errorf("Close on an unused provider: %v", err)
	}
}

func TestResponseText(t *testing.T) {
	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []genai.Part{genai.Text("{\"ok\":"), genai.Text("true} ")}},
		}},
	}
	text, err := responseText(resp)
	if err != nil {
		t.Fatalf("responseText: %v", err)
	}
	if text != `{"ok":true}` {
		t.Errorf("unexpected text %q", text)
	}
}

func TestResponseTextEmpty(t *testing.T) {
	if _, err := responseText(&genai.GenerateContentResponse{}); !errors.Is(err, errs.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
	if _, err := responseText(nil); err == nil {
		t.Fatal("expected an error for a nil response")
	}
}
