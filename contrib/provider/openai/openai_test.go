package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	errs "github.com/sweetpotato0/mapshock/errors"
)

func TestNewRequiresAPIKey(t *testing.T) {
	if _, err := New(DefaultConfig("")); !errors.Is(err, errs.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestComplete(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"c1","object":"chat.completion","created":1,"model":"gpt-4o",
			"choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":"  {\"ok\":true}  "}}]}`))
	}))
	defer srv.Close()

	cfg := DefaultConfig("sk-test")
	cfg.BaseURL = srv.URL + "/"
	p, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	text, err := p.Complete(context.Background(), "system prompt", "user prompt")
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if text != `{"ok":true}` {
		t.Errorf("unexpected completion %q", text)
	}
	messages, _ := got["messages"].([]any)
	if len(messages) != 2 {
		t.Fatalf("expected system and user messages, got %v", got["messages"])
	}
	if got["model"] != "gpt-4o" {
		t.Errorf("unexpected model %v", got["model"])
	}
}

func TestCompleteAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"message":"bad request","type":"invalid_request_error"}}`))
	}))
	defer srv.Close()

	cfg := DefaultConfig("sk-test")
	cfg.BaseURL = srv.URL + "/"
	p, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := p.Complete(context.Background(), "", "hello"); err == nil {
		t.Fatal("expected an API error")
	}
}
