package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	errs "github.com/sweetpotato0/mapshock/errors"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"TAVILY_API_KEY", "MAPSHOCK_SEARCH_DEPTH", "MAPSHOCK_SEARCH_MAX_RESULTS", "MAPSHOCK_SEARCH_RATE_LIMIT",
		"MAPSHOCK_LLM_PROVIDER", "MAPSHOCK_LLM_MODEL", "MAPSHOCK_LLM_BASE_URL", "MAPSHOCK_LLM_API_KEY",
		"OPENAI_API_KEY", "ANTHROPIC_API_KEY", "GEMINI_API_KEY",
		"MAPSHOCK_TOKENIZER_MODEL", "MAPSHOCK_STORE", "OTEL_EXPORTER_OTLP_ENDPOINT",
		"MAPSHOCK_ENV", "MAPSHOCK_TELEMETRY_DISABLE", "MAPSHOCK_METRICS_ADDR",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaultsRequireSearchKey(t *testing.T) {
	clearEnv(t)
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Search.APIKey != "" {
		t.Fatalf("search key must not have a default")
	}
	err = cfg.Validate()
	if !errors.Is(err, errs.ErrInvalidInput) || !strings.Contains(err.Error(), "search.api_key") {
		t.Fatalf("expected missing search key error, got %v", err)
	}
}

func TestLoadFromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("TAVILY_API_KEY", "tvly-test")
	t.Setenv("MAPSHOCK_LLM_PROVIDER", "claude")
	t.Setenv("ANTHROPIC_API_KEY", "sk-ant-test")
	t.Setenv("MAPSHOCK_STORE", "redis")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if cfg.LLM.APIKey != "sk-ant-test" || cfg.LLM.Model != defaultModels[ProviderClaude] {
		t.Errorf("provider key or default model not applied: %+v", cfg.LLM)
	}
	if cfg.Store.Backend != StoreRedis {
		t.Errorf("expected redis backend, got %q", cfg.Store.Backend)
	}
}

func TestLoadYAMLThenEnv(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "mapshock.yaml")
	content := `
search:
  api_key: from-file
  depth: basic
  timeout: 10s
llm:
  provider: openai
  api_key: sk-file
  model: gpt-4
research:
  max_concurrency: 2
metrics:
  addr: ":9090"
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("TAVILY_API_KEY", "from-env")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Search.APIKey != "from-env" {
		t.Errorf("environment should override the file, got %q", cfg.Search.APIKey)
	}
	if cfg.Search.Depth != "basic" || cfg.Search.Timeout != 10*time.Second {
		t.Errorf("file values not applied: %+v", cfg.Search)
	}
	if cfg.Search.MaxConcurrency != 15 {
		t.Errorf("defaults should survive partial files, got %d", cfg.Search.MaxConcurrency)
	}
	if cfg.LLM.Model != "gpt-4" || cfg.Research.MaxConcurrency != 2 || cfg.Metrics.Addr != ":9090" {
		t.Errorf("unexpected config %+v", cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("search: [unterminated"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := Load(path); !errors.Is(err, errs.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestValidateProviderNeedsKey(t *testing.T) {
	cfg := Default()
	cfg.Search.APIKey = "k"
	cfg.LLM.Provider = ProviderGemini
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "llm.api_key") {
		t.Fatalf("expected llm.api_key error, got %v", err)
	}
}

func TestValidateRejectsUnknownValues(t *testing.T) {
	cfg := Default()
	cfg.Search.APIKey = "k"
	cfg.Search.Depth = "deep"
	cfg.Store.Backend = "sqlite"
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "search.depth") || !strings.Contains(err.Error(), "store.backend") {
		t.Fatalf("expected depth and backend errors, got %v", err)
	}
}
