// Package config loads the service configuration from defaults, an optional
// YAML file and the environment, in that order.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	errs "github.com/sweetpotato0/mapshock/errors"
	"gopkg.in/yaml.v3"
)

// LLM providers.
const (
	ProviderNone   = ""
	ProviderOpenAI = "openai"
	ProviderClaude = "claude"
	ProviderGemini = "gemini"
)

// Report store backends.
const (
	StoreNone     = "none"
	StoreMemory   = "memory"
	StoreRedis    = "redis"
	StorePostgres = "postgres"
	StoreMongo    = "mongo"
)

// Config is the full service configuration.
type Config struct {
	Search    SearchConfig    `yaml:"search"`
	LLM       LLMConfig       `yaml:"llm"`
	Research  ResearchConfig  `yaml:"research"`
	Store     StoreConfig     `yaml:"store"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

// SearchConfig configures the web search provider. APIKey has no default.
type SearchConfig struct {
	APIKey         string        `yaml:"api_key"`
	Endpoint       string        `yaml:"endpoint"`
	Depth          string        `yaml:"depth"`
	MaxResults     int           `yaml:"max_results"`
	MaxConcurrency int           `yaml:"max_concurrency"`
	Timeout        time.Duration `yaml:"timeout"`
	RateLimit      float64       `yaml:"rate_limit"` // Provider calls per second, 0 disables pacing
	RateBurst      int           `yaml:"rate_burst"`
}

// LLMConfig selects and configures the language model. An empty provider
// leaves the research stage unavailable.
type LLMConfig struct {
	Provider    string  `yaml:"provider"`
	APIKey      string  `yaml:"api_key"`
	Model       string  `yaml:"model"`
	BaseURL     string  `yaml:"base_url"`
	Temperature float64 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
}

type ResearchConfig struct {
	MaxConcurrency int           `yaml:"max_concurrency"`
	Timeout        time.Duration `yaml:"timeout"`
	TokenizerModel string        `yaml:"tokenizer_model"` // Empty disables prompt truncation
	MaxQueryTokens int           `yaml:"max_query_tokens"`
}

// StoreConfig picks the report store. Connection details come from the
// backend's own environment variables.
type StoreConfig struct {
	Backend string `yaml:"backend"`
}

type TelemetryConfig struct {
	Disable     bool   `yaml:"disable"`
	Endpoint    string `yaml:"endpoint"`
	Environment string `yaml:"environment"`
}

type MetricsConfig struct {
	Addr string `yaml:"addr"` // Empty disables the /metrics listener
}

// Default returns the configuration used before any file or environment is applied.
func Default() *Config {
	return &Config{
		Search: SearchConfig{
			Depth:          "advanced",
			MaxResults:     3,
			MaxConcurrency: 15,
			Timeout:        30 * time.Second,
		},
		LLM: LLMConfig{
			Temperature: 0.3,
			MaxTokens:   2048,
		},
		Research: ResearchConfig{
			MaxConcurrency: 4,
			Timeout:        60 * time.Second,
			MaxQueryTokens: 512,
		},
		Store: StoreConfig{Backend: StoreMemory},
	}
}

// Load builds the configuration. path may be empty.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("%w: parse config %s: %v", errs.ErrInvalidInput, path, err)
		}
	}
	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	setString(&c.Search.APIKey, "TAVILY_API_KEY")
	setString(&c.Search.Depth, "MAPSHOCK_SEARCH_DEPTH")
	setInt(&c.Search.MaxResults, "MAPSHOCK_SEARCH_MAX_RESULTS")
	if v, err := strconv.ParseFloat(os.Getenv("MAPSHOCK_SEARCH_RATE_LIMIT"), 64); err == nil {
		c.Search.RateLimit = v
	}

	setString(&c.LLM.Provider, "MAPSHOCK_LLM_PROVIDER")
	setString(&c.LLM.Model, "MAPSHOCK_LLM_MODEL")
	setString(&c.LLM.BaseURL, "MAPSHOCK_LLM_BASE_URL")
	if c.LLM.APIKey == "" {
		if key := providerKeyEnv[c.LLM.Provider]; key != "" {
			setString(&c.LLM.APIKey, key)
		}
	}
	setString(&c.LLM.APIKey, "MAPSHOCK_LLM_API_KEY")
	if c.LLM.Model == "" {
		c.LLM.Model = defaultModels[c.LLM.Provider]
	}

	setString(&c.Research.TokenizerModel, "MAPSHOCK_TOKENIZER_MODEL")
	setString(&c.Store.Backend, "MAPSHOCK_STORE")
	setString(&c.Telemetry.Endpoint, "OTEL_EXPORTER_OTLP_ENDPOINT")
	setString(&c.Telemetry.Environment, "MAPSHOCK_ENV")
	if v, err := strconv.ParseBool(os.Getenv("MAPSHOCK_TELEMETRY_DISABLE")); err == nil {
		c.Telemetry.Disable = v
	}
	setString(&c.Metrics.Addr, "MAPSHOCK_METRICS_ADDR")
}

var providerKeyEnv = map[string]string{
	ProviderOpenAI: "OPENAI_API_KEY",
	ProviderClaude: "ANTHROPIC_API_KEY",
	ProviderGemini: "GEMINI_API_KEY",
}

var defaultModels = map[string]string{
	ProviderOpenAI: "gpt-4o",
	ProviderClaude: "claude-sonnet-4-5",
	ProviderGemini: "gemini-1.5-pro",
}

// Validate reports every invalid field at once.
func (c *Config) Validate() error {
	v := NewValidator().
		RequireNonEmpty("search.api_key", c.Search.APIKey).
		ValidateOneOf("search.depth", c.Search.Depth, "basic", "advanced").
		ValidateRange("search.max_results", c.Search.MaxResults, 1, 20).
		RequirePositive("search.max_concurrency", c.Search.MaxConcurrency).
		RequirePositiveDuration("search.timeout", c.Search.Timeout).
		ValidateFloatRange("search.rate_limit", c.Search.RateLimit, 0, 1000).
		ValidateOneOf("llm.provider", c.LLM.Provider, ProviderNone, ProviderOpenAI, ProviderClaude, ProviderGemini).
		RequirePositive("research.max_concurrency", c.Research.MaxConcurrency).
		RequirePositiveDuration("research.timeout", c.Research.Timeout).
		ValidateOneOf("store.backend", c.Store.Backend, StoreNone, StoreMemory, StoreRedis, StorePostgres, StoreMongo)

	if c.LLM.Provider != ProviderNone {
		v.RequireNonEmpty("llm.api_key", c.LLM.APIKey).
			RequireNonEmpty("llm.model", c.LLM.Model).
			ValidateFloatRange("llm.temperature", c.LLM.Temperature, 0, 2).
			RequirePositive("llm.max_tokens", c.LLM.MaxTokens)
	}
	if err := v.Error(); err != nil {
		return fmt.Errorf("%w: %v", errs.ErrInvalidInput, err)
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}
