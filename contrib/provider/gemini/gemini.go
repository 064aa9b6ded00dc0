package gemini

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	errs "github.com/sweetpotato0/mapshock/errors"
	"github.com/sweetpotato0/mapshock/research"
)

const defaultModel = "gemini-1.5-pro"

var _ research.LanguageModel = (*Provider)(nil)

// Config holds Gemini provider configuration
type Config struct {
	APIKey      string
	Model       string
	MaxTokens   int32
	Temperature float32
}

// DefaultConfig returns default Gemini configuration
func DefaultConfig(apiKey string) *Config {
	return &Config{
		APIKey:      apiKey,
		Model:       defaultModel,
		MaxTokens:   2048,
		Temperature: 0.3,
	}
}

// Provider answers research prompts with the Gemini API. The underlying
// client is created lazily on first use and released by Close.
type Provider struct {
	config *Config

	mu     sync.Mutex
	client *genai.Client
}

// New creates a new Gemini provider
func New(config *Config) (*Provider, error) {
	if config == nil || config.APIKey == "" {
		return nil, fmt.Errorf("%w: Gemini API key is required", errs.ErrInvalidInput)
	}
	if config.Model == "" {
		config.Model = defaultModel
	}
	return &Provider{config: config}, nil
}

func (p *Provider) genaiClient(ctx context.Context) (*genai.Client, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.client != nil {
		return p.client, nil
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(p.config.APIKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	p.client = client
	return client, nil
}

// Complete implements research.LanguageModel.
func (p *Provider) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	client, err := p.genaiClient(ctx)
	if err != nil {
		return "", err
	}

	model := client.GenerativeModel(p.config.Model)
	if systemPrompt != "" {
		model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(systemPrompt)}}
	}
	if p.config.Temperature > 0 {
		model.SetTemperature(p.config.Temperature)
	}
	if p.config.MaxTokens > 0 {
		model.SetMaxOutputTokens(p.config.MaxTokens)
	}

	resp, err := model.GenerateContent(ctx, genai.Text(userPrompt))
	if err != nil {
		return "", fmt.Errorf("Gemini API error: %w", err)
	}
	return responseText(resp)
}

// Close releases the underlying client.
func (p *Provider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.client == nil {
		return nil
	}
	err := p.client.Close()
	p.client = nil
	return err
}

func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("%w: Gemini returned no candidates", errs.ErrUnavailable)
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			b.WriteString(string(text))
		}
	}
	return strings.TrimSpace(b.String()), nil
}
