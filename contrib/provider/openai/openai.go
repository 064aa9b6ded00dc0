package openai

import (
	"context"
	"fmt"
	"strings"

	openaisdk "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	errs "github.com/sweetpotato0/mapshock/errors"
	"github.com/sweetpotato0/mapshock/research"
)

var _ research.LanguageModel = (*Provider)(nil)

// Config holds OpenAI provider configuration
type Config struct {
	APIKey      string
	BaseURL     string
	Model       string
	MaxTokens   int64
	Temperature float64
}

// DefaultConfig returns default OpenAI configuration
func DefaultConfig(apiKey string) *Config {
	return &Config{
		APIKey:      apiKey,
		Model:       string(openaisdk.ChatModelGPT4o),
		MaxTokens:   2048,
		Temperature: 0.3,
	}
}

// Provider answers research prompts with the chat completions API.
type Provider struct {
	config *Config
	client openaisdk.Client
}

// New creates a new OpenAI provider using official SDK
func New(config *Config) (*Provider, error) {
	if config == nil || config.APIKey == "" {
		return nil, fmt.Errorf("%w: OpenAI API key is required", errs.ErrInvalidInput)
	}
	if config.Model == "" {
		config.Model = string(openaisdk.ChatModelGPT4o)
	}

	options := []option.RequestOption{option.WithAPIKey(config.APIKey)}
	if config.BaseURL != "" {
		options = append(options, option.WithBaseURL(config.BaseURL))
	}
	return &Provider{
		config: config,
		client: openaisdk.NewClient(options...),
	}, nil
}

// Complete implements research.LanguageModel.
func (p *Provider) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	messages := make([]openaisdk.ChatCompletionMessageParamUnion, 0, 2)
	if systemPrompt != "" {
		messages = append(messages, openaisdk.SystemMessage(systemPrompt))
	}
	messages = append(messages, openaisdk.UserMessage(userPrompt))

	params := openaisdk.ChatCompletionNewParams{
		Messages: messages,
		Model:    openaisdk.ChatModel(p.config.Model),
	}
	if p.config.Temperature > 0 {
		params.Temperature = openaisdk.Float(p.config.Temperature)
	}
	if p.config.MaxTokens > 0 {
		params.MaxCompletionTokens = openaisdk.Int(p.config.MaxTokens)
	}

	completion, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("OpenAI API error: %w", err)
	}
	if len(completion.Choices) == 0 {
		return "", fmt.Errorf("%w: OpenAI returned no choices", errs.ErrUnavailable)
	}
	return strings.TrimSpace(completion.Choices[0].Message.Content), nil
}
