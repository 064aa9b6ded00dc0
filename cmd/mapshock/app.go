package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/sweetpotato0/mapshock/config"
	"github.com/sweetpotato0/mapshock/contrib/provider/claude"
	"github.com/sweetpotato0/mapshock/contrib/provider/gemini"
	"github.com/sweetpotato0/mapshock/contrib/provider/openai"
	"github.com/sweetpotato0/mapshock/contrib/search/tavily"
	"github.com/sweetpotato0/mapshock/contrib/tokenizer/tiktoken"
	"github.com/sweetpotato0/mapshock/enrich"
	errs "github.com/sweetpotato0/mapshock/errors"
	"github.com/sweetpotato0/mapshock/middleware"
	"github.com/sweetpotato0/mapshock/pkg/logging"
	"github.com/sweetpotato0/mapshock/protocol"
	"github.com/sweetpotato0/mapshock/research"
	"github.com/sweetpotato0/mapshock/search"
	"github.com/sweetpotato0/mapshock/workflow"
	"github.com/sweetpotato0/mapshock/workflow/store"
)

type app struct {
	orchestrator *workflow.Orchestrator
	closers      []func() error
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			logging.WithComponent("main").Warn("close failed", "error", err)
		}
	}
}

func build(ctx context.Context, cfg *config.Config) (*app, error) {
	a := &app{}

	tavilyOpts := []tavily.Option{
		tavily.WithMaxResults(cfg.Search.MaxResults),
		tavily.WithTimeout(cfg.Search.Timeout),
	}
	if cfg.Search.Endpoint != "" {
		tavilyOpts = append(tavilyOpts, tavily.WithEndpoint(cfg.Search.Endpoint))
	}
	searcher, err := tavily.New(cfg.Search.APIKey, tavilyOpts...)
	if err != nil {
		return nil, err
	}
	searchOrch := search.NewOrchestrator(searchProvider(searcher, cfg.Search),
		search.WithDepth(search.Depth(cfg.Search.Depth)),
		search.WithMaxConcurrency(cfg.Search.MaxConcurrency),
		search.WithTimeout(cfg.Search.Timeout),
	)
	analyzer := enrich.NewAnalyzer(enrich.NewToolkit(searchOrch), nil)

	var researcher workflow.Researcher
	model, err := newLanguageModel(cfg.LLM)
	if err != nil {
		return nil, err
	}
	if model != nil {
		if c, ok := model.(io.Closer); ok {
			a.closers = append(a.closers, c.Close)
		}
		opts := []research.Option{
			research.WithMaxConcurrency(cfg.Research.MaxConcurrency),
			research.WithTimeout(cfg.Research.Timeout),
		}
		if cfg.Research.TokenizerModel != "" {
			tok, err := tiktoken.NewTiktokenTokenizer(cfg.Research.TokenizerModel)
			if err != nil {
				return nil, err
			}
			opts = append(opts, research.WithTokenizer(tok, cfg.Research.MaxQueryTokens))
		}
		synth, err := research.NewSynthesizer(model, opts...)
		if err != nil {
			return nil, err
		}
		researcher = synth
	}

	var wfOpts []workflow.Option
	reportStore, closeStore, err := newReportStore(ctx, cfg.Store.Backend)
	if err != nil {
		return nil, err
	}
	if reportStore != nil {
		wfOpts = append(wfOpts, workflow.WithReportStore(reportStore))
	}
	if closeStore != nil {
		a.closers = append(a.closers, closeStore)
	}

	a.orchestrator = workflow.New(analyzer, protocol.NewRuleCatalog(), researcher, wfOpts...)
	return a, nil
}

// Longer queries are rejected before they reach the search API.
const maxQueryLength = 400

func searchProvider(p search.Provider, cfg config.SearchConfig) search.Provider {
	mws := []middleware.Middleware{
		middleware.NewErrorHandler(func(ctx *middleware.Context, err error) error {
			if errors.Is(err, errs.ErrSearchFailed) {
				return err
			}
			return fmt.Errorf("%w: %v", errs.ErrSearchFailed, err)
		}),
		middleware.NewLogger(nil),
		middleware.NewQueryValidator(maxQueryLength),
	}
	if cfg.RateLimit > 0 {
		mws = append(mws, middleware.NewRateLimiter(cfg.RateLimit, cfg.RateBurst))
	}
	return middleware.Wrap(p, mws...)
}

// newLanguageModel returns nil when no provider is configured; the research
// stage then degrades to its fallback report.
func newLanguageModel(cfg config.LLMConfig) (research.LanguageModel, error) {
	switch cfg.Provider {
	case config.ProviderNone:
		return nil, nil
	case config.ProviderOpenAI:
		return openai.New(&openai.Config{
			APIKey:      cfg.APIKey,
			BaseURL:     cfg.BaseURL,
			Model:       cfg.Model,
			MaxTokens:   int64(cfg.MaxTokens),
			Temperature: cfg.Temperature,
		})
	case config.ProviderClaude:
		return claude.New(&claude.Config{
			APIKey:      cfg.APIKey,
			BaseURL:     cfg.BaseURL,
			Model:       cfg.Model,
			MaxTokens:   int64(cfg.MaxTokens),
			Temperature: cfg.Temperature,
		})
	case config.ProviderGemini:
		return gemini.New(&gemini.Config{
			APIKey:      cfg.APIKey,
			Model:       cfg.Model,
			MaxTokens:   int32(cfg.MaxTokens),
			Temperature: float32(cfg.Temperature),
		})
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
}

func newReportStore(ctx context.Context, backend string) (workflow.ReportStore, func() error, error) {
	switch backend {
	case config.StoreNone:
		return nil, nil, nil
	case config.StoreMemory:
		return store.NewInMemoryStore(), nil, nil
	case config.StoreRedis:
		s := store.NewRedisStore(store.RedisConfigFromEnv())
		return s, s.Close, nil
	case config.StorePostgres:
		s, err := store.NewPostgresStore(ctx, store.PostgresConfigFromEnv())
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	case config.StoreMongo:
		s, err := store.NewMongoStore(ctx, store.MongoConfigFromEnv())
		if err != nil {
			return nil, nil, err
		}
		return s, func() error {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return s.Close(ctx)
		}, nil
	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", backend)
	}
}
