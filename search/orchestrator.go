package search

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	errs "github.com/sweetpotato0/mapshock/errors"
	"github.com/sweetpotato0/mapshock/pkg/logging"
	"github.com/sweetpotato0/mapshock/pkg/telemetry"
	"github.com/sweetpotato0/mapshock/query"
	"github.com/sweetpotato0/mapshock/runner"
	"go.opentelemetry.io/otel/attribute"
)

// Outcome is everything a search run produced.
type Outcome struct {
	Results       map[query.Bucket][]Result      `json:"search_results"`
	FailedQueries []string                       `json:"failed_searches"`
	Intelligence  Intelligence                   `json:"web_intelligence"`
	Confidence    ConfidenceMetrics              `json:"confidence_metrics"`
	Summaries     map[query.Bucket]BucketSummary `json:"search_summaries"`
	Planned       int                            `json:"total_searches"`
	Successful    int                            `json:"successful_searches"`
}

// Config controls an Orchestrator.
type Config struct {
	Depth          Depth
	MaxConcurrency int
	Timeout        time.Duration
	Logger         *slog.Logger
}

// Option customises the orchestrator.
type Option func(*Config)

// WithDepth sets the search depth passed to the provider.
func WithDepth(d Depth) Option {
	return func(cfg *Config) {
		if d != "" {
			cfg.Depth = d
		}
	}
}

// WithMaxConcurrency bounds concurrent provider calls.
func WithMaxConcurrency(n int) Option {
	return func(cfg *Config) {
		if n > 0 {
			cfg.MaxConcurrency = n
		}
	}
}

// WithTimeout bounds a single provider call.
func WithTimeout(d time.Duration) Option {
	return func(cfg *Config) {
		if d > 0 {
			cfg.Timeout = d
		}
	}
}

// WithLogger overrides the component logger.
func WithLogger(l *slog.Logger) Option {
	return func(cfg *Config) {
		if l != nil {
			cfg.Logger = l
		}
	}
}

func defaultConfig() *Config {
	return &Config{
		Depth:          DepthAdvanced,
		MaxConcurrency: runner.DefaultMaxConcurrency,
		Timeout:        runner.DefaultTimeout,
	}
}

// Orchestrator runs a query plan against a Provider.
type Orchestrator struct {
	provider Provider
	cfg      *Config
	fanout   *runner.Fanout
	logger   *slog.Logger
}

// NewOrchestrator creates an orchestrator. A nil provider is accepted;
// Execute then reports errs.ErrUnavailable.
func NewOrchestrator(provider Provider, opts ...Option) *Orchestrator {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.WithComponent("search")
	}
	return &Orchestrator{
		provider: provider,
		cfg:      cfg,
		logger:   logger,
		fanout: runner.NewFanout(
			runner.WithName("search"),
			runner.WithMaxConcurrency(cfg.MaxConcurrency),
			runner.WithTimeout(cfg.Timeout),
			runner.WithLogger(logger),
		),
	}
}

// Execute issues one provider call per planned query. Failed calls become
// empty failed results so every bucket keeps its planned length.
func (o *Orchestrator) Execute(ctx context.Context, plan query.Plan) (out *Outcome, err error) {
	if o == nil || o.provider == nil {
		return nil, fmt.Errorf("search provider: %w", errs.ErrUnavailable)
	}
	ctx, span := telemetry.Start(ctx, "search.execute", attribute.Int("search.planned", plan.Total()))
	defer func() { telemetry.End(span, err) }()

	items := plan.Flatten()
	results, err := runner.Gather(ctx, o.fanout, items, func(ctx context.Context, item query.Item) (*Result, error) {
		res, err := o.provider.Search(ctx, item.Query, o.cfg.Depth)
		if err != nil {
			return nil, err
		}
		if res == nil {
			return nil, fmt.Errorf("%w: empty response", errs.ErrSearchFailed)
		}
		if res.Failed {
			return nil, fmt.Errorf("%w: %s", errs.ErrSearchFailed, res.Error)
		}
		return res, nil
	})
	if err != nil {
		return nil, err
	}

	out = &Outcome{
		Results:       make(map[query.Bucket][]Result, len(query.Buckets)),
		FailedQueries: []string{},
		Summaries:     make(map[query.Bucket]BucketSummary, len(query.Buckets)),
		Planned:       len(items),
	}
	for _, b := range query.Buckets {
		out.Results[b] = make([]Result, 0, len(plan[b]))
	}
	for _, r := range results {
		item := r.Input
		if !r.OK() {
			out.FailedQueries = append(out.FailedQueries, item.Query)
			out.Results[item.Bucket] = append(out.Results[item.Bucket], FailedResult(item.Query, r.Err, time.Now().UTC()))
			o.logger.Warn("search failed", "bucket", item.Bucket, "query", item.Query, "error", r.Err)
			continue
		}
		res := normalize(*r.Value, item.Query)
		out.Results[item.Bucket] = append(out.Results[item.Bucket], res)
		out.Successful++
	}

	out.Intelligence = Analyze(out.Results)
	out.Confidence = Confidence(out.Intelligence, len(out.FailedQueries), out.Planned)
	for _, b := range query.Buckets {
		out.Summaries[b] = Summarize(out.Results[b])
	}

	span.SetAttributes(
		attribute.Int("search.failed", len(out.FailedQueries)),
		attribute.Int("search.hits", out.Intelligence.TotalHits),
	)
	o.logger.Info("search run complete",
		"planned", out.Planned,
		"successful", out.Successful,
		"failed", len(out.FailedQueries),
		"hits", out.Intelligence.TotalHits,
		"overall_confidence", out.Confidence.OverallConfidence,
	)
	return out, nil
}

func normalize(res Result, query string) Result {
	if res.Query == "" {
		res.Query = query
	}
	if res.Hits == nil {
		res.Hits = []Hit{}
	}
	if res.CapturedAt.IsZero() {
		res.CapturedAt = time.Now().UTC()
	}
	res.HitCount = len(res.Hits)
	return res
}
