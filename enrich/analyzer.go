package enrich

import (
	"context"
	"fmt"
	"log/slog"

	errs "github.com/sweetpotato0/mapshock/errors"
	"github.com/sweetpotato0/mapshock/entity"
	"github.com/sweetpotato0/mapshock/pkg/logging"
	"github.com/sweetpotato0/mapshock/query"
	"github.com/sweetpotato0/mapshock/search"
)

// Toolkit is the set of capabilities the context stage relies on.
type Toolkit interface {
	ExtractEntities(text string) entity.Set
	GenerateQueries(text string, entities entity.Set) query.Plan
	// AnalyzeResults executes the plan and analyzes what comes back.
	AnalyzeResults(ctx context.Context, plan query.Plan) (*search.Outcome, error)
}

// Searcher executes a query plan.
type Searcher interface {
	Execute(ctx context.Context, plan query.Plan) (*search.Outcome, error)
}

// DefaultToolkit uses the package extractors and a Searcher.
type DefaultToolkit struct {
	searcher Searcher
}

// NewToolkit returns a toolkit backed by searcher.
func NewToolkit(searcher Searcher) *DefaultToolkit {
	return &DefaultToolkit{searcher: searcher}
}

// ExtractEntities implements Toolkit.
func (t *DefaultToolkit) ExtractEntities(text string) entity.Set { return entity.Extract(text) }

// GenerateQueries implements Toolkit.
func (t *DefaultToolkit) GenerateQueries(text string, entities entity.Set) query.Plan {
	return query.Generate(text, entities)
}

// AnalyzeResults implements Toolkit.
func (t *DefaultToolkit) AnalyzeResults(ctx context.Context, plan query.Plan) (*search.Outcome, error) {
	if t.searcher == nil {
		return nil, fmt.Errorf("searcher: %w", errs.ErrUnavailable)
	}
	return t.searcher.Execute(ctx, plan)
}

// Analyzer drives the context analysis stage.
type Analyzer struct {
	toolkit Toolkit
	logger  *slog.Logger
}

// NewAnalyzer creates an analyzer. A nil logger uses the shared component logger.
func NewAnalyzer(toolkit Toolkit, logger *slog.Logger) *Analyzer {
	if logger == nil {
		logger = logging.WithComponent("enrich")
	}
	return &Analyzer{toolkit: toolkit, logger: logger}
}

// Analyze extracts entities, plans and runs the searches and folds everything
// into a Context. An error means the stage could not produce real output; the
// caller substitutes Fallback.
func (a *Analyzer) Analyze(ctx context.Context, sessionID, text string) (*Context, error) {
	if a == nil || a.toolkit == nil {
		return nil, fmt.Errorf("context toolkit: %w", errs.ErrUnavailable)
	}
	logger := a.logger.With("session_id", sessionID)

	var (
		entities entity.Set
		plan     query.Plan
		failures []string
	)
	if err := recoverStep(func() { entities = a.toolkit.ExtractEntities(text) }); err != nil {
		failures = append(failures, err.Error())
		entities = entity.NewSet()
	}
	if err := recoverStep(func() { plan = a.toolkit.GenerateQueries(text, entities) }); err != nil {
		return nil, fmt.Errorf("generate queries: %w", err)
	}
	logger.Info("search plan ready", "entities", entities.Total(), "queries", plan.Total())

	outcome, err := a.toolkit.AnalyzeResults(ctx, plan)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}

	enriched := Enrich(sessionID, text, entities, plan, outcome)
	enriched.ErrorCount += len(failures)
	enriched.Issues = append(failures, enriched.Issues...)
	if enriched.ErrorCount > 0 {
		logger.Warn("context enrichment had errors", "errors", enriched.ErrorCount, "issues", enriched.Issues)
	}
	logger.Info("context enriched",
		"analysis_type", enriched.Suggestions.AnalysisType,
		"threat_tier", enriched.Suggestions.ThreatTier,
		"overall_confidence", enriched.Confidence.OverallConfidence,
	)
	return enriched, nil
}

func recoverStep(fn func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", errs.ErrInternal, r)
		}
	}()
	fn()
	return nil
}
