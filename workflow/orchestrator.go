// Package workflow drives a run through context analysis, protocol selection,
// research and finalization. A failing stage is replaced by its fallback value
// and the run continues.
package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/sweetpotato0/mapshock/enrich"
	errs "github.com/sweetpotato0/mapshock/errors"
	"github.com/sweetpotato0/mapshock/graph"
	"github.com/sweetpotato0/mapshock/pkg/logging"
	"github.com/sweetpotato0/mapshock/pkg/metrics"
	"github.com/sweetpotato0/mapshock/pkg/telemetry"
	"github.com/sweetpotato0/mapshock/protocol"
	"github.com/sweetpotato0/mapshock/research"
	"github.com/sweetpotato0/mapshock/session"
	"go.opentelemetry.io/otel/attribute"
)

// ContextAnalyzer builds the enriched context for a run.
type ContextAnalyzer interface {
	Analyze(ctx context.Context, sessionID, text string) (*enrich.Context, error)
}

// Researcher runs the research stage.
type Researcher interface {
	Research(ctx context.Context, c *enrich.Context, sel *protocol.Selection) (*research.Outcome, error)
}

// ReportStore persists final reports keyed by session id.
type ReportStore interface {
	Save(ctx context.Context, report *Report) error
	Load(ctx context.Context, sessionID string) (*Report, error)
}

// Config controls an Orchestrator.
type Config struct {
	Store       ReportStore
	SaveTimeout time.Duration
	Logger      *slog.Logger
}

// Option customises the orchestrator.
type Option func(*Config)

// WithReportStore saves every final report to store.
func WithReportStore(store ReportStore) Option {
	return func(cfg *Config) {
		cfg.Store = store
	}
}

// WithSaveTimeout bounds a report save.
func WithSaveTimeout(d time.Duration) Option {
	return func(cfg *Config) {
		if d > 0 {
			cfg.SaveTimeout = d
		}
	}
}

// WithLogger sets the logger used for run and stage events.
func WithLogger(l *slog.Logger) Option {
	return func(cfg *Config) {
		if l != nil {
			cfg.Logger = l
		}
	}
}

func defaultConfig() *Config {
	return &Config{SaveTimeout: 5 * time.Second}
}

// Orchestrator runs workflows. It keeps no per-run state and is safe for
// concurrent use.
type Orchestrator struct {
	analyzer   ContextAnalyzer
	catalog    protocol.Catalog
	researcher Researcher
	cfg        *Config
	logger     *slog.Logger
}

// New creates an orchestrator. Any collaborator may be nil; its stage then
// falls back on every run.
func New(analyzer ContextAnalyzer, catalog protocol.Catalog, researcher Researcher, opts ...Option) *Orchestrator {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.WithComponent("workflow")
	}
	return &Orchestrator{
		analyzer:   analyzer,
		catalog:    catalog,
		researcher: researcher,
		cfg:        cfg,
		logger:     logger,
	}
}

// runState is owned by a single run. Each stage writes only its own fields.
type runState struct {
	session   session.Session
	text      string
	logger    *slog.Logger
	enriched  *enrich.Context
	selection *protocol.Selection
	research  *research.Outcome
	report    *Report
	times     StageTimes
	status    map[Stage]StageStatus
	errors    []string
	path      []Stage
}

func (st *runState) fail(stage Stage, err error) {
	st.status[stage] = StatusFallback
	st.errors = append(st.errors, fmt.Sprintf("%s failed: %v", stage, err))
}

// Run executes one workflow. Stage failures are reported in the returned Report;
// an error is returned only when the run could not execute at all.
func (o *Orchestrator) Run(ctx context.Context, userText string, metadata map[string]any) (report *Report, err error) {
	if o == nil {
		return nil, fmt.Errorf("%w: nil orchestrator", errs.ErrInvalidInput)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	st := &runState{
		session: session.New(metadata),
		text:    userText,
		times:   make(StageTimes, len(Stages)),
		status:  make(map[Stage]StageStatus, len(Stages)),
	}
	st.logger = o.logger.With("session_id", st.session.ID)

	ctx, span := telemetry.Start(ctx, "workflow.Run", attribute.String("session_id", st.session.ID))
	defer func() { telemetry.End(span, err) }()

	g := o.build()
	g.OnEnter(func(ctx context.Context, name string) {
		st.path = append(st.path, Stage(name))
	})
	st.logger.Info("workflow started")
	if _, err = g.Execute(ctx, st); err != nil {
		return nil, fmt.Errorf("%w: stage machine: %v", errs.ErrInternal, err)
	}
	if st.report == nil {
		return nil, fmt.Errorf("%w: run finished without a report", errs.ErrInternal)
	}
	report = st.report

	metrics.RecordWorkflow(report.Success, st.session.Elapsed())
	o.save(ctx, st.logger, report)
	st.logger.Info("workflow finished",
		"success", report.Success,
		"total_seconds", report.TotalSeconds,
		"errors", len(st.errors),
	)
	return report, nil
}

// Lookup loads a saved report.
func (o *Orchestrator) Lookup(ctx context.Context, sessionID string) (*Report, error) {
	if o == nil || o.cfg.Store == nil {
		return nil, fmt.Errorf("%w: no report store configured", errs.ErrUnavailable)
	}
	return o.cfg.Store.Load(ctx, sessionID)
}

func (o *Orchestrator) save(ctx context.Context, logger *slog.Logger, report *Report) {
	if o.cfg.Store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), o.cfg.SaveTimeout)
	defer cancel()
	if err := o.cfg.Store.Save(ctx, report); err != nil {
		logger.Warn("failed to save report", "error", err)
	}
}

func (o *Orchestrator) build() *graph.Graph[*runState] {
	return graph.NewBuilder[*runState]().
		Then(string(StageInit), o.initialize).
		Then(string(StageContextAnalysis), o.stage(StageContextAnalysis, o.analyzeContext, fallbackContext)).
		Then(string(StageProtocolSelection), o.stage(StageProtocolSelection, o.selectProtocols, fallbackProtocols)).
		Then(string(StageResearchExecution), o.stage(StageResearchExecution, o.executeResearch, fallbackResearch)).
		Then(string(StageFinalizeOutput), o.finalize).
		End(string(StageDone), nil)
}

func (o *Orchestrator) initialize(ctx context.Context, st *runState) (*runState, error) {
	st.logger.Debug("workflow initialized", "text_length", len(st.text))
	return st, nil
}

// stage wraps a working stage: it times the stage, converts errors and panics
// into a fallback value plus an error message, and never fails the graph.
func (o *Orchestrator) stage(name Stage, run func(context.Context, *runState) error, fallback func(*runState)) graph.NodeFunc[*runState] {
	return func(ctx context.Context, st *runState) (*runState, error) {
		start := time.Now()
		ctx, span := telemetry.Start(ctx, "workflow."+string(name), attribute.String("session_id", st.session.ID))

		err := guard(ctx, st, run)
		if err != nil {
			fallback(st)
			st.fail(name, err)
			st.logger.Warn("stage failed, using fallback", "stage", name, "error", err)
		} else {
			st.status[name] = StatusCompleted
		}

		elapsed := time.Since(start)
		st.times[name] = elapsed.Seconds()
		metrics.RecordStage(string(name), err != nil, elapsed)
		telemetry.End(span, err)
		return st, nil
	}
}

func guard(ctx context.Context, st *runState, run func(context.Context, *runState) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: panic: %v", errs.ErrInternal, r)
		}
	}()
	return run(ctx, st)
}

func (o *Orchestrator) analyzeContext(ctx context.Context, st *runState) error {
	if o.analyzer == nil {
		return fmt.Errorf("%w: context analyzer not configured", errs.ErrUnavailable)
	}
	c, err := o.analyzer.Analyze(ctx, st.session.ID, st.text)
	if err != nil {
		return err
	}
	if c == nil {
		return fmt.Errorf("%w: context analyzer returned no context", errs.ErrInternal)
	}
	st.enriched = c
	return nil
}

func fallbackContext(st *runState) {
	st.enriched = enrich.Fallback(st.session.ID, st.text)
}

func (o *Orchestrator) selectProtocols(ctx context.Context, st *runState) error {
	if o.catalog == nil {
		return fmt.Errorf("%w: protocol catalog not configured", errs.ErrUnavailable)
	}
	sel, err := o.catalog.Select(ctx, st.enriched)
	if err != nil {
		return err
	}
	if err := protocol.Validate(sel); err != nil {
		return err
	}
	st.selection = sel
	return nil
}

func fallbackProtocols(st *runState) {
	st.selection = protocol.Fallback()
}

func (o *Orchestrator) executeResearch(ctx context.Context, st *runState) error {
	if o.researcher == nil {
		return fmt.Errorf("%w: researcher not configured", errs.ErrUnavailable)
	}
	out, err := o.researcher.Research(ctx, st.enriched, st.selection)
	if out != nil {
		st.research = out
	}
	if err != nil {
		return err
	}
	if out == nil {
		return fmt.Errorf("%w: researcher returned no outcome", errs.ErrInternal)
	}
	return nil
}

// fallbackResearch keeps any partial responses and replaces the report.
func fallbackResearch(st *runState) {
	out := st.research
	if out == nil {
		out = &research.Outcome{
			Brief:     research.BuildBrief(st.enriched, st.selection),
			Queries:   []research.Query{},
			Responses: []research.Response{},
		}
	}
	out.Report = research.FallbackReport(st.selection.Names(), time.Now().UTC())
	out.Fallback = true
	st.research = out
}

// finalize assembles the report. It records its own timing before the stage
// map is copied into the report.
func (o *Orchestrator) finalize(ctx context.Context, st *runState) (*runState, error) {
	start := time.Now()
	ctx, span := telemetry.Start(ctx, "workflow."+string(StageFinalizeOutput), attribute.String("session_id", st.session.ID))

	err := guard(ctx, st, func(ctx context.Context, st *runState) error {
		st.report = assemble(st)
		return nil
	})
	if err != nil {
		st.errors = append(st.errors, fmt.Sprintf("%s failed: %v", StageFinalizeOutput, err))
		st.report = ErrorReport(st.session.ID, err)
	}

	elapsed := time.Since(start)
	st.times[StageFinalizeOutput] = elapsed.Seconds()
	metrics.RecordStage(string(StageFinalizeOutput), err != nil, elapsed)
	telemetry.End(span, err)

	times := make(StageTimes, len(st.times))
	for k, v := range st.times {
		times[k] = v
	}
	st.report.Processing.StageTimes = times
	st.report.Processing.TotalSeconds = times.Total()
	st.report.TotalSeconds = times.Total()
	st.report.Path = append([]Stage(nil), st.path...)
	if err == nil {
		st.report.Processing.OutputFormatting = StatusCompleted
	}
	return st, nil
}

func assemble(st *runState) *Report {
	c, sel, res := st.enriched, st.selection, st.research
	r := &Report{
		Success:           len(st.errors) == 0,
		SessionID:         st.session.ID,
		Timestamp:         time.Now().UTC(),
		Results:           res.Report,
		ProtocolsApplied:  sel.Names(),
		ProtocolCount:     sel.Count(),
		Confidence:        res.Report.ExecutiveSummary.Confidence,
		ConfidenceMetrics: c.Confidence,
		Context:           c,
		Protocols:         sel,
		Research: ResearchOutput{
			Brief:     res.Brief,
			Queries:   res.Queries,
			Responses: res.Responses,
			Synthesis: res.Synthesis,
			Fallback:  res.Fallback,
		},
		Metadata: st.session.Metadata,
		Summary: Summary{
			Context: ContextSummary{
				Success:           st.status[StageContextAnalysis] == StatusCompleted,
				SearchesCompleted: c.Search.Successful,
				Entities:          c.Entities,
				Confidence:        c.Confidence.OverallConfidence,
			},
			Protocol: ProtocolSummary{
				Success:    st.status[StageProtocolSelection] == StatusCompleted,
				Count:      sel.Count(),
				Strategy:   sel.Strategy,
				Confidence: sel.Confidence,
			},
			Research: ResearchSummary{
				Success:          st.status[StageResearchExecution] == StatusCompleted,
				QueriesExecuted:  len(res.Queries),
				SynthesisQuality: res.Synthesis.Quality,
			},
		},
		Processing: ProcessingSummary{
			ContextAnalysis:   st.status[StageContextAnalysis],
			ProtocolSelection: st.status[StageProtocolSelection],
			ResearchExecution: st.status[StageResearchExecution],
		},
	}
	if !r.Success {
		r.Error = st.errors[0]
		r.Errors = append([]string(nil), st.errors...)
	}
	return r
}
