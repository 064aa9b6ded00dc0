// Package research turns an enriched context and a protocol selection into
// four language-model research questions and merges the answers.
package research

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sweetpotato0/mapshock/enrich"
	"github.com/sweetpotato0/mapshock/entity"
	errs "github.com/sweetpotato0/mapshock/errors"
	"github.com/sweetpotato0/mapshock/pkg/logging"
	"github.com/sweetpotato0/mapshock/pkg/telemetry"
	"github.com/sweetpotato0/mapshock/prompt"
	"github.com/sweetpotato0/mapshock/protocol"
	"github.com/sweetpotato0/mapshock/runner"
	"go.opentelemetry.io/otel/attribute"
)

const (
	// DefaultCompany is used when no company can be identified.
	DefaultCompany = "Target Company"
	// DefaultIndustry is used when no industry was extracted.
	DefaultIndustry = "Technology"

	defaultAnalysisType   = "comprehensive"
	defaultMaxConcurrency = 4
	defaultConfidence     = 0.8
	maxListItems          = 5
)

// Tokenizer is the subset of a tokenizer needed to bound prompt size.
type Tokenizer interface {
	Encode(text string) []int
	DecodeIds(ids []int) string
}

// Config controls a Synthesizer.
type Config struct {
	MaxConcurrency int
	Timeout        time.Duration
	SystemPrompt   string
	Tokenizer      Tokenizer
	MaxQueryTokens int // Upper bound for the caller's text inside a prompt; 0 disables
	Logger         *slog.Logger
}

// Option customises the synthesizer.
type Option func(*Config)

// WithMaxConcurrency bounds concurrent language-model calls.
func WithMaxConcurrency(n int) Option {
	return func(cfg *Config) {
		if n > 0 {
			cfg.MaxConcurrency = n
		}
	}
}

// WithTimeout bounds a single language-model call.
func WithTimeout(d time.Duration) Option {
	return func(cfg *Config) {
		if d > 0 {
			cfg.Timeout = d
		}
	}
}

// WithSystemPrompt replaces the analyst system prompt.
func WithSystemPrompt(p string) Option {
	return func(cfg *Config) {
		cfg.SystemPrompt = p
	}
}

// WithTokenizer truncates the caller's text to maxTokens before it is sent.
func WithTokenizer(tok Tokenizer, maxTokens int) Option {
	return func(cfg *Config) {
		cfg.Tokenizer = tok
		cfg.MaxQueryTokens = maxTokens
	}
}

// WithLogger sets the logger used for dispatch and synthesis events.
func WithLogger(l *slog.Logger) Option {
	return func(cfg *Config) {
		if l != nil {
			cfg.Logger = l
		}
	}
}

func defaultConfig() *Config {
	return &Config{
		MaxConcurrency: defaultMaxConcurrency,
		Timeout:        runner.DefaultTimeout,
	}
}

// Synthesizer runs the research stage against a LanguageModel.
type Synthesizer struct {
	model   LanguageModel
	cfg     *Config
	prompts *prompt.Manager
	fanout  *runner.Fanout
	logger  *slog.Logger
}

// NewSynthesizer creates a synthesizer. A nil model is accepted; Research then
// reports ErrUnavailable.
func NewSynthesizer(model LanguageModel, opts ...Option) (*Synthesizer, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.WithComponent("research")
	}
	prompts, err := newPromptManager(cfg.SystemPrompt)
	if err != nil {
		return nil, fmt.Errorf("%w: system prompt: %v", errs.ErrInvalidInput, err)
	}
	return &Synthesizer{
		model:   model,
		cfg:     cfg,
		prompts: prompts,
		fanout: runner.NewFanout(
			runner.WithName("research"),
			runner.WithMaxConcurrency(cfg.MaxConcurrency),
			runner.WithTimeout(cfg.Timeout),
			runner.WithLogger(logger),
		),
		logger: logger,
	}, nil
}

// Research builds the brief and queries, asks the model, and synthesizes the
// answers. Individual query failures are recorded in the responses; an error is
// returned only when nothing usable came back or the stage cannot run.
func (s *Synthesizer) Research(ctx context.Context, c *enrich.Context, sel *protocol.Selection) (out *Outcome, err error) {
	if s == nil || s.model == nil {
		return nil, fmt.Errorf("%w: no language model configured", errs.ErrUnavailable)
	}
	if c == nil {
		return nil, fmt.Errorf("%w: nil context", errs.ErrInvalidInput)
	}

	ctx, span := telemetry.Start(ctx, "research.Research", attribute.String("session_id", c.SessionID))
	defer func() { telemetry.End(span, err) }()

	brief := BuildBrief(c, sel)
	brief.OriginalQuery = s.bound(brief.OriginalQuery)
	queries := BuildQueries(brief)

	responses, err := s.dispatch(ctx, brief, queries)
	if err != nil {
		return nil, err
	}
	out = &Outcome{Brief: brief, Queries: queries, Responses: responses}

	out.Synthesis, err = Synthesize(responses)
	if err != nil {
		s.logger.Warn("research synthesis failed", "session_id", c.SessionID, "error", err)
		return out, err
	}
	out.Report = FormatReport(brief, out.Synthesis, time.Now().UTC())
	s.logger.Info("research completed",
		"session_id", c.SessionID,
		"successful", out.Synthesis.Successful,
		"total", out.Synthesis.Total,
	)
	return out, nil
}

func (s *Synthesizer) dispatch(ctx context.Context, brief Brief, queries []Query) ([]Response, error) {
	results, err := runner.Gather(ctx, s.fanout, queries, func(ctx context.Context, q Query) (*answer, error) {
		return s.ask(ctx, brief, q)
	})
	if err != nil {
		return nil, err
	}

	responses := make([]Response, len(results))
	for i, r := range results {
		resp := Response{
			Type:      r.Input.Type,
			Query:     r.Input.Text,
			Priority:  r.Input.Priority,
			Duration:  r.Duration,
			Timestamp: time.Now().UTC(),
		}
		if r.Err != nil {
			resp.Error = r.Err.Error()
			s.logger.Warn("research query failed", "query_type", r.Input.Type, "error", r.Err)
		} else {
			resp.Analysis = r.Value.analysis
			resp.Parsed = r.Value.parsed
			resp.Success = true
		}
		responses[i] = resp
	}
	return responses, nil
}

type answer struct {
	analysis *Analysis
	parsed   bool
}

func (s *Synthesizer) ask(ctx context.Context, brief Brief, q Query) (*answer, error) {
	system, err := s.prompts.Render(systemTemplate, promptData{Brief: brief, Query: q})
	if err != nil {
		return nil, err
	}
	user, err := s.prompts.Render(userTemplate, promptData{Brief: brief, Query: q})
	if err != nil {
		return nil, err
	}
	text, err := s.model.Complete(ctx, system, user)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: empty completion for %s", errs.ErrSynthesisFailed, q.Type)
	}
	a, parsed := parseAnalysis(text, q.Type)
	return &answer{analysis: a, parsed: parsed}, nil
}

// bound truncates text to the configured token budget.
func (s *Synthesizer) bound(text string) string {
	tok, limit := s.cfg.Tokenizer, s.cfg.MaxQueryTokens
	if tok == nil || limit <= 0 {
		return text
	}
	ids := tok.Encode(text)
	if len(ids) <= limit {
		return text
	}
	return tok.DecodeIds(ids[:limit])
}

// BuildBrief distills the fields research prompts need.
func BuildBrief(c *enrich.Context, sel *protocol.Selection) Brief {
	analysis := string(c.Suggestions.AnalysisType)
	if analysis == "" {
		analysis = defaultAnalysisType
	}
	return Brief{
		OriginalQuery:   c.OriginalQuery,
		Company:         CompanyName(c.OriginalQuery, c.Entities),
		Industry:        IndustryName(c.Entities),
		AnalysisType:    analysis,
		ActiveProtocols: sel.Names(),
	}
}

var companyMarkers = map[string]bool{"company": true, "corp": true, "inc": true, "ltd": true, "llc": true}

// CompanyName returns the first extracted company, else the word preceding a
// corporate marker such as "Inc", else DefaultCompany.
func CompanyName(text string, entities entity.Set) string {
	if name := entities.First(entity.Companies, ""); name != "" {
		return name
	}
	words := strings.Fields(text)
	for i := 1; i < len(words); i++ {
		if companyMarkers[strings.Trim(strings.ToLower(words[i]), ".,;:!?")] {
			return words[i-1]
		}
	}
	return DefaultCompany
}

// IndustryName returns the first extracted industry in title case, else DefaultIndustry.
func IndustryName(entities entity.Set) string {
	if name := entities.First(entity.Industries, ""); name != "" {
		return title(name)
	}
	return DefaultIndustry
}

// BuildQueries returns the four research questions in dispatch order.
func BuildQueries(b Brief) []Query {
	return []Query{
		{
			Type:     PrimaryAnalysis,
			Text:     fmt.Sprintf("Conduct %s analysis for %s in the %s industry. Focus on: %s", b.AnalysisType, b.Company, b.Industry, b.OriginalQuery),
			Priority: PriorityHigh,
		},
		{
			Type:     CompetitiveAnalysis,
			Text:     fmt.Sprintf("Analyze competitive landscape for %s in %s industry", b.Company, b.Industry),
			Priority: PriorityMedium,
		},
		{
			Type:     RiskAssessment,
			Text:     fmt.Sprintf("Identify key risks and threats for %s in current market conditions", b.Company),
			Priority: PriorityMedium,
		},
		{
			Type:     OpportunityAnalysis,
			Text:     fmt.Sprintf("Identify strategic opportunities for %s in %s market", b.Company, b.Industry),
			Priority: PriorityMedium,
		},
	}
}

// Synthesize merges the successful responses. Lists are deduplicated in first-seen
// order and capped at five entries. Confidence is the mean of the scores the model
// reported, or 0.8 when none did. Zero successes yields ErrSynthesisFailed.
func Synthesize(responses []Response) (Synthesis, error) {
	syn := Synthesis{Total: len(responses)}
	var findings, recs, risks, opps []string
	var scoreSum float64
	var scored int

	for _, r := range responses {
		if !r.Success || r.Analysis == nil {
			continue
		}
		syn.Successful++
		a := r.Analysis
		findings = append(findings, a.ExecutiveSummary.KeyFindings...)
		recs = append(recs, a.StrategicImplications.Recommendations...)
		risks = append(risks, a.StrategicImplications.Risks...)
		opps = append(opps, a.StrategicImplications.Opportunities...)
		if score := a.ExecutiveSummary.ConfidenceScore; score != nil {
			scoreSum += clamp(*score)
			scored++
		}
	}

	if syn.Successful == 0 {
		syn.Error = "no successful LLM responses to synthesize"
		return syn, fmt.Errorf("%w: %d of %d responses failed", errs.ErrSynthesisFailed, syn.Total, syn.Total)
	}

	syn.Findings = dedupe(findings)
	syn.Recommendations = dedupe(recs)
	syn.Risks = dedupe(risks)
	syn.Opportunities = dedupe(opps)
	syn.Confidence = defaultConfidence
	if scored > 0 {
		syn.Confidence = scoreSum / float64(scored)
	}
	syn.Quality = float64(syn.Successful) / float64(syn.Total)
	syn.Success = true
	return syn, nil
}

func dedupe(values []string) []string {
	out := make([]string, 0, maxListItems)
	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
		if len(out) == maxListItems {
			break
		}
	}
	return out
}

func clamp(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
