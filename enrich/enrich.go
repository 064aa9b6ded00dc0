// Package enrich folds entity extraction and search analysis into a single
// context record with heuristic suggestions for the later stages.
package enrich

import (
	"fmt"
	"strings"
	"time"

	"github.com/sweetpotato0/mapshock/entity"
	"github.com/sweetpotato0/mapshock/query"
	"github.com/sweetpotato0/mapshock/search"
)

// AnalysisType is the suggested kind of analysis.
type AnalysisType string

const (
	AnalysisCompetitive   AnalysisType = "competitive"
	AnalysisStrategic     AnalysisType = "strategic"
	AnalysisMarket        AnalysisType = "market"
	AnalysisTechnical     AnalysisType = "technical"
	AnalysisOperational   AnalysisType = "operational"
	AnalysisComprehensive AnalysisType = "comprehensive"
)

// Threat tiers.
const (
	TierCritical = "21-25"
	TierElevated = "11-20"
	TierBaseline = "1-10"
)

// Urgency levels.
const (
	UrgencyImmediate = "immediate"
	UrgencyHigh      = "high"
	UrgencyMedium    = "medium"
)

// Domain tags.
const (
	DomainIntelligence = "Intelligence & Security"
	DomainEconomic     = "Economic & Financial"
	DomainCorporate    = "Corporate Systems"
	DomainSocialTech   = "Social & Technological"

	maxDomains = 4
)

// calibrationThreshold is the overall confidence below which calibration is required.
const calibrationThreshold = 0.7

// Suggestions are keyword-derived hints for protocol selection and research.
type Suggestions struct {
	AnalysisType AnalysisType `json:"suggested_analysis_type"`
	ThreatTier   string       `json:"suggested_threat_tier"`
	Domains      []string     `json:"suggested_domains"`
	Urgency      string       `json:"urgency_indicators"`
}

// ProtocolHints are flags consumed by protocol selection.
type ProtocolHints struct {
	VerificationNeeded            bool `json:"data_verification_needed"`
	RealTimeSyncRecommended       bool `json:"real_time_sync_recommended"`
	CrossDomainAnalysis           bool `json:"cross_domain_analysis"`
	ConfidenceCalibrationRequired bool `json:"confidence_calibration_required"`
}

// SearchSummary records how the search fan-out went.
type SearchSummary struct {
	Total      int      `json:"total_searches"`
	Successful int      `json:"successful_searches"`
	Failed     int      `json:"failed_searches"`
	Categories []string `json:"search_categories"`
}

// Context is the enriched snapshot handed to later stages. It is not mutated once built.
type Context struct {
	SessionID     string                                `json:"session_id"`
	OriginalQuery string                                `json:"original_query"`
	Entities      entity.Set                            `json:"extracted_entities"`
	Plan          query.Plan                            `json:"search_queries"`
	Intelligence  search.Intelligence                   `json:"web_intelligence"`
	Confidence    search.ConfidenceMetrics              `json:"confidence_metrics"`
	Summaries     map[query.Bucket]search.BucketSummary `json:"search_intelligence"`
	FailedQueries []string                              `json:"failed_searches"`
	Suggestions   Suggestions                           `json:"suggestions"`
	Hints         ProtocolHints                         `json:"protocol_hints"`
	Search        SearchSummary                         `json:"search_summary"`
	ErrorCount    int                                   `json:"error_count"`
	Issues        []string                              `json:"issues,omitempty"`
	Fallback      bool                                  `json:"fallback"`
	CreatedAt     time.Time                             `json:"created_at"`
}

// SelectorInputs is the view of a Context consumed by protocol catalogs.
type SelectorInputs struct {
	AnalysisType AnalysisType  `json:"analysis_type"`
	ThreatTier   string        `json:"threat_tier"`
	Domains      []string      `json:"domains"`
	Urgency      string        `json:"urgency"`
	Confidence   float64       `json:"confidence"`
	Hints        ProtocolHints `json:"protocol_hints"`
}

// SelectorInputs collects the fields protocol selection depends on.
func (c *Context) SelectorInputs() SelectorInputs {
	return SelectorInputs{
		AnalysisType: c.Suggestions.AnalysisType,
		ThreatTier:   c.Suggestions.ThreatTier,
		Domains:      append([]string(nil), c.Suggestions.Domains...),
		Urgency:      c.Suggestions.Urgency,
		Confidence:   c.Confidence.OverallConfidence,
		Hints:        c.Hints,
	}
}

type keywordRule[T any] struct {
	value    T
	keywords []string
}

var (
	analysisRules = []keywordRule[AnalysisType]{
		{AnalysisCompetitive, []string{"compete", "competitor", "competitive", "rival"}},
		{AnalysisStrategic, []string{"strategy", "strategic", "long-term", "planning"}},
		{AnalysisMarket, []string{"market", "industry", "sector"}},
		{AnalysisTechnical, []string{"technical", "technology", "system"}},
	}
	tierRules = []keywordRule[string]{
		{TierCritical, []string{"urgent", "critical", "emergency", "immediate"}},
		{TierElevated, []string{"important", "significant", "high priority"}},
	}
	urgencyRules = []keywordRule[string]{
		{UrgencyImmediate, []string{"immediate", "urgent", "asap", "emergency"}},
		{UrgencyHigh, []string{"soon", "quickly", "fast", "priority"}},
	}
)

// firstMatch returns the value of the first rule with a keyword contained in lower.
func firstMatch[T any](lower string, rules []keywordRule[T], fallback T) T {
	for _, r := range rules {
		for _, k := range r.keywords {
			if strings.Contains(lower, k) {
				return r.value
			}
		}
	}
	return fallback
}

// SuggestAnalysisType picks the analysis type for text.
func SuggestAnalysisType(text string) AnalysisType {
	return firstMatch(strings.ToLower(text), analysisRules, AnalysisOperational)
}

// SuggestThreatTier picks the threat tier for text.
func SuggestThreatTier(text string) string {
	return firstMatch(strings.ToLower(text), tierRules, TierBaseline)
}

// SuggestUrgency picks the urgency for text.
func SuggestUrgency(text string) string {
	return firstMatch(strings.ToLower(text), urgencyRules, UrgencyMedium)
}

// SuggestDomains derives domain tags from entities and text.
func SuggestDomains(text string, entities entity.Set) []string {
	hasCompanies := len(entities.Get(entity.Companies)) > 0
	domains := []string{DomainIntelligence}
	if hasCompanies || strings.Contains(strings.ToLower(text), "financial") {
		domains = append(domains, DomainEconomic)
	}
	if hasCompanies {
		domains = append(domains, DomainCorporate)
	}
	if len(entities.Get(entity.Technologies)) > 0 {
		domains = append(domains, DomainSocialTech)
	}
	if len(domains) > maxDomains {
		domains = domains[:maxDomains]
	}
	return domains
}

// Hints derives protocol hints.
func Hints(entities entity.Set, intel search.Intelligence, conf search.ConfidenceMetrics) ProtocolHints {
	return ProtocolHints{
		VerificationNeeded:            true,
		RealTimeSyncRecommended:       intel.Freshness == search.FreshnessHigh,
		CrossDomainAnalysis:           len(entities.Get(entity.Industries)) > 1,
		ConfidenceCalibrationRequired: conf.OverallConfidence < calibrationThreshold,
	}
}

// Enrich builds the context from extraction and search output. Each heuristic
// runs guarded: a panic increments ErrorCount and leaves that field unset while
// fields computed earlier are kept. outcome may be nil when no search ran.
func Enrich(sessionID, text string, entities entity.Set, plan query.Plan, outcome *search.Outcome) *Context {
	c := &Context{
		SessionID:     sessionID,
		OriginalQuery: text,
		Entities:      entities,
		Plan:          plan,
		FailedQueries: []string{},
		CreatedAt:     time.Now().UTC(),
	}
	if c.Entities == nil {
		c.Entities = entity.NewSet()
	}

	c.guard("search", func() {
		if outcome == nil {
			return
		}
		c.Intelligence = outcome.Intelligence
		c.Confidence = outcome.Confidence
		c.Summaries = outcome.Summaries
		c.FailedQueries = append(c.FailedQueries, outcome.FailedQueries...)
		c.Search = SearchSummary{
			Total:      outcome.Planned,
			Successful: outcome.Successful,
			Failed:     len(outcome.FailedQueries),
			Categories: bucketNames(),
		}
	})
	c.guard("analysis_type", func() { c.Suggestions.AnalysisType = SuggestAnalysisType(text) })
	c.guard("threat_tier", func() { c.Suggestions.ThreatTier = SuggestThreatTier(text) })
	c.guard("domains", func() { c.Suggestions.Domains = SuggestDomains(text, c.Entities) })
	c.guard("urgency", func() { c.Suggestions.Urgency = SuggestUrgency(text) })
	c.guard("hints", func() { c.Hints = Hints(c.Entities, c.Intelligence, c.Confidence) })
	return c
}

// guard runs step and converts a panic into an error count increment.
func (c *Context) guard(step string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			c.ErrorCount++
			c.Issues = append(c.Issues, fmt.Sprintf("%s: %v", step, r))
		}
	}()
	fn()
}

// Fallback returns the fixed-shape context used when enrichment cannot run.
// No search ran, so every confidence component is zero and the overall value
// stays their mean.
func Fallback(sessionID, text string) *Context {
	entities := entity.NewSet()
	intel := search.Analyze(nil)
	conf := search.Confidence(intel, 0, 0)
	plan := make(query.Plan, len(query.Buckets))
	summaries := make(map[query.Bucket]search.BucketSummary, len(query.Buckets))
	for _, b := range query.Buckets {
		plan[b] = []string{}
		summaries[b] = search.Summarize(nil)
	}
	return &Context{
		SessionID:     sessionID,
		OriginalQuery: text,
		Entities:      entities,
		Plan:          plan,
		Intelligence:  intel,
		Confidence:    conf,
		Summaries:     summaries,
		FailedQueries: []string{},
		Suggestions: Suggestions{
			AnalysisType: AnalysisComprehensive,
			ThreatTier:   TierBaseline,
			Domains:      []string{DomainIntelligence},
			Urgency:      UrgencyMedium,
		},
		Hints:     Hints(entities, intel, conf),
		Search:    SearchSummary{Categories: bucketNames()},
		Fallback:  true,
		CreatedAt: time.Now().UTC(),
	}
}

func bucketNames() []string {
	names := make([]string, len(query.Buckets))
	for i, b := range query.Buckets {
		names[i] = string(b)
	}
	return names
}
