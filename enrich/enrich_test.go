package enrich

import (
	"context"
	"errors"
	"math"
	"reflect"
	"testing"

	errs "github.com/sweetpotato0/mapshock/errors"
	"github.com/sweetpotato0/mapshock/entity"
	"github.com/sweetpotato0/mapshock/pkg/logging"
	"github.com/sweetpotato0/mapshock/query"
	"github.com/sweetpotato0/mapshock/search"
)

func TestSuggestionsCompetitiveLandscape(t *testing.T) {
	text := "Analyze competitive landscape for semiconductor equipment market"
	if got := SuggestAnalysisType(text); got != AnalysisCompetitive {
		t.Errorf("analysis type = %s", got)
	}
	if got := SuggestThreatTier(text); got != TierBaseline {
		t.Errorf("threat tier = %s", got)
	}
	if got := SuggestUrgency(text); got != UrgencyMedium {
		t.Errorf("urgency = %s", got)
	}
}

func TestSuggestionsUrgentCriticalInfrastructure(t *testing.T) {
	text := "This is urgent: assess risks to critical infrastructure operators"
	if got := SuggestThreatTier(text); got != TierCritical {
		t.Errorf("threat tier = %s", got)
	}
	if got := SuggestUrgency(text); got != UrgencyImmediate {
		t.Errorf("urgency = %s", got)
	}
}

func TestSuggestAnalysisTypeOrder(t *testing.T) {
	tests := map[string]AnalysisType{
		"long-term strategy for the market":   AnalysisStrategic,
		"sector outlook":                      AnalysisMarket,
		"review our system architecture":      AnalysisTechnical,
		"improve warehouse throughput":        AnalysisOperational,
		"rival pricing and industry planning": AnalysisCompetitive,
	}
	for text, want := range tests {
		if got := SuggestAnalysisType(text); got != want {
			t.Errorf("SuggestAnalysisType(%q) = %s, want %s", text, got, want)
		}
	}
	if got := SuggestThreatTier("a significant shift"); got != TierElevated {
		t.Errorf("threat tier = %s", got)
	}
	if got := SuggestUrgency("we need this soon"); got != UrgencyHigh {
		t.Errorf("urgency = %s", got)
	}
}

func TestSuggestDomains(t *testing.T) {
	set := entity.NewSet()
	if got := SuggestDomains("plain request", set); !reflect.DeepEqual(got, []string{DomainIntelligence}) {
		t.Errorf("baseline domains = %v", got)
	}
	if got := SuggestDomains("financial outlook", set); !reflect.DeepEqual(got, []string{DomainIntelligence, DomainEconomic}) {
		t.Errorf("financial domains = %v", got)
	}
	set[entity.Companies] = []string{"Acme"}
	set[entity.Technologies] = []string{"cloud"}
	want := []string{DomainIntelligence, DomainEconomic, DomainCorporate, DomainSocialTech}
	if got := SuggestDomains("anything", set); !reflect.DeepEqual(got, want) {
		t.Errorf("full domains = %v", got)
	}
}

func TestHintsCrossDomain(t *testing.T) {
	set := entity.NewSet()
	set[entity.Industries] = []string{"software", "banking"}
	hints := Hints(set, search.Intelligence{Freshness: search.FreshnessHigh}, search.ConfidenceMetrics{OverallConfidence: 0.9})
	if !hints.CrossDomainAnalysis {
		t.Error("two industries should request cross-domain analysis")
	}
	if !hints.VerificationNeeded || !hints.RealTimeSyncRecommended || hints.ConfidenceCalibrationRequired {
		t.Errorf("unexpected hints: %+v", hints)
	}

	set[entity.Industries] = []string{"software"}
	hints = Hints(set, search.Intelligence{Freshness: search.FreshnessMedium}, search.ConfidenceMetrics{OverallConfidence: 0.5})
	if hints.CrossDomainAnalysis || hints.RealTimeSyncRecommended || !hints.ConfidenceCalibrationRequired {
		t.Errorf("unexpected hints: %+v", hints)
	}
}

func TestEnrichWithoutSearch(t *testing.T) {
	c := Enrich("s1", "Analyze Acme", nil, nil, nil)
	if c.Entities == nil || c.FailedQueries == nil {
		t.Fatal("enriched context should not expose nil collections")
	}
	if c.ErrorCount != 0 {
		t.Errorf("unexpected error count %d", c.ErrorCount)
	}
	if !c.Hints.ConfidenceCalibrationRequired {
		t.Error("zero confidence should require calibration")
	}
}

type stubToolkit struct {
	entities func(string) entity.Set
	outcome  *search.Outcome
	err      error
}

func (s *stubToolkit) ExtractEntities(text string) entity.Set {
	if s.entities != nil {
		return s.entities(text)
	}
	return entity.Extract(text)
}

func (s *stubToolkit) GenerateQueries(text string, entities entity.Set) query.Plan {
	return query.Generate(text, entities)
}

func (s *stubToolkit) AnalyzeResults(ctx context.Context, plan query.Plan) (*search.Outcome, error) {
	return s.outcome, s.err
}

func TestAnalyzerCountsPanickingExtraction(t *testing.T) {
	toolkit := &stubToolkit{
		entities: func(string) entity.Set { panic("bad regex") },
		outcome:  &search.Outcome{Planned: 15, FailedQueries: []string{}},
	}
	c, err := NewAnalyzer(toolkit, logging.Discard()).Analyze(context.Background(), "s1", "urgent market review")
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if c.ErrorCount != 1 || len(c.Issues) != 1 {
		t.Errorf("expected one recorded error, got %d %v", c.ErrorCount, c.Issues)
	}
	if c.Suggestions.ThreatTier != TierCritical || c.Suggestions.AnalysisType != AnalysisMarket {
		t.Errorf("suggestions should still be computed: %+v", c.Suggestions)
	}
	if c.Plan.Total() != 15 {
		t.Errorf("plan should still hold 15 queries, got %d", c.Plan.Total())
	}
}

func TestAnalyzerSearchError(t *testing.T) {
	toolkit := &stubToolkit{err: errors.New("provider down")}
	if _, err := NewAnalyzer(toolkit, logging.Discard()).Analyze(context.Background(), "s1", "text"); err == nil {
		t.Fatal("expected search error")
	}
}

func TestAnalyzerWithoutSearcher(t *testing.T) {
	_, err := NewAnalyzer(NewToolkit(nil), logging.Discard()).Analyze(context.Background(), "s1", "text")
	if !errors.Is(err, errs.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestFallbackShape(t *testing.T) {
	c := Fallback("s1", "text")
	if !c.Fallback || c.SessionID != "s1" || c.OriginalQuery != "text" {
		t.Errorf("unexpected fallback: %+v", c)
	}
	for _, b := range query.Buckets {
		if c.Plan[b] == nil {
			t.Errorf("bucket %s should be an empty list", b)
		}
		if _, ok := c.Summaries[b]; !ok {
			t.Errorf("bucket %s missing from summaries", b)
		}
	}
	if c.Suggestions.AnalysisType != AnalysisComprehensive || c.Suggestions.ThreatTier != TierBaseline {
		t.Errorf("unexpected fallback suggestions: %+v", c.Suggestions)
	}
	if !c.Hints.VerificationNeeded {
		t.Error("fallback still needs verification")
	}
	m := c.Confidence
	mean := (m.DataQuality + m.SourceDiversity + m.SearchSuccessRate) / 3
	if math.Abs(m.OverallConfidence-mean) > 1e-9 {
		t.Errorf("overall confidence %f is not the mean of its components %f", m.OverallConfidence, mean)
	}
	if m.OverallConfidence != 0 {
		t.Errorf("a context without searches should report zero confidence, got %f", m.OverallConfidence)
	}
	if !c.Hints.ConfidenceCalibrationRequired {
		t.Error("zero confidence should require calibration")
	}
}
