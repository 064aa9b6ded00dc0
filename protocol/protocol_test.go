package protocol

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/sweetpotato0/mapshock/enrich"
	errs "github.com/sweetpotato0/mapshock/errors"
	"github.com/sweetpotato0/mapshock/search"
)

func contextFor(analysis enrich.AnalysisType, tier string, confidence float64) *enrich.Context {
	c := enrich.Enrich("s1", "text", nil, nil, &search.Outcome{Confidence: search.ConfidenceMetrics{OverallConfidence: confidence}})
	c.Suggestions.AnalysisType = analysis
	c.Suggestions.ThreatTier = tier
	return c
}

func TestFallback(t *testing.T) {
	sel := Fallback()
	want := []string{"DVF_V1_0", "SPT_V1_0", "PROTOCOL_9_3"}
	var got []string
	for _, p := range sel.Protocols {
		got = append(got, p.ID)
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("fallback ids = %v", got)
	}
	if sel.Strategy != FallbackStrategy || sel.Confidence != 0.7 {
		t.Errorf("unexpected fallback: %+v", sel)
	}
	if err := Validate(sel); err != nil {
		t.Errorf("fallback should validate: %v", err)
	}
}

func TestRuleCatalogSelect(t *testing.T) {
	tests := []struct {
		name string
		ctx  *enrich.Context
		want []string
	}{
		{"competitive", contextFor(enrich.AnalysisCompetitive, enrich.TierBaseline, 0.9), []string{"DVF_V1_0", "MA_V1_0", "CI_V1_0"}},
		{"market", contextFor(enrich.AnalysisMarket, enrich.TierBaseline, 0.9), []string{"DVF_V1_0", "MI_V1_0", "OA_V1_0"}},
		{"critical strategic", contextFor(enrich.AnalysisStrategic, enrich.TierCritical, 0.9), []string{"DVF_V1_0", "SPT_V1_0", "CAP_V1_0"}},
		{"low confidence", contextFor(enrich.AnalysisOperational, enrich.TierBaseline, 0.2), []string{"DVF_V1_0", "PROTOCOL_9_3"}},
	}
	catalog := NewRuleCatalog()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sel, err := catalog.Select(context.Background(), tt.ctx)
			if err != nil {
				t.Fatalf("Select: %v", err)
			}
			var got []string
			for _, p := range sel.Protocols {
				got = append(got, p.ID)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ids = %v, want %v", got, tt.want)
			}
			if sel.Confidence <= 0 || sel.Confidence > 1 {
				t.Errorf("confidence out of range: %f", sel.Confidence)
			}
		})
	}
}

func TestRuleCatalogDedupesByID(t *testing.T) {
	p := Selected{Name: "Only", ID: "X", Confidence: 0.5}
	always := func(enrich.SelectorInputs) bool { return true }
	catalog := NewRuleCatalog(
		Rule{Name: "a", Matches: always, Protocols: []Selected{p}},
		Rule{Name: "b", Matches: always, Protocols: []Selected{p}},
	)
	sel, err := catalog.Select(context.Background(), contextFor(enrich.AnalysisMarket, enrich.TierBaseline, 1))
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if sel.Count() != 1 {
		t.Errorf("expected 1 protocol, got %d", sel.Count())
	}
}

func TestRuleCatalogNilContext(t *testing.T) {
	if _, err := NewRuleCatalog().Select(context.Background(), nil); !errors.Is(err, errs.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	if err := Validate(nil); err == nil {
		t.Error("nil selection should fail")
	}
	if err := Validate(&Selection{Protocols: []Selected{{Name: "n"}}}); err == nil {
		t.Error("missing id should fail")
	}
	if err := Validate(&Selection{Protocols: []Selected{{Name: "n", ID: "i", Confidence: 2}}}); err == nil {
		t.Error("confidence out of range should fail")
	}
}

func TestNames(t *testing.T) {
	var nilSel *Selection
	if len(nilSel.Names()) != 0 || nilSel.Count() != 0 {
		t.Error("nil selection should report no protocols")
	}
	if got := Fallback().Names(); got[0] != "Data Verification Framework" {
		t.Errorf("names = %v", got)
	}
}
