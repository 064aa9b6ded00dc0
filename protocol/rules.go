package protocol

import (
	"context"
	"fmt"

	"github.com/sweetpotato0/mapshock/enrich"
	errs "github.com/sweetpotato0/mapshock/errors"
)

// RuleStrategy names the strategy used by RuleCatalog.
const RuleStrategy = "rule_based"

// Rule adds protocols when its predicate matches.
type Rule struct {
	Name      string
	Matches   func(in enrich.SelectorInputs) bool
	Protocols []Selected
}

// RuleCatalog selects protocols by evaluating rules in order. Protocols are
// deduplicated by ID keeping the first occurrence.
type RuleCatalog struct {
	rules []Rule
}

// NewRuleCatalog creates a catalog from rules; with no rules the default set is used.
func NewRuleCatalog(rules ...Rule) *RuleCatalog {
	if len(rules) == 0 {
		rules = DefaultRules()
	}
	return &RuleCatalog{rules: rules}
}

// DefaultRules returns the built-in rule set.
func DefaultRules() []Rule {
	return []Rule{
		{
			Name:    "verification",
			Matches: func(enrich.SelectorInputs) bool { return true },
			Protocols: []Selected{
				{Name: "Data Verification Framework", ID: "DVF_V1_0", Reason: "Data verification is always required", Confidence: 0.8},
			},
		},
		{
			Name:    "competitive",
			Matches: func(in enrich.SelectorInputs) bool { return in.AnalysisType == enrich.AnalysisCompetitive },
			Protocols: []Selected{
				{Name: "Market Analysis", ID: "MA_V1_0", Reason: "Competitive request", Confidence: 0.8},
				{Name: "Competitive Intelligence", ID: "CI_V1_0", Reason: "Competitive request", Confidence: 0.8},
			},
		},
		{
			Name:    "market",
			Matches: func(in enrich.SelectorInputs) bool { return in.AnalysisType == enrich.AnalysisMarket },
			Protocols: []Selected{
				{Name: "Market Intelligence", ID: "MI_V1_0", Reason: "Market request", Confidence: 0.75},
				{Name: "Opportunity Analysis", ID: "OA_V1_0", Reason: "Market request", Confidence: 0.7},
			},
		},
		{
			Name:    "strategic",
			Matches: func(in enrich.SelectorInputs) bool { return in.AnalysisType == enrich.AnalysisStrategic },
			Protocols: []Selected{
				{Name: "Strategic Planning Template", ID: "SPT_V1_0", Reason: "Strategic request", Confidence: 0.75},
			},
		},
		{
			Name:    "critical",
			Matches: func(in enrich.SelectorInputs) bool { return in.ThreatTier == enrich.TierCritical },
			Protocols: []Selected{
				{Name: "Critical Analysis Protocols", ID: "CAP_V1_0", Reason: "Threat tier 21-25", Confidence: 0.85},
			},
		},
		{
			Name:    "calibration",
			Matches: func(in enrich.SelectorInputs) bool { return in.Hints.ConfidenceCalibrationRequired },
			Protocols: []Selected{
				{Name: "Confidence Calibration", ID: "PROTOCOL_9_3", Reason: "Overall confidence below threshold", Confidence: 0.8},
			},
		},
	}
}

// Select implements Catalog.
func (r *RuleCatalog) Select(ctx context.Context, c *enrich.Context) (*Selection, error) {
	if c == nil {
		return nil, fmt.Errorf("%w: nil context", errs.ErrInvalidInput)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	in := c.SelectorInputs()
	seen := map[string]struct{}{}
	sel := &Selection{Protocols: []Selected{}, Strategy: RuleStrategy}
	var sum float64
	for _, rule := range r.rules {
		if rule.Matches == nil || !rule.Matches(in) {
			continue
		}
		for _, p := range rule.Protocols {
			if _, ok := seen[p.ID]; ok {
				continue
			}
			seen[p.ID] = struct{}{}
			sel.Protocols = append(sel.Protocols, p)
			sum += p.Confidence
		}
	}
	if n := len(sel.Protocols); n > 0 {
		sel.Confidence = sum / float64(n)
	}
	return sel, nil
}
