package research

import (
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

// Report is the caller-facing rendering of a synthesis.
type Report struct {
	ExecutiveSummary ExecutiveSummary `json:"executive_summary"`
	DetailedAnalysis DetailedAnalysis `json:"detailed_analysis"`
	DataQuality      DataQuality      `json:"data_quality"`
	Methodology      Methodology      `json:"methodology"`
	NextSteps        NextSteps        `json:"next_steps"`
}

// ExecutiveSummary is the headline block of a report.
type ExecutiveSummary struct {
	Company          string    `json:"company"`
	Industry         string    `json:"industry"`
	AnalysisType     string    `json:"analysis_type"`
	KeyFindings      []string  `json:"key_findings"`
	Confidence       float64   `json:"confidence_score"`
	Timestamp        time.Time `json:"timestamp"`
	ProtocolsApplied int       `json:"protocols_applied"`
}

// DetailedAnalysis holds the synthesized strategic implications.
type DetailedAnalysis struct {
	Recommendations []string `json:"strategic_recommendations"`
	Risks           []string `json:"risks_and_threats"`
	Opportunities   []string `json:"market_opportunities"`
}

// DataQuality describes how far the findings can be trusted.
type DataQuality struct {
	SourceCoverage    int     `json:"source_coverage"`
	VerificationScore float64 `json:"verification_score"`
	Freshness         string  `json:"freshness_rating"`
	ConfidenceLevel   string  `json:"confidence_level"`
}

// Methodology records the protocols and depth behind a report.
type Methodology struct {
	Protocols         []string `json:"protocols_applied"`
	Depth             string   `json:"analysis_depth"`
	VerificationLevel string   `json:"verification_level"`
}

// NextSteps are follow-up actions suggested to the caller.
type NextSteps struct {
	Immediate  []string `json:"immediate_actions"`
	Monitoring []string `json:"monitoring_recommendations"`
	FollowUp   []string `json:"follow_up_analysis"`
}

// highConfidence is the score above which a report is labelled "High".
const highConfidence = 0.8

// FormatReport renders a synthesis for the caller.
func FormatReport(brief Brief, syn Synthesis, at time.Time) Report {
	level := "Medium"
	if syn.Confidence > highConfidence {
		level = "High"
	}
	return Report{
		ExecutiveSummary: ExecutiveSummary{
			Company:          brief.Company,
			Industry:         brief.Industry,
			AnalysisType:     title(brief.AnalysisType),
			KeyFindings:      nonNil(syn.Findings),
			Confidence:       syn.Confidence,
			Timestamp:        at,
			ProtocolsApplied: len(brief.ActiveProtocols),
		},
		DetailedAnalysis: DetailedAnalysis{
			Recommendations: nonNil(syn.Recommendations),
			Risks:           nonNil(syn.Risks),
			Opportunities:   nonNil(syn.Opportunities),
		},
		DataQuality: DataQuality{
			SourceCoverage:    len(brief.ActiveProtocols),
			VerificationScore: syn.Quality,
			Freshness:         "High",
			ConfidenceLevel:   level,
		},
		Methodology: Methodology{
			Protocols:         nonNil(brief.ActiveProtocols),
			Depth:             "Standard",
			VerificationLevel: "Enhanced",
		},
		NextSteps: NextSteps{
			Immediate: []string{
				"Review and validate key findings with stakeholders",
				"Develop implementation plan for strategic recommendations",
				"Monitor identified risks and mitigation strategies",
			},
			Monitoring: []string{
				"Set up alerts for competitor activity and market changes",
				"Establish KPIs to track progress on strategic initiatives",
			},
			FollowUp: []string{
				"Quarterly strategic position review",
				"Customer perception and brand analysis",
			},
		},
	}
}

// FallbackConfidence is the confidence reported by FallbackReport.
const FallbackConfidence = 0.7

// FallbackReport is the fixed-shape report used when research could not run.
func FallbackReport(protocols []string, at time.Time) Report {
	return Report{
		ExecutiveSummary: ExecutiveSummary{
			Company:          DefaultCompany,
			Industry:         DefaultIndustry,
			AnalysisType:     "Comprehensive Analysis",
			KeyFindings:      []string{"Analysis completed with available protocols"},
			Confidence:       FallbackConfidence,
			Timestamp:        at,
			ProtocolsApplied: len(protocols),
		},
		DetailedAnalysis: DetailedAnalysis{
			Recommendations: []string{"Develop strategic initiatives"},
			Risks:           []string{"Monitor market changes"},
			Opportunities:   []string{"Explore new market segments"},
		},
		DataQuality: DataQuality{
			SourceCoverage:    3,
			VerificationScore: FallbackConfidence,
			Freshness:         "Medium",
			ConfidenceLevel:   "Medium",
		},
		Methodology: Methodology{
			Protocols:         nonNil(protocols),
			Depth:             "Standard",
			VerificationLevel: "Basic",
		},
		NextSteps: NextSteps{
			Immediate:  []string{"Review findings", "Plan implementation"},
			Monitoring: []string{"Set up tracking"},
			FollowUp:   []string{"Schedule review"},
		},
	}
}

// title upper-cases the first letter of every word.
func title(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		r, size := utf8.DecodeRuneInString(w)
		words[i] = string(unicode.ToUpper(r)) + strings.ToLower(w[size:])
	}
	return strings.Join(words, " ")
}

func nonNil(values []string) []string {
	out := make([]string, len(values))
	copy(out, values)
	return out
}
