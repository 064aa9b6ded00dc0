package research

import (
	"context"
	"time"
)

// LanguageModel is the external completion collaborator.
type LanguageModel interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// QueryType identifies one of the fixed research questions.
type QueryType string

const (
	PrimaryAnalysis     QueryType = "primary_analysis"
	CompetitiveAnalysis QueryType = "competitive_analysis"
	RiskAssessment      QueryType = "risk_assessment"
	OpportunityAnalysis QueryType = "opportunity_analysis"
)

// QueryTypes lists the research questions in dispatch order.
var QueryTypes = []QueryType{PrimaryAnalysis, CompetitiveAnalysis, RiskAssessment, OpportunityAnalysis}

// Priority of a research query.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
)

// Query is a single research question sent to the language model.
type Query struct {
	Type     QueryType `json:"query_type"`
	Text     string    `json:"query_text"`
	Priority Priority  `json:"priority"`
}

// Brief is the distilled context research prompts are built from.
type Brief struct {
	OriginalQuery   string   `json:"original_query"`
	Company         string   `json:"company"`
	Industry        string   `json:"industry"`
	AnalysisType    string   `json:"analysis_type"`
	ActiveProtocols []string `json:"active_protocols"`
}

// Analysis is the structured answer expected from the language model.
type Analysis struct {
	ExecutiveSummary struct {
		KeyFindings     StringList `json:"key_findings"`
		ConfidenceScore *float64   `json:"confidence_score"`
	} `json:"executive_summary"`
	DetailedAnalysis      any `json:"detailed_analysis,omitempty"`
	StrategicImplications struct {
		Recommendations StringList `json:"recommendations"`
		Risks           StringList `json:"risks"`
		Opportunities   StringList `json:"opportunities"`
	} `json:"strategic_implications"`
	ConfidenceIndicators any `json:"confidence_indicators,omitempty"`
}

// Response is the outcome of one research query.
type Response struct {
	Type      QueryType     `json:"query_type"`
	Query     string        `json:"query"`
	Priority  Priority      `json:"priority"`
	Analysis  *Analysis     `json:"response,omitempty"`
	Parsed    bool          `json:"parsed"`
	Success   bool          `json:"success"`
	Error     string        `json:"error,omitempty"`
	Duration  time.Duration `json:"duration"`
	Timestamp time.Time     `json:"timestamp"`
}

// Synthesis merges every successful response.
type Synthesis struct {
	Findings        []string `json:"key_findings"`
	Recommendations []string `json:"strategic_recommendations"`
	Risks           []string `json:"risks_and_threats"`
	Opportunities   []string `json:"opportunities"`
	Confidence      float64  `json:"confidence_score"`
	Quality         float64  `json:"synthesis_quality"`
	Successful      int      `json:"successful_responses"`
	Total           int      `json:"total_responses"`
	Success         bool     `json:"synthesis_success"`
	Error           string   `json:"error,omitempty"`
}

// Outcome is everything the research stage produced.
type Outcome struct {
	Brief     Brief      `json:"refined_context"`
	Queries   []Query    `json:"research_queries"`
	Responses []Response `json:"llm_responses"`
	Synthesis Synthesis  `json:"synthesized_results"`
	Report    Report     `json:"formatted_output"`
	Fallback  bool       `json:"fallback"`
}
