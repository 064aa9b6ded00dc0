package workflow

import (
	"time"

	"github.com/sweetpotato0/mapshock/enrich"
	"github.com/sweetpotato0/mapshock/entity"
	"github.com/sweetpotato0/mapshock/protocol"
	"github.com/sweetpotato0/mapshock/research"
	"github.com/sweetpotato0/mapshock/search"
)

// Stage names a state of the run.
type Stage string

const (
	StageInit              Stage = "init"
	StageContextAnalysis   Stage = "context_analysis"
	StageProtocolSelection Stage = "protocol_selection"
	StageResearchExecution Stage = "research_execution"
	StageFinalizeOutput    Stage = "finalize_output"
	StageDone              Stage = "done"
)

// Stages lists every state in execution order.
var Stages = []Stage{
	StageInit,
	StageContextAnalysis,
	StageProtocolSelection,
	StageResearchExecution,
	StageFinalizeOutput,
	StageDone,
}

// StageTimes maps a stage to its elapsed wall-clock seconds.
type StageTimes map[Stage]float64

// Total sums every recorded stage.
func (t StageTimes) Total() float64 {
	var sum float64
	for _, v := range t {
		sum += v
	}
	return sum
}

// StageStatus is how a working stage ended.
type StageStatus string

const (
	StatusCompleted StageStatus = "completed"
	StatusFallback  StageStatus = "fallback"
	StatusFailed    StageStatus = "failed"
)

// ProcessingSummary reports timing and status per stage.
type ProcessingSummary struct {
	TotalSeconds      float64     `json:"total_processing_time"`
	StageTimes        StageTimes  `json:"stage_times"`
	ContextAnalysis   StageStatus `json:"context_analysis"`
	ProtocolSelection StageStatus `json:"protocol_selection"`
	ResearchExecution StageStatus `json:"research_execution"`
	OutputFormatting  StageStatus `json:"output_formatting"`
}

// ContextSummary condenses the context analysis stage.
type ContextSummary struct {
	Success           bool       `json:"success"`
	SearchesCompleted int        `json:"searches_completed"`
	Entities          entity.Set `json:"entities_extracted"`
	Confidence        float64    `json:"confidence_score"`
}

// ProtocolSummary condenses the protocol selection stage.
type ProtocolSummary struct {
	Success    bool    `json:"success"`
	Count      int     `json:"protocols_selected"`
	Strategy   string  `json:"selection_strategy"`
	Confidence float64 `json:"selection_confidence"`
}

// ResearchSummary condenses the research execution stage.
type ResearchSummary struct {
	Success          bool    `json:"success"`
	QueriesExecuted  int     `json:"llm_queries_executed"`
	SynthesisQuality float64 `json:"synthesis_quality"`
}

// Summary describes what every stage produced.
type Summary struct {
	Context  ContextSummary  `json:"context_agent"`
	Protocol ProtocolSummary `json:"protocol_selector"`
	Research ResearchSummary `json:"research_agent"`
}

// ResearchOutput is what the research stage produced besides the formatted report.
type ResearchOutput struct {
	Brief     research.Brief      `json:"refined_context"`
	Queries   []research.Query    `json:"research_queries"`
	Responses []research.Response `json:"llm_responses"`
	Synthesis research.Synthesis  `json:"synthesized_results"`
	Fallback  bool                `json:"fallback"`
}

// Report is the terminal artifact of a run. Success is false iff any stage
// recorded an error; Error then holds the first message. Context, Protocols
// and Research carry the full stage outputs, fallback values included.
type Report struct {
	Success           bool                     `json:"success"`
	SessionID         string                   `json:"workflow_id"`
	Timestamp         time.Time                `json:"timestamp"`
	TotalSeconds      float64                  `json:"total_processing_time"`
	Results           research.Report          `json:"results"`
	Summary           Summary                  `json:"workflow_summary"`
	ProtocolsApplied  []string                 `json:"protocols_applied"`
	ProtocolCount     int                      `json:"protocol_count"`
	Confidence        float64                  `json:"confidence_score"`
	ConfidenceMetrics search.ConfidenceMetrics `json:"confidence_metrics"`
	Context           *enrich.Context          `json:"context_analysis"`
	Protocols         *protocol.Selection      `json:"protocol_selection"`
	Research          ResearchOutput           `json:"research_execution"`
	Processing        ProcessingSummary        `json:"processing_summary"`
	Path              []Stage                  `json:"stages"`
	Metadata          map[string]any           `json:"metadata,omitempty"`
	Error             string                   `json:"error,omitempty"`
	Errors            []string                 `json:"errors,omitempty"`
}

// ErrorReport is the fixed-shape report for a run that could not execute at all.
func ErrorReport(sessionID string, err error) *Report {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	now := time.Now().UTC()
	c := enrich.Fallback(sessionID, "")
	sel := &protocol.Selection{Protocols: []protocol.Selected{}}
	return &Report{
		Success:           false,
		SessionID:         sessionID,
		Timestamp:         now,
		Results:           research.FallbackReport(sel.Names(), now),
		ProtocolsApplied:  sel.Names(),
		ConfidenceMetrics: c.Confidence,
		Context:           c,
		Protocols:         sel,
		Research: ResearchOutput{
			Brief:     research.BuildBrief(c, sel),
			Queries:   []research.Query{},
			Responses: []research.Response{},
			Synthesis: research.Synthesis{
				Findings:        []string{},
				Recommendations: []string{},
				Risks:           []string{},
				Opportunities:   []string{},
			},
			Fallback: true,
		},
		Processing: ProcessingSummary{
			StageTimes:        StageTimes{},
			ContextAnalysis:   StatusFailed,
			ProtocolSelection: StatusFailed,
			ResearchExecution: StatusFailed,
			OutputFormatting:  StatusFailed,
		},
		Path:   []Stage{},
		Error:  msg,
		Errors: []string{msg},
	}
}
