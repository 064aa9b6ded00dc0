package research

import "github.com/sweetpotato0/mapshock/prompt"

const (
	systemTemplate = "research.system"
	userTemplate   = "research.user"
)

const defaultSystemPrompt = `You are a MAPSHOCK intelligence analyst. Respond with a single JSON object and nothing else:
{
  "executive_summary": {"key_findings": ["..."], "confidence_score": 0.0},
  "detailed_analysis": {"insights": "...", "trends": ["..."], "data_points": ["..."]},
  "strategic_implications": {"recommendations": ["..."], "risks": ["..."], "opportunities": ["..."]},
  "confidence_indicators": {"data_quality": "...", "reliability": "..."}
}
confidence_score is a number between 0 and 1.`

const defaultUserPrompt = `Analysis Context:
Company: {{.Brief.Company}}
Industry: {{.Brief.Industry}}
Analysis Type: {{.Brief.AnalysisType}}
Active Protocols: {{join .Brief.ActiveProtocols ", "}}

Research Query: {{.Query.Text}}

Provide detailed analysis following MAPSHOCK protocols.`

// promptData is what the user template renders from.
type promptData struct {
	Brief Brief
	Query Query
}

func newPromptManager(system string) (*prompt.Manager, error) {
	if system == "" {
		system = defaultSystemPrompt
	}
	m := prompt.NewManager()
	if err := m.RegisterString(systemTemplate, system); err != nil {
		return nil, err
	}
	if err := m.RegisterString(userTemplate, defaultUserPrompt); err != nil {
		return nil, err
	}
	return m, nil
}
