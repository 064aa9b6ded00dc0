package research

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sweetpotato0/mapshock/pkg/textclean"
)

// fallbackConfidence is the confidence reported for answers that are not valid JSON.
const fallbackConfidence = 0.75

// StringList decodes either a JSON array or a single scalar into a list of strings.
type StringList []string

// UnmarshalJSON implements json.Unmarshaler.
func (l *StringList) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*l = nil
		return nil
	}
	if data[0] == '[' {
		var raw []json.RawMessage
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		out := make([]string, 0, len(raw))
		for _, item := range raw {
			if s := scalarString(item); s != "" {
				out = append(out, s)
			}
		}
		*l = out
		return nil
	}
	if s := scalarString(data); s != "" {
		*l = []string{s}
	} else {
		*l = nil
	}
	return nil
}

// scalarString renders a JSON value as text; objects are kept as compact JSON.
func scalarString(data json.RawMessage) string {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		return strings.TrimSpace(s)
	}
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return ""
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, data); err == nil {
		return buf.String()
	}
	return strings.TrimSpace(string(data))
}

// decodeJSON tries to unmarshal the raw model output into T after stripping fences
// and any prose around the outermost object.
func decodeJSON[T any](raw string) (*T, error) {
	clean := sanitizeJSON(raw)
	var out T
	if err := json.Unmarshal([]byte(clean), &out); err != nil {
		return nil, fmt.Errorf("decode JSON: %w", err)
	}
	return &out, nil
}

func sanitizeJSON(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if strings.HasPrefix(trimmed, "```") {
		trimmed = trimmed[3:]
		trimmed = strings.TrimPrefix(trimmed, "json")
		trimmed = strings.TrimPrefix(trimmed, "JSON")
		if idx := strings.Index(trimmed, "```"); idx >= 0 {
			trimmed = trimmed[:idx]
		}
		trimmed = strings.TrimSpace(trimmed)
	}
	if !strings.HasPrefix(trimmed, "{") {
		start := strings.Index(trimmed, "{")
		end := strings.LastIndex(trimmed, "}")
		if start >= 0 && end > start {
			trimmed = trimmed[start : end+1]
		}
	}
	return trimmed
}

// parseAnalysis decodes a model answer. Text that is not a JSON object is wrapped
// into a single-finding analysis; the second return reports whether decoding worked.
func parseAnalysis(raw string, qt QueryType) (*Analysis, bool) {
	if a, err := decodeJSON[Analysis](raw); err == nil {
		return a, true
	}
	a := &Analysis{DetailedAnalysis: map[string]any{"insights": raw}}
	conf := fallbackConfidence
	a.ExecutiveSummary.KeyFindings = StringList{textclean.Preview(strings.TrimSpace(raw), 200)}
	a.ExecutiveSummary.ConfidenceScore = &conf
	a.StrategicImplications.Recommendations = StringList{fmt.Sprintf("Strategic recommendation for %s", qt)}
	a.StrategicImplications.Risks = StringList{fmt.Sprintf("Risk identified in %s", qt)}
	a.StrategicImplications.Opportunities = StringList{fmt.Sprintf("Opportunity from %s", qt)}
	return a, false
}
