// Package protocol defines the analysis protocols carried through a run and
// the catalog interface that selects them.
package protocol

import (
	"context"
	"fmt"

	"github.com/sweetpotato0/mapshock/enrich"
	errs "github.com/sweetpotato0/mapshock/errors"
)

// Selected is one protocol chosen for a run.
type Selected struct {
	Name       string  `json:"protocol_name"`
	ID         string  `json:"protocol_id"`
	Reason     string  `json:"selection_reason"`
	Confidence float64 `json:"confidence_score"`
}

// Selection is an ordered list of protocols. Order is preserved end to end.
type Selection struct {
	Protocols  []Selected `json:"selected_protocols"`
	Strategy   string     `json:"selection_strategy"`
	Confidence float64    `json:"confidence_score"`
}

// Names lists protocol names in selection order.
func (s *Selection) Names() []string {
	if s == nil {
		return []string{}
	}
	names := make([]string, len(s.Protocols))
	for i, p := range s.Protocols {
		names[i] = p.Name
	}
	return names
}

// Count returns the number of selected protocols.
func (s *Selection) Count() int {
	if s == nil {
		return 0
	}
	return len(s.Protocols)
}

// Catalog selects protocols for an enriched context.
type Catalog interface {
	Select(ctx context.Context, c *enrich.Context) (*Selection, error)
}

// CatalogFunc adapts a function to Catalog.
type CatalogFunc func(ctx context.Context, c *enrich.Context) (*Selection, error)

// Select implements Catalog.
func (f CatalogFunc) Select(ctx context.Context, c *enrich.Context) (*Selection, error) {
	return f(ctx, c)
}

// FallbackStrategy names the strategy of the fallback selection.
const FallbackStrategy = "fallback_basic_protocols"

// Fallback returns the fixed selection used when no catalog result is available.
func Fallback() *Selection {
	return &Selection{
		Protocols: []Selected{
			{Name: "Data Verification Framework", ID: "DVF_V1_0", Reason: "Core verification protocol", Confidence: 0.8},
			{Name: "Strategic Planning Template", ID: "SPT_V1_0", Reason: "Strategic analysis protocol", Confidence: 0.7},
			{Name: "Confidence Calibration", ID: "PROTOCOL_9_3", Reason: "Confidence assessment protocol", Confidence: 0.8},
		},
		Strategy:   FallbackStrategy,
		Confidence: 0.7,
	}
}

// Validate checks a catalog result before it is carried forward.
func Validate(s *Selection) error {
	if s == nil {
		return fmt.Errorf("%w: nil protocol selection", errs.ErrInvalidInput)
	}
	for i, p := range s.Protocols {
		if p.ID == "" || p.Name == "" {
			return fmt.Errorf("%w: protocol %d missing id or name", errs.ErrInvalidInput, i)
		}
		if p.Confidence < 0 || p.Confidence > 1 {
			return fmt.Errorf("%w: protocol %s confidence %.2f out of range", errs.ErrInvalidInput, p.ID, p.Confidence)
		}
	}
	return nil
}
