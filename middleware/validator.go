package middleware

import (
	"fmt"
	"strings"

	errs "github.com/sweetpotato0/mapshock/errors"
)

// QueryValidator trims the query and rejects empty or oversized ones before
// they reach the provider.
type QueryValidator struct {
	maxLength int
}

// NewQueryValidator creates a validator; maxLength <= 0 disables the length check.
func NewQueryValidator(maxLength int) *QueryValidator {
	return &QueryValidator{maxLength: maxLength}
}

func (m *QueryValidator) Name() string {
	return "QueryValidator"
}

func (m *QueryValidator) Execute(ctx *Context, next Handler) error {
	ctx.Query = strings.TrimSpace(ctx.Query)
	if ctx.Query == "" {
		return fmt.Errorf("%w: empty search query", errs.ErrInvalidInput)
	}
	if m.maxLength > 0 && len([]rune(ctx.Query)) > m.maxLength {
		return fmt.Errorf("%w: search query longer than %d characters", errs.ErrInvalidInput, m.maxLength)
	}
	return next(ctx)
}
