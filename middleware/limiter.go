package middleware

import (
	"fmt"

	"golang.org/x/time/rate"

	errs "github.com/sweetpotato0/mapshock/errors"
)

// RateLimiter paces provider calls. Callers block until a token is available
// or their context ends.
type RateLimiter struct {
	limiter *rate.Limiter
}

// NewRateLimiter allows perSecond calls on average with the given burst.
func NewRateLimiter(perSecond float64, burst int) *RateLimiter {
	if burst < 1 {
		burst = 1
	}
	return &RateLimiter{limiter: rate.NewLimiter(rate.Limit(perSecond), burst)}
}

func (m *RateLimiter) Name() string {
	return "RateLimiter"
}

func (m *RateLimiter) Execute(ctx *Context, next Handler) error {
	if err := m.limiter.Wait(ctx.Context()); err != nil {
		return fmt.Errorf("%w: rate limit wait: %v", errs.ErrTimeout, err)
	}
	return next(ctx)
}
