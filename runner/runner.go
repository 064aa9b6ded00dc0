package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	errs "github.com/sweetpotato0/mapshock/errors"
	"github.com/sweetpotato0/mapshock/pkg/logging"
	"github.com/sweetpotato0/mapshock/pkg/metrics"
	"golang.org/x/sync/errgroup"
)

const (
	// DefaultMaxConcurrency bounds how many operations run at once.
	DefaultMaxConcurrency = 15
	// DefaultTimeout bounds a single operation.
	DefaultTimeout = 30 * time.Second
)

// Config controls a Fanout.
type Config struct {
	Name           string        // Batch name used in logs and metrics
	MaxConcurrency int           // Upper bound on in-flight operations
	Timeout        time.Duration // Per-operation timeout
	Logger         *slog.Logger
}

// Option customises the fan-out configuration.
type Option func(*Config)

// WithName labels the batch for logs and metrics.
func WithName(name string) Option {
	return func(cfg *Config) {
		if name != "" {
			cfg.Name = name
		}
	}
}

// WithMaxConcurrency overrides the default concurrency bound.
func WithMaxConcurrency(n int) Option {
	return func(cfg *Config) {
		if n > 0 {
			cfg.MaxConcurrency = n
		}
	}
}

// WithTimeout overrides the per-operation timeout.
func WithTimeout(d time.Duration) Option {
	return func(cfg *Config) {
		if d > 0 {
			cfg.Timeout = d
		}
	}
}

// WithLogger sets the logger used for per-operation failures.
func WithLogger(l *slog.Logger) Option {
	return func(cfg *Config) {
		if l != nil {
			cfg.Logger = l
		}
	}
}

func defaultConfig() *Config {
	return &Config{
		Name:           "fanout",
		MaxConcurrency: DefaultMaxConcurrency,
		Timeout:        DefaultTimeout,
	}
}

// Fanout runs batches of independent operations with bounded concurrency.
// A Fanout holds no per-batch state and can be shared between runs.
type Fanout struct {
	cfg    *Config
	logger *slog.Logger
}

// NewFanout creates a fan-out executor.
func NewFanout(opts ...Option) *Fanout {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.WithComponent("runner")
	}
	return &Fanout{cfg: cfg, logger: logger.With("batch", cfg.Name)}
}

// MaxConcurrency reports the configured concurrency bound.
func (f *Fanout) MaxConcurrency() int { return f.cfg.MaxConcurrency }

// Timeout reports the per-operation timeout.
func (f *Fanout) Timeout() time.Duration { return f.cfg.Timeout }

// Result is the outcome of one operation. Exactly one of Value and Err is meaningful.
type Result[In, Out any] struct {
	Index    int
	Input    In
	Value    Out
	Err      error
	Duration time.Duration
}

// OK reports whether the operation succeeded.
func (r Result[In, Out]) OK() bool { return r.Err == nil }

// Gather invokes op once per input and returns one Result per input, in input order.
// Individual failures, timeouts and panics are captured in the corresponding Result;
// the returned error is reserved for setup problems such as a nil operation.
// Cancelling ctx cancels every in-flight operation of the batch.
func Gather[In, Out any](ctx context.Context, f *Fanout, inputs []In, op func(context.Context, In) (Out, error)) ([]Result[In, Out], error) {
	if op == nil {
		return nil, fmt.Errorf("%w: nil operation", errs.ErrInvalidInput)
	}
	if ctx == nil {
		return nil, fmt.Errorf("%w: nil context", errs.ErrInvalidInput)
	}
	if f == nil {
		f = NewFanout()
	}

	results := make([]Result[In, Out], len(inputs))
	if len(inputs) == 0 {
		return results, nil
	}

	var g errgroup.Group
	g.SetLimit(f.cfg.MaxConcurrency)
	for i, in := range inputs {
		g.Go(func() error {
			results[i] = invoke(ctx, f, i, in, op)
			return nil
		})
	}
	_ = g.Wait()

	failed := Failed(results)
	if failed > 0 {
		f.logger.Warn("fan-out finished with failures", "total", len(results), "failed", failed)
	} else {
		f.logger.Debug("fan-out finished", "total", len(results))
	}
	return results, nil
}

type outcome[Out any] struct {
	value Out
	err   error
}

func invoke[In, Out any](ctx context.Context, f *Fanout, idx int, in In, op func(context.Context, In) (Out, error)) Result[In, Out] {
	res := Result[In, Out]{Index: idx, Input: in}
	start := time.Now()

	if err := ctx.Err(); err != nil {
		res.Err = err
		metrics.RecordFanout(f.cfg.Name, res.Err, 0)
		return res
	}

	opCtx, cancel := context.WithTimeout(ctx, f.cfg.Timeout)
	defer cancel()

	// The operation runs in its own goroutine so a member that ignores its
	// context cannot hold the batch past the timeout.
	done := make(chan outcome[Out], 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome[Out]{err: fmt.Errorf("%w: panic in operation %d: %v", errs.ErrInternal, idx, r)}
			}
		}()
		v, err := op(opCtx, in)
		done <- outcome[Out]{value: v, err: err}
	}()

	select {
	case o := <-done:
		res.Value, res.Err = o.value, o.err
	case <-opCtx.Done():
		if ctx.Err() == nil && errors.Is(opCtx.Err(), context.DeadlineExceeded) {
			res.Err = fmt.Errorf("%w: operation %d exceeded %s", errs.ErrTimeout, idx, f.cfg.Timeout)
		} else {
			res.Err = opCtx.Err()
		}
	}

	if res.Err != nil {
		f.logger.Debug("operation failed", "index", idx, "error", res.Err)
	}
	res.Duration = time.Since(start)
	metrics.RecordFanout(f.cfg.Name, res.Err, res.Duration)
	return res
}

// Failed counts failed results.
func Failed[In, Out any](results []Result[In, Out]) int {
	n := 0
	for _, r := range results {
		if r.Err != nil {
			n++
		}
	}
	return n
}
