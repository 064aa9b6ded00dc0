package middleware

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	errs "github.com/sweetpotato0/mapshock/errors"
	"github.com/sweetpotato0/mapshock/pkg/logging"
	"github.com/sweetpotato0/mapshock/search"
)

type providerFunc func(ctx context.Context, query string, depth search.Depth) (*search.Result, error)

func (f providerFunc) Search(ctx context.Context, query string, depth search.Depth) (*search.Result, error) {
	return f(ctx, query, depth)
}

type recorder struct {
	name  string
	order *[]string
}

func (r *recorder) Name() string { return r.name }

func (r *recorder) Execute(ctx *Context, next Handler) error {
	*r.order = append(*r.order, r.name+":before")
	err := next(ctx)
	*r.order = append(*r.order, r.name+":after")
	return err
}

func TestChainOrder(t *testing.T) {
	var order []string
	chain := NewChain(&recorder{"a", &order}).Add(&recorder{"b", &order})
	err := chain.Execute(NewContext(context.Background(), "q", search.DepthBasic), func(*Context) error {
		order = append(order, "final")
		return nil
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	want := []string{"a:before", "b:before", "final", "b:after", "a:after"}
	if fmt.Sprint(order) != fmt.Sprint(want) {
		t.Errorf("order = %v, want %v", order, want)
	}
}

func TestWrapPassesResult(t *testing.T) {
	var seen string
	p := Wrap(providerFunc(func(ctx context.Context, q string, d search.Depth) (*search.Result, error) {
		seen = q
		return &search.Result{Query: q, Hits: []search.Hit{{Title: "t"}}}, nil
	}), NewQueryValidator(0), NewLogger(logging.Discard()))

	res, err := p.Search(context.Background(), "  acme market  ", search.DepthAdvanced)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if seen != "acme market" {
		t.Errorf("provider saw %q", seen)
	}
	if len(res.Hits) != 1 {
		t.Errorf("expected 1 hit, got %d", len(res.Hits))
	}
}

func TestWrapWithoutMiddlewareReturnsProvider(t *testing.T) {
	p := providerFunc(func(context.Context, string, search.Depth) (*search.Result, error) { return nil, nil })
	if got := Wrap(p); got == nil {
		t.Fatal("expected the provider back")
	}
}

func TestQueryValidator(t *testing.T) {
	called := false
	p := Wrap(providerFunc(func(context.Context, string, search.Depth) (*search.Result, error) {
		called = true
		return &search.Result{}, nil
	}), NewQueryValidator(10))

	for _, q := range []string{"   ", "a query that is far too long"} {
		if _, err := p.Search(context.Background(), q, search.DepthBasic); !errors.Is(err, errs.ErrInvalidInput) {
			t.Errorf("query %q: expected ErrInvalidInput, got %v", q, err)
		}
	}
	if called {
		t.Error("provider should not be called for invalid queries")
	}
}

func TestRateLimiterHonoursContext(t *testing.T) {
	limiter := NewRateLimiter(0.001, 1)
	p := Wrap(providerFunc(func(context.Context, string, search.Depth) (*search.Result, error) {
		return &search.Result{}, nil
	}), limiter)

	if _, err := p.Search(context.Background(), "first", search.DepthBasic); err != nil {
		t.Fatalf("first call should use the burst: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := p.Search(ctx, "second", search.DepthBasic); !errors.Is(err, errs.ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
}

func TestErrorHandlerMapsErrors(t *testing.T) {
	boom := errors.New("boom")
	p := Wrap(providerFunc(func(context.Context, string, search.Depth) (*search.Result, error) {
		return nil, boom
	}), NewErrorHandler(func(ctx *Context, err error) error {
		return fmt.Errorf("%w: %s: %v", errs.ErrSearchFailed, ctx.Query, err)
	}), NewLogger(logging.Discard()))

	_, err := p.Search(context.Background(), "acme", search.DepthBasic)
	if !errors.Is(err, errs.ErrSearchFailed) {
		t.Fatalf("expected ErrSearchFailed, got %v", err)
	}
}
