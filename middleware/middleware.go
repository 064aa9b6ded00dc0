// Package middleware wraps a search.Provider with a chain of interceptors.
package middleware

import (
	"context"

	"github.com/sweetpotato0/mapshock/search"
)

// Context represents the middleware execution context
type Context struct {
	Query string
	Depth search.Depth

	// Result is set by the provider once the chain reaches it.
	Result *search.Result

	// Metadata for passing data between middlewares
	Metadata map[string]any

	context context.Context
}

// NewContext creates a new middleware context
func NewContext(ctx context.Context, query string, depth search.Depth) *Context {
	return &Context{
		Query:    query,
		Depth:    depth,
		Metadata: make(map[string]any),
		context:  ctx,
	}
}

// Context returns the underlying context.Context
func (c *Context) Context() context.Context {
	return c.context
}

// Middleware can intercept and modify a search call.
type Middleware interface {
	// Name returns the name of the middleware for logging and debugging
	Name() string

	// Execute runs the middleware logic. Returning an error stops the chain.
	Execute(ctx *Context, next Handler) error
}

// Handler is the function called to pass control to the next middleware
type Handler func(*Context) error

// Chain represents a sequence of middleware to be executed
type Chain struct {
	middlewares []Middleware
}

// NewChain creates a new middleware chain
func NewChain(middlewares ...Middleware) *Chain {
	return &Chain{middlewares: middlewares}
}

// Add appends a middleware to the chain
func (c *Chain) Add(m Middleware) *Chain {
	c.middlewares = append(c.middlewares, m)
	return c
}

// Execute runs all middlewares in the chain, then final.
func (c *Chain) Execute(ctx *Context, final Handler) error {
	return c.execute(ctx, 0, final)
}

func (c *Chain) execute(ctx *Context, index int, final Handler) error {
	if index >= len(c.middlewares) {
		return final(ctx)
	}
	next := func(ctx *Context) error {
		return c.execute(ctx, index+1, final)
	}
	return c.middlewares[index].Execute(ctx, next)
}

// Wrap returns a provider that runs every search through the chain.
func Wrap(provider search.Provider, middlewares ...Middleware) search.Provider {
	if len(middlewares) == 0 {
		return provider
	}
	return &wrapped{provider: provider, chain: NewChain(middlewares...)}
}

type wrapped struct {
	provider search.Provider
	chain    *Chain
}

func (w *wrapped) Search(ctx context.Context, query string, depth search.Depth) (*search.Result, error) {
	mctx := NewContext(ctx, query, depth)
	err := w.chain.Execute(mctx, func(c *Context) error {
		res, err := w.provider.Search(c.Context(), c.Query, c.Depth)
		if err != nil {
			return err
		}
		c.Result = res
		return nil
	})
	if err != nil {
		return nil, err
	}
	return mctx.Result, nil
}
