package errors

import "errors"

// Sentinel errors shared by the pipeline packages.
var (
	// ErrNotFound indicates that a requested report or session was not found
	ErrNotFound = errors.New("resource not found")

	// ErrInvalidInput indicates that input validation failed
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnavailable indicates that a collaborator (search provider, language model, catalog) is not configured
	ErrUnavailable = errors.New("collaborator unavailable")

	// ErrSearchFailed indicates that a search provider call did not produce results
	ErrSearchFailed = errors.New("search failed")

	// ErrSynthesisFailed indicates that no research response could be synthesized
	ErrSynthesisFailed = errors.New("synthesis failed")

	// ErrTimeout indicates that an operation exceeded its deadline
	ErrTimeout = errors.New("operation timed out")

	// ErrInternal indicates an internal error such as a recovered panic
	ErrInternal = errors.New("internal error")
)
