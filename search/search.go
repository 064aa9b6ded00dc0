// Package search executes a query plan against a web search provider and
// condenses the hits into intelligence and confidence signals.
package search

import (
	"context"
	"time"
)

// Depth selects how thoroughly the provider searches.
type Depth string

const (
	DepthBasic    Depth = "basic"
	DepthAdvanced Depth = "advanced"
)

// Provider is the external web search collaborator.
// Implementations report failure either by returning an error or by
// returning a Result with Failed set; both are treated the same way.
type Provider interface {
	Search(ctx context.Context, query string, depth Depth) (*Result, error)
}

// Hit is a single search hit.
type Hit struct {
	Title         string  `json:"title"`
	URL           string  `json:"url"`
	Content       string  `json:"content"`
	Score         float64 `json:"score"`
	PublishedDate string  `json:"published_date,omitempty"`
	SourceDomain  string  `json:"source_domain"`
}

// Result is the response to one query.
type Result struct {
	Query      string    `json:"query"`
	Answer     string    `json:"answer"`
	Hits       []Hit     `json:"results"`
	CapturedAt time.Time `json:"timestamp"`
	HitCount   int       `json:"result_count"`
	Failed     bool      `json:"failed,omitempty"`
	Error      string    `json:"error,omitempty"`
}

// FailedResult builds the empty result that stands in for a failed query.
func FailedResult(query string, err error, at time.Time) Result {
	msg := "search failed"
	if err != nil {
		msg = err.Error()
	}
	return Result{
		Query:      query,
		Hits:       []Hit{},
		CapturedAt: at,
		Failed:     true,
		Error:      msg,
	}
}

// Freshness labels how recent the collected content looks.
type Freshness string

const (
	FreshnessHigh   Freshness = "high"
	FreshnessMedium Freshness = "medium"
)

// Insight is a ranked excerpt from a hit.
type Insight struct {
	Bucket string  `json:"category"`
	Text   string  `json:"insight"`
	Source string  `json:"source"`
	Score  float64 `json:"score"`
}

// Intelligence summarises every hit of a run.
type Intelligence struct {
	DataQuality     float64   `json:"data_quality_score"`
	SourceDiversity float64   `json:"source_diversity"`
	Freshness       Freshness `json:"content_freshness"`
	Insights        []Insight `json:"key_insights"`
	TotalHits       int       `json:"total_hits"`
	UniqueSources   int       `json:"unique_sources"`
}

// ConfidenceMetrics are derived scalars in [0,1].
type ConfidenceMetrics struct {
	DataQuality       float64 `json:"data_quality"`
	SourceDiversity   float64 `json:"source_diversity"`
	SearchSuccessRate float64 `json:"search_success_rate"`
	OverallConfidence float64 `json:"overall_confidence"`
}

// Finding is a short excerpt kept in a bucket summary.
type Finding struct {
	Title   string  `json:"title"`
	Preview string  `json:"content_preview"`
	Source  string  `json:"source"`
	Score   float64 `json:"score"`
}

// BucketSummary condenses the results of one bucket.
type BucketSummary struct {
	QueryCount    int       `json:"query_count"`
	TotalHits     int       `json:"total_results"`
	UniqueSources int       `json:"unique_sources"`
	TopSources    []string  `json:"top_sources"`
	KeyFindings   []Finding `json:"key_findings"`
	Coverage      float64   `json:"coverage_score"`
}
