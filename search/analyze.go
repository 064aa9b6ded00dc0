package search

import (
	"sort"
	"strings"

	"github.com/sweetpotato0/mapshock/pkg/textclean"
	"github.com/sweetpotato0/mapshock/query"
)

const (
	hitsForFullQuality   = 10.0
	sourcesForDiversity  = 8.0
	freshnessThreshold   = 0.6
	insightMinContentLen = 100
	insightPreviewLen    = 200
	maxInsights          = 10

	findingMinContentLen = 50
	findingTitleLen      = 100
	maxFindings          = 5
	maxTopSources        = 5

	unknownSource = "unknown"
)

var recencyMarkers = []string{"2024", "recent", "latest", "new"}

// Analyze scans every hit across buckets and derives the run's intelligence.
func Analyze(results map[query.Bucket][]Result) Intelligence {
	var (
		total    int
		recent   int
		sources  = map[string]struct{}{}
		insights []Insight
	)
	for _, b := range query.Buckets {
		for _, r := range results[b] {
			for _, h := range r.Hits {
				total++
				sources[sourceOf(h)] = struct{}{}
				if isRecent(h.Content) {
					recent++
				}
				if len(h.Content) > insightMinContentLen {
					insights = append(insights, Insight{
						Bucket: string(b),
						Text:   textclean.Preview(h.Content, insightPreviewLen),
						Source: h.SourceDomain,
						Score:  h.Score,
					})
				}
			}
		}
	}

	sort.SliceStable(insights, func(i, j int) bool { return insights[i].Score > insights[j].Score })
	if len(insights) > maxInsights {
		insights = insights[:maxInsights]
	}
	if insights == nil {
		insights = []Insight{}
	}

	freshness := FreshnessMedium
	if float64(recent) > float64(total)*freshnessThreshold {
		freshness = FreshnessHigh
	}

	return Intelligence{
		DataQuality:     min(1.0, float64(total)/hitsForFullQuality),
		SourceDiversity: min(1.0, float64(len(sources))/sourcesForDiversity),
		Freshness:       freshness,
		Insights:        insights,
		TotalHits:       total,
		UniqueSources:   len(sources),
	}
}

// Confidence combines intelligence with the query failure rate.
// The success-rate divisor is the number of planned queries; an empty plan yields zero.
func Confidence(intel Intelligence, failed, planned int) ConfidenceMetrics {
	rate := 0.0
	if planned > 0 {
		rate = 1.0 - float64(failed)/float64(planned)
		rate = max(0, min(1, rate))
	}
	return ConfidenceMetrics{
		DataQuality:       intel.DataQuality,
		SourceDiversity:   intel.SourceDiversity,
		SearchSuccessRate: rate,
		OverallConfidence: (intel.DataQuality + intel.SourceDiversity + rate) / 3.0,
	}
}

// Summarize condenses the results of a single bucket.
func Summarize(results []Result) BucketSummary {
	var (
		total    int
		counts   = map[string]int{}
		order    []string
		findings []Finding
	)
	for _, r := range results {
		for _, h := range r.Hits {
			total++
			src := sourceOf(h)
			if _, ok := counts[src]; !ok {
				order = append(order, src)
			}
			counts[src]++
			if len(h.Content) > findingMinContentLen {
				findings = append(findings, Finding{
					Title:   textclean.Truncate(h.Title, findingTitleLen),
					Preview: textclean.Truncate(h.Content, insightPreviewLen),
					Source:  h.SourceDomain,
					Score:   h.Score,
				})
			}
		}
	}

	sort.SliceStable(findings, func(i, j int) bool { return findings[i].Score > findings[j].Score })
	if len(findings) > maxFindings {
		findings = findings[:maxFindings]
	}
	if findings == nil {
		findings = []Finding{}
	}

	top := append([]string(nil), order...)
	sort.SliceStable(top, func(i, j int) bool { return counts[top[i]] > counts[top[j]] })
	if len(top) > maxTopSources {
		top = top[:maxTopSources]
	}
	if top == nil {
		top = []string{}
	}

	return BucketSummary{
		QueryCount:    len(results),
		TotalHits:     total,
		UniqueSources: len(counts),
		TopSources:    top,
		KeyFindings:   findings,
		Coverage:      min(1.0, float64(total)/hitsForFullQuality),
	}
}

func sourceOf(h Hit) string {
	if h.SourceDomain == "" {
		return unknownSource
	}
	return h.SourceDomain
}

func isRecent(content string) bool {
	lower := strings.ToLower(content)
	for _, m := range recencyMarkers {
		if strings.Contains(lower, m) {
			return true
		}
	}
	return false
}
