// Package entity extracts categorized tags from free text.
package entity

import (
	"regexp"
	"strings"
)

// Category names an entity bucket.
type Category string

const (
	Companies    Category = "companies"
	Industries   Category = "industries"
	Competitors  Category = "competitors"
	Products     Category = "products"
	Markets      Category = "markets"
	Technologies Category = "technologies"
)

// MaxPerCategory caps every category after dedupe.
const MaxPerCategory = 5

// Categories lists every category in a stable order.
var Categories = []Category{Companies, Industries, Competitors, Products, Markets, Technologies}

// Set maps a category to its extracted values. Every category key is present.
type Set map[Category][]string

// NewSet returns a set with every category initialised to an empty list.
func NewSet() Set {
	s := make(Set, len(Categories))
	for _, c := range Categories {
		s[c] = []string{}
	}
	return s
}

// Get returns the values of a category, never nil.
func (s Set) Get(c Category) []string {
	if v := s[c]; v != nil {
		return v
	}
	return []string{}
}

// First returns the first value of a category or fallback.
func (s Set) First(c Category, fallback string) string {
	if v := s.Get(c); len(v) > 0 {
		return v[0]
	}
	return fallback
}

// Total counts values across all categories.
func (s Set) Total() int {
	n := 0
	for _, v := range s {
		n += len(v)
	}
	return n
}

var (
	industryKeywords = []string{
		"technology", "tech", "ai", "artificial intelligence", "software", "fintech",
		"healthcare", "pharmaceutical", "automotive", "retail", "e-commerce",
		"manufacturing", "construction", "energy", "oil", "gas", "banking",
		"insurance", "telecommunications", "media", "entertainment", "gaming",
	}
	marketKeywords = []string{"market", "europe", "asia", "america", "global", "domestic", "international"}
	techKeywords   = []string{"cloud", "mobile", "web", "platform", "api", "blockchain", "ml", "data"}

	productKeywords = []string{
		"semiconductor", "chip", "smartphone", "device", "vehicle", "equipment",
		"saas", "subscription", "hardware", "drug", "service",
	}

	companyPatterns = []*regexp.Regexp{
		regexp.MustCompile(`\b[A-Z][a-zA-Z]+(?:\s+[A-Z][a-zA-Z]+)*(?:\s+(?:Inc|Corp|LLC|Ltd|Co|Company))?\b`),
		regexp.MustCompile(`\b[A-Z]{2,10}\b`),
	}
	competitorPattern = regexp.MustCompile(`(?i:\b(?:vs\.?|versus|against|compared (?:to|with))\s+)([A-Z][a-zA-Z]+(?:\s+[A-Z][a-zA-Z]+)*)`)
)

// matchesPerPattern bounds how many company candidates a single pattern contributes.
const matchesPerPattern = 3

// Extract maps text to a Set. It is pure and never fails; no matches yields empty categories.
func Extract(text string) Set {
	lower := strings.ToLower(text)
	raw := map[Category][]string{
		Industries:   containedKeywords(lower, industryKeywords),
		Markets:      containedKeywords(lower, marketKeywords),
		Technologies: containedKeywords(lower, techKeywords),
		Products:     containedKeywords(lower, productKeywords),
	}

	for _, re := range companyPatterns {
		raw[Companies] = append(raw[Companies], re.FindAllString(text, matchesPerPattern)...)
	}
	for _, m := range competitorPattern.FindAllStringSubmatch(text, -1) {
		raw[Competitors] = append(raw[Competitors], m[1])
	}

	out := NewSet()
	for _, c := range Categories {
		out[c] = dedupe(raw[c], MaxPerCategory)
	}
	return out
}

func containedKeywords(lower string, keywords []string) []string {
	var out []string
	for _, k := range keywords {
		if strings.Contains(lower, k) {
			out = append(out, k)
		}
	}
	return out
}

// dedupe keeps the first occurrence of every case-insensitive value, up to limit entries.
func dedupe(values []string, limit int) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, min(len(values), limit))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		key := strings.ToLower(v)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, v)
		if len(out) == limit {
			break
		}
	}
	return out
}
