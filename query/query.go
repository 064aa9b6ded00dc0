// Package query turns extracted entities into a fixed-shape search plan.
package query

import (
	"fmt"
	"strings"

	"github.com/sweetpotato0/mapshock/entity"
)

// Bucket names a group of planned queries.
type Bucket string

const (
	Company     Bucket = "company"
	Industry    Bucket = "industry"
	Competition Bucket = "competition"
)

const (
	// PerBucket is the exact number of queries in every bucket.
	PerBucket = 5
	// entitiesPerBucket bounds how many entities drive templated queries.
	entitiesPerBucket = 2
	// baseTokens is how many leading words of the input feed padding queries.
	baseTokens = 3
)

// Buckets lists the buckets in plan order.
var Buckets = []Bucket{Company, Industry, Competition}

// Item is one planned query with its bucket.
type Item struct {
	Bucket Bucket
	Query  string
}

// Plan maps every bucket to exactly PerBucket queries.
type Plan map[Bucket][]string

// Total returns the number of planned queries.
func (p Plan) Total() int {
	n := 0
	for _, b := range Buckets {
		n += len(p[b])
	}
	return n
}

// Flatten lists (bucket, query) pairs in bucket order, preserving query order.
func (p Plan) Flatten() []Item {
	items := make([]Item, 0, p.Total())
	for _, b := range Buckets {
		for _, q := range p[b] {
			items = append(items, Item{Bucket: b, Query: q})
		}
	}
	return items
}

type bucketTemplates struct {
	category entity.Category
	perItem  []string
	padding  []string
}

var templates = map[Bucket]bucketTemplates{
	Company: {
		category: entity.Companies,
		perItem:  []string{"%s financial performance 2024", "%s market share analysis", "%s recent news updates"},
		padding:  []string{"%s company analysis", "%s business model"},
	},
	Industry: {
		category: entity.Industries,
		perItem:  []string{"%s industry trends 2024", "%s market size forecast", "%s growth analysis"},
		padding:  []string{"%s industry overview", "%s market trends"},
	},
	Competition: {
		category: entity.Competitors,
		perItem:  []string{"%s vs competitors", "%s competitive analysis"},
		padding:  []string{"%s competitors analysis", "%s competitive landscape", "%s market competition"},
	},
}

// Generate builds the plan for text. It is pure: equal inputs give equal plans,
// and every bucket holds exactly PerBucket queries however sparse the entities are.
func Generate(text string, entities entity.Set) Plan {
	base := baseTerms(text)
	plan := make(Plan, len(Buckets))
	for _, b := range Buckets {
		plan[b] = build(templates[b], entities.Get(templates[b].category), base)
	}
	return plan
}

func build(t bucketTemplates, values []string, base string) []string {
	out := make([]string, 0, PerBucket+len(t.padding))
	for i, v := range values {
		if i == entitiesPerBucket {
			break
		}
		for _, tmpl := range t.perItem {
			out = append(out, fmt.Sprintf(tmpl, v))
		}
	}
	for len(out) < PerBucket {
		for _, tmpl := range t.padding {
			out = append(out, strings.TrimSpace(fmt.Sprintf(tmpl, base)))
		}
	}
	return out[:PerBucket]
}

func baseTerms(text string) string {
	fields := strings.Fields(text)
	if len(fields) > baseTokens {
		fields = fields[:baseTokens]
	}
	return strings.Join(fields, " ")
}
