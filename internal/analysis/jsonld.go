// Package analysis aggregates stored crawl records into summary reports.
package analysis

import (
	"sort"

	"github.com/mitchwxyz/DomainTools/pkg/ldjson"
	"github.com/mitchwxyz/DomainTools/pkg/types"
)

// Count pairs a label with how often it occurred, for ranked display.
type Count struct {
	Label string
	N     int
}

// JSONLDReport summarises a set of structured-data records.
type JSONLDReport struct {
	TotalDocuments int
	TypeCounts     map[string]int
	AuthorCounts   map[string]int
	PropertyCounts map[string]int
}

// AnalyzeJSONLD tallies schema types, author names, and property usage
// across every nested object of the given records.
func AnalyzeJSONLD(records []types.JSONLDRecord) JSONLDReport {
	report := JSONLDReport{
		TotalDocuments: len(records),
		TypeCounts:     make(map[string]int),
		AuthorCounts:   make(map[string]int),
		PropertyCounts: make(map[string]int),
	}
	for _, rec := range records {
		for _, t := range schemaTypes(rec.Data) {
			report.TypeCounts[t]++
		}
		for _, a := range authorNames(rec.Data) {
			report.AuthorCounts[a]++
		}
		rec.Data.WalkObjects(func(members map[string]ldjson.Value) {
			for key := range members {
				report.PropertyCounts[key]++
			}
		})
	}
	return report
}

// AnalyzeProperty counts the distinct values a property takes across all
// nested objects of the records. Scalar values count as themselves; arrays
// count each element.
func AnalyzeProperty(records []types.JSONLDRecord, property string) map[string]int {
	counts := make(map[string]int)
	for _, rec := range records {
		rec.Data.WalkObjects(func(members map[string]ldjson.Value) {
			value, ok := members[property]
			if !ok {
				return
			}
			if value.Kind() == ldjson.Array {
				for _, item := range value.Items() {
					counts[item.Scalar()]++
				}
				return
			}
			counts[value.Scalar()]++
		})
	}
	return counts
}

// schemaTypes extracts every "@type" value from the document's top level.
// A type may be a single string or an array of strings.
func schemaTypes(doc ldjson.Value) []string {
	var out []string
	collect := func(v ldjson.Value) {
		switch v.Kind() {
		case ldjson.String:
			out = append(out, v.Str())
		case ldjson.Array:
			for _, item := range v.Items() {
				if item.Kind() == ldjson.String {
					out = append(out, item.Str())
				}
			}
		}
	}
	switch doc.Kind() {
	case ldjson.Object:
		if t, ok := doc.Field("@type"); ok {
			collect(t)
		}
	case ldjson.Array:
		for _, item := range doc.Items() {
			if t, ok := item.Field("@type"); ok {
				collect(t)
			}
		}
	}
	return out
}

// authorNames extracts author names anywhere in the document. An author value
// may be a plain string, an object with a "name" member, or an array of
// either.
func authorNames(doc ldjson.Value) []string {
	var out []string
	var fromValue func(v ldjson.Value)
	fromValue = func(v ldjson.Value) {
		switch v.Kind() {
		case ldjson.String:
			out = append(out, v.Str())
		case ldjson.Object:
			if name, ok := v.Field("name"); ok && name.Kind() == ldjson.String {
				out = append(out, name.Str())
			}
		case ldjson.Array:
			for _, item := range v.Items() {
				fromValue(item)
			}
		}
	}
	doc.WalkObjects(func(members map[string]ldjson.Value) {
		if author, ok := members["author"]; ok {
			fromValue(author)
		}
	})
	return out
}

// TopN ranks a frequency map descending by count, breaking ties by label, and
// returns at most n entries. n <= 0 returns everything.
func TopN(counts map[string]int, n int) []Count {
	ranked := make([]Count, 0, len(counts))
	for label, count := range counts {
		ranked = append(ranked, Count{Label: label, N: count})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].N != ranked[j].N {
			return ranked[i].N > ranked[j].N
		}
		return ranked[i].Label < ranked[j].Label
	})
	if n > 0 && len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked
}
