package analysis

import (
	"strings"

	"github.com/mitchwxyz/DomainTools/pkg/types"
)

// Paragraph length buckets, in characters.
const (
	bucketVeryShortMax = 50
	bucketShortMax     = 100
	bucketMediumMax    = 200
)

// minKeywordLength filters short stop-words out of keyword counts.
const minKeywordLength = 4

// TextReport summarises a set of cleaned page-text records.
type TextReport struct {
	TotalPages           int
	TotalWords           int
	AverageWordsPerPage  float64
	PagesWithHeadings    int
	PagesWithDescription int
	HeadingsByLevel      map[string]int
	CommonHeadings       map[string]int
	ParagraphBuckets     map[string]int
	KeywordCounts        map[string]int
	PagesByDate          map[string]int
	WordsByDate          map[string]int
}

// AnalyzeText aggregates page counts, heading usage, paragraph length
// distribution, keyword frequency, and per-day crawl activity.
func AnalyzeText(records []types.TextRecord) TextReport {
	report := TextReport{
		TotalPages:       len(records),
		HeadingsByLevel:  make(map[string]int),
		CommonHeadings:   make(map[string]int),
		ParagraphBuckets: make(map[string]int),
		KeywordCounts:    make(map[string]int),
		PagesByDate:      make(map[string]int),
		WordsByDate:      make(map[string]int),
	}
	for _, rec := range records {
		report.TotalWords += rec.WordCount
		if len(rec.Headings) > 0 {
			report.PagesWithHeadings++
		}
		if strings.TrimSpace(rec.MetaDescription) != "" {
			report.PagesWithDescription++
		}
		for _, h := range rec.Headings {
			report.HeadingsByLevel[h.Level]++
			report.CommonHeadings[strings.ToLower(strings.TrimSpace(h.Text))]++
		}
		for _, p := range rec.Paragraphs {
			report.ParagraphBuckets[paragraphBucket(len(p))]++
			countKeywords(p, report.KeywordCounts)
		}
		if !rec.CrawledAt.IsZero() {
			day := rec.CrawledAt.Format("2006-01-02")
			report.PagesByDate[day]++
			report.WordsByDate[day] += rec.WordCount
		}
	}
	if report.TotalPages > 0 {
		report.AverageWordsPerPage = float64(report.TotalWords) / float64(report.TotalPages)
	}
	return report
}

func paragraphBucket(length int) string {
	switch {
	case length < bucketVeryShortMax:
		return "very_short"
	case length < bucketShortMax:
		return "short"
	case length < bucketMediumMax:
		return "medium"
	default:
		return "long"
	}
}

func countKeywords(text string, counts map[string]int) {
	for _, word := range strings.Fields(text) {
		word = strings.ToLower(strings.Trim(word, `.,;:!?"'()[]{}`))
		if len(word) < minKeywordLength {
			continue
		}
		counts[word]++
	}
}
