package analysis

import (
	"strings"
	"testing"
	"time"

	"github.com/mitchwxyz/DomainTools/pkg/types"
)

func TestAnalyzeTextAggregates(t *testing.T) {
	day1 := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	day2 := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

	records := []types.TextRecord{
		{
			URL:             "https://example.com/a",
			MetaDescription: "About the site",
			Headings: []types.Heading{
				{Level: "h1", Text: "Main Heading"},
				{Level: "h2", Text: "Sub Heading"},
			},
			Paragraphs: []string{strings.Repeat("word ", 30)},
			CrawledAt:  day1,
			WordCount:  30,
		},
		{
			URL: "https://example.com/b",
			Headings: []types.Heading{
				{Level: "h1", Text: "Main Heading"},
			},
			Paragraphs: []string{"tiny"},
			CrawledAt:  day2,
			WordCount:  1,
		},
		{
			URL:       "https://example.com/c",
			CrawledAt: day2,
			WordCount: 0,
		},
	}
	rpt := AnalyzeText(records)

	if rpt.TotalPages != 3 {
		t.Fatalf("expected 3 pages, got %d", rpt.TotalPages)
	}
	if rpt.TotalWords != 31 {
		t.Fatalf("expected 31 words, got %d", rpt.TotalWords)
	}
	if rpt.PagesWithHeadings != 2 {
		t.Fatalf("expected 2 pages with headings, got %d", rpt.PagesWithHeadings)
	}
	if rpt.PagesWithDescription != 1 {
		t.Fatalf("expected 1 page with meta description, got %d", rpt.PagesWithDescription)
	}
	if rpt.HeadingsByLevel["h1"] != 2 || rpt.HeadingsByLevel["h2"] != 1 {
		t.Fatalf("unexpected heading levels %v", rpt.HeadingsByLevel)
	}
	if rpt.CommonHeadings["main heading"] != 2 {
		t.Fatalf("expected lowercased heading tally, got %v", rpt.CommonHeadings)
	}
	if rpt.PagesByDate["2026-03-01"] != 1 || rpt.PagesByDate["2026-03-02"] != 2 {
		t.Fatalf("unexpected pages by date %v", rpt.PagesByDate)
	}
	if rpt.WordsByDate["2026-03-01"] != 30 {
		t.Fatalf("unexpected words by date %v", rpt.WordsByDate)
	}
	if want := float64(31) / 3; rpt.AverageWordsPerPage != want {
		t.Fatalf("expected average %f, got %f", want, rpt.AverageWordsPerPage)
	}
}

func TestAnalyzeTextBucketsParagraphs(t *testing.T) {
	records := []types.TextRecord{{
		Paragraphs: []string{
			strings.Repeat("a", 10),  // very_short
			strings.Repeat("a", 60),  // short
			strings.Repeat("a", 150), // medium
			strings.Repeat("a", 400), // long
		},
	}}
	rpt := AnalyzeText(records)

	for _, bucket := range []string{"very_short", "short", "medium", "long"} {
		if rpt.ParagraphBuckets[bucket] != 1 {
			t.Fatalf("expected 1 paragraph in %s, got %v", bucket, rpt.ParagraphBuckets)
		}
	}
}

func TestAnalyzeTextCountsKeywords(t *testing.T) {
	records := []types.TextRecord{{
		Paragraphs: []string{"The crawler stores crawler output, and the crawler never stops!"},
	}}
	rpt := AnalyzeText(records)

	if rpt.KeywordCounts["crawler"] != 3 {
		t.Fatalf("expected crawler counted 3 times, got %v", rpt.KeywordCounts)
	}
	if _, ok := rpt.KeywordCounts["the"]; ok {
		t.Fatalf("short words must be skipped, got %v", rpt.KeywordCounts)
	}
	// Trailing punctuation is trimmed before counting.
	if rpt.KeywordCounts["stops"] != 1 {
		t.Fatalf("expected punctuation trimmed, got %v", rpt.KeywordCounts)
	}
}

func TestAnalyzeTextEmptyInput(t *testing.T) {
	rpt := AnalyzeText(nil)
	if rpt.TotalPages != 0 || rpt.AverageWordsPerPage != 0 {
		t.Fatalf("expected zeroed report, got %+v", rpt)
	}
}
