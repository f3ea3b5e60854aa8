package extract

import (
	"errors"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/mitchwxyz/DomainTools/pkg/types"
)

// strippedSelector covers elements that carry no page content.
const strippedSelector = "script,style,nav,header,footer,button,input,form,iframe"

// paragraphSkipWords mark boilerplate blocks (consent banners, newsletter
// prompts) that should not count as content.
var paragraphSkipWords = []string{"cookie", "accept", "subscribe"}

const (
	minHeadingLength   = 5
	minParagraphLength = 50
)

// Text extracts the cleaned text content of a page: title, meta description,
// h1-h3 headings, content paragraphs, and the total word count.
//
// Text removes boilerplate nodes from doc, so run it after link and JSON-LD
// extraction when sharing a parsed document.
func Text(doc *goquery.Document, pageURL string, now time.Time) (types.TextRecord, error) {
	if doc == nil {
		return types.TextRecord{}, errors.New("document is nil")
	}

	title := CleanText(doc.Find("title").First().Text())
	metaDesc := CleanText(doc.Find(`meta[name="description"]`).AttrOr("content", ""))

	doc.Find(strippedSelector).Remove()

	var headings []types.Heading
	doc.Find("h1, h2, h3").Each(func(_ int, s *goquery.Selection) {
		text := CleanText(s.Text())
		if len(text) > minHeadingLength {
			headings = append(headings, types.Heading{
				Level: goquery.NodeName(s),
				Text:  text,
			})
		}
	})

	var paragraphs []string
	wordCount := 0
	doc.Find("p, article, section, div").Each(func(_ int, s *goquery.Selection) {
		text := CleanText(s.Text())
		if len(text) <= minParagraphLength {
			return
		}
		lower := strings.ToLower(text)
		for _, skip := range paragraphSkipWords {
			if strings.Contains(lower, skip) {
				return
			}
		}
		paragraphs = append(paragraphs, text)
		wordCount += len(strings.Fields(text))
	})

	return types.TextRecord{
		URL:             pageURL,
		Title:           title,
		MetaDescription: metaDesc,
		Headings:        headings,
		Paragraphs:      paragraphs,
		CrawledAt:       now,
		WordCount:       wordCount,
	}, nil
}

// CleanText collapses all whitespace runs to single spaces.
func CleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
