package extract

import (
	"net/url"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
)

func parseDoc(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		t.Fatalf("parse html: %v", err)
	}
	return doc
}

func baseURL(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("parse %q: %v", raw, err)
	}
	return u
}

func TestExtractKeepsSameDomainLinksOnly(t *testing.T) {
	html := `<html><body>
		<a href="/about">About</a>
		<a href="https://example.com/contact">Contact</a>
		<a href="https://other.com/page">Elsewhere</a>
		<a href="https://sub.example.com/page">Subdomain</a>
		<a href="mailto:hi@example.com">Mail</a>
		<a href="javascript:void(0)">JS</a>
	</body></html>`

	e := NewLinkExtractor(nil)
	links := e.Extract(parseDoc(t, html), baseURL(t, "https://example.com/"), nil)

	want := map[string]bool{
		"https://example.com/about":   true,
		"https://example.com/contact": true,
	}
	if len(links) != len(want) {
		t.Fatalf("expected %d links, got %d: %v", len(want), len(links), links)
	}
	for _, l := range links {
		if !want[l.String()] {
			t.Fatalf("unexpected link %s", l)
		}
	}
}

func TestExtractSkipsAssetExtensions(t *testing.T) {
	html := `<html><body>
		<a href="/report.pdf">PDF</a>
		<a href="/photo.JPG">Photo</a>
		<a href="/page.html">Page</a>
	</body></html>`

	e := NewLinkExtractor([]string{".pdf", "jpg"})
	links := e.Extract(parseDoc(t, html), baseURL(t, "https://example.com/"), nil)

	if len(links) != 1 || links[0].Path != "/page.html" {
		t.Fatalf("expected only /page.html, got %v", links)
	}
}

func TestExtractFiltersVisitedAndDuplicates(t *testing.T) {
	html := `<html><body>
		<a href="/a">One</a>
		<a href="/a">One again</a>
		<a href="/a#section">One with fragment</a>
		<a href="/b">Two</a>
	</body></html>`

	visited := func(u *url.URL) bool { return u.Path == "/b" }

	e := NewLinkExtractor(nil)
	links := e.Extract(parseDoc(t, html), baseURL(t, "https://example.com/"), visited)

	if len(links) != 1 || links[0].String() != "https://example.com/a" {
		t.Fatalf("expected a single /a link, got %v", links)
	}
}
