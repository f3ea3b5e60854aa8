// Package extract pulls links, structured-data blocks, and cleaned text out
// of fetched HTML documents.
package extract

import (
	"net/url"
	"path"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// LinkExtractor selects the same-domain, non-asset links to follow next.
type LinkExtractor struct {
	assetExts map[string]struct{}
}

// NewLinkExtractor builds an extractor with a denylist of asset path
// extensions (".pdf", ".jpg", ...).
func NewLinkExtractor(assetExtensions []string) *LinkExtractor {
	exts := make(map[string]struct{}, len(assetExtensions))
	for _, ext := range assetExtensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		exts[ext] = struct{}{}
	}
	return &LinkExtractor{assetExts: exts}
}

// Extract returns the deduplicated candidate links of doc. A link is kept iff
// its absolute form shares the exact hostname of base, its scheme is http or
// https, its path does not end in a denylisted asset extension, and visited
// does not already report it. Order follows document order but callers must
// not rely on it.
func (e *LinkExtractor) Extract(doc *goquery.Document, base *url.URL, visited func(*url.URL) bool) []*url.URL {
	if doc == nil || base == nil {
		return nil
	}

	seen := make(map[string]struct{})
	var links []*url.URL

	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, ok := s.Attr("href")
		if !ok {
			return
		}
		href = strings.TrimSpace(href)
		if href == "" {
			return
		}
		if strings.HasPrefix(href, "javascript:") || strings.HasPrefix(href, "mailto:") {
			return
		}

		u, err := base.Parse(href)
		if err != nil {
			return
		}
		u.Fragment = ""

		if !e.accept(base, u) {
			return
		}
		if visited != nil && visited(u) {
			return
		}
		key := u.String()
		if _, exists := seen[key]; exists {
			return
		}
		seen[key] = struct{}{}
		links = append(links, u)
	})

	return links
}

func (e *LinkExtractor) accept(base, target *url.URL) bool {
	scheme := strings.ToLower(target.Scheme)
	if scheme != "http" && scheme != "https" {
		return false
	}
	if !strings.EqualFold(target.Hostname(), base.Hostname()) {
		return false
	}
	if ext := strings.ToLower(path.Ext(target.Path)); ext != "" {
		if _, denied := e.assetExts[ext]; denied {
			return false
		}
	}
	return true
}
