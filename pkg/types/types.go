// Package types holds the data model shared across the crawler, the
// subdomain enumerator, and the analysis layer.
package types

import (
	"net/http"
	"net/url"
	"time"

	"github.com/mitchwxyz/DomainTools/pkg/ldjson"
)

// Page represents fetched content.
type Page struct {
	URL             *url.URL
	FinalURL        *url.URL
	Body            []byte
	ContentType     string
	StatusCode      int
	Headers         http.Header
	FetchedAt       time.Time
	Rendered        bool
	ResponseLatency time.Duration
}

// Redirected reports whether the fetch was redirected away from the
// requested URL.
func (p *Page) Redirected() bool {
	if p == nil || p.URL == nil || p.FinalURL == nil {
		return false
	}
	return p.URL.String() != p.FinalURL.String()
}

// JSONLDRecord is one structured-data block extracted from a page. Each block
// on a page becomes its own record.
type JSONLDRecord struct {
	URL             string            `json:"url"`
	Data            ldjson.Value      `json:"data"`
	CrawledAt       time.Time         `json:"crawled_at"`
	ResponseHeaders map[string]string `json:"response_headers,omitempty"`
}

// Heading is a single h1-h3 element captured from a page.
type Heading struct {
	Level string `json:"level"`
	Text  string `json:"text"`
}

// TextRecord is the cleaned text content of one page.
type TextRecord struct {
	URL             string    `json:"url"`
	Title           string    `json:"title"`
	MetaDescription string    `json:"meta_description"`
	Headings        []Heading `json:"headings"`
	Paragraphs      []string  `json:"paragraphs"`
	CrawledAt       time.Time `json:"crawled_at"`
	WordCount       int       `json:"word_count"`
}

// Skipped records a per-item extraction failure that was swallowed locally,
// so callers can inspect what was dropped and why.
type Skipped struct {
	URL    string `json:"url"`
	Reason string `json:"reason"`
}

// Unresolved is the sentinel IP value for a hostname that did not resolve.
const Unresolved = "unresolved"

// SubdomainResult pairs a candidate hostname with its resolved address, or
// the Unresolved sentinel.
type SubdomainResult struct {
	Host string `json:"host"`
	IP   string `json:"ip"`
}

// Resolved reports whether the candidate resolved to an address.
func (r SubdomainResult) Resolved() bool { return r.IP != Unresolved }

// ContentRecord is the text projection of one reachable URL used for
// similarity grouping. Text carries either stripped page text or the
// canonical serialisation of the page's structured data.
type ContentRecord struct {
	URL           string `json:"url"`
	Subdomain     string `json:"subdomain"`
	IP            string `json:"ip,omitempty"`
	StatusCode    int    `json:"status_code"`
	ContentLength int    `json:"content_length"`
	Title         string `json:"title,omitempty"`
	Text          string `json:"text"`
}
