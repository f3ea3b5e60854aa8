package extract

import (
	"net/http"
	"testing"
	"time"

	"github.com/mitchwxyz/DomainTools/pkg/ldjson"
)

func TestJSONLDExtractsBlocks(t *testing.T) {
	html := `<html><head>
		<script type="application/ld+json">{"@type": "Article", "headline": "First"}</script>
		<script type="application/ld+json">{"@type": "Person", "name": "Ada"}</script>
		<script type="text/javascript">var x = 1;</script>
	</head><body></body></html>`

	now := time.Now()
	headers := http.Header{"Content-Type": []string{"text/html"}}
	records, skipped := JSONLD(parseDoc(t, html), "https://example.com/", headers, now)

	if len(skipped) != 0 {
		t.Fatalf("expected no skipped blocks, got %v", skipped)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	first, ok := records[0].Data.Field("@type")
	if !ok || first.Str() != "Article" {
		t.Fatalf("expected first record @type Article, got %v", first)
	}
	if records[0].URL != "https://example.com/" {
		t.Fatalf("unexpected record URL %q", records[0].URL)
	}
	if records[0].ResponseHeaders["Content-Type"] != "text/html" {
		t.Fatalf("expected flattened response headers, got %v", records[0].ResponseHeaders)
	}
	if !records[0].CrawledAt.Equal(now) {
		t.Fatalf("expected crawl timestamp %s, got %s", now, records[0].CrawledAt)
	}
}

func TestJSONLDSkipsMalformedBlocks(t *testing.T) {
	html := `<html><head>
		<script type="application/ld+json">{not json at all</script>
		<script type="application/ld+json"></script>
		<script type="application/ld+json">{"@type": "WebSite"}</script>
	</head><body></body></html>`

	records, skipped := JSONLD(parseDoc(t, html), "https://example.com/", nil, time.Now())

	if len(records) != 1 {
		t.Fatalf("expected 1 well-formed record, got %d", len(records))
	}
	if len(skipped) != 2 {
		t.Fatalf("expected 2 skipped blocks, got %d: %v", len(skipped), skipped)
	}
	for _, s := range skipped {
		if s.URL != "https://example.com/" || s.Reason == "" {
			t.Fatalf("skipped entry missing context: %+v", s)
		}
	}
}

func TestJSONLDHandlesArrayDocuments(t *testing.T) {
	html := `<html><head>
		<script type="application/ld+json">[{"@type": "Article"}, {"@type": "Person"}]</script>
	</head><body></body></html>`

	records, skipped := JSONLD(parseDoc(t, html), "https://example.com/", nil, time.Now())
	if len(skipped) != 0 || len(records) != 1 {
		t.Fatalf("expected a single array record, got records=%d skipped=%d", len(records), len(skipped))
	}
	if records[0].Data.Kind() != ldjson.Array {
		t.Fatalf("expected array value, got kind %v", records[0].Data.Kind())
	}
	if got := len(records[0].Data.Items()); got != 2 {
		t.Fatalf("expected 2 array items, got %d", got)
	}
}
