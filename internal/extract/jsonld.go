package extract

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/mitchwxyz/DomainTools/pkg/ldjson"
	"github.com/mitchwxyz/DomainTools/pkg/types"
)

// JSONLD extracts every well-formed JSON-LD script block from doc. Malformed
// blocks are returned as skipped items rather than aborting the page.
func JSONLD(doc *goquery.Document, pageURL string, headers http.Header, now time.Time) ([]types.JSONLDRecord, []types.Skipped) {
	if doc == nil {
		return nil, nil
	}

	var records []types.JSONLDRecord
	var skipped []types.Skipped

	doc.Find(`script[type="application/ld+json"]`).Each(func(_ int, s *goquery.Selection) {
		raw := strings.TrimSpace(s.Text())
		if raw == "" {
			skipped = append(skipped, types.Skipped{URL: pageURL, Reason: "empty JSON-LD block"})
			return
		}
		var data ldjson.Value
		if err := json.Unmarshal([]byte(raw), &data); err != nil {
			skipped = append(skipped, types.Skipped{URL: pageURL, Reason: "invalid JSON-LD: " + err.Error()})
			return
		}
		records = append(records, types.JSONLDRecord{
			URL:             pageURL,
			Data:            data,
			CrawledAt:       now,
			ResponseHeaders: flattenHeaders(headers),
		})
	})

	return records, skipped
}

func flattenHeaders(headers http.Header) map[string]string {
	if len(headers) == 0 {
		return nil
	}
	flat := make(map[string]string, len(headers))
	for k, v := range headers {
		if len(v) > 0 {
			flat[k] = v[0]
		}
	}
	return flat
}
