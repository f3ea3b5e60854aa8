package crawler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"testing"
	"time"

	"github.com/mitchwxyz/DomainTools/pkg/types"
)

// siteFetcher serves hand-written pages keyed by URL and records fetch order.
type siteFetcher struct {
	pages   map[string]string
	fetched []string
}

func (f *siteFetcher) Fetch(_ context.Context, u *url.URL) (*types.Page, error) {
	f.fetched = append(f.fetched, u.String())
	body, ok := f.pages[u.String()]
	if !ok {
		return nil, fmt.Errorf("no such page %s", u)
	}
	return &types.Page{
		URL:        u,
		FinalURL:   u,
		Body:       []byte(body),
		StatusCode: 200,
		FetchedAt:  time.Now(),
	}, nil
}

type memorySink struct {
	jsonld []types.JSONLDRecord
	text   []types.TextRecord
}

func (s *memorySink) StoreJSONLD(_ context.Context, records []types.JSONLDRecord) error {
	s.jsonld = append(s.jsonld, records...)
	return nil
}

func (s *memorySink) StoreText(_ context.Context, record types.TextRecord) error {
	s.text = append(s.text, record)
	return nil
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func page(links ...string) string {
	body := "<html><body>"
	for _, l := range links {
		body += `<a href="` + l + `">link</a>`
	}
	return body + "</body></html>"
}

func newTestEngine(t *testing.T, fetch *siteFetcher, sink Sink, maxPages int) *Engine {
	t.Helper()
	engine, err := NewEngine(Deps{
		Fetcher:  fetch,
		Sink:     sink,
		Logger:   quietLogger(),
		MaxPages: maxPages,
	})
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	return engine
}

func TestCrawlVisitsBreadthFirst(t *testing.T) {
	fetch := &siteFetcher{pages: map[string]string{
		"https://example.com/":  page("/a", "/b"),
		"https://example.com/a": page("/c"),
		"https://example.com/b": page(),
		"https://example.com/c": page(),
	}}
	sink := &memorySink{}
	engine := newTestEngine(t, fetch, sink, 10)

	if err := engine.Crawl(context.Background(), "https://example.com/", Options{WantsText: true}); err != nil {
		t.Fatalf("crawl: %v", err)
	}

	want := []string{
		"https://example.com/",
		"https://example.com/a",
		"https://example.com/b",
		"https://example.com/c",
	}
	if len(fetch.fetched) != len(want) {
		t.Fatalf("expected %d fetches, got %v", len(want), fetch.fetched)
	}
	for i, u := range want {
		if fetch.fetched[i] != u {
			t.Fatalf("expected breadth-first order %v, got %v", want, fetch.fetched)
		}
	}
	if len(sink.text) != 4 {
		t.Fatalf("expected 4 text records, got %d", len(sink.text))
	}
}

func TestCrawlStopsAtPageBudget(t *testing.T) {
	fetch := &siteFetcher{pages: map[string]string{
		"https://example.com/":  page("/a", "/b", "/c"),
		"https://example.com/a": page(),
		"https://example.com/b": page(),
		"https://example.com/c": page(),
	}}
	sink := &memorySink{}
	engine := newTestEngine(t, fetch, sink, 2)

	if err := engine.Crawl(context.Background(), "https://example.com/", Options{WantsText: true}); err != nil {
		t.Fatalf("crawl: %v", err)
	}
	if len(fetch.fetched) != 2 {
		t.Fatalf("budget of 2 should cap fetches, got %v", fetch.fetched)
	}
}

func TestCrawlNeverRefetchesFailedURL(t *testing.T) {
	// Both pages link to /missing; its single failed fetch must consume its
	// visited slot so it is not attempted again.
	fetch := &siteFetcher{pages: map[string]string{
		"https://example.com/":  page("/a", "/missing"),
		"https://example.com/a": page("/missing"),
	}}
	sink := &memorySink{}
	engine := newTestEngine(t, fetch, sink, 10)

	if err := engine.Crawl(context.Background(), "https://example.com/", Options{WantsText: true}); err != nil {
		t.Fatalf("crawl: %v", err)
	}

	attempts := 0
	for _, u := range fetch.fetched {
		if u == "https://example.com/missing" {
			attempts++
		}
	}
	if attempts != 1 {
		t.Fatalf("expected exactly 1 attempt at the failing URL, got %d (%v)", attempts, fetch.fetched)
	}
}

func TestCrawlExtractsJSONLD(t *testing.T) {
	fetch := &siteFetcher{pages: map[string]string{
		"https://example.com/": `<html><head>
			<script type="application/ld+json">{"@type": "WebSite", "name": "Example"}</script>
		</head><body></body></html>`,
	}}
	sink := &memorySink{}
	engine := newTestEngine(t, fetch, sink, 5)

	if err := engine.Crawl(context.Background(), "https://example.com/", Options{WantsJSONLD: true}); err != nil {
		t.Fatalf("crawl: %v", err)
	}
	if len(sink.jsonld) != 1 {
		t.Fatalf("expected 1 structured-data record, got %d", len(sink.jsonld))
	}
	if len(sink.text) != 0 {
		t.Fatalf("text extraction was not requested, got %d records", len(sink.text))
	}
}

func TestCrawlRejectsInvalidSeeds(t *testing.T) {
	engine := newTestEngine(t, &siteFetcher{pages: map[string]string{}}, &memorySink{}, 5)

	if err := engine.Crawl(context.Background(), "ftp://example.com/", Options{}); err == nil {
		t.Fatal("expected error for unsupported scheme")
	}
}

func TestCrawlDefaultsSeedScheme(t *testing.T) {
	fetch := &siteFetcher{pages: map[string]string{
		"https://example.com/": page(),
	}}
	engine := newTestEngine(t, fetch, &memorySink{}, 5)

	if err := engine.Crawl(context.Background(), "example.com/", Options{WantsText: true}); err != nil {
		t.Fatalf("crawl: %v", err)
	}
	if len(fetch.fetched) != 1 || fetch.fetched[0] != "https://example.com/" {
		t.Fatalf("expected https default, got %v", fetch.fetched)
	}
}

func TestEngineRunsOnlyOnce(t *testing.T) {
	fetch := &siteFetcher{pages: map[string]string{
		"https://example.com/": page(),
	}}
	engine := newTestEngine(t, fetch, &memorySink{}, 5)

	if err := engine.Crawl(context.Background(), "https://example.com/", Options{}); err != nil {
		t.Fatalf("first crawl: %v", err)
	}
	err := engine.Crawl(context.Background(), "https://example.com/", Options{})
	if err == nil {
		t.Fatal("expected error on second run")
	}
}

func TestCrawlHonoursCancellation(t *testing.T) {
	fetch := &siteFetcher{pages: map[string]string{
		"https://example.com/": page("/a"),
	}}
	engine := newTestEngine(t, fetch, &memorySink{}, 5)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := engine.Crawl(ctx, "https://example.com/", Options{})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
