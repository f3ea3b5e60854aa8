// Package crawler implements the bounded breadth-first crawl over one site.
package crawler

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync/atomic"

	"github.com/PuerkitoBio/goquery"

	"github.com/mitchwxyz/DomainTools/internal/extract"
	"github.com/mitchwxyz/DomainTools/internal/fetcher"
	"github.com/mitchwxyz/DomainTools/internal/report"
	"github.com/mitchwxyz/DomainTools/pkg/types"
)

// Sink receives extracted records for durable persistence.
type Sink interface {
	StoreJSONLD(ctx context.Context, records []types.JSONLDRecord) error
	StoreText(ctx context.Context, record types.TextRecord) error
}

// RobotsPolicy gates URLs before fetching. A nil policy allows everything.
type RobotsPolicy interface {
	Allowed(ctx context.Context, target *url.URL) bool
}

// Options selects which record types a crawl extracts.
type Options struct {
	WantsJSONLD bool
	WantsText   bool
}

// Deps carries the engine's collaborators.
type Deps struct {
	Fetcher  fetcher.Fetcher
	Pacer    *fetcher.Pacer
	Robots   RobotsPolicy
	Links    *extract.LinkExtractor
	Sink     Sink
	Reporter report.Reporter
	Logger   *slog.Logger

	// MaxPages is the page budget: a hard upper bound on fetch attempts.
	MaxPages int
}

// Engine owns the frontier queue and visited set for one crawl. A single
// Engine value performs at most one run.
type Engine struct {
	deps Deps
	ran  atomic.Bool
}

// NewEngine validates the dependencies and builds an engine.
func NewEngine(deps Deps) (*Engine, error) {
	if deps.Fetcher == nil {
		return nil, errors.New("crawler requires a fetcher")
	}
	if deps.Sink == nil {
		return nil, errors.New("crawler requires a sink")
	}
	if deps.Links == nil {
		deps.Links = extract.NewLinkExtractor(nil)
	}
	if deps.Reporter == nil {
		deps.Reporter = report.Nop{}
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.MaxPages <= 0 {
		return nil, fmt.Errorf("page budget must be > 0 (got %d)", deps.MaxPages)
	}
	return &Engine{deps: deps}, nil
}

// Crawl traverses the site breadth-first from seedURL until the frontier is
// exhausted or the page budget is reached; both are normal completion. An
// invalid seed fails fast before any fetching. Per-page failures are reported
// and skipped, never fatal.
func (e *Engine) Crawl(ctx context.Context, seedURL string, opts Options) error {
	if e.ran.Swap(true) {
		return errors.New("engine has already run")
	}

	seed, err := parseSeed(seedURL)
	if err != nil {
		return err
	}

	d := e.deps
	frontier := []*url.URL{seed}
	visited := newVisitedSet()

	for len(frontier) > 0 && visited.Len() < d.MaxPages {
		if err := ctx.Err(); err != nil {
			d.Logger.Warn("crawl cancelled", "visited", visited.Len())
			return err
		}

		u := frontier[0]
		frontier = frontier[1:]

		// Mark visited before fetching so a failing URL is never retried
		// later in the session.
		if !visited.Add(u) {
			continue
		}

		if d.Robots != nil && !d.Robots.Allowed(ctx, u) {
			d.Logger.Debug("blocked by robots", "url", u.String())
			continue
		}

		if d.Pacer != nil {
			if err := d.Pacer.Wait(ctx, u.Hostname()); err != nil {
				return err
			}
		}

		page, err := d.Fetcher.Fetch(ctx, u)
		if err != nil {
			d.Reporter.PageFailed(u.String(), err)
			continue
		}
		d.Reporter.PageFetched(u.String(), page.StatusCode)

		doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page.Body))
		if err != nil {
			d.Reporter.ItemSkipped(u.String(), "unparseable document: "+err.Error())
			continue
		}

		pageURL := u.String()

		if opts.WantsJSONLD {
			records, skipped := extract.JSONLD(doc, pageURL, page.Headers, page.FetchedAt)
			for _, skip := range skipped {
				d.Reporter.ItemSkipped(skip.URL, skip.Reason)
			}
			if len(records) > 0 {
				if err := d.Sink.StoreJSONLD(ctx, records); err != nil {
					d.Logger.Error("persist jsonld failed", "url", pageURL, "error", err)
				} else {
					for range records {
						d.Reporter.RecordStored("jsonld", pageURL)
					}
				}
			}
		}

		// Text extraction strips boilerplate nodes from the shared document,
		// so links come out first.
		links := d.Links.Extract(doc, u, visited.Seen)

		if opts.WantsText {
			record, err := extract.Text(doc, pageURL, page.FetchedAt)
			if err != nil {
				d.Reporter.ItemSkipped(pageURL, "text extraction: "+err.Error())
			} else if err := d.Sink.StoreText(ctx, record); err != nil {
				d.Logger.Error("persist text failed", "url", pageURL, "error", err)
			} else {
				d.Reporter.RecordStored("text", pageURL)
			}
		}

		frontier = append(frontier, links...)
	}

	d.Logger.Info("crawl complete", "visited", visited.Len(), "pending", len(frontier))
	return nil
}

func parseSeed(seedURL string) (*url.URL, error) {
	// Bare domains get https; url.Parse would otherwise read them as a path.
	if !strings.Contains(seedURL, "://") {
		seedURL = "https://" + seedURL
	}
	parsed, err := url.Parse(seedURL)
	if err != nil {
		return nil, fmt.Errorf("parse seed %q: %w", seedURL, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("seed %q has unsupported scheme %q", seedURL, parsed.Scheme)
	}
	if parsed.Host == "" {
		return nil, fmt.Errorf("seed %q missing host", seedURL)
	}
	return parsed, nil
}
