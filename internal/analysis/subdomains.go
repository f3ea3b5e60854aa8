package analysis

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/mitchwxyz/DomainTools/internal/extract"
	"github.com/mitchwxyz/DomainTools/internal/fetcher"
	"github.com/mitchwxyz/DomainTools/internal/grouper"
	"github.com/mitchwxyz/DomainTools/internal/report"
	"github.com/mitchwxyz/DomainTools/internal/subdomain"
	"github.com/mitchwxyz/DomainTools/pkg/types"
)

// probeStrippedSelector removes non-content nodes before comparing page text
// across subdomains.
const probeStrippedSelector = "script,style,meta,link"

// SubdomainContentReport captures what the resolved subdomains of a base
// domain actually serve: near-duplicate content groups, structured-data
// groups, redirects, and probes that failed outright.
type SubdomainContentReport struct {
	BaseDomain    string
	Resolved      []types.SubdomainResult
	ContentGroups []grouper.Group
	JSONLDGroups  []grouper.Group
	Redirects     map[string]string
	FailedProbes  []types.Skipped
	ProbedAt      time.Time
}

// SubdomainAnalyzer enumerates a domain's subdomains, probes each one over
// HTTPS (falling back to HTTP), and clusters the responses by content
// similarity.
type SubdomainAnalyzer struct {
	enumerator *subdomain.Enumerator
	fetch      fetcher.Fetcher
	threshold  int
	reporter   report.Reporter
	logger     *slog.Logger
}

// NewSubdomainAnalyzer wires an analyzer. Enumerator and fetcher are
// required.
func NewSubdomainAnalyzer(e *subdomain.Enumerator, f fetcher.Fetcher, threshold int, reporter report.Reporter, logger *slog.Logger) (*SubdomainAnalyzer, error) {
	if e == nil {
		return nil, fmt.Errorf("enumerator is required")
	}
	if f == nil {
		return nil, fmt.Errorf("fetcher is required")
	}
	if reporter == nil {
		reporter = report.Nop{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SubdomainAnalyzer{
		enumerator: e,
		fetch:      f,
		threshold:  threshold,
		reporter:   reporter,
		logger:     logger,
	}, nil
}

// Run enumerates resolvable subdomains of baseDomain, fetches each one, and
// groups the responses by page-text similarity and by structured-data
// similarity.
func (a *SubdomainAnalyzer) Run(ctx context.Context, baseDomain string) (*SubdomainContentReport, error) {
	results, err := a.enumerator.Enumerate(ctx, baseDomain, false)
	if err != nil {
		return nil, err
	}

	rpt := &SubdomainContentReport{
		BaseDomain: baseDomain,
		Resolved:   subdomain.SortedResults(results),
		Redirects:  make(map[string]string),
		ProbedAt:   time.Now(),
	}
	contentGroups := grouper.New(a.threshold)
	jsonldGroups := grouper.New(a.threshold)

	for _, sub := range rpt.Resolved {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		page, err := a.probe(ctx, sub.Host)
		if err != nil {
			a.reporter.PageFailed(sub.Host, err)
			rpt.FailedProbes = append(rpt.FailedProbes, types.Skipped{
				URL:    sub.Host,
				Reason: err.Error(),
			})
			continue
		}
		a.reporter.PageFetched(page.URL.String(), page.StatusCode)
		if page.Redirected() {
			rpt.Redirects[page.URL.String()] = page.FinalURL.String()
		}

		doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page.Body))
		if err != nil {
			rpt.FailedProbes = append(rpt.FailedProbes, types.Skipped{
				URL:    page.URL.String(),
				Reason: "parse html: " + err.Error(),
			})
			continue
		}

		blocks, _ := extract.JSONLD(doc, page.URL.String(), page.Headers, page.FetchedAt)
		for _, block := range blocks {
			jsonldGroups.Add(types.ContentRecord{
				URL:       page.URL.String(),
				Subdomain: sub.Host,
				IP:        sub.IP,
				Text:      block.Data.Canonical(),
			})
		}

		doc.Find(probeStrippedSelector).Remove()
		text := extract.CleanText(doc.Text())
		contentGroups.Add(types.ContentRecord{
			URL:           page.URL.String(),
			Subdomain:     sub.Host,
			IP:            sub.IP,
			StatusCode:    page.StatusCode,
			ContentLength: len(page.Body),
			Title:         extract.CleanText(doc.Find("title").First().Text()),
			Text:          text,
		})
	}

	rpt.ContentGroups = contentGroups.Groups()
	rpt.JSONLDGroups = jsonldGroups.Groups()

	a.logger.Info("subdomain content analysis complete",
		"base", baseDomain,
		"resolved", len(rpt.Resolved),
		"content_groups", len(rpt.ContentGroups),
		"jsonld_groups", len(rpt.JSONLDGroups),
		"failed", len(rpt.FailedProbes),
	)
	return rpt, nil
}

// probe fetches a host over HTTPS first, then HTTP when HTTPS fails.
func (a *SubdomainAnalyzer) probe(ctx context.Context, host string) (*types.Page, error) {
	var lastErr error
	for _, scheme := range []string{"https", "http"} {
		u := &url.URL{Scheme: scheme, Host: host, Path: "/"}
		page, err := a.fetch.Fetch(ctx, u)
		if err == nil {
			return page, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}
	return nil, fmt.Errorf("probe %s: %w", host, lastErr)
}

// UniqueContentCount reports how many distinct content variants the report
// found.
func (r *SubdomainContentReport) UniqueContentCount() int {
	return len(r.ContentGroups)
}

// DuplicateHosts lists the subdomains in groups with more than one member,
// keyed by the group representative's subdomain.
func (r *SubdomainContentReport) DuplicateHosts() map[string][]string {
	dupes := make(map[string][]string)
	for _, g := range r.ContentGroups {
		if len(g.Members) < 2 {
			continue
		}
		hosts := make([]string, 0, len(g.Members))
		for _, m := range g.Members {
			hosts = append(hosts, m.Subdomain)
		}
		dupes[g.Representative.Subdomain] = hosts
	}
	return dupes
}
