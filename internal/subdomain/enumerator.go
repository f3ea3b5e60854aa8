package subdomain

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/mitchwxyz/DomainTools/internal/config"
	"github.com/mitchwxyz/DomainTools/internal/report"
	"github.com/mitchwxyz/DomainTools/pkg/types"
)

// Enumerator resolves wordlist candidates under a base domain.
type Enumerator struct {
	resolver    Resolver
	wordlist    string
	concurrency int
	reporter    report.Reporter
	logger      *slog.Logger
}

// NewEnumerator builds an enumerator from configuration. A nil resolver
// defaults to the system DNS.
func NewEnumerator(cfg config.SubdomainConfig, resolver Resolver, reporter report.Reporter, logger *slog.Logger) *Enumerator {
	if resolver == nil {
		resolver = NewNetResolver()
	}
	if reporter == nil {
		reporter = report.Nop{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}
	return &Enumerator{
		resolver:    resolver,
		wordlist:    cfg.WordlistPath,
		concurrency: concurrency,
		reporter:    reporter,
		logger:      logger,
	}
}

// Enumerate resolves every wordlist candidate under baseDomain and returns a
// hostname to address map. The base domain must itself resolve; otherwise the
// whole operation fails fast with an empty result. Unresolved candidates are
// included (with the Unresolved sentinel) only when includeUnresolved is set.
//
// Candidates resolve concurrently; each resolution is independent and
// callers needing stable output should use SortedResults.
func (e *Enumerator) Enumerate(ctx context.Context, baseDomain string, includeUnresolved bool) (map[string]string, error) {
	baseDomain = strings.TrimSpace(baseDomain)
	if baseDomain == "" {
		return nil, fmt.Errorf("base domain is empty")
	}

	if _, err := e.resolver.Resolve(ctx, baseDomain); err != nil {
		return nil, fmt.Errorf("base domain %q: %w", baseDomain, err)
	}

	words, err := LoadWordlist(e.wordlist)
	if err != nil {
		return nil, err
	}

	pool, err := newWorkerPool(ctx, e.concurrency, len(words)+1)
	if err != nil {
		return nil, err
	}
	defer pool.close()

	var mu sync.Mutex
	results := make(map[string]string)

	var wg sync.WaitGroup
	for _, word := range words {
		host := word + "." + baseDomain
		wg.Add(1)
		submitErr := pool.submit(ctx, func(jobCtx context.Context) {
			defer wg.Done()
			ip, err := e.resolver.Resolve(jobCtx, host)
			if err != nil {
				e.reporter.CandidateUnresolved(host)
				if includeUnresolved {
					mu.Lock()
					results[host] = types.Unresolved
					mu.Unlock()
				}
				return
			}
			e.reporter.CandidateResolved(host, ip)
			mu.Lock()
			results[host] = ip
			mu.Unlock()
		})
		if submitErr != nil {
			wg.Done()
			return nil, submitErr
		}
	}
	wg.Wait()

	e.logger.Info("enumeration complete",
		"base", baseDomain,
		"candidates", len(words),
		"found", len(results),
	)
	return results, nil
}

// SortedResults renders an enumeration map as rows ordered by hostname, for
// deterministic display.
func SortedResults(results map[string]string) []types.SubdomainResult {
	rows := make([]types.SubdomainResult, 0, len(results))
	for host, ip := range results {
		rows = append(rows, types.SubdomainResult{Host: host, IP: ip})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Host < rows[j].Host })
	return rows
}

// GroupByIP inverts an enumeration map, listing hostnames per resolved
// address. Unresolved entries are left out.
func GroupByIP(results map[string]string) map[string][]string {
	grouped := make(map[string][]string)
	for host, ip := range results {
		if ip == types.Unresolved {
			continue
		}
		grouped[ip] = append(grouped[ip], host)
	}
	for ip := range grouped {
		sort.Strings(grouped[ip])
	}
	return grouped
}
