// Command domaintools crawls a site for structured data and page text,
// enumerates subdomains, and reports on what was collected.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/alecthomas/kong"

	"github.com/mitchwxyz/DomainTools/internal/analysis"
	"github.com/mitchwxyz/DomainTools/internal/config"
	"github.com/mitchwxyz/DomainTools/internal/crawler"
	"github.com/mitchwxyz/DomainTools/internal/extract"
	"github.com/mitchwxyz/DomainTools/internal/fetcher"
	"github.com/mitchwxyz/DomainTools/internal/grouper"
	"github.com/mitchwxyz/DomainTools/internal/report"
	"github.com/mitchwxyz/DomainTools/internal/robots"
	"github.com/mitchwxyz/DomainTools/internal/storage"
	"github.com/mitchwxyz/DomainTools/internal/subdomain"
)

const defaultConfigPath = "configs/config.yaml"

type cli struct {
	// No type:"path" here: the fallback in loadConfig compares against the
	// literal default.
	Config string `help:"Path to the configuration file." default:"${config_path}"`

	ScrapeJSONLD      scrapeJSONLDCmd      `cmd:"" name:"scrape-jsonld" help:"Crawl a site and store its JSON-LD structured data."`
	ScrapeText        scrapeTextCmd        `cmd:"" name:"scrape-text" help:"Crawl a site and store its cleaned page text."`
	ScrapeAll         scrapeAllCmd         `cmd:"" name:"scrape-all" help:"Crawl a site and store both structured data and page text."`
	Enumerate         enumerateCmd         `cmd:"" help:"Resolve wordlist subdomains of a base domain."`
	Analyze           analyzeCmd           `cmd:"" help:"Summarise stored structured-data records."`
	AnalyzeProperty   analyzePropertyCmd   `cmd:"" name:"analyze-property" help:"Count the values of one structured-data property."`
	AnalyzeText       analyzeTextCmd       `cmd:"" name:"analyze-text" help:"Summarise stored page-text records."`
	AnalyzeSubdomains analyzeSubdomainsCmd `cmd:"" name:"analyze-subdomains" help:"Probe subdomains and group them by content similarity."`
}

// env carries the resolved configuration and logging into command Run
// methods.
type env struct {
	ctx      context.Context
	cfg      *config.Config
	logger   *slog.Logger
	reporter report.Reporter
}

func main() {
	var args cli
	parser := kong.Parse(&args,
		kong.Name("domaintools"),
		kong.Description("Site crawling, subdomain enumeration, and content analysis."),
		kong.UsageOnError(),
		kong.Vars{"config_path": defaultConfigPath},
	)

	cfg, err := loadConfig(args.Config)
	parser.FatalIfErrorf(err)

	logger := buildLogger(cfg.Logging)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err = parser.Run(&env{
		ctx:      ctx,
		cfg:      cfg,
		logger:   logger,
		reporter: report.NewLogReporter(logger),
	})
	parser.FatalIfErrorf(err)
}

// loadConfig reads the config file, falling back to defaults when the
// default path does not exist. An explicit path that is missing is an error.
func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err == nil {
		return cfg, nil
	}
	if path == defaultConfigPath && errors.Is(err, os.ErrNotExist) {
		defaults := config.Default()
		return &defaults, nil
	}
	return nil, err
}

func buildLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.Structured {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}

type scrapeArgs struct {
	URL      string        `arg:"" help:"Seed URL or domain to crawl."`
	MaxPages int           `help:"Override the configured page budget."`
	MinDelay time.Duration `help:"Override the configured minimum politeness delay."`
	MaxDelay time.Duration `help:"Override the configured maximum politeness delay."`
}

type scrapeJSONLDCmd struct{ scrapeArgs }

func (c *scrapeJSONLDCmd) Run(e *env) error {
	return runScrape(e, c.scrapeArgs, crawler.Options{WantsJSONLD: true})
}

type scrapeTextCmd struct{ scrapeArgs }

func (c *scrapeTextCmd) Run(e *env) error {
	return runScrape(e, c.scrapeArgs, crawler.Options{WantsText: true})
}

type scrapeAllCmd struct{ scrapeArgs }

func (c *scrapeAllCmd) Run(e *env) error {
	return runScrape(e, c.scrapeArgs, crawler.Options{WantsJSONLD: true, WantsText: true})
}

func runScrape(e *env, args scrapeArgs, opts crawler.Options) error {
	cfg := e.cfg

	maxPages := cfg.Scraper.MaxPages
	if args.MaxPages > 0 {
		maxPages = args.MaxPages
	}
	minDelay := cfg.Scraper.MinDelay.Duration
	maxDelay := cfg.Scraper.MaxDelay.Duration
	if args.MinDelay > 0 {
		minDelay = args.MinDelay
	}
	if args.MaxDelay > 0 {
		maxDelay = args.MaxDelay
	}
	if minDelay > maxDelay {
		return fmt.Errorf("min delay %s exceeds max delay %s", minDelay, maxDelay)
	}

	httpFetcher, err := fetcher.NewHTTPFetcher(fetcher.Options{
		UserAgent:    cfg.HTTP.UserAgent,
		Headers:      cfg.HTTP.Headers,
		Timeout:      cfg.HTTP.RequestTimeout.Duration,
		MaxBodyBytes: cfg.HTTP.MaxBodyBytes,
		ProxyURL:     cfg.HTTP.ProxyURL,
		MaxRetries:   cfg.HTTP.MaxRetries,
		RetryBackoff: cfg.HTTP.RetryBackoff.Duration,
		Logger:       e.logger,
	})
	if err != nil {
		return fmt.Errorf("initialise fetcher: %w", err)
	}

	var fetch fetcher.Fetcher = httpFetcher
	if cfg.Rendering.Enabled {
		renderer := fetcher.NewChromedpRenderer(fetcher.RenderOptions{
			Timeout:            cfg.Rendering.Timeout.Duration,
			WaitForSelector:    cfg.Rendering.WaitForSelector,
			UserAgent:          cfg.HTTP.UserAgent,
			MaxBodyBytes:       cfg.HTTP.MaxBodyBytes,
			DisableHeadless:    cfg.Rendering.DisableHeadless,
			ConcurrentSessions: cfg.Rendering.ConcurrentSessions,
		}, e.logger)
		fetch = fetcher.NewComposite(httpFetcher, renderer, e.logger)
	}

	pacer := fetcher.NewPacer(minDelay, maxDelay, fetcher.RateSettings{
		Requests: cfg.Scraper.RateLimitPerHost.Requests,
		Window:   cfg.Scraper.RateLimitPerHost.Window.Duration,
	})

	store, err := storage.Open(cfg.DB)
	if err != nil {
		return fmt.Errorf("open document store: %w", err)
	}
	defer store.Close()

	engine, err := crawler.NewEngine(crawler.Deps{
		Fetcher:  fetch,
		Pacer:    pacer,
		Robots:   robots.NewAgent(cfg.Robots, httpFetcher.Client()),
		Links:    extract.NewLinkExtractor(cfg.Scraper.AssetExtensions),
		Sink:     store,
		Reporter: e.reporter,
		Logger:   e.logger,
		MaxPages: maxPages,
	})
	if err != nil {
		return err
	}
	return engine.Crawl(e.ctx, args.URL, opts)
}

type enumerateCmd struct {
	Domain   string `arg:"" help:"Base domain to enumerate."`
	Wordlist string `help:"Override the configured wordlist file." type:"path"`
	ShowAll  bool   `help:"Include candidates that did not resolve."`
}

func (c *enumerateCmd) Run(e *env) error {
	subCfg := e.cfg.Subdomain
	if c.Wordlist != "" {
		subCfg.WordlistPath = c.Wordlist
	}
	includeUnresolved := subCfg.IncludeUnresolved || c.ShowAll

	enum := subdomain.NewEnumerator(subCfg, nil, e.reporter, e.logger)
	results, err := enum.Enumerate(e.ctx, c.Domain, includeUnresolved)
	if err != nil {
		return err
	}

	rows := make([][]string, 0, len(results))
	for _, r := range subdomain.SortedResults(results) {
		rows = append(rows, []string{r.Host, r.IP})
	}
	fmt.Print(report.Table([]string{"HOST", "IP"}, rows))

	grouped := subdomain.GroupByIP(results)
	if len(grouped) > 0 {
		fmt.Printf("\n%d address(es) in use:\n", len(grouped))
		ips := make([]string, 0, len(grouped))
		for ip := range grouped {
			ips = append(ips, ip)
		}
		sort.Strings(ips)
		for _, ip := range ips {
			fmt.Printf("  %s: %s\n", ip, strings.Join(grouped[ip], ", "))
		}
	}
	return nil
}

type analyzeCmd struct {
	Domain string `help:"Only analyse records whose URL contains this domain."`
	Top    int    `help:"Entries to show per ranking." default:"10"`
}

func (c *analyzeCmd) Run(e *env) error {
	store, err := storage.Open(e.cfg.DB)
	if err != nil {
		return fmt.Errorf("open document store: %w", err)
	}
	defer store.Close()

	records, err := store.LoadJSONLD(e.ctx, c.Domain)
	if err != nil {
		return err
	}
	rpt := analysis.AnalyzeJSONLD(records)

	fmt.Printf("Structured-data documents: %d\n\n", rpt.TotalDocuments)
	printRanking("Schema types", rpt.TypeCounts, c.Top)
	printRanking("Authors", rpt.AuthorCounts, c.Top)
	printRanking("Properties", rpt.PropertyCounts, c.Top)
	return nil
}

type analyzePropertyCmd struct {
	Property string `arg:"" help:"Property name to count values of."`
	Domain   string `help:"Only analyse records whose URL contains this domain."`
	Top      int    `help:"Entries to show." default:"20"`
}

func (c *analyzePropertyCmd) Run(e *env) error {
	store, err := storage.Open(e.cfg.DB)
	if err != nil {
		return fmt.Errorf("open document store: %w", err)
	}
	defer store.Close()

	records, err := store.LoadJSONLD(e.ctx, c.Domain)
	if err != nil {
		return err
	}
	counts := analysis.AnalyzeProperty(records, c.Property)
	if len(counts) == 0 {
		fmt.Printf("No values found for property %q.\n", c.Property)
		return nil
	}
	printRanking(fmt.Sprintf("Values of %q", c.Property), counts, c.Top)
	return nil
}

type analyzeTextCmd struct {
	Domain string `help:"Only analyse records whose URL contains this domain."`
	Top    int    `help:"Entries to show per ranking." default:"10"`
}

func (c *analyzeTextCmd) Run(e *env) error {
	store, err := storage.Open(e.cfg.DB)
	if err != nil {
		return fmt.Errorf("open document store: %w", err)
	}
	defer store.Close()

	records, err := store.LoadText(e.ctx, c.Domain)
	if err != nil {
		return err
	}
	rpt := analysis.AnalyzeText(records)

	fmt.Printf("Pages: %d\n", rpt.TotalPages)
	fmt.Printf("Total words: %d (%.1f per page)\n", rpt.TotalWords, rpt.AverageWordsPerPage)
	fmt.Printf("Pages with headings: %d\n", rpt.PagesWithHeadings)
	fmt.Printf("Pages with meta description: %d\n\n", rpt.PagesWithDescription)

	printRanking("Headings by level", rpt.HeadingsByLevel, 0)
	printRanking("Common headings", rpt.CommonHeadings, c.Top)
	printRanking("Paragraph lengths", rpt.ParagraphBuckets, 0)
	printRanking("Keywords", rpt.KeywordCounts, c.Top)
	printRanking("Pages by date", rpt.PagesByDate, 0)
	printRanking("Words by date", rpt.WordsByDate, 0)
	return nil
}

type analyzeSubdomainsCmd struct {
	Domain    string `arg:"" help:"Base domain to enumerate and probe."`
	Wordlist  string `help:"Override the configured wordlist file." type:"path"`
	Threshold int    `help:"Override the configured similarity threshold." default:"-1"`
}

func (c *analyzeSubdomainsCmd) Run(e *env) error {
	cfg := e.cfg
	subCfg := cfg.Subdomain
	if c.Wordlist != "" {
		subCfg.WordlistPath = c.Wordlist
	}
	threshold := cfg.Analysis.SimilarityThreshold
	if c.Threshold >= 0 {
		threshold = c.Threshold
	}

	httpFetcher, err := fetcher.NewHTTPFetcher(fetcher.Options{
		UserAgent:    cfg.HTTP.UserAgent,
		Headers:      cfg.HTTP.Headers,
		Timeout:      cfg.HTTP.RequestTimeout.Duration,
		MaxBodyBytes: cfg.HTTP.MaxBodyBytes,
		ProxyURL:     cfg.HTTP.ProxyURL,
		MaxRetries:   cfg.HTTP.MaxRetries,
		RetryBackoff: cfg.HTTP.RetryBackoff.Duration,
		Logger:       e.logger,
	})
	if err != nil {
		return fmt.Errorf("initialise fetcher: %w", err)
	}

	enum := subdomain.NewEnumerator(subCfg, nil, e.reporter, e.logger)
	analyzer, err := analysis.NewSubdomainAnalyzer(enum, httpFetcher, threshold, e.reporter, e.logger)
	if err != nil {
		return err
	}

	rpt, err := analyzer.Run(e.ctx, c.Domain)
	if err != nil {
		return err
	}

	rows := make([][]string, 0, len(rpt.Resolved))
	for _, r := range rpt.Resolved {
		rows = append(rows, []string{r.Host, r.IP})
	}
	fmt.Print(report.Table([]string{"HOST", "IP"}, rows))

	fmt.Printf("\nContent groups (threshold %d): %d unique variant(s)\n", threshold, rpt.UniqueContentCount())
	for i, g := range rpt.ContentGroups {
		fmt.Printf("  group %d (%d member(s), avg similarity %.1f): %s\n",
			i+1, len(g.Members), grouper.AverageSimilarity(g), memberHosts(g))
	}
	if len(rpt.JSONLDGroups) > 0 {
		fmt.Printf("\nStructured-data groups: %d\n", len(rpt.JSONLDGroups))
		for i, g := range rpt.JSONLDGroups {
			fmt.Printf("  group %d (%d member(s)): %s\n", i+1, len(g.Members), memberHosts(g))
		}
	}
	if len(rpt.Redirects) > 0 {
		fmt.Printf("\nRedirects:\n")
		froms := make([]string, 0, len(rpt.Redirects))
		for from := range rpt.Redirects {
			froms = append(froms, from)
		}
		sort.Strings(froms)
		for _, from := range froms {
			fmt.Printf("  %s -> %s\n", from, rpt.Redirects[from])
		}
	}
	if len(rpt.FailedProbes) > 0 {
		fmt.Printf("\nFailed probes: %d\n", len(rpt.FailedProbes))
		for _, f := range rpt.FailedProbes {
			fmt.Printf("  %s: %s\n", f.URL, f.Reason)
		}
	}
	return nil
}

func printRanking(title string, counts map[string]int, top int) {
	if len(counts) == 0 {
		return
	}
	fmt.Println(title)
	rows := make([][]string, 0, len(counts))
	for _, entry := range analysis.TopN(counts, top) {
		rows = append(rows, []string{entry.Label, strconv.Itoa(entry.N)})
	}
	fmt.Print(report.Table([]string{"VALUE", "COUNT"}, rows))
	fmt.Println()
}

func memberHosts(g grouper.Group) string {
	hosts := make([]string, 0, len(g.Members))
	for _, m := range g.Members {
		hosts = append(hosts, m.Subdomain)
	}
	return strings.Join(hosts, ", ")
}
