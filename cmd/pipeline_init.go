package main

import (
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/attribution-cli/internal/config"
	"github.com/sells-group/attribution-cli/internal/credential"
	"github.com/sells-group/attribution-cli/internal/extract"
	"github.com/sells-group/attribution-cli/internal/metadata"
	"github.com/sells-group/attribution-cli/internal/pipeline"
	"github.com/sells-group/attribution-cli/internal/provider"
	"github.com/sells-group/attribution-cli/internal/resilience"
	"github.com/sells-group/attribution-cli/internal/scorer"
	"github.com/sells-group/attribution-cli/internal/scrape"
	"github.com/sells-group/attribution-cli/internal/search"
	"github.com/sells-group/attribution-cli/pkg/firecrawl"
	"github.com/sells-group/attribution-cli/pkg/flickr"
	"github.com/sells-group/attribution-cli/pkg/jina"
	"github.com/sells-group/attribution-cli/pkg/pexels"
	"github.com/sells-group/attribution-cli/pkg/serpapi"
)

// pipelineEnv holds the pipeline and the long-lived resources the
// resolve/batch/serve/keys commands share.
type pipelineEnv struct {
	Pipeline *pipeline.Pipeline
	Pools    []*credential.Pool
	Search   *search.Aggregator
	Breakers *resilience.ServiceBreakers
	browser  *scrape.RodBrowser // nil when browser escalation is disabled
}

// Close releases the headless browser, if one was launched.
func (pe *pipelineEnv) Close() {
	if pe.browser != nil {
		if err := pe.browser.Close(); err != nil {
			zap.L().Warn("browser close failed", zap.Error(err))
		}
	}
}

// KeyStats returns usage per credential pool, keyed by provider name.
func (pe *pipelineEnv) KeyStats() map[string]credential.Stats {
	out := make(map[string]credential.Stats, len(pe.Pools))
	for _, p := range pe.Pools {
		out[p.Name()] = p.Stats()
	}
	return out
}

// initPipeline validates the loaded global config for mode and builds the
// pipeline from it. Callers should defer env.Close().
func initPipeline(mode string) (*pipelineEnv, error) {
	if cfg == nil {
		return nil, eris.New("config not loaded")
	}
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}
	return buildPipeline(cfg)
}

// buildPipeline wires every collaborator from c. Nothing here touches the
// network; Chromium is launched on first escalation.
func buildPipeline(c *config.Config) (*pipelineEnv, error) {
	pexelsPool := credential.NewPool("pexels", credential.Policy(c.Pexels.Selection), c.Pexels.Keys...)
	flickrPool := credential.NewPool("flickr", credential.Policy(c.Flickr.Selection), c.Flickr.Keys...)
	if pexelsPool.Len() == 0 {
		zap.L().Debug("no pexels keys configured, direct pexels lookup disabled")
	}
	if flickrPool.Len() == 0 {
		zap.L().Debug("no flickr keys configured, direct flickr lookup disabled")
	}

	lookups := provider.Set{
		provider.NewPexels(pexels.NewClient(pexels.WithBaseURL(c.Pexels.BaseURL)), pexelsPool),
		provider.NewFlickr(flickr.NewClient(flickr.WithBaseURL(c.Flickr.BaseURL)), flickrPool),
	}

	// Retrieval: local fetch, then browser, then remote readers.
	limiter := scrape.NewHostLimiter(c.Retrieval.RatePerHost, 1)
	local := scrape.NewLocalScraper(
		seconds(c.Retrieval.TimeoutSecs),
		scrape.WithMaxBodyKB(c.Retrieval.MaxBodyKB),
		scrape.WithHostLimiter(limiter),
	)

	var tiers []scrape.Scraper
	var browser *scrape.RodBrowser
	if c.Browser.Enabled {
		browser = scrape.NewRodBrowser(scrape.BrowserOptions{
			Bin:      c.Browser.Bin,
			Headless: c.Browser.Headless,
			Settle:   time.Duration(c.Browser.SettleMs) * time.Millisecond,
			Timeout:  seconds(c.Browser.TimeoutSecs),
		})
		tiers = append(tiers, browser)
	}
	if c.Jina.Key != "" {
		tiers = append(tiers, scrape.NewJinaAdapter(jina.NewClient(c.Jina.Key, jina.WithBaseURL(c.Jina.BaseURL))))
	}
	if c.Firecrawl.Key != "" {
		fc := firecrawl.NewClient(c.Firecrawl.Key, firecrawl.WithBaseURL(c.Firecrawl.BaseURL))
		tiers = append(tiers, scrape.NewFirecrawlAdapter(fc, time.Duration(c.Browser.SettleMs)*time.Millisecond))
	}

	chain := scrape.NewChain(scrape.NewPathMatcher(c.Retrieval.ExcludePaths), local, tiers...).
		WithRetry(resilience.FromRetryConfig(c.Retrieval.MaxAttempts, c.Retrieval.InitialBackoffMs))

	// Search engines.
	engines := []search.Engine{search.NewYandex(), search.NewBing(), search.NewGoogleLens()}
	if c.SerpAPI.Key != "" {
		engines = append(engines, search.NewSerpAPI(serpapi.NewClient(c.SerpAPI.Key, serpapi.WithBaseURL(c.SerpAPI.BaseURL))))
	}
	breakers := resilience.NewServiceBreakers(resilience.FromCircuitConfig(c.Search.BreakerFailures, c.Search.BreakerResetSecs))
	agg := search.NewAggregator(engines, c.Search.Engines, breakers, c.Search.ResultMultiplier)

	prio, err := scorer.LoadPriorities(c.Pipeline.PriorityFile)
	if err != nil {
		return nil, eris.Wrap(err, "load priority domains")
	}

	p := pipeline.New(pipeline.Config{
		ScrapeLimit:      c.Pipeline.ScrapeLimit,
		Concurrent:       c.Pipeline.ConcurrentExtraction,
		Politeness:       time.Duration(c.Retrieval.PolitenessMs) * time.Millisecond,
		MinConfidence:    c.Pipeline.MinConfidence,
		MaxResults:       c.Search.MaxResults,
		SearchTimeout:    seconds(c.Search.TimeoutSecs),
		Timeout:          seconds(c.Pipeline.TimeoutSecs),
		BatchMax:         c.Batch.MaxImages,
		BatchConcurrency: c.Batch.MaxConcurrent,
	}, pipeline.Deps{
		Metadata:   metadata.NewReader(),
		Downloader: metadata.NewDownloader(seconds(c.Retrieval.TimeoutSecs), c.Pipeline.MaxImageMB),
		Providers:  lookups,
		Search:     agg,
		Strategies: extract.NewRegistry(chain, lookups),
		Scorer:     scorer.New(prio),
	})

	zap.L().Info("pipeline initialized",
		zap.Strings("engines", agg.Engines()),
		zap.Strings("default_engines", c.Search.Engines),
		zap.Int("retrieval_tiers", len(tiers)+1),
		zap.Int("priority_domains", prio.Len()),
	)

	return &pipelineEnv{
		Pipeline: p,
		Pools:    []*credential.Pool{pexelsPool, flickrPool},
		Search:   agg,
		Breakers: breakers,
		browser:  browser,
	}, nil
}

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}
