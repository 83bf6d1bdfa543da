// Package pipeline runs the attribution cascade: embedded metadata, a
// direct provider API, reverse-image search, then bounded page
// extraction and confidence ranking.
package pipeline

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sells-group/attribution-cli/internal/canonical"
	"github.com/sells-group/attribution-cli/internal/credential"
	"github.com/sells-group/attribution-cli/internal/extract"
	"github.com/sells-group/attribution-cli/internal/metadata"
	"github.com/sells-group/attribution-cli/internal/model"
	"github.com/sells-group/attribution-cli/internal/provider"
	"github.com/sells-group/attribution-cli/internal/scorer"
	"github.com/sells-group/attribution-cli/internal/search"
)

// Downloader fetches image bytes for the embedded-metadata stage.
type Downloader interface {
	Download(ctx context.Context, imageURL string) ([]byte, error)
}

// StrategySource picks the extraction strategy for a candidate URL.
type StrategySource interface {
	StrategyFor(url string) extract.Strategy
}

// Config bounds the cascade.
type Config struct {
	// ScrapeLimit is K, the number of prioritized candidates extracted.
	ScrapeLimit int
	// Concurrent extracts the K candidates in parallel; otherwise they
	// run in order with Politeness between requests.
	Concurrent bool
	Politeness time.Duration
	// MinConfidence is the floor a candidate must exceed to count as found.
	MinConfidence float64
	MaxResults    int
	SearchTimeout time.Duration
	// Timeout bounds a whole resolution.
	Timeout time.Duration

	BatchMax         int
	BatchConcurrency int
}

// DefaultConfig mirrors the config package defaults.
func DefaultConfig() Config {
	return Config{
		ScrapeLimit:      8,
		Concurrent:       true,
		Politeness:       500 * time.Millisecond,
		MinConfidence:    scorer.Floor,
		MaxResults:       10,
		SearchTimeout:    30 * time.Second,
		Timeout:          120 * time.Second,
		BatchMax:         50,
		BatchConcurrency: 5,
	}
}

// Deps are the collaborators of a Pipeline. Metadata and Downloader may
// be nil; without a Downloader, URL inputs skip the metadata stage.
type Deps struct {
	Metadata   metadata.Reader
	Downloader Downloader
	Providers  provider.Set
	Search     search.Searcher
	Strategies StrategySource
	Scorer     *scorer.Scorer
}

// Options are per-request overrides. Zero values fall back to Config.
type Options struct {
	Engines    []string
	MaxResults int
	// Timeout bounds the search fan-out.
	Timeout  time.Duration
	KeyIndex *int
}

// Pipeline resolves image attribution.
type Pipeline struct {
	cfg  Config
	deps Deps
}

// New creates a Pipeline, filling zero limits with defaults.
func New(cfg Config, deps Deps) *Pipeline {
	def := DefaultConfig()
	if cfg.ScrapeLimit <= 0 {
		cfg.ScrapeLimit = def.ScrapeLimit
	}
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = def.MaxResults
	}
	if cfg.BatchMax <= 0 {
		cfg.BatchMax = def.BatchMax
	}
	if cfg.BatchConcurrency <= 0 {
		cfg.BatchConcurrency = def.BatchConcurrency
	}
	if deps.Scorer == nil {
		deps.Scorer = scorer.New(nil)
	}
	return &Pipeline{cfg: cfg, deps: deps}
}

// Config returns the effective configuration.
func (p *Pipeline) Config() Config { return p.cfg }

// Resolve runs the cascade for one image. The error is non-nil only for
// malformed input; every other outcome, including "nothing found" and
// degraded engines, is described by the result.
func (p *Pipeline) Resolve(ctx context.Context, img model.ImageRef, opts Options) (*model.PipelineResult, error) {
	if err := img.Validate(); err != nil {
		return nil, err
	}

	requestID := uuid.New().String()
	log := zap.L().With(zap.String("request_id", requestID), zap.String("image_url", img.URL))
	started := time.Now()
	log.Info("pipeline: starting resolution", zap.Int("image_bytes", len(img.Bytes)))

	if p.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.cfg.Timeout)
		defer cancel()
	}

	result := &model.PipelineResult{
		RequestID:   requestID,
		ImageURL:    img.URL,
		Results:     []model.AttributionCandidate{},
		MatchedURLs: []string{},
		EnginesUsed: []string{},
	}
	finish := func(stage string) *model.PipelineResult {
		result.SetFound(p.cfg.MinConfidence)
		log.Info("pipeline: resolution complete",
			zap.String("decided_by", stage),
			zap.Bool("found", result.Found),
			zap.Int("results", len(result.Results)),
			zap.Duration("elapsed", time.Since(started)),
		)
		return result
	}

	// Stage 1: embedded metadata is authoritative.
	t := time.Now()
	cand := p.embedded(ctx, img, log)
	stageDone(log, "metadata", t, zap.Bool("hit", cand != nil))
	if cand != nil {
		result.Results = append(result.Results, *cand)
		return finish("metadata"), nil
	}

	// Stage 2: provider API when the photo ID is on the URL.
	if img.HasURL() {
		t = time.Now()
		cand, idx := p.direct(ctx, img.URL, opts.KeyIndex, log)
		stageDone(log, "direct_provider", t, zap.Bool("hit", cand != nil))
		if cand != nil {
			result.Results = append(result.Results, *cand)
			if idx >= 0 {
				result.KeyUsed = &idx
			}
			return finish("direct_provider"), nil
		}
	}

	// Stage 3: reverse-image search.
	t = time.Now()
	maxResults := firstPositive(opts.MaxResults, p.cfg.MaxResults)
	outcome := p.deps.Search.Search(ctx, img, search.Query{
		Engines:    opts.Engines,
		MaxResults: maxResults,
		Timeout:    firstPositiveDuration(opts.Timeout, p.cfg.SearchTimeout),
	})
	result.MatchedURLs = append(result.MatchedURLs, outcome.URLs...)
	result.EnginesUsed = append(result.EnginesUsed, outcome.Engines...)
	result.TotalFound = len(outcome.URLs)
	result.Error = strings.Join(outcome.Errors, "; ")
	stageDone(log, "search", t,
		zap.Int("urls", len(outcome.URLs)),
		zap.Strings("engines", outcome.Engines),
		zap.Strings("errors", outcome.Errors),
	)
	if len(outcome.URLs) == 0 {
		return finish("search"), nil
	}

	// Stage 4: canonicalize, deduplicate and prioritize.
	t = time.Now()
	targets := p.deps.Scorer.Priorities().Sort(canonical.CanonicalizeAll(outcome.URLs))
	if len(targets) > p.cfg.ScrapeLimit {
		targets = targets[:p.cfg.ScrapeLimit]
	}
	stageDone(log, "prioritize", t, zap.Strings("targets", targets))

	// Stage 5: bounded extraction fan-out.
	t = time.Now()
	extracted := p.extractAll(credential.WithIndex(ctx, opts.KeyIndex), targets)
	stageDone(log, "extract", t, zap.Int("candidates", len(extracted)))

	// Stage 6: score and rank.
	p.deps.Scorer.Apply(extracted)
	scorer.Rank(extracted)
	if len(extracted) > maxResults {
		extracted = extracted[:maxResults]
	}
	result.Results = extracted
	return finish("extract"), nil
}

// embedded reads creator metadata from the image itself.
func (p *Pipeline) embedded(ctx context.Context, img model.ImageRef, log *zap.Logger) *model.AttributionCandidate {
	if p.deps.Metadata == nil {
		return nil
	}
	data := img.Bytes
	if len(data) == 0 {
		if p.deps.Downloader == nil || !img.HasURL() {
			return nil
		}
		var err error
		data, err = p.deps.Downloader.Download(ctx, img.URL)
		if err != nil {
			log.Debug("pipeline: image download failed, skipping metadata", zap.Error(err))
			return nil
		}
	}
	rec := p.deps.Metadata.Read(data)
	if rec == nil || rec.Creator == "" {
		return nil
	}
	c := rec.Candidate(img.URL)
	return &c
}

// direct asks the provider API that recognises imageURL. It returns nil
// for every outcome other than a candidate with a creator.
func (p *Pipeline) direct(ctx context.Context, imageURL string, explicit *int, log *zap.Logger) (*model.AttributionCandidate, int) {
	lookup, ok := p.deps.Providers.For(imageURL)
	if !ok {
		return nil, -1
	}
	c, idx, err := lookup.Resolve(ctx, imageURL, explicit)
	if err != nil {
		log.Debug("pipeline: direct provider unavailable", zap.String("provider", lookup.Name()), zap.Error(err))
		return nil, -1
	}
	if c == nil || c.Creator == "" {
		return nil, -1
	}
	return c, idx
}

func stageDone(log *zap.Logger, stage string, started time.Time, fields ...zap.Field) {
	log.Info("pipeline: stage complete",
		append([]zap.Field{zap.String("stage", stage), zap.Duration("elapsed", time.Since(started))}, fields...)...,
	)
}

func firstPositive(vals ...int) int {
	for _, v := range vals {
		if v > 0 {
			return v
		}
	}
	return 0
}

func firstPositiveDuration(vals ...time.Duration) time.Duration {
	for _, v := range vals {
		if v > 0 {
			return v
		}
	}
	return 0
}
