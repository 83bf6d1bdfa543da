// Package extract turns a candidate page into an AttributionCandidate.
// Strategies are chosen per domain; every strategy runs the generic
// structured-data extraction and layers provider markup on top.
package extract

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/attribution-cli/internal/credential"
	"github.com/sells-group/attribution-cli/internal/model"
	"github.com/sells-group/attribution-cli/internal/provider"
	"github.com/sells-group/attribution-cli/internal/scrape"
)

// Strategy extracts attribution for one candidate URL. Extract never
// returns an error; failures come back as a failed candidate.
type Strategy interface {
	Name() string
	Extract(ctx context.Context, url string) model.AttributionCandidate
}

// Hook edits a candidate using a parsed page.
type Hook func(doc *Document, c *model.AttributionCandidate)

// PageStrategy fetches the page and runs, in order: JSON-LD, the
// provider markup hook, the generic meta and text fallbacks, then the
// post hook. Markup and fallbacks only fill empty fields. A non-empty
// License is applied last and always wins.
type PageStrategy struct {
	name    string
	fetcher scrape.Fetcher
	lookup  provider.Lookup
	markup  Hook
	post    Hook
	license string
}

// StrategyOption configures a PageStrategy.
type StrategyOption func(*PageStrategy)

// WithMarkup sets the hook run between JSON-LD and the generic fallbacks.
func WithMarkup(h Hook) StrategyOption {
	return func(s *PageStrategy) { s.markup = h }
}

// WithPost sets the hook run after all generic steps.
func WithPost(h Hook) StrategyOption {
	return func(s *PageStrategy) { s.post = h }
}

// WithLicense fixes the license label of every candidate.
func WithLicense(label string) StrategyOption {
	return func(s *PageStrategy) { s.license = label }
}

// WithLookup tries a provider API before fetching the page.
func WithLookup(l provider.Lookup) StrategyOption {
	return func(s *PageStrategy) { s.lookup = l }
}

// NewPageStrategy creates a strategy named name.
func NewPageStrategy(name string, fetcher scrape.Fetcher, opts ...StrategyOption) *PageStrategy {
	s := &PageStrategy{name: name, fetcher: fetcher}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Name implements Strategy.
func (s *PageStrategy) Name() string { return s.name }

// Extract implements Strategy.
func (s *PageStrategy) Extract(ctx context.Context, url string) model.AttributionCandidate {
	log := zap.L().With(zap.String("strategy", s.name), zap.String("url", url))

	if s.lookup != nil && s.lookup.Matches(url) {
		c, _, err := s.lookup.Resolve(ctx, url, credential.IndexFrom(ctx))
		if err == nil && c.Creator != "" {
			c.Source = s.name
			return *c
		}
		if err != nil && ctx.Err() == nil {
			log.Debug("extract: provider api failed, scraping page", zap.Error(err))
		}
	}

	page, blocked, err := s.fetcher.Fetch(ctx, url)
	if err != nil {
		log.Debug("extract: fetch failed", zap.Error(err))
		return model.FailedCandidate(url, s.name, err)
	}
	if blocked {
		log.Debug("extract: page served by escalation tier", zap.String("tier", page.Source))
	}

	doc, err := Parse(page.HTML)
	if err != nil {
		return model.FailedCandidate(url, s.name, eris.Wrap(err, "extract: parse html"))
	}

	return s.FromDocument(doc, url)
}

// FromDocument runs the extraction steps over an already parsed page.
func (s *PageStrategy) FromDocument(doc *Document, url string) model.AttributionCandidate {
	c := model.AttributionCandidate{SourceURL: url, Source: s.name}
	fromJSONLD(doc, &c)
	if s.markup != nil {
		s.markup(doc, &c)
	}
	applyFallbacks(doc, &c)
	if s.post != nil {
		s.post(doc, &c)
	}
	if s.license != "" {
		c.License = s.license
	}
	c.Finalize()
	return c
}
