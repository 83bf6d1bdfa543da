// Package scrape retrieves candidate pages for attribution extraction. A
// plain HTTP fetch is tried first; blocked or non-document responses
// escalate through a headless browser and remote reader services.
package scrape

import (
	"context"
	"errors"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/attribution-cli/internal/model"
	"github.com/sells-group/attribution-cli/internal/resilience"
)

// ErrExcluded is returned for URLs the path matcher rejects.
var ErrExcluded = eris.New("scrape: url excluded by path matcher")

// Fetcher is the retrieval contract used by extraction strategies.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*model.Page, bool, error)
}

// Chain fetches locally with bounded retries, then tries each escalation
// tier in order, returning the first unblocked document.
type Chain struct {
	PathMatcher *PathMatcher
	local       Scraper
	escalation  []Scraper
	retry       resilience.RetryConfig
	timeout     time.Duration
}

// NewChain creates a Chain. local handles ordinary retrieval; escalation
// tiers (browser, readers) are tried in the order given.
func NewChain(matcher *PathMatcher, local Scraper, escalation ...Scraper) *Chain {
	return &Chain{
		PathMatcher: matcher,
		local:       local,
		escalation:  escalation,
		retry:       resilience.DefaultRetryConfig(),
	}
}

// WithRetry sets the local retry policy.
func (c *Chain) WithRetry(cfg resilience.RetryConfig) *Chain {
	c.retry = cfg
	return c
}

// WithTimeout bounds every single tier attempt.
func (c *Chain) WithTimeout(d time.Duration) *Chain {
	c.timeout = d
	return c
}

// Fetch retrieves targetURL. The bool reports whether ordinary retrieval
// was blocked and the page (if any) came from an escalation tier.
func (c *Chain) Fetch(ctx context.Context, targetURL string) (*model.Page, bool, error) {
	if c.PathMatcher != nil && c.PathMatcher.IsExcluded(targetURL) {
		return nil, false, eris.Wrapf(ErrExcluded, "%s", targetURL)
	}

	retry := c.retry
	retry.ShouldRetry = shouldRetryLocal
	retry.OnRetry = resilience.RetryLogger("scrape", c.local.Name())

	page, err := resilience.DoVal(ctx, retry, func(ctx context.Context) (*model.Page, error) {
		return c.attempt(ctx, c.local, targetURL)
	})
	if err == nil {
		return page, false, nil
	}
	if ctx.Err() != nil {
		return nil, false, eris.Wrap(ctx.Err(), "scrape: fetch cancelled")
	}

	var blocked *BlockedError
	wasBlocked := errors.As(err, &blocked)
	zap.L().Debug("scrape: escalating",
		zap.String("url", targetURL),
		zap.Bool("blocked", wasBlocked),
		zap.Error(err),
	)

	lastErr := err
	for _, s := range c.escalation {
		if !s.Supports(targetURL) {
			continue
		}
		page, err := c.attempt(ctx, s, targetURL)
		if err == nil {
			return page, wasBlocked, nil
		}
		zap.L().Debug("scrape: tier failed, trying next",
			zap.String("scraper", s.Name()),
			zap.String("url", targetURL),
			zap.Error(err),
		)
		lastErr = err
		if ctx.Err() != nil {
			break
		}
	}
	return nil, wasBlocked, eris.Wrap(lastErr, "scrape: all tiers failed")
}

// attempt runs one scraper under the per-tier timeout and rejects
// challenge pages it returns.
func (c *Chain) attempt(ctx context.Context, s Scraper, targetURL string) (*model.Page, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	page, err := s.Scrape(ctx, targetURL)
	if err != nil {
		return nil, err
	}
	if page == nil {
		return nil, eris.Errorf("scrape: %s returned no page", s.Name())
	}
	if bt := DetectChallenge([]byte(page.HTML)); bt != BlockNone {
		return nil, &BlockedError{Type: bt, Status: page.StatusCode}
	}
	return page, nil
}

// shouldRetryLocal retries transient failures and challenge pages. Images,
// non-HTML content and hard status codes go straight to escalation.
func shouldRetryLocal(err error) bool {
	var blocked *BlockedError
	if errors.As(err, &blocked) {
		if blocked.Type.Challenge() {
			return true
		}
		return resilience.IsTransientHTTPStatus(blocked.Status)
	}
	return resilience.IsTransient(err)
}
