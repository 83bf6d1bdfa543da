package scrape

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/attribution-cli/internal/model"
	"github.com/sells-group/attribution-cli/internal/resilience"
	"github.com/sells-group/attribution-cli/pkg/firecrawl"
)

// FirecrawlAdapter wraps a Firecrawl client as the last retrieval tier.
type FirecrawlAdapter struct {
	client  firecrawl.Client
	breaker *resilience.CircuitBreaker
	waitFor int
}

// NewFirecrawlAdapter creates a FirecrawlAdapter from a Firecrawl client.
// settle is passed as waitFor so client-rendered credits are present.
func NewFirecrawlAdapter(client firecrawl.Client, settle time.Duration) *FirecrawlAdapter {
	return &FirecrawlAdapter{
		client: client,
		breaker: resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
			FailureThreshold: 3,
			ResetTimeout:     60 * time.Second,
		}),
		waitFor: int(settle / time.Millisecond),
	}
}

// Name implements Scraper.
func (f *FirecrawlAdapter) Name() string { return "firecrawl" }

// Supports returns true unless the circuit breaker is open.
func (f *FirecrawlAdapter) Supports(_ string) bool {
	return f.breaker.State() != resilience.CircuitOpen
}

// Scrape fetches a single URL's raw HTML via Firecrawl's scrape API.
func (f *FirecrawlAdapter) Scrape(ctx context.Context, targetURL string) (*model.Page, error) {
	return resilience.ExecuteVal(ctx, f.breaker, func(ctx context.Context) (*model.Page, error) {
		resp, err := f.client.Scrape(ctx, firecrawl.ScrapeRequest{
			URL:     targetURL,
			Formats: []string{"rawHtml"},
			WaitFor: f.waitFor,
		})
		if err != nil {
			return nil, err
		}
		if !resp.Success {
			return nil, eris.New("firecrawl: scrape not successful")
		}

		html := resp.Data.RawHTML
		if html == "" {
			html = resp.Data.HTML
		}
		if html == "" {
			return nil, eris.New("firecrawl: empty document")
		}
		status := resp.Data.Metadata.StatusCode
		if status >= 400 {
			return nil, &BlockedError{Type: BlockStatus, Status: status}
		}

		pageURL := resp.Data.Metadata.SourceURL
		if pageURL == "" {
			pageURL = targetURL
		}
		return &model.Page{
			URL:         pageURL,
			HTML:        html,
			StatusCode:  status,
			ContentType: "text/html",
			Source:      f.Name(),
		}, nil
	})
}
