package scrape

import (
	"context"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/attribution-cli/internal/model"
	"github.com/sells-group/attribution-cli/internal/resilience"
	"github.com/sells-group/attribution-cli/pkg/jina"
)

// JinaAdapter wraps a Jina Reader client as a Scraper with a circuit breaker.
type JinaAdapter struct {
	client  jina.Client
	breaker *resilience.CircuitBreaker
}

// NewJinaAdapter creates a JinaAdapter from a Jina client.
// 3 consecutive failures open the circuit for 60s, during which the chain
// skips straight to the next tier.
func NewJinaAdapter(client jina.Client) *JinaAdapter {
	return &JinaAdapter{
		client: client,
		breaker: resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
			FailureThreshold: 3,
			ResetTimeout:     60 * time.Second,
		}),
	}
}

func (j *JinaAdapter) Name() string { return "jina" }

// Supports returns true unless the circuit breaker is open.
func (j *JinaAdapter) Supports(_ string) bool {
	return j.breaker.State() != resilience.CircuitOpen
}

// Scrape fetches rendered HTML for a URL via Jina Reader.
func (j *JinaAdapter) Scrape(ctx context.Context, targetURL string) (*model.Page, error) {
	return resilience.ExecuteVal(ctx, j.breaker, func(ctx context.Context) (*model.Page, error) {
		resp, err := j.client.Read(ctx, targetURL)
		if err != nil {
			return nil, err
		}
		if resp.Code != 0 && resp.Code != 200 {
			return nil, eris.Errorf("jina: response code %d", resp.Code)
		}

		body := strings.TrimSpace(resp.Data.Body())
		if len(body) < 100 {
			return nil, eris.New("jina: empty response")
		}

		pageURL := resp.Data.URL
		if pageURL == "" {
			pageURL = targetURL
		}
		return &model.Page{
			URL:         pageURL,
			HTML:        body,
			StatusCode:  200,
			ContentType: "text/html",
			Source:      j.Name(),
		}, nil
	})
}
