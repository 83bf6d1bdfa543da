package scrape

import (
	"context"

	"github.com/sells-group/attribution-cli/internal/model"
)

// Scraper fetches a single URL and returns its document.
type Scraper interface {
	Scrape(ctx context.Context, url string) (*model.Page, error)
	Name() string
	Supports(url string) bool
}
