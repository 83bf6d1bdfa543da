// Package provider resolves attribution straight from photo-site APIs when
// the photo ID can be read off the URL, without any searching or scraping.
package provider

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/attribution-cli/internal/model"
)

// DirectConfidence is the confidence of a candidate returned by a provider API.
const DirectConfidence = 0.95

// ErrNoMatch means the URL does not belong to the provider.
var ErrNoMatch = eris.New("provider: url not recognised")

// Lookup resolves a photo URL through a provider API. The returned index
// is the credential slot used, or -1 when none was.
type Lookup interface {
	Name() string
	Matches(url string) bool
	Resolve(ctx context.Context, url string, explicit *int) (*model.AttributionCandidate, int, error)
}

// Set tries lookups in order.
type Set []Lookup

// For returns the first lookup that recognises url.
func (s Set) For(url string) (Lookup, bool) {
	for _, l := range s {
		if l.Matches(url) {
			return l, true
		}
	}
	return nil, false
}
