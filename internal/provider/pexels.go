package provider

import (
	"context"
	"fmt"

	"github.com/rotisserie/eris"

	"github.com/sells-group/attribution-cli/internal/credential"
	"github.com/sells-group/attribution-cli/internal/model"
	"github.com/sells-group/attribution-cli/pkg/pexels"
)

// PexelsLicense is the label for every Pexels photo.
const PexelsLicense = "Pexels License"

// Pexels resolves pexels.com photos via the Pexels API.
type Pexels struct {
	client pexels.Client
	pool   *credential.Pool
}

// NewPexels creates a Pexels lookup.
func NewPexels(client pexels.Client, pool *credential.Pool) *Pexels {
	return &Pexels{client: client, pool: pool}
}

func (p *Pexels) Name() string { return "pexels" }

func (p *Pexels) Matches(url string) bool {
	_, ok := pexels.PhotoID(url)
	return ok
}

// Resolve fetches the photo and maps it to a candidate.
func (p *Pexels) Resolve(ctx context.Context, url string, explicit *int) (*model.AttributionCandidate, int, error) {
	id, ok := pexels.PhotoID(url)
	if !ok {
		return nil, -1, ErrNoMatch
	}
	photo, idx, err := credential.Call(ctx, p.pool, explicit, func(ctx context.Context, key string) (*pexels.Photo, error) {
		return p.client.GetPhoto(ctx, key, id)
	})
	if err != nil {
		return nil, idx, eris.Wrapf(err, "pexels: photo %s", id)
	}

	c := &model.AttributionCandidate{
		SourceURL:  photo.URL,
		Source:     p.Name(),
		Creator:    photo.Photographer,
		CreatorURL: photo.PhotographerURL,
		Title:      photo.Alt,
		License:    PexelsLicense,
		Confidence: DirectConfidence,
	}
	if c.SourceURL == "" {
		c.SourceURL = fmt.Sprintf("https://www.pexels.com/photo/%s/", id)
	}
	if c.Title == "" {
		c.Title = "Pexels Photo " + id
	}
	if c.Creator != "" {
		c.Copyright = "© " + c.Creator
	}
	c.Finalize()
	return c, idx, nil
}
