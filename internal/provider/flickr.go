package provider

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/attribution-cli/internal/credential"
	"github.com/sells-group/attribution-cli/internal/model"
	"github.com/sells-group/attribution-cli/pkg/flickr"
)

// Flickr resolves flickr.com photo pages via flickr.photos.getInfo.
type Flickr struct {
	client flickr.Client
	pool   *credential.Pool
}

// NewFlickr creates a Flickr lookup.
func NewFlickr(client flickr.Client, pool *credential.Pool) *Flickr {
	return &Flickr{client: client, pool: pool}
}

func (f *Flickr) Name() string { return "flickr" }

func (f *Flickr) Matches(url string) bool {
	_, ok := flickr.PhotoID(url)
	return ok
}

// Resolve fetches photo info and maps it to a candidate.
func (f *Flickr) Resolve(ctx context.Context, url string, explicit *int) (*model.AttributionCandidate, int, error) {
	id, ok := flickr.PhotoID(url)
	if !ok {
		return nil, -1, ErrNoMatch
	}
	info, idx, err := credential.Call(ctx, f.pool, explicit, func(ctx context.Context, key string) (*flickr.PhotoInfo, error) {
		return f.client.GetInfo(ctx, key, id)
	})
	if err != nil {
		return nil, idx, eris.Wrapf(err, "flickr: photo %s", id)
	}

	creator := info.Owner.RealName
	if creator == "" {
		creator = info.Owner.Username
	}
	c := &model.AttributionCandidate{
		SourceURL:   info.PhotoPage(),
		Source:      f.Name(),
		Creator:     creator,
		Title:       info.TitleText(),
		Description: info.DescriptionText(),
		License:     flickr.LicenseName(info.License),
		Location:    info.Owner.Location,
		Confidence:  DirectConfidence,
	}
	if c.SourceURL == "" {
		c.SourceURL = url
	}
	if info.Owner.PathAlias != "" {
		c.CreatorURL = "https://www.flickr.com/photos/" + info.Owner.PathAlias + "/"
	} else if info.Owner.NSID != "" {
		c.CreatorURL = "https://www.flickr.com/photos/" + info.Owner.NSID + "/"
	}
	if taken := info.Dates.Taken; len(taken) >= 10 {
		c.DateCreated = taken[:10]
	}
	for _, t := range info.Tags.Tag {
		kw := strings.TrimSpace(t.Raw)
		if kw == "" {
			kw = t.Content
		}
		c.Keywords = append(c.Keywords, kw)
	}
	c.Finalize()
	return c, idx, nil
}
