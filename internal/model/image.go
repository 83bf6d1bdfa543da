package model

import (
	"strings"

	"github.com/rotisserie/eris"
)

// ErrInvalidImage marks malformed input: it is rejected before any
// pipeline work runs.
var ErrInvalidImage = eris.New("invalid image reference")

// ImageRef identifies the image to resolve, either by URL or raw bytes.
type ImageRef struct {
	URL   string
	Bytes []byte
}

// HasURL reports whether the reference carries a URL.
func (r ImageRef) HasURL() bool { return r.URL != "" }

// Validate rejects empty references and URLs that are not http(s).
func (r ImageRef) Validate() error {
	if r.URL == "" && len(r.Bytes) == 0 {
		return eris.Wrap(ErrInvalidImage, "no url or bytes")
	}
	if r.URL != "" {
		lower := strings.ToLower(r.URL)
		if !strings.HasPrefix(lower, "http://") && !strings.HasPrefix(lower, "https://") {
			return eris.Wrapf(ErrInvalidImage, "unsupported url %q", r.URL)
		}
	}
	return nil
}

// Page is the retrieved content of a candidate page.
type Page struct {
	URL         string
	HTML        string
	StatusCode  int
	ContentType string
	Source      string // e.g. "local_http", "browser", "jina"
}
