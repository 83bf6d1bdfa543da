package metadata

import (
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/attribution-cli/internal/resilience"
)

// Downloader fetches image bytes so embedded metadata can be read.
type Downloader struct {
	client   *http.Client
	maxBytes int64
}

// NewDownloader creates a Downloader that reads at most maxMB megabytes.
func NewDownloader(timeout time.Duration, maxMB int) *Downloader {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if maxMB <= 0 {
		maxMB = 20
	}
	return &Downloader{
		client:   &http.Client{Timeout: timeout},
		maxBytes: int64(maxMB) << 20,
	}
}

// Download GETs imageURL. Non-200 responses and documents that are not
// images are errors; bodies over the size limit are rejected.
func (d *Downloader) Download(ctx context.Context, imageURL string) ([]byte, error) {
	cfg := resilience.DefaultRetryConfig()
	cfg.MaxAttempts = 2
	cfg.OnRetry = resilience.RetryLogger("metadata", "download")

	return resilience.DoVal(ctx, cfg, func(ctx context.Context) ([]byte, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
		if err != nil {
			return nil, eris.Wrap(err, "metadata: create request")
		}
		req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; attribution-cli/1.0)")
		req.Header.Set("Accept", "image/*")

		resp, err := d.client.Do(req)
		if err != nil {
			return nil, eris.Wrap(err, "metadata: fetch image")
		}
		defer func() { _ = resp.Body.Close() }()

		if resp.StatusCode != http.StatusOK {
			err := eris.Errorf("metadata: image status %d", resp.StatusCode)
			if resilience.IsTransientHTTPStatus(resp.StatusCode) {
				return nil, resilience.NewTransientError(err, resp.StatusCode)
			}
			return nil, err
		}
		ct := strings.ToLower(resp.Header.Get("Content-Type"))
		if ct != "" && !strings.HasPrefix(ct, "image/") && !strings.HasPrefix(ct, "application/octet-stream") {
			return nil, eris.Errorf("metadata: not an image (%s)", ct)
		}

		data, err := io.ReadAll(io.LimitReader(resp.Body, d.maxBytes+1))
		if err != nil {
			return nil, eris.Wrap(err, "metadata: read image")
		}
		if int64(len(data)) > d.maxBytes {
			return nil, eris.Errorf("metadata: image exceeds %d bytes", d.maxBytes)
		}
		return data, nil
	})
}
