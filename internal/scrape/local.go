package scrape

import (
	"context"
	"io"
	"mime"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/text/encoding/htmlindex"

	"github.com/sells-group/attribution-cli/internal/model"
	"github.com/sells-group/attribution-cli/internal/resilience"
)

// LocalScraper fetches HTML via net/http with a rotating user agent and
// detects blocks. Blocked responses come back as *BlockedError so the chain
// can decide between retrying and escalating.
type LocalScraper struct {
	client  *http.Client
	maxBody int64
	limiter *HostLimiter
	agents  userAgentRotator
}

// LocalOption configures a LocalScraper.
type LocalOption func(*LocalScraper)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) LocalOption {
	return func(l *LocalScraper) { l.client = hc }
}

// WithMaxBodyKB limits how much of a page is read.
func WithMaxBodyKB(kb int) LocalOption {
	return func(l *LocalScraper) {
		if kb > 0 {
			l.maxBody = int64(kb) * 1024
		}
	}
}

// WithHostLimiter throttles requests per host.
func WithHostLimiter(h *HostLimiter) LocalOption {
	return func(l *LocalScraper) { l.limiter = h }
}

// NewLocalScraper creates a LocalScraper with sensible defaults.
func NewLocalScraper(timeout time.Duration, opts ...LocalOption) *LocalScraper {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	l := &LocalScraper{
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout: 10 * time.Second,
				}).DialContext,
				TLSHandshakeTimeout: 10 * time.Second,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		maxBody: 2048 * 1024,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *LocalScraper) Name() string           { return "local_http" }
func (l *LocalScraper) Supports(_ string) bool { return true }

// Scrape fetches a URL, decodes its charset and checks it for blocks.
func (l *LocalScraper) Scrape(ctx context.Context, targetURL string) (*model.Page, error) {
	if err := l.limiter.Wait(ctx, targetURL); err != nil {
		return nil, eris.Wrap(err, "local_http: rate limit wait")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, targetURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "local_http: create request")
	}
	req.Header.Set("User-Agent", l.agents.Next())
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "local_http: fetch")
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, l.maxBody))
	if err != nil {
		return nil, eris.Wrap(err, "local_http: read body")
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		l.limiter.OnRateLimit(targetURL)
	}

	if blocked, blockType := DetectBlock(resp, body); blocked {
		berr := &BlockedError{Type: blockType, Status: resp.StatusCode}
		if blockType == BlockStatus && resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return nil, resilience.NewTransientError(berr, resp.StatusCode)
		}
		return nil, berr
	}
	l.limiter.OnSuccess(targetURL)

	contentType := resp.Header.Get("Content-Type")
	return &model.Page{
		URL:         resp.Request.URL.String(),
		HTML:        decodeCharset(body, contentType),
		StatusCode:  resp.StatusCode,
		ContentType: contentType,
		Source:      l.Name(),
	}, nil
}

// decodeCharset converts body to UTF-8 when the content type names another
// charset. Unknown charsets are passed through unchanged.
func decodeCharset(body []byte, contentType string) string {
	_, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return string(body)
	}
	charset := strings.ToLower(strings.TrimSpace(params["charset"]))
	if charset == "" || charset == "utf-8" || charset == "utf8" {
		return string(body)
	}
	enc, err := htmlindex.Get(charset)
	if err != nil {
		return string(body)
	}
	decoded, err := enc.NewDecoder().Bytes(body)
	if err != nil {
		return string(body)
	}
	return string(decoded)
}
