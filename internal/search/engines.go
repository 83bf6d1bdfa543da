package search

import (
	"bytes"
	"context"
	"encoding/base64"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/attribution-cli/internal/model"
	"github.com/sells-group/attribution-cli/pkg/serpapi"
)

// Engine names.
const (
	Yandex     = "yandex"
	Bing       = "bing"
	GoogleLens = "google_lens"
	SerpAPI    = "serpapi"
)

// DefaultEngines is the engine set used when a request names none.
var DefaultEngines = []string{Yandex, Bing}

// Option configures a scraping engine.
type Option func(*pageEngine)

// WithBaseURL points an engine at another host.
func WithBaseURL(u string) Option {
	return func(e *pageEngine) { e.baseURL = strings.TrimRight(u, "/") }
}

// WithHTTPClient sets the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(e *pageEngine) { e.http = hc }
}

// pageEngine scrapes an engine's HTML result page. byURL builds the
// query-string request; byBytes builds the upload request and may be nil.
type pageEngine struct {
	name    string
	baseURL string
	http    *http.Client
	filter  linkFilter
	byURL   func(base, imageURL string) string
	byBytes func(ctx context.Context, base string, data []byte) (*http.Request, error)
}

func newPageEngine(name, base string, own []string, opts []Option) *pageEngine {
	e := &pageEngine{
		name:    name,
		baseURL: base,
		http:    &http.Client{Timeout: 30 * time.Second},
		filter:  linkFilter{engine: name, ownDomains: own},
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

func (e *pageEngine) Name() string { return e.name }

func (e *pageEngine) Search(ctx context.Context, img model.ImageRef) ([]model.SearchMatch, error) {
	var (
		req *http.Request
		err error
	)
	switch {
	case img.HasURL():
		req, err = http.NewRequestWithContext(ctx, http.MethodGet, e.byURL(e.baseURL, img.URL), nil)
	case e.byBytes == nil:
		return nil, eris.Wrapf(ErrUnsupported, "%s: search by bytes", e.name)
	default:
		req, err = e.byBytes(ctx, e.baseURL, img.Bytes)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "%s: build request", e.name)
	}

	body, err := fetchResults(e.http, e.name, req)
	if err != nil {
		return nil, err
	}
	return parseLinks(body, e.filter), nil
}

// NewYandex creates the Yandex Images engine.
func NewYandex(opts ...Option) Engine {
	e := newPageEngine(Yandex, "https://yandex.com", []string{"yandex", "yastatic.net"}, opts)
	e.byURL = func(base, imageURL string) string {
		return base + "/images/search?rpt=imageview&url=" + url.QueryEscape(imageURL)
	}
	e.byBytes = func(ctx context.Context, base string, data []byte) (*http.Request, error) {
		return multipartRequest(ctx, base+"/images/search?rpt=imageview", "upfile", data, false)
	}
	return e
}

// NewBing creates the Bing visual search engine.
func NewBing(opts ...Option) Engine {
	e := newPageEngine(Bing, "https://www.bing.com", []string{"bing.com", "microsoft.com", "msn.com"}, opts)
	e.byURL = func(base, imageURL string) string {
		return base + "/images/search?view=detailv2&iss=sbi&q=imgurl:" + url.QueryEscape(imageURL)
	}
	e.byBytes = func(ctx context.Context, base string, data []byte) (*http.Request, error) {
		return multipartRequest(ctx, base+"/images/search?view=detailv2&iss=sbi", "imageBin", data, true)
	}
	return e
}

// NewGoogleLens creates the direct Google Lens engine. It only queries
// by URL.
func NewGoogleLens(opts ...Option) Engine {
	e := newPageEngine(GoogleLens, "https://lens.google.com", []string{"google", "gstatic.com", "googleusercontent.com"}, opts)
	e.byURL = func(base, imageURL string) string {
		return base + "/uploadbyurl?url=" + url.QueryEscape(imageURL)
	}
	return e
}

func multipartRequest(ctx context.Context, target, field string, data []byte, b64 bool) (*http.Request, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if b64 {
		if err := w.WriteField(field, base64.StdEncoding.EncodeToString(data)); err != nil {
			return nil, err
		}
	} else {
		part, err := w.CreateFormFile(field, "image.jpg")
		if err != nil {
			return nil, err
		}
		if _, err := part.Write(data); err != nil {
			return nil, err
		}
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req, nil
}

// serpEngine queries Google Lens through SerpAPI.
type serpEngine struct {
	client serpapi.Client
}

// NewSerpAPI creates the SerpAPI Google Lens engine.
func NewSerpAPI(client serpapi.Client) Engine {
	return &serpEngine{client: client}
}

func (e *serpEngine) Name() string { return SerpAPI }

func (e *serpEngine) Search(ctx context.Context, img model.ImageRef) ([]model.SearchMatch, error) {
	if !img.HasURL() {
		return nil, eris.Wrap(ErrUnsupported, "serpapi: search by bytes")
	}
	resp, err := e.client.GoogleLens(ctx, img.URL)
	if err != nil {
		return nil, err
	}
	if resp.Error != "" && len(resp.VisualMatches) == 0 {
		// SerpAPI reports an empty result set as an error string.
		if strings.Contains(strings.ToLower(resp.Error), "hasn't returned any results") {
			return nil, nil
		}
		return nil, eris.Errorf("serpapi: %s", resp.Error)
	}

	var out []model.SearchMatch
	seen := make(map[string]bool)
	add := func(link, snippet string) {
		if link == "" || seen[link] || len(out) >= maxEngineURLs {
			return
		}
		seen[link] = true
		out = append(out, model.SearchMatch{URL: link, Context: clip(snippet, maxContext), Engine: SerpAPI})
	}
	for _, l := range resp.KnowledgeGraphLinks() {
		add(l, "")
	}
	for _, m := range resp.VisualMatches {
		add(m.Link, strings.TrimSpace(m.Title+" "+m.Source))
	}
	return out, nil
}
