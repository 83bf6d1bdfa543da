// Package flickr provides a client for the Flickr REST API.
package flickr

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"time"

	"github.com/rotisserie/eris"
)

const defaultBaseURL = "https://api.flickr.com"

// Client performs Flickr API operations with a per-call API key.
type Client interface {
	GetInfo(ctx context.Context, apiKey, photoID string) (*PhotoInfo, error)
}

// PhotoInfo is the photo object of flickr.photos.getInfo.
type PhotoInfo struct {
	ID          string   `json:"id"`
	License     string   `json:"license"`
	Owner       Owner    `json:"owner"`
	Title       content  `json:"title"`
	Description content  `json:"description"`
	Dates       Dates    `json:"dates"`
	Tags        TagList  `json:"tags"`
	URLs        URLList  `json:"urls"`
	Location    *GeoInfo `json:"location,omitempty"`
}

// Owner is the uploading account.
type Owner struct {
	NSID      string `json:"nsid"`
	Username  string `json:"username"`
	RealName  string `json:"realname"`
	Location  string `json:"location"`
	PathAlias string `json:"path_alias"`
}

// Dates holds the posted and taken timestamps.
type Dates struct {
	Posted string `json:"posted"`
	Taken  string `json:"taken"`
}

// TagList wraps the tag array.
type TagList struct {
	Tag []Tag `json:"tag"`
}

// Tag is a single photo tag.
type Tag struct {
	Raw     string `json:"raw"`
	Content string `json:"_content"`
}

// URLList wraps the url array.
type URLList struct {
	URL []TypedURL `json:"url"`
}

// TypedURL is a URL with its type, e.g. "photopage".
type TypedURL struct {
	Type    string `json:"type"`
	Content string `json:"_content"`
}

// GeoInfo holds the named places of a geotagged photo.
type GeoInfo struct {
	Locality content `json:"locality"`
	Region   content `json:"region"`
	Country  content `json:"country"`
}

type content struct {
	Content string `json:"_content"`
}

func (c content) String() string { return c.Content }

// TitleText returns the plain title.
func (p *PhotoInfo) TitleText() string { return p.Title.Content }

// DescriptionText returns the plain description.
func (p *PhotoInfo) DescriptionText() string { return p.Description.Content }

// PhotoPage returns the canonical photo page URL, if present.
func (p *PhotoInfo) PhotoPage() string {
	for _, u := range p.URLs.URL {
		if u.Type == "photopage" {
			return u.Content
		}
	}
	return ""
}

// APIError is returned for HTTP failures and for "stat":"fail" payloads,
// which are mapped onto HTTP-like statuses.
type APIError struct {
	StatusCode int
	Code       int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("flickr: HTTP %d (code %d): %s", e.StatusCode, e.Code, e.Message)
}

// HTTPStatus returns the effective status.
func (e *APIError) HTTPStatus() int { return e.StatusCode }

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(u string) Option {
	return func(c *httpClient) {
		c.baseURL = u
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

type httpClient struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a Flickr API client.
func NewClient(opts ...Option) Client {
	c := &httpClient{
		baseURL: defaultBaseURL,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

type getInfoResponse struct {
	Stat    string    `json:"stat"`
	Code    int       `json:"code"`
	Message string    `json:"message"`
	Photo   PhotoInfo `json:"photo"`
}

func (c *httpClient) GetInfo(ctx context.Context, apiKey, photoID string) (*PhotoInfo, error) {
	q := url.Values{}
	q.Set("method", "flickr.photos.getInfo")
	q.Set("api_key", apiKey)
	q.Set("photo_id", photoID)
	q.Set("format", "json")
	q.Set("nojsoncallback", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/services/rest/?"+q.Encode(), nil)
	if err != nil {
		return nil, eris.Wrap(err, "flickr: create request")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "flickr: send request")
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, eris.Wrap(err, "flickr: read response")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{StatusCode: resp.StatusCode, Message: string(body)}
	}

	var out getInfoResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, eris.Wrap(err, "flickr: unmarshal response")
	}
	if out.Stat != "ok" {
		return nil, &APIError{StatusCode: statusForCode(out.Code), Code: out.Code, Message: out.Message}
	}
	return &out.Photo, nil
}

// statusForCode maps Flickr error codes onto HTTP statuses so callers can
// apply one retry policy across providers.
func statusForCode(code int) int {
	switch code {
	case 1, 2: // photo not found, permission denied
		return http.StatusNotFound
	case 100, 98: // invalid API key, invalid auth token
		return http.StatusUnauthorized
	case 105: // service unavailable
		return http.StatusServiceUnavailable
	default:
		return http.StatusBadRequest
	}
}

var licenseNames = map[string]string{
	"0":  "All Rights Reserved",
	"1":  "CC BY-NC-SA 2.0",
	"2":  "CC BY-NC 2.0",
	"3":  "CC BY-NC-ND 2.0",
	"4":  "CC BY 2.0",
	"5":  "CC BY-SA 2.0",
	"6":  "CC BY-ND 2.0",
	"7":  "No known copyright restrictions",
	"8":  "United States Government Work",
	"9":  "CC0 1.0",
	"10": "Public Domain Mark 1.0",
}

// LicenseName maps a Flickr license code to its label, or "" if unknown.
func LicenseName(code string) string {
	return licenseNames[code]
}

var photoIDRe = regexp.MustCompile(`flickr\.com/photos/[^/]+/(\d+)`)

// PhotoID extracts the numeric photo ID from a Flickr photo page URL.
func PhotoID(rawURL string) (string, bool) {
	if m := photoIDRe.FindStringSubmatch(rawURL); len(m) > 1 {
		return m[1], true
	}
	return "", false
}
