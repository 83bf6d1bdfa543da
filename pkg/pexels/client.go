// Package pexels provides a client for the Pexels photo API.
package pexels

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rotisserie/eris"
)

const defaultBaseURL = "https://api.pexels.com"

// Client performs Pexels API operations. The API key is passed per call so
// the caller can rotate keys.
type Client interface {
	GetPhoto(ctx context.Context, apiKey, photoID string) (*Photo, error)
}

// Photo is the subset of the Pexels photo resource used for attribution.
type Photo struct {
	ID              int64  `json:"id"`
	Width           int    `json:"width"`
	Height          int    `json:"height"`
	URL             string `json:"url"`
	Photographer    string `json:"photographer"`
	PhotographerURL string `json:"photographer_url"`
	PhotographerID  int64  `json:"photographer_id"`
	AvgColor        string `json:"avg_color"`
	Alt             string `json:"alt"`
	Src             Src    `json:"src"`
}

// Src holds the rendition URLs.
type Src struct {
	Original string `json:"original"`
	Large    string `json:"large"`
	Medium   string `json:"medium"`
}

// APIError is returned when Pexels responds with a non-2xx status.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("pexels: HTTP %d: %s", e.StatusCode, e.Body)
}

// HTTPStatus returns the response status.
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

// NewClient creates a Pexels API client.
func NewClient(opts ...Option) Client {
	c := &httpClient{
		baseURL: defaultBaseURL,
		http: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *httpClient) GetPhoto(ctx context.Context, apiKey, photoID string) (*Photo, error) {
	endpoint := fmt.Sprintf("%s/v1/photos/%s", c.baseURL, url.PathEscape(photoID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, eris.Wrap(err, "pexels: create request")
	}
	req.Header.Set("Authorization", apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "pexels: send request")
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, eris.Wrap(err, "pexels: read response")
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var photo Photo
	if err := json.Unmarshal(body, &photo); err != nil {
		return nil, eris.Wrap(err, "pexels: unmarshal response")
	}
	return &photo, nil
}
