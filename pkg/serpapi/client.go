// Package serpapi provides a client for SerpAPI's Google Lens engine.
package serpapi

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

const defaultBaseURL = "https://serpapi.com"

// Client performs SerpAPI searches.
type Client interface {
	GoogleLens(ctx context.Context, imageURL string) (*LensResponse, error)
}

// LensResponse is the subset of a google_lens result used for matching.
type LensResponse struct {
	VisualMatches  []VisualMatch   `json:"visual_matches"`
	KnowledgeGraph json.RawMessage `json:"knowledge_graph,omitempty"`
	Error          string          `json:"error,omitempty"`
}

// VisualMatch is one page that shows a visually matching image.
type VisualMatch struct {
	Position int    `json:"position"`
	Title    string `json:"title"`
	Link     string `json:"link"`
	Source   string `json:"source"`
}

type kgEntry struct {
	Link   string `json:"link"`
	Source struct {
		Link string `json:"link"`
	} `json:"source"`
}

// KnowledgeGraphLinks returns source links from the knowledge graph, which
// SerpAPI has shipped both as an object and as an array of objects.
func (r *LensResponse) KnowledgeGraphLinks() []string {
	if len(r.KnowledgeGraph) == 0 {
		return nil
	}
	var entries []kgEntry
	if err := json.Unmarshal(r.KnowledgeGraph, &entries); err != nil {
		var one kgEntry
		if err := json.Unmarshal(r.KnowledgeGraph, &one); err != nil {
			return nil
		}
		entries = []kgEntry{one}
	}
	var links []string
	for _, e := range entries {
		switch {
		case e.Source.Link != "":
			links = append(links, e.Source.Link)
		case e.Link != "":
			links = append(links, e.Link)
		}
	}
	return links
}

// APIError is returned when SerpAPI responds with a non-2xx status.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("serpapi: HTTP %d: %s", e.StatusCode, e.Body)
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
	apiKey  string
	baseURL string
	http    *http.Client
}

// NewClient creates a SerpAPI client.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *httpClient) GoogleLens(ctx context.Context, imageURL string) (*LensResponse, error) {
	q := url.Values{}
	q.Set("engine", "google_lens")
	q.Set("url", imageURL)
	q.Set("api_key", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/search?"+q.Encode(), nil)
	if err != nil {
		return nil, eris.Wrap(err, "serpapi: create request")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "serpapi: send request")
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, eris.Wrap(err, "serpapi: read response")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var out LensResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, eris.Wrap(err, "serpapi: unmarshal response")
	}
	if out.Error != "" {
		return nil, eris.Errorf("serpapi: %s", out.Error)
	}
	return &out, nil
}
