// Package search fans a reverse-image query out to several engines and
// merges their matches with per-engine failure isolation.
package search

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/sells-group/attribution-cli/internal/model"
	"github.com/sells-group/attribution-cli/internal/resilience"
	"github.com/sells-group/attribution-cli/internal/scrape"
)

const (
	maxEngineURLs = 25
	maxContext    = 200
	maxResultBody = 4 << 20
)

// ErrUnsupported is returned by engines that cannot query by raw bytes.
var ErrUnsupported = eris.New("search: unsupported query")

// Engine is one reverse-image search backend. A nil error with no
// matches means the engine answered and found nothing.
type Engine interface {
	Name() string
	Search(ctx context.Context, img model.ImageRef) ([]model.SearchMatch, error)
}

// StatusError is a non-200 answer from an engine.
type StatusError struct {
	Engine string
	Code   int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: status %d", e.Engine, e.Code)
}

// HTTPStatus implements resilience.StatusCoder.
func (e *StatusError) HTTPStatus() int { return e.Code }

// fetchResults runs req and returns the body of a 200 response.
func fetchResults(hc *http.Client, engine string, req *http.Request) (string, error) {
	req.Header.Set("User-Agent", scrape.NextUserAgent())
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")

	resp, err := hc.Do(req)
	if err != nil {
		return "", eris.Wrapf(err, "%s: request", engine)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		se := &StatusError{Engine: engine, Code: resp.StatusCode}
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return "", resilience.NewTransientError(se, resp.StatusCode)
		}
		return "", se
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResultBody))
	if err != nil {
		return "", eris.Wrapf(err, "%s: read body", engine)
	}
	return string(body), nil
}

var imageExts = []string{".jpg", ".jpeg", ".png", ".gif", ".webp", ".bmp", ".svg", ".avif"}

// linkFilter decides which result-page links are external matches.
type linkFilter struct {
	engine     string
	ownDomains []string
}

// accept returns the unwrapped target of href, or "" if it is not an
// external page link.
func (f linkFilter) accept(href string) string {
	target := unwrapRedirect(strings.TrimSpace(href))
	u, err := url.Parse(target)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return ""
	}
	host := strings.ToLower(u.Hostname())
	for _, d := range f.ownDomains {
		if host == d || strings.HasSuffix(host, "."+d) || strings.Contains(host, d+".") {
			return ""
		}
	}
	path := strings.ToLower(u.Path)
	for _, ext := range imageExts {
		if strings.HasSuffix(path, ext) {
			return ""
		}
	}
	return target
}

// unwrapRedirect returns the destination of /url?q= style wrappers.
func unwrapRedirect(href string) string {
	u, err := url.Parse(href)
	if err != nil {
		return href
	}
	if !strings.HasSuffix(u.Path, "/url") && !strings.Contains(strings.ToLower(u.Path), "redirect") {
		return href
	}
	q := u.Query()
	for _, key := range []string{"q", "url", "u"} {
		if v := q.Get(key); strings.HasPrefix(v, "http://") || strings.HasPrefix(v, "https://") {
			return v
		}
	}
	return href
}

// parseLinks tokenizes a result page and returns accepted links with
// their anchor text as context, deduplicated and capped.
func parseLinks(body string, f linkFilter) []model.SearchMatch {
	z := html.NewTokenizer(strings.NewReader(body))
	seen := make(map[string]bool)
	var (
		out     []model.SearchMatch
		current string
		text    strings.Builder
	)
	flush := func() {
		if current == "" {
			return
		}
		if !seen[current] {
			seen[current] = true
			out = append(out, model.SearchMatch{
				URL:     current,
				Context: clip(strings.Join(strings.Fields(text.String()), " "), maxContext),
				Engine:  f.engine,
			})
		}
		current = ""
		text.Reset()
	}

	for len(out) < maxEngineURLs {
		switch z.Next() {
		case html.ErrorToken:
			flush()
			return capMatches(out)
		case html.StartTagToken:
			tok := z.Token()
			if tok.DataAtom != atom.A {
				continue
			}
			flush()
			for _, a := range tok.Attr {
				if a.Key == "href" {
					current = f.accept(a.Val)
				}
			}
			for _, a := range tok.Attr {
				if current != "" && a.Key == "title" {
					text.WriteString(a.Val)
					text.WriteByte(' ')
				}
			}
		case html.TextToken:
			if current != "" && text.Len() < maxContext {
				text.Write(z.Text())
				text.WriteByte(' ')
			}
		case html.EndTagToken:
			if tok := z.Token(); tok.DataAtom == atom.A {
				flush()
			}
		}
	}
	return capMatches(out)
}

func capMatches(m []model.SearchMatch) []model.SearchMatch {
	if len(m) > maxEngineURLs {
		return m[:maxEngineURLs]
	}
	return m
}

func clip(s string, n int) string {
	if len(s) <= n {
		return s
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
