// Package canonical rewrites CDN image URLs to the provider page of record
// and collapses URLs that identify the same photo.
package canonical

import (
	"net/url"
	"regexp"
	"strings"
)

// cdnRule rewrites a CDN rendition to its canonical detail page.
type cdnRule struct {
	host     string // matched as a suffix of the URL host
	pathHint string // required path substring, if any
	re       *regexp.Regexp
	format   func(id string) string
}

var cdnRules = []cdnRule{
	{
		host:   "images.pexels.com",
		re:     regexp.MustCompile(`/photos/(\d+)/`),
		format: func(id string) string { return "https://www.pexels.com/photo/" + id + "/" },
	},
	{
		host:   "images.unsplash.com",
		re:     regexp.MustCompile(`photo-([A-Za-z0-9_-]+)`),
		format: func(id string) string { return "https://unsplash.com/photos/" + id },
	},
	{
		host:     "cdn.pixabay.com",
		pathHint: "/photo/",
		re:       regexp.MustCompile(`(?i)-(\d+)\.[a-z]+$`),
		format:   func(id string) string { return "https://pixabay.com/photos/id-" + id + "/" },
	},
	{
		host:   "media.gettyimages.com",
		re:     regexp.MustCompile(`/id/(\d+)/`),
		format: func(id string) string { return "https://www.gettyimages.com/detail/" + id },
	},
	{
		host:   "ftcdn.net",
		re:     regexp.MustCompile(`/(\d+)_`),
		format: func(id string) string { return "https://stock.adobe.com/" + id },
	},
	{
		host:   "image.shutterstock.com",
		re:     regexp.MustCompile(`(?i)-(\d+)\.[a-z]+$`),
		format: func(id string) string { return "https://www.shutterstock.com/image-photo/" + id },
	},
}

// identityRule derives a stable photo key from a canonical page URL.
type identityRule struct {
	provider string
	host     string
	res      []*regexp.Regexp
}

var identityRules = []identityRule{
	{"pexels", "pexels.com", []*regexp.Regexp{
		regexp.MustCompile(`/photo/[^/]+-(\d+)`),
		regexp.MustCompile(`/photo/(\d+)`),
	}},
	{"unsplash", "unsplash.com", []*regexp.Regexp{
		regexp.MustCompile(`/photos/(?:[^/]+-)?([A-Za-z0-9_-]{11})/?$`),
		regexp.MustCompile(`/photos/([^/?#]+)`),
	}},
	{"pixabay", "pixabay.com", []*regexp.Regexp{
		regexp.MustCompile(`-(\d+)/?$`),
	}},
	{"getty", "gettyimages.com", []*regexp.Regexp{
		regexp.MustCompile(`/detail/(?:[^/]+/)*(\d+)/?$`),
		regexp.MustCompile(`/detail/(\d+)`),
	}},
	{"flickr", "flickr.com", []*regexp.Regexp{
		regexp.MustCompile(`/photos/[^/]+/(\d+)`),
	}},
	{"shutterstock", "shutterstock.com", []*regexp.Regexp{
		regexp.MustCompile(`-(\d+)/?$`),
		regexp.MustCompile(`/image-photo/(\d+)`),
	}},
	{"adobe", "stock.adobe.com", []*regexp.Regexp{
		regexp.MustCompile(`/(\d+)/?$`),
	}},
}

var trackingParams = map[string]bool{
	"fbclid": true, "gclid": true, "ref": true, "ref_src": true,
	"igshid": true, "mc_cid": true, "mc_eid": true,
}

// Canonicalize rewrites a known CDN image URL to its provider page.
// Other URLs, including already-canonical ones, are returned unchanged.
func Canonicalize(rawURL string) string {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || u.Host == "" {
		return rawURL
	}
	host := strings.ToLower(u.Hostname())
	for _, r := range cdnRules {
		if !hostMatches(host, r.host) {
			continue
		}
		if r.pathHint != "" && !strings.Contains(u.Path, r.pathHint) {
			continue
		}
		if m := r.re.FindStringSubmatch(u.Path); m != nil {
			return r.format(m[1])
		}
	}
	return rawURL
}

// Key returns the identity of the photo behind rawURL: "provider:id" when a
// provider pattern matches, otherwise host (without www.) plus path with
// tracking parameters dropped.
func Key(rawURL string) string {
	canon := Canonicalize(rawURL)
	u, err := url.Parse(canon)
	if err != nil || u.Host == "" {
		return canon
	}
	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")

	for _, r := range identityRules {
		if !hostMatches(host, r.host) {
			continue
		}
		for _, re := range r.res {
			if m := re.FindStringSubmatch(u.Path); m != nil {
				return r.provider + ":" + m[1]
			}
		}
	}

	q := u.Query()
	for k := range q {
		if trackingParams[strings.ToLower(k)] || strings.HasPrefix(strings.ToLower(k), "utm_") {
			q.Del(k)
		}
	}
	key := host + strings.TrimSuffix(u.EscapedPath(), "/")
	if enc := q.Encode(); enc != "" {
		key += "?" + enc
	}
	return key
}

// Deduplicate keeps the first URL per identity key, preserving order.
func Deduplicate(urls []string) []string {
	seen := make(map[string]struct{}, len(urls))
	out := make([]string, 0, len(urls))
	for _, u := range urls {
		k := Key(u)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, u)
	}
	return out
}

// CanonicalizeAll rewrites every URL and then deduplicates the result.
func CanonicalizeAll(urls []string) []string {
	out := make([]string, len(urls))
	for i, u := range urls {
		out[i] = Canonicalize(u)
	}
	return Deduplicate(out)
}

func hostMatches(host, suffix string) bool {
	return host == suffix || strings.HasSuffix(host, "."+suffix)
}
