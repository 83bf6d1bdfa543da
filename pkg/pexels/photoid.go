package pexels

import "regexp"

var photoIDPatterns = []*regexp.Regexp{
	regexp.MustCompile(`pexels\.com/photo/[^/]+-(\d+)`),
	regexp.MustCompile(`pexels\.com/photo/(\d+)`),
	regexp.MustCompile(`images\.pexels\.com/photos/(\d+)/`),
	regexp.MustCompile(`pexels-photo-(\d+)`),
}

// PhotoID extracts the numeric photo ID from a Pexels page or CDN URL.
func PhotoID(rawURL string) (string, bool) {
	for _, re := range photoIDPatterns {
		if m := re.FindStringSubmatch(rawURL); len(m) > 1 {
			return m[1], true
		}
	}
	return "", false
}
