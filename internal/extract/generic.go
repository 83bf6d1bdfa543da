package extract

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/sells-group/attribution-cli/internal/model"
)

const (
	maxDescription = 500
	maxTextScan    = 20000
	maxCreatorLen  = 100
)

// nameRun is one to four capitalized words.
const nameRun = `(\p{Lu}[\p{L}'.\-]*(?:\s+\p{Lu}[\p{L}'.\-]*){0,3})`

var creditPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i:photo\s+by)\s+` + nameRun),
	regexp.MustCompile(`(?i:photograph\s+by)\s+` + nameRun),
	regexp.MustCompile(`(?i:credit):\s*([^\n|]{2,60})`),
	regexp.MustCompile(`©\s*(?:\d{4}\s+)` + nameRun),
	regexp.MustCompile(`\(AP Photo/([^)\n]{2,60})\)`),
	regexp.MustCompile(`(?i:reuters)/([^/\n<]{2,60})`),
}

// applyFallbacks runs every generic step after JSON-LD. Each step only
// fills fields that are still empty.
func applyFallbacks(doc *Document, c *model.AttributionCandidate) {
	if c.Title == "" {
		c.Title = CleanText(firstNonEmpty(doc.Meta("og:title"), doc.Title()))
	}

	if c.Creator == "" {
		for _, key := range []string{"author", "DC.creator", "article:author"} {
			v := doc.Meta(key)
			if v == "" || looksLikeURL(v) {
				continue
			}
			c.Creator = CleanText(v)
			break
		}
	}

	if c.Description == "" {
		d := strings.TrimSpace(firstNonEmpty(doc.Meta("og:description"), doc.Meta("description")))
		if len(d) > 10 {
			c.Description = truncate(d, maxDescription)
		}
	}

	if len(c.Keywords) == 0 {
		var kws []string
		for _, v := range doc.MetaAll("keywords") {
			kws = append(kws, strings.Split(v, ",")...)
		}
		kws = append(kws, doc.MetaAll("article:tag")...)
		c.Keywords = limitKeywords(kws)
	}

	if c.DateCreated == "" {
		c.DateCreated = pageDate(doc)
	}

	if c.Location == "" {
		for _, key := range []string{"geo.placename", "geo.region", "ICBM"} {
			if v := doc.Meta(key); v != "" {
				c.Location = CleanText(v)
				break
			}
		}
	}

	if c.Creator == "" {
		c.Creator = creditFromText(doc.VisibleText(maxTextScan))
	}

	if c.License == "" {
		c.License = licenseLink(doc)
	}
}

func pageDate(doc *Document) string {
	for _, key := range []string{"article:published_time", "og:published_time", "date", "DC.date"} {
		if d := isoDate(doc.Meta(key)); d != "" {
			return d
		}
	}
	for _, n := range doc.Find(isTag(atom.Time)) {
		if d := isoDate(Attr(n, "datetime")); d != "" {
			return d
		}
	}
	return ""
}

// creditFromText scans rendered text for photo credit lines.
func creditFromText(text string) string {
	for _, re := range creditPatterns {
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		name := CleanText(m[1])
		if name != "" && len(name) < maxCreatorLen && !looksLikeURL(name) {
			return name
		}
	}
	return ""
}

var licenseHrefRe = regexp.MustCompile(`(?i)creativecommons\.org/`)

// licenseLink labels the first rel=license or creativecommons.org link.
func licenseLink(doc *Document) string {
	n := doc.First(func(n *html.Node) bool {
		if n.DataAtom != atom.A && n.DataAtom != atom.Link {
			return false
		}
		for _, rel := range strings.Fields(Attr(n, "rel")) {
			if strings.EqualFold(rel, "license") {
				return true
			}
		}
		return licenseHrefRe.MatchString(Attr(n, "href"))
	})
	if n == nil {
		return ""
	}
	href := Attr(n, "href")
	if IsCCLicense(href) {
		return CCLabel(href)
	}
	if n.DataAtom == atom.A {
		if t := CleanText(Text(n)); t != "" && len(t) < maxCreatorLen {
			return t
		}
	}
	return ""
}

func looksLikeURL(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://") || strings.HasPrefix(s, "www.")
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
