package extract

import (
	"net/url"
	"regexp"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/sells-group/attribution-cli/internal/model"
)

var (
	pexelsUserRe       = regexp.MustCompile(`^(?:https?://(?:www\.)?pexels\.com)?/@[^/?#]+/?$`)
	pexelsTitleRe      = regexp.MustCompile(`(?i)\s*[·|]\s*(?:Free\b.*|Pexels\b.*)$`)
	unsplashUserRe     = regexp.MustCompile(`^(?:https?://(?:www\.)?unsplash\.com)?/@[^/?#]+/?$`)
	pixabayUserRe      = regexp.MustCompile(`/users/[^/?#]+`)
	flickrOwnerRe      = regexp.MustCompile(`\b(?:owner-name|attribution)\b`)
	shutterstockUserRe = regexp.MustCompile(`^(?:https?://(?:www\.)?shutterstock\.com)?/g/[^/?#]+`)
	shutterstockTitle  = regexp.MustCompile(`(?i)\s*-\s*Shutterstock\b.*$`)
	alamyUserRe        = regexp.MustCompile(`/stock-photo/contributor/`)
	newsCreditClassRe  = regexp.MustCompile(`(?i)\b(?:credit|byline|photographer)`)
)

// creatorFromLink fills creator from the first link accepted by match.
func creatorFromLink(doc *Document, c *model.AttributionCandidate, base string, match func(*html.Node) bool) {
	if c.Creator != "" {
		return
	}
	for _, n := range doc.Find(match) {
		name := CleanText(Text(n))
		if name == "" || len(name) >= maxCreatorLen {
			continue
		}
		c.Creator = name
		if c.CreatorURL == "" {
			c.CreatorURL = absolute(base, Attr(n, "href"))
		}
		return
	}
}

func absolute(base, href string) string {
	if href == "" {
		return ""
	}
	b, err := url.Parse(base)
	if err != nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return b.ResolveReference(ref).String()
}

func pexelsMarkup(doc *Document, c *model.AttributionCandidate) {
	creatorFromLink(doc, c, "https://www.pexels.com/", linkWhere(pexelsUserRe))
}

func pexelsPost(_ *Document, c *model.AttributionCandidate) {
	c.Title = strings.TrimSpace(pexelsTitleRe.ReplaceAllString(c.Title, ""))
}

func unsplashMarkup(doc *Document, c *model.AttributionCandidate) {
	if c.Creator == "" {
		if handle := strings.TrimPrefix(doc.Meta("twitter:creator"), "@"); handle != "" {
			c.Creator = CleanText(handle)
		}
	}
	creatorFromLink(doc, c, "https://unsplash.com/", linkWhere(unsplashUserRe))
}

func pixabayMarkup(doc *Document, c *model.AttributionCandidate) {
	creatorFromLink(doc, c, "https://pixabay.com/", linkWhere(pixabayUserRe))
}

func flickrMarkup(doc *Document, c *model.AttributionCandidate) {
	creatorFromLink(doc, c, "https://www.flickr.com/", and(isTag(atom.A), classWhere(flickrOwnerRe)))
	if c.License == "" {
		c.License = licenseLink(doc)
	}
	if c.License == "" {
		c.License = "All Rights Reserved"
	}
}

func shutterstockMarkup(doc *Document, c *model.AttributionCandidate) {
	creatorFromLink(doc, c, "https://www.shutterstock.com/", linkWhere(shutterstockUserRe))
}

func shutterstockPost(_ *Document, c *model.AttributionCandidate) {
	c.Title = strings.TrimSpace(shutterstockTitle.ReplaceAllString(c.Title, ""))
}

func alamyMarkup(doc *Document, c *model.AttributionCandidate) {
	creatorFromLink(doc, c, "https://www.alamy.com/", linkWhere(alamyUserRe))
}

// gettyMarkup reads the artist meta Getty and iStock pages carry.
func gettyMarkup(doc *Document, c *model.AttributionCandidate) {
	if c.Creator == "" {
		if v := doc.Meta("artist"); v != "" {
			c.Creator = CleanText(v)
		}
	}
}

// stockLicense labels the license from the page's license wording,
// falling back to the marketplace's paid label.
func stockLicense(label string) Hook {
	return func(doc *Document, c *model.AttributionCandidate) {
		text := strings.ToLower(doc.VisibleText(maxTextScan))
		switch {
		case strings.Contains(text, "rights managed"), strings.Contains(text, "rights-managed"):
			c.License = "Rights Managed"
		case strings.Contains(text, "royalty free"), strings.Contains(text, "royalty-free"):
			c.License = "Royalty Free"
		case strings.Contains(text, "editorial"):
			c.License = "Editorial"
		default:
			c.License = label
		}
	}
}

// newsMarkup reads wire-service credit lines and credit/byline elements.
func newsMarkup(doc *Document, c *model.AttributionCandidate) {
	if c.Creator != "" {
		return
	}
	for _, n := range doc.Find(classWhere(newsCreditClassRe)) {
		if name := creditLine(Text(n)); name != "" {
			c.Creator = name
			return
		}
	}
}

// creditLine pulls a name out of a short credit element, trying the
// wire formats before treating the whole text as the name.
func creditLine(text string) string {
	if name := creditFromText(text); name != "" {
		return name
	}
	name := CleanText(text)
	if name == "" || len(name) >= maxCreatorLen || looksLikeURL(name) {
		return ""
	}
	return name
}
