package extract

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Document is a parsed page with the queries strategies need.
type Document struct {
	root *html.Node
}

// Parse parses markup. The HTML5 parser recovers from any input, so the
// error is only non-nil for reader failures.
func Parse(markup string) (*Document, error) {
	root, err := html.Parse(strings.NewReader(markup))
	if err != nil {
		return nil, err
	}
	return &Document{root: root}, nil
}

// Find returns every element for which match is true, in document order.
func (d *Document) Find(match func(*html.Node) bool) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && match(n) {
			out = append(out, n)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(d.root)
	return out
}

// First returns the first matching element or nil.
func (d *Document) First(match func(*html.Node) bool) *html.Node {
	var found *html.Node
	var walk func(*html.Node) bool
	walk = func(n *html.Node) bool {
		if n.Type == html.ElementNode && match(n) {
			found = n
			return true
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if walk(c) {
				return true
			}
		}
		return false
	}
	walk(d.root)
	return found
}

// Meta returns the content of the first <meta> whose name or property
// equals key (case-insensitive).
func (d *Document) Meta(key string) string {
	for _, v := range d.MetaAll(key) {
		if v != "" {
			return v
		}
	}
	return ""
}

// MetaAll returns the content of every matching <meta>.
func (d *Document) MetaAll(key string) []string {
	var out []string
	for _, n := range d.Find(isTag(atom.Meta)) {
		if strings.EqualFold(Attr(n, "name"), key) || strings.EqualFold(Attr(n, "property"), key) {
			out = append(out, strings.TrimSpace(Attr(n, "content")))
		}
	}
	return out
}

// Title returns the <title> text.
func (d *Document) Title() string {
	if n := d.First(isTag(atom.Title)); n != nil {
		return strings.TrimSpace(Text(n))
	}
	return ""
}

// JSONLD returns the raw bodies of application/ld+json scripts.
func (d *Document) JSONLD() []string {
	var out []string
	for _, n := range d.Find(isTag(atom.Script)) {
		if strings.EqualFold(strings.TrimSpace(Attr(n, "type")), "application/ld+json") {
			out = append(out, Text(n))
		}
	}
	return out
}

var skipText = map[atom.Atom]bool{
	atom.Script: true, atom.Style: true, atom.Noscript: true, atom.Template: true, atom.Head: true,
}

// VisibleText returns the page's rendered text, whitespace collapsed,
// stopping after limit bytes.
func (d *Document) VisibleText(limit int) string {
	var b strings.Builder
	var walk func(*html.Node) bool
	walk = func(n *html.Node) bool {
		if n.Type == html.ElementNode && skipText[n.DataAtom] {
			return false
		}
		if n.Type == html.TextNode {
			if s := strings.TrimSpace(n.Data); s != "" {
				if b.Len() > 0 {
					b.WriteByte('\n')
				}
				b.WriteString(s)
				if b.Len() >= limit {
					return true
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if walk(c) {
				return true
			}
		}
		return false
	}
	walk(d.root)
	s := b.String()
	if len(s) > limit {
		s = s[:limit]
	}
	return s
}

// Attr returns the value of an attribute, or "".
func Attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if strings.EqualFold(a.Key, key) {
			return a.Val
		}
	}
	return ""
}

// Text concatenates the text beneath n.
func Text(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}

func isTag(a atom.Atom) func(*html.Node) bool {
	return func(n *html.Node) bool { return n.DataAtom == a }
}

// linkWhere matches <a> elements whose href satisfies re.
func linkWhere(re *regexp.Regexp) func(*html.Node) bool {
	return func(n *html.Node) bool {
		return n.DataAtom == atom.A && re.MatchString(Attr(n, "href"))
	}
}

// classWhere matches elements with a class attribute satisfying re.
func classWhere(re *regexp.Regexp) func(*html.Node) bool {
	return func(n *html.Node) bool {
		return re.MatchString(Attr(n, "class"))
	}
}

func and(preds ...func(*html.Node) bool) func(*html.Node) bool {
	return func(n *html.Node) bool {
		for _, p := range preds {
			if !p(n) {
				return false
			}
		}
		return true
	}
}
