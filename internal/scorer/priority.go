// Package scorer assigns confidence to attribution candidates and orders
// candidate URLs by provider priority.
package scorer

import (
	"net/url"
	"os"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// DefaultPriorityDomains is the built-in provider ordering, best first.
var DefaultPriorityDomains = []string{
	"gettyimages.com",
	"shutterstock.com",
	"unsplash.com",
	"pexels.com",
	"pixabay.com",
	"flickr.com",
	"alamy.com",
	"istockphoto.com",
	"stock.adobe.com",
	"500px.com",
	"depositphotos.com",
}

// Priorities ranks URLs by a static domain list. A URL on the domain at
// index i has priority len(domains)-i; unlisted domains have 0.
type Priorities struct {
	domains []string
}

// NewPriorities normalizes domains. An empty list means the defaults.
func NewPriorities(domains []string) *Priorities {
	var out []string
	for _, d := range domains {
		d = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(d)), "www.")
		if d != "" {
			out = append(out, d)
		}
	}
	if len(out) == 0 {
		out = append(out, DefaultPriorityDomains...)
	}
	return &Priorities{domains: out}
}

type priorityFile struct {
	PriorityDomains []string `yaml:"priority_domains"`
}

// LoadPriorities reads the priority_domains list from a YAML file. An
// empty path yields the defaults.
func LoadPriorities(path string) (*Priorities, error) {
	if path == "" {
		return NewPriorities(nil), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "scorer: read priority file %s", path)
	}
	var f priorityFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, eris.Wrapf(err, "scorer: parse priority file %s", path)
	}
	if len(f.PriorityDomains) == 0 {
		return nil, eris.Errorf("scorer: priority file %s lists no priority_domains", path)
	}
	return NewPriorities(f.PriorityDomains), nil
}

// Len is the number of listed domains.
func (p *Priorities) Len() int { return len(p.domains) }

// Domains returns a copy of the ordering.
func (p *Priorities) Domains() []string {
	return append([]string(nil), p.domains...)
}

// Of returns the priority of rawURL.
func (p *Priorities) Of(rawURL string) int {
	u, err := url.Parse(rawURL)
	if err != nil {
		return 0
	}
	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	for i, d := range p.domains {
		if host == d || strings.HasSuffix(host, "."+d) {
			return len(p.domains) - i
		}
	}
	return 0
}

// Sort orders urls by priority descending, then lexically, without
// modifying the input.
func (p *Priorities) Sort(urls []string) []string {
	out := append([]string(nil), urls...)
	sort.SliceStable(out, func(i, j int) bool {
		pi, pj := p.Of(out[i]), p.Of(out[j])
		if pi != pj {
			return pi > pj
		}
		return out[i] < out[j]
	})
	return out
}
