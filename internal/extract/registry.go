package extract

import (
	"net/url"
	"strings"

	"golang.org/x/net/publicsuffix"

	"github.com/sells-group/attribution-cli/internal/provider"
	"github.com/sells-group/attribution-cli/internal/scrape"
)

// GenericName is the name of the fallback strategy.
const GenericName = "generic"

// Registry maps domains to strategies.
type Registry struct {
	byDomain map[string]Strategy
	generic  Strategy
}

// NewRegistry builds the default registry. Provider lookups, when given,
// are tried before scraping pages on their domains.
func NewRegistry(fetcher scrape.Fetcher, lookups provider.Set) *Registry {
	r := &Registry{
		byDomain: make(map[string]Strategy),
		generic:  NewPageStrategy(GenericName, fetcher),
	}

	lookupFor := func(name string) StrategyOption {
		for _, l := range lookups {
			if l.Name() == name {
				return WithLookup(l)
			}
		}
		return func(*PageStrategy) {}
	}

	r.Register("pexels.com", NewPageStrategy("pexels", fetcher,
		lookupFor("pexels"), WithMarkup(pexelsMarkup), WithPost(pexelsPost), WithLicense("Pexels License")))
	r.Register("unsplash.com", NewPageStrategy("unsplash", fetcher,
		WithMarkup(unsplashMarkup), WithLicense("Unsplash License")))
	r.Register("pixabay.com", NewPageStrategy("pixabay", fetcher,
		WithMarkup(pixabayMarkup), WithLicense("Pixabay License")))
	r.Register("flickr.com", NewPageStrategy("flickr", fetcher,
		lookupFor("flickr"), WithMarkup(flickrMarkup)))
	r.Register("shutterstock.com", NewPageStrategy("shutterstock", fetcher,
		WithMarkup(shutterstockMarkup), WithPost(shutterstockPost), WithLicense("Shutterstock License (Paid)")))
	r.Register("gettyimages.com", NewPageStrategy("gettyimages", fetcher,
		WithMarkup(gettyMarkup), WithPost(stockLicense("Getty Images License (Paid)"))))
	r.Register("istockphoto.com", NewPageStrategy("istockphoto", fetcher,
		WithMarkup(gettyMarkup), WithPost(stockLicense("iStock License (Paid)"))))
	r.Register("alamy.com", NewPageStrategy("alamy", fetcher,
		WithMarkup(alamyMarkup), WithLicense("Alamy License (Paid)")))
	r.Register("stock.adobe.com", NewPageStrategy("adobe_stock", fetcher,
		WithLicense("Adobe Stock License (Paid)")))

	news := NewPageStrategy("news", fetcher, WithMarkup(newsMarkup), WithLicense("Editorial"))
	for _, d := range []string{"apimages.com", "reuters.com", "nytimes.com", "apnews.com"} {
		r.Register(d, news)
	}
	return r
}

// Register binds a domain (and its subdomains) to s.
func (r *Registry) Register(domain string, s Strategy) {
	r.byDomain[strings.ToLower(strings.TrimPrefix(domain, "www."))] = s
}

// StrategyFor picks the strategy for rawURL by walking from the host up
// to its registrable domain (eTLD+1), taking the most specific registered
// match. Anything else gets the generic strategy.
func (r *Registry) StrategyFor(rawURL string) Strategy {
	host := hostOf(rawURL)
	if host == "" {
		return r.generic
	}
	site, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		site = host
	}
	for h := host; ; {
		if s, ok := r.byDomain[h]; ok {
			return s
		}
		if h == site {
			break
		}
		i := strings.IndexByte(h, '.')
		if i < 0 {
			break
		}
		h = h[i+1:]
	}
	return r.generic
}

func hostOf(rawURL string) string {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
}
