package scrape

import (
	"context"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/attribution-cli/internal/model"
)

// BrowserOptions configures the headless browser tier.
type BrowserOptions struct {
	Bin      string // empty lets the launcher find or download Chromium
	Headless bool
	Settle   time.Duration // wait after load for client-rendered content
	Timeout  time.Duration
}

// RodBrowser renders pages in a single shared Chromium. Each Scrape runs in
// its own incognito context, which is disposed on every return path.
type RodBrowser struct {
	opts BrowserOptions

	mu       sync.Mutex
	launcher *launcher.Launcher
	browser  *rod.Browser
	agents   userAgentRotator
}

// NewRodBrowser creates a RodBrowser. Chromium is launched on first use.
func NewRodBrowser(opts BrowserOptions) *RodBrowser {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	return &RodBrowser{opts: opts}
}

func (b *RodBrowser) Name() string           { return "browser" }
func (b *RodBrowser) Supports(_ string) bool { return true }

// connect launches and connects the shared browser once. A failed launch is
// retried on the next call.
func (b *RodBrowser) connect() (*rod.Browser, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.browser != nil {
		return b.browser, nil
	}

	l := launcher.New().
		Headless(b.opts.Headless).
		Set("no-sandbox").
		Set("disable-extensions").
		Set("disable-plugins")
	if b.opts.Bin != "" {
		l = l.Bin(b.opts.Bin)
	}

	controlURL, err := l.Launch()
	if err != nil {
		zap.L().Warn("scrape: browser launch failed", zap.Error(err))
		return nil, eris.Wrap(err, "scrape: browser launch")
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		l.Cleanup()
		return nil, eris.Wrap(err, "scrape: browser connect")
	}

	b.launcher = l
	b.browser = browser
	return browser, nil
}

// Scrape navigates to targetURL, waits for the network to go idle plus the
// settle delay, and returns the rendered DOM.
func (b *RodBrowser) Scrape(ctx context.Context, targetURL string) (*model.Page, error) {
	browser, err := b.connect()
	if err != nil {
		return nil, err
	}

	incognito, err := browser.Incognito()
	if err != nil {
		return nil, eris.Wrap(err, "scrape: browser context")
	}
	defer func() {
		if cerr := incognito.Close(); cerr != nil {
			zap.L().Debug("scrape: browser context close failed", zap.Error(cerr))
		}
	}()

	page, err := incognito.Page(proto.TargetCreateTarget{URL: ""})
	if err != nil {
		return nil, eris.Wrap(err, "scrape: browser page")
	}
	page = page.Context(ctx).Timeout(b.opts.Timeout)

	var html string
	err = rod.Try(func() {
		if uerr := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: b.agents.Next()}); uerr != nil {
			panic(uerr)
		}
		waitIdle := page.WaitRequestIdle(500*time.Millisecond, nil, nil, nil)
		if nerr := page.Navigate(targetURL); nerr != nil {
			panic(nerr)
		}
		if lerr := page.WaitLoad(); lerr != nil {
			panic(lerr)
		}
		waitIdle()

		if b.opts.Settle > 0 {
			select {
			case <-ctx.Done():
				panic(ctx.Err())
			case <-time.After(b.opts.Settle):
			}
		}

		var herr error
		html, herr = page.HTML()
		if herr != nil {
			panic(herr)
		}
	})
	if err != nil {
		return nil, eris.Wrap(err, "scrape: browser navigate")
	}

	return &model.Page{
		URL:         targetURL,
		HTML:        html,
		StatusCode:  200,
		ContentType: "text/html",
		Source:      b.Name(),
	}, nil
}

// Close shuts the shared browser down.
func (b *RodBrowser) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.browser == nil {
		return nil
	}
	err := b.browser.Close()
	b.launcher.Cleanup()
	b.browser = nil
	b.launcher = nil
	return eris.Wrap(err, "scrape: browser close")
}
