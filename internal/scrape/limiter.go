package scrape

import (
	"context"
	"net/url"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// AdaptiveLimiter wraps a rate.Limiter with adaptive rate adjustment.
// On success it increases the rate by 20% (up to 2x initial).
// On 429 it halves the rate (down to initial/4 minimum).
type AdaptiveLimiter struct {
	mu          sync.Mutex
	limiter     *rate.Limiter
	maxRate     rate.Limit
	minRate     rate.Limit
	currentRate rate.Limit
}

// NewAdaptiveLimiter creates an adaptive rate limiter that auto-tunes.
func NewAdaptiveLimiter(initialRate rate.Limit, burst int) *AdaptiveLimiter {
	return &AdaptiveLimiter{
		limiter:     rate.NewLimiter(initialRate, burst),
		maxRate:     initialRate * 2,
		minRate:     initialRate / 4,
		currentRate: initialRate,
	}
}

// Wait blocks until the limiter allows an event.
func (a *AdaptiveLimiter) Wait(ctx context.Context) error {
	return a.limiter.Wait(ctx)
}

// OnSuccess increases the rate by 20%, up to 2x initial.
func (a *AdaptiveLimiter) OnSuccess() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.currentRate = min(a.currentRate*1.2, a.maxRate)
	a.limiter.SetLimit(a.currentRate)
}

// OnRateLimit halves the rate on 429 responses.
func (a *AdaptiveLimiter) OnRateLimit() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.currentRate = max(a.currentRate*0.5, a.minRate)
	a.limiter.SetLimit(a.currentRate)
}

// Limit returns the current rate limit.
func (a *AdaptiveLimiter) Limit() rate.Limit {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.currentRate
}

// HostLimiter keeps one AdaptiveLimiter per host so that candidates on the
// same photo site are fetched politely while other hosts proceed.
type HostLimiter struct {
	mu       sync.Mutex
	rate     rate.Limit
	burst    int
	limiters map[string]*AdaptiveLimiter
}

// NewHostLimiter creates a HostLimiter. A non-positive rate disables limiting.
func NewHostLimiter(perSecond float64, burst int) *HostLimiter {
	if burst < 1 {
		burst = 1
	}
	return &HostLimiter{
		rate:     rate.Limit(perSecond),
		burst:    burst,
		limiters: make(map[string]*AdaptiveLimiter),
	}
}

func (h *HostLimiter) forURL(rawURL string) *AdaptiveLimiter {
	if h == nil || h.rate <= 0 {
		return nil
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return nil
	}
	host := strings.ToLower(u.Hostname())

	h.mu.Lock()
	defer h.mu.Unlock()
	l, ok := h.limiters[host]
	if !ok {
		l = NewAdaptiveLimiter(h.rate, h.burst)
		h.limiters[host] = l
	}
	return l
}

// Wait blocks until rawURL's host may be contacted again.
func (h *HostLimiter) Wait(ctx context.Context, rawURL string) error {
	if l := h.forURL(rawURL); l != nil {
		return l.Wait(ctx)
	}
	return nil
}

// OnSuccess speeds up rawURL's host.
func (h *HostLimiter) OnSuccess(rawURL string) {
	if l := h.forURL(rawURL); l != nil {
		l.OnSuccess()
	}
}

// OnRateLimit slows down rawURL's host.
func (h *HostLimiter) OnRateLimit(rawURL string) {
	if l := h.forURL(rawURL); l != nil {
		l.OnRateLimit()
		zap.L().Warn("scrape: reducing host rate after 429",
			zap.String("url", rawURL),
			zap.Float64("new_rate", float64(l.Limit())),
		)
	}
}
