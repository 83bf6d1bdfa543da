// Package credential rotates API keys for rate-limited providers.
package credential

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/attribution-cli/internal/resilience"
)

// Policy selects how a key is chosen when the caller names no index.
type Policy string

const (
	// RoundRobin cycles through the keys with an internal counter.
	RoundRobin Policy = "round_robin"
	// Explicit always uses slot 0 unless the caller names an index.
	Explicit Policy = "explicit"
)

// ErrNoCredential means the pool is empty; the provider API is unavailable.
var ErrNoCredential = eris.New("credential: no credential configured")

// Stats is a snapshot of pool usage.
type Stats struct {
	TotalKeys      int              `json:"total_keys"`
	TotalRequests  int64            `json:"total_requests"`
	RequestsPerKey map[string]int64 `json:"requests_per_key"`
}

// Pool holds the keys for one provider. Usage counters never decrease and
// live as long as the pool.
type Pool struct {
	name   string
	policy Policy

	mu    sync.Mutex
	keys  []string
	usage []int64
	next  int
}

// NewPool builds a pool from keys, dropping blanks and duplicates so a
// caller is never handed an empty key.
func NewPool(name string, policy Policy, keys ...string) *Pool {
	if policy != Explicit {
		policy = RoundRobin
	}
	seen := make(map[string]struct{}, len(keys))
	var clean []string
	for _, k := range keys {
		k = strings.TrimSpace(k)
		if k == "" {
			continue
		}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		clean = append(clean, k)
	}
	return &Pool{
		name:   name,
		policy: policy,
		keys:   clean,
		usage:  make([]int64, len(clean)),
	}
}

// Name returns the provider name.
func (p *Pool) Name() string { return p.name }

// Len returns the number of configured keys.
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.keys)
}

// Select picks a key and counts one request against it in the same
// critical section. An explicit index is clamped into range. An empty pool
// yields ("", -1).
func (p *Pool) Select(explicit *int) (string, int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	n := len(p.keys)
	if n == 0 {
		return "", -1
	}

	var idx int
	switch {
	case explicit != nil:
		idx = min(max(*explicit, 0), n-1)
	case p.policy == RoundRobin:
		idx = p.next % n
		p.next++
	}
	p.usage[idx]++
	return p.keys[idx], idx
}

// RecordUsage counts an extra request against slot index. Out-of-range
// indexes are ignored.
func (p *Pool) RecordUsage(index int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if index >= 0 && index < len(p.usage) {
		p.usage[index]++
	}
}

// Stats returns per-slot counts and their total.
func (p *Pool) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()

	s := Stats{
		TotalKeys:      len(p.keys),
		RequestsPerKey: make(map[string]int64, len(p.keys)),
	}
	for i, n := range p.usage {
		s.RequestsPerKey[fmt.Sprintf("key_%d", i)] = n
		s.TotalRequests += n
	}
	return s
}

// Call runs fn with a selected key. A rate-limit or authorization failure
// is retried once on the next slot; a not-found is returned as is. The
// returned index is the slot that produced the final outcome.
func Call[T any](ctx context.Context, p *Pool, explicit *int, fn func(ctx context.Context, key string) (T, error)) (T, int, error) {
	var zero T

	key, idx := p.Select(explicit)
	if idx < 0 {
		return zero, -1, ErrNoCredential
	}

	val, err := fn(ctx, key)
	if err == nil {
		return val, idx, nil
	}
	if resilience.IsNotFound(err) || p.Len() < 2 {
		return zero, idx, err
	}
	if !resilience.IsRateLimited(err) && !resilience.IsUnauthorized(err) {
		return zero, idx, err
	}

	nextIdx := idx + 1
	if nextIdx >= p.Len() {
		nextIdx = 0
	}
	zap.L().Debug("credential: rotating key",
		zap.String("provider", p.name),
		zap.Int("from", idx),
		zap.Int("to", nextIdx),
		zap.Error(err),
	)
	key, idx = p.Select(&nextIdx)
	val, err = fn(ctx, key)
	if err != nil {
		return zero, idx, err
	}
	return val, idx, nil
}
