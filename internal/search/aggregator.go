package search

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/attribution-cli/internal/model"
	"github.com/sells-group/attribution-cli/internal/resilience"
)

// DefaultMultiplier scales max_results into the aggregate URL cap.
const DefaultMultiplier = 3

// EngineResult is one engine's answer. Err is nil for an engine that
// answered, even with zero URLs.
type EngineResult struct {
	Engine  string
	URLs    []string
	Matches []model.SearchMatch
	Err     error
}

// Searcher is the aggregate search contract the pipeline depends on.
type Searcher interface {
	Search(ctx context.Context, img model.ImageRef, q Query) model.SearchOutcome
}

// Query bounds one aggregate search.
type Query struct {
	Engines    []string
	MaxResults int
	Timeout    time.Duration
}

// Aggregator runs engines concurrently behind per-engine breakers.
type Aggregator struct {
	engines    map[string]Engine
	defaults   []string
	breakers   *resilience.ServiceBreakers
	multiplier int
}

// NewAggregator registers engines. defaults is used for queries that
// name no engines; multiplier <= 0 means DefaultMultiplier.
func NewAggregator(engines []Engine, defaults []string, breakers *resilience.ServiceBreakers, multiplier int) *Aggregator {
	a := &Aggregator{
		engines:    make(map[string]Engine, len(engines)),
		defaults:   defaults,
		breakers:   breakers,
		multiplier: multiplier,
	}
	for _, e := range engines {
		a.engines[e.Name()] = e
	}
	if len(a.defaults) == 0 {
		a.defaults = DefaultEngines
	}
	if a.breakers == nil {
		a.breakers = resilience.NewServiceBreakers(resilience.DefaultCircuitBreakerConfig())
	}
	if a.multiplier <= 0 {
		a.multiplier = DefaultMultiplier
	}
	return a
}

// Engines lists the registered engine names.
func (a *Aggregator) Engines() []string {
	out := make([]string, 0, len(a.engines))
	for name := range a.engines {
		out = append(out, name)
	}
	slices.Sort(out)
	return out
}

// Search queries every requested engine under one shared timeout and
// merges the answers in request order.
func (a *Aggregator) Search(ctx context.Context, img model.ImageRef, q Query) model.SearchOutcome {
	names := normalizeNames(q.Engines)
	if len(names) == 0 {
		names = a.defaults
	}
	if q.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, q.Timeout)
		defer cancel()
	}

	results := make([]EngineResult, len(names))
	var g errgroup.Group
	for i, name := range names {
		g.Go(func() error {
			results[i] = a.run(ctx, name, img)
			return nil
		})
	}
	_ = g.Wait()

	return merge(results, q.MaxResults*a.multiplier)
}

func (a *Aggregator) run(ctx context.Context, name string, img model.ImageRef) EngineResult {
	res := EngineResult{Engine: name}
	engine, ok := a.engines[name]
	if !ok {
		res.Err = eris.Errorf("search: unknown engine %q", name)
		return res
	}

	start := time.Now()
	matches, err := resilience.ExecuteVal(ctx, a.breakers.Get(name), func(ctx context.Context) ([]model.SearchMatch, error) {
		return engine.Search(ctx, img)
	})
	if err != nil {
		if ctx.Err() != nil {
			err = eris.Wrapf(ctx.Err(), "%s: timed out", name)
		}
		res.Err = err
		zap.L().Debug("search: engine failed", zap.String("engine", name), zap.Error(err), zap.Duration("elapsed", time.Since(start)))
		return res
	}

	res.Matches = matches
	for _, m := range matches {
		res.URLs = append(res.URLs, m.URL)
	}
	zap.L().Debug("search: engine answered",
		zap.String("engine", name),
		zap.Int("urls", len(res.URLs)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return res
}

// merge folds engine results in order: first-seen URLs win, capped at
// limit when limit > 0.
func merge(results []EngineResult, limit int) model.SearchOutcome {
	out := model.SearchOutcome{URLs: []string{}, Engines: []string{}}
	seen := make(map[string]bool)
	for _, r := range results {
		if r.Err != nil {
			out.Errors = append(out.Errors, formatErr(r))
			continue
		}
		out.Engines = append(out.Engines, r.Engine)
		for _, m := range r.Matches {
			if seen[m.URL] || (limit > 0 && len(out.URLs) >= limit) {
				continue
			}
			seen[m.URL] = true
			out.URLs = append(out.URLs, m.URL)
			out.Matches = append(out.Matches, m)
		}
	}
	return out
}

func formatErr(r EngineResult) string {
	msg := r.Err.Error()
	if eris.Is(r.Err, resilience.ErrCircuitOpen) {
		msg = "circuit open"
	}
	if strings.HasPrefix(msg, r.Engine+":") {
		return msg
	}
	return r.Engine + ": " + msg
}

func normalizeNames(in []string) []string {
	seen := make(map[string]bool, len(in))
	var out []string
	for _, n := range in {
		n = strings.ToLower(strings.TrimSpace(n))
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	return out
}
