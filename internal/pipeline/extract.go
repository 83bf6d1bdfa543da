package pipeline

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/sells-group/attribution-cli/internal/model"
)

// extractAll runs one strategy per target and returns the candidates in
// target order. Every target yields a candidate, failed or not.
func (p *Pipeline) extractAll(ctx context.Context, targets []string) []model.AttributionCandidate {
	slots := make([]model.AttributionCandidate, len(targets))
	one := func(i int) {
		url := targets[i]
		slots[i] = p.deps.Strategies.StrategyFor(url).Extract(ctx, url)
	}

	if p.cfg.Concurrent {
		var g errgroup.Group
		for i := range targets {
			g.Go(func() error {
				one(i)
				return nil
			})
		}
		_ = g.Wait()
		return slots
	}

	for i := range targets {
		if i > 0 && p.cfg.Politeness > 0 {
			select {
			case <-ctx.Done():
			case <-time.After(p.cfg.Politeness):
			}
		}
		one(i)
	}
	return slots
}
