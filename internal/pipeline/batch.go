package pipeline

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/attribution-cli/internal/model"
)

// ErrBatchSize rejects empty or oversized batches.
var ErrBatchSize = eris.New("pipeline: batch size out of range")

// ResolveBatch resolves refs with at most BatchConcurrency resolutions in
// flight. Results keep input order; a failing item records its own error
// and never aborts the batch.
func (p *Pipeline) ResolveBatch(ctx context.Context, refs []model.ImageRef, opts Options) (*model.BatchResult, error) {
	if len(refs) == 0 || len(refs) > p.cfg.BatchMax {
		return nil, eris.Wrapf(ErrBatchSize, "got %d images, want 1..%d", len(refs), p.cfg.BatchMax)
	}

	out := &model.BatchResult{Results: make([]model.PipelineResult, len(refs))}
	var g errgroup.Group
	g.SetLimit(p.cfg.BatchConcurrency)
	for i, ref := range refs {
		g.Go(func() error {
			res, err := p.Resolve(ctx, ref, opts)
			if err != nil {
				zap.L().Debug("pipeline: batch item rejected", zap.Int("index", i), zap.Error(err))
				res = &model.PipelineResult{
					ImageURL:    ref.URL,
					Results:     []model.AttributionCandidate{},
					MatchedURLs: []string{},
					EnginesUsed: []string{},
					Error:       err.Error(),
				}
			}
			out.Results[i] = *res
			return nil
		})
	}
	_ = g.Wait()

	for _, r := range out.Results {
		if r.Found {
			out.TotalFound++
		}
	}
	zap.L().Info("pipeline: batch complete",
		zap.Int("images", len(refs)),
		zap.Int("found", out.TotalFound),
	)
	return out, nil
}
