package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sells-group/attribution-cli/internal/canonical"
	"github.com/sells-group/attribution-cli/internal/extract"
	"github.com/sells-group/attribution-cli/internal/model"
)

// LookupPage extracts attribution straight from a provider page, skipping
// metadata, provider APIs and search. CDN asset URLs are rewritten to
// their detail page first. The error is non-nil only for malformed input.
func (p *Pipeline) LookupPage(ctx context.Context, pageURL string) (*model.LookupResult, error) {
	if err := (model.ImageRef{URL: pageURL}).Validate(); err != nil {
		return nil, err
	}
	if p.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.cfg.Timeout)
		defer cancel()
	}

	target := canonical.Canonicalize(pageURL)
	res := &model.LookupResult{RequestID: uuid.New().String(), URL: target}
	log := zap.L().With(zap.String("request_id", res.RequestID), zap.String("url", target))
	started := time.Now()

	strategy := p.deps.Strategies.StrategyFor(target)
	res.Supported = strategy.Name() != extract.GenericName

	cands := []model.AttributionCandidate{strategy.Extract(ctx, target)}
	p.deps.Scorer.Apply(cands)
	cand := cands[0]
	res.Attribution = &cand

	switch {
	case cand.Status == model.StatusFailed && cand.Error != "":
		res.Error = cand.Error
	case cand.Status == model.StatusFailed:
		res.Error = "no attribution found on page"
	default:
		res.Found = cand.Confidence > p.cfg.MinConfidence
	}

	log.Info("pipeline: page lookup complete",
		zap.String("strategy", strategy.Name()),
		zap.Bool("found", res.Found),
		zap.Duration("elapsed", time.Since(started)),
	)
	return res, nil
}
