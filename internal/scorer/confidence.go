package scorer

import (
	"math"
	"sort"

	"github.com/sells-group/attribution-cli/internal/model"
)

// Score bounds and weights.
const (
	Floor = 0.1
	Ceil  = 1.0

	priorityWeight = 0.3
	creatorWeight  = 0.3
	licenseWeight  = 0.15
	titleWeight    = 0.1
	detailWeight   = 0.05
)

// Scorer computes candidate confidence from domain priority and field
// completeness.
type Scorer struct {
	prio *Priorities
}

// New creates a Scorer. A nil Priorities means the defaults.
func New(prio *Priorities) *Scorer {
	if prio == nil {
		prio = NewPriorities(nil)
	}
	return &Scorer{prio: prio}
}

// Priorities returns the domain ordering the scorer uses.
func (s *Scorer) Priorities() *Priorities { return s.prio }

// Score returns c's confidence in [Floor, Ceil]. Failed candidates score
// exactly Floor.
func (s *Scorer) Score(c model.AttributionCandidate) float64 {
	if c.Status == model.StatusFailed {
		return Floor
	}

	score := 0.0
	if n := s.prio.Len(); n > 0 {
		score = float64(s.prio.Of(c.SourceURL)) / float64(n) * priorityWeight
	}
	if c.Creator != "" {
		score += creatorWeight
	}
	if c.License != "" {
		score += licenseWeight
	}
	if c.Title != "" {
		score += titleWeight
	}
	if c.DateCreated != "" {
		score += detailWeight
	}
	if len(c.Keywords) > 0 {
		score += detailWeight
	}
	if c.Location != "" {
		score += detailWeight
	}
	return clamp(score)
}

// Apply sets the confidence of every candidate in place.
func (s *Scorer) Apply(cands []model.AttributionCandidate) {
	for i := range cands {
		cands[i].Confidence = s.Score(cands[i])
	}
}

func clamp(v float64) float64 {
	v = math.Round(v*1000) / 1000
	return math.Max(Floor, math.Min(Ceil, v))
}

// Rank sorts candidates best first: confidence, then creator presence,
// then weighted field count, then source URL.
func Rank(cands []model.AttributionCandidate) {
	sort.SliceStable(cands, func(i, j int) bool {
		a, b := cands[i], cands[j]
		if a.Confidence != b.Confidence {
			return a.Confidence > b.Confidence
		}
		if (a.Creator != "") != (b.Creator != "") {
			return a.Creator != ""
		}
		if wa, wb := a.FieldWeight(), b.FieldWeight(); wa != wb {
			return wa > wb
		}
		return a.SourceURL < b.SourceURL
	})
}
