package model

// PipelineResult is the final payload of one resolution.
type PipelineResult struct {
	RequestID   string                 `json:"request_id" yaml:"request_id"`
	ImageURL    string                 `json:"image_url,omitempty" yaml:"image_url,omitempty"`
	Found       bool                   `json:"found" yaml:"found"`
	Results     []AttributionCandidate `json:"results" yaml:"results"`
	MatchedURLs []string               `json:"matched_urls" yaml:"matched_urls"`
	EnginesUsed []string               `json:"search_engines_used" yaml:"search_engines_used"`
	TotalFound  int                    `json:"total_matches_found" yaml:"total_matches_found"`
	KeyUsed     *int                   `json:"api_key_used,omitempty" yaml:"api_key_used,omitempty"`
	Error       string                 `json:"error,omitempty" yaml:"error,omitempty"`
}

// SetFound marks the result found when at least one candidate scores
// above the confidence floor.
func (r *PipelineResult) SetFound(floor float64) {
	r.Found = false
	for _, c := range r.Results {
		if c.Confidence > floor {
			r.Found = true
			return
		}
	}
}

// BatchResult holds per-image results in input order.
type BatchResult struct {
	Results    []PipelineResult `json:"results" yaml:"results"`
	TotalFound int              `json:"total_found" yaml:"total_found"`
}

// LookupResult is the outcome of a direct page lookup. Supported is false
// when no provider-specific strategy covers the page's domain and the
// generic extraction was used instead.
type LookupResult struct {
	RequestID   string                `json:"request_id" yaml:"request_id"`
	URL         string                `json:"url" yaml:"url"`
	Found       bool                  `json:"found" yaml:"found"`
	Supported   bool                  `json:"supported" yaml:"supported"`
	Attribution *AttributionCandidate `json:"attribution,omitempty" yaml:"attribution,omitempty"`
	Error       string                `json:"error,omitempty" yaml:"error,omitempty"`
}
