package model

// SearchMatch is a raw URL returned by one search engine.
type SearchMatch struct {
	URL     string `json:"url"`
	Context string `json:"context,omitempty"`
	Engine  string `json:"engine"`
}

// SearchOutcome aggregates every engine's matches for one query. Engines
// and Errors are independent: an engine may appear in Engines with zero
// URLs and no error.
type SearchOutcome struct {
	URLs    []string      `json:"urls"`
	Matches []SearchMatch `json:"matches,omitempty"`
	Engines []string      `json:"engines"`
	Errors  []string      `json:"errors,omitempty"`
}
