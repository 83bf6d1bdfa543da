package model

import (
	"fmt"
	"strings"
)

// Status describes how much attribution an extraction recovered.
type Status string

const (
	StatusPending Status = "pending"
	StatusSuccess Status = "success"
	StatusPartial Status = "partial"
	StatusFailed  Status = "failed"
)

// AttributionCandidate is one putative source of an image.
type AttributionCandidate struct {
	SourceURL   string   `json:"source_url" yaml:"source_url"`
	Source      string   `json:"source" yaml:"source"`
	Creator     string   `json:"creator,omitempty" yaml:"creator,omitempty"`
	CreatorURL  string   `json:"creator_url,omitempty" yaml:"creator_url,omitempty"`
	Title       string   `json:"title,omitempty" yaml:"title,omitempty"`
	Description string   `json:"description,omitempty" yaml:"description,omitempty"`
	DateCreated string   `json:"date_created,omitempty" yaml:"date_created,omitempty"`
	Location    string   `json:"location,omitempty" yaml:"location,omitempty"`
	Copyright   string   `json:"copyright,omitempty" yaml:"copyright,omitempty"`
	License     string   `json:"license,omitempty" yaml:"license,omitempty"`
	Keywords    []string `json:"keywords,omitempty" yaml:"keywords,omitempty"`
	Status      Status   `json:"status" yaml:"status"`
	Confidence  float64  `json:"confidence" yaml:"confidence"`
	Error       string   `json:"error,omitempty" yaml:"error,omitempty"`
}

// DeriveStatus maps the presence of creator and title to a status:
// both present is success, one is partial, neither is failed.
func DeriveStatus(creator, title string) Status {
	n := 0
	if strings.TrimSpace(creator) != "" {
		n++
	}
	if strings.TrimSpace(title) != "" {
		n++
	}
	switch n {
	case 2:
		return StatusSuccess
	case 1:
		return StatusPartial
	default:
		return StatusFailed
	}
}

// Finalize derives the status and fills in a missing copyright line.
// A copyright is never synthesized without a creator.
func (c *AttributionCandidate) Finalize() {
	c.Keywords = DedupeKeywords(c.Keywords)
	if c.Copyright == "" && c.Creator != "" {
		if year := Year(c.DateCreated); year != "" {
			c.Copyright = fmt.Sprintf("© %s %s", year, c.Creator)
		} else {
			c.Copyright = "© " + c.Creator
		}
	}
	c.Status = DeriveStatus(c.Creator, c.Title)
}

// FailedCandidate is the placeholder recorded when extraction of a
// candidate URL could not complete.
func FailedCandidate(sourceURL, source string, err error) AttributionCandidate {
	c := AttributionCandidate{
		SourceURL: sourceURL,
		Source:    source,
		Status:    StatusFailed,
	}
	if err != nil {
		c.Error = err.Error()
	}
	return c
}

// FieldWeight is the weighted count of populated fields used to order
// candidates of equal confidence. Creator counts 3, title 2, others 1.
func (c AttributionCandidate) FieldWeight() int {
	w := 0
	if c.Creator != "" {
		w += 3
	}
	if c.Title != "" {
		w += 2
	}
	for _, s := range []string{c.CreatorURL, c.Description, c.DateCreated, c.Location, c.Copyright, c.License} {
		if s != "" {
			w++
		}
	}
	if len(c.Keywords) > 0 {
		w++
	}
	return w
}

// DedupeKeywords trims and removes case-insensitive duplicates while
// keeping the first occurrence order.
func DedupeKeywords(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, k := range in {
		k = strings.TrimSpace(k)
		if k == "" {
			continue
		}
		key := strings.ToLower(k)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, k)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// Year returns the leading four-digit year of an ISO-ish date, or "".
func Year(date string) string {
	if len(date) < 4 {
		return ""
	}
	for _, r := range date[:4] {
		if r < '0' || r > '9' {
			return ""
		}
	}
	return date[:4]
}
