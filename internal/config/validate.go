package config

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
)

// KnownEngines lists the reverse-image engines the search package provides.
var KnownEngines = []string{"yandex", "bing", "google_lens", "serpapi"}

// Validate checks the settings a command mode depends on. Modes are
// "resolve", "batch" and "serve".
func (c *Config) Validate(mode string) error {
	var problems []string

	switch mode {
	case "resolve":
	case "batch":
		problems = append(problems, c.validateBatch()...)
	case "serve":
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			problems = append(problems, "server.port must be > 0 and <= 65535")
		}
		if c.Server.MaxUploadMB <= 0 {
			problems = append(problems, "server.max_upload_mb must be > 0")
		}
		problems = append(problems, c.validateBatch()...)
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	problems = append(problems, c.validateSearch()...)

	if c.Pipeline.MinConfidence < 0 || c.Pipeline.MinConfidence > 1 {
		problems = append(problems, "pipeline.min_confidence must be between 0 and 1")
	}
	if c.Pipeline.ScrapeLimit < 1 {
		problems = append(problems, "pipeline.scrape_limit must be >= 1")
	}

	if len(problems) > 0 {
		return eris.Errorf("config: invalid: %s", strings.Join(problems, "; "))
	}
	return nil
}

func (c *Config) validateBatch() []string {
	var problems []string
	if c.Batch.MaxImages < 1 || c.Batch.MaxImages > 50 {
		problems = append(problems, "batch.max_images must be between 1 and 50")
	}
	if c.Batch.MaxConcurrent < 1 || c.Batch.MaxConcurrent > 20 {
		problems = append(problems, "batch.max_concurrent must be between 1 and 20")
	}
	return problems
}

func (c *Config) validateSearch() []string {
	var problems []string
	if len(c.Search.Engines) == 0 {
		problems = append(problems, "search.engines must not be empty")
	}
	for _, e := range c.Search.Engines {
		if !isKnownEngine(e) {
			problems = append(problems, fmt.Sprintf("search.engines: unknown engine %q", e))
		}
	}
	if c.Search.MaxResults < 1 {
		problems = append(problems, "search.max_results must be >= 1")
	}
	return problems
}

func isKnownEngine(name string) bool {
	for _, k := range KnownEngines {
		if k == name {
			return true
		}
	}
	return false
}
