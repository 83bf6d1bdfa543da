package extract

import (
	"encoding/json"
	"strings"

	"github.com/sells-group/attribution-cli/internal/model"
)

var attributionTypes = map[string]bool{
	"ImageObject":  true,
	"Photograph":   true,
	"CreativeWork": true,
}

// jsonLDObjects flattens a JSON-LD block (object, array or @graph) into
// its objects.
func jsonLDObjects(raw string) []map[string]any {
	var v any
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &v); err != nil {
		return nil
	}
	var out []map[string]any
	var walk func(any)
	walk = func(v any) {
		switch t := v.(type) {
		case []any:
			for _, item := range t {
				walk(item)
			}
		case map[string]any:
			out = append(out, t)
			if g, ok := t["@graph"]; ok {
				walk(g)
			}
		}
	}
	walk(v)
	return out
}

func hasAttributionType(obj map[string]any) bool {
	switch t := obj["@type"].(type) {
	case string:
		return attributionTypes[t]
	case []any:
		for _, item := range t {
			if s, ok := item.(string); ok && attributionTypes[s] {
				return true
			}
		}
	}
	return false
}

// fromJSONLD fills c from the first ImageObject/Photograph/CreativeWork
// found in the page's JSON-LD. It reports whether one was found.
func fromJSONLD(doc *Document, c *model.AttributionCandidate) bool {
	for _, raw := range doc.JSONLD() {
		for _, obj := range jsonLDObjects(raw) {
			if !hasAttributionType(obj) {
				continue
			}
			applyJSONLD(obj, c)
			return true
		}
	}
	return false
}

func applyJSONLD(obj map[string]any, c *model.AttributionCandidate) {
	author := obj["author"]
	if author == nil {
		author = obj["creator"]
	}
	if name, url := personName(author); name != "" {
		c.Creator = CleanText(name)
		c.CreatorURL = url
	}

	title := stringValue(obj["name"])
	if title == "" {
		title = stringValue(obj["headline"])
	}
	c.Title = CleanText(title)
	c.Description = strings.TrimSpace(stringValue(obj["description"]))

	for _, key := range []string{"dateCreated", "uploadDate", "datePublished"} {
		if d := isoDate(stringValue(obj[key])); d != "" {
			c.DateCreated = d
			break
		}
	}

	switch kw := obj["keywords"].(type) {
	case []any:
		for _, k := range kw {
			if s := stringValue(k); s != "" {
				c.Keywords = append(c.Keywords, s)
			}
		}
	case string:
		c.Keywords = append(c.Keywords, strings.Split(kw, ",")...)
	}
	c.Keywords = limitKeywords(c.Keywords)

	switch loc := obj["contentLocation"].(type) {
	case string:
		c.Location = strings.TrimSpace(loc)
	case map[string]any:
		c.Location = strings.TrimSpace(stringValue(loc["name"]))
	}

	if lic := stringValue(obj["license"]); lic != "" {
		c.License = CCLabel(lic)
	}
}

// personName reads an author/creator value: a string, an object with
// name/url, or an array of either (first entry wins).
func personName(v any) (name, url string) {
	switch t := v.(type) {
	case string:
		return t, ""
	case map[string]any:
		return stringValue(t["name"]), stringValue(t["url"])
	case []any:
		for _, item := range t {
			if n, u := personName(item); n != "" {
				return n, u
			}
		}
	}
	return "", ""
}

func stringValue(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case map[string]any:
		if s, ok := t["@id"].(string); ok {
			return s
		}
		if s, ok := t["name"].(string); ok {
			return s
		}
	}
	return ""
}

func limitKeywords(in []string) []string {
	out := model.DedupeKeywords(in)
	if len(out) > 20 {
		out = out[:20]
	}
	return out
}
