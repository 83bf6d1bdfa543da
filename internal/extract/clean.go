package extract

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

var creditPrefixes = []string{
	"Photograph by ",
	"Photography by ",
	"Photo by ",
	"Image by ",
	"Credit: ",
	"By ",
	"© ",
}

// CleanText collapses whitespace, strips credit prefixes such as
// "Photo by " and NFC-normalizes the result.
func CleanText(s string) string {
	s = strings.Join(strings.Fields(norm.NFC.String(s)), " ")
	for _, p := range creditPrefixes {
		if len(s) >= len(p) && strings.EqualFold(s[:len(p)], p) {
			s = s[len(p):]
			break
		}
	}
	return strings.TrimSpace(s)
}

var ccPathRe = regexp.MustCompile(`(?i)creativecommons\.org/(licenses|publicdomain)/([a-z-]+)/(\d+(?:\.\d+)?)`)

// CCLabel maps a Creative Commons URL to a label such as "CC BY-SA 4.0".
// Other values are returned as given.
func CCLabel(license string) string {
	m := ccPathRe.FindStringSubmatch(license)
	if m == nil {
		return strings.TrimSpace(license)
	}
	kind, version := strings.ToLower(m[2]), m[3]
	if strings.EqualFold(m[1], "publicdomain") {
		switch kind {
		case "zero":
			return "CC0 " + version
		case "mark":
			return "Public Domain Mark " + version
		}
		return "Public Domain"
	}
	return "CC " + strings.ToUpper(kind) + " " + version
}

// IsCCLicense reports whether s is a Creative Commons license URL.
func IsCCLicense(s string) bool {
	return ccPathRe.MatchString(s)
}

var isoDateRe = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}`)

// isoDate returns the YYYY-MM-DD prefix of s, or "".
func isoDate(s string) string {
	s = strings.TrimSpace(s)
	if m := isoDateRe.FindString(s); m != "" {
		return m
	}
	return ""
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	// Keep the cut on a rune boundary.
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
