package scrape

import (
	"fmt"
	"mime"
	"net/http"
	"strings"
)

// BlockType describes the kind of block detected.
type BlockType string

const (
	BlockNone       BlockType = ""
	BlockCloudflare BlockType = "cloudflare"
	BlockCaptcha    BlockType = "captcha"
	BlockJSShell    BlockType = "js_shell"
	BlockImage      BlockType = "image"
	BlockNonHTML    BlockType = "non_html"
	BlockStatus     BlockType = "status"
)

// Challenge reports whether the block is an anti-bot page that a retry
// or a real browser may get past.
func (b BlockType) Challenge() bool {
	return b == BlockCloudflare || b == BlockCaptcha || b == BlockJSShell
}

// BlockedError is returned by a scraper whose response was judged blocked.
type BlockedError struct {
	Type   BlockType
	Status int
}

func (e *BlockedError) Error() string {
	if e.Type == BlockStatus {
		return fmt.Sprintf("scrape: blocked (status %d)", e.Status)
	}
	return fmt.Sprintf("scrape: blocked (%s)", e.Type)
}

// DetectBlock checks an HTTP response for signs of anti-bot protection or
// content that is not a document.
func DetectBlock(resp *http.Response, body []byte) (bool, BlockType) {
	if resp == nil {
		return false, BlockNone
	}

	// Cloudflare: 403/503 with cf-* headers.
	if resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusServiceUnavailable {
		if resp.Header.Get("cf-ray") != "" || resp.Header.Get("cf-cache-status") != "" ||
			strings.EqualFold(resp.Header.Get("server"), "cloudflare") {
			return true, BlockCloudflare
		}
	}

	if bt := DetectChallenge(body); bt != BlockNone {
		return true, bt
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return true, BlockStatus
	}

	if bt := classifyContentType(resp.Header.Get("Content-Type")); bt != BlockNone {
		return true, bt
	}

	return false, BlockNone
}

// DetectChallenge looks for bot-challenge markers in a body. It is applied
// to escalated content too, since a reader service can hand back the
// challenge page it was served.
func DetectChallenge(body []byte) BlockType {
	if containsFold(head(body, 500), "just a moment") ||
		strings.Contains(string(head(body, 1000)), "_cf_chl_opt") {
		return BlockCloudflare
	}

	// Interstitial markers only count near the start of the body. Real
	// pages served through Cloudflare mention its challenge scripts further
	// down.
	top := strings.ToLower(string(head(body, 1000)))
	if strings.Contains(top, "checking your browser") ||
		strings.Contains(top, "cf-browser-verification") ||
		strings.Contains(top, "cloudflare") && strings.Contains(top, "challenge") {
		return BlockCloudflare
	}

	lower := strings.ToLower(string(body))

	// Captcha markers only count on small pages; photo pages routinely
	// load a recaptcha script for their login widget.
	if len(body) < 20000 &&
		(strings.Contains(lower, "g-recaptcha") ||
			strings.Contains(lower, "h-captcha") ||
			strings.Contains(lower, "captcha-delivery")) {
		return BlockCaptcha
	}

	// JS-only shell: very small body with noscript or meta refresh.
	if len(body) < 2000 {
		if strings.Contains(lower, "<noscript") && strings.Contains(lower, "javascript") {
			return BlockJSShell
		}
		if strings.Contains(lower, `meta http-equiv="refresh"`) {
			return BlockJSShell
		}
	}

	return BlockNone
}

func classifyContentType(contentType string) BlockType {
	if contentType == "" {
		return BlockNone
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return BlockNone
	}
	switch {
	case strings.HasPrefix(mediaType, "image/"):
		return BlockImage
	case mediaType == "text/html", mediaType == "application/xhtml+xml":
		return BlockNone
	default:
		return BlockNonHTML
	}
}

func head(b []byte, n int) []byte {
	if len(b) > n {
		return b[:n]
	}
	return b
}

func containsFold(b []byte, sub string) bool {
	return strings.Contains(strings.ToLower(string(b)), sub)
}
