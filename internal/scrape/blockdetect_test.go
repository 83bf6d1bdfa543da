package scrape

import (
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetectBlock(t *testing.T) {
	t.Parallel()

	longPage := "<html><body>" + strings.Repeat("<p>photo credits and captions</p>", 100) + "</body></html>"
	fronted := cloudflareFrontedPage()

	tests := []struct {
		name        string
		status      int
		header      map[string]string
		body        string
		wantBlocked bool
		wantType    BlockType
	}{
		{"clean html", 200, map[string]string{"Content-Type": "text/html; charset=utf-8"}, longPage, false, BlockNone},
		{"no content type", 200, nil, longPage, false, BlockNone},
		{"cf-ray on 403", 403, map[string]string{"Cf-Ray": "abc"}, "denied", true, BlockCloudflare},
		{"cloudflare server on 503", 503, map[string]string{"Server": "cloudflare"}, "", true, BlockCloudflare},
		{"just a moment", 200, map[string]string{"Content-Type": "text/html"}, "<html><title>Just a moment...</title>" + longPage, true, BlockCloudflare},
		{"cf challenge opt", 200, map[string]string{"Content-Type": "text/html"}, "<html><script>window._cf_chl_opt={}</script>" + longPage, true, BlockCloudflare},
		{"cloudflare fronted page", 200, map[string]string{"Content-Type": "text/html"}, fronted, false, BlockNone},
		{"checking your browser", 200, nil, "<html>Checking your browser before accessing</html>", true, BlockCloudflare},
		{"captcha", 200, nil, `<html><div class="g-recaptcha"></div></html>`, true, BlockCaptcha},
		{"js shell", 200, nil, `<html><noscript>Please enable JavaScript</noscript></html>`, true, BlockJSShell},
		{"meta refresh", 200, nil, `<html><meta http-equiv="refresh" content="0;url=/x"></html>`, true, BlockJSShell},
		{"image content", 200, map[string]string{"Content-Type": "image/jpeg"}, "\xff\xd8\xff", true, BlockImage},
		{"pdf content", 200, map[string]string{"Content-Type": "application/pdf"}, longPage, true, BlockNonHTML},
		{"not found", 404, map[string]string{"Content-Type": "text/html"}, longPage, true, BlockStatus},
		{"server error", 500, nil, longPage, true, BlockStatus},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			resp := &http.Response{StatusCode: tt.status, Header: http.Header{}}
			for k, v := range tt.header {
				resp.Header.Set(k, v)
			}
			blocked, bt := DetectBlock(resp, []byte(tt.body))
			assert.Equal(t, tt.wantBlocked, blocked)
			assert.Equal(t, tt.wantType, bt)
		})
	}
}

func TestDetectBlock_NilResponse(t *testing.T) {
	blocked, bt := DetectBlock(nil, nil)
	assert.False(t, blocked)
	assert.Equal(t, BlockNone, bt)
}

func TestDetectChallenge_MarkerBeyondWindow(t *testing.T) {
	body := strings.Repeat("x", 600) + "just a moment" + strings.Repeat("y", 30000)
	assert.Equal(t, BlockNone, DetectChallenge([]byte(body)))

	body = strings.Repeat("x", 1200) + "Checking your browser" + strings.Repeat("y", 30000)
	assert.Equal(t, BlockNone, DetectChallenge([]byte(body)))
}

// cloudflareFrontedPage is a large, legitimate photo page that loads a
// cdnjs script up top and Cloudflare's challenge-platform script at the end.
func cloudflareFrontedPage() string {
	return `<html><head><title>Sunset by Jane Doe</title>` +
		`<script src="https://cdnjs.cloudflare.com/ajax/libs/lazysizes/5.3.2/lazysizes.min.js"></script></head><body>` +
		`<h1>Sunset</h1><p>Photo by Jane Doe</p>` +
		strings.Repeat("<p>related photos and captions</p>", 1800) +
		`<script src="/cdn-cgi/challenge-platform/scripts/jsd/main.js"></script></body></html>`
}

func TestBlockType_Challenge(t *testing.T) {
	assert.True(t, BlockCloudflare.Challenge())
	assert.True(t, BlockCaptcha.Challenge())
	assert.True(t, BlockJSShell.Challenge())
	assert.False(t, BlockImage.Challenge())
	assert.False(t, BlockStatus.Challenge())
	assert.False(t, BlockNone.Challenge())
}

func TestBlockedError_Error(t *testing.T) {
	assert.Equal(t, "scrape: blocked (status 404)", (&BlockedError{Type: BlockStatus, Status: 404}).Error())
	assert.Equal(t, "scrape: blocked (image)", (&BlockedError{Type: BlockImage}).Error())
}
