package fetch

import (
	"net/http"
	"strings"
)

// BlockType describes the kind of anti-bot response detected.
type BlockType string

const (
	BlockNone       BlockType = ""
	BlockStatus     BlockType = "status"
	BlockCloudflare BlockType = "cloudflare"
	BlockDataDome   BlockType = "datadome"
	BlockCaptcha    BlockType = "captcha"
	BlockJSShell    BlockType = "js_shell"
)

// challengeBodyLimit bounds the body size at which marker text is trusted on
// a 200 response. Real review listings are far larger than challenge pages
// and may mention captchas in login widgets.
const challengeBodyLimit = 20000

// DetectBlock checks a response for signs of anti-bot protection.
func DetectBlock(resp *http.Response, body []byte) (bool, BlockType) {
	if resp == nil {
		return false, BlockNone
	}

	if resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusServiceUnavailable {
		if resp.Header.Get("cf-ray") != "" || resp.Header.Get("cf-cache-status") != "" ||
			strings.EqualFold(resp.Header.Get("server"), "cloudflare") {
			return true, BlockCloudflare
		}
	}
	if resp.Header.Get("x-datadome") != "" || resp.Header.Get("x-dd-b") != "" {
		if resp.StatusCode != http.StatusOK || len(body) < challengeBodyLimit {
			return true, BlockDataDome
		}
	}
	if resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusTooManyRequests {
		return true, BlockStatus
	}

	if resp.StatusCode == http.StatusOK && len(body) >= challengeBodyLimit {
		return false, BlockNone
	}

	lower := strings.ToLower(string(body))

	if strings.Contains(lower, "checking your browser") ||
		strings.Contains(lower, "cf-browser-verification") ||
		strings.Contains(lower, "cloudflare") && strings.Contains(lower, "challenge") {
		return true, BlockCloudflare
	}

	if strings.Contains(lower, "datadome") || strings.Contains(lower, "captcha-delivery.com") {
		return true, BlockDataDome
	}

	if strings.Contains(lower, "captcha") {
		return true, BlockCaptcha
	}

	// JS-only shell: tiny body that only asks for JavaScript or refreshes.
	if len(body) < 2000 {
		if strings.Contains(lower, "<noscript") && strings.Contains(lower, "javascript") {
			return true, BlockJSShell
		}
		if strings.Contains(lower, `meta http-equiv="refresh"`) {
			return true, BlockJSShell
		}
	}

	return false, BlockNone
}
