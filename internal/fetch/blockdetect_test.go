package fetch

import (
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func resp(status int, headers map[string]string) *http.Response {
	h := http.Header{}
	for k, v := range headers {
		h.Set(k, v)
	}
	return &http.Response{StatusCode: status, Header: h}
}

func TestDetectBlock(t *testing.T) {
	bigPage := []byte("<html><body>" + strings.Repeat("<div class=\"review\">ok</div>", 2000) + "recaptcha</body></html>")

	tests := []struct {
		name string
		resp *http.Response
		body []byte
		want BlockType
	}{
		{"nil response", nil, nil, BlockNone},
		{"cloudflare 403", resp(403, map[string]string{"cf-ray": "abc"}), nil, BlockCloudflare},
		{"cloudflare server header", resp(503, map[string]string{"Server": "cloudflare"}), nil, BlockCloudflare},
		{"plain 403", resp(403, nil), []byte("forbidden"), BlockStatus},
		{"429", resp(429, nil), nil, BlockStatus},
		{"datadome header", resp(200, map[string]string{"X-DataDome": "protected"}), []byte("<html></html>"), BlockDataDome},
		{"datadome body", resp(200, nil), []byte(`<script src="https://ct.captcha-delivery.com/c.js"></script>`), BlockDataDome},
		{"challenge page", resp(200, nil), []byte("<title>Just a moment...</title>Checking your browser before accessing"), BlockCloudflare},
		{"captcha", resp(200, nil), []byte("<div>Please solve this captcha</div>"), BlockCaptcha},
		{"js shell", resp(200, nil), []byte("<html><noscript>Please enable JavaScript</noscript></html>"), BlockJSShell},
		{"meta refresh", resp(200, nil), []byte(`<meta http-equiv="refresh" content="0;url=/x">`), BlockJSShell},
		{"large real page", resp(200, nil), bigPage, BlockNone},
		{"small clean page", resp(200, nil), []byte("<html><body><div class=\"review\">fine</div></body></html>"), BlockNone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			blocked, kind := DetectBlock(tt.resp, tt.body)
			assert.Equal(t, tt.want, kind)
			assert.Equal(t, tt.want != BlockNone, blocked)
		})
	}
}
