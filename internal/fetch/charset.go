package fetch

import (
	"mime"
	"regexp"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/text/encoding/htmlindex"
)

var metaCharsetRe = regexp.MustCompile(`(?i)<meta[^>]+charset=["']?\s*([a-z0-9_\-:.]+)`)

// sniffLimit is how much of the body is searched for a <meta charset>.
const sniffLimit = 1024

// decodeBody converts body to UTF-8 using the charset from the Content-Type
// header or, failing that, a <meta charset> tag. Unknown charsets and
// UTF-8 bodies are returned unchanged.
func decodeBody(body []byte, contentType string) (string, error) {
	charset := ""
	if contentType != "" {
		if _, params, err := mime.ParseMediaType(contentType); err == nil {
			charset = params["charset"]
		}
	}
	if charset == "" {
		head := body
		if len(head) > sniffLimit {
			head = head[:sniffLimit]
		}
		if m := metaCharsetRe.FindSubmatch(head); m != nil {
			charset = string(m[1])
		}
	}

	charset = strings.ToLower(strings.TrimSpace(charset))
	if charset == "" || charset == "utf-8" || charset == "utf8" {
		return string(body), nil
	}

	enc, err := htmlindex.Get(charset)
	if err != nil {
		return string(body), nil
	}
	decoded, err := enc.NewDecoder().Bytes(body)
	if err != nil {
		return "", eris.Wrapf(err, "fetch: decode %s body", charset)
	}
	return string(decoded), nil
}
