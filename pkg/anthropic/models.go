package anthropic

import (
	"regexp"
	"strings"

	"github.com/rotisserie/eris"
)

// modelIDRe accepts identifiers like "claude-haiku-4-5-20251001",
// "claude-3-5-haiku-20241022" or the alias "claude-sonnet-4-5".
var modelIDRe = regexp.MustCompile(`^claude-[a-z0-9]+(?:[-.][a-z0-9]+)*$`)

// ParseModel normalizes a model name and validates its shape. A leading
// "models/" or "anthropic/" qualifier is dropped. No network call is made.
func ParseModel(name string) (string, error) {
	id := strings.ToLower(strings.TrimSpace(name))
	for _, prefix := range []string{"models/", "anthropic/"} {
		id = strings.TrimPrefix(id, prefix)
	}
	if id == "" {
		return "", eris.New("anthropic: empty model name")
	}
	if !modelIDRe.MatchString(id) {
		return "", eris.Errorf("anthropic: invalid model name %q", name)
	}
	return id, nil
}

// outputTokenLimits holds the max output tokens per model family, matched by
// id prefix. Longer prefixes are listed first.
var outputTokenLimits = []struct {
	prefix string
	limit  int64
}{
	{"claude-3-5-haiku", 8192},
	{"claude-3-5-sonnet", 8192},
	{"claude-3-haiku", 4096},
	{"claude-3-7-sonnet", 64000},
	{"claude-sonnet-4", 64000},
	{"claude-haiku-4", 64000},
	{"claude-opus-4", 32000},
}

// CapMaxTokens clamps requested to the output limit of model. Unknown
// models get requested unchanged.
func CapMaxTokens(model string, requested int64) int64 {
	for _, l := range outputTokenLimits {
		if strings.HasPrefix(model, l.prefix) && requested > l.limit {
			return l.limit
		}
	}
	return requested
}
