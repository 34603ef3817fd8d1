package extract

import (
	"go.uber.org/zap"

	"github.com/sells-group/review-cli/pkg/anthropic"
)

// fallbackModels is tried after the preferred model: newest stable first,
// then older stable releases, then the alias tier.
var fallbackModels = []string{
	"claude-sonnet-4-5-20250929",
	"claude-haiku-4-5-20251001",
	"claude-sonnet-4-20250514",
	"claude-3-7-sonnet-20250219",
	"claude-3-5-haiku-20241022",
	"claude-sonnet-4-5",
	"claude-haiku-4-5",
}

// CandidateModels returns the ordered, de-duplicated list of models that
// pass anthropic.ParseModel, starting with preferred. Names that fail to
// parse are skipped.
func CandidateModels(preferred string) []string {
	names := append([]string{preferred}, fallbackModels...)

	seen := make(map[string]bool, len(names))
	out := make([]string, 0, len(names))
	for _, name := range names {
		if name == "" {
			continue
		}
		id, err := anthropic.ParseModel(name)
		if err != nil {
			zap.L().Debug("extract: skipping model", zap.String("model", name), zap.Error(err))
			continue
		}
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
