package extract

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/review-cli/internal/datefilter"
	"github.com/sells-group/review-cli/internal/model"
)

// RawReview is one unvalidated record from the AI backend's JSON output.
type RawReview struct {
	Title    string
	Review   string
	Date     string
	Rating   any
	Reviewer string
}

// excerptLen bounds the response excerpt logged on parse failure.
const excerptLen = 500

// ParseResponse decodes the backend's text into raw records. It never fails:
// markdown fences are stripped, and invalid JSON or a non-array value yields
// an empty result.
func ParseResponse(text string) []RawReview {
	cleaned := stripFences(text)

	var decoded any
	if err := json.Unmarshal([]byte(cleaned), &decoded); err != nil {
		zap.L().Warn("extract: failed to parse AI response",
			zap.Error(err),
			zap.String("excerpt", excerpt(text, excerptLen)),
		)
		return nil
	}

	items, ok := decoded.([]any)
	if !ok {
		zap.L().Warn("extract: AI response is not a JSON array",
			zap.String("excerpt", excerpt(text, excerptLen)),
		)
		return nil
	}

	out := make([]RawReview, 0, len(items))
	for _, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			continue
		}
		out = append(out, RawReview{
			Title:    stringField(obj["title"]),
			Review:   stringField(obj["review"]),
			Date:     stringField(obj["date"]),
			Rating:   obj["rating"],
			Reviewer: stringField(obj["reviewer"]),
		})
	}
	return out
}

// stripFences removes a surrounding ``` or ```json fence.
func stripFences(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```JSON")
	text = strings.TrimPrefix(text, "```")
	if idx := strings.LastIndex(text, "```"); idx >= 0 {
		text = text[:idx]
	}
	return strings.TrimSpace(text)
}

func stringField(v any) string {
	switch s := v.(type) {
	case string:
		return strings.TrimSpace(s)
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	default:
		return ""
	}
}

func excerpt(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return truncate(s, n)
}

var leadingNumberRe = regexp.MustCompile(`^\s*[+-]?\d+(?:\.\d+)?`)

// CoerceRating converts a backend rating to a 0-5 float: numbers pass
// through, strings contribute their leading number ("4.5 out of 5" -> 4.5)
// or their count of filled stars. Anything else, or a value outside 0-5,
// becomes 0.
func CoerceRating(v any) float64 {
	switch r := v.(type) {
	case float64:
		if r < 0 || r > 5 {
			return 0
		}
		return r
	case string:
		if m := leadingNumberRe.FindString(r); m != "" {
			return normalizeRating(m)
		}
		if n := strings.Count(r, "★"); n > 0 {
			return normalizeRating(strconv.Itoa(n))
		}
	}
	return 0
}

// postProcess turns raw records into reviews: dates are canonicalized and
// window-filtered, ratings coerced, defaults applied. Records with neither
// title nor body are dropped.
func postProcess(raws []RawReview, w datefilter.Window) []model.Review {
	out := make([]model.Review, 0, len(raws))
	for _, r := range raws {
		date, ok := datefilter.Canonicalize(r.Date)
		if !ok || !w.Contains(date) {
			continue
		}
		if r.Title == "" && r.Review == "" {
			continue
		}

		rev := model.Review{
			Title:    r.Title,
			Review:   r.Review,
			Date:     date,
			Rating:   CoerceRating(r.Rating),
			Reviewer: r.Reviewer,
		}
		if rev.Title == "" {
			rev.Title = model.DefaultTitle
		}
		if rev.Review == "" {
			rev.Review = model.DefaultBody
		}
		if rev.Reviewer == "" {
			rev.Reviewer = model.DefaultReviewer
		}
		out = append(out, rev)
	}
	return out
}
