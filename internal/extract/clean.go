package extract

import (
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
)

// noiseSelector lists elements that never carry review content.
const noiseSelector = "script, style, noscript, iframe, svg"

// truncationMarker is appended to content cut at the size limit.
const truncationMarker = "... [truncated]"

// PrepareContent removes non-content elements from markup and truncates the
// result to maxBytes (rune-safe), appending a truncation marker. Markup that
// cannot be parsed is truncated as-is.
func PrepareContent(markup string, maxBytes int) string {
	cleaned := markup
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err == nil {
		doc.Find(noiseSelector).Remove()
		if html, herr := doc.Html(); herr == nil {
			cleaned = html
		} else {
			zap.L().Debug("extract: render cleaned markup", zap.Error(herr))
		}
	} else {
		zap.L().Debug("extract: parse markup for cleaning", zap.Error(err))
	}
	return truncate(cleaned, maxBytes)
}

// truncate cuts s to at most maxBytes without splitting a UTF-8 sequence.
func truncate(s string, maxBytes int) string {
	if maxBytes <= 0 || len(s) <= maxBytes {
		return s
	}
	cut := maxBytes
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + truncationMarker
}
