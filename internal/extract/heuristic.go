package extract

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/sells-group/review-cli/internal/datefilter"
	"github.com/sells-group/review-cli/internal/model"
)

const (
	containerSelector = `.review, .review-card, [data-testid="review"], article.review, .review-item, [itemprop="review"]`
	fallbackSelector  = `article, [class*="review"]`

	dateTextSelector  = `.date, .review-date, [class*="date"]`
	titleSelector     = `h3, h2, .review-title, [class*="title"]`
	emphasisSelector  = `strong, b`
	bodySelector      = `.review-text, .review-body, .review-content, p`
	bodyExclude       = `.reviewer, .author, .meta`
	bodyFallback      = `.content, .description`
	ratingSelector    = `.rating, [class*="rating"]`
	reviewerSelector  = `.reviewer, .author, .user-name, .reviewer-name`
	datePublishedAttr = `[itemprop="datePublished"]`
)

var numberRe = regexp.MustCompile(`\d+(?:\.\d+)?`)

// Heuristic extracts reviews from markup with fixed CSS selectors. It makes
// no network calls and never fails.
type Heuristic struct{}

// NewHeuristic returns a selector-based extractor.
func NewHeuristic() *Heuristic {
	return &Heuristic{}
}

// Extract returns the reviews found in markup whose date falls inside w.
// Source and provenance are left for the caller to stamp. Malformed markup
// yields an empty result.
func (h *Heuristic) Extract(markup string, w datefilter.Window) (out []model.Review) {
	defer func() {
		if r := recover(); r != nil {
			zap.L().Warn("extract: heuristic parser panic", zap.Any("panic", r))
			out = nil
		}
	}()

	if strings.TrimSpace(markup) == "" {
		return nil
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		zap.L().Debug("extract: heuristic parse", zap.Error(err))
		return nil
	}

	// Only outermost matches count, so a .review-item inside a .review or a
	// <div class="review-body"> inside an <article> is one review, not two.
	cards := outermost(doc, containerSelector)
	if cards.Length() == 0 {
		cards = outermost(doc, fallbackSelector)
	}

	cards.Each(func(_ int, card *goquery.Selection) {
		if r, ok := parseCard(card, w); ok {
			out = append(out, r)
		}
	})
	return out
}

func outermost(doc *goquery.Document, selector string) *goquery.Selection {
	return doc.Find(selector).FilterFunction(func(_ int, s *goquery.Selection) bool {
		return s.ParentsFiltered(selector).Length() == 0
	})
}

// parseCard reads one candidate container. Cards without an in-window date
// are rejected before any other field is read.
func parseCard(card *goquery.Selection, w datefilter.Window) (model.Review, bool) {
	date, ok := datefilter.Canonicalize(cardDate(card))
	if !ok || !w.Contains(date) {
		return model.Review{}, false
	}

	title := firstText(card, titleSelector)
	if title == "" {
		title = firstText(card, emphasisSelector)
	}

	body := collapse(card.Find(bodySelector).Not(":has(img)").Not(bodyExclude).First().Text())
	if body == "" {
		body = collapse(card.Find(bodyFallback).Text())
	}

	if title == "" && body == "" {
		return model.Review{}, false
	}

	reviewer := firstText(card, reviewerSelector)
	if reviewer == "" {
		reviewer = model.DefaultReviewer
	}
	if title == "" {
		title = model.DefaultTitle
	}
	if body == "" {
		body = model.DefaultBody
	}

	return model.Review{
		Title:    title,
		Review:   body,
		Date:     date,
		Rating:   cardRating(card),
		Reviewer: reviewer,
	}, true
}

func cardDate(card *goquery.Selection) string {
	if v, ok := card.Find("time[datetime]").First().Attr("datetime"); ok && strings.TrimSpace(v) != "" {
		return v
	}
	pub := card.Find(datePublishedAttr).First()
	for _, attr := range []string{"content", "datetime"} {
		if v, ok := pub.Attr(attr); ok && strings.TrimSpace(v) != "" {
			return v
		}
	}
	if v := collapse(pub.Text()); v != "" {
		return v
	}
	if v := firstText(card, "time"); v != "" {
		return v
	}
	return firstText(card, dateTextSelector)
}

func cardRating(card *goquery.Selection) float64 {
	el := card.Find(ratingSelector).First()
	if m := numberRe.FindString(el.Text()); m != "" {
		return normalizeRating(m)
	}
	for _, attr := range []string{"data-rating", "aria-label"} {
		if v, ok := el.Attr(attr); ok {
			if m := numberRe.FindString(v); m != "" {
				return normalizeRating(m)
			}
		}
	}
	if v, ok := card.Find("[data-rating]").First().Attr("data-rating"); ok {
		return normalizeRating(numberRe.FindString(v))
	}
	return 0
}

// normalizeRating parses s and clamps anything outside 0-5 to 0.
func normalizeRating(s string) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || f < 0 || f > 5 {
		return 0
	}
	return f
}

func firstText(s *goquery.Selection, selector string) string {
	return collapse(s.Find(selector).First().Text())
}

// collapse trims s and folds internal whitespace runs to single spaces.
func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
