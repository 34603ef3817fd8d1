package extract

import (
	"fmt"
	"strings"

	"github.com/sells-group/review-cli/internal/datefilter"
	"github.com/sells-group/review-cli/internal/model"
)

// systemPrompt is sent as a cached system block; it is identical for every
// page so consecutive calls hit the prompt cache.
const systemPrompt = `You are a web scraping assistant that extracts product reviews from review-site HTML.

Extract EVERY review visible on the page. For each review return:
- title: the review title or headline, or "" if there is none
- review: the full review text
- date: the review date in YYYY-MM-DD format
- rating: the rating as a number on a 0-5 scale (e.g. 4.5, 5.0)
- reviewer: the reviewer's name, username or identifier, or "Anonymous"

Convert dates to YYYY-MM-DD:
- "January 15, 2023" -> "2023-01-15"
- "Jan 15, 2023" -> "2023-01-15"
- "15 Jan 2023" -> "2023-01-15"
- "2023-01-15" -> "2023-01-15"
- "1/15/2023" -> "2023-01-15"

Convert ratings to decimal numbers:
- "4.5 out of 5" -> 4.5
- "5 stars" -> 5.0
- "4/5" -> 4.0
- "★★★★☆" -> 4.0

Respond with ONLY a JSON array in exactly this shape, with no prose and no markdown fences:
[{"title": "...", "review": "...", "date": "YYYY-MM-DD", "rating": 4.5, "reviewer": "..."}]

If the page has no reviews in the requested date range, respond with [].`

// buildUserPrompt names the site, page and window, followed by the prepared
// page content.
func buildUserPrompt(source model.Source, pageURL string, w datefilter.Window, content string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Extract all product reviews from the following %s page.\n", strings.ToUpper(string(source)))
	if pageURL != "" {
		fmt.Fprintf(&b, "\nPage URL: %s\n", pageURL)
	}
	fmt.Fprintf(&b, "\nOnly reviews dated between %s and %s (inclusive) are needed.\n", w.StartString(), w.EndString())
	b.WriteString("\nHTML Content:\n")
	b.WriteString(content)
	b.WriteString("\n\nReturn the reviews as a JSON array.")
	return b.String()
}
