// Package sites builds review-page URLs for the supported review sites.
package sites

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/review-cli/internal/model"
)

// Default site roots.
const (
	G2Base          = "https://www.g2.com"
	CapterraBase    = "https://www.capterra.com"
	TrustRadiusBase = "https://www.trustradius.com"
)

var whitespaceRe = regexp.MustCompile(`\s+`)

// NormalizeSlug lowercases a company name and replaces whitespace runs with
// hyphens: "Acme  Corp" -> "acme-corp".
func NormalizeSlug(company string) string {
	return whitespaceRe.ReplaceAllString(strings.ToLower(strings.TrimSpace(company)), "-")
}

// Builder renders page URLs. Bases maps each source to its site root and can
// be overridden in tests.
type Builder struct {
	Bases map[model.Source]string
}

// NewBuilder returns a Builder pointing at the live sites.
func NewBuilder() *Builder {
	return &Builder{Bases: map[model.Source]string{
		model.SourceG2:          G2Base,
		model.SourceCapterra:    CapterraBase,
		model.SourceTrustRadius: TrustRadiusBase,
	}}
}

// PageURL returns the review listing URL for page (1-based) of slug on source.
func (b *Builder) PageURL(source model.Source, slug string, page int) (string, error) {
	if slug == "" {
		return "", eris.New("sites: empty company slug")
	}
	if page < 1 {
		return "", eris.Errorf("sites: invalid page %d", page)
	}
	base, ok := b.Bases[source]
	if !ok {
		return "", eris.Errorf("sites: unsupported source %q", source)
	}
	base = strings.TrimRight(base, "/")
	escaped := url.PathEscape(slug)

	var u string
	switch source {
	case model.SourceG2:
		u = fmt.Sprintf("%s/products/%s/reviews", base, escaped)
	case model.SourceCapterra:
		u = fmt.Sprintf("%s/p/%s/reviews/", base, escaped)
	case model.SourceTrustRadius:
		u = fmt.Sprintf("%s/products/%s/reviews/all", base, escaped)
	default:
		return "", eris.Errorf("sites: unsupported source %q", source)
	}

	if page > 1 {
		u = fmt.Sprintf("%s?page=%d", u, page)
	}
	return u, nil
}
