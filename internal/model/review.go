package model

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/rotisserie/eris"
)

// Source identifies the review site a record was extracted from.
type Source string

const (
	SourceG2          Source = "G2"
	SourceCapterra    Source = "Capterra"
	SourceTrustRadius Source = "TrustRadius"
)

// AllSources returns the supported review sites in display order.
func AllSources() []Source {
	return []Source{SourceG2, SourceCapterra, SourceTrustRadius}
}

// ParseSource maps a CLI or config name ("g2", "Capterra", "trustradius")
// to its canonical Source.
func ParseSource(name string) (Source, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "g2":
		return SourceG2, nil
	case "capterra":
		return SourceCapterra, nil
	case "trustradius", "trust_radius", "trust-radius":
		return SourceTrustRadius, nil
	default:
		return "", eris.Errorf("model: unsupported source %q", name)
	}
}

// Slug returns the lowercase name used on the command line and in file names.
func (s Source) Slug() string {
	return strings.ToLower(string(s))
}

// Placeholders used when a review lacks a field.
const (
	DefaultTitle    = "No title"
	DefaultBody     = "No review text"
	DefaultReviewer = "Anonymous"
)

// Review is a single structured product review.
type Review struct {
	Title      string      `json:"title"`
	Review     string      `json:"review"`
	Date       string      `json:"date"` // YYYY-MM-DD
	Rating     float64     `json:"rating"`
	Reviewer   string      `json:"reviewer"`
	Source     Source      `json:"source"`
	Provenance *Provenance `json:"provenance,omitempty"`
}

// Fingerprint returns a stable content hash used to make persisted inserts
// idempotent. Provenance is not part of the identity.
func (r Review) Fingerprint() string {
	h := sha256.New()
	for _, part := range []string{
		string(r.Source),
		strings.ToLower(strings.TrimSpace(r.Reviewer)),
		r.Date,
		strings.TrimSpace(r.Title),
		strings.TrimSpace(r.Review),
	} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))[:32]
}
