// Package output writes job results as JSON or XLSX documents.
package output

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/review-cli/internal/model"
	"github.com/sells-group/review-cli/internal/resilience"
)

// Error statuses recorded in a Document's error block.
const (
	StatusBlocked = "BLOCKED"
	StatusConfig  = "CONFIG"
	StatusUnknown = "UNKNOWN"
)

const blockedReason = "Cloudflare / DataDome protection"

// Metadata describes the job that produced a Document.
type Metadata struct {
	Company      string    `json:"company"`
	Source       string    `json:"source"`
	StartDate    string    `json:"start_date,omitempty"`
	EndDate      string    `json:"end_date,omitempty"`
	ScrapedAt    time.Time `json:"scraped_at"`
	RunID        string    `json:"run_id,omitempty"`
	PagesFetched int       `json:"pages_fetched"`
	StopReason   string    `json:"stop_reason,omitempty"`
}

// ErrorInfo is filled when the job ended with a fatal error.
type ErrorInfo struct {
	Message   string    `json:"message"`
	Source    string    `json:"source"`
	Company   string    `json:"company"`
	Status    string    `json:"status"`
	Reason    string    `json:"reason"`
	Timestamp time.Time `json:"timestamp"`
}

// Document is the file written for one job. Reviews is never null so
// consumers always see an array.
type Document struct {
	Metadata Metadata       `json:"metadata"`
	Error    *ErrorInfo     `json:"error"`
	Reviews  []model.Review `json:"reviews"`
}

// NewDocument assembles the result document for job. A nil err leaves the
// error block empty.
func NewDocument(job model.Job, runID string, pages int, stopReason string, reviews []model.Review, err error, now time.Time) Document {
	if reviews == nil {
		reviews = []model.Review{}
	}
	doc := Document{
		Metadata: Metadata{
			Company:      job.Company,
			Source:       job.Source.Slug(),
			StartDate:    job.StartDate,
			EndDate:      job.EndDate,
			ScrapedAt:    now.UTC(),
			RunID:        runID,
			PagesFetched: pages,
			StopReason:   stopReason,
		},
		Reviews: reviews,
	}
	if err != nil {
		doc.Error = NewErrorInfo(job, err, now)
	}
	return doc
}

// NewErrorInfo classifies err into the document's error block.
func NewErrorInfo(job model.Job, err error, now time.Time) *ErrorInfo {
	info := &ErrorInfo{
		Message:   err.Error(),
		Source:    job.Source.Slug(),
		Company:   job.Company,
		Status:    StatusUnknown,
		Reason:    err.Error(),
		Timestamp: now.UTC(),
	}
	switch {
	case errors.Is(err, resilience.ErrBlocked):
		info.Status = StatusBlocked
		info.Reason = blockedReason
	case errors.Is(err, resilience.ErrConfiguration):
		info.Status = StatusConfig
	}
	return info
}

// BaseName returns "<company>_<source>_reviews" for a document.
func BaseName(doc Document) string {
	return doc.Metadata.Company + "_" + doc.Metadata.Source + "_reviews"
}

// WriteJSON writes doc to <dir>/<company>_<source>_reviews.json and returns
// the path.
func WriteJSON(dir string, doc Document) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", eris.Wrapf(err, "output: create dir %s", dir)
	}
	if doc.Reviews == nil {
		doc.Reviews = []model.Review{}
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", eris.Wrap(err, "output: marshal document")
	}

	path := filepath.Join(dir, BaseName(doc)+".json")
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return "", eris.Wrapf(err, "output: write %s", path)
	}
	return path, nil
}

// Write dispatches on format ("json" or "xlsx").
func Write(dir, format string, doc Document) (string, error) {
	switch format {
	case "", "json":
		return WriteJSON(dir, doc)
	case "xlsx":
		return WriteXLSX(dir, doc)
	default:
		return "", eris.Errorf("output: unknown format %q", format)
	}
}

// MostRecent returns up to n reviews sorted by date, newest first. Reviews
// without a date sort last. n <= 0 returns them all.
func MostRecent(reviews []model.Review, n int) []model.Review {
	out := make([]model.Review, len(reviews))
	copy(out, reviews)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Date > out[j].Date
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}
