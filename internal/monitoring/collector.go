// Package monitoring watches run history for failing, blocked or empty
// scrapes and posts alerts to a webhook.
package monitoring

import (
	"context"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/review-cli/internal/model"
	"github.com/sells-group/review-cli/internal/resilience"
	"github.com/sells-group/review-cli/internal/store"
)

// Snapshot holds a point-in-time view of scrape health over a lookback
// window.
type Snapshot struct {
	RunsTotal    int     `json:"runs_total"`
	RunsComplete int     `json:"runs_complete"`
	RunsFailed   int     `json:"runs_failed"`
	RunsRunning  int     `json:"runs_running"`
	FailRate     float64 `json:"fail_rate"`

	// BlockedRuns counts failed runs stopped by anti-bot protection.
	BlockedRuns int `json:"blocked_runs"`
	// EmptyRuns counts complete runs that produced no reviews.
	EmptyRuns    int     `json:"empty_runs"`
	EmptyRunRate float64 `json:"empty_run_rate"`

	Reviews int `json:"reviews"`
	Pages   int `json:"pages"`

	// BySource counts failed runs per review site.
	BySource map[model.Source]int `json:"failed_by_source,omitempty"`

	LookbackHours int       `json:"lookback_hours"`
	CollectedAt   time.Time `json:"collected_at"`
}

// RunLister is the slice of store.Store the collector reads.
type RunLister interface {
	ListRuns(ctx context.Context, filter store.RunFilter) ([]model.Run, error)
}

// Collector gathers snapshots from the run store.
type Collector struct {
	runs RunLister
	now  func() time.Time
}

// NewCollector creates a new collector.
func NewCollector(runs RunLister) *Collector {
	return &Collector{runs: runs, now: time.Now}
}

// Collect summarizes runs created within the last lookbackHours.
func (c *Collector) Collect(ctx context.Context, lookbackHours int) (*Snapshot, error) {
	now := c.now().UTC()
	snap := &Snapshot{
		LookbackHours: lookbackHours,
		CollectedAt:   now,
		BySource:      map[model.Source]int{},
	}
	cutoff := now.Add(-time.Duration(lookbackHours) * time.Hour)

	runs, err := c.runs.ListRuns(ctx, store.RunFilter{Limit: 10000})
	if err != nil {
		return nil, eris.Wrap(err, "monitoring: list runs")
	}

	for _, r := range runs {
		if r.CreatedAt.Before(cutoff) {
			continue
		}
		snap.RunsTotal++
		snap.Reviews += r.ReviewCount
		snap.Pages += r.PagesFetched

		switch r.Status {
		case model.RunStatusComplete:
			snap.RunsComplete++
			if r.ReviewCount == 0 {
				snap.EmptyRuns++
			}
		case model.RunStatusFailed:
			snap.RunsFailed++
			snap.BySource[r.Source]++
			if isBlocked(r) {
				snap.BlockedRuns++
			}
		case model.RunStatusRunning:
			snap.RunsRunning++
		}
	}

	if finished := snap.RunsComplete + snap.RunsFailed; finished > 0 {
		snap.FailRate = float64(snap.RunsFailed) / float64(finished)
	}
	if snap.RunsComplete > 0 {
		snap.EmptyRunRate = float64(snap.EmptyRuns) / float64(snap.RunsComplete)
	}
	return snap, nil
}

// isBlocked reports whether a failed run's stored error came from block
// detection. Only the message is persisted.
func isBlocked(r model.Run) bool {
	return strings.Contains(r.Error, resilience.ErrBlocked.Error())
}
