package model

import "time"

// RunStatus represents the current state of a scrape run.
type RunStatus string

const (
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusFailed   RunStatus = "failed"
)

// Job identifies one pagination job: a company on a single review site,
// filtered to a date range.
type Job struct {
	Company   string `json:"company" yaml:"company"`
	Source    Source `json:"source" yaml:"source"`
	StartDate string `json:"start_date,omitempty" yaml:"start_date"`
	EndDate   string `json:"end_date,omitempty" yaml:"end_date"`
}

// Run is the persisted record of a single job execution.
type Run struct {
	ID           string    `json:"id"`
	Company      string    `json:"company"`
	Source       Source    `json:"source"`
	StartDate    string    `json:"start_date,omitempty"`
	EndDate      string    `json:"end_date,omitempty"`
	Status       RunStatus `json:"status"`
	PagesFetched int       `json:"pages_fetched"`
	ReviewCount  int       `json:"review_count"`
	StopReason   string    `json:"stop_reason,omitempty"`
	Error        string    `json:"error,omitempty"`
	ErrorType    string    `json:"error_type,omitempty"` // "transient" or "permanent"
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// RunOutcome carries the final state written when a run finishes.
type RunOutcome struct {
	PagesFetched int
	ReviewCount  int
	StopReason   string
	Err          error
}
