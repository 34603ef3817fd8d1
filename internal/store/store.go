// Package store persists run records and extracted reviews.
package store

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/review-cli/internal/config"
	"github.com/sells-group/review-cli/internal/model"
)

// ErrNotFound is returned when a run does not exist.
var ErrNotFound = eris.New("not found")

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	Status  model.RunStatus `json:"status,omitempty"`
	Company string          `json:"company,omitempty"`
	Source  model.Source    `json:"source,omitempty"`
	Limit   int             `json:"limit,omitempty"`
	Offset  int             `json:"offset,omitempty"`
}

// ReviewFilter specifies criteria for listing stored reviews.
type ReviewFilter struct {
	RunID   string       `json:"run_id,omitempty"`
	Company string       `json:"company,omitempty"`
	Source  model.Source `json:"source,omitempty"`
	Limit   int          `json:"limit,omitempty"`
}

// Store persists runs and reviews.
type Store interface {
	// Runs
	CreateRun(ctx context.Context, job model.Job) (*model.Run, error)
	FinishRun(ctx context.Context, runID string, outcome model.RunOutcome) error
	GetRun(ctx context.Context, runID string) (*model.Run, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error)

	// Reviews. SaveReviews skips reviews whose fingerprint is already stored
	// and returns how many were new.
	SaveReviews(ctx context.Context, runID, company string, reviews []model.Review) (int, error)
	ListReviews(ctx context.Context, filter ReviewFilter) ([]model.Review, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// Open returns the store selected by cfg, migrated and ready. Driver "none"
// yields a nil Store.
func Open(ctx context.Context, cfg config.StoreConfig) (Store, error) {
	var (
		s   Store
		err error
	)
	switch cfg.Driver {
	case "", "none":
		return nil, nil
	case "sqlite":
		dsn := cfg.DatabaseURL
		if dsn == "" {
			dsn = "reviews.db"
		}
		s, err = NewSQLite(dsn)
	case "postgres":
		s, err = NewPostgres(ctx, cfg.DatabaseURL, nil)
	default:
		return nil, eris.Errorf("store: unknown driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}
	if err := s.Migrate(ctx); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}

// finalStatus maps a run outcome to its terminal status.
func finalStatus(o model.RunOutcome) model.RunStatus {
	if o.Err != nil {
		return model.RunStatusFailed
	}
	return model.RunStatusComplete
}

func clampLimit(limit, def int) int {
	if limit <= 0 {
		return def
	}
	return limit
}

func methodOf(r model.Review) (method, modelName, pageURL string, page int) {
	if r.Provenance == nil {
		return "", "", "", 0
	}
	return string(r.Provenance.Method), r.Provenance.Model, r.Provenance.PageURL, r.Provenance.Page
}

func provenanceOf(method, modelName, pageURL string, page int) *model.Provenance {
	if method == "" {
		return nil
	}
	return &model.Provenance{
		Method:  model.ExtractionMethod(method),
		Model:   modelName,
		PageURL: pageURL,
		Page:    page,
	}
}
