package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/review-cli/internal/model"
	"github.com/sells-group/review-cli/internal/resilience"
)

func newTestSQLite(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, s.Migrate(context.Background()))
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func testJob() model.Job {
	return model.Job{
		Company:   "notion",
		Source:    model.SourceG2,
		StartDate: "2024-01-01",
		EndDate:   "2024-12-31",
	}
}

func testReviews() []model.Review {
	return []model.Review{
		{
			Title: "Great tool", Review: "Use it daily", Date: "2024-03-01", Rating: 4.5,
			Reviewer: "Ana", Source: model.SourceG2,
			Provenance: &model.Provenance{Method: model.MethodAI, Model: "claude-haiku-4-5", PageURL: "https://www.g2.com/products/notion/reviews", Page: 1},
		},
		{
			Title: "Slow search", Review: "Search lags", Date: "2024-05-10", Rating: 3,
			Reviewer: "Bo", Source: model.SourceG2,
		},
	}
}

func TestSQLite_MigrateIdempotent(t *testing.T) {
	s := newTestSQLite(t)
	require.NoError(t, s.Migrate(context.Background()))
}

func TestSQLite_RunLifecycle(t *testing.T) {
	ctx := context.Background()
	s := newTestSQLite(t)

	run, err := s.CreateRun(ctx, testJob())
	require.NoError(t, err)
	assert.NotEmpty(t, run.ID)
	assert.Equal(t, model.RunStatusRunning, run.Status)

	require.NoError(t, s.FinishRun(ctx, run.ID, model.RunOutcome{
		PagesFetched: 5,
		ReviewCount:  12,
		StopReason:   "empty_pages",
	}))

	got, err := s.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusComplete, got.Status)
	assert.Equal(t, "notion", got.Company)
	assert.Equal(t, model.SourceG2, got.Source)
	assert.Equal(t, "2024-01-01", got.StartDate)
	assert.Equal(t, 5, got.PagesFetched)
	assert.Equal(t, 12, got.ReviewCount)
	assert.Equal(t, "empty_pages", got.StopReason)
	assert.Empty(t, got.Error)
}

func TestSQLite_FinishRunFailed(t *testing.T) {
	ctx := context.Background()
	s := newTestSQLite(t)

	run, err := s.CreateRun(ctx, testJob())
	require.NoError(t, err)

	require.NoError(t, s.FinishRun(ctx, run.ID, model.RunOutcome{
		PagesFetched: 1,
		StopReason:   "fatal",
		Err:          eris.Wrap(resilience.ErrBlocked, "fetch: blocked: 403"),
	}))

	got, err := s.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusFailed, got.Status)
	assert.Contains(t, got.Error, "blocked")
	assert.Equal(t, "permanent", got.ErrorType)
}

func TestSQLite_FinishRunNotFound(t *testing.T) {
	s := newTestSQLite(t)
	err := s.FinishRun(context.Background(), "missing", model.RunOutcome{})
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestSQLite_GetRunNotFound(t *testing.T) {
	s := newTestSQLite(t)
	_, err := s.GetRun(context.Background(), "missing")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestSQLite_ListRuns(t *testing.T) {
	ctx := context.Background()
	s := newTestSQLite(t)

	first, err := s.CreateRun(ctx, testJob())
	require.NoError(t, err)
	job := testJob()
	job.Source = model.SourceCapterra
	_, err = s.CreateRun(ctx, job)
	require.NoError(t, err)
	require.NoError(t, s.FinishRun(ctx, first.ID, model.RunOutcome{StopReason: "max_pages"}))

	all, err := s.ListRuns(ctx, RunFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	complete, err := s.ListRuns(ctx, RunFilter{Status: model.RunStatusComplete})
	require.NoError(t, err)
	require.Len(t, complete, 1)
	assert.Equal(t, first.ID, complete[0].ID)

	capterra, err := s.ListRuns(ctx, RunFilter{Source: model.SourceCapterra})
	require.NoError(t, err)
	require.Len(t, capterra, 1)
	assert.Equal(t, model.SourceCapterra, capterra[0].Source)

	limited, err := s.ListRuns(ctx, RunFilter{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	none, err := s.ListRuns(ctx, RunFilter{Company: "asana"})
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestSQLite_SaveReviewsDedup(t *testing.T) {
	ctx := context.Background()
	s := newTestSQLite(t)

	run, err := s.CreateRun(ctx, testJob())
	require.NoError(t, err)

	n, err := s.SaveReviews(ctx, run.ID, "notion", testReviews())
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = s.SaveReviews(ctx, run.ID, "notion", testReviews())
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	n, err = s.SaveReviews(ctx, run.ID, "notion", nil)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestSQLite_ListReviews(t *testing.T) {
	ctx := context.Background()
	s := newTestSQLite(t)

	run, err := s.CreateRun(ctx, testJob())
	require.NoError(t, err)
	_, err = s.SaveReviews(ctx, run.ID, "notion", testReviews())
	require.NoError(t, err)

	got, err := s.ListReviews(ctx, ReviewFilter{RunID: run.ID})
	require.NoError(t, err)
	require.Len(t, got, 2)

	// Newest review date first.
	assert.Equal(t, "Slow search", got[0].Title)
	assert.Nil(t, got[0].Provenance)
	assert.Equal(t, "Great tool", got[1].Title)
	assert.Equal(t, 4.5, got[1].Rating)
	require.NotNil(t, got[1].Provenance)
	assert.Equal(t, model.MethodAI, got[1].Provenance.Method)
	assert.Equal(t, "claude-haiku-4-5", got[1].Provenance.Model)
	assert.Equal(t, 1, got[1].Provenance.Page)

	other, err := s.ListReviews(ctx, ReviewFilter{Company: "notion", Source: model.SourceTrustRadius})
	require.NoError(t, err)
	assert.Empty(t, other)

	limited, err := s.ListReviews(ctx, ReviewFilter{Company: "notion", Limit: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}
