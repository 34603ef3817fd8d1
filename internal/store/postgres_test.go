package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/review-cli/internal/model"
)

func newMockPostgres(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return &PostgresStore{pool: mock}, mock
}

var runCols = []string{
	"id", "company", "source", "start_date", "end_date", "status", "pages_fetched",
	"review_count", "stop_reason", "error", "error_type", "created_at", "updated_at",
}

func TestPostgres_Migrate(t *testing.T) {
	s, mock := newMockPostgres(t)
	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS runs`).
		WillReturnResult(pgxmock.NewResult("CREATE TABLE", 0))

	require.NoError(t, s.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_CreateRun(t *testing.T) {
	s, mock := newMockPostgres(t)
	mock.ExpectExec(`INSERT INTO runs`).
		WithArgs(pgxmock.AnyArg(), "notion", "G2", "2024-01-01", "2024-12-31", "running", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	run, err := s.CreateRun(context.Background(), testJob())
	require.NoError(t, err)
	assert.NotEmpty(t, run.ID)
	assert.Equal(t, model.RunStatusRunning, run.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_FinishRun(t *testing.T) {
	s, mock := newMockPostgres(t)
	mock.ExpectExec(`UPDATE runs SET status`).
		WithArgs("failed", 2, 0, "fatal", "boom", "permanent", pgxmock.AnyArg(), "r1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err := s.FinishRun(context.Background(), "r1", model.RunOutcome{
		PagesFetched: 2,
		StopReason:   "fatal",
		Err:          errors.New("boom"),
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_FinishRunNotFound(t *testing.T) {
	s, mock := newMockPostgres(t)
	mock.ExpectExec(`UPDATE runs SET status`).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := s.FinishRun(context.Background(), "missing", model.RunOutcome{})
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestPostgres_GetRun(t *testing.T) {
	s, mock := newMockPostgres(t)
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`SELECT .+ FROM runs WHERE id = \$1`).
		WithArgs("r1").
		WillReturnRows(pgxmock.NewRows(runCols).
			AddRow("r1", "notion", "G2", "2024-01-01", "2024-12-31", "complete", 4, 9, "empty_pages", "", "", now, now))

	run, err := s.GetRun(context.Background(), "r1")
	require.NoError(t, err)
	assert.Equal(t, model.SourceG2, run.Source)
	assert.Equal(t, model.RunStatusComplete, run.Status)
	assert.Equal(t, 4, run.PagesFetched)
	assert.Equal(t, 9, run.ReviewCount)
	assert.Equal(t, now, run.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_GetRunNotFound(t *testing.T) {
	s, mock := newMockPostgres(t)
	mock.ExpectQuery(`SELECT .+ FROM runs WHERE id = \$1`).
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	_, err := s.GetRun(context.Background(), "missing")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestPostgres_ListRunsFilters(t *testing.T) {
	s, mock := newMockPostgres(t)
	now := time.Now().UTC()
	mock.ExpectQuery(`FROM runs WHERE 1=1 AND status = \$1 AND company = \$2 ORDER BY created_at DESC LIMIT \$3 OFFSET \$4`).
		WithArgs("complete", "notion", 5, 10).
		WillReturnRows(pgxmock.NewRows(runCols).
			AddRow("r1", "notion", "G2", "", "", "complete", 1, 1, "", "", "", now, now))

	runs, err := s.ListRuns(context.Background(), RunFilter{
		Status:  model.RunStatusComplete,
		Company: "notion",
		Limit:   5,
		Offset:  10,
	})
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "r1", runs[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_SaveReviews(t *testing.T) {
	s, mock := newMockPostgres(t)
	reviews := append(testReviews(), testReviews()[0])

	mock.ExpectBegin()
	mock.ExpectExec(`CREATE TEMP TABLE "_tmp_upsert_reviews"`).
		WillReturnResult(pgxmock.NewResult("CREATE TABLE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"_tmp_upsert_reviews"}, reviewColumns).
		WillReturnResult(2)
	mock.ExpectExec(`ON CONFLICT \("fingerprint"\) DO NOTHING`).
		WillReturnResult(pgxmock.NewResult("INSERT", 2))
	mock.ExpectCommit()

	n, err := s.SaveReviews(context.Background(), "r1", "notion", reviews)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_SaveReviewsEmpty(t *testing.T) {
	s, mock := newMockPostgres(t)
	n, err := s.SaveReviews(context.Background(), "r1", "notion", nil)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_ListReviews(t *testing.T) {
	s, mock := newMockPostgres(t)
	mock.ExpectQuery(`FROM reviews WHERE 1=1 AND run_id = \$1 ORDER BY review_date DESC, fingerprint LIMIT \$2`).
		WithArgs("r1", 1000).
		WillReturnRows(pgxmock.NewRows([]string{"source", "title", "review", "review_date", "rating", "reviewer", "method", "model", "page_url", "page"}).
			AddRow("G2", "Great tool", "Use it daily", "2024-03-01", 4.5, "Ana", "ai", "claude-haiku-4-5", "https://x", 2))

	got, err := s.ListReviews(context.Background(), ReviewFilter{RunID: "r1"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Great tool", got[0].Title)
	require.NotNil(t, got[0].Provenance)
	assert.Equal(t, 2, got[0].Provenance.Page)
	assert.NoError(t, mock.ExpectationsWereMet())
}
