package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/review-cli/internal/model"
	"github.com/sells-group/review-cli/internal/resilience"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id            TEXT PRIMARY KEY,
	company       TEXT NOT NULL,
	source        TEXT NOT NULL,
	start_date    TEXT NOT NULL DEFAULT '',
	end_date      TEXT NOT NULL DEFAULT '',
	status        TEXT NOT NULL DEFAULT 'running',
	pages_fetched INTEGER NOT NULL DEFAULT 0,
	review_count  INTEGER NOT NULL DEFAULT 0,
	stop_reason   TEXT NOT NULL DEFAULT '',
	error         TEXT NOT NULL DEFAULT '',
	error_type    TEXT NOT NULL DEFAULT '',
	created_at    DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at    DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS reviews (
	fingerprint TEXT PRIMARY KEY,
	run_id      TEXT NOT NULL REFERENCES runs(id),
	company     TEXT NOT NULL,
	source      TEXT NOT NULL,
	title       TEXT NOT NULL,
	review      TEXT NOT NULL,
	review_date TEXT NOT NULL,
	rating      REAL NOT NULL DEFAULT 0,
	reviewer    TEXT NOT NULL,
	method      TEXT NOT NULL DEFAULT '',
	model       TEXT NOT NULL DEFAULT '',
	page_url    TEXT NOT NULL DEFAULT '',
	page        INTEGER NOT NULL DEFAULT 0,
	created_at  DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
CREATE INDEX IF NOT EXISTS idx_runs_company ON runs(company);
CREATE INDEX IF NOT EXISTS idx_reviews_run_id ON reviews(run_id);
CREATE INDEX IF NOT EXISTS idx_reviews_company_source ON reviews(company, source);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateRun(ctx context.Context, job model.Job) (*model.Run, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, company, source, start_date, end_date, status, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		id, job.Company, string(job.Source), job.StartDate, job.EndDate, string(model.RunStatusRunning), now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert run")
	}

	return &model.Run{
		ID:        id,
		Company:   job.Company,
		Source:    job.Source,
		StartDate: job.StartDate,
		EndDate:   job.EndDate,
		Status:    model.RunStatusRunning,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (s *SQLiteStore) FinishRun(ctx context.Context, runID string, o model.RunOutcome) error {
	var errMsg, errType string
	if o.Err != nil {
		errMsg = o.Err.Error()
		errType = resilience.ClassifyError(o.Err)
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, pages_fetched = ?, review_count = ?, stop_reason = ?, error = ?, error_type = ?, updated_at = ? WHERE id = ?`,
		string(finalStatus(o)), o.PagesFetched, o.ReviewCount, o.StopReason, errMsg, errType, time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: finish run %s", runID)
	}
	return checkRowsAffected(res, "run", runID)
}

const sqliteRunColumns = `id, company, source, start_date, end_date, status, pages_fetched, review_count, stop_reason, error, error_type, created_at, updated_at`

func (s *SQLiteStore) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+sqliteRunColumns+` FROM runs WHERE id = ?`, runID)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "sqlite: get run %s", runID)
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get run")
	}
	return r, nil
}

func (s *SQLiteStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error) {
	query := `SELECT ` + sqliteRunColumns + ` FROM runs WHERE 1=1`
	var args []any

	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	if filter.Company != "" {
		query += ` AND company = ?`
		args = append(args, filter.Company)
	}
	if filter.Source != "" {
		query += ` AND source = ?`
		args = append(args, string(filter.Source))
	}
	query += ` ORDER BY created_at DESC LIMIT ?`
	args = append(args, clampLimit(filter.Limit, 100))

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close() //nolint:errcheck

	var runs []model.Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan run")
		}
		runs = append(runs, *r)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: list runs iterate")
}

func (s *SQLiteStore) SaveReviews(ctx context.Context, runID, company string, reviews []model.Review) (int, error) {
	if len(reviews) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin tx")
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx,
		`INSERT OR IGNORE INTO reviews (fingerprint, run_id, company, source, title, review, review_date, rating, reviewer, method, model, page_url, page, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: prepare insert review")
	}
	defer stmt.Close() //nolint:errcheck

	now := time.Now().UTC()
	inserted := 0
	for _, r := range reviews {
		method, modelName, pageURL, page := methodOf(r)
		res, err := stmt.ExecContext(ctx,
			r.Fingerprint(), runID, company, string(r.Source), r.Title, r.Review, r.Date, r.Rating, r.Reviewer,
			method, modelName, pageURL, page, now,
		)
		if err != nil {
			return 0, eris.Wrap(err, "sqlite: insert review")
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, eris.Wrap(err, "sqlite: rows affected")
		}
		inserted += int(n)
	}

	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: commit reviews")
	}
	return inserted, nil
}

func (s *SQLiteStore) ListReviews(ctx context.Context, filter ReviewFilter) ([]model.Review, error) {
	query := `SELECT source, title, review, review_date, rating, reviewer, method, model, page_url, page FROM reviews WHERE 1=1`
	var args []any

	if filter.RunID != "" {
		query += ` AND run_id = ?`
		args = append(args, filter.RunID)
	}
	if filter.Company != "" {
		query += ` AND company = ?`
		args = append(args, filter.Company)
	}
	if filter.Source != "" {
		query += ` AND source = ?`
		args = append(args, string(filter.Source))
	}
	query += ` ORDER BY review_date DESC, fingerprint LIMIT ?`
	args = append(args, clampLimit(filter.Limit, 1000))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list reviews")
	}
	defer rows.Close() //nolint:errcheck

	var out []model.Review
	for rows.Next() {
		r, err := scanReview(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan review")
		}
		out = append(out, r)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list reviews iterate")
}

// helpers

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Wrapf(ErrNotFound, "%s %s", entity, id)
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanRun(row scannable) (*model.Run, error) {
	var r model.Run
	var source, status string
	err := row.Scan(&r.ID, &r.Company, &source, &r.StartDate, &r.EndDate, &status,
		&r.PagesFetched, &r.ReviewCount, &r.StopReason, &r.Error, &r.ErrorType, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return nil, err
	}
	r.Source = model.Source(source)
	r.Status = model.RunStatus(status)
	return &r, nil
}

func scanReview(row scannable) (model.Review, error) {
	var (
		r                         model.Review
		source, method, modelName string
		pageURL                   string
		page                      int
	)
	if err := row.Scan(&source, &r.Title, &r.Review, &r.Date, &r.Rating, &r.Reviewer, &method, &modelName, &pageURL, &page); err != nil {
		return model.Review{}, err
	}
	r.Source = model.Source(source)
	r.Provenance = provenanceOf(method, modelName, pageURL, page)
	return r, nil
}
