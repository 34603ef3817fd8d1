package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/review-cli/internal/db"
	"github.com/sells-group/review-cli/internal/model"
	"github.com/sells-group/review-cli/internal/resilience"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

const pgRunColumns = `id, company, source, start_date, end_date, status, pages_fetched, review_count, stop_reason, error, error_type, created_at, updated_at`

// pgStatements holds the fixed statements PostgresStore executes.
var pgStatements = map[string]string{
	"insert_run": `INSERT INTO runs (id, company, source, start_date, end_date, status, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
	"finish_run": `UPDATE runs SET status = $1, pages_fetched = $2, review_count = $3, stop_reason = $4, error = $5, error_type = $6, updated_at = $7 WHERE id = $8`,
	"get_run":    `SELECT ` + pgRunColumns + ` FROM runs WHERE id = $1`,
}

// reviewColumns is the COPY column order used by SaveReviews.
var reviewColumns = []string{
	"fingerprint", "run_id", "company", "source", "title", "review", "review_date",
	"rating", "reviewer", "method", "model", "page_url", "page", "created_at",
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(1)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id            TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
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
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS reviews (
	fingerprint TEXT PRIMARY KEY,
	run_id      TEXT NOT NULL REFERENCES runs(id),
	company     TEXT NOT NULL,
	source      TEXT NOT NULL,
	title       TEXT NOT NULL,
	review      TEXT NOT NULL,
	review_date TEXT NOT NULL,
	rating      DOUBLE PRECISION NOT NULL DEFAULT 0,
	reviewer    TEXT NOT NULL,
	method      TEXT NOT NULL DEFAULT '',
	model       TEXT NOT NULL DEFAULT '',
	page_url    TEXT NOT NULL DEFAULT '',
	page        INTEGER NOT NULL DEFAULT 0,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
CREATE INDEX IF NOT EXISTS idx_runs_company ON runs(company);
CREATE INDEX IF NOT EXISTS idx_reviews_run_id ON reviews(run_id);
CREATE INDEX IF NOT EXISTS idx_reviews_company_source ON reviews(company, source);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) CreateRun(ctx context.Context, job model.Job) (*model.Run, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.pool.Exec(ctx, pgStatements["insert_run"],
		id, job.Company, string(job.Source), job.StartDate, job.EndDate, string(model.RunStatusRunning), now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert run")
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

func (s *PostgresStore) FinishRun(ctx context.Context, runID string, o model.RunOutcome) error {
	var errMsg, errType string
	if o.Err != nil {
		errMsg = o.Err.Error()
		errType = resilience.ClassifyError(o.Err)
	}

	tag, err := s.pool.Exec(ctx, pgStatements["finish_run"],
		string(finalStatus(o)), o.PagesFetched, o.ReviewCount, o.StopReason, errMsg, errType, time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: finish run %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "postgres: run %s", runID)
	}
	return nil
}

func (s *PostgresStore) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	row := s.pool.QueryRow(ctx, pgStatements["get_run"], runID)
	r, err := scanRun(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "postgres: get run %s", runID)
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: get run")
	}
	return r, nil
}

func (s *PostgresStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error) {
	query := `SELECT ` + pgRunColumns + ` FROM runs WHERE 1=1`
	var args []any
	add := func(clause string, v any) {
		args = append(args, v)
		query += fmt.Sprintf(clause, len(args))
	}

	if filter.Status != "" {
		add(` AND status = $%d`, string(filter.Status))
	}
	if filter.Company != "" {
		add(` AND company = $%d`, filter.Company)
	}
	if filter.Source != "" {
		add(` AND source = $%d`, string(filter.Source))
	}
	query += ` ORDER BY created_at DESC`
	add(` LIMIT $%d`, clampLimit(filter.Limit, 100))
	if filter.Offset > 0 {
		add(` OFFSET $%d`, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
	}
	defer rows.Close()

	var runs []model.Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan run")
		}
		runs = append(runs, *r)
	}
	return runs, eris.Wrap(rows.Err(), "postgres: list runs iterate")
}

func (s *PostgresStore) SaveReviews(ctx context.Context, runID, company string, reviews []model.Review) (int, error) {
	if len(reviews) == 0 {
		return 0, nil
	}

	now := time.Now().UTC()
	seen := make(map[string]bool, len(reviews))
	rows := make([][]any, 0, len(reviews))
	for _, r := range reviews {
		fp := r.Fingerprint()
		// ON CONFLICT cannot touch the same key twice in one statement.
		if seen[fp] {
			continue
		}
		seen[fp] = true
		method, modelName, pageURL, page := methodOf(r)
		rows = append(rows, []any{
			fp, runID, company, string(r.Source), r.Title, r.Review, r.Date,
			r.Rating, r.Reviewer, method, modelName, pageURL, page, now,
		})
	}

	n, err := db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
		Table:           "reviews",
		Columns:         reviewColumns,
		ConflictKeys:    []string{"fingerprint"},
		IgnoreConflicts: true,
	}, rows)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: save reviews")
	}
	return int(n), nil
}

func (s *PostgresStore) ListReviews(ctx context.Context, filter ReviewFilter) ([]model.Review, error) {
	query := `SELECT source, title, review, review_date, rating, reviewer, method, model, page_url, page FROM reviews WHERE 1=1`
	var args []any
	add := func(clause string, v any) {
		args = append(args, v)
		query += fmt.Sprintf(clause, len(args))
	}

	if filter.RunID != "" {
		add(` AND run_id = $%d`, filter.RunID)
	}
	if filter.Company != "" {
		add(` AND company = $%d`, filter.Company)
	}
	if filter.Source != "" {
		add(` AND source = $%d`, string(filter.Source))
	}
	query += ` ORDER BY review_date DESC, fingerprint`
	add(` LIMIT $%d`, clampLimit(filter.Limit, 1000))

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list reviews")
	}
	defer rows.Close()

	var out []model.Review
	for rows.Next() {
		r, err := scanReview(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan review")
		}
		out = append(out, r)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list reviews iterate")
}
