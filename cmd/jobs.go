package main

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/review-cli/internal/model"
	"github.com/sells-group/review-cli/internal/output"
	"github.com/sells-group/review-cli/internal/paginate"
	"github.com/sells-group/review-cli/internal/store"
)

// jobRunner runs one pagination job.
type jobRunner interface {
	Run(ctx context.Context, job paginate.Job) (*paginate.Result, error)
}

// runJob validates and runs job, records it in st (when non-nil) and
// returns the result document. The document is always usable: on failure
// its error block is filled and any partial reviews are kept.
func runJob(ctx context.Context, runner jobRunner, st store.Store, job model.Job) (output.Document, error) {
	log := zap.L().With(zap.String("company", job.Company), zap.String("source", string(job.Source)))

	pj, err := paginate.NewJob(job)
	if err != nil {
		return output.NewDocument(job, "", 0, "", nil, err, time.Now()), err
	}
	job.Source = pj.Source

	var runID string
	if st != nil {
		run, err := st.CreateRun(ctx, job)
		if err != nil {
			log.Warn("could not record run", zap.Error(err))
		} else {
			runID = run.ID
		}
	}

	res, runErr := runner.Run(ctx, pj)
	if res == nil {
		res = &paginate.Result{}
	}

	if st != nil && runID != "" {
		// The job context may already be cancelled; the record should still land.
		recCtx := context.WithoutCancel(ctx)
		saved, err := st.SaveReviews(recCtx, runID, job.Company, res.Reviews)
		if err != nil {
			log.Warn("could not save reviews", zap.String("run_id", runID), zap.Error(err))
		}
		if err := st.FinishRun(recCtx, runID, model.RunOutcome{
			PagesFetched: res.PagesFetched,
			ReviewCount:  len(res.Reviews),
			StopReason:   string(res.StopReason),
			Err:          runErr,
		}); err != nil {
			log.Warn("could not finish run", zap.String("run_id", runID), zap.Error(err))
		}
		log.Debug("run recorded", zap.String("run_id", runID), zap.Int("new_reviews", saved))
	}

	doc := output.NewDocument(job, runID, res.PagesFetched, string(res.StopReason), res.Reviews, runErr, time.Now())
	return doc, runErr
}
