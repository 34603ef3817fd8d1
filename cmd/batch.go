package main

import (
	"context"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/review-cli/internal/model"
	"github.com/sells-group/review-cli/internal/output"
)

var (
	batchFile        string
	batchConcurrency int
)

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Scrape every job listed in a YAML file",
	Long: `Runs each job in the file independently and writes one result file per job.

The file holds a list of jobs:

  jobs:
    - company: zoom-workplace
      source: g2
      start_date: 2024-01-01
      end_date: 2024-06-30
    - company: notion
      source: capterra`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if batchConcurrency > 0 {
			cfg.Batch.Concurrency = batchConcurrency
		}

		jobs, err := loadJobs(batchFile)
		if err != nil {
			return err
		}

		env, err := initJobEnv(ctx, "batch")
		if err != nil {
			return err
		}
		defer env.Close()

		return processBatch(ctx, jobs, cfg.Batch.Concurrency, func(ctx context.Context, job model.Job) (output.Document, error) {
			doc, runErr := runJob(ctx, env.Controller, env.Store, job)
			path, err := output.Write(cfg.Output.Dir, cfg.Output.Format, doc)
			if err != nil {
				return doc, eris.Wrap(err, "batch: write output")
			}
			zap.L().Info("output saved", zap.String("path", path), zap.Int("reviews", len(doc.Reviews)))
			return doc, runErr
		})
	},
}

func init() {
	batchCmd.Flags().StringVar(&batchFile, "file", "", "YAML job file (required)")
	batchCmd.Flags().IntVar(&batchConcurrency, "concurrency", 0, "jobs to run at once (default from config)")
	_ = batchCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(batchCmd)
}

type jobFile struct {
	Jobs []model.Job `yaml:"jobs"`
}

// loadJobs reads a job file. Both a "jobs:" mapping and a bare list are
// accepted.
func loadJobs(path string) ([]model.Job, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "batch: read %s", path)
	}

	var f jobFile
	if err := yaml.Unmarshal(data, &f); err != nil || len(f.Jobs) == 0 {
		var list []model.Job
		if lerr := yaml.Unmarshal(data, &list); lerr != nil {
			if err != nil {
				return nil, eris.Wrapf(err, "batch: parse %s", path)
			}
			return nil, eris.Wrapf(lerr, "batch: parse %s", path)
		}
		f.Jobs = list
	}

	if len(f.Jobs) == 0 {
		return nil, eris.Errorf("batch: %s lists no jobs", path)
	}
	for i, j := range f.Jobs {
		if j.Company == "" || j.Source == "" {
			return nil, eris.Errorf("batch: job %d needs company and source", i+1)
		}
	}
	return f.Jobs, nil
}

// jobFunc runs one job and returns its document.
type jobFunc func(ctx context.Context, job model.Job) (output.Document, error)

// processBatch runs jobs concurrently. Individual failures do not stop the
// batch; the returned error reports how many failed.
func processBatch(ctx context.Context, jobs []model.Job, concurrency int, run jobFunc) error {
	if len(jobs) == 0 {
		zap.L().Info("no jobs to run")
		return nil
	}
	if concurrency < 1 {
		concurrency = 1
	}

	zap.L().Info("processing batch",
		zap.Int("jobs", len(jobs)),
		zap.Int("concurrency", concurrency),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	var succeeded, failed atomic.Int64

	for _, job := range jobs {
		g.Go(func() error {
			log := zap.L().With(zap.String("company", job.Company), zap.String("source", string(job.Source)))

			if err := gctx.Err(); err != nil {
				failed.Add(1)
				log.Warn("job skipped", zap.Error(err))
				return nil
			}

			doc, err := run(gctx, job)
			if err != nil {
				failed.Add(1)
				log.Error("job failed", zap.Int("partial_reviews", len(doc.Reviews)), zap.Error(err))
				return nil // don't abort batch on individual failure
			}

			succeeded.Add(1)
			log.Info("job complete",
				zap.Int("reviews", len(doc.Reviews)),
				zap.String("stop_reason", doc.Metadata.StopReason),
			)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return eris.Wrap(err, "batch processing")
	}

	zap.L().Info("batch complete",
		zap.Int64("succeeded", succeeded.Load()),
		zap.Int64("failed", failed.Load()),
	)
	if n := failed.Load(); n > 0 {
		return eris.Errorf("batch: %d of %d jobs failed", n, len(jobs))
	}
	return nil
}
