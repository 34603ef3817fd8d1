// Package paginate walks a company's review listing page by page until the
// reviews run out, the page cap is hit or the site blocks the scraper.
package paginate

import (
	"context"
	"math/rand/v2"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/review-cli/internal/config"
	"github.com/sells-group/review-cli/internal/datefilter"
	"github.com/sells-group/review-cli/internal/fetch"
	"github.com/sells-group/review-cli/internal/metrics"
	"github.com/sells-group/review-cli/internal/model"
	"github.com/sells-group/review-cli/internal/resilience"
	"github.com/sells-group/review-cli/internal/sites"
)

// StopReason explains why a job ended.
type StopReason string

const (
	StopEmptyPages StopReason = "empty_pages"
	StopMaxPages   StopReason = "max_pages"
	StopFatal      StopReason = "fatal"
	StopCancelled  StopReason = "cancelled"
)

// Extractor turns one page of markup into reviews.
type Extractor interface {
	Run(ctx context.Context, markup string, source model.Source, w datefilter.Window, pageURL string) ([]model.Review, error)
}

// URLBuilder renders the URL of a listing page.
type URLBuilder interface {
	PageURL(source model.Source, slug string, page int) (string, error)
}

// Job is one company on one site within a date window.
type Job struct {
	Company string
	Source  model.Source
	Window  datefilter.Window
}

// NewJob validates a job description and parses its window.
func NewJob(j model.Job) (Job, error) {
	if j.Company == "" {
		return Job{}, eris.New("paginate: company is required")
	}
	source, err := model.ParseSource(string(j.Source))
	if err != nil {
		return Job{}, eris.Wrap(err, "paginate: job source")
	}
	w, err := datefilter.ParseWindow(j.StartDate, j.EndDate)
	if err != nil {
		return Job{}, eris.Wrap(err, "paginate: job window")
	}
	return Job{Company: j.Company, Source: source, Window: w}, nil
}

// Result is what a job collected.
type Result struct {
	Reviews      []model.Review
	PagesFetched int
	StopReason   StopReason
}

// Options bounds the page loop.
type Options struct {
	MaxPages      int
	MaxEmptyPages int
	MinDelay      time.Duration
	MaxDelay      time.Duration
}

// OptionsFromConfig converts pagination settings, applying defaults.
func OptionsFromConfig(c config.PaginationConfig) Options {
	o := Options{
		MaxPages:      c.MaxPages,
		MaxEmptyPages: c.MaxEmptyPages,
		MinDelay:      time.Duration(c.MinDelayMs) * time.Millisecond,
		MaxDelay:      time.Duration(c.MaxDelayMs) * time.Millisecond,
	}
	if o.MaxPages <= 0 {
		o.MaxPages = 10
	}
	if o.MaxEmptyPages <= 0 {
		o.MaxEmptyPages = 2
	}
	if o.MinDelay <= 0 && o.MaxDelay <= 0 {
		o.MinDelay, o.MaxDelay = 2*time.Second, 4*time.Second
	}
	if o.MaxDelay < o.MinDelay {
		o.MaxDelay = o.MinDelay
	}
	return o
}

// Controller runs jobs one page at a time. A Controller holds no per-job
// state and may run several jobs concurrently.
type Controller struct {
	urls      URLBuilder
	fetcher   fetch.Fetcher
	extractor Extractor
	opts      Options

	// Sleep waits between pages; tests replace it.
	Sleep func(ctx context.Context, d time.Duration) error
}

// NewController creates a Controller.
func NewController(urls URLBuilder, fetcher fetch.Fetcher, extractor Extractor, opts Options) *Controller {
	if urls == nil {
		urls = sites.NewBuilder()
	}
	return &Controller{
		urls:      urls,
		fetcher:   fetcher,
		extractor: extractor,
		opts:      opts,
		Sleep:     resilience.Sleep,
	}
}

// Run executes job. On a fatal error the partial result is returned along
// with the error.
func (c *Controller) Run(ctx context.Context, job Job) (*Result, error) {
	slug := sites.NormalizeSlug(job.Company)
	res := &Result{}
	log := zap.L().With(zap.String("company", job.Company), zap.String("source", string(job.Source)))

	emptyStreak := 0
	for page := 1; ; page++ {
		if page > c.opts.MaxPages {
			res.StopReason = StopMaxPages
			break
		}
		if err := ctx.Err(); err != nil {
			res.StopReason = StopCancelled
			return res, eris.Wrap(err, "paginate: cancelled")
		}

		pageURL, err := c.urls.PageURL(job.Source, slug, page)
		if err != nil {
			res.StopReason = StopFatal
			return res, eris.Wrap(err, "paginate: build page url")
		}

		reviews, err := c.scrapePage(ctx, job, pageURL)
		res.PagesFetched++

		if err != nil {
			if resilience.IsJobFatal(err) || ctx.Err() != nil {
				metrics.ObservePage(job.Source.Slug(), "fatal")
				res.StopReason = StopFatal
				if ctx.Err() != nil {
					res.StopReason = StopCancelled
				}
				log.Error("paginate: stopping job", zap.Int("page", page), zap.Error(err))
				return res, eris.Wrapf(err, "paginate: page %d", page)
			}
			metrics.ObservePage(job.Source.Slug(), "error")
			log.Warn("paginate: page failed, counting as empty", zap.Int("page", page), zap.Error(err))
			reviews = nil
		}

		if len(reviews) == 0 {
			emptyStreak++
			if err == nil {
				metrics.ObservePage(job.Source.Slug(), "empty")
			}
			log.Info("paginate: no reviews on page",
				zap.Int("page", page),
				zap.Int("empty_streak", emptyStreak),
				zap.Int("max_empty", c.opts.MaxEmptyPages),
			)
			if emptyStreak >= c.opts.MaxEmptyPages {
				res.StopReason = StopEmptyPages
				break
			}
			continue
		}

		emptyStreak = 0
		for i := range reviews {
			if reviews[i].Provenance != nil {
				reviews[i].Provenance.Page = page
			}
		}
		res.Reviews = append(res.Reviews, reviews...)
		metrics.ObservePage(job.Source.Slug(), "reviews")
		log.Info("paginate: page done",
			zap.Int("page", page),
			zap.Int("reviews", len(reviews)),
			zap.Int("total", len(res.Reviews)),
		)

		if page < c.opts.MaxPages {
			if err := c.Sleep(ctx, c.delay()); err != nil {
				res.StopReason = StopCancelled
				return res, eris.Wrap(err, "paginate: inter-page delay")
			}
		}
	}

	log.Info("paginate: job finished",
		zap.String("stop_reason", string(res.StopReason)),
		zap.Int("pages", res.PagesFetched),
		zap.Int("reviews", len(res.Reviews)),
	)
	return res, nil
}

func (c *Controller) scrapePage(ctx context.Context, job Job, pageURL string) ([]model.Review, error) {
	markup, err := c.fetcher.Fetch(ctx, pageURL)
	if err != nil {
		return nil, eris.Wrapf(err, "paginate: fetch %s", pageURL)
	}
	return c.extractor.Run(ctx, markup, job.Source, job.Window, pageURL)
}

// delay returns a uniform random wait in [MinDelay, MaxDelay].
func (c *Controller) delay() time.Duration {
	span := c.opts.MaxDelay - c.opts.MinDelay
	if span <= 0 {
		return c.opts.MinDelay
	}
	return c.opts.MinDelay + time.Duration(rand.Int64N(int64(span)+1))
}
