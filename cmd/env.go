package main

import (
	"context"

	"github.com/anthropics/anthropic-sdk-go/option"
	"go.uber.org/zap"

	"github.com/sells-group/review-cli/internal/extract"
	"github.com/sells-group/review-cli/internal/fetch"
	"github.com/sells-group/review-cli/internal/paginate"
	"github.com/sells-group/review-cli/internal/store"
	anthropicpkg "github.com/sells-group/review-cli/pkg/anthropic"
)

// jobEnv holds the fetcher stack, extraction pipeline, controller and
// optional run store shared by the scrape and batch commands.
type jobEnv struct {
	Store      store.Store // may be nil
	Pipeline   *extract.Pipeline
	Controller *paginate.Controller

	closeFetch func()
}

// Close releases the browser, Redis connection and store.
func (e *jobEnv) Close() {
	if e.closeFetch != nil {
		e.closeFetch()
	}
	if e.Store != nil {
		if err := e.Store.Close(); err != nil {
			zap.L().Debug("close store", zap.Error(err))
		}
	}
}

// newPipeline wires the heuristic extractor and the Claude fallback.
func newPipeline() *extract.Pipeline {
	var opts []option.RequestOption
	if cfg.Anthropic.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.Anthropic.BaseURL))
	}
	client := anthropicpkg.NewClient(cfg.Anthropic.Key, opts...)

	heuristic := extract.NewHeuristic()
	ai := extract.NewAI(client, cfg.AI, cfg.Anthropic.Key, heuristic)
	return extract.NewPipeline(heuristic, ai)
}

// initJobEnv validates cfg for mode and builds the job environment. Callers
// should defer env.Close().
func initJobEnv(ctx context.Context, mode string) (*jobEnv, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}

	st, err := store.Open(ctx, cfg.Store)
	if err != nil {
		return nil, err
	}

	fetcher, closeFetch := fetch.FromConfig(cfg.Fetch, cfg.Redis)
	pipeline := newPipeline()
	controller := paginate.NewController(nil, fetcher, pipeline, paginate.OptionsFromConfig(cfg.Pagination))

	zap.L().Debug("job environment ready",
		zap.String("fetcher", fetcher.Name()),
		zap.String("store", cfg.Store.Driver),
	)

	return &jobEnv{
		Store:      st,
		Pipeline:   pipeline,
		Controller: controller,
		closeFetch: closeFetch,
	}, nil
}
