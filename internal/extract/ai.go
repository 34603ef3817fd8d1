package extract

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/review-cli/internal/config"
	"github.com/sells-group/review-cli/internal/datefilter"
	"github.com/sells-group/review-cli/internal/metrics"
	"github.com/sells-group/review-cli/internal/model"
	"github.com/sells-group/review-cli/internal/resilience"
	"github.com/sells-group/review-cli/pkg/anthropic"
)

// AI extracts reviews by asking an Anthropic model to read the page. Rate
// limits and transient failures are retried with backoff; an unknown model
// moves on to the next candidate; exhaustion optionally degrades to the
// heuristic extractor.
type AI struct {
	client    anthropic.Client
	cfg       config.AIConfig
	apiKey    string
	heuristic HeuristicExtractor
	models    []string
	backoff   resilience.RetryConfig

	sleep func(ctx context.Context, d time.Duration) error
	now   func() time.Time
}

// NewAI creates an AI extractor. heuristic is used for degraded fallback and
// may be nil when cfg.FallbackToHeuristic is false.
func NewAI(client anthropic.Client, cfg config.AIConfig, apiKey string, heuristic HeuristicExtractor) *AI {
	if heuristic == nil {
		heuristic = NewHeuristic()
	}
	return &AI{
		client:    client,
		cfg:       cfg,
		apiKey:    apiKey,
		heuristic: heuristic,
		models:    CandidateModels(cfg.PreferredModel),
		backoff:   resilience.FromBackoffConfig(cfg.MaxRetries, cfg.BackoffBaseMs, cfg.BackoffMaxMs, cfg.JitterMs),
		sleep:     resilience.Sleep,
		now:       time.Now,
	}
}

// Extract implements AIExtractor.
func (a *AI) Extract(ctx context.Context, markup string, source model.Source, w datefilter.Window, pageURL string) ([]model.Review, error) {
	reviews, attempt, err := a.ExtractAttempt(ctx, markup, source, w, pageURL)
	if err != nil {
		zap.L().Warn("extract: ai extraction failed", append(attempt.Fields(), zap.Error(err))...)
		return nil, err
	}
	zap.L().Debug("extract: ai extraction done", append(attempt.Fields(), zap.Int("reviews", len(reviews)))...)
	return reviews, nil
}

// ExtractAttempt runs the extraction and also reports how it went.
func (a *AI) ExtractAttempt(ctx context.Context, markup string, source model.Source, w datefilter.Window, pageURL string) ([]model.Review, Attempt, error) {
	var attempt Attempt

	if a.apiKey == "" {
		return nil, attempt, eris.Wrap(resilience.ErrConfiguration,
			"extract: anthropic credential missing, set REVIEWS_ANTHROPIC_KEY or ANTHROPIC_API_KEY")
	}
	if len(a.models) == 0 {
		return nil, attempt, eris.Wrap(resilience.ErrAllModelsFailed, "extract: no usable model")
	}

	content := PrepareContent(markup, a.cfg.MaxContentBytes)
	req := anthropic.MessageRequest{
		System: anthropic.BuildCachedSystemBlocks(systemPrompt),
		Messages: []anthropic.Message{
			{Role: "user", Content: buildUserPrompt(source, pageURL, w, content)},
		},
	}

	maxRetries := a.cfg.MaxRetries
	if maxRetries < 1 {
		maxRetries = 1
	}

	attempt.Model = a.models[0]
	for {
		req.Model = attempt.Model
		req.MaxTokens = anthropic.CapMaxTokens(attempt.Model, a.cfg.MaxTokens)
		resp, err := a.client.CreateMessage(ctx, req)
		if err == nil {
			metrics.ObserveAICall(attempt.Model, "success")
			attempt.Method = model.MethodAI
			return a.finish(resp, attempt, source, w, pageURL), attempt, nil
		}

		class := resilience.Classify(err)
		attempt.LastClass = class
		metrics.ObserveAICall(attempt.Model, string(class))

		switch {
		case class.Retryable():
			attempt.Retries++
			metrics.ObserveAIRetry(string(class))
			if attempt.Retries >= maxRetries {
				return a.exhausted(content, attempt, source, w, pageURL, err)
			}

			wait, ok := resilience.RetryAfter(err, a.now())
			if !ok {
				wait = resilience.Backoff(attempt.Retries-1, a.backoff)
			}
			zap.L().Warn("extract: ai call failed, retrying",
				zap.String("model", attempt.Model),
				zap.String("class", string(class)),
				zap.Int("retry", attempt.Retries),
				zap.Int("max_retries", maxRetries),
				zap.Duration("wait", wait),
				zap.Error(err),
			)
			if serr := a.sleep(ctx, wait); serr != nil {
				return nil, attempt, eris.Wrap(serr, "extract: backoff interrupted")
			}

		case class == resilience.ClassModelNotFound:
			zap.L().Warn("extract: model not found, trying alternates",
				zap.String("model", attempt.Model),
				zap.Error(err),
			)
			return a.tryAlternates(ctx, req, attempt, source, w, pageURL)

		default:
			return nil, attempt, eris.Wrapf(err, "extract: ai call with %s", attempt.Model)
		}
	}
}

// tryAlternates calls each remaining candidate once; the first success wins.
func (a *AI) tryAlternates(ctx context.Context, req anthropic.MessageRequest, attempt Attempt, source model.Source, w datefilter.Window, pageURL string) ([]model.Review, Attempt, error) {
	failed := attempt.Model
	for _, alt := range a.models {
		if alt == failed {
			continue
		}
		if ctx.Err() != nil {
			return nil, attempt, eris.Wrap(ctx.Err(), "extract: alternate models")
		}

		attempt.Model = alt
		req.Model = alt
		req.MaxTokens = anthropic.CapMaxTokens(alt, a.cfg.MaxTokens)
		resp, err := a.client.CreateMessage(ctx, req)
		if err == nil {
			metrics.ObserveAICall(alt, "success")
			attempt.Method = model.MethodAI
			zap.L().Info("extract: switched model", zap.String("from", failed), zap.String("to", alt))
			return a.finish(resp, attempt, source, w, pageURL), attempt, nil
		}

		attempt.LastClass = resilience.Classify(err)
		metrics.ObserveAICall(alt, string(attempt.LastClass))
		zap.L().Debug("extract: alternate model failed", zap.String("model", alt), zap.Error(err))
	}
	return nil, attempt, eris.Wrap(resilience.ErrAllModelsFailed, "extract: every candidate model failed")
}

func (a *AI) exhausted(content string, attempt Attempt, source model.Source, w datefilter.Window, pageURL string, lastErr error) ([]model.Review, Attempt, error) {
	if !a.cfg.FallbackToHeuristic {
		return nil, attempt, eris.Wrapf(resilience.ErrRetriesExhausted,
			"extract: %d attempts with %s, last error: %v", attempt.Retries, attempt.Model, lastErr)
	}

	zap.L().Warn("extract: ai retries exhausted, falling back to heuristic",
		zap.String("model", attempt.Model),
		zap.Int("retries", attempt.Retries),
		zap.Error(lastErr),
	)
	metrics.ObserveAIFallback(source.Slug())

	attempt.Method = model.MethodHeuristicFallback
	reviews := a.heuristic.Extract(content, w)
	for i := range reviews {
		reviews[i].Source = source
		reviews[i].Provenance = &model.Provenance{Method: model.MethodHeuristicFallback, PageURL: pageURL}
	}
	return reviews, attempt, nil
}

func (a *AI) finish(resp *anthropic.MessageResponse, attempt Attempt, source model.Source, w datefilter.Window, pageURL string) []model.Review {
	if resp == nil {
		return nil
	}
	resp.Usage.LogCost(attempt.Model, "extract")

	reviews := postProcess(ParseResponse(resp.Text()), w)
	for i := range reviews {
		reviews[i].Source = source
		reviews[i].Provenance = &model.Provenance{Method: model.MethodAI, Model: attempt.Model, PageURL: pageURL}
	}
	return reviews
}
