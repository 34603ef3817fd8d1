// Package extract turns review-site markup into structured reviews: a
// selector-based heuristic pass first, then an Anthropic model when the
// heuristic finds nothing.
package extract

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/sells-group/review-cli/internal/datefilter"
	"github.com/sells-group/review-cli/internal/metrics"
	"github.com/sells-group/review-cli/internal/model"
)

const tracerName = "github.com/sells-group/review-cli/internal/extract"

// HeuristicExtractor extracts reviews without network access. It never fails.
type HeuristicExtractor interface {
	Extract(markup string, w datefilter.Window) []model.Review
}

// AIExtractor extracts reviews with a language model.
type AIExtractor interface {
	Extract(ctx context.Context, markup string, source model.Source, w datefilter.Window, pageURL string) ([]model.Review, error)
}

// Pipeline combines the heuristic and AI extractors.
type Pipeline struct {
	heuristic HeuristicExtractor
	ai        AIExtractor
}

// NewPipeline creates a Pipeline. ai may be nil, in which case only the
// heuristic pass runs.
func NewPipeline(heuristic HeuristicExtractor, ai AIExtractor) *Pipeline {
	return &Pipeline{heuristic: heuristic, ai: ai}
}

// Run extracts the reviews on one page. The AI extractor is only consulted
// when the heuristic pass yields nothing.
func (p *Pipeline) Run(ctx context.Context, markup string, source model.Source, w datefilter.Window, pageURL string) ([]model.Review, error) {
	tracer := otel.Tracer(tracerName)

	_, hspan := tracer.Start(ctx, "extract.heuristic")
	hspan.SetAttributes(attribute.String("source", string(source)), attribute.String("page_url", pageURL))
	reviews := p.heuristic.Extract(markup, w)
	hspan.SetAttributes(attribute.Int("reviews", len(reviews)))
	hspan.End()

	if len(reviews) > 0 {
		zap.L().Debug("extract: heuristic hit", zap.String("source", string(source)), zap.Int("reviews", len(reviews)))
		out := finalize(reviews, source, w, pageURL, model.MethodHeuristic)
		metrics.ObserveReviews(source.Slug(), string(model.MethodHeuristic), len(out))
		return out, nil
	}
	if p.ai == nil {
		return nil, nil
	}

	actx, aspan := tracer.Start(ctx, "extract.ai")
	defer aspan.End()
	aspan.SetAttributes(attribute.String("source", string(source)), attribute.String("page_url", pageURL))

	reviews, err := p.ai.Extract(actx, markup, source, w, pageURL)
	if err != nil {
		aspan.RecordError(err)
		aspan.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	aspan.SetAttributes(attribute.Int("reviews", len(reviews)))

	out := finalize(reviews, source, w, pageURL, model.MethodAI)
	for _, method := range []model.ExtractionMethod{model.MethodAI, model.MethodHeuristicFallback} {
		metrics.ObserveReviews(source.Slug(), string(method), countMethod(out, method))
	}
	return out, nil
}

// finalize re-applies the window and stamps source and provenance. Existing
// provenance is kept; its page URL is filled in when missing.
func finalize(reviews []model.Review, source model.Source, w datefilter.Window, pageURL string, method model.ExtractionMethod) []model.Review {
	out := make([]model.Review, 0, len(reviews))
	for _, r := range reviews {
		if !w.Contains(r.Date) {
			continue
		}
		r.Source = source
		if r.Provenance == nil {
			r.Provenance = &model.Provenance{Method: method}
		}
		if r.Provenance.PageURL == "" {
			r.Provenance.PageURL = pageURL
		}
		out = append(out, r)
	}
	return out
}

func countMethod(reviews []model.Review, method model.ExtractionMethod) int {
	n := 0
	for _, r := range reviews {
		if r.Provenance != nil && r.Provenance.Method == method {
			n++
		}
	}
	return n
}
