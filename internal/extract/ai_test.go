package extract

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/review-cli/internal/config"
	"github.com/sells-group/review-cli/internal/datefilter"
	"github.com/sells-group/review-cli/internal/model"
	"github.com/sells-group/review-cli/internal/resilience"
	"github.com/sells-group/review-cli/pkg/anthropic"
	anthropicmocks "github.com/sells-group/review-cli/pkg/anthropic/mocks"
)

const preferredModel = "claude-haiku-4-5-20251001"

func testAIConfig() config.AIConfig {
	return config.AIConfig{
		PreferredModel:      preferredModel,
		MaxRetries:          3,
		BackoffBaseMs:       10,
		BackoffMaxMs:        100,
		JitterMs:            0,
		FallbackToHeuristic: true,
		MaxTokens:           1000,
		MaxContentBytes:     500000,
	}
}

// newTestAI returns an extractor whose sleeps are recorded instead of taken.
func newTestAI(client anthropic.Client, cfg config.AIConfig, key string) (*AI, *[]time.Duration) {
	ai := NewAI(client, cfg, key, NewHeuristic())
	var waits []time.Duration
	ai.sleep = func(_ context.Context, d time.Duration) error {
		waits = append(waits, d)
		return nil
	}
	return ai, &waits
}

func textResponse(text string) *anthropic.MessageResponse {
	return &anthropic.MessageResponse{
		Content: []anthropic.ContentBlock{{Type: "text", Text: text}},
		Usage:   anthropic.TokenUsage{InputTokens: 1000, OutputTokens: 200},
	}
}

func forModel(name string) any {
	return mock.MatchedBy(func(req anthropic.MessageRequest) bool { return req.Model == name })
}

func TestAI_Success(t *testing.T) {
	client := anthropicmocks.NewMockClient(t)
	client.On("CreateMessage", mock.Anything, mock.AnythingOfType("anthropic.MessageRequest")).
		Return(textResponse("```json\n"+`[
			{"title":"Great","review":"Loved it","date":"2024-02-10","rating":"4.5 out of 5","reviewer":"Ann"},
			{"title":"Old","review":"x","date":"2019-02-10","rating":5,"reviewer":"Bob"}
		]`+"\n```"), nil).Once()

	ai, waits := newTestAI(client, testAIConfig(), "sk-test")
	w, err := datefilter.ParseWindow("2024-01-01", "2024-12-31")
	require.NoError(t, err)

	got, attempt, err := ai.ExtractAttempt(context.Background(), "<div>page</div>", model.SourceG2, w, "https://example.com/p1")
	require.NoError(t, err)
	require.Len(t, got, 1)

	assert.Equal(t, 4.5, got[0].Rating)
	assert.Equal(t, model.SourceG2, got[0].Source)
	require.NotNil(t, got[0].Provenance)
	assert.Equal(t, model.MethodAI, got[0].Provenance.Method)
	assert.Equal(t, preferredModel, got[0].Provenance.Model)
	assert.Equal(t, "https://example.com/p1", got[0].Provenance.PageURL)

	assert.Equal(t, model.MethodAI, attempt.Method)
	assert.Zero(t, attempt.Retries)
	assert.Empty(t, *waits)
}

func TestAI_RequestShape(t *testing.T) {
	client := anthropicmocks.NewMockClient(t)
	client.On("CreateMessage", mock.Anything, mock.MatchedBy(func(req anthropic.MessageRequest) bool {
		return req.Model == preferredModel &&
			req.MaxTokens == 1000 &&
			len(req.System) == 1 && req.System[0].CacheControl != nil &&
			len(req.Messages) == 1 && req.Messages[0].Role == "user"
	})).Return(textResponse("[]"), nil).Once()

	ai, _ := newTestAI(client, testAIConfig(), "sk-test")
	got, err := ai.Extract(context.Background(), "<script>x</script><p>hi</p>", model.SourceCapterra, datefilter.DefaultWindow(), "")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestAI_MissingCredential(t *testing.T) {
	client := anthropicmocks.NewMockClient(t)

	ai, _ := newTestAI(client, testAIConfig(), "")
	_, err := ai.Extract(context.Background(), "<p>x</p>", model.SourceG2, datefilter.DefaultWindow(), "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, resilience.ErrConfiguration))
	assert.Contains(t, err.Error(), "ANTHROPIC_API_KEY")
	client.AssertNotCalled(t, "CreateMessage", mock.Anything, mock.Anything)
}

func TestAI_RateLimitedThenSuccess(t *testing.T) {
	client := anthropicmocks.NewMockClient(t)
	client.On("CreateMessage", mock.Anything, mock.Anything).
		Return(nil, &anthropic.APIError{StatusCode: 429, RetryAfter: "7"}).Once()
	client.On("CreateMessage", mock.Anything, mock.Anything).
		Return(nil, &anthropic.APIError{StatusCode: 503}).Once()
	client.On("CreateMessage", mock.Anything, mock.Anything).
		Return(textResponse(`[{"title":"ok","review":"ok","date":"2024-01-05","rating":4,"reviewer":"r"}]`), nil).Once()

	cfg := testAIConfig()
	cfg.MaxRetries = 5
	ai, waits := newTestAI(client, cfg, "sk-test")

	got, attempt, err := ai.ExtractAttempt(context.Background(), "<p>x</p>", model.SourceG2, datefilter.DefaultWindow(), "")
	require.NoError(t, err)
	assert.Len(t, got, 1)
	assert.Equal(t, 2, attempt.Retries)
	assert.Equal(t, resilience.ClassTransient, attempt.LastClass)

	require.Len(t, *waits, 2)
	assert.Equal(t, 7*time.Second, (*waits)[0])
	assert.Equal(t, 20*time.Millisecond, (*waits)[1])
}

func TestAI_RetriesExhaustedFallsBack(t *testing.T) {
	client := anthropicmocks.NewMockClient(t)
	client.On("CreateMessage", mock.Anything, mock.Anything).
		Return(nil, errors.New("rate limit exceeded")).Times(3)

	markup := `<div class="review"><h3>From markup</h3><time datetime="2024-04-01"></time><p>Body</p></div>`
	ai, waits := newTestAI(client, testAIConfig(), "sk-test")

	got, attempt, err := ai.ExtractAttempt(context.Background(), markup, model.SourceTrustRadius, datefilter.DefaultWindow(), "https://example.com")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "From markup", got[0].Title)
	assert.Equal(t, model.SourceTrustRadius, got[0].Source)
	assert.Equal(t, model.MethodHeuristicFallback, got[0].Provenance.Method)

	assert.Equal(t, 3, attempt.Retries)
	assert.Equal(t, model.MethodHeuristicFallback, attempt.Method)
	assert.Len(t, *waits, 2)
	client.AssertNumberOfCalls(t, "CreateMessage", 3)
}

func TestAI_RetriesExhaustedWithoutFallback(t *testing.T) {
	client := anthropicmocks.NewMockClient(t)
	client.On("CreateMessage", mock.Anything, mock.Anything).
		Return(nil, errors.New("fetch failed")).Times(2)

	cfg := testAIConfig()
	cfg.MaxRetries = 2
	cfg.FallbackToHeuristic = false
	ai, _ := newTestAI(client, cfg, "sk-test")

	_, err := ai.Extract(context.Background(), "<p>x</p>", model.SourceG2, datefilter.DefaultWindow(), "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, resilience.ErrRetriesExhausted))
	client.AssertNumberOfCalls(t, "CreateMessage", 2)
}

func TestAI_ModelNotFoundTriesAlternates(t *testing.T) {
	candidates := CandidateModels(preferredModel)
	require.GreaterOrEqual(t, len(candidates), 3)

	client := anthropicmocks.NewMockClient(t)
	client.On("CreateMessage", mock.Anything, forModel(candidates[0])).
		Return(nil, &anthropic.APIError{StatusCode: 404}).Once()
	client.On("CreateMessage", mock.Anything, forModel(candidates[1])).
		Return(nil, errors.New("model: not_found_error")).Once()
	client.On("CreateMessage", mock.Anything, forModel(candidates[2])).
		Return(textResponse(`[{"title":"t","review":"r","date":"2024-01-01","rating":3,"reviewer":"v"}]`), nil).Once()

	ai, waits := newTestAI(client, testAIConfig(), "sk-test")
	got, attempt, err := ai.ExtractAttempt(context.Background(), "<p>x</p>", model.SourceG2, datefilter.DefaultWindow(), "")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, candidates[2], got[0].Provenance.Model)
	assert.Equal(t, candidates[2], attempt.Model)
	assert.Zero(t, attempt.Retries)
	assert.Empty(t, *waits)
}

func TestAI_AllModelsFailed(t *testing.T) {
	candidates := CandidateModels(preferredModel)

	client := anthropicmocks.NewMockClient(t)
	client.On("CreateMessage", mock.Anything, mock.Anything).
		Return(nil, &anthropic.APIError{StatusCode: 404}).Times(len(candidates))

	ai, _ := newTestAI(client, testAIConfig(), "sk-test")
	_, err := ai.Extract(context.Background(), "<p>x</p>", model.SourceG2, datefilter.DefaultWindow(), "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, resilience.ErrAllModelsFailed))
	client.AssertNumberOfCalls(t, "CreateMessage", len(candidates))
}

func TestAI_FatalReturnsImmediately(t *testing.T) {
	client := anthropicmocks.NewMockClient(t)
	client.On("CreateMessage", mock.Anything, mock.Anything).
		Return(nil, &anthropic.APIError{StatusCode: 400, Err: errors.New("invalid request")}).Once()

	ai, waits := newTestAI(client, testAIConfig(), "sk-test")
	_, err := ai.Extract(context.Background(), "<p>x</p>", model.SourceG2, datefilter.DefaultWindow(), "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid request")
	assert.False(t, errors.Is(err, resilience.ErrRetriesExhausted))
	assert.Empty(t, *waits)
}

func TestAI_CancelledDuringBackoff(t *testing.T) {
	client := anthropicmocks.NewMockClient(t)
	client.On("CreateMessage", mock.Anything, mock.Anything).
		Return(nil, &anthropic.APIError{StatusCode: 529}).Once()

	ai := NewAI(client, testAIConfig(), "sk-test", nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := ai.Extract(ctx, "<p>x</p>", model.SourceG2, datefilter.DefaultWindow(), "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestAI_InvalidRequestNamingModelIsFatal(t *testing.T) {
	cfg := testAIConfig()
	cfg.PreferredModel = "claude-3-7-sonnet-20250219"

	client := anthropicmocks.NewMockClient(t)
	client.On("CreateMessage", mock.Anything, mock.Anything).
		Return(nil, &anthropic.APIError{
			StatusCode: 400,
			Err:        errors.New("invalid_request_error: max_tokens: 90000 > 64000, which is the maximum allowed number of output tokens for claude-3-7-sonnet-20250219"),
		}).Once()

	ai, waits := newTestAI(client, cfg, "sk-test")
	_, attempt, err := ai.ExtractAttempt(context.Background(), "<p>x</p>", model.SourceG2, datefilter.DefaultWindow(), "")
	require.Error(t, err)
	assert.Equal(t, resilience.ClassFatal, attempt.LastClass)
	assert.Zero(t, attempt.Retries)
	assert.Empty(t, *waits)
	client.AssertNumberOfCalls(t, "CreateMessage", 1)
}

func TestAI_AlternateModelGetsCappedMaxTokens(t *testing.T) {
	cfg := testAIConfig()
	cfg.PreferredModel = "claude-sonnet-4-5-20250929"
	cfg.MaxTokens = 16000

	client := anthropicmocks.NewMockClient(t)
	client.On("CreateMessage", mock.Anything, mock.MatchedBy(func(req anthropic.MessageRequest) bool {
		return req.Model != "claude-3-5-haiku-20241022"
	})).Return(nil, &anthropic.APIError{StatusCode: 404})
	client.On("CreateMessage", mock.Anything, mock.MatchedBy(func(req anthropic.MessageRequest) bool {
		return req.Model == "claude-3-5-haiku-20241022" && req.MaxTokens == 8192
	})).Return(textResponse(`[]`), nil).Once()

	ai, _ := newTestAI(client, cfg, "sk-test")
	_, attempt, err := ai.ExtractAttempt(context.Background(), "<p>x</p>", model.SourceG2, datefilter.DefaultWindow(), "")
	require.NoError(t, err)
	assert.Equal(t, "claude-3-5-haiku-20241022", attempt.Model)
	assert.Equal(t, model.MethodAI, attempt.Method)
}
