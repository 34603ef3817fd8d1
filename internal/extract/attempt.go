package extract

import (
	"go.uber.org/zap"

	"github.com/sells-group/review-cli/internal/model"
	"github.com/sells-group/review-cli/internal/resilience"
)

// Attempt records how one AI extraction went. It lives for a single
// invocation.
type Attempt struct {
	Model     string
	Retries   int
	LastClass resilience.Class
	Method    model.ExtractionMethod
}

// Fields returns the attempt as zap fields.
func (a Attempt) Fields() []zap.Field {
	return []zap.Field{
		zap.String("model", a.Model),
		zap.Int("retries", a.Retries),
		zap.String("last_class", string(a.LastClass)),
		zap.String("method", string(a.Method)),
	}
}
