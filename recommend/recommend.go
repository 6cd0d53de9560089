// Package recommend asks the text-generation service for personalized
// suggestions and validates what comes back.
package recommend

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/cppla/mindease/llm"
	"github.com/cppla/mindease/models"
	"github.com/cppla/mindease/stats"
)

// MaxRecentEntries caps how many check-ins are sent along with the stats.
const MaxRecentEntries = 5

// Recommendation is one suggestion shown to the user. Priority ranges 1..10.
type Recommendation struct {
	Category    string `json:"category" jsonschema:"required"`
	Title       string `json:"title" jsonschema:"required"`
	Description string `json:"description" jsonschema:"required"`
	Priority    int    `json:"priority" jsonschema:"required,minimum=1,maximum=10"`
}

// Fallback is the single suggestion used whenever the service cannot help.
func Fallback() Recommendation {
	return Recommendation{
		Category:    "Self-Care",
		Title:       "Take a Moment",
		Description: "Take a brief pause to breathe and reset.",
		Priority:    5,
	}
}

// UpstreamServiceError describes why the service output was not used.
type UpstreamServiceError struct {
	Reason string
	Err    error
}

func (e *UpstreamServiceError) Error() string {
	return fmt.Sprintf("recommendation service %s: %v", e.Reason, e.Err)
}

func (e *UpstreamServiceError) Unwrap() error { return e.Err }

// Request carries the inputs of one recommendation round. Stats must have been
// computed from the same entry set that Recent samples.
type Request struct {
	Stats               stats.UserStats
	Recent              []models.MoodEntry
	ConversationSummary string
}

// Builder packages requests for the completer and parses its answers.
type Builder struct {
	completer llm.Completer
	logger    *zap.Logger
}

// NewBuilder returns a Builder. A nil logger disables logging.
func NewBuilder(completer llm.Completer, logger *zap.Logger) *Builder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Builder{completer: completer, logger: logger}
}

// Build returns validated recommendations, or exactly one Fallback when the
// call fails, is cancelled or yields unusable content. The second result
// reports whether the fallback was used.
func (b *Builder) Build(ctx context.Context, req Request) ([]Recommendation, bool) {
	recs, err := b.generate(ctx, req)
	if err != nil {
		b.logger.Warn("using fallback recommendation", zap.Error(err))
		return []Recommendation{Fallback()}, true
	}
	return recs, false
}

func (b *Builder) generate(ctx context.Context, req Request) ([]Recommendation, error) {
	userPrompt, err := buildUserPrompt(req)
	if err != nil {
		return nil, &UpstreamServiceError{Reason: "request encoding failed", Err: err}
	}

	text, err := b.completer.Complete(ctx, systemPrompt, userPrompt)
	if err != nil {
		return nil, &UpstreamServiceError{Reason: "call failed", Err: err}
	}

	recs, err := Parse(text)
	if err != nil {
		return nil, &UpstreamServiceError{Reason: "returned unusable content", Err: err}
	}
	return recs, nil
}

// LastN returns the newest n entries of a date-ascending slice.
func LastN(entries []models.MoodEntry, n int) []models.MoodEntry {
	if n <= 0 {
		return nil
	}
	if len(entries) <= n {
		return entries
	}
	return entries[len(entries)-n:]
}
