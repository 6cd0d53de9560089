// Package llm talks to the external text-generation service.
package llm

import (
	"context"
	"errors"
)

// Completer turns a system prompt and a user prompt into generated text.
// Implementations may fail, time out or return ill-formed text; callers own
// any defensive parsing.
type Completer interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

var (
	// ErrNotConfigured is returned by Disabled.
	ErrNotConfigured = errors.New("llm: text generation service not configured")
	// ErrEmptyCompletion means the service answered without any text.
	ErrEmptyCompletion = errors.New("llm: empty completion")
)

// Disabled is the Completer used when no API key is configured.
type Disabled struct{}

// Complete always fails with ErrNotConfigured.
func (Disabled) Complete(context.Context, string, string) (string, error) {
	return "", ErrNotConfigured
}

// CompleterFunc adapts a function to the Completer interface.
type CompleterFunc func(ctx context.Context, systemPrompt, userPrompt string) (string, error)

// Complete calls f.
func (f CompleterFunc) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	return f(ctx, systemPrompt, userPrompt)
}
