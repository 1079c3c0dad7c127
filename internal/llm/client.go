package llm

import (
	"context"
	"errors"
)

// Params are the generation parameters for a single call.
type Params struct {
	Temperature float32
	MaxTokens   int
}

// ErrEmptyCompletion is returned when the service answered without text.
// Callers treat it like any other service failure and substitute a
// fallback message.
var ErrEmptyCompletion = errors.New("empty completion from text-generation service")

// Generator is the narrow boundary to the external text-generation
// service: a flattened prompt in, plain text or an explicit failure out.
// Implementations own timeout and retry policy; callers never retry.
type Generator interface {
	Generate(ctx context.Context, prompt string, p Params) (string, error)
}
