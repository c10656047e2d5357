// Package llm is the generation gateway: it maps a fully-rendered prompt to
// generated text. Stages depend only on the Client interface so tests can
// substitute a deterministic stub.
package llm

import (
	"context"
	"fmt"
)

// Client is the interface every stage uses to generate text.
type Client interface {
	Complete(ctx context.Context, prompt string) (string, error)
	CompleteWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// Profile is the capability profile for a generation call.
type Profile struct {
	Model           string
	Temperature     float32
	MaxOutputTokens int32
}

// DefaultProfile mirrors the pipeline defaults: deterministic output with
// room for long structured responses.
func DefaultProfile() Profile {
	return Profile{
		Model:           "gemini-2.5-pro",
		Temperature:     0,
		MaxOutputTokens: 8192,
	}
}

// GenerationError wraps a network, quota, or timeout failure from the
// provider. Callers never inspect provider-specific detail beyond this.
type GenerationError struct {
	Model string
	Err   error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generation failed (model %s): %v", e.Model, e.Err)
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}
