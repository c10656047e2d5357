package agents

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// mockLLM scripts generation responses and records every prompt it sees.
type mockLLM struct {
	CompleteFunc func(ctx context.Context, prompt string) (string, error)

	prompts []string
}

func (m *mockLLM) Complete(ctx context.Context, prompt string) (string, error) {
	m.prompts = append(m.prompts, prompt)
	if m.CompleteFunc != nil {
		return m.CompleteFunc(ctx, prompt)
	}
	return "", fmt.Errorf("no scripted response")
}

func (m *mockLLM) CompleteWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	return m.Complete(ctx, userPrompt)
}

// scriptedLLM returns the given responses in order, then errors.
func scriptedLLM(responses ...string) *mockLLM {
	queue := responses
	m := &mockLLM{}
	m.CompleteFunc = func(ctx context.Context, prompt string) (string, error) {
		if len(queue) == 0 {
			return "", fmt.Errorf("mock exhausted after %d calls", len(m.prompts))
		}
		next := queue[0]
		queue = queue[1:]
		return next, nil
	}
	return m
}

// failingLLM always returns the given error.
func failingLLM(err error) *mockLLM {
	return &mockLLM{
		CompleteFunc: func(ctx context.Context, prompt string) (string, error) {
			return "", err
		},
	}
}

func testLogger() *zap.Logger {
	return zap.NewNop()
}
