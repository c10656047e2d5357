package llm

import (
	"context"
	"strings"
	"sync"
	"time"

	"google.golang.org/genai"

	"github.com/edacrema/ACTIVE-WARNINGS-Updater/internal/retry"
)

// minRequestInterval keeps a floor between consecutive API calls so a run
// with many stages does not trip provider rate limits.
const minRequestInterval = 200 * time.Millisecond

// GeminiClient implements Client on the Google GenAI SDK.
type GeminiClient struct {
	client  *genai.Client
	profile Profile
	policy  retry.Policy

	mu          sync.Mutex
	lastRequest time.Time
}

// NewGeminiClient creates a Gemini-backed gateway with the given capability
// profile.
func NewGeminiClient(ctx context.Context, apiKey string, profile Profile) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, &GenerationError{Model: profile.Model, Err: errNoAPIKey}
	}
	if profile.Model == "" {
		profile = DefaultProfile()
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey})
	if err != nil {
		return nil, &GenerationError{Model: profile.Model, Err: err}
	}

	return &GeminiClient{
		client:  client,
		profile: profile,
		policy:  retry.Default(),
	}, nil
}

var errNoAPIKey = errNoKey{}

type errNoKey struct{}

func (errNoKey) Error() string { return "API key not configured" }

// Complete sends a prompt and returns the completion.
func (c *GeminiClient) Complete(ctx context.Context, prompt string) (string, error) {
	return c.CompleteWithSystem(ctx, "", prompt)
}

// CompleteWithSystem sends a prompt with a system message. Transient
// provider failures are retried with bounded backoff before surfacing as a
// GenerationError.
func (c *GeminiClient) CompleteWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	c.throttle()

	cfg := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(c.profile.Temperature),
		MaxOutputTokens: c.profile.MaxOutputTokens,
	}
	if systemPrompt != "" {
		cfg.SystemInstruction = genai.NewContentFromText(systemPrompt, genai.RoleUser)
	}

	var text string
	err := c.policy.Do(ctx, func() error {
		resp, err := c.client.Models.GenerateContent(ctx, c.profile.Model, genai.Text(userPrompt), cfg)
		if err != nil {
			return err
		}
		text = strings.TrimSpace(resp.Text())
		if text == "" {
			return errEmptyCompletion{}
		}
		return nil
	})
	if err != nil {
		return "", &GenerationError{Model: c.profile.Model, Err: err}
	}
	return text, nil
}

type errEmptyCompletion struct{}

func (errEmptyCompletion) Error() string { return "no completion returned" }

// Model returns the configured model identifier.
func (c *GeminiClient) Model() string {
	return c.profile.Model
}

func (c *GeminiClient) throttle() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if elapsed := time.Since(c.lastRequest); elapsed < minRequestInterval {
		time.Sleep(minRequestInterval - elapsed)
	}
	c.lastRequest = time.Now()
}
