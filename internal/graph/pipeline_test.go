package graph

import (
	"context"
	"fmt"
	"testing"

	"go.uber.org/zap"

	"github.com/edacrema/ACTIVE-WARNINGS-Updater/internal/agents"
	"github.com/edacrema/ACTIVE-WARNINGS-Updater/internal/state"
)

// scriptedClient returns canned responses in order.
type scriptedClient struct {
	responses []string
	calls     int
}

func (c *scriptedClient) Complete(ctx context.Context, prompt string) (string, error) {
	if c.calls >= len(c.responses) {
		return "", fmt.Errorf("unexpected generation call %d", c.calls+1)
	}
	resp := c.responses[c.calls]
	c.calls++
	return resp, nil
}

func (c *scriptedClient) CompleteWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	return c.Complete(ctx, userPrompt)
}

// A retrieval period with no documents must still carry the run through to a
// finished report: empty events, skip warnings, no panic, no failure.
func TestZeroDocumentRunCompletes(t *testing.T) {
	log := zap.NewNop()
	client := &scriptedClient{responses: []string{
		"No notable developments were reported during the update period.",
		"The outlook remains unchanged in the absence of new reporting.",
		`{"flags": []}`,
	}}

	translator := &agents.Translator{LLM: client, Model: "test-model", Log: log}
	extractor := &agents.Extractor{LLM: client, Log: log}
	trend := &agents.TrendAnalyst{LLM: client, Log: log}
	synthesis := &agents.Synthesizer{LLM: client, Log: log}
	skeptic := &agents.Skeptic{LLM: client, Log: log}
	citations := &agents.CitationCompiler{Log: log}
	status := &agents.StatusRecommender{LLM: client, Log: log}

	nodes := []Node{
		{Name: "translator", Run: translator.Run},
		{Name: "extractor", Run: extractor.Run},
		{Name: "trend_analysis", Run: trend.Run},
		{Name: NodeSynthesis, Run: synthesis.Run},
		{Name: NodeSkeptic, Run: skeptic.Run},
		{Name: "citation_manager", Run: citations.Run},
		{Name: "status_recommender", Run: status.Run},
	}

	st := state.New(state.Inputs{
		Country:             "Chad",
		RiskCategories:      []state.RiskCategory{state.RiskEconomic},
		RiskTitle:           "Food insecurity",
		PreviousWarning:     "Prices rose sharply last period.",
		PreviousSeriousness: &state.SeriousnessScores{Likelihood: 3, Impact: 3},
		UpdatePeriodStart:   "2026-06-01",
		UpdatePeriodEnd:     "2026-08-01",
	})

	eng := New(log, Options{}, nodes)
	if err := eng.Run(context.Background(), st); err != nil {
		t.Fatalf("zero-document run must complete: %v", err)
	}

	if len(st.Events) != 0 {
		t.Fatalf("expected no events, got %d", len(st.Events))
	}
	if st.NarrativeParagraph1 == "" || st.NarrativeParagraph2 == "" {
		t.Fatal("narrative must still be drafted")
	}
	if len(st.Citations) != 0 {
		t.Fatalf("expected no citations, got %d", len(st.Citations))
	}
	if st.StatusRecommendation != nil {
		t.Fatal("missing events and trend must skip the recommendation")
	}

	wantWarnings := map[string]bool{
		"TrendAnalysis skipped: No events extracted.":                     false,
		"StatusRecommendation skipped: missing events or trend analysis.": false,
	}
	for _, w := range st.Warnings {
		if _, ok := wantWarnings[w]; ok {
			wantWarnings[w] = true
		}
	}
	for w, seen := range wantWarnings {
		if !seen {
			t.Errorf("missing warning %q in %v", w, st.Warnings)
		}
	}
	if client.calls != 3 {
		t.Fatalf("expected 3 generation calls (draft x2, skeptic), got %d", client.calls)
	}
}
