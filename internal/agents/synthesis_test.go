package agents

import (
	"context"
	"strings"
	"testing"

	"github.com/edacrema/ACTIVE-WARNINGS-Updater/internal/state"
)

func draftState() *state.RunState {
	st := state.New(state.Inputs{
		Country:        "Sudan",
		RiskCategories: []state.RiskCategory{state.RiskConflict},
	})
	st.Events = []state.Event{{EventID: "evt_001", Statement: "Clashes in El Fasher"}}
	st.TrendAnalysis = &state.TrendAnalysis{Trajectory: state.TrajectoryIncreasing}
	return st
}

func TestSynthesizerDraftsTwoParagraphs(t *testing.T) {
	st := draftState()

	llm := scriptedLLM(
		"Fighting intensified [Source: evt_001].",
		"The situation is likely to deteriorate further.",
	)
	s := &Synthesizer{LLM: llm, Log: testLogger()}
	s.Run(context.Background(), st)

	if st.NarrativeParagraph1 != "Fighting intensified [Source: evt_001]." {
		t.Fatalf("unexpected p1: %q", st.NarrativeParagraph1)
	}
	if st.NarrativeParagraph2 != "The situation is likely to deteriorate further." {
		t.Fatalf("unexpected p2: %q", st.NarrativeParagraph2)
	}
	if len(llm.prompts) != 2 {
		t.Fatalf("draft mode must make two calls, got %d", len(llm.prompts))
	}
	if st.CorrectionAttempts != 1 {
		t.Fatalf("attempts = %d, want 1", st.CorrectionAttempts)
	}
}

func TestSynthesizerReviseCombinesCall(t *testing.T) {
	st := draftState()
	st.NarrativeParagraph1 = "Fighting intensified [Source: evt_001]."
	st.NarrativeParagraph2 = "This will definitely get worse."
	st.SkepticFlags = []state.SkepticFlag{{
		Claim:          "This will definitely get worse.",
		IssueType:      state.IssueHedging,
		Severity:       state.SeverityMedium,
		Recommendation: "Use hedged language.",
	}}
	st.CorrectionAttempts = 1

	llm := scriptedLLM(`{"paragraph_1": "Fighting intensified [Source: evt_001].",
		"paragraph_2": "The situation is likely to worsen."}`)
	s := &Synthesizer{LLM: llm, Log: testLogger()}
	s.Run(context.Background(), st)

	if len(llm.prompts) != 1 {
		t.Fatalf("revise mode must make one call, got %d", len(llm.prompts))
	}
	if st.NarrativeParagraph2 != "The situation is likely to worsen." {
		t.Fatalf("revision not applied: %q", st.NarrativeParagraph2)
	}
	if len(st.SkepticFlags) != 0 {
		t.Fatal("flags must be cleared after a successful revision")
	}
	if st.CorrectionAttempts != 2 {
		t.Fatalf("attempts = %d, want 2", st.CorrectionAttempts)
	}
}

func TestSynthesizerReviseParseFailureKeepsDraft(t *testing.T) {
	st := draftState()
	st.NarrativeParagraph1 = "Original p1 [Source: evt_001]."
	st.NarrativeParagraph2 = "Original p2."
	st.SkepticFlags = []state.SkepticFlag{{Claim: "x", IssueType: state.IssueNumeracy}}

	s := &Synthesizer{LLM: scriptedLLM("Sorry, here is prose instead of JSON."), Log: testLogger()}
	s.Run(context.Background(), st)

	if st.Failed() {
		t.Fatalf("revision parse failure must not fail the run: %s", st.Error)
	}
	if st.NarrativeParagraph1 != "Original p1 [Source: evt_001]." || st.NarrativeParagraph2 != "Original p2." {
		t.Fatal("prior draft must survive an unparseable revision")
	}
	if len(st.SkepticFlags) != 0 {
		t.Fatal("flags must be cleared so the loop terminates")
	}
	found := false
	for _, w := range st.Warnings {
		if strings.Contains(w, "NarrativeSynthesisParseError") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected NarrativeSynthesisParseError warning, got %v", st.Warnings)
	}
}

func TestSynthesizerInvokeFailureClearsFlags(t *testing.T) {
	st := draftState()
	st.SkepticFlags = []state.SkepticFlag{{Claim: "x"}}

	s := &Synthesizer{LLM: failingLLM(context.DeadlineExceeded), Log: testLogger()}
	s.Run(context.Background(), st)

	if st.Failed() {
		t.Fatalf("invoke failure must degrade to a warning: %s", st.Error)
	}
	if len(st.SkepticFlags) != 0 {
		t.Fatal("flags must be cleared on invoke failure")
	}
}

func TestSynthesizerDraftsWithNilTrend(t *testing.T) {
	st := draftState()
	st.TrendAnalysis = nil

	llm := scriptedLLM("P1 [Source: evt_001].", "Outlook may worsen.")
	s := &Synthesizer{LLM: llm, Log: testLogger()}
	s.Run(context.Background(), st)

	if st.NarrativeParagraph2 != "Outlook may worsen." {
		t.Fatalf("nil trend must not block drafting: %q", st.NarrativeParagraph2)
	}
	if !strings.Contains(llm.prompts[1], "null") {
		t.Fatal("nil trend must render as null in the outlook prompt")
	}
}
