package agents

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/edacrema/ACTIVE-WARNINGS-Updater/internal/state"
)

func trendState() *state.RunState {
	st := state.New(state.Inputs{
		Country:         "Somalia",
		RiskCategories:  []state.RiskCategory{state.RiskNaturalHazard},
		PreviousWarning: "Some 3.8 million people faced crisis-level food insecurity.",
	})
	st.Events = []state.Event{{
		EventID:   "evt_001",
		Statement: "IPC projects 4.4 million people in crisis",
		SourceIDs: []string{"reliefweb_1"},
	}}
	return st
}

func TestTrendAnalystTwoStepFlow(t *testing.T) {
	st := trendState()

	llm := scriptedLLM(
		`{"indicators": [{"indicator_type": "food_insecurity", "value": "3.8 million", "statement": "crisis-level food insecurity"}]}`,
		`{"trajectory": "increasing",
		  "key_changes": ["food insecurity rose from 3.8M to 4.4M"],
		  "quantitative_changes": {"people_in_crisis": {"previous": "3.8 million", "current": "4.4 million"}},
		  "significant_developments": ["new IPC projection"],
		  "outlook_factors": ["below-average rains forecast"]}`,
	)
	ta := &TrendAnalyst{LLM: llm, Log: testLogger()}
	ta.Run(context.Background(), st)

	if st.TrendAnalysis == nil {
		t.Fatalf("expected a trend analysis, warnings: %v", st.Warnings)
	}
	if st.TrendAnalysis.Trajectory != state.TrajectoryIncreasing {
		t.Fatalf("unexpected trajectory %q", st.TrendAnalysis.Trajectory)
	}
	if len(llm.prompts) != 2 {
		t.Fatalf("expected extract+compare calls, got %d", len(llm.prompts))
	}
	if !strings.Contains(llm.prompts[1], "3.8 million") {
		t.Fatal("compare prompt must carry the extracted indicators")
	}
	if st.CurrentStep != "TrendAnalysisComplete" {
		t.Fatalf("unexpected step %q", st.CurrentStep)
	}
}

func TestTrendAnalystSkipsWithoutEvents(t *testing.T) {
	st := trendState()
	st.Events = nil

	llm := scriptedLLM()
	ta := &TrendAnalyst{LLM: llm, Log: testLogger()}
	ta.Run(context.Background(), st)

	if len(llm.prompts) != 0 {
		t.Fatal("no generation calls expected without events")
	}
	if st.TrendAnalysis != nil {
		t.Fatal("expected nil trend analysis")
	}
	found := false
	for _, w := range st.Warnings {
		if w == "TrendAnalysis skipped: No events extracted." {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected skip warning, got %v", st.Warnings)
	}
}

func TestTrendAnalystSkipsWithoutPreviousWarning(t *testing.T) {
	st := trendState()
	st.PreviousWarning = ""

	ta := &TrendAnalyst{LLM: scriptedLLM(), Log: testLogger()}
	ta.Run(context.Background(), st)

	found := false
	for _, w := range st.Warnings {
		if w == "TrendAnalysis skipped: No previous warning text." {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected skip warning, got %v", st.Warnings)
	}
}

func TestTrendAnalystDegradesOnFailure(t *testing.T) {
	st := trendState()

	ta := &TrendAnalyst{LLM: failingLLM(errors.New("model overloaded")), Log: testLogger()}
	ta.Run(context.Background(), st)

	if st.Failed() {
		t.Fatalf("trend failure must not fail the run: %s", st.Error)
	}
	if st.TrendAnalysis != nil {
		t.Fatal("expected nil trend analysis after failure")
	}
	found := false
	for _, w := range st.Warnings {
		if strings.HasPrefix(w, "TrendAnalysisError:") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected TrendAnalysisError warning, got %v", st.Warnings)
	}
}

func TestTrendAnalystRejectsMissingTrajectory(t *testing.T) {
	st := trendState()

	ta := &TrendAnalyst{
		LLM: scriptedLLM(
			`{"indicators": []}`,
			`{"key_changes": ["something"]}`,
		),
		Log: testLogger(),
	}
	ta.Run(context.Background(), st)

	if st.TrendAnalysis != nil {
		t.Fatal("analysis without a trajectory must be rejected")
	}
	if len(st.Warnings) == 0 {
		t.Fatal("expected a TrendAnalysisError warning")
	}
}
