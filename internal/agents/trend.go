package agents

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/edacrema/ACTIVE-WARNINGS-Updater/internal/jsonutil"
	"github.com/edacrema/ACTIVE-WARNINGS-Updater/internal/llm"
	"github.com/edacrema/ACTIVE-WARNINGS-Updater/internal/state"
)

// indicator is a key-value pair extracted from the previous narrative.
type indicator struct {
	IndicatorType string `json:"indicator_type"`
	Value         string `json:"value"`
	Location      string `json:"location,omitempty"`
	Statement     string `json:"statement"`
}

// TrendAnalyst compares the previous warning narrative against the current
// events with a two-step extract-then-compare process: first pull sparse
// indicators out of the old narrative, then have the model compare them
// against the new structured events. Any failure degrades to a warning and a
// nil trend analysis.
type TrendAnalyst struct {
	LLM llm.Client
	Log *zap.Logger
}

// Run produces a TrendAnalysis, or skips with a warning when either side of
// the comparison is missing.
func (t *TrendAnalyst) Run(ctx context.Context, st *state.RunState) {
	t.Log.Info("running trend analysis", zap.String("country", st.Country))

	if len(st.Events) == 0 {
		t.Log.Info("no events to analyze, skipping")
		st.AddWarning("TrendAnalysis skipped: No events extracted.")
		st.CurrentStep = "TrendAnalysisComplete"
		return
	}
	if st.PreviousWarning == "" {
		t.Log.Info("no previous warning text, skipping")
		st.AddWarning("TrendAnalysis skipped: No previous warning text.")
		st.CurrentStep = "TrendAnalysisComplete"
		return
	}

	indicators, err := t.extractIndicators(ctx, st)
	if err != nil {
		st.AddWarning("TrendAnalysisError: %v", err)
		return
	}
	t.Log.Debug("previous indicators extracted", zap.Int("indicators", len(indicators)))

	analysis, err := t.compare(ctx, st, indicators)
	if err != nil {
		st.AddWarning("TrendAnalysisError: %v", err)
		return
	}

	t.Log.Info("trend assessed", zap.String("trajectory", string(analysis.Trajectory)))
	st.TrendAnalysis = analysis
	st.CurrentStep = "TrendAnalysisComplete"
}

func (t *TrendAnalyst) extractIndicators(ctx context.Context, st *state.RunState) ([]indicator, error) {
	prompt := fmt.Sprintf(extractIndicatorsPrompt, st.RiskCategoryList(), st.PreviousWarning)
	raw, err := t.LLM.Complete(ctx, prompt)
	if err != nil {
		return nil, err
	}

	var parsed struct {
		Indicators []indicator `json:"indicators"`
	}
	if err := jsonutil.Decode(raw, &parsed); err != nil {
		return nil, err
	}
	return parsed.Indicators, nil
}

func (t *TrendAnalyst) compare(ctx context.Context, st *state.RunState, indicators []indicator) (*state.TrendAnalysis, error) {
	prevJSON, err := json.MarshalIndent(map[string]any{"indicators": indicators}, "", "  ")
	if err != nil {
		return nil, err
	}
	eventsJSON, err := json.MarshalIndent(st.Events, "", "  ")
	if err != nil {
		return nil, err
	}

	prompt := fmt.Sprintf(compareTrendsPrompt,
		st.Country, st.RiskCategoryList(), prevJSON, eventsJSON)
	raw, err := t.LLM.Complete(ctx, prompt)
	if err != nil {
		return nil, err
	}

	var analysis state.TrendAnalysis
	if err := jsonutil.Decode(raw, &analysis); err != nil {
		return nil, err
	}
	if analysis.Trajectory == "" {
		return nil, &jsonutil.MalformedOutputError{Reason: "missing \"trajectory\" key", Raw: raw}
	}
	return &analysis, nil
}
