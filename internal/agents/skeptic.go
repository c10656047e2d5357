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

// Skeptic red-teams the draft narrative against the ground-truth events and
// trend analysis. Any failure leaves the flag list empty, which the engine
// reads as a clean draft; a broken skeptic must never wedge the loop.
type Skeptic struct {
	LLM llm.Client
	Log *zap.Logger
}

// Run checks the draft and writes the discrepancy flags.
func (k *Skeptic) Run(ctx context.Context, st *state.RunState) {
	k.Log.Info("running skeptic review", zap.String("country", st.Country))

	eventsJSON, err := json.MarshalIndent(st.Events, "", "  ")
	if err != nil {
		st.AddWarning("SkepticInvokeError: %v", err)
		st.SkepticFlags = []state.SkepticFlag{}
		st.CurrentStep = "SkepticCheckComplete"
		return
	}
	trendJSON, err := json.MarshalIndent(st.TrendAnalysis, "", "  ")
	if err != nil {
		st.AddWarning("SkepticInvokeError: %v", err)
		st.SkepticFlags = []state.SkepticFlag{}
		st.CurrentStep = "SkepticCheckComplete"
		return
	}

	raw, err := k.LLM.Complete(ctx, fmt.Sprintf(skepticPrompt,
		eventsJSON, trendJSON,
		st.NarrativeParagraph1, st.NarrativeParagraph2))
	if err != nil {
		st.AddWarning("SkepticInvokeError: %v", err)
		st.SkepticFlags = []state.SkepticFlag{}
		st.CurrentStep = "SkepticCheckComplete"
		return
	}

	var parsed struct {
		Flags []state.SkepticFlag `json:"flags"`
	}
	if err := jsonutil.Decode(raw, &parsed); err != nil {
		st.AddWarning("SkepticParseError: %v", err)
		st.SkepticFlags = []state.SkepticFlag{}
		st.CurrentStep = "SkepticCheckComplete"
		return
	}

	if len(parsed.Flags) > 0 {
		k.Log.Info("skeptic found issues", zap.Int("flags", len(parsed.Flags)))
		for _, f := range parsed.Flags {
			k.Log.Debug("skeptic flag",
				zap.String("severity", string(f.Severity)),
				zap.String("issue", string(f.IssueType)),
				zap.String("details", f.Details))
		}
		st.SkepticFlags = parsed.Flags
	} else {
		k.Log.Info("skeptic check passed")
		st.SkepticFlags = []state.SkepticFlag{}
	}
	st.CurrentStep = "SkepticCheckComplete"
}
