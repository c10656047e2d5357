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

// Synthesizer writes the two-paragraph narrative. On a fresh pass it drafts
// each paragraph with its own call; when skeptic flags are present it makes
// one combined revision call instead. Every path out of this stage clears the
// flags so the correction loop can only continue through a fresh skeptic pass.
type Synthesizer struct {
	LLM llm.Client
	Log *zap.Logger
}

// Run drafts or revises the narrative paragraphs. The attempt counter
// increments on entry; the loop bound is enforced by the engine, not here.
func (s *Synthesizer) Run(ctx context.Context, st *state.RunState) {
	st.CorrectionAttempts++
	revising := len(st.SkepticFlags) > 0

	s.Log.Info("running narrative synthesis",
		zap.String("country", st.Country),
		zap.Int("attempt", st.CorrectionAttempts),
		zap.Bool("revising", revising))

	if revising {
		s.revise(ctx, st)
	} else {
		s.draft(ctx, st)
	}
}

func (s *Synthesizer) draft(ctx context.Context, st *state.RunState) {
	eventsJSON, trendJSON, err := s.groundTruth(st)
	if err != nil {
		st.AddWarning("NarrativeSynthesisError: %v", err)
		st.SkepticFlags = []state.SkepticFlag{}
		return
	}

	p1, err := s.LLM.Complete(ctx, fmt.Sprintf(paragraph1Prompt,
		st.Country, st.RiskCategoryList(),
		fmt.Sprintf("%s to %s", st.UpdatePeriodStart, st.UpdatePeriodEnd),
		eventsJSON))
	if err != nil {
		st.AddWarning("NarrativeSynthesisError: %v", err)
		st.SkepticFlags = []state.SkepticFlag{}
		return
	}

	p2, err := s.LLM.Complete(ctx, fmt.Sprintf(paragraph2Prompt,
		st.Country, st.RiskCategoryList(), trendJSON))
	if err != nil {
		st.AddWarning("NarrativeSynthesisError: %v", err)
		st.SkepticFlags = []state.SkepticFlag{}
		return
	}

	st.NarrativeParagraph1 = p1
	st.NarrativeParagraph2 = p2
	st.SkepticFlags = []state.SkepticFlag{}
	st.CurrentStep = "SynthesisComplete"
}

// revise makes one combined call carrying the flags. A malformed revision
// keeps the prior draft; clearing the flags is what guarantees the loop
// cannot spin on a model that stops returning JSON.
func (s *Synthesizer) revise(ctx context.Context, st *state.RunState) {
	eventsJSON, trendJSON, err := s.groundTruth(st)
	if err != nil {
		st.AddWarning("NarrativeSynthesisError: %v", err)
		st.SkepticFlags = []state.SkepticFlag{}
		return
	}
	flagsJSON, err := json.MarshalIndent(st.SkepticFlags, "", "  ")
	if err != nil {
		st.AddWarning("NarrativeSynthesisError: %v", err)
		st.SkepticFlags = []state.SkepticFlag{}
		return
	}

	raw, err := s.LLM.Complete(ctx, fmt.Sprintf(correctionPrompt,
		st.Country, st.RiskCategoryList(),
		eventsJSON, trendJSON,
		st.NarrativeParagraph1, st.NarrativeParagraph2,
		flagsJSON))
	if err != nil {
		st.AddWarning("NarrativeSynthesisError: %v", err)
		st.SkepticFlags = []state.SkepticFlag{}
		return
	}

	var revised struct {
		Paragraph1 string `json:"paragraph_1"`
		Paragraph2 string `json:"paragraph_2"`
	}
	if err := jsonutil.Decode(raw, &revised); err != nil || revised.Paragraph1 == "" || revised.Paragraph2 == "" {
		if err == nil {
			err = &jsonutil.MalformedOutputError{Reason: "revision missing paragraph_1 or paragraph_2", Raw: raw}
		}
		s.Log.Warn("revision output unparseable, keeping prior draft", zap.Error(err))
		st.AddWarning("NarrativeSynthesisParseError: %v", err)
		st.SkepticFlags = []state.SkepticFlag{}
		st.CurrentStep = "SynthesisComplete"
		return
	}

	st.NarrativeParagraph1 = revised.Paragraph1
	st.NarrativeParagraph2 = revised.Paragraph2
	st.SkepticFlags = []state.SkepticFlag{}
	st.CurrentStep = "SynthesisComplete"
}

// groundTruth renders the events and trend analysis for prompt interpolation.
// A nil trend analysis renders as null; the writer is told everything the
// pipeline knows, including that it knows nothing.
func (s *Synthesizer) groundTruth(st *state.RunState) (string, string, error) {
	eventsJSON, err := json.MarshalIndent(st.Events, "", "  ")
	if err != nil {
		return "", "", err
	}
	trendJSON, err := json.MarshalIndent(st.TrendAnalysis, "", "  ")
	if err != nil {
		return "", "", err
	}
	return string(eventsJSON), string(trendJSON), nil
}
