package agents

import (
	"context"
	"encoding/json"
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/edacrema/ACTIVE-WARNINGS-Updater/internal/jsonutil"
	"github.com/edacrema/ACTIVE-WARNINGS-Updater/internal/llm"
	"github.com/edacrema/ACTIVE-WARNINGS-Updater/internal/state"
)

// StatusRecommender scores the current situation with one generation call,
// then derives the status transition deterministically. The model never
// chooses the status; it only supplies likelihood and impact.
type StatusRecommender struct {
	LLM llm.Client
	Log *zap.Logger
}

// Run produces the final StatusRecommendation.
func (r *StatusRecommender) Run(ctx context.Context, st *state.RunState) {
	r.Log.Info("running status recommendation", zap.String("country", st.Country))

	// Both inputs are required: events carry the impact figures, the trend
	// carries the trajectory. Either one missing means the scores would be
	// guesswork.
	if len(st.Events) == 0 || st.TrendAnalysis == nil {
		st.AddWarning("StatusRecommendation skipped: missing events or trend analysis.")
		st.CurrentStep = "StatusRecommendationComplete"
		return
	}
	if st.PreviousSeriousness == nil {
		st.AddWarning("StatusRecommendation failed: previous seriousness scores missing.")
		st.Fail("StatusRecommenderError: previous seriousness scores missing")
		return
	}

	current, err := r.scoreCurrent(ctx, st)
	if err != nil {
		st.AddWarning("StatusRecommenderError: %v", err)
		st.CurrentStep = "StatusRecommendationComplete"
		return
	}

	prevL := clampScore(st.PreviousSeriousness.Likelihood)
	prevI := clampScore(st.PreviousSeriousness.Impact)
	currL := clampScore(current.Likelihood)
	currI := clampScore(current.Impact)

	prev := Seriousness(prevL, prevI)
	curr := Seriousness(currL, currI)
	change := StatusFromSeriousness(prev, curr)

	r.Log.Info("status recommended",
		zap.Int("previous_seriousness", prev),
		zap.Int("current_seriousness", curr),
		zap.String("status_change", string(change)))

	st.StatusRecommendation = &state.StatusRecommendation{
		PreviousSeriousness: *st.PreviousSeriousness,
		CurrentSeriousness: state.SeriousnessScores{
			Likelihood: currL,
			Impact:     currI,
			Rationale:  current.Rationale,
		},
		StatusChange: change,
		Rationale: fmt.Sprintf(
			"Determined status: %s. Seriousness score changed from %d (L%d, I%d) to %d (L%d, I%d). %s",
			change, prev, prevL, prevI, curr, currL, currI, current.Rationale),
	}
	st.CurrentStep = "StatusRecommendationComplete"
}

// maxScoredEvents bounds how many events reach the scoring prompt.
const maxScoredEvents = 10

// scoreCurrent asks the model for integer likelihood and impact scores from
// the trend analysis and a summary of the top events. Fractional scores are
// rejected rather than silently rounded.
func (r *StatusRecommender) scoreCurrent(ctx context.Context, st *state.RunState) (*state.SeriousnessScores, error) {
	trendJSON, err := json.MarshalIndent(st.TrendAnalysis, "", "  ")
	if err != nil {
		return nil, err
	}

	events := st.Events
	if len(events) > maxScoredEvents {
		events = events[:maxScoredEvents]
	}
	summary := make([]string, 0, len(events))
	for _, evt := range events {
		summary = append(summary, fmt.Sprintf("Event: %s - %s", evt.EventType, evt.Statement))
	}
	eventsJSON, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return nil, err
	}

	raw, err := r.LLM.Complete(ctx, fmt.Sprintf(scoringPrompt,
		st.Country, st.RiskCategoryList(), trendJSON, eventsJSON))
	if err != nil {
		return nil, err
	}

	var parsed struct {
		Likelihood json.Number `json:"likelihood"`
		Impact     json.Number `json:"impact"`
		Rationale  string      `json:"rationale"`
	}
	if err := jsonutil.Decode(raw, &parsed); err != nil {
		return nil, err
	}

	likelihood, err := parsed.Likelihood.Int64()
	if err != nil {
		return nil, &jsonutil.MalformedOutputError{Reason: fmt.Sprintf("likelihood is not an integer: %s", parsed.Likelihood), Raw: raw}
	}
	impact, err := parsed.Impact.Int64()
	if err != nil {
		return nil, &jsonutil.MalformedOutputError{Reason: fmt.Sprintf("impact is not an integer: %s", parsed.Impact), Raw: raw}
	}

	return &state.SeriousnessScores{
		Likelihood: int(likelihood),
		Impact:     int(impact),
		Rationale:  parsed.Rationale,
	}, nil
}

// clampScore forces a score onto the 1-5 scale.
func clampScore(v int) int {
	if v < 1 {
		return 1
	}
	if v > 5 {
		return 5
	}
	return v
}

// Seriousness combines likelihood and impact into a single 1-5 score as the
// rounded geometric mean. Inputs are clamped to the scale first.
func Seriousness(likelihood, impact int) int {
	l := clampScore(likelihood)
	i := clampScore(impact)
	return int(math.Round(math.Sqrt(float64(l * i))))
}

// StatusFromSeriousness maps the previous and current seriousness scores to a
// status transition. Order matters: reactivation wins over increase, closure
// wins over decrease.
func StatusFromSeriousness(previous, current int) state.StatusChange {
	switch {
	case previous < 3 && current >= 3:
		return state.StatusReactivated
	case current < 3:
		return state.StatusClosed
	case current > previous:
		return state.StatusIncreased
	case current < previous:
		return state.StatusDecreased
	default:
		return state.StatusRemains
	}
}
