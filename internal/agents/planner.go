// Package agents implements the pipeline stages: query planning, translation,
// event extraction, trend analysis, narrative synthesis, skeptic review,
// citation compilation, and status recommendation. Each stage mutates the
// shared run state and records failures per the warning/error contract; only
// the planner and the final scorer can fail a run outright.
package agents

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/edacrema/ACTIVE-WARNINGS-Updater/internal/jsonutil"
	"github.com/edacrema/ACTIVE-WARNINGS-Updater/internal/llm"
	"github.com/edacrema/ACTIVE-WARNINGS-Updater/internal/state"
)

// Planner generates the search strategy for the update period. It is the only
// data-gathering stage whose failure is fatal: without a plan there is
// nothing to retrieve.
type Planner struct {
	LLM llm.Client
	Log *zap.Logger
}

// Run produces a SearchPlan from the previous warning context.
func (p *Planner) Run(ctx context.Context, st *state.RunState) {
	p.Log.Info("running query planner", zap.String("country", st.Country))

	prompt := fmt.Sprintf(plannerPrompt,
		st.Country,
		st.RiskCategoryList(),
		fmt.Sprintf("%s to %s", st.UpdatePeriodStart, st.UpdatePeriodEnd),
		st.PreviousWarning,
		joinStrings(st.PredefinedQueries),
	)

	raw, err := p.LLM.Complete(ctx, prompt)
	if err != nil {
		st.Fail("QueryPlannerError: %v", err)
		return
	}

	var plan state.SearchPlan
	if err := jsonutil.Decode(raw, &plan); err != nil {
		st.Fail("QueryPlannerError: %v", err)
		return
	}
	if len(plan.Queries) == 0 || plan.Rationale == "" {
		st.Fail("QueryPlannerError: parsed plan missing queries or rationale")
		return
	}

	p.Log.Info("search plan generated", zap.Int("queries", len(plan.Queries)))
	st.SearchPlan = &plan
	st.CurrentStep = "QueryPlanningComplete"
}

func joinStrings(ss []string) string {
	out := ""
	for i, s := range ss {
		if i > 0 {
			out += ", "
		}
		out += s
	}
	return out
}
