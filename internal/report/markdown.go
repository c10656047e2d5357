// Package report renders completed runs as markdown.
package report

import (
	"fmt"
	"strings"

	"github.com/edacrema/ACTIVE-WARNINGS-Updater/internal/state"
)

// RunResult summarizes one batch row for the summary report.
type RunResult struct {
	Index          int
	Country        string
	RiskTitle      string
	Succeeded      bool
	File           string
	Recommendation string
	Err            string
}

// Markdown renders the full report for one run.
func Markdown(st *state.RunState) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# %s: %s\n\n", st.Country, st.RiskTitle)
	fmt.Fprintf(&b, "**Risk Type:** %s  \n", st.RiskCategoryList())
	fmt.Fprintf(&b, "**Update Period:** %s to %s  \n", st.UpdatePeriodStart, st.UpdatePeriodEnd)
	fmt.Fprintf(&b, "**Run ID:** `%s`\n\n", st.RunID)

	if rec := st.StatusRecommendation; rec != nil {
		b.WriteString("## Status Recommendation\n\n")
		fmt.Fprintf(&b, "**Status Change:** %s\n\n", rec.StatusChange)
		fmt.Fprintf(&b, "| | Likelihood | Impact |\n|---|---|---|\n")
		fmt.Fprintf(&b, "| Previous | %d | %d |\n",
			rec.PreviousSeriousness.Likelihood, rec.PreviousSeriousness.Impact)
		fmt.Fprintf(&b, "| Current | %d | %d |\n\n",
			rec.CurrentSeriousness.Likelihood, rec.CurrentSeriousness.Impact)
		fmt.Fprintf(&b, "%s\n\n", rec.Rationale)
	}

	b.WriteString("## What Changed\n\n")
	b.WriteString(paragraphOr(st.NarrativeParagraph1))
	b.WriteString("\n\n## Outlook\n\n")
	b.WriteString(paragraphOr(st.NarrativeParagraph2))
	b.WriteString("\n")

	if len(st.Citations) > 0 {
		b.WriteString("\n## Sources\n\n")
		for _, c := range st.Citations {
			fmt.Fprintf(&b, "- **%s** (`%s`, reliability %.2f", c.Title, c.SourceID, c.Reliability)
			if c.Language != "" && !strings.EqualFold(c.Language, "en") && !strings.EqualFold(c.Language, "english") {
				fmt.Fprintf(&b, ", translated from %s", c.Language)
			}
			b.WriteString(")")
			if c.URL != "" {
				fmt.Fprintf(&b, " - %s", c.URL)
			}
			b.WriteString("\n")
		}
	}

	if len(st.Warnings) > 0 {
		b.WriteString("\n## Warnings\n\n")
		for _, w := range st.Warnings {
			fmt.Fprintf(&b, "- %s\n", w)
		}
	}

	return b.String()
}

func paragraphOr(p string) string {
	if p == "" {
		return "*Not generated*"
	}
	return p
}

// SummaryMarkdown renders the batch summary report.
func SummaryMarkdown(results []RunResult, periodStart, periodEnd string) string {
	var b strings.Builder

	b.WriteString("# Batch Processing Summary\n\n")
	fmt.Fprintf(&b, "**Update Period:** %s to %s\n\n", periodStart, periodEnd)

	succeeded := 0
	for _, r := range results {
		if r.Succeeded {
			succeeded++
		}
	}
	fmt.Fprintf(&b, "**Successful:** %d/%d\n\n", succeeded, len(results))

	b.WriteString("| # | Country | Risk | Status | Recommendation | Output |\n")
	b.WriteString("|---|---|---|---|---|---|\n")
	for _, r := range results {
		status := "SUCCESS"
		if !r.Succeeded {
			status = "FAILED"
		}
		rec := r.Recommendation
		if rec == "" {
			rec = "N/A"
		}
		file := r.File
		if file == "" {
			file = "-"
		}
		fmt.Fprintf(&b, "| %d | %s | %s | %s | %s | %s |\n",
			r.Index, r.Country, truncate(r.RiskTitle, 60), status, rec, file)
	}

	var failed []RunResult
	for _, r := range results {
		if !r.Succeeded {
			failed = append(failed, r)
		}
	}
	if len(failed) > 0 {
		b.WriteString("\n## Failed Runs\n\n")
		for _, r := range failed {
			fmt.Fprintf(&b, "- **%s**: %s\n", r.Country, r.Err)
		}
	}

	return b.String()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
