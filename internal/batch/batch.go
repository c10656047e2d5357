package batch

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/edacrema/ACTIVE-WARNINGS-Updater/internal/graph"
	"github.com/edacrema/ACTIVE-WARNINGS-Updater/internal/report"
	"github.com/edacrema/ACTIVE-WARNINGS-Updater/internal/state"
	"github.com/edacrema/ACTIVE-WARNINGS-Updater/internal/store"
)

// Entry is one parsed watch-list row.
type Entry struct {
	Country         string
	RiskTitle       string
	RiskCategories  []state.RiskCategory
	PreviousWarning string
	Likelihood      int
	Impact          int
}

// ReadEntries parses the watch-list CSV. Required columns are Country and
// Title; risk_type, Likelihood, Impact, and "Last update" are optional with
// the usual defaults. Rows missing a country or title are skipped.
func ReadEntries(r io.Reader) ([]Entry, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read watch list header: %w", err)
	}
	col := map[string]int{}
	for i, name := range header {
		col[strings.ToLower(strings.TrimSpace(name))] = i
	}
	if _, ok := col["country"]; !ok {
		return nil, fmt.Errorf("watch list missing Country column")
	}
	if _, ok := col["title"]; !ok {
		return nil, fmt.Errorf("watch list missing Title column")
	}

	field := func(record []string, name string) string {
		idx, ok := col[name]
		if !ok || idx >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[idx])
	}

	var entries []Entry
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read watch list row: %w", err)
		}

		country := field(record, "country")
		title := field(record, "title")
		if country == "" || title == "" {
			continue
		}

		previous := ""
		for name, idx := range col {
			if strings.HasPrefix(name, "last update") && idx < len(record) {
				previous = strings.TrimSpace(record[idx])
				break
			}
		}
		if previous == "" {
			previous = "No previous update available."
		}

		entries = append(entries, Entry{
			Country:         country,
			RiskTitle:       title,
			RiskCategories:  ParseRiskCategories(field(record, "risk_type")),
			PreviousWarning: previous,
			Likelihood:      LikelihoodScore(field(record, "likelihood")),
			Impact:          ImpactScore(field(record, "impact")),
		})
	}
	return entries, nil
}

// Runner drives the pipeline over a watch list.
type Runner struct {
	Nodes       []graph.Node
	Opts        graph.Options
	Archive     *store.Archive
	OutputDir   string
	PeriodStart string
	PeriodEnd   string
	Log         *zap.Logger

	// Progress, when set, is called before and after each entry.
	Progress func(index, total int, country, status string)
}

// DefaultPeriod fills unset period bounds: the trailing periodDays window
// ending today.
func (r *Runner) DefaultPeriod(periodDays int) {
	now := time.Now()
	if r.PeriodEnd == "" {
		r.PeriodEnd = now.Format("2006-01-02")
	}
	if r.PeriodStart == "" {
		r.PeriodStart = now.AddDate(0, 0, -periodDays).Format("2006-01-02")
	}
}

// Run processes every entry sequentially and writes per-entry reports plus a
// summary into OutputDir. Entry failures never abort the batch.
func (r *Runner) Run(ctx context.Context, entries []Entry) ([]report.RunResult, error) {
	if err := os.MkdirAll(r.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	r.Log.Info("starting batch",
		zap.Int("entries", len(entries)),
		zap.String("period_start", r.PeriodStart),
		zap.String("period_end", r.PeriodEnd))

	var results []report.RunResult
	for idx, entry := range entries {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		if r.Progress != nil {
			r.Progress(idx, len(entries), entry.Country, "processing")
		}

		result := r.runEntry(ctx, idx, entry)
		results = append(results, result)

		status := "SUCCESS"
		if !result.Succeeded {
			status = "FAILED"
		}
		if r.Progress != nil {
			r.Progress(idx+1, len(entries), entry.Country, status)
		}
	}

	summary := report.SummaryMarkdown(results, r.PeriodStart, r.PeriodEnd)
	summaryPath := filepath.Join(r.OutputDir, "_BATCH_SUMMARY.md")
	if err := os.WriteFile(summaryPath, []byte(summary), 0o644); err != nil {
		return results, fmt.Errorf("write batch summary: %w", err)
	}

	r.Log.Info("batch complete", zap.String("summary", summaryPath))
	return results, nil
}

func (r *Runner) runEntry(ctx context.Context, idx int, entry Entry) report.RunResult {
	r.Log.Info("processing entry",
		zap.Int("index", idx+1),
		zap.String("country", entry.Country),
		zap.String("risk", entry.RiskTitle),
		zap.Int("likelihood", entry.Likelihood),
		zap.Int("impact", entry.Impact))

	st := state.New(state.Inputs{
		Country:         entry.Country,
		RiskCategories:  entry.RiskCategories,
		RiskTitle:       entry.RiskTitle,
		PreviousWarning: entry.PreviousWarning,
		PreviousSeriousness: &state.SeriousnessScores{
			Likelihood: entry.Likelihood,
			Impact:     entry.Impact,
			Rationale:  "Previous score from Watch List.",
		},
		PredefinedQueries: []string{},
		PreferredDomains:  PreferredDomains(entry.Country),
		UpdatePeriodStart: r.PeriodStart,
		UpdatePeriodEnd:   r.PeriodEnd,
	})

	result := report.RunResult{
		Index:     idx + 1,
		Country:   entry.Country,
		RiskTitle: entry.RiskTitle,
	}

	engine := graph.New(r.Log, r.Opts, r.Nodes)
	if err := engine.Run(ctx, st); err != nil {
		r.Log.Error("entry failed",
			zap.String("country", entry.Country),
			zap.Error(err))
		result.Err = err.Error()
		return result
	}

	if st.StatusRecommendation != nil {
		result.Recommendation = string(st.StatusRecommendation.StatusChange)
	}

	filename := fmt.Sprintf("%s_%s_%d.md",
		SanitizeFilename(entry.Country, 50),
		SanitizeFilename(truncateTitle(entry.RiskTitle, 30), 50),
		idx+1)
	path := filepath.Join(r.OutputDir, filename)
	if err := os.WriteFile(path, []byte(report.Markdown(st)), 0o644); err != nil {
		result.Err = fmt.Sprintf("write report: %v", err)
		return result
	}
	result.File = filename
	result.Succeeded = true

	if r.Archive != nil {
		if err := r.Archive.Save(ctx, st); err != nil {
			r.Log.Warn("archive save failed",
				zap.String("run_id", st.RunID),
				zap.Error(err))
		}
	}

	r.Log.Info("entry complete",
		zap.String("country", entry.Country),
		zap.String("file", filename),
		zap.String("recommendation", result.Recommendation))
	return result
}

func truncateTitle(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
