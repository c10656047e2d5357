// Command earlywarn updates humanitarian early-warning narratives: it plans
// searches, retrieves and translates source documents, extracts events,
// analyzes trends, writes and red-teams a two-paragraph narrative, compiles
// citations, and recommends a warning status.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/edacrema/ACTIVE-WARNINGS-Updater/internal/batch"
	"github.com/edacrema/ACTIVE-WARNINGS-Updater/internal/config"
	"github.com/edacrema/ACTIVE-WARNINGS-Updater/internal/graph"
	"github.com/edacrema/ACTIVE-WARNINGS-Updater/internal/llm"
	"github.com/edacrema/ACTIVE-WARNINGS-Updater/internal/report"
	"github.com/edacrema/ACTIVE-WARNINGS-Updater/internal/state"
	"github.com/edacrema/ACTIVE-WARNINGS-Updater/internal/store"
)

var (
	verbose    bool
	configPath string

	logger *zap.Logger
	cfg    *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "earlywarn",
	Short: "Active warnings narrative updater",
	Long: `earlywarn refreshes humanitarian early-warning narratives.

For each risk it plans a search strategy, pulls analyst reports, curated
UN/INGO reports, and news coverage for the update window, extracts structured
events, compares them against the previous warning, drafts a two-paragraph
narrative that a skeptic pass fact-checks, and finishes with citations and a
deterministic status recommendation.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		zcfg := zap.NewProductionConfig()
		if verbose {
			zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zcfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}

		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

var (
	updateCountry    string
	updateTitle      string
	updateRiskType   string
	updatePrevious   string
	updateLikelihood int
	updateImpact     int
	updateStart      string
	updateEnd        string
	updateOutput     string
)

var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Update a single warning",
	Long: `Runs the full pipeline for one risk and prints the resulting report.

The previous narrative is read from the --previous file, or stdin when the
flag is omitted.`,
	RunE: runUpdate,
}

var (
	batchOutputDir string
	batchStart     string
	batchEnd       string
)

var batchCmd = &cobra.Command{
	Use:   "batch [watch-list.csv]",
	Short: "Process a full watch list",
	Long: `Processes every risk in a watch-list CSV, writing one markdown report
per row and a batch summary into the output directory.

Required columns: Country, Title. Recognized: risk_type, Likelihood, Impact,
and a "Last update ..." column holding the previous narrative.`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

var showCmd = &cobra.Command{
	Use:   "show [run-id]",
	Short: "Render an archived run",
	Args:  cobra.ExactArgs(1),
	RunE:  runShow,
}

var listLimit int

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List archived runs",
	RunE:  runList,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "earlywarn.yaml", "path to config file")

	updateCmd.Flags().StringVar(&updateCountry, "country", "", "country the warning covers (required)")
	updateCmd.Flags().StringVar(&updateTitle, "title", "", "risk title (required)")
	updateCmd.Flags().StringVar(&updateRiskType, "risk-type", "conflict", "risk type (conflict, economic, climate; combine with /)")
	updateCmd.Flags().StringVar(&updatePrevious, "previous", "", "file holding the previous narrative (default: stdin)")
	updateCmd.Flags().IntVar(&updateLikelihood, "likelihood", 3, "previous likelihood score (1-5)")
	updateCmd.Flags().IntVar(&updateImpact, "impact", 3, "previous impact score (1-5)")
	updateCmd.Flags().StringVar(&updateStart, "start", "", "update period start (YYYY-MM-DD)")
	updateCmd.Flags().StringVar(&updateEnd, "end", "", "update period end (YYYY-MM-DD)")
	updateCmd.Flags().StringVar(&updateOutput, "output", "", "also write the report to this file")
	updateCmd.MarkFlagRequired("country")
	updateCmd.MarkFlagRequired("title")

	batchCmd.Flags().StringVar(&batchOutputDir, "output-dir", "", "report output directory (default from config)")
	batchCmd.Flags().StringVar(&batchStart, "start", "", "update period start (YYYY-MM-DD)")
	batchCmd.Flags().StringVar(&batchEnd, "end", "", "update period end (YYYY-MM-DD)")

	listCmd.Flags().IntVar(&listLimit, "limit", 20, "maximum runs to list")

	rootCmd.AddCommand(updateCmd, batchCmd, showCmd, listCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func runUpdate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	previous, err := readPrevious()
	if err != nil {
		return err
	}

	client, err := llm.NewGeminiClient(ctx, cfg.LLM.APIKey, llm.Profile{
		Model:           cfg.LLM.Model,
		Temperature:     cfg.LLM.Temperature,
		MaxOutputTokens: cfg.LLM.MaxOutputTokens,
	})
	if err != nil {
		return err
	}

	start, end := updateStart, updateEnd
	if end == "" || start == "" {
		r := batch.Runner{PeriodStart: start, PeriodEnd: end}
		r.DefaultPeriod(cfg.Update.PeriodDays)
		start, end = r.PeriodStart, r.PeriodEnd
	}

	st := state.New(state.Inputs{
		Country:         updateCountry,
		RiskCategories:  batch.ParseRiskCategories(updateRiskType),
		RiskTitle:       updateTitle,
		PreviousWarning: previous,
		PreviousSeriousness: &state.SeriousnessScores{
			Likelihood: updateLikelihood,
			Impact:     updateImpact,
			Rationale:  "Previous score from Watch List.",
		},
		PredefinedQueries: []string{},
		PreferredDomains:  batch.PreferredDomains(updateCountry),
		UpdatePeriodStart: start,
		UpdatePeriodEnd:   end,
	})

	engine := graph.New(logger, graph.Options{
		MaxCorrectionAttempts: cfg.Graph.MaxCorrectionAttempts,
		MaxSteps:              cfg.Graph.MaxSteps,
	}, graph.Pipeline(cfg, client, logger))
	engine.OnStep(func(node string, st *state.RunState) {
		fmt.Fprintf(os.Stderr, "--- %s ---\n", node)
	})

	if err := engine.Run(ctx, st); err != nil {
		return err
	}

	md := report.Markdown(st)
	if updateOutput != "" {
		if err := os.WriteFile(updateOutput, []byte(md), 0o644); err != nil {
			return fmt.Errorf("write report: %w", err)
		}
	}
	if err := renderMarkdown(md); err != nil {
		return err
	}

	archive, err := store.Open(cfg.Archive.DatabasePath)
	if err != nil {
		return err
	}
	defer archive.Close()
	return archive.Save(ctx, st)
}

func runBatch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("open watch list: %w", err)
	}
	entries, err := batch.ReadEntries(f)
	f.Close()
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return fmt.Errorf("watch list has no valid rows")
	}

	client, err := llm.NewGeminiClient(ctx, cfg.LLM.APIKey, llm.Profile{
		Model:           cfg.LLM.Model,
		Temperature:     cfg.LLM.Temperature,
		MaxOutputTokens: cfg.LLM.MaxOutputTokens,
	})
	if err != nil {
		return err
	}

	archive, err := store.Open(cfg.Archive.DatabasePath)
	if err != nil {
		return err
	}
	defer archive.Close()

	outputDir := batchOutputDir
	if outputDir == "" {
		outputDir = cfg.Output.Dir
	}

	runner := &batch.Runner{
		Nodes: graph.Pipeline(cfg, client, logger),
		Opts: graph.Options{
			MaxCorrectionAttempts: cfg.Graph.MaxCorrectionAttempts,
			MaxSteps:              cfg.Graph.MaxSteps,
		},
		Archive:     archive,
		OutputDir:   outputDir,
		PeriodStart: batchStart,
		PeriodEnd:   batchEnd,
		Log:         logger,
		Progress: func(index, total int, country, status string) {
			fmt.Fprintf(os.Stderr, "[%d/%d] %s: %s\n", index, total, country, status)
		},
	}
	runner.DefaultPeriod(cfg.Update.PeriodDays)

	results, err := runner.Run(ctx, entries)
	if err != nil {
		return err
	}

	succeeded := 0
	for _, r := range results {
		if r.Succeeded {
			succeeded++
		}
	}
	fmt.Printf("Processed %d risks: %d succeeded, %d failed\n",
		len(results), succeeded, len(results)-succeeded)
	return nil
}

func runShow(cmd *cobra.Command, args []string) error {
	archive, err := store.Open(cfg.Archive.DatabasePath)
	if err != nil {
		return err
	}
	defer archive.Close()

	st, err := archive.Get(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	return renderMarkdown(report.Markdown(st))
}

func runList(cmd *cobra.Command, args []string) error {
	archive, err := store.Open(cfg.Archive.DatabasePath)
	if err != nil {
		return err
	}
	defer archive.Close()

	runs, err := archive.List(cmd.Context(), listLimit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("No archived runs.")
		return nil
	}

	for _, r := range runs {
		status := r.StatusChange
		if status == "" {
			status = "N/A"
		}
		fmt.Printf("%-14s %-28s %-12s %s (%d warnings)\n",
			r.RunID, truncate(r.Country+": "+r.RiskTitle, 28), status,
			r.CreatedAt.Format("2006-01-02"), r.Warnings)
	}
	return nil
}

func readPrevious() (string, error) {
	if updatePrevious != "" {
		data, err := os.ReadFile(updatePrevious)
		if err != nil {
			return "", fmt.Errorf("read previous narrative: %w", err)
		}
		return strings.TrimSpace(string(data)), nil
	}

	info, err := os.Stdin.Stat()
	if err == nil && (info.Mode()&os.ModeCharDevice) == 0 {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("read previous narrative from stdin: %w", err)
		}
		return strings.TrimSpace(string(data)), nil
	}
	return "No previous update available.", nil
}

func renderMarkdown(md string) error {
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		fmt.Println(md)
		return nil
	}
	out, err := renderer.Render(md)
	if err != nil {
		fmt.Println(md)
		return nil
	}
	fmt.Print(out)
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
