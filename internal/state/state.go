// Package state defines the run state threaded through the Active Warnings
// pipeline. Every stage reads from and writes to a single *RunState owned by
// the workflow engine; stages never communicate through any other channel.
package state

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// RiskCategory is one of the risk types a warning can cover.
type RiskCategory string

const (
	RiskConflict      RiskCategory = "conflict"
	RiskEconomic      RiskCategory = "economic"
	RiskNaturalHazard RiskCategory = "natural hazard"
)

// SourceType tags a search query with the class of source it targets.
type SourceType string

const (
	SourceNews      SourceType = "news"
	SourceUNReports SourceType = "un_reports"
	SourceEconomic  SourceType = "economic"
	SourceClimate   SourceType = "climate"
)

// Priority ranks a search query within the plan.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Driver is the category of humanitarian driver behind an event.
type Driver string

const (
	DriverConflict Driver = "conflict"
	DriverEconomic Driver = "economic"
	DriverClimate  Driver = "climate"
)

// Novelty classifies whether an event is newly observed, a continuation, or
// an escalation of a known pattern.
type Novelty string

const (
	NoveltyNew          Novelty = "new"
	NoveltyContinuation Novelty = "continuation"
	NoveltyEscalation   Novelty = "escalation"
)

// Trajectory is the qualitative direction of risk evolution between two
// reporting periods.
type Trajectory string

const (
	TrajectoryIncreasing    Trajectory = "increasing"
	TrajectoryDecreasing    Trajectory = "decreasing"
	TrajectoryStable        Trajectory = "stable"
	TrajectoryMaterializing Trajectory = "materializing"
)

// IssueType is the class of problem a skeptic flag reports.
type IssueType string

const (
	IssueNumeracy        IssueType = "numeracy"
	IssueContradiction   IssueType = "contradiction"
	IssueSourceMismatch  IssueType = "source_mismatch"
	IssueHedging         IssueType = "hedging"
	IssueMissingCitation IssueType = "missing_citation"
	IssueTemporal        IssueType = "temporal"
)

// Severity of a skeptic flag.
type Severity string

const (
	SeverityHigh   Severity = "high"
	SeverityMedium Severity = "medium"
	SeverityLow    Severity = "low"
)

// StatusChange is the recommended transition for the warning status.
type StatusChange string

const (
	StatusIncreased   StatusChange = "Increased"
	StatusDecreased   StatusChange = "Decreased"
	StatusRemains     StatusChange = "Remains"
	StatusClosed      StatusChange = "Closed"
	StatusReactivated StatusChange = "Reactivated"
)

// SearchQuery is a single query in the search plan.
type SearchQuery struct {
	Query      string     `json:"query"`
	SourceType SourceType `json:"source_type"`
	DataSource string     `json:"data_source"`
	Priority   Priority   `json:"priority"`
}

// SearchPlan is the query planner's output.
type SearchPlan struct {
	Queries   []SearchQuery `json:"queries"`
	KeyThemes []string      `json:"key_themes"`
	KeyActors []string      `json:"key_actors"`
	Rationale string        `json:"rationale"`
}

// Document is a retrieved source document. Retrievers create documents; the
// translator may overwrite Title/Content/Language in place, archiving the
// originals under Metadata. Documents are never deleted from the state.
type Document struct {
	DocID                 string         `json:"doc_id"`
	Title                 string         `json:"title"`
	URL                   string         `json:"url"`
	Source                string         `json:"source"`
	Date                  string         `json:"date"`
	Language              string         `json:"language"`
	Content               string         `json:"content"`
	Translated            bool           `json:"translated"`
	TranslationConfidence *float64       `json:"translation_confidence,omitempty"`
	RelevanceScore        float64        `json:"relevance_score"`
	Metadata              map[string]any `json:"metadata,omitempty"`
}

// Location is a named place referenced by an event.
type Location struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// Figure is a quantitative data point attached to an event. Value stays
// loosely typed because extraction output mixes numbers and ranges.
type Figure struct {
	Type  string `json:"type"`
	Value any    `json:"value"`
	Unit  string `json:"unit,omitempty"`
}

// Event is a structured, deduplicated occurrence extracted from documents.
// SourceIDs must be non-empty for extracted events; citation compilation
// depends on it.
type Event struct {
	EventID   string     `json:"event_id"`
	Country   string     `json:"country"`
	Driver    Driver     `json:"driver"`
	EventType string     `json:"event_type"`
	DateStart string     `json:"date_start"`
	DateEnd   string     `json:"date_end,omitempty"`
	Actors    []string   `json:"actors"`
	Locations []Location `json:"locations"`
	Figures   []Figure   `json:"figures"`
	Statement string     `json:"statement"`
	SourceIDs []string   `json:"source_ids"`
	Relevance float64    `json:"relevance"`
	Certainty float64    `json:"certainty"`
	Novelty   Novelty    `json:"novelty"`
}

// TrendAnalysis is the trend analyst's comparison of the previous narrative
// against the current event list.
type TrendAnalysis struct {
	Trajectory              Trajectory     `json:"trajectory"`
	KeyChanges              []string       `json:"key_changes"`
	QuantitativeChanges     map[string]any `json:"quantitative_changes"`
	SignificantDevelopments []string       `json:"significant_developments"`
	OutlookFactors          []string       `json:"outlook_factors"`
}

// SkepticFlag is a discrepancy between the draft narrative and ground truth.
type SkepticFlag struct {
	Claim             string    `json:"claim"`
	IssueType         IssueType `json:"issue_type"`
	Severity          Severity  `json:"severity"`
	Details           string    `json:"details"`
	ConflictingSource string    `json:"conflicting_source,omitempty"`
	Recommendation    string    `json:"recommendation"`
}

// Citation is an annotated bibliography entry compiled after the narrative
// loop converges.
type Citation struct {
	SourceID          string   `json:"source_id"`
	Title             string   `json:"title"`
	URL               string   `json:"url"`
	TranslationURL    string   `json:"translation_url,omitempty"`
	Reliability       float64  `json:"reliability"`
	Language          string   `json:"language"`
	TranslationMethod string   `json:"translation_method,omitempty"`
	Summary           string   `json:"summary"`
	SupportsClaims    []string `json:"supports_claims"`
}

// SeriousnessScores holds likelihood and impact scores on the 1-5 scale.
type SeriousnessScores struct {
	Likelihood int    `json:"likelihood"`
	Impact     int    `json:"impact"`
	Rationale  string `json:"rationale"`
}

// StatusRecommendation is the final, deterministic status decision.
type StatusRecommendation struct {
	PreviousSeriousness SeriousnessScores `json:"previous_seriousness"`
	CurrentSeriousness  SeriousnessScores `json:"current_seriousness"`
	StatusChange        StatusChange      `json:"status_change"`
	Rationale           string            `json:"rationale"`
}

// Inputs are the immutable fields a run starts from.
type Inputs struct {
	Country             string
	RiskCategories      []RiskCategory
	RiskTitle           string
	PreviousWarning     string
	PreviousSeriousness *SeriousnessScores
	PredefinedQueries   []string
	PreferredDomains    []string
	UpdatePeriodStart   string
	UpdatePeriodEnd     string
}

// RunState is the single mutable record threaded through every stage.
type RunState struct {
	// Inputs, immutable after initialization.
	Country             string             `json:"country"`
	RiskCategories      []RiskCategory     `json:"risk_type"`
	RiskTitle           string             `json:"risk_title"`
	PreviousWarning     string             `json:"previous_warning"`
	PreviousSeriousness *SeriousnessScores `json:"previous_seriousness_scores,omitempty"`
	PredefinedQueries   []string           `json:"predefined_queries"`
	PreferredDomains    []string           `json:"preferred_domains"`
	UpdatePeriodStart   string             `json:"update_period_start"`
	UpdatePeriodEnd     string             `json:"update_period_end"`

	// Stage outputs.
	SearchPlan           *SearchPlan           `json:"search_plan,omitempty"`
	Documents            []Document            `json:"documents"`
	Events               []Event               `json:"events"`
	TrendAnalysis        *TrendAnalysis        `json:"trend_analysis,omitempty"`
	SkepticFlags         []SkepticFlag         `json:"skeptic_flags"`
	NarrativeParagraph1  string                `json:"narrative_paragraph_1,omitempty"`
	NarrativeParagraph2  string                `json:"narrative_paragraph_2,omitempty"`
	Citations            []Citation            `json:"citations"`
	StatusRecommendation *StatusRecommendation `json:"status_recommendation,omitempty"`

	// Control and metadata.
	CurrentStep        string    `json:"current_step"`
	Error              string    `json:"error,omitempty"`
	Warnings           []string  `json:"warnings"`
	RunID              string    `json:"run_id"`
	Timestamp          time.Time `json:"timestamp"`
	CorrectionAttempts int       `json:"correction_attempts"`
}

// New creates a RunState from the given inputs with a fresh run id.
func New(in Inputs) *RunState {
	return &RunState{
		Country:             in.Country,
		RiskCategories:      in.RiskCategories,
		RiskTitle:           in.RiskTitle,
		PreviousWarning:     in.PreviousWarning,
		PreviousSeriousness: in.PreviousSeriousness,
		PredefinedQueries:   in.PredefinedQueries,
		PreferredDomains:    in.PreferredDomains,
		UpdatePeriodStart:   in.UpdatePeriodStart,
		UpdatePeriodEnd:     in.UpdatePeriodEnd,
		Documents:           []Document{},
		Events:              []Event{},
		SkepticFlags:        []SkepticFlag{},
		Citations:           []Citation{},
		Warnings:            []string{},
		CurrentStep:         "initialized",
		RunID:               fmt.Sprintf("run_%s", uuid.NewString()[:8]),
		Timestamp:           time.Now().UTC(),
	}
}

// AddWarning appends a diagnostic message. Warnings accumulate and are never
// fatal to the run.
func (s *RunState) AddWarning(format string, args ...any) {
	s.Warnings = append(s.Warnings, fmt.Sprintf(format, args...))
}

// Fail records a fatal error. The error field is write-once: the first
// failure wins and later calls are downgraded to warnings.
func (s *RunState) Fail(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	if s.Error != "" {
		s.AddWarning("suppressed error (run already failed): %s", msg)
		return
	}
	s.Error = msg
}

// Failed reports whether a fatal error has been recorded.
func (s *RunState) Failed() bool {
	return s.Error != ""
}

// RiskCategoryList renders the risk categories for prompt interpolation.
func (s *RunState) RiskCategoryList() string {
	out := ""
	for i, rc := range s.RiskCategories {
		if i > 0 {
			out += ", "
		}
		out += string(rc)
	}
	return out
}
