package retrieval

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/edacrema/ACTIVE-WARNINGS-Updater/internal/retry"
	"github.com/edacrema/ACTIVE-WARNINGS-Updater/internal/state"
)

func retrievalState(queries ...state.SearchQuery) *state.RunState {
	st := state.New(state.Inputs{
		Country:           "Venezuela",
		RiskCategories:    []state.RiskCategory{state.RiskEconomic},
		UpdatePeriodStart: "2026-06-01",
		UpdatePeriodEnd:   "2026-08-01",
	})
	st.SearchPlan = &state.SearchPlan{Queries: queries, Rationale: "test"}
	return st
}

// fastReliefWeb removes the throttle and retry delays for tests.
func fastReliefWeb(srv *httptest.Server) *ReliefWeb {
	r := NewReliefWeb("test-app", srv.URL, 50, zap.NewNop())
	r.Client = srv.Client()
	r.policy = retry.Policy{MaxAttempts: 1, BaseDelay: time.Millisecond}
	r.throttle = newThrottle(0)
	return r
}

const reliefWebFixture = `{
	"totalCount": 1,
	"data": [{
		"id": "4219112",
		"score": 12.5,
		"fields": {
			"title": "Venezuela: Situation Report",
			"url": "https://reliefweb.int/report/4219112",
			"body": "Hyperinflation continued through the reporting period.",
			"source": [{"name": "OCHA", "shortname": "OCHA"}],
			"date": {"created": "2026-07-15T00:00:00+00:00", "original": "2026-07-14T00:00:00+00:00"},
			"format": [{"name": "Situation Report"}],
			"theme": [{"name": "Food and Nutrition"}],
			"language": [{"name": "English"}]
		}
	}]
}`

func TestReliefWebPayloadShape(t *testing.T) {
	var gotAppName string
	var gotPayload map[string]any

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		gotAppName = req.URL.Query().Get("appname")
		body, _ := io.ReadAll(req.Body)
		json.Unmarshal(body, &gotPayload)
		io.WriteString(w, reliefWebFixture)
	}))
	defer srv.Close()

	st := retrievalState(state.SearchQuery{
		Query:      "Venezuela hyperinflation",
		SourceType: state.SourceUNReports,
		DataSource: "ReliefWeb",
	})

	r := fastReliefWeb(srv)
	r.Run(context.Background(), st)

	if gotAppName != "test-app" {
		t.Fatalf("appname = %q", gotAppName)
	}

	query, ok := gotPayload["query"].(map[string]any)
	if !ok || query["value"] != "Venezuela hyperinflation" {
		t.Fatalf("query clause missing or wrong: %v", gotPayload["query"])
	}

	filter := gotPayload["filter"].(map[string]any)
	conditions := filter["conditions"].([]any)
	var sawCountry, sawDate, sawTheme bool
	for _, c := range conditions {
		cond := c.(map[string]any)
		switch cond["field"] {
		case "country":
			sawCountry = true
			if cond["value"] != "Venezuela (Bolivarian Republic of)" {
				t.Fatalf("country not normalized: %v", cond["value"])
			}
		case "date.created":
			sawDate = true
			rng := cond["value"].(map[string]any)
			if rng["from"] != "2026-06-01T00:00:00+00:00" {
				t.Fatalf("unexpected from date %v", rng["from"])
			}
		case "theme":
			sawTheme = true
			if cond["operator"] != "OR" {
				t.Fatalf("theme conditions must union: %v", cond)
			}
		}
	}
	if !sawCountry || !sawDate || !sawTheme {
		t.Fatalf("missing filter conditions: %v", conditions)
	}

	if len(st.Documents) != 1 {
		t.Fatalf("expected 1 document, got %d", len(st.Documents))
	}
	doc := st.Documents[0]
	if doc.DocID != "reliefweb_4219112" {
		t.Fatalf("unexpected doc id %q", doc.DocID)
	}
	if doc.Source != "ReliefWeb - OCHA" {
		t.Fatalf("unexpected source %q", doc.Source)
	}
	if doc.RelevanceScore != 12.5 {
		t.Fatalf("unexpected relevance %v", doc.RelevanceScore)
	}
	if st.CurrentStep != "ReliefWebRetrievalComplete" {
		t.Fatalf("unexpected step %q", st.CurrentStep)
	}
}

func TestReliefWebTruncatesLongBodies(t *testing.T) {
	longBody := strings.Repeat("x", maxBodyChars+500)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		resp := map[string]any{
			"totalCount": 1,
			"data": []map[string]any{{
				"id": "1",
				"fields": map[string]any{
					"title": "Long report",
					"body":  longBody,
				},
			}},
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	st := retrievalState(state.SearchQuery{Query: "q", SourceType: state.SourceUNReports})
	r := fastReliefWeb(srv)
	r.Run(context.Background(), st)

	if len(st.Documents) != 1 {
		t.Fatalf("expected 1 document, got %d", len(st.Documents))
	}
	content := st.Documents[0].Content
	if !strings.HasSuffix(content, "... [truncated]") {
		t.Fatal("long body must be truncated")
	}
	if len(content) > maxBodyChars+len("... [truncated]") {
		t.Fatalf("content too long: %d chars", len(content))
	}
	// Absent score and language fall back to defaults.
	if st.Documents[0].RelevanceScore != 1.0 {
		t.Fatalf("default relevance = %v, want 1.0", st.Documents[0].RelevanceScore)
	}
	if st.Documents[0].Language != "English" {
		t.Fatalf("default language = %q", st.Documents[0].Language)
	}
}

func TestReliefWebBatchDeduplicates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		io.WriteString(w, reliefWebFixture)
	}))
	defer srv.Close()

	st := retrievalState(
		state.SearchQuery{Query: "inflation", SourceType: state.SourceUNReports},
		state.SearchQuery{Query: "food prices", SourceType: state.SourceUNReports},
	)
	r := fastReliefWeb(srv)
	r.Run(context.Background(), st)

	if len(st.Documents) != 1 {
		t.Fatalf("same report from two queries must dedup to 1, got %d", len(st.Documents))
	}
}

func TestReliefWebNilPlanWarns(t *testing.T) {
	st := retrievalState()
	st.SearchPlan = nil

	r := NewReliefWeb("test-app", "http://unused", 50, zap.NewNop())
	r.Run(context.Background(), st)

	found := false
	for _, w := range st.Warnings {
		if strings.Contains(w, "skipping ReliefWeb retrieval") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected skip warning, got %v", st.Warnings)
	}
}

func TestReliefWebFailureDegrades(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		http.Error(w, "upstream down", http.StatusInternalServerError)
	}))
	defer srv.Close()

	// Plan with only news queries: the retriever falls back to one broad
	// country fetch, whose failure must warn, not fail.
	st := retrievalState(state.SearchQuery{Query: "q", SourceType: state.SourceNews, DataSource: "GDELT"})
	r := fastReliefWeb(srv)
	r.Run(context.Background(), st)

	if st.Failed() {
		t.Fatalf("retrieval failure must not fail the run: %s", st.Error)
	}
	found := false
	for _, w := range st.Warnings {
		if strings.HasPrefix(w, "ReliefWebRetrieverError:") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected ReliefWebRetrieverError warning, got %v", st.Warnings)
	}
}

func TestThemesForUnionsCategories(t *testing.T) {
	r := NewReliefWeb("a", "b", 10, zap.NewNop())
	themes := r.themesFor([]state.RiskCategory{state.RiskConflict, state.RiskNaturalHazard})

	seen := map[string]int{}
	for _, theme := range themes {
		seen[theme]++
	}
	for theme, n := range seen {
		if n > 1 {
			t.Fatalf("theme %q duplicated", theme)
		}
	}
	if seen["Protection"] != 1 || seen["Disaster Management"] != 1 {
		t.Fatalf("union missing expected themes: %v", themes)
	}
}
