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

func fastSeerist(srv *httptest.Server) *Seerist {
	s := NewSeerist("secret-key", srv.URL, 50, zap.NewNop())
	s.Client = srv.Client()
	s.policy = retry.Policy{MaxAttempts: 1, BaseDelay: time.Millisecond}
	s.throttle = newThrottle(0)
	return s
}

const seeristFixture = `{
	"metadata": {"total": 1},
	"features": [{
		"geometry": {"type": "Point", "coordinates": [66.0, 33.0]},
		"properties": {
			"id": 98765,
			"title": {"en": "Protests escalate in the capital"},
			"sanitizedBody": {"en": "Security forces dispersed protesters on Monday."},
			"publishedDate": "2026-07-20T09:00:00.000Z",
			"risks": [{"name": "Civil Unrest"}],
			"countries": [{"code": "BO", "name": [{"languageCode": "en", "text": "Bolivia"}]}],
			"tags": [{"name": {"en": "protest"}}]
		}
	}]
}`

func TestSeeristFetchAndMap(t *testing.T) {
	var requests int
	var gotKey, gotSources, gotTopics, gotAOI string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		requests++
		gotKey = req.Header.Get("x-api-key")
		gotSources = req.URL.Query().Get("sources")
		gotTopics = req.URL.Query().Get("topic")
		gotAOI = req.URL.Query().Get("aoiId")
		io.WriteString(w, seeristFixture)
	}))
	defer srv.Close()

	st := state.New(state.Inputs{
		Country:           "Bolivia",
		RiskCategories:    []state.RiskCategory{state.RiskConflict},
		UpdatePeriodStart: "2026-06-01",
		UpdatePeriodEnd:   "2026-08-01",
	})
	st.SearchPlan = &state.SearchPlan{
		Queries:   []state.SearchQuery{{Query: "Bolivia protests", SourceType: state.SourceNews, DataSource: "Seerist"}},
		Rationale: "test",
	}

	s := fastSeerist(srv)
	s.Run(context.Background(), st)

	// One planned query plus the two broad fallbacks.
	if requests != 3 {
		t.Fatalf("expected 3 requests, got %d", requests)
	}
	if gotKey != "secret-key" {
		t.Fatalf("x-api-key = %q", gotKey)
	}
	if gotSources != "analysis" {
		t.Fatalf("sources = %q", gotSources)
	}
	if !strings.Contains(gotTopics, "unrest") {
		t.Fatalf("topics = %q", gotTopics)
	}
	if gotAOI != "BO" {
		t.Fatalf("aoiId = %q", gotAOI)
	}

	if len(st.Documents) != 1 {
		t.Fatalf("same feature from three queries must dedup to 1, got %d", len(st.Documents))
	}
	doc := st.Documents[0]
	if doc.DocID != "seerist_98765" {
		t.Fatalf("unexpected doc id %q", doc.DocID)
	}
	if doc.Content != "Security forces dispersed protesters on Monday." {
		t.Fatalf("unexpected content %q", doc.Content)
	}
	if doc.Source != "Seerist" || doc.Language != "en" {
		t.Fatalf("unexpected source/language: %q/%q", doc.Source, doc.Language)
	}
	if st.CurrentStep != "SeeristRetrievalComplete" {
		t.Fatalf("unexpected step %q", st.CurrentStep)
	}
}

func TestSeeristMissingKeyWarns(t *testing.T) {
	st := retrievalState(state.SearchQuery{Query: "q", SourceType: state.SourceNews})
	s := NewSeerist("", "http://unused", 50, zap.NewNop())
	s.Run(context.Background(), st)

	found := false
	for _, w := range st.Warnings {
		if strings.Contains(w, "API key not configured") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected missing-key warning, got %v", st.Warnings)
	}
}

func TestSeeristNoQueriesWarns(t *testing.T) {
	st := retrievalState(state.SearchQuery{Query: "q", SourceType: state.SourceUNReports, DataSource: "ReliefWeb"})
	s := NewSeerist("key", "http://unused", 50, zap.NewNop())
	s.Run(context.Background(), st)

	found := false
	for _, w := range st.Warnings {
		if w == "No Seerist queries in search plan" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected no-queries warning, got %v", st.Warnings)
	}
}

func TestMapSeeristFeatureFallbacks(t *testing.T) {
	var feature seeristFeature
	raw := `{
		"properties": {
			"id": 7,
			"title": {"fr": "Crise au Sahel"},
			"body": {"fr": "<p>La situation   se dégrade.</p>"},
			"@timestamp": "2026-07-01T00:00:00.000Z"
		}
	}`
	if err := json.Unmarshal([]byte(raw), &feature); err != nil {
		t.Fatal(err)
	}

	doc := mapSeeristFeature(feature, 15)

	if doc.Language != "fr" {
		t.Fatalf("language fallback = %q, want fr", doc.Language)
	}
	if doc.Content != "La situation se dégrade." {
		t.Fatalf("HTML not stripped: %q", doc.Content)
	}
	if doc.Date != "2026-07-01T00:00:00.000Z" {
		t.Fatalf("timestamp fallback not applied: %q", doc.Date)
	}
	if doc.RelevanceScore != 0.5 {
		t.Fatalf("relevance floor = %v, want 0.5", doc.RelevanceScore)
	}
}

func TestSeeristSkipsEmptyContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		io.WriteString(w, `{"metadata": {"total": 1}, "features": [{"properties": {"id": 1, "title": {"en": "No body"}}}]}`)
	}))
	defer srv.Close()

	st := retrievalState(state.SearchQuery{Query: "q", SourceType: state.SourceNews})
	s := fastSeerist(srv)
	s.Run(context.Background(), st)

	if len(st.Documents) != 0 {
		t.Fatalf("contentless features must be dropped, got %d docs", len(st.Documents))
	}
}

func TestExtractTextPrefersEnglish(t *testing.T) {
	if got := extractText(map[string]string{"fr": "bonjour", "en": "hello"}); got != "hello" {
		t.Fatalf("got %q", got)
	}
	if got := extractText(map[string]string{"es": "hola"}); got != "hola" {
		t.Fatalf("got %q", got)
	}
	if got := extractText(nil); got != "" {
		t.Fatalf("got %q", got)
	}
}
