package agents

import (
	"context"
	"strings"
	"testing"

	"github.com/edacrema/ACTIVE-WARNINGS-Updater/internal/state"
)

func TestExtractorStampsCountryAndIDs(t *testing.T) {
	st := state.New(state.Inputs{
		Country:        "Sudan",
		RiskCategories: []state.RiskCategory{state.RiskConflict},
	})
	st.Documents = []state.Document{
		{DocID: "reliefweb_1", Content: "Heavy fighting in El Fasher."},
	}

	ex := &Extractor{
		LLM: scriptedLLM(`{"events": [
			{"event_id": "evt_001", "country": "Wrong", "driver": "conflict",
			 "statement": "Clashes in El Fasher", "source_ids": ["reliefweb_1"]},
			{"driver": "conflict", "statement": "Unnumbered event", "source_ids": ["reliefweb_1"]}
		]}`),
		Log: testLogger(),
	}
	ex.Run(context.Background(), st)

	if len(st.Events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(st.Events))
	}
	for _, evt := range st.Events {
		if evt.Country != "Sudan" {
			t.Fatalf("event country must be stamped from the run, got %q", evt.Country)
		}
	}
	if st.Events[0].EventID != "evt_001" {
		t.Fatalf("existing event id must be kept, got %q", st.Events[0].EventID)
	}
	if !strings.HasPrefix(st.Events[1].EventID, "evt_") || len(st.Events[1].EventID) < 10 {
		t.Fatalf("missing event id must be generated, got %q", st.Events[1].EventID)
	}
}

func TestExtractorSkipsWithoutContent(t *testing.T) {
	st := state.New(state.Inputs{Country: "Sudan"})
	st.Documents = []state.Document{{DocID: "gdelt_1", Content: ""}}

	llm := scriptedLLM()
	ex := &Extractor{LLM: llm, Log: testLogger()}
	ex.Run(context.Background(), st)

	if len(llm.prompts) != 0 {
		t.Fatal("no generation call expected without content")
	}
	if st.Events == nil || len(st.Events) != 0 {
		t.Fatalf("expected empty event list, got %v", st.Events)
	}
}

func TestExtractorParseFailureDegrades(t *testing.T) {
	st := state.New(state.Inputs{Country: "Sudan"})
	st.Documents = []state.Document{{DocID: "reliefweb_1", Content: "text"}}

	ex := &Extractor{LLM: scriptedLLM("I could not find any events."), Log: testLogger()}
	ex.Run(context.Background(), st)

	if st.Failed() {
		t.Fatalf("parse failure must not fail the run: %s", st.Error)
	}
	if len(st.Events) != 0 {
		t.Fatalf("expected no events, got %d", len(st.Events))
	}
	found := false
	for _, w := range st.Warnings {
		if strings.Contains(w, "EventExtractorParseError") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected EventExtractorParseError warning, got %v", st.Warnings)
	}
}

func TestExtractorRejectsNonListEvents(t *testing.T) {
	st := state.New(state.Inputs{Country: "Sudan"})
	st.Documents = []state.Document{{DocID: "reliefweb_1", Content: "text"}}

	ex := &Extractor{LLM: scriptedLLM(`{"events": {"oops": true}}`), Log: testLogger()}
	ex.Run(context.Background(), st)

	if len(st.Events) != 0 {
		t.Fatalf("expected no events, got %d", len(st.Events))
	}
	if len(st.Warnings) == 0 {
		t.Fatal("expected a parse warning")
	}
}

func TestExtractorTruncatesLongDocuments(t *testing.T) {
	st := state.New(state.Inputs{Country: "Sudan"})
	st.Documents = []state.Document{{
		DocID:   "reliefweb_1",
		Content: strings.Repeat("a", maxDocChars+500),
	}}

	llm := scriptedLLM(`{"events": []}`)
	ex := &Extractor{LLM: llm, Log: testLogger()}
	ex.Run(context.Background(), st)

	if len(llm.prompts) != 1 {
		t.Fatalf("expected 1 call, got %d", len(llm.prompts))
	}
	if !strings.Contains(llm.prompts[0], "... [truncated]") {
		t.Fatal("long document must be truncated in the prompt")
	}
	if strings.Contains(llm.prompts[0], strings.Repeat("a", maxDocChars+1)) {
		t.Fatal("full document must not reach the prompt")
	}
}
