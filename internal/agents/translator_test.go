package agents

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/edacrema/ACTIVE-WARNINGS-Updater/internal/state"
)

func TestTranslatorLeavesEnglishAlone(t *testing.T) {
	st := state.New(state.Inputs{Country: "Kenya"})
	st.Documents = []state.Document{
		{DocID: "doc_1", Title: "Drought update", Content: "Rains failed again.", Language: "en"},
		{DocID: "doc_2", Title: "Sitrep", Content: "Access constrained.", Language: "English"},
		{DocID: "doc_3", Title: "Empty language", Content: "Defaults to English.", Language: ""},
	}

	llm := scriptedLLM()
	tr := &Translator{LLM: llm, Model: "gemini-2.5-pro", Log: testLogger()}
	tr.Run(context.Background(), st)

	if len(llm.prompts) != 0 {
		t.Fatalf("no generation calls expected for English documents, got %d", len(llm.prompts))
	}
	for _, doc := range st.Documents {
		if doc.Translated {
			t.Fatalf("doc %s must not be marked translated", doc.DocID)
		}
	}
	if st.CurrentStep != "TranslationComplete" {
		t.Fatalf("unexpected step %q", st.CurrentStep)
	}
}

func TestTranslatorRewritesInPlace(t *testing.T) {
	st := state.New(state.Inputs{Country: "Haiti"})
	st.Documents = []state.Document{{
		DocID:    "doc_1",
		Title:    "Crise alimentaire",
		Content:  "La situation se détériore.",
		Language: "fr",
	}}

	tr := &Translator{
		LLM:   scriptedLLM("The situation is deteriorating.", "Food crisis"),
		Model: "gemini-2.5-pro",
		Log:   testLogger(),
	}
	tr.Run(context.Background(), st)

	doc := st.Documents[0]
	if doc.Content != "The situation is deteriorating." {
		t.Fatalf("content not translated: %q", doc.Content)
	}
	if doc.Title != "Food crisis" {
		t.Fatalf("title not translated: %q", doc.Title)
	}
	if doc.Language != "en" || !doc.Translated {
		t.Fatal("document must be marked as translated English")
	}
	if doc.Metadata["original_language"] != "fr" {
		t.Fatalf("original language not archived: %v", doc.Metadata)
	}
	if doc.Metadata["original_title"] != "Crise alimentaire" {
		t.Fatalf("original title not archived: %v", doc.Metadata)
	}
	if doc.Metadata["translation_model"] != "gemini-2.5-pro" {
		t.Fatalf("translation model not recorded: %v", doc.Metadata)
	}
}

func TestTranslatorDegradesPerDocument(t *testing.T) {
	st := state.New(state.Inputs{Country: "Haiti"})
	st.Documents = []state.Document{
		{DocID: "doc_1", Title: "Titre", Content: "Contenu.", Language: "fr"},
		{DocID: "doc_2", Title: "Título", Content: "Contenido.", Language: "es"},
	}

	calls := 0
	llm := &mockLLM{}
	llm.CompleteFunc = func(ctx context.Context, prompt string) (string, error) {
		calls++
		if calls == 1 {
			return "", errors.New("quota exceeded")
		}
		return "translated", nil
	}

	tr := &Translator{LLM: llm, Model: "gemini-2.5-pro", Log: testLogger()}
	tr.Run(context.Background(), st)

	if st.Failed() {
		t.Fatalf("translation failures must not fail the run: %s", st.Error)
	}
	if st.Documents[0].Translated {
		t.Fatal("failed document must keep its original state")
	}
	if !st.Documents[1].Translated {
		t.Fatal("second document must still be translated")
	}

	found := false
	for _, w := range st.Warnings {
		if strings.Contains(w, "TranslationAgentError") && strings.Contains(w, "doc_1") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a per-document warning, got %v", st.Warnings)
	}
}
