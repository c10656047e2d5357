package agents

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/edacrema/ACTIVE-WARNINGS-Updater/internal/llm"
	"github.com/edacrema/ACTIVE-WARNINGS-Updater/internal/state"
)

// englishLangCodes are the language identifiers the retrievers emit for
// English content.
var englishLangCodes = map[string]bool{
	"en":      true,
	"eng":     true,
	"english": true,
}

// Translator rewrites non-English documents into English in place, archiving
// the originals under document metadata. Per-document failures degrade to
// warnings so one bad document never blocks the rest.
type Translator struct {
	LLM   llm.Client
	Model string
	Log   *zap.Logger
}

// Run translates every non-English document with content.
func (t *Translator) Run(ctx context.Context, st *state.RunState) {
	t.Log.Info("running translator", zap.String("country", st.Country))

	if len(st.Documents) == 0 {
		t.Log.Info("no documents to translate")
		st.CurrentStep = "TranslationComplete"
		return
	}

	translated := 0
	for i := range st.Documents {
		doc := &st.Documents[i]
		lang := strings.ToLower(doc.Language)
		if lang == "" {
			lang = "en"
		}
		if englishLangCodes[lang] || doc.Content == "" {
			continue
		}

		t.Log.Debug("translating document",
			zap.String("doc_id", doc.DocID),
			zap.String("language", lang))

		content, err := t.LLM.Complete(ctx, fmt.Sprintf(translationPrompt, doc.Content))
		if err != nil {
			st.AddWarning("TranslationAgentError: doc %s: %v", doc.DocID, err)
			continue
		}
		title, err := t.LLM.Complete(ctx, fmt.Sprintf(translationPrompt, doc.Title))
		if err != nil {
			st.AddWarning("TranslationAgentError: doc %s: %v", doc.DocID, err)
			continue
		}

		if doc.Metadata == nil {
			doc.Metadata = map[string]any{}
		}
		doc.Metadata["original_language"] = lang
		doc.Metadata["original_title"] = doc.Title
		doc.Metadata["translation_model"] = t.Model

		doc.Content = content
		doc.Title = title
		doc.Language = "en"
		doc.Translated = true
		translated++
	}

	t.Log.Info("translation complete", zap.Int("translated", translated))
	st.CurrentStep = "TranslationComplete"
}
