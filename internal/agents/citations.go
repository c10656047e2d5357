package agents

import (
	"context"
	"regexp"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/edacrema/ACTIVE-WARNINGS-Updater/internal/state"
)

// citationPattern matches inline citations like [Source: evt_123] or
// [Source: evt_123, evt_456].
var citationPattern = regexp.MustCompile(`\[Source: ([\w, _-]+)\]`)

// CitationCompiler builds the annotated bibliography after the narrative loop
// converges: cited event IDs resolve to source documents, each unique
// document becomes one citation. Purely deterministic, no generation call.
type CitationCompiler struct {
	Log *zap.Logger
}

// Run compiles the citation list from paragraph one.
func (c *CitationCompiler) Run(ctx context.Context, st *state.RunState) {
	c.Log.Info("compiling citations")

	if st.NarrativeParagraph1 == "" || len(st.Events) == 0 || len(st.Documents) == 0 {
		c.Log.Info("nothing to cite, skipping")
		st.Citations = []state.Citation{}
		return
	}

	eventMap := make(map[string]state.Event, len(st.Events))
	for _, evt := range st.Events {
		eventMap[evt.EventID] = evt
	}
	docMap := make(map[string]state.Document, len(st.Documents))
	for _, doc := range st.Documents {
		docMap[doc.DocID] = doc
	}

	citedDocIDs := map[string]bool{}
	for _, match := range citationPattern.FindAllStringSubmatch(st.NarrativeParagraph1, -1) {
		for _, id := range strings.Split(match[1], ",") {
			evt, ok := eventMap[strings.TrimSpace(id)]
			if !ok {
				continue
			}
			for _, docID := range evt.SourceIDs {
				citedDocIDs[docID] = true
			}
		}
	}

	// Sorted for stable output across runs.
	ids := make([]string, 0, len(citedDocIDs))
	for id := range citedDocIDs {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	citations := make([]state.Citation, 0, len(ids))
	for _, docID := range ids {
		doc, ok := docMap[docID]
		if !ok {
			continue
		}

		lang := doc.Language
		var method string
		if doc.Metadata != nil {
			if v, ok := doc.Metadata["original_language"].(string); ok {
				lang = v
			}
			if v, ok := doc.Metadata["translation_model"].(string); ok {
				method = v
			}
		}
		title := doc.Title
		if title == "" {
			title = "No Title"
		}

		citations = append(citations, state.Citation{
			SourceID:          doc.DocID,
			Title:             title,
			URL:               doc.URL,
			Reliability:       reliabilityScore(doc),
			Language:          lang,
			TranslationMethod: method,
			Summary:           doc.Title,
			SupportsClaims:    []string{},
		})
	}

	c.Log.Info("citations compiled", zap.Int("citations", len(citations)))
	st.Citations = citations
	st.CurrentStep = "CitationComplete"
}

// reliabilityScore weights sources: curated UN/INGO reports highest, then
// professional analyst reports, then other media.
func reliabilityScore(doc state.Document) float64 {
	source := strings.ToLower(doc.Source)
	switch {
	case strings.Contains(source, "reliefweb"):
		return 1.0
	case strings.Contains(source, "seerist"):
		return 0.95
	default:
		return 0.75
	}
}
