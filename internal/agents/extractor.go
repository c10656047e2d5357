package agents

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/edacrema/ACTIVE-WARNINGS-Updater/internal/jsonutil"
	"github.com/edacrema/ACTIVE-WARNINGS-Updater/internal/llm"
	"github.com/edacrema/ACTIVE-WARNINGS-Updater/internal/state"
)

// maxDocChars caps how much of each document goes into the extraction prompt.
// A few dozen docs at this size stay comfortably within model context.
const maxDocChars = 3000

// Extractor reads every retrieved document in a single generation call and
// produces a deduplicated list of structured events. Parse failures degrade
// to a warning with an empty event list; the pipeline continues.
type Extractor struct {
	LLM llm.Client
	Log *zap.Logger
}

// Run extracts events from all documents with content.
func (e *Extractor) Run(ctx context.Context, st *state.RunState) {
	e.Log.Info("running event extractor", zap.String("country", st.Country))

	docs := docsWithContent(st.Documents)
	if len(docs) == 0 {
		e.Log.Info("no documents with content, skipping extraction")
		st.Events = []state.Event{}
		st.CurrentStep = "EventExtractionComplete"
		return
	}

	block := buildDocumentsBlock(docs)
	e.Log.Debug("built document block",
		zap.Int("documents", len(docs)),
		zap.Int("chars", len(block)))

	prompt := fmt.Sprintf(extractionPrompt,
		st.Country, st.Country, st.RiskCategoryList(), len(docs), block)

	raw, err := e.LLM.Complete(ctx, prompt)
	if err != nil {
		st.AddWarning("EventExtractorError: %v", err)
		st.Events = []state.Event{}
		return
	}

	obj, err := jsonutil.DecodeObject(raw)
	if err != nil {
		st.AddWarning("EventExtractorParseError: %v", err)
		st.Events = []state.Event{}
		st.CurrentStep = "EventExtractionComplete"
		return
	}
	if err := jsonutil.RequireList(obj, "events", raw); err != nil {
		st.AddWarning("EventExtractorParseError: %v", err)
		st.Events = []state.Event{}
		st.CurrentStep = "EventExtractionComplete"
		return
	}

	var items []json.RawMessage
	if err := json.Unmarshal(obj["events"], &items); err != nil {
		st.AddWarning("EventExtractorParseError: %v", err)
		st.Events = []state.Event{}
		st.CurrentStep = "EventExtractionComplete"
		return
	}

	events := make([]state.Event, 0, len(items))
	for _, item := range items {
		var evt state.Event
		if err := json.Unmarshal(item, &evt); err != nil {
			e.Log.Warn("skipping malformed event entry", zap.Error(err))
			continue
		}
		evt.Country = st.Country
		if evt.EventID == "" {
			evt.EventID = fmt.Sprintf("evt_%s", uuid.NewString())
		}
		events = append(events, evt)
	}

	e.Log.Info("events extracted", zap.Int("events", len(events)))
	st.Events = events
	st.CurrentStep = "EventExtractionComplete"
}

func docsWithContent(docs []state.Document) []state.Document {
	out := make([]state.Document, 0, len(docs))
	for _, d := range docs {
		if d.Content != "" {
			out = append(out, d)
		}
	}
	return out
}

// buildDocumentsBlock concatenates documents into the prompt body, truncating
// each to maxDocChars.
func buildDocumentsBlock(docs []state.Document) string {
	var b strings.Builder
	for i, doc := range docs {
		if i > 0 {
			b.WriteString("\n\n")
		}
		content := doc.Content
		if len(content) > maxDocChars {
			content = content[:maxDocChars] + "... [truncated]"
		}
		source := doc.Source
		if source == "" {
			source = "Unknown"
		}
		date := doc.Date
		if date == "" {
			date = "Unknown"
		}
		fmt.Fprintf(&b, "=== Document %s (Source: %s, Date: %s) ===", doc.DocID, source, date)
		if doc.Title != "" {
			fmt.Fprintf(&b, "\nTitle: %s", doc.Title)
		}
		fmt.Fprintf(&b, "\n%s\n=== END %s ===", content, doc.DocID)
	}
	return b.String()
}
