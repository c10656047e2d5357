package retrieval

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/edacrema/ACTIVE-WARNINGS-Updater/internal/retry"
	"github.com/edacrema/ACTIVE-WARNINGS-Updater/internal/state"
)

// maxBodyChars caps report bodies; ReliefWeb reports can run to book length.
const maxBodyChars = 10000

// reliefWebThemes maps risk categories to ReliefWeb theme taxonomy names.
var reliefWebThemes = map[string][]string{
	"conflict": {
		"Protection",
		"Humanitarian Access",
		"Peacekeeping and Peacebuilding",
		"Mine Action",
		"Contributions",
	},
	"economic": {
		"Food and Nutrition",
		"Logistics and Telecommunications",
		"Contributions",
		"Recovery and Reconstruction",
	},
	"natural hazard": {
		"Climate Change and Environment",
		"Disaster Management",
		"Food and Nutrition",
	},
	"climate": {
		"Climate Change and Environment",
		"Disaster Management",
		"Food and Nutrition",
		"Water Sanitation Hygiene",
	},
}

// reliefWebCountries normalizes country names to ReliefWeb's conventions.
var reliefWebCountries = map[string]string{
	"Democratic Republic of Congo": "Democratic Republic of the Congo",
	"DRC":                          "Democratic Republic of the Congo",
	"Congo DRC":                    "Democratic Republic of the Congo",
	"Palestine":                    "occupied Palestinian territory",
	"Venezuela":                    "Venezuela (Bolivarian Republic of)",
}

// ReliefWeb fetches curated UN/INGO reports.
type ReliefWeb struct {
	Client      Doer
	AppName     string
	BaseURL     string
	MaxPerQuery int
	Log         *zap.Logger

	policy   retry.Policy
	throttle *throttle
}

// NewReliefWeb builds the retriever with its rate limiter and retry policy.
func NewReliefWeb(appName, baseURL string, maxPerQuery int, log *zap.Logger) *ReliefWeb {
	return &ReliefWeb{
		Client:      defaultHTTPClient(),
		AppName:     appName,
		BaseURL:     baseURL,
		MaxPerQuery: maxPerQuery,
		Log:         log,
		policy:      retry.Policy{MaxAttempts: 3, BaseDelay: 2 * time.Second},
		throttle:    newThrottle(500 * time.Millisecond),
	}
}

// Run retrieves reports for the plan's UN-report queries and appends them to
// the state. With no matching queries it falls back to one broad country
// fetch so the stage always contributes something when reports exist.
func (r *ReliefWeb) Run(ctx context.Context, st *state.RunState) {
	r.Log.Info("running reliefweb retriever", zap.String("country", st.Country))

	if st.SearchPlan == nil {
		st.AddWarning("No search plan found, skipping ReliefWeb retrieval")
		return
	}

	var keywords []string
	for _, q := range st.SearchPlan.Queries {
		if q.SourceType == state.SourceUNReports || q.DataSource == "ReliefWeb" {
			keywords = append(keywords, q.Query)
		}
	}

	themes := r.themesFor(st.RiskCategories)

	var docs []state.Document
	if len(keywords) > 0 {
		r.Log.Debug("processing reliefweb queries", zap.Int("queries", len(keywords)))
		docs = r.fetchBatch(ctx, st, keywords, themes)
	} else {
		r.Log.Debug("no specific queries, fetching all reports for country")
		fetched, err := r.fetch(ctx, st, "", themes, 100)
		if err != nil {
			st.AddWarning("ReliefWebRetrieverError: %v", err)
			return
		}
		docs = fetched
	}

	st.Documents = append(st.Documents, docs...)
	r.Log.Info("reliefweb retrieval complete",
		zap.Int("contributed", len(docs)),
		zap.Int("total_documents", len(st.Documents)))
	st.CurrentStep = "ReliefWebRetrievalComplete"
}

// themesFor unions the theme lists of every risk category.
func (r *ReliefWeb) themesFor(categories []state.RiskCategory) []string {
	seen := map[string]bool{}
	var themes []string
	for _, rc := range categories {
		for _, theme := range reliefWebThemes[string(rc)] {
			if !seen[theme] {
				seen[theme] = true
				themes = append(themes, theme)
			}
		}
	}
	sort.Strings(themes)
	return themes
}

// fetchBatch runs the keyword queries with bounded concurrency and
// deduplicates by document id. Query failures become warnings, not errors.
func (r *ReliefWeb) fetchBatch(ctx context.Context, st *state.RunState, keywords, themes []string) []state.Document {
	var (
		mu      sync.Mutex
		seen    = map[string]bool{}
		docs    []state.Document
		grp, gc = errgroup.WithContext(ctx)
	)
	grp.SetLimit(4)

	for _, kw := range keywords {
		kw := kw
		grp.Go(func() error {
			fetched, err := r.fetch(gc, st, kw, themes, r.MaxPerQuery)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				st.AddWarning("ReliefWebRetrieverError: query %q: %v", kw, err)
				return nil
			}
			for _, doc := range fetched {
				if !seen[doc.DocID] {
					seen[doc.DocID] = true
					docs = append(docs, doc)
				}
			}
			return nil
		})
	}
	grp.Wait()
	return docs
}

type reliefWebResponse struct {
	TotalCount int `json:"totalCount"`
	Data       []struct {
		ID     json.Number     `json:"id"`
		Score  float64         `json:"score"`
		Fields reliefWebFields `json:"fields"`
	} `json:"data"`
}

type reliefWebFields struct {
	Title  string `json:"title"`
	URL    string `json:"url"`
	Body   string `json:"body"`
	Source []struct {
		Name      string `json:"name"`
		Shortname string `json:"shortname"`
	} `json:"source"`
	Date struct {
		Created  string `json:"created"`
		Original string `json:"original"`
	} `json:"date"`
	Format []struct {
		Name string `json:"name"`
	} `json:"format"`
	Theme []struct {
		Name string `json:"name"`
	} `json:"theme"`
	Disaster []struct {
		Name string `json:"name"`
	} `json:"disaster"`
	Language []struct {
		Name string `json:"name"`
	} `json:"language"`
}

func (r *ReliefWeb) fetch(ctx context.Context, st *state.RunState, keywords string, themes []string, limit int) ([]state.Document, error) {
	r.throttle.wait()

	payload, err := r.buildPayload(st, keywords, themes, limit)
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s?appname=%s", r.BaseURL, r.AppName)

	var parsed reliefWebResponse
	err = r.policy.Do(ctx, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
		if err != nil {
			return err
		}
		req.Header.Set("User-Agent", browserUserAgent)
		req.Header.Set("Content-Type", "application/json")

		resp, err := r.Client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			io.Copy(io.Discard, resp.Body)
			return fmt.Errorf("reliefweb returned %s", resp.Status)
		}
		return json.NewDecoder(resp.Body).Decode(&parsed)
	})
	if err != nil {
		return nil, err
	}

	r.Log.Debug("reliefweb response",
		zap.Int("reports", len(parsed.Data)),
		zap.Int("total_available", parsed.TotalCount))

	docs := make([]state.Document, 0, len(parsed.Data))
	for idx, report := range parsed.Data {
		f := report.Fields

		source := "Unknown"
		if len(f.Source) > 0 {
			source = f.Source[0].Name
		}
		body := f.Body
		if len(body) > maxBodyChars {
			body = body[:maxBodyChars] + "... [truncated]"
		}
		language := "English"
		if len(f.Language) > 0 {
			language = f.Language[0].Name
		}
		format := ""
		if len(f.Format) > 0 {
			format = f.Format[0].Name
		}
		themes := make([]string, 0, len(f.Theme))
		for _, t := range f.Theme {
			themes = append(themes, t.Name)
		}
		disasters := make([]string, 0, len(f.Disaster))
		for _, d := range f.Disaster {
			disasters = append(disasters, d.Name)
		}

		id := report.ID.String()
		if id == "" {
			id = fmt.Sprintf("%d", idx)
		}
		relevance := report.Score
		if relevance == 0 {
			relevance = 1.0
		}

		docs = append(docs, state.Document{
			DocID:          fmt.Sprintf("reliefweb_%s", id),
			Title:          f.Title,
			URL:            f.URL,
			Source:         fmt.Sprintf("ReliefWeb - %s", source),
			Date:           f.Date.Created,
			Language:       language,
			Content:        body,
			RelevanceScore: relevance,
			Metadata: map[string]any{
				"format":        format,
				"themes":        themes,
				"disasters":     disasters,
				"original_date": f.Date.Original,
			},
		})
	}
	return docs, nil
}

func (r *ReliefWeb) buildPayload(st *state.RunState, keywords string, themes []string, limit int) ([]byte, error) {
	country := st.Country
	if normalized, ok := reliefWebCountries[country]; ok {
		country = normalized
	}

	from, err := formatReliefWebTime(st.UpdatePeriodStart)
	if err != nil {
		return nil, err
	}
	to, err := formatReliefWebTime(st.UpdatePeriodEnd)
	if err != nil {
		return nil, err
	}

	conditions := []map[string]any{
		{"field": "country", "value": country},
		{"field": "date.created", "value": map[string]string{"from": from, "to": to}},
	}
	if len(themes) > 0 {
		conditions = append(conditions, map[string]any{
			"field":    "theme",
			"value":    themes,
			"operator": "OR",
		})
	}

	payload := map[string]any{
		"preset":  "latest",
		"profile": "list",
		"limit":   limit,
		"filter": map[string]any{
			"operator":   "AND",
			"conditions": conditions,
		},
		"fields": map[string]any{
			"include": []string{
				"id", "title", "url",
				"source.name", "source.shortname",
				"date.created", "date.original",
				"body", "format.name", "theme.name",
				"disaster.name", "language.name",
			},
		},
	}
	if keywords != "" {
		payload["query"] = map[string]any{
			"value":    keywords,
			"fields":   []string{"title", "body"},
			"operator": "OR",
		}
	}
	return json.Marshal(payload)
}

func formatReliefWebTime(s string) (string, error) {
	t, err := parseInputDate(s)
	if err != nil {
		return "", err
	}
	return t.UTC().Format("2006-01-02T15:04:05+00:00"), nil
}
