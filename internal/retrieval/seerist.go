package retrieval

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/edacrema/ACTIVE-WARNINGS-Updater/internal/retry"
	"github.com/edacrema/ACTIVE-WARNINGS-Updater/internal/state"
)

// seeristTopics maps risk categories to Seerist topic parameters.
var seeristTopics = map[string][]string{
	"conflict":       {"conflict", "unrest", "terrorism", "crime"},
	"economic":       {"unrest", "transportation"},
	"natural hazard": {"disaster", "health"},
}

var (
	htmlTagPattern    = regexp.MustCompile(`<[^>]+>`)
	whitespacePattern = regexp.MustCompile(`\s+`)
)

// Seerist fetches curated analyst reports. Content arrives directly in the
// API response as GeoJSON features with language-keyed text fields, so no
// scraping is needed.
type Seerist struct {
	Client   Doer
	APIKey   string
	BaseURL  string
	PageSize int
	Log      *zap.Logger

	policy   retry.Policy
	throttle *throttle
}

// NewSeerist builds the retriever with its rate limiter and retry policy.
func NewSeerist(apiKey, baseURL string, pageSize int, log *zap.Logger) *Seerist {
	return &Seerist{
		Client:   defaultHTTPClient(),
		APIKey:   apiKey,
		BaseURL:  baseURL,
		PageSize: pageSize,
		Log:      log,
		policy:   retry.Policy{MaxAttempts: 3, BaseDelay: 2 * time.Second},
		throttle: newThrottle(500 * time.Millisecond),
	}
}

// Run retrieves analyst reports for the plan's news/Seerist queries plus two
// broad fallback queries, deduplicates by document id, and appends to state.
func (s *Seerist) Run(ctx context.Context, st *state.RunState) {
	s.Log.Info("running seerist retriever", zap.String("country", st.Country))

	if st.SearchPlan == nil {
		st.AddWarning("No search plan found, skipping Seerist retrieval")
		return
	}
	if s.APIKey == "" {
		st.AddWarning("SeeristRetrieverError: API key not configured")
		return
	}

	var queries []string
	for _, q := range st.SearchPlan.Queries {
		if q.SourceType == state.SourceNews || q.DataSource == "Seerist" {
			queries = append(queries, q.Query)
		}
	}
	if len(queries) == 0 {
		st.AddWarning("No Seerist queries in search plan")
		return
	}

	// Broad Lucene fallbacks so thin plans still return something.
	queries = append(queries,
		fmt.Sprintf("%s AND economic", st.Country),
		fmt.Sprintf("%s AND political", st.Country))

	seen := map[string]bool{}
	var docs []state.Document
	for _, query := range queries {
		fetched, err := s.fetch(ctx, st, query, 20)
		if err != nil {
			st.AddWarning("SeeristRetrieverError: query %q: %v", query, err)
			continue
		}
		for _, doc := range fetched {
			if !seen[doc.DocID] {
				seen[doc.DocID] = true
				docs = append(docs, doc)
			}
		}
	}

	st.Documents = append(st.Documents, docs...)
	s.Log.Info("seerist retrieval complete",
		zap.Int("contributed", len(docs)),
		zap.Int("total_documents", len(st.Documents)))
	st.CurrentStep = "SeeristRetrievalComplete"
}

type seeristResponse struct {
	Metadata struct {
		Total int `json:"total"`
	} `json:"metadata"`
	Features []seeristFeature `json:"features"`
}

type seeristFeature struct {
	Geometry   json.RawMessage `json:"geometry"`
	Properties struct {
		ID            json.Number       `json:"id"`
		Title         map[string]string `json:"title"`
		Body          map[string]string `json:"body"`
		SanitizedBody map[string]string `json:"sanitizedBody"`
		SanitizedSum  map[string]string `json:"sanitizedSummary"`
		PublishedDate string            `json:"publishedDate"`
		Timestamp     string            `json:"@timestamp"`
		Risks         []seeristNamed    `json:"risks"`
		Regions       []seeristNamed    `json:"regions"`
		Countries     []seeristCountry  `json:"countries"`
		Tags          []seeristTag      `json:"tags"`
	} `json:"properties"`
}

type seeristNamed struct {
	Name string `json:"name"`
}

type seeristCountry struct {
	Code string `json:"code"`
	Name []struct {
		LanguageCode string `json:"languageCode"`
		Text         string `json:"text"`
	} `json:"name"`
}

type seeristTag struct {
	Name map[string]string `json:"name"`
}

func (s *Seerist) fetch(ctx context.Context, st *state.RunState, query string, maxRecords int) ([]state.Document, error) {
	s.throttle.wait()
	s.Log.Debug("seerist query", zap.String("query", query))

	start, err := formatSeeristTime(st.UpdatePeriodStart)
	if err != nil {
		return nil, err
	}
	end, err := formatSeeristTime(st.UpdatePeriodEnd)
	if err != nil {
		return nil, err
	}

	pageSize := maxRecords
	if s.PageSize > 0 && pageSize > s.PageSize {
		pageSize = s.PageSize
	}

	params := url.Values{}
	params.Set("sources", "analysis")
	params.Set("start", start)
	params.Set("end", end)
	params.Set("pageSize", fmt.Sprintf("%d", pageSize))
	params.Set("pageOffset", "0")
	params.Set("sortDirection", "desc")
	if q := strings.TrimSpace(query); q != "" {
		params.Set("search", q)
	}
	if code, ok := countryCodes[st.Country]; ok {
		params.Set("aoiId", code)
	}
	if topics := topicsFor(st.RiskCategories); len(topics) > 0 {
		params.Set("topic", strings.Join(topics, ","))
	}

	var parsed seeristResponse
	err = s.policy.Do(ctx, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.BaseURL+"?"+params.Encode(), nil)
		if err != nil {
			return err
		}
		req.Header.Set("x-api-key", s.APIKey)

		resp, err := s.Client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			io.Copy(io.Discard, resp.Body)
			return fmt.Errorf("seerist returned %s", resp.Status)
		}
		return json.NewDecoder(resp.Body).Decode(&parsed)
	})
	if err != nil {
		return nil, err
	}

	s.Log.Debug("seerist response",
		zap.Int("reports", len(parsed.Features)),
		zap.Int("total_available", parsed.Metadata.Total))

	docs := make([]state.Document, 0, len(parsed.Features))
	for idx, feature := range parsed.Features {
		doc := mapSeeristFeature(feature, idx)
		if doc.Content != "" {
			docs = append(docs, doc)
		}
	}
	return docs, nil
}

func topicsFor(categories []state.RiskCategory) []string {
	seen := map[string]bool{}
	var topics []string
	for _, rc := range categories {
		for _, topic := range seeristTopics[strings.ToLower(string(rc))] {
			if !seen[topic] {
				seen[topic] = true
				topics = append(topics, topic)
			}
		}
	}
	sort.Strings(topics)
	return topics
}

// mapSeeristFeature converts one GeoJSON feature into a document. Relevance
// is position-based since analyst reports carry no severity score.
func mapSeeristFeature(feature seeristFeature, idx int) state.Document {
	props := feature.Properties

	title := extractText(props.Title)
	content := extractText(props.SanitizedBody)
	if content == "" {
		if html := extractText(props.Body); html != "" {
			content = stripHTML(html)
		}
	}
	if content == "" {
		content = extractText(props.SanitizedSum)
	}

	date := props.PublishedDate
	if date == "" {
		date = props.Timestamp
	}

	id := props.ID.String()
	if id == "" {
		id = fmt.Sprintf("%d", idx)
	}

	relevance := 1.0 - float64(idx)*0.05
	if relevance < 0.5 {
		relevance = 0.5
	}

	language := "en"
	if _, ok := props.Title["en"]; !ok && len(props.Title) > 0 {
		langs := make([]string, 0, len(props.Title))
		for lang := range props.Title {
			langs = append(langs, lang)
		}
		sort.Strings(langs)
		language = langs[0]
	}

	risks := make([]string, 0, len(props.Risks))
	for _, r := range props.Risks {
		risks = append(risks, r.Name)
	}
	regions := make([]string, 0, len(props.Regions))
	for _, r := range props.Regions {
		regions = append(regions, r.Name)
	}
	var countries []string
	for _, c := range props.Countries {
		for _, n := range c.Name {
			if n.LanguageCode == "en" {
				countries = append(countries, n.Text)
			}
		}
	}
	tags := make([]string, 0, len(props.Tags))
	for _, t := range props.Tags {
		tags = append(tags, extractText(t.Name))
	}

	return state.Document{
		DocID:          fmt.Sprintf("seerist_%s", id),
		Title:          title,
		URL:            "", // analyst reports have no public URL
		Source:         "Seerist",
		Date:           date,
		Language:       language,
		Content:        content,
		RelevanceScore: relevance,
		Metadata: map[string]any{
			"seerist_id": id,
			"risks":      risks,
			"countries":  countries,
			"regions":    regions,
			"tags":       tags,
			"geometry":   feature.Geometry,
		},
	}
}

// extractText pulls English text from a language-keyed field, falling back to
// any available language.
func extractText(field map[string]string) string {
	if len(field) == 0 {
		return ""
	}
	if text := field["en"]; text != "" {
		return text
	}
	langs := make([]string, 0, len(field))
	for lang := range field {
		langs = append(langs, lang)
	}
	sort.Strings(langs)
	for _, lang := range langs {
		if field[lang] != "" {
			return field[lang]
		}
	}
	return ""
}

func stripHTML(html string) string {
	clean := htmlTagPattern.ReplaceAllString(html, " ")
	clean = whitespacePattern.ReplaceAllString(clean, " ")
	return strings.TrimSpace(clean)
}

func formatSeeristTime(s string) (string, error) {
	t, err := parseInputDate(s)
	if err != nil {
		return "", err
	}
	return t.UTC().Format("2006-01-02T15:04:05.000Z"), nil
}
