package retrieval

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/net/html"

	"github.com/edacrema/ACTIVE-WARNINGS-Updater/internal/retry"
	"github.com/edacrema/ACTIVE-WARNINGS-Updater/internal/state"
)

// GDELT fetches news article metadata from the GDELT DOC 2.0 API and scrapes
// the full article text from each source URL. Scraping is best-effort: sites
// behind paywalls or heavy scripting yield empty content, never errors.
type GDELT struct {
	Client     Doer
	BaseURL    string
	MaxRecords int
	Log        *zap.Logger

	policy   retry.Policy
	throttle *throttle
	now      func() time.Time
}

// NewGDELT builds the retriever with its rate limiter and retry policy.
func NewGDELT(baseURL string, maxRecords int, log *zap.Logger) *GDELT {
	return &GDELT{
		Client:     defaultHTTPClient(),
		BaseURL:    baseURL,
		MaxRecords: maxRecords,
		Log:        log,
		policy:     retry.Policy{MaxAttempts: 3, BaseDelay: 2 * time.Second},
		throttle:   newThrottle(time.Second),
		now:        time.Now,
	}
}

// Run retrieves and scrapes articles for the plan's news queries plus broad
// fallbacks, applies the preferred-domain filter, deduplicates by URL, and
// appends to state.
func (g *GDELT) Run(ctx context.Context, st *state.RunState) {
	g.Log.Info("running gdelt retriever", zap.String("country", st.Country))

	if st.SearchPlan == nil {
		st.AddWarning("No search plan found, skipping GDELT retrieval")
		return
	}

	var queries []string
	for _, q := range st.SearchPlan.Queries {
		if q.SourceType == state.SourceNews || q.DataSource == "GDELT" {
			queries = append(queries, q.Query)
		}
	}
	if len(queries) == 0 {
		st.AddWarning("No GDELT queries in search plan")
		return
	}

	queries = append(queries,
		fmt.Sprintf("%s economic", st.Country),
		fmt.Sprintf("%s political", st.Country))

	if filter := domainFilter(st.PreferredDomains); filter != "" {
		g.Log.Debug("applying domain filter", zap.String("filter", filter))
		for i, q := range queries {
			queries[i] = q + " " + filter
		}
	}

	seenURLs := map[string]bool{}
	var docs []state.Document
	for _, query := range queries {
		fetched, err := g.fetch(ctx, st, query, 10)
		if err != nil {
			st.AddWarning("GDELTRetrieverError: query %q: %v", query, err)
			continue
		}
		for _, doc := range fetched {
			if !seenURLs[doc.URL] {
				seenURLs[doc.URL] = true
				docs = append(docs, doc)
			}
		}
	}

	st.Documents = append(st.Documents, docs...)
	g.Log.Info("gdelt retrieval complete",
		zap.Int("contributed", len(docs)),
		zap.Int("total_documents", len(st.Documents)))
	st.CurrentStep = "GDELTRetrievalComplete"
}

// domainFilter renders the preferred domains as a GDELT query clause like
// "(domain:bbc.co.uk OR domain:reuters.com)".
func domainFilter(domains []string) string {
	if len(domains) == 0 {
		return ""
	}
	parts := make([]string, len(domains))
	for i, d := range domains {
		parts[i] = "domain:" + d
	}
	return "(" + strings.Join(parts, " OR ") + ")"
}

type gdeltResponse struct {
	Articles []struct {
		URL      string `json:"url"`
		Title    string `json:"title"`
		SeenDate string `json:"seendate"`
		Language string `json:"language"`
	} `json:"articles"`
}

func (g *GDELT) fetch(ctx context.Context, st *state.RunState, query string, maxRecords int) ([]state.Document, error) {
	g.throttle.wait()
	g.Log.Debug("gdelt query", zap.String("query", query))

	start, err := formatGDELTTime(st.UpdatePeriodStart)
	if err != nil {
		return nil, err
	}
	end, err := formatGDELTTime(st.UpdatePeriodEnd)
	if err != nil {
		return nil, err
	}

	if g.MaxRecords > 0 && maxRecords > g.MaxRecords {
		maxRecords = g.MaxRecords
	}

	params := url.Values{}
	params.Set("query", query)
	params.Set("mode", "artlist")
	params.Set("maxrecords", fmt.Sprintf("%d", maxRecords))
	params.Set("format", "json")
	params.Set("startdatetime", start)
	params.Set("enddatetime", end)
	params.Set("sort", "datedesc")

	var parsed gdeltResponse
	err = g.policy.Do(ctx, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.BaseURL+"?"+params.Encode(), nil)
		if err != nil {
			return err
		}
		resp, err := g.Client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			io.Copy(io.Discard, resp.Body)
			return fmt.Errorf("gdelt returned %s", resp.Status)
		}
		return json.NewDecoder(resp.Body).Decode(&parsed)
	})
	if err != nil {
		return nil, err
	}

	g.Log.Debug("gdelt response", zap.Int("articles", len(parsed.Articles)))

	total := len(parsed.Articles)
	docs := make([]state.Document, 0, total)
	for idx, article := range parsed.Articles {
		content := g.scrape(ctx, article.URL)

		relevance := 1.0
		if total > 0 {
			relevance = 1.0 - float64(idx)/float64(total)
		}

		docs = append(docs, state.Document{
			DocID:          fmt.Sprintf("gdelt_%d_%d", g.now().Unix(), idx),
			Title:          article.Title,
			URL:            article.URL,
			Source:         "GDELT",
			Date:           article.SeenDate,
			Language:       article.Language,
			Content:        content,
			RelevanceScore: relevance,
		})
	}
	return docs, nil
}

// scrape pulls paragraph text out of the article page. Failures return empty
// content; the extractor skips contentless documents.
func (g *GDELT) scrape(ctx context.Context, articleURL string) string {
	if articleURL == "" {
		return ""
	}
	g.throttle.wait()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, articleURL, nil)
	if err != nil {
		return ""
	}
	req.Header.Set("User-Agent", browserUserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")

	resp, err := g.Client.Do(req)
	if err != nil {
		g.Log.Debug("scrape failed", zap.String("url", articleURL), zap.Error(err))
		return ""
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return ""
	}

	root, err := html.Parse(resp.Body)
	if err != nil {
		g.Log.Debug("scrape parse failed", zap.String("url", articleURL), zap.Error(err))
		return ""
	}

	paragraphs := collectParagraphText(root)
	if len(paragraphs) == 0 {
		// Fallback: all text on the page.
		return strings.TrimSpace(nodeText(root))
	}
	return strings.TrimSpace(strings.Join(paragraphs, " "))
}

func collectParagraphText(n *html.Node) []string {
	var out []string
	if n.Type == html.ElementNode && n.Data == "p" {
		if text := strings.TrimSpace(nodeText(n)); text != "" {
			out = append(out, text)
		}
		return out
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		out = append(out, collectParagraphText(c)...)
	}
	return out
}

func nodeText(n *html.Node) string {
	if n.Type == html.TextNode {
		return n.Data
	}
	if n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style") {
		return ""
	}
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if text := nodeText(c); text != "" {
			if b.Len() > 0 {
				b.WriteString(" ")
			}
			b.WriteString(text)
		}
	}
	return b.String()
}

func formatGDELTTime(s string) (string, error) {
	t, err := parseInputDate(s)
	if err != nil {
		return "", err
	}
	return t.UTC().Format("20060102150405"), nil
}
