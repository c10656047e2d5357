// Package retrieval implements the external data sources: ReliefWeb curated
// reports, Seerist analyst reports, and GDELT news with article scraping.
// Retrieval is never fatal: every failure degrades to a warning and an empty
// contribution so the pipeline always reaches synthesis.
package retrieval

import (
	"net/http"
	"sync"
	"time"
)

// Doer is the HTTP client surface the retrievers use; tests substitute a
// stub or an httptest server client.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// browserUserAgent avoids 403 responses from endpoints that reject default
// library user agents.
const browserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) " +
	"AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"

// defaultHTTPClient carries the shared request timeout.
func defaultHTTPClient() *http.Client {
	return &http.Client{Timeout: 30 * time.Second}
}

// throttle enforces a minimum interval between requests to one endpoint.
type throttle struct {
	mu       sync.Mutex
	interval time.Duration
	last     time.Time
}

func newThrottle(interval time.Duration) *throttle {
	return &throttle{interval: interval}
}

func (t *throttle) wait() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if elapsed := time.Since(t.last); elapsed < t.interval {
		time.Sleep(t.interval - elapsed)
	}
	t.last = time.Now()
}

// countryCodes maps monitored country names to ISO 3166-1 alpha-2 codes for
// the Seerist aoiId and GDELT sourcecountry parameters.
var countryCodes = map[string]string{
	"Afghanistan":                  "AF",
	"Angola":                       "AO",
	"Bangladesh":                   "BD",
	"Benin":                        "BJ",
	"Bolivia":                      "BO",
	"Burkina Faso":                 "BF",
	"Burundi":                      "BI",
	"Cambodia":                     "KH",
	"Cameroon":                     "CM",
	"Central African Republic":     "CF",
	"Chad":                         "TD",
	"Colombia":                     "CO",
	"Democratic Republic of Congo": "CD",
	"Cuba":                         "CU",
	"Ethiopia":                     "ET",
	"Guatemala":                    "GT",
	"Haiti":                        "HT",
	"Honduras":                     "HN",
	"Iraq":                         "IQ",
	"Kenya":                        "KE",
	"Lebanon":                      "LB",
	"Lesotho":                      "LS",
	"Madagascar":                   "MG",
	"Malawi":                       "MW",
	"Mali":                         "ML",
	"Mozambique":                   "MZ",
	"Myanmar":                      "MM",
	"Nepal":                        "NP",
	"Niger":                        "NE",
	"Nigeria":                      "NG",
	"Pakistan":                     "PK",
	"Palestine":                    "PS",
	"Somalia":                      "SO",
	"South Sudan":                  "SS",
	"Sudan":                        "SD",
	"Syria":                        "SY",
	"Uganda":                       "UG",
	"Venezuela":                    "VE",
	"Yemen":                        "YE",
	"Zimbabwe":                     "ZW",
}

// parseInputDate accepts the date formats runs are started with: plain
// YYYY-MM-DD or full RFC 3339.
func parseInputDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", s)
}
