// Package batch processes a watch list of risk entries through the pipeline,
// one markdown report per row plus a summary.
package batch

import (
	"regexp"
	"strings"

	"github.com/edacrema/ACTIVE-WARNINGS-Updater/internal/state"
)

// LikelihoodScore converts watch-list likelihood text to the 1-5 scale.
// Unknown or empty text defaults to moderate.
func LikelihoodScore(text string) int {
	switch strings.ToLower(strings.TrimSpace(text)) {
	case "very high":
		return 5
	case "high":
		return 4
	case "moderate":
		return 3
	case "low":
		return 2
	case "very low":
		return 1
	default:
		return 3
	}
}

// ImpactScore converts watch-list impact text to the 1-5 scale. The watch
// list sometimes expresses impact as affected-population brackets instead of
// words; both forms map onto the scale.
func ImpactScore(text string) int {
	lower := strings.ToLower(text)
	switch {
	case strings.Contains(lower, "very high"),
		strings.Contains(lower, "> 500"),
		strings.Contains(lower, ">500"):
		return 5
	case strings.Contains(lower, "high"),
		strings.Contains(lower, "250,000"),
		strings.Contains(lower, "250000"):
		return 4
	case strings.Contains(lower, "moderate"),
		strings.Contains(lower, "100,000"),
		strings.Contains(lower, "100000"):
		return 3
	case strings.Contains(lower, "low"):
		return 2
	default:
		return 3
	}
}

// ParseRiskCategories parses a watch-list risk type cell. "climate" maps to
// natural hazard, slash-separated values split into multiple categories, and
// anything unrecognized falls back to conflict.
func ParseRiskCategories(text string) []state.RiskCategory {
	cleaned := strings.ToLower(strings.TrimSpace(text))
	if cleaned == "" {
		return []state.RiskCategory{state.RiskConflict}
	}

	if strings.Contains(cleaned, "/") {
		var out []state.RiskCategory
		for _, part := range strings.Split(cleaned, "/") {
			out = append(out, singleCategory(strings.TrimSpace(part)))
		}
		return out
	}
	return []state.RiskCategory{singleCategory(cleaned)}
}

func singleCategory(text string) state.RiskCategory {
	switch text {
	case "climate", "natural hazard":
		return state.RiskNaturalHazard
	case "economic":
		return state.RiskEconomic
	default:
		return state.RiskConflict
	}
}

var (
	baseDomains = []string{
		"bbc.co.uk", "bbc.com", "reuters.com", "aljazeera.com",
		"theguardian.com", "apnews.com", "france24.com", "dw.com",
		"reliefweb.int", "unocha.org", "thenewhumanitarian.org",
	}
	africaDomains = []string{
		"theeastafrican.co.ke", "nation.africa", "allafrica.com",
		"africanews.com",
	}
	middleEastDomains   = []string{"middleeasteye.net", "al-monitor.com"}
	latinAmericaDomains = []string{"elpais.com", "infobae.com"}
	asiaDomains         = []string{"scmp.com", "asia.nikkei.com"}

	africanCountries = []string{
		"sudan", "south sudan", "ethiopia", "somalia", "kenya", "uganda",
		"democratic republic of the congo", "drc", "chad", "mali", "niger",
		"burkina faso", "nigeria", "mozambique", "madagascar", "lesotho",
		"mauritania", "libya",
	}
	middleEastCountries = []string{
		"yemen", "syria", "lebanon", "palestine", "gaza", "iran", "iraq",
	}
	latinAmericaCountries = []string{
		"haiti", "cuba", "venezuela", "colombia", "ecuador", "bolivia",
	}
	asiaCountries = []string{
		"afghanistan", "myanmar", "bangladesh", "nepal", "pakistan",
	}
)

// PreferredDomains returns the news domains to prioritize for a country:
// international wires always, regional outlets by region.
func PreferredDomains(country string) []string {
	lower := strings.ToLower(country)

	domains := append([]string{}, baseDomains...)
	if containsAny(lower, africanCountries) {
		domains = append(domains, africaDomains...)
	}
	if containsAny(lower, middleEastCountries) {
		domains = append(domains, middleEastDomains...)
	}
	if containsAny(lower, latinAmericaCountries) {
		domains = append(domains, latinAmericaDomains...)
	}
	if containsAny(lower, asiaCountries) {
		domains = append(domains, asiaDomains...)
	}
	if strings.Contains(lower, "ukraine") {
		domains = append(domains, "kyivindependent.com", "pravda.com.ua")
	}

	seen := map[string]bool{}
	out := domains[:0]
	for _, d := range domains {
		if !seen[d] {
			seen[d] = true
			out = append(out, d)
		}
	}
	return out
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

var (
	unsafeChars = regexp.MustCompile(`[^\w\s-]`)
	spaces      = regexp.MustCompile(`\s+`)
)

// SanitizeFilename renders text safe for use in output filenames.
func SanitizeFilename(text string, maxLength int) string {
	safe := unsafeChars.ReplaceAllString(text, "")
	safe = spaces.ReplaceAllString(safe, "_")
	if len(safe) > maxLength {
		safe = safe[:maxLength]
	}
	return strings.Trim(safe, "_")
}
