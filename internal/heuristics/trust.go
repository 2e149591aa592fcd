package heuristics

import (
	"strings"

	"hostscore/internal/model"
)

const (
	reviewCountTarget       = 2
	houseRuleCountTarget    = 5
	descriptionLengthTarget = 300
	maxReviewSnippets       = 2
)

func scoreTrust(doc *model.ListingDocument) (model.TrustSignals, []subCheck) {
	var reviews []string
	for _, r := range doc.Reviews {
		if s := strings.TrimSpace(r); s != "" {
			reviews = append(reviews, s)
		}
	}
	snippets := reviews
	if len(snippets) > maxReviewSnippets {
		snippets = snippets[:maxReviewSnippets]
	}

	ruleCount := countRuleItems(doc.HouseRules)

	summary := strings.TrimSpace(doc.Summary)
	if summary == "" {
		summary = firstParagraph(doc.Description)
	}
	description := strings.TrimSpace(doc.Description)

	stats := model.TrustSignals{
		ReviewCount:       len(reviews),
		ReviewSnippets:    snippets,
		HasHouseRules:     ruleCount > 0,
		HouseRuleCount:    ruleCount,
		HasSummary:        summary != "",
		SummaryLength:     len(summary),
		DescriptionLength: len(description),
	}

	summaryScore := 0
	if summary != "" {
		summaryScore = 100
	}

	checks := []subCheck{
		{
			name:     "trust_reviews",
			score:    linearScore(float64(len(reviews)), reviewCountTarget),
			priority: prioTrustReviews,
			impact:   model.ImpactMedium,
			reason:   "Listing lacks visible review quotes",
			howToFix: "Feature a couple of standout review snippets near the top of the description.",
		},
		{
			name:     "trust_rules",
			score:    linearScore(float64(ruleCount), houseRuleCountTarget),
			priority: prioTrustRules,
			impact:   model.ImpactMedium,
			reason:   "House rules not surfaced",
			howToFix: "Add a concise house rules section to set expectations (quiet hours, pets, etc.).",
		},
		{
			name:     "trust_summary",
			score:    summaryScore,
			priority: prioTrustSummary,
			impact:   model.ImpactLow,
			reason:   "Listing has no summary paragraph",
			howToFix: "Open with a two-sentence summary of what makes the stay special.",
		},
		{
			name:     "trust_description",
			score:    linearScore(float64(len(description)), descriptionLengthTarget),
			priority: prioTrustDescription,
			impact:   model.ImpactLow,
			reason:   "Description is thin on detail",
			howToFix: "Flesh out the description so guests can picture the stay before booking.",
		},
	}
	return stats, checks
}

// countRuleItems counts house-rule entries, splitting multi-line entries on
// newlines and stripping bullet markers.
func countRuleItems(rules []string) int {
	n := 0
	for _, entry := range rules {
		for _, line := range strings.Split(entry, "\n") {
			line = strings.TrimSpace(line)
			line = strings.TrimLeft(line, "-•* \t")
			if line != "" {
				n++
			}
		}
	}
	return n
}

func firstParagraph(text string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}
	if i := strings.Index(text, "\n\n"); i >= 0 {
		return strings.TrimSpace(text[:i])
	}
	return text
}
