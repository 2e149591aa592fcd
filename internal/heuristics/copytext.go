package heuristics

import (
	"strings"

	"hostscore/internal/model"
)

const (
	wordCountTarget    = 200
	fleschTarget       = 60.0
	fleschFloor        = 30.0
	secondPersonTarget = 1.0 // percent of tokens
	sectionHitsTarget  = 2
)

// Heading vocabulary used to decide whether the description is broken into
// scannable sections.
var sectionHeadings = []string{
	"the space",
	"guest access",
	"getting around",
	"neighborhood",
	"other things to note",
	"house rules",
}

var secondPersonTokens = map[string]bool{
	"you": true, "your": true, "yours": true, "yourself": true,
	"yourselves": true, "you're": true, "you'll": true, "you've": true,
	"you'd": true,
}

func scoreCopy(doc *model.ListingDocument) (model.CopyStats, []subCheck) {
	description := strings.TrimSpace(doc.Description)
	if description == "" {
		description = strings.TrimSpace(doc.FullText)
	}

	tokens := strings.Fields(description)
	wordCount := len(tokens)

	flesch := 0.0
	if description != "" {
		flesch = fleschReadingEase(description)
	}

	secondPerson := 0
	for _, tok := range tokens {
		if secondPersonTokens[normalizeToken(tok)] {
			secondPerson++
		}
	}
	secondPersonPct := 0.0
	if wordCount > 0 {
		secondPersonPct = float64(secondPerson) / float64(wordCount) * 100
	}

	lower := strings.ToLower(description)
	sectionHits := 0
	for _, h := range sectionHeadings {
		if strings.Contains(lower, h) {
			sectionHits++
		}
	}
	hasSections := sectionHits >= sectionHitsTarget

	stats := model.CopyStats{
		WordCount:       wordCount,
		Flesch:          flesch,
		SecondPersonPct: secondPersonPct,
		HasSections:     hasSections,
	}

	sectionsScore := 100
	if !hasSections {
		sectionsScore = sectionHits * 50
	}

	checks := []subCheck{
		{
			name:     "copy_words",
			score:    linearScore(float64(wordCount), wordCountTarget),
			priority: prioCopyWords,
			impact:   model.ImpactHigh,
			reason:   "Description is too short",
			howToFix: "Expand the description to 200+ words covering layout, highlights, and nearby draws.",
		},
		{
			name:     "copy_readability",
			score:    linearScore(flesch-fleschFloor, fleschTarget-fleschFloor),
			priority: prioReadability,
			impact:   model.ImpactMedium,
			reason:   "Copy is dense and hard to scan",
			howToFix: "Use shorter sentences and break long paragraphs into bullets.",
		},
		{
			name:     "copy_second_person",
			score:    linearScore(secondPersonPct, secondPersonTarget),
			priority: prioSecondPerson,
			impact:   model.ImpactLow,
			reason:   "Description rarely speaks to the guest",
			howToFix: "Add lines that highlight benefits in second person (e.g., 'You'll love ...').",
		},
		{
			name:     "copy_sections",
			score:    sectionsScore,
			priority: prioCopySections,
			impact:   model.ImpactMedium,
			reason:   "Description lacks scannable sections",
			howToFix: "Introduce short headings for the space, guest access, and the neighborhood.",
		},
	}
	return stats, checks
}

// normalizeToken lowercases a word and trims surrounding punctuation while
// keeping inner apostrophes so contractions survive.
func normalizeToken(tok string) string {
	return strings.Trim(strings.ToLower(tok), ".,!?;:()[]{}\"“”—–-")
}
