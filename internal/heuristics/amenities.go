package heuristics

import (
	"sort"
	"strings"

	"hostscore/internal/model"
)

const (
	listedCountTarget   = 15
	evidenceRatioTarget = 0.7
)

// amenityAliases maps canonical amenity labels to the synonyms they appear
// under in listing copy.
var amenityAliases = map[string][]string{
	"air conditioning": {"ac", "a/c", "aircon", "climate control", "central air", "cooling"},
	"heating":          {"central heat", "heater", "furnace"},
	"wifi":             {"wi-fi", "wi fi", "internet", "wireless internet", "high speed internet"},
	"desk":             {"workspace", "work desk", "office desk", "dedicated desk", "working area"},
	"parking":          {"garage", "driveway parking", "free parking", "onsite parking", "driveway"},
	"ev charger":       {"electric vehicle charger", "ev charging", "car charger"},
	"hot tub":          {"spa", "jacuzzi", "soaking tub"},
	"pool":             {"swimming pool", "lap pool", "plunge pool"},
	"washer":           {"washing machine", "laundry machine", "laundry", "in suite laundry"},
	"dryer":            {"clothes dryer", "tumble dryer"},
	"bbq grill":        {"barbecue", "bbq", "barbeque grill"},
	"fireplace":        {"indoor fireplace", "wood stove", "fire pit"},
	"patio":            {"terrace", "deck", "outdoor seating"},
	"balcony":          {"veranda", "lanai"},
	"smart tv":         {"streaming tv", "roku tv", "apple tv"},
	"crib":             {"cot", "pack and play"},
	"coffee maker":     {"espresso machine", "coffee machine", "keurig"},
	"gym":              {"fitness room", "exercise room", "fitness center"},
	"beach access":     {"walk to beach", "steps to beach"},
}

// Cues that flip an amenity mention from evidence to a disclaimer.
var negationCues = []string{
	"no", "without", "not included", "not available", "doesn t",
	"does not", "lacks", "lack of", "unavailable", "missing",
}

func scoreAmenities(doc *model.ListingDocument) (model.AmenityAudit, []subCheck) {
	listed := make([]string, 0, len(doc.AmenitiesListed))
	for _, a := range doc.AmenitiesListed {
		if s := strings.TrimSpace(a); s != "" {
			listed = append(listed, s)
		}
	}

	corpus := normalizeText(strings.Join([]string{
		doc.Title,
		doc.Summary,
		doc.Description,
		doc.FullText,
		strings.Join(doc.HouseRules, " "),
		strings.Join(doc.Reviews, " "),
	}, " "))

	photoText := make([]string, 0, len(doc.Photos))
	for _, p := range doc.Photos {
		if p.Alt != "" {
			photoText = append(photoText, p.Alt)
		}
	}
	photoCorpus := normalizeText(strings.Join(photoText, " "))

	var textHits, noEvidence []string
	evidenced := make(map[string]bool)
	for _, amenity := range listed {
		canonical := canonicalAmenity(amenity)
		if hasEvidence(canonical, corpus) {
			textHits = append(textHits, amenity)
			evidenced[canonical] = true
		} else if hasEvidence(canonical, photoCorpus) {
			evidenced[canonical] = true
		} else {
			noEvidence = append(noEvidence, amenity)
		}
	}

	// Scan the whole alias table for amenities the copy or gallery mentions
	// but the listing never declares.
	listedCanonical := make(map[string]bool, len(listed))
	for _, amenity := range listed {
		listedCanonical[canonicalAmenity(amenity)] = true
	}
	var likelyPresent []string
	for canonical := range amenityAliases {
		if listedCanonical[canonical] {
			continue
		}
		if hasEvidence(canonical, corpus) || hasEvidence(canonical, photoCorpus) {
			likelyPresent = append(likelyPresent, canonical)
		}
	}
	sort.Strings(likelyPresent)

	audit := model.AmenityAudit{
		Listed:                 listed,
		TextHits:               textHits,
		LikelyPresentNotListed: likelyPresent,
		ListedNoTextEvidence:   noEvidence,
	}

	evidenceRatio := 0.0
	if len(listed) > 0 {
		evidenceRatio = float64(len(listed)-len(noEvidence)) / float64(len(listed))
	}

	checks := []subCheck{
		{
			name:     "amenity_listed",
			score:    linearScore(float64(len(listed)), listedCountTarget),
			priority: prioAmenityListed,
			impact:   model.ImpactHigh,
			reason:   "Too few amenities listed",
			howToFix: "Audit and list at least 15 key amenities (wifi, parking, climate control, workspace).",
		},
		{
			name:     "amenity_evidence",
			score:    linearScore(evidenceRatio, evidenceRatioTarget),
			priority: prioAmenityEvidence,
			impact:   model.ImpactMedium,
			reason:   "Amenities listed without supporting copy",
			howToFix: "Work a short mention of each major amenity into the description to build trust.",
		},
	}
	return audit, checks
}

// canonicalAmenity folds an amenity label onto its canonical alias-table key
// when one matches, otherwise the normalized label itself.
func canonicalAmenity(label string) string {
	norm := normalizeText(label)
	if _, ok := amenityAliases[norm]; ok {
		return norm
	}
	for canonical, aliases := range amenityAliases {
		for _, alias := range aliases {
			if normalizeText(alias) == norm {
				return canonical
			}
		}
	}
	return norm
}

// hasEvidence reports whether the canonical amenity or any of its aliases
// appears in the normalized corpus outside a negated window.
func hasEvidence(canonical, corpus string) bool {
	if corpus == "" {
		return false
	}
	terms := append([]string{canonical}, amenityAliases[canonical]...)
	for _, term := range terms {
		norm := normalizeText(term)
		if norm == "" {
			continue
		}
		if containsWord(corpus, norm) && !isNegated(corpus, norm) {
			return true
		}
	}
	return false
}

func containsWord(corpus, term string) bool {
	return strings.Contains(" "+corpus+" ", " "+term+" ")
}

// isNegated checks a five-word window before each occurrence of term for a
// negation cue.
func isNegated(corpus, term string) bool {
	words := strings.Fields(corpus)
	termWords := strings.Fields(term)
	for i := 0; i+len(termWords) <= len(words); i++ {
		if !matchAt(words, termWords, i) {
			continue
		}
		start := i - 5
		if start < 0 {
			start = 0
		}
		window := strings.Join(words[start:i], " ")
		negated := false
		for _, cue := range negationCues {
			if containsWord(window, cue) {
				negated = true
				break
			}
		}
		if !negated {
			return false
		}
	}
	// Every occurrence sat inside a negated window.
	return true
}

func matchAt(words, term []string, i int) bool {
	for j := range term {
		if words[i+j] != term[j] {
			return false
		}
	}
	return true
}

// normalizeText lowercases, strips punctuation and collapses whitespace.
func normalizeText(text string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(text) {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}
