// Package heuristics derives deterministic quality scores from a rendered
// listing document. Everything in this package is a pure function of its
// input; the refinement layer may adjust the output afterwards within a
// bounded band.
package heuristics

import (
	"sort"

	"hostscore/internal/model"
)

// Result bundles the deterministic scoring output for one document.
type Result struct {
	Overall       int
	SectionScores model.SectionScores
	PhotoStats    model.PhotoStats
	CopyStats     model.CopyStats
	Amenities     model.AmenityAudit
	TrustSignals  model.TrustSignals
	TopFixes      []model.TopFix
}

// subCheck is one normalized check inside a section. A score of 100 means the
// check met its target band; anything lower makes it a fix candidate.
type subCheck struct {
	name     string
	score    int
	priority int
	impact   model.ImpactLevel
	reason   string
	howToFix string
}

// Tie-break order between fixes with equal impact and gap.
const (
	prioPhotoCount = iota
	prioPhotoCoverage
	prioReadability
	prioSecondPerson
	prioAmenityListed
	prioAmenityEvidence
	prioTrustReviews
	prioTrustRules
	prioTrustSummary
	prioTrustDescription
	prioPhotoWidth
	prioPhotoDuplicates
	prioPhotoCaptions
	prioCopyWords
	prioCopySections
)

const maxTopFixes = 5

// Run computes the full deterministic assessment for a listing document.
func Run(doc *model.ListingDocument) Result {
	photoStats, photoChecks := scorePhotos(doc.Photos)
	copyStats, copyChecks := scoreCopy(doc)
	audit, amenityChecks := scoreAmenities(doc)
	trust, trustChecks := scoreTrust(doc)

	sections := model.SectionScores{
		Photos:           sectionScore(photoChecks),
		Copy:             sectionScore(copyChecks),
		AmenitiesClarity: sectionScore(amenityChecks),
		TrustSignals:     sectionScore(trustChecks),
	}

	var candidates []subCheck
	candidates = append(candidates, photoChecks...)
	candidates = append(candidates, copyChecks...)
	candidates = append(candidates, amenityChecks...)
	candidates = append(candidates, trustChecks...)

	return Result{
		Overall:       sections.Weighted(),
		SectionScores: sections,
		PhotoStats:    photoStats,
		CopyStats:     copyStats,
		Amenities:     audit,
		TrustSignals:  trust,
		TopFixes:      rankFixes(candidates),
	}
}

// sectionScore averages the sub-check scores, rounded to the nearest int.
func sectionScore(checks []subCheck) int {
	if len(checks) == 0 {
		return 0
	}
	sum := 0
	for _, c := range checks {
		sum += c.score
	}
	return (sum + len(checks)/2) / len(checks)
}

var impactRank = map[model.ImpactLevel]int{
	model.ImpactHigh:   0,
	model.ImpactMedium: 1,
	model.ImpactLow:    2,
}

// rankFixes turns every sub-check below its target band into a fix candidate,
// orders them by (impact tier, gap magnitude) with a fixed check-priority
// tie-break, and keeps at most five.
func rankFixes(checks []subCheck) []model.TopFix {
	var below []subCheck
	for _, c := range checks {
		if c.score < 100 && c.reason != "" {
			below = append(below, c)
		}
	}
	sort.SliceStable(below, func(i, j int) bool {
		a, b := below[i], below[j]
		if impactRank[a.impact] != impactRank[b.impact] {
			return impactRank[a.impact] < impactRank[b.impact]
		}
		gapA, gapB := 100-a.score, 100-b.score
		if gapA != gapB {
			return gapA > gapB
		}
		return a.priority < b.priority
	})
	if len(below) > maxTopFixes {
		below = below[:maxTopFixes]
	}
	fixes := make([]model.TopFix, 0, len(below))
	for _, c := range below {
		fixes = append(fixes, model.TopFix{Impact: c.impact, Reason: c.reason, HowToFix: c.howToFix})
	}
	return fixes
}

// linearScore maps value onto [0,100] with 100 at or above target and 0 at
// zero, scaling linearly in between.
func linearScore(value, target float64) int {
	if target <= 0 {
		return 0
	}
	v := value / target * 100
	if v < 0 {
		v = 0
	}
	if v > 100 {
		v = 100
	}
	return int(v + 0.5)
}
