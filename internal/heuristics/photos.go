package heuristics

import (
	"fmt"
	"math/bits"
	"net/url"
	"path"
	"sort"
	"strings"

	"hostscore/internal/model"
)

// Hamming distance at or below which two photo fingerprints count as
// near-duplicates.
const nearDuplicateThreshold = 8

const (
	photoCountTarget   = 20
	medianWidthTarget  = 1440
	captionRatioTarget = 0.8
	// A near-duplicate ratio at or above this scores zero on the dup check.
	duplicateRatioCeiling = 0.35
)

var coverageKeywords = map[string][]string{
	"bedroom":        {"bedroom", "primary bedroom", "guest room", "bunk", "bed"},
	"bath":           {"bathroom", "shower", "bath", "tub"},
	"kitchen":        {"kitchen", "dining", "cook", "cookware", "stove", "oven"},
	"living":         {"living room", "sofa", "lounge", "fireplace"},
	"exterior_day":   {"exterior", "patio", "balcony", "yard", "terrace", "porch", "deck"},
	"exterior_night": {"night", "evening", "sunset"},
}

// Coverage tags a gallery is expected to include; exterior_night is tracked
// separately and never counted as missing.
var essentialCoverage = []string{"bedroom", "bath", "kitchen", "living", "exterior_day"}

func scorePhotos(photos []model.PhotoMeta) (model.PhotoStats, []subCheck) {
	count := len(photos)
	median := medianMaxWidth(photos)
	dupRatio := nearDuplicateRatio(photos)
	coverage := inferCoverage(photos)

	var missing []string
	for _, tag := range essentialCoverage {
		if !coverage[tag] {
			missing = append(missing, tag)
		}
	}

	withAlt := 0
	for _, p := range photos {
		if strings.TrimSpace(p.Alt) != "" {
			withAlt++
		}
	}
	captionRatio := 0.0
	if count > 0 {
		captionRatio = float64(withAlt) / float64(count)
	}

	detected := make([]string, 0, len(coverage))
	for tag := range coverage {
		detected = append(detected, tag)
	}
	sort.Strings(detected)

	stats := model.PhotoStats{
		Count:              count,
		MedianWidth:        median,
		NearDuplicateRatio: dupRatio,
		Coverage:           detected,
		MissingCoverage:    missing,
		HasExteriorNight:   coverage["exterior_night"],
		CaptionRatio:       captionRatio,
	}

	covered := len(essentialCoverage) - len(missing)
	dupScore := linearScore(duplicateRatioCeiling-dupRatio, duplicateRatioCeiling)

	checks := []subCheck{
		{
			name:     "photo_count",
			score:    linearScore(float64(count), photoCountTarget),
			priority: prioPhotoCount,
			impact:   model.ImpactHigh,
			reason:   "Too few gallery photos",
			howToFix: fmt.Sprintf("Aim for %d+ high-quality photos covering every room and the exterior.", photoCountTarget),
		},
		{
			name:     "photo_coverage",
			score:    linearScore(float64(covered), float64(len(essentialCoverage))),
			priority: prioPhotoCoverage,
			impact:   model.ImpactHigh,
			reason:   coverageReason(missing),
			howToFix: "Add clear photos for each missing area to reassure guests.",
		},
		{
			name:     "photo_width",
			score:    linearScore(float64(median), medianWidthTarget),
			priority: prioPhotoWidth,
			impact:   model.ImpactMedium,
			reason:   "Photos render below full resolution",
			howToFix: "Re-upload source images at 1440px wide or larger so galleries stay sharp.",
		},
		{
			name:     "photo_duplicates",
			score:    dupScore,
			priority: prioPhotoDuplicates,
			impact:   model.ImpactMedium,
			reason:   "Gallery includes near-duplicate photos",
			howToFix: "Swap repetitive angles for unique shots that show new details.",
		},
		{
			name:     "photo_captions",
			score:    linearScore(captionRatio, captionRatioTarget),
			priority: prioPhotoCaptions,
			impact:   model.ImpactLow,
			reason:   "Most photos are missing captions",
			howToFix: "Caption each photo with the room or feature it shows.",
		},
	}
	return stats, checks
}

func coverageReason(missing []string) string {
	if len(missing) == 0 {
		return "Gallery coverage incomplete"
	}
	return "Gallery missing: " + strings.Join(missing, ", ")
}

// medianMaxWidth is the median of each photo's largest rendered width. An
// even count averages the two middle values.
func medianMaxWidth(photos []model.PhotoMeta) int {
	if len(photos) == 0 {
		return 0
	}
	widths := make([]int, 0, len(photos))
	for _, p := range photos {
		widths = append(widths, p.MaxWidth())
	}
	sort.Ints(widths)
	n := len(widths)
	if n%2 == 1 {
		return widths[n/2]
	}
	return (widths[n/2-1] + widths[n/2]) / 2
}

// nearDuplicateRatio is the fraction of unordered photo pairs whose
// fingerprints are within the Hamming threshold. It is 0 when the gallery has
// one photo or fewer.
func nearDuplicateRatio(photos []model.PhotoMeta) float64 {
	n := len(photos)
	if n <= 1 {
		return 0
	}
	dup := 0
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			if bits.OnesCount64(photos[i].Fingerprint^photos[j].Fingerprint) <= nearDuplicateThreshold {
				dup++
			}
		}
	}
	total := n * (n - 1) / 2
	return float64(dup) / float64(total)
}

// inferCoverage matches the fixed coverage vocabulary against alt text and
// filename-like tokens from the photo URL.
func inferCoverage(photos []model.PhotoMeta) map[string]bool {
	coverage := make(map[string]bool)
	for _, p := range photos {
		text := strings.ToLower(p.Alt)
		if tokens := filenameTokens(p.URL); tokens != "" {
			text += " " + tokens
		}
		for tag, keywords := range coverageKeywords {
			if coverage[tag] {
				continue
			}
			for _, kw := range keywords {
				if strings.Contains(text, kw) {
					coverage[tag] = true
					break
				}
			}
		}
	}
	return coverage
}

// filenameTokens extracts a space-separated lowercase token string from the
// last path segment of a photo URL.
func filenameTokens(raw string) string {
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	base := path.Base(u.Path)
	if i := strings.LastIndex(base, "."); i > 0 {
		base = base[:i]
	}
	var b strings.Builder
	for _, r := range strings.ToLower(base) {
		if r >= 'a' && r <= 'z' || r >= '0' && r <= '9' {
			b.WriteRune(r)
		} else {
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}
