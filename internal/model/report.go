package model

// ImpactLevel ranks how much a fix is expected to move the score.
type ImpactLevel string

const (
	ImpactHigh   ImpactLevel = "high"
	ImpactMedium ImpactLevel = "medium"
	ImpactLow    ImpactLevel = "low"
)

// ReportTier selects the free teaser or the full paid report.
type ReportTier string

const (
	TierFree ReportTier = "free"
	TierPaid ReportTier = "paid"
)

// Valid reports whether the tier is one of the two supported values.
func (t ReportTier) Valid() bool {
	return t == TierFree || t == TierPaid
}

// Section weights sum to 1.0.
const (
	WeightPhotos           = 0.35
	WeightCopy             = 0.35
	WeightAmenitiesClarity = 0.15
	WeightTrustSignals     = 0.15
)

// SectionScores holds the four per-section scores, each in [0,100].
type SectionScores struct {
	Photos           int `json:"photos"`
	Copy             int `json:"copy"`
	AmenitiesClarity int `json:"amenities_clarity"`
	TrustSignals     int `json:"trust_signals"`
}

// Weighted returns the weighted overall score, rounded to the nearest int.
func (s SectionScores) Weighted() int {
	v := float64(s.Photos)*WeightPhotos +
		float64(s.Copy)*WeightCopy +
		float64(s.AmenitiesClarity)*WeightAmenitiesClarity +
		float64(s.TrustSignals)*WeightTrustSignals
	return int(v + 0.5)
}

// PhotoStats summarizes the photo gallery.
type PhotoStats struct {
	Count              int      `json:"count"`
	MedianWidth        int      `json:"median_width"`
	NearDuplicateRatio float64  `json:"near_duplicate_ratio"`
	Coverage           []string `json:"coverage"`
	MissingCoverage    []string `json:"missing_coverage"`
	HasExteriorNight   bool     `json:"has_exterior_night"`
	CaptionRatio       float64  `json:"caption_ratio"`
}

// CopyStats summarizes the listing description text.
type CopyStats struct {
	WordCount       int     `json:"word_count"`
	Flesch          float64 `json:"flesch"`
	SecondPersonPct float64 `json:"second_person_pct"`
	HasSections     bool    `json:"has_sections"`
}

// AmenityAudit cross-references listed amenities against textual evidence.
// Both derived lists are advisory and never change the numeric score directly.
type AmenityAudit struct {
	Listed                 []string `json:"listed"`
	TextHits               []string `json:"text_hits"`
	LikelyPresentNotListed []string `json:"likely_present_not_listed"`
	ListedNoTextEvidence   []string `json:"listed_no_text_evidence"`
}

// TrustSignals captures reviews, house rules and summary presence.
type TrustSignals struct {
	ReviewCount       int      `json:"review_count"`
	ReviewSnippets    []string `json:"review_snippets"`
	HasHouseRules     bool     `json:"has_house_rules"`
	HouseRuleCount    int      `json:"house_rule_count"`
	HasSummary        bool     `json:"has_summary"`
	SummaryLength     int      `json:"summary_length"`
	DescriptionLength int      `json:"description_length"`
}

// TopFix is a single actionable suggestion.
type TopFix struct {
	Impact   ImpactLevel `json:"impact"`
	Reason   string      `json:"reason"`
	HowToFix string      `json:"how_to_fix"`
}

// Report is the assembled assessment for one fingerprint. It is immutable
// once produced; the free and paid views are projections of the same value.
type Report struct {
	ID               string        `json:"report_id"`
	Overall          int           `json:"overall"`
	SectionScores    SectionScores `json:"section_scores"`
	PhotoStats       PhotoStats    `json:"photo_stats"`
	CopyStats        CopyStats     `json:"copy_stats"`
	Amenities        AmenityAudit  `json:"amenities"`
	TrustSignals     TrustSignals  `json:"trust_signals"`
	TopFixes         []TopFix      `json:"top_fixes"`
	TitleSuggestions []string      `json:"title_suggestions,omitempty"`
	OwnerOverview    string        `json:"owner_overview,omitempty"`
	BonusSummary     string        `json:"bonus_summary,omitempty"`
	RefinementNote   string        `json:"refinement_note,omitempty"`
}
