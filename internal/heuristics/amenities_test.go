package heuristics

import (
	"testing"

	"hostscore/internal/model"
)

func TestCanonicalAmenity(t *testing.T) {
	cases := map[string]string{
		"A/C":             "air conditioning",
		"Wi-Fi":           "wifi",
		"Jacuzzi":         "hot tub",
		"Washing Machine": "washer",
		"Sauna":           "sauna",
	}
	for label, want := range cases {
		if got := canonicalAmenity(label); got != want {
			t.Errorf("canonicalAmenity(%q) = %q, want %q", label, got, want)
		}
	}
}

func TestHasEvidenceMatchesAliases(t *testing.T) {
	corpus := normalizeText("Fast Wi-Fi throughout and a private jacuzzi on the deck.")
	if !hasEvidence("wifi", corpus) {
		t.Fatal("expected wifi evidence via alias")
	}
	if !hasEvidence("hot tub", corpus) {
		t.Fatal("expected hot tub evidence via jacuzzi")
	}
	if hasEvidence("pool", corpus) {
		t.Fatal("did not expect pool evidence")
	}
}

func TestHasEvidenceScreensNegation(t *testing.T) {
	corpus := normalizeText("Please note there is no wifi at the cabin.")
	if hasEvidence("wifi", corpus) {
		t.Fatal("negated mention should not count as evidence")
	}

	// A positive mention elsewhere outweighs the negated one.
	corpus = normalizeText("No wifi in the barn, but the main house has fast wifi.")
	if !hasEvidence("wifi", corpus) {
		t.Fatal("expected the positive mention to count")
	}
}

func TestScoreAmenitiesAudit(t *testing.T) {
	doc := &model.ListingDocument{
		Description: "Stream on fast wifi, cool off in the jacuzzi, and park in the driveway.",
		AmenitiesListed: []string{
			"Wifi",
			"Crib",
		},
	}
	audit, checks := scoreAmenities(doc)

	if len(audit.TextHits) != 1 || audit.TextHits[0] != "Wifi" {
		t.Fatalf("expected wifi as the only text hit, got %v", audit.TextHits)
	}
	if len(audit.ListedNoTextEvidence) != 1 || audit.ListedNoTextEvidence[0] != "Crib" {
		t.Fatalf("expected crib without evidence, got %v", audit.ListedNoTextEvidence)
	}

	wantLikely := map[string]bool{"hot tub": true, "parking": true}
	if len(audit.LikelyPresentNotListed) != len(wantLikely) {
		t.Fatalf("unexpected likely-present set %v", audit.LikelyPresentNotListed)
	}
	for _, a := range audit.LikelyPresentNotListed {
		if !wantLikely[a] {
			t.Fatalf("unexpected likely-present amenity %q", a)
		}
	}

	byName := make(map[string]subCheck)
	for _, c := range checks {
		byName[c.name] = c
	}
	// 2 of 15 amenities listed.
	if got := byName["amenity_listed"].score; got != 13 {
		t.Fatalf("expected listed score 13, got %d", got)
	}
	// Evidence ratio 0.5 against a 0.7 target.
	if got := byName["amenity_evidence"].score; got != 71 {
		t.Fatalf("expected evidence score 71, got %d", got)
	}
}

func TestScoreAmenitiesPhotoAltEvidence(t *testing.T) {
	doc := &model.ListingDocument{
		AmenitiesListed: []string{"Pool"},
		Photos:          []model.PhotoMeta{{Alt: "Heated swimming pool at sunset"}},
	}
	audit, _ := scoreAmenities(doc)
	if len(audit.ListedNoTextEvidence) != 0 {
		t.Fatalf("photo alt should back the listing, got %v", audit.ListedNoTextEvidence)
	}
	// Gallery evidence is not a copy hit.
	if len(audit.TextHits) != 0 {
		t.Fatalf("expected no text hits, got %v", audit.TextHits)
	}
}
