package heuristics

import (
	"testing"

	"hostscore/internal/model"
)

func TestRunOverallIsWeightedSum(t *testing.T) {
	doc := &model.ListingDocument{
		Title:       "Sunny garden flat",
		Description: "You will love this bright flat. The space sleeps four. Guest access is private.",
		AmenitiesListed: []string{
			"Wifi", "Parking", "Washer",
		},
		Reviews: []string{"Lovely host."},
		Photos: []model.PhotoMeta{
			{URL: "https://img.example.com/bedroom.jpg", Alt: "Bedroom", Widths: []int{1440}, Fingerprint: 0x0F0F},
			{URL: "https://img.example.com/kitchen.jpg", Alt: "Kitchen", Widths: []int{1440}, Fingerprint: 0xF0F0F0F0},
		},
	}
	res := Run(doc)
	if res.Overall != res.SectionScores.Weighted() {
		t.Fatalf("overall %d does not match weighted sections %d", res.Overall, res.SectionScores.Weighted())
	}
	if res.Overall < 0 || res.Overall > 100 {
		t.Fatalf("overall out of range: %d", res.Overall)
	}
	if len(res.TopFixes) == 0 || len(res.TopFixes) > maxTopFixes {
		t.Fatalf("expected between 1 and %d fixes, got %d", maxTopFixes, len(res.TopFixes))
	}
}

func TestRunDeterministic(t *testing.T) {
	doc := &model.ListingDocument{
		Title:           "Cabin",
		Description:     "A quiet cabin in the pines with a wood stove.",
		AmenitiesListed: []string{"Fireplace", "Wifi"},
		Photos: []model.PhotoMeta{
			{URL: "https://img.example.com/living.jpg", Alt: "Living room", Widths: []int{960}},
		},
	}
	a := Run(doc)
	b := Run(doc)
	if a.Overall != b.Overall || a.SectionScores != b.SectionScores {
		t.Fatalf("expected identical results, got %+v and %+v", a.SectionScores, b.SectionScores)
	}
	if len(a.TopFixes) != len(b.TopFixes) {
		t.Fatalf("fix lists differ in length: %d vs %d", len(a.TopFixes), len(b.TopFixes))
	}
	for i := range a.TopFixes {
		if a.TopFixes[i] != b.TopFixes[i] {
			t.Fatalf("fix %d differs: %+v vs %+v", i, a.TopFixes[i], b.TopFixes[i])
		}
	}
}

func TestRankFixesOrdering(t *testing.T) {
	checks := []subCheck{
		{name: "low_big_gap", score: 1, priority: 0, impact: model.ImpactLow, reason: "r", howToFix: "f"},
		{name: "med_small", score: 90, priority: 1, impact: model.ImpactMedium, reason: "r", howToFix: "f"},
		{name: "high_tie_late", score: 50, priority: 9, impact: model.ImpactHigh, reason: "high tie late", howToFix: "f"},
		{name: "high_tie_early", score: 50, priority: 2, impact: model.ImpactHigh, reason: "high tie early", howToFix: "f"},
		{name: "high_biggest", score: 20, priority: 5, impact: model.ImpactHigh, reason: "high biggest", howToFix: "f"},
		{name: "med_big", score: 10, priority: 3, impact: model.ImpactMedium, reason: "med big", howToFix: "f"},
		{name: "passing", score: 100, priority: 0, impact: model.ImpactHigh, reason: "r", howToFix: "f"},
	}
	fixes := rankFixes(checks)
	if len(fixes) != maxTopFixes {
		t.Fatalf("expected %d fixes, got %d", maxTopFixes, len(fixes))
	}
	wantOrder := []string{"high biggest", "high tie early", "high tie late", "med big", "r"}
	for i, want := range wantOrder {
		if fixes[i].Reason != want {
			t.Fatalf("fix %d: expected %q, got %q", i, want, fixes[i].Reason)
		}
	}
}

func TestRankFixesSkipsPassingChecks(t *testing.T) {
	checks := []subCheck{
		{name: "a", score: 100, impact: model.ImpactHigh, reason: "r", howToFix: "f"},
		{name: "b", score: 100, impact: model.ImpactHigh, reason: "r", howToFix: "f"},
	}
	if fixes := rankFixes(checks); len(fixes) != 0 {
		t.Fatalf("expected no fixes, got %v", fixes)
	}
}

func TestSectionScoreRounds(t *testing.T) {
	checks := []subCheck{{score: 50}, {score: 51}}
	// Average 50.5 rounds to 51.
	if got := sectionScore(checks); got != 51 {
		t.Fatalf("expected 51, got %d", got)
	}
	if got := sectionScore(nil); got != 0 {
		t.Fatalf("expected 0 for no checks, got %d", got)
	}
}

func TestLinearScore(t *testing.T) {
	cases := []struct {
		value, target float64
		want          int
	}{
		{0, 20, 0},
		{10, 20, 50},
		{25, 20, 100},
		{-3, 20, 0},
		{1, 0, 0},
	}
	for _, c := range cases {
		if got := linearScore(c.value, c.target); got != c.want {
			t.Errorf("linearScore(%f, %f) = %d, want %d", c.value, c.target, got, c.want)
		}
	}
}
