package heuristics

import (
	"testing"

	"hostscore/internal/model"
)

func TestCountRuleItems(t *testing.T) {
	rules := []string{
		"- No smoking\n- No parties",
		"• Quiet hours after 10pm",
		"Check out by 11am",
		"   ",
	}
	if got := countRuleItems(rules); got != 4 {
		t.Fatalf("expected 4 rule items, got %d", got)
	}
	if got := countRuleItems(nil); got != 0 {
		t.Fatalf("expected 0 for no rules, got %d", got)
	}
}

func TestFirstParagraph(t *testing.T) {
	if got := firstParagraph("Lead paragraph.\n\nRest of the text."); got != "Lead paragraph." {
		t.Fatalf("expected lead paragraph, got %q", got)
	}
	if got := firstParagraph("Single block of text."); got != "Single block of text." {
		t.Fatalf("expected whole text, got %q", got)
	}
	if got := firstParagraph("  "); got != "" {
		t.Fatalf("expected empty result, got %q", got)
	}
}

func TestScoreTrustSnippetsAndSummaryFallback(t *testing.T) {
	doc := &model.ListingDocument{
		Description: "A calm hillside retreat with room for six.\n\nLong detail follows.",
		Reviews:     []string{"Great stay!", "Spotless and quiet.", "Would return."},
		HouseRules:  []string{"- No pets\n- No smoking\n- Quiet hours"},
	}
	stats, checks := scoreTrust(doc)

	if stats.ReviewCount != 3 {
		t.Fatalf("expected 3 reviews, got %d", stats.ReviewCount)
	}
	if len(stats.ReviewSnippets) != 2 {
		t.Fatalf("expected snippets capped at 2, got %d", len(stats.ReviewSnippets))
	}
	if !stats.HasSummary {
		t.Fatal("expected summary fallback from first paragraph")
	}
	if stats.HouseRuleCount != 3 {
		t.Fatalf("expected 3 house rules, got %d", stats.HouseRuleCount)
	}

	byName := make(map[string]subCheck)
	for _, c := range checks {
		byName[c.name] = c
	}
	if got := byName["trust_reviews"].score; got != 100 {
		t.Fatalf("expected review score 100, got %d", got)
	}
	if got := byName["trust_rules"].score; got != 60 {
		t.Fatalf("expected rules score 60, got %d", got)
	}
	if got := byName["trust_summary"].score; got != 100 {
		t.Fatalf("expected summary score 100, got %d", got)
	}
}

func TestScoreTrustEmptyListing(t *testing.T) {
	stats, checks := scoreTrust(&model.ListingDocument{})
	if stats.HasSummary || stats.HasHouseRules || stats.ReviewCount != 0 {
		t.Fatalf("expected empty trust signals, got %+v", stats)
	}
	for _, c := range checks {
		if c.score != 0 {
			t.Errorf("expected check %s at 0, got %d", c.name, c.score)
		}
	}
}
