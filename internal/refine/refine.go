// Package refine adjusts a deterministic assessment with a language model.
// Adjustments are strictly bounded: section scores may move at most
// clampDelta points from the deterministic baseline, and any failure leaves
// the baseline untouched.
package refine

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"hostscore/internal/config"
	"hostscore/internal/heuristics"
	"hostscore/internal/model"

	"github.com/rs/zerolog"
)

const (
	anthropicBaseURL         = "https://api.anthropic.com/v1"
	anthropicMessagesPath    = "/messages"
	anthropicVersion         = "2023-06-01"
	clampDelta               = 10
	maxPromptSummaryBytes    = 2048
	maxPromptAmenities       = 40
	maxPromptReviews         = 2
	maxPromptDescriptionLen  = 1200
	maxPromptTitleLen        = 120
	maxTitleSuggestions      = 3
)

// ErrRefinementFailed means the model call or its response could not be used.
// Callers fall back to the deterministic result.
var ErrRefinementFailed = errors.New("refinement unavailable")

// Outcome is a deterministic result after bounded model adjustment, plus the
// extras only the model can produce.
type Outcome struct {
	heuristics.Result
	TitleSuggestions []string
	OwnerOverview    string
	Notes            string
}

// Client calls the Anthropic messages endpoint to refine an assessment.
type Client struct {
	apiKey    string
	model     string
	maxTokens int
	baseURL   string
	client    *http.Client
	logger    zerolog.Logger
}

func New(cfg *config.Config, logger zerolog.Logger) *Client {
	return &Client{
		apiKey:    cfg.RefineAPIKey,
		model:     cfg.RefineModel,
		maxTokens: cfg.RefineMaxTokens,
		baseURL:   anthropicBaseURL,
		client: &http.Client{
			Timeout: time.Duration(cfg.RefineTimeoutMs) * time.Millisecond,
		},
		logger: logger.With().Str("service", "RefineClient").Logger(),
	}
}

// Enabled reports whether refinement is configured at all.
func (c *Client) Enabled() bool {
	return c.apiKey != ""
}

// refinement is the JSON schema the model is asked to produce.
type refinement struct {
	SectionScores struct {
		Photos           *int `json:"photos"`
		Copy             *int `json:"copy"`
		AmenitiesClarity *int `json:"amenities_clarity"`
		TrustSignals     *int `json:"trust_signals"`
	} `json:"section_scores"`
	TopFixes []struct {
		Impact   string `json:"impact"`
		Reason   string `json:"reason"`
		HowToFix string `json:"how_to_fix"`
	} `json:"top_fixes"`
	TitleSuggestions []string `json:"title_suggestions"`
	OwnerOverview    string   `json:"owner_overview"`
	Notes            string   `json:"notes"`
}

// Refine asks the model to adjust the deterministic result and applies the
// response within the clamp band. The baseline is never mutated; a refined
// copy is returned. On any failure the caller keeps the baseline and records
// the error as a refinement note.
func (c *Client) Refine(ctx context.Context, doc *model.ListingDocument, base heuristics.Result) (Outcome, error) {
	if !c.Enabled() {
		return Outcome{Result: base}, fmt.Errorf("%w: no API key configured", ErrRefinementFailed)
	}

	prompt := buildPrompt(doc, base)
	raw, err := c.complete(ctx, prompt)
	if err != nil {
		return Outcome{Result: base}, fmt.Errorf("%w: %v", ErrRefinementFailed, err)
	}

	var ref refinement
	if err := json.Unmarshal([]byte(raw), &ref); err != nil {
		c.logger.Warn().Err(err).Msg("Model response did not match schema")
		return Outcome{Result: base}, fmt.Errorf("%w: malformed response", ErrRefinementFailed)
	}

	return apply(base, ref), nil
}

// apply merges a model refinement into the baseline, clamping every section
// to the allowed band and recomputing the weighted overall.
func apply(base heuristics.Result, ref refinement) Outcome {
	out := Outcome{Result: base}
	out.SectionScores.Photos = clamp(base.SectionScores.Photos, ref.SectionScores.Photos)
	out.SectionScores.Copy = clamp(base.SectionScores.Copy, ref.SectionScores.Copy)
	out.SectionScores.AmenitiesClarity = clamp(base.SectionScores.AmenitiesClarity, ref.SectionScores.AmenitiesClarity)
	out.SectionScores.TrustSignals = clamp(base.SectionScores.TrustSignals, ref.SectionScores.TrustSignals)
	out.Overall = out.SectionScores.Weighted()

	if len(ref.TopFixes) > 0 {
		fixes := make([]model.TopFix, 0, len(ref.TopFixes))
		for _, f := range ref.TopFixes {
			impact := model.ImpactLevel(f.Impact)
			if impact != model.ImpactHigh && impact != model.ImpactMedium && impact != model.ImpactLow {
				impact = model.ImpactMedium
			}
			if strings.TrimSpace(f.Reason) == "" {
				continue
			}
			fixes = append(fixes, model.TopFix{Impact: impact, Reason: f.Reason, HowToFix: f.HowToFix})
		}
		if len(fixes) > 0 {
			if len(fixes) > len(base.TopFixes) && len(base.TopFixes) > 0 {
				fixes = fixes[:len(base.TopFixes)]
			}
			out.TopFixes = fixes
		}
	}

	titles := make([]string, 0, maxTitleSuggestions)
	for _, t := range ref.TitleSuggestions {
		if s := strings.TrimSpace(t); s != "" {
			titles = append(titles, s)
		}
		if len(titles) == maxTitleSuggestions {
			break
		}
	}
	out.TitleSuggestions = titles
	out.OwnerOverview = strings.TrimSpace(ref.OwnerOverview)
	out.Notes = strings.TrimSpace(ref.Notes)
	return out
}

// clamp bounds a refined section score to within clampDelta of the baseline
// and inside [0,100]. A missing value keeps the baseline.
func clamp(base int, refined *int) int {
	if refined == nil {
		return base
	}
	v := *refined
	if v > base+clampDelta {
		v = base + clampDelta
	}
	if v < base-clampDelta {
		v = base - clampDelta
	}
	if v < 0 {
		v = 0
	}
	if v > 100 {
		v = 100
	}
	return v
}

func buildPrompt(doc *model.ListingDocument, base heuristics.Result) string {
	summary, _ := json.Marshal(map[string]any{
		"section_scores": base.SectionScores,
		"photo_stats":    base.PhotoStats,
		"copy_stats":     base.CopyStats,
		"amenities":      base.Amenities,
		"trust_signals":  base.TrustSignals,
		"top_fixes":      base.TopFixes,
	})
	if len(summary) > maxPromptSummaryBytes {
		summary = summary[:maxPromptSummaryBytes]
	}

	amenities := doc.AmenitiesListed
	if len(amenities) > maxPromptAmenities {
		amenities = amenities[:maxPromptAmenities]
	}
	reviews := doc.Reviews
	if len(reviews) > maxPromptReviews {
		reviews = reviews[:maxPromptReviews]
	}

	var b strings.Builder
	b.WriteString("You are reviewing a short-term rental listing assessment. ")
	b.WriteString("Adjust the section scores only where the evidence clearly warrants it, ")
	b.WriteString("rewrite the top fixes to be specific to this listing, suggest up to three improved titles, ")
	b.WriteString("and write a two-sentence owner_overview telling the host where their listing stands. ")
	b.WriteString("Respond with JSON only, using this schema: ")
	b.WriteString(`{"section_scores":{"photos":0,"copy":0,"amenities_clarity":0,"trust_signals":0},"top_fixes":[{"impact":"high|medium|low","reason":"","how_to_fix":""}],"title_suggestions":[""],"owner_overview":"","notes":""}`)
	b.WriteString("\n\nTitle: ")
	b.WriteString(truncate(doc.Title, maxPromptTitleLen))
	b.WriteString("\nDescription: ")
	b.WriteString(truncate(doc.Description, maxPromptDescriptionLen))
	b.WriteString("\nAmenities: ")
	b.WriteString(strings.Join(amenities, ", "))
	for _, r := range reviews {
		b.WriteString("\nReview: ")
		b.WriteString(truncate(r, 200))
	}
	b.WriteString("\n\nDeterministic assessment: ")
	b.Write(summary)
	return b.String()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// complete posts one user message and returns the first text block of the
// model's reply.
func (c *Client) complete(ctx context.Context, prompt string) (string, error) {
	requestBody := map[string]any{
		"model":      c.model,
		"max_tokens": c.maxTokens,
		"messages": []map[string]string{
			{"role": "user", "content": prompt},
		},
	}
	bodyJSON, err := json.Marshal(requestBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+anthropicMessagesPath, bytes.NewReader(bodyJSON))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", anthropicVersion)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		var errorResp struct {
			Error struct {
				Message string `json:"message"`
				Type    string `json:"type"`
			} `json:"error"`
		}
		if err := json.Unmarshal(body, &errorResp); err == nil && errorResp.Error.Message != "" {
			return "", fmt.Errorf("model call failed: %s", errorResp.Error.Message)
		}
		return "", fmt.Errorf("model call failed: HTTP %d", resp.StatusCode)
	}

	var reply struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	}
	if err := json.Unmarshal(body, &reply); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	for _, block := range reply.Content {
		if block.Type == "text" && block.Text != "" {
			return extractJSON(block.Text), nil
		}
	}
	return "", fmt.Errorf("response contained no text block")
}

// extractJSON trims any prose the model wrapped around the JSON object.
func extractJSON(s string) string {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start >= 0 && end > start {
		return s[start : end+1]
	}
	return s
}
