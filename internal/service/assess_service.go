package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"hostscore/internal/cache"
	"hostscore/internal/config"
	"hostscore/internal/heuristics"
	"hostscore/internal/ledger"
	"hostscore/internal/model"
	"hostscore/internal/refine"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var (
	// ErrPaymentRequired means the caller has no entitlement for a paid view.
	ErrPaymentRequired = errors.New("payment required")
	// ErrReportNotFound means the report ID is unknown or has been evicted.
	ErrReportNotFound = errors.New("report not found")
)

// How many leading fixes the free teaser withholds.
const teaserHiddenFixes = 3

// Renderer fetches a structured listing document.
type Renderer interface {
	Render(ctx context.Context, address string) (*model.ListingDocument, error)
}

// Refiner applies the bounded model adjustment.
type Refiner interface {
	Enabled() bool
	Refine(ctx context.Context, doc *model.ListingDocument, base heuristics.Result) (refine.Outcome, error)
}

// AssessOutcome is the projected result handed to the API layer. CreditID is
// the credit redeemed for a paid request.
type AssessOutcome struct {
	Report         *model.Report
	Tier           model.ReportTier
	HiddenFixCount int
	CacheStatus    cache.Status
	CreditID       string
	Credits        *model.CreditSummary
}

// AssessService runs assessments end to end: render, score, refine, cache,
// and project the result according to the caller's tier.
type AssessService struct {
	renderer         Renderer
	refiner          Refiner
	coordinator      *cache.Coordinator
	store            *ledger.Ledger
	extractorVersion string
	logger           zerolog.Logger
}

func NewAssessService(cfg *config.Config, renderer Renderer, refiner Refiner, store *ledger.Ledger, logger zerolog.Logger) *AssessService {
	s := &AssessService{
		renderer:         renderer,
		refiner:          refiner,
		store:            store,
		extractorVersion: cfg.ExtractorVersion,
		logger:           logger.With().Str("service", "AssessService").Logger(),
	}
	s.coordinator = cache.New(
		time.Duration(cfg.CacheTTLSeconds)*time.Second,
		cfg.CacheCapacity,
		time.Duration(cfg.RequestTimeoutSec)*time.Second,
		s.buildReport,
		logger,
	)
	return s
}

// Assess produces a report for a normalized address. Paid tier requires a
// signed-in user with an available credit; the credit is held for the
// duration of the build and only spent once the report is delivered.
func (s *AssessService) Assess(ctx context.Context, address string, tier model.ReportTier, force bool, user *model.SessionData) (*AssessOutcome, error) {
	var reservation *ledger.Reservation
	if tier == model.TierPaid {
		if user == nil {
			return nil, ErrPaymentRequired
		}
		res, err := s.store.Authorize(user.UserID)
		if err != nil {
			return nil, err
		}
		reservation = res
	}

	key := cache.Key{Address: address, ExtractorVersion: s.extractorVersion, Tier: tier}
	report, status, err := s.coordinator.Get(ctx, key, force)
	if err != nil {
		if reservation != nil {
			s.store.Release(reservation)
		}
		return nil, err
	}

	if reservation != nil {
		if err := s.store.Redeem(reservation); err != nil {
			// The hold lapsed mid-build. The report is already built, so
			// deliver it rather than charging or failing the caller.
			s.logger.Warn().Err(err).Str("user_id", user.UserID).Msg("Credit hold lapsed before redeem")
		}
	}

	outcome := &AssessOutcome{
		Tier:        tier,
		CacheStatus: status,
	}
	if reservation != nil {
		outcome.CreditID = reservation.CreditID
	}
	if tier == model.TierPaid {
		outcome.Report = report
	} else {
		outcome.Report, outcome.HiddenFixCount = teaserView(report)
	}
	if user != nil {
		summary := s.store.Summary(user.UserID)
		outcome.Credits = &summary
	}
	return outcome, nil
}

// FullReport returns an already-built paid report once its checkout session
// has completed. Anything short of a completed checkout is a payment error.
func (s *AssessService) FullReport(reportID, checkoutID string) (*model.Report, error) {
	record, err := s.store.Checkout(checkoutID)
	if err != nil || record.Status != model.CheckoutCompleted {
		return nil, ErrPaymentRequired
	}
	report, ok := s.coordinator.ReportByID(reportID)
	if !ok {
		return nil, ErrReportNotFound
	}
	return report, nil
}

// buildReport is the cache's build function. It runs detached from any one
// request: renders the listing, scores it, and for paid tier applies the
// bounded refinement. Refinement failure degrades to the deterministic
// result with a note.
func (s *AssessService) buildReport(ctx context.Context, key cache.Key) (*model.Report, error) {
	doc, err := s.renderer.Render(ctx, key.Address)
	if err != nil {
		return nil, err
	}

	base := heuristics.Run(doc)
	report := &model.Report{
		ID:            uuid.NewString(),
		Overall:       base.Overall,
		SectionScores: base.SectionScores,
		PhotoStats:    base.PhotoStats,
		CopyStats:     base.CopyStats,
		Amenities:     base.Amenities,
		TrustSignals:  base.TrustSignals,
		TopFixes:      base.TopFixes,
	}

	if key.Tier == model.TierPaid && s.refiner != nil && s.refiner.Enabled() {
		out, err := s.refiner.Refine(ctx, doc, base)
		if err != nil {
			s.logger.Warn().Err(err).Str("address", key.Address).Msg("Refinement failed, serving deterministic result")
			report.RefinementNote = "model refinement unavailable; deterministic scores shown"
		} else {
			report.Overall = out.Overall
			report.SectionScores = out.SectionScores
			report.TopFixes = out.TopFixes
			report.TitleSuggestions = out.TitleSuggestions
			report.OwnerOverview = out.OwnerOverview
			report.RefinementNote = out.Notes
		}
	}

	report.BonusSummary = composeBonusSummary(report)
	return report, nil
}

// teaserView projects a report for the free tier: the leading fixes are
// withheld, along with the paid-only extras.
func teaserView(report *model.Report) (*model.Report, int) {
	hidden := teaserHiddenFixes
	if len(report.TopFixes) < hidden {
		hidden = len(report.TopFixes)
	}
	teaser := *report
	teaser.TopFixes = report.TopFixes[hidden:]
	teaser.TitleSuggestions = nil
	teaser.OwnerOverview = ""
	teaser.BonusSummary = ""
	return &teaser, hidden
}

// composeBonusSummary writes a one-paragraph take from the strongest and
// weakest sections plus the lead fix.
func composeBonusSummary(report *model.Report) string {
	type section struct {
		name  string
		score int
	}
	sections := []section{
		{"photos", report.SectionScores.Photos},
		{"copy", report.SectionScores.Copy},
		{"amenity clarity", report.SectionScores.AmenitiesClarity},
		{"trust signals", report.SectionScores.TrustSignals},
	}
	strongest, weakest := sections[0], sections[0]
	for _, sec := range sections[1:] {
		if sec.score > strongest.score {
			strongest = sec
		}
		if sec.score < weakest.score {
			weakest = sec
		}
	}
	summary := fmt.Sprintf(
		"This listing scores %d overall. Its strongest area is %s (%d); the weakest is %s (%d).",
		report.Overall, strongest.name, strongest.score, weakest.name, weakest.score,
	)
	if len(report.TopFixes) > 0 {
		summary += " Start here: " + report.TopFixes[0].HowToFix
	}
	return summary
}
