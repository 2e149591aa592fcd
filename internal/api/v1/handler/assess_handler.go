package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"hostscore/internal/api/v1/dto"
	"hostscore/internal/gateway"
	"hostscore/internal/ledger"
	"hostscore/internal/middleware"
	"hostscore/internal/model"
	"hostscore/internal/service"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

type AssessHandler struct {
	assessService *service.AssessService
	validate      *validator.Validate
	logger        zerolog.Logger
}

func NewAssessHandler(assessService *service.AssessService, validate *validator.Validate, logger zerolog.Logger) *AssessHandler {
	return &AssessHandler{
		assessService: assessService,
		validate:      validate,
		logger:        logger,
	}
}

func (h *AssessHandler) RegisterRoutes(mux *http.ServeMux, optionalAuthMw func(http.Handler) http.Handler) {
	mux.Handle("POST /assess", optionalAuthMw(http.HandlerFunc(h.assess)))
	mux.Handle("GET /assess/full", http.HandlerFunc(h.fullReport))
}

// assess godoc
// @Summary Assess a listing page
// @Description Runs the assessment pipeline for a listing address. Anonymous callers get the free teaser; signed-in callers with a credit can request the paid tier.
// @Tags assess
// @Accept json
// @Produce json
// @Param request body dto.AssessRequestDTO true "Assessment request"
// @Success 200 {object} dto.AssessResponseDTO
// @Failure 400 {string} string "Invalid JSON payload"
// @Failure 402 {string} string "Payment required"
// @Failure 422 {string} string "Unsupported listing address"
// @Failure 502 {string} string "Listing could not be rendered"
// @Router /assess [post]
func (h *AssessHandler) assess(w http.ResponseWriter, r *http.Request) {
	var req dto.AssessRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON payload: "+err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		http.Error(w, "Validation failed: "+err.Error(), http.StatusBadRequest)
		return
	}

	tier := model.ReportTier(req.Tier)
	if req.Tier == "" {
		tier = model.TierFree
	}
	if !tier.Valid() {
		http.Error(w, "Invalid tier", http.StatusBadRequest)
		return
	}

	address, err := gateway.NormalizeAddress(req.Address)
	if err != nil {
		http.Error(w, "Unsupported listing address", http.StatusUnprocessableEntity)
		return
	}

	session, _ := middleware.SessionFromContext(r.Context())

	outcome, err := h.assessService.Assess(r.Context(), address, tier, req.Force, session)
	if err != nil {
		h.writeAssessError(w, err)
		return
	}

	resp := dto.AssessResponseDTO{
		Report: outcome.Report,
		Meta: dto.AssessMetaDTO{
			Tier:           string(outcome.Tier),
			IsPaid:         outcome.Tier == model.TierPaid,
			CacheStatus:    string(outcome.CacheStatus),
			HiddenFixCount: outcome.HiddenFixCount,
			CreditID:       outcome.CreditID,
		},
	}
	if outcome.Credits != nil {
		resp.Meta.CreditsRemaining = &outcome.Credits.Available
		resp.Meta.NextExpiration = outcome.Credits.NextExpiration
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.logger.Error().Err(err).Msg("Failed to encode assessment response")
	}
}

// fullReport godoc
// @Summary Fetch a full report by ID
// @Description Returns the full paid report for a report ID once its checkout session has completed.
// @Tags assess
// @Produce json
// @Param report_id query string true "Report ID"
// @Param session_id query string true "Checkout session ID"
// @Success 200 {object} dto.FullReportResponseDTO
// @Failure 402 {string} string "Payment required"
// @Failure 404 {string} string "Report not found"
// @Router /assess/full [get]
func (h *AssessHandler) fullReport(w http.ResponseWriter, r *http.Request) {
	reportID := r.URL.Query().Get("report_id")
	checkoutID := r.URL.Query().Get("session_id")
	if reportID == "" || checkoutID == "" {
		http.Error(w, "report_id and session_id are required", http.StatusBadRequest)
		return
	}

	report, err := h.assessService.FullReport(reportID, checkoutID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrPaymentRequired):
			http.Error(w, "Payment required", http.StatusPaymentRequired)
		case errors.Is(err, service.ErrReportNotFound):
			http.Error(w, "Report not found", http.StatusNotFound)
		default:
			http.Error(w, "Failed to fetch report", http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(dto.FullReportResponseDTO{Report: report}); err != nil {
		h.logger.Error().Err(err).Msg("Failed to encode report response")
	}
}

func (h *AssessHandler) writeAssessError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrPaymentRequired), errors.Is(err, ledger.ErrInsufficientCredits):
		http.Error(w, "Payment required: no available credits", http.StatusPaymentRequired)
	case errors.Is(err, gateway.ErrMalformedDocument):
		http.Error(w, "Listing could not be extracted", http.StatusUnprocessableEntity)
	case errors.Is(err, gateway.ErrRenderFailed):
		http.Error(w, "Listing could not be rendered", http.StatusBadGateway)
	case errors.Is(err, gateway.ErrUnsupportedAddress):
		http.Error(w, "Unsupported listing address", http.StatusUnprocessableEntity)
	default:
		h.logger.Error().Err(err).Msg("Assessment failed")
		http.Error(w, "Assessment failed", http.StatusInternalServerError)
	}
}
