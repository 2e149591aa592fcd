package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"hostscore/internal/api/v1/dto"
	"hostscore/internal/middleware"
	"hostscore/internal/service"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

const maxWebhookBodyBytes = 64 * 1024

type CheckoutHandler struct {
	checkoutService *service.CheckoutService
	validate        *validator.Validate
	logger          zerolog.Logger
}

func NewCheckoutHandler(checkoutService *service.CheckoutService, validate *validator.Validate, logger zerolog.Logger) *CheckoutHandler {
	return &CheckoutHandler{
		checkoutService: checkoutService,
		validate:        validate,
		logger:          logger,
	}
}

func (h *CheckoutHandler) RegisterRoutes(mux *http.ServeMux, authMw func(http.Handler) http.Handler) {
	mux.Handle("POST /checkout/session", authMw(http.HandlerFunc(h.createSession)))
	mux.Handle("POST /checkout/confirm", authMw(http.HandlerFunc(h.confirm)))
	mux.Handle("POST /checkout/webhook", http.HandlerFunc(h.webhook))
}

// createSession godoc
// @Summary Start a checkout
// @Description Creates a payment processor checkout session for one report credit.
// @Tags checkout
// @Accept json
// @Produce json
// @Param request body dto.CheckoutCreateDTO false "Checkout request"
// @Success 201 {object} dto.CheckoutResponseDTO
// @Failure 401 {string} string "Authentication required"
// @Failure 502 {string} string "Payment processor unavailable"
// @Router /checkout/session [post]
func (h *CheckoutHandler) createSession(w http.ResponseWriter, r *http.Request) {
	session, ok := middleware.SessionFromContext(r.Context())
	if !ok {
		http.Error(w, "Authentication required", http.StatusUnauthorized)
		return
	}

	var req dto.CheckoutCreateDTO
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid JSON payload: "+err.Error(), http.StatusBadRequest)
			return
		}
		if err := h.validate.Struct(req); err != nil {
			http.Error(w, "Validation failed: "+err.Error(), http.StatusBadRequest)
			return
		}
	}

	record, checkoutURL, err := h.checkoutService.CreateSession(r.Context(), session, req.Fingerprint)
	if err != nil {
		http.Error(w, "Payment processor unavailable", http.StatusBadGateway)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(dto.CheckoutResponseDTO{CheckoutID: record.ID, CheckoutURL: checkoutURL}); err != nil {
		h.logger.Error().Err(err).Msg("Failed to encode checkout response")
	}
}

// confirm godoc
// @Summary Confirm a checkout
// @Description Reconciles a checkout session against the processor and issues the credit when payment is confirmed.
// @Tags checkout
// @Accept json
// @Produce json
// @Param request body dto.CheckoutConfirmDTO true "Confirmation request"
// @Success 200 {object} dto.CheckoutConfirmResponseDTO
// @Failure 401 {string} string "Authentication required"
// @Failure 402 {string} string "Checkout not paid"
// @Failure 409 {string} string "Checkout not in a payable state"
// @Router /checkout/confirm [post]
func (h *CheckoutHandler) confirm(w http.ResponseWriter, r *http.Request) {
	session, ok := middleware.SessionFromContext(r.Context())
	if !ok {
		http.Error(w, "Authentication required", http.StatusUnauthorized)
		return
	}

	var req dto.CheckoutConfirmDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON payload: "+err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		http.Error(w, "Validation failed: "+err.Error(), http.StatusBadRequest)
		return
	}

	record, err := h.checkoutService.Confirm(r.Context(), session, req.CheckoutID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrCheckoutUnpaid):
			http.Error(w, "Checkout has not been paid", http.StatusPaymentRequired)
		case errors.Is(err, service.ErrInvalidCheckoutState):
			http.Error(w, "Checkout is not in a payable state", http.StatusConflict)
		default:
			h.logger.Error().Err(err).Str("checkout_id", req.CheckoutID).Msg("Checkout confirm failed")
			http.Error(w, "Failed to confirm checkout", http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	resp := dto.CheckoutConfirmResponseDTO{
		CheckoutID:   record.ID,
		Status:       string(record.Status),
		CreditIssued: record.CreditIssued,
	}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.logger.Error().Err(err).Msg("Failed to encode confirm response")
	}
}

// webhook godoc
// @Summary Payment processor webhook
// @Description Verifies the processor signature and reconciles completed checkout sessions.
// @Tags checkout
// @Success 200 {string} string "OK"
// @Failure 400 {string} string "Invalid signature or payload"
// @Router /checkout/webhook [post]
func (h *CheckoutHandler) webhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBodyBytes))
	if err != nil {
		http.Error(w, "Failed to read payload", http.StatusBadRequest)
		return
	}

	if err := h.checkoutService.HandleWebhook(payload, r.Header.Get("Stripe-Signature")); err != nil {
		h.logger.Warn().Err(err).Msg("Webhook rejected")
		http.Error(w, "Invalid signature or payload", http.StatusBadRequest)
		return
	}
	w.WriteHeader(http.StatusOK)
}
