package handler

import (
	"encoding/json"
	"net/http"

	"hostscore/internal/api/v1/dto"
	"hostscore/internal/middleware"
	"hostscore/internal/service"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

type AuthHandler struct {
	sessionService *service.SessionService
	validate       *validator.Validate
	logger         zerolog.Logger
}

func NewAuthHandler(sessionService *service.SessionService, validate *validator.Validate, logger zerolog.Logger) *AuthHandler {
	return &AuthHandler{
		sessionService: sessionService,
		validate:       validate,
		logger:         logger,
	}
}

func (h *AuthHandler) RegisterRoutes(mux *http.ServeMux, authMw func(http.Handler) http.Handler) {
	mux.Handle("POST /auth/magic-link", http.HandlerFunc(h.magicLink))
	mux.Handle("GET /auth/callback", http.HandlerFunc(h.callback))
	mux.Handle("POST /auth/logout", http.HandlerFunc(h.logout))
	mux.Handle("GET /auth/session", authMw(http.HandlerFunc(h.session)))
}

// magicLink godoc
// @Summary Request a magic sign-in link
// @Description Emails a single-use sign-in link. Always responds 202 so the endpoint cannot be used to probe for accounts.
// @Tags auth
// @Accept json
// @Produce json
// @Param request body dto.MagicLinkRequestDTO true "Magic link request"
// @Success 202 {object} dto.MagicLinkResponseDTO
// @Failure 400 {string} string "Invalid JSON payload"
// @Router /auth/magic-link [post]
func (h *AuthHandler) magicLink(w http.ResponseWriter, r *http.Request) {
	var req dto.MagicLinkRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON payload: "+err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		http.Error(w, "Validation failed: "+err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.sessionService.IssueMagicLink(r.Context(), req.Email); err != nil {
		// Deliberately not surfaced to the caller.
		h.logger.Error().Err(err).Msg("Magic link issue failed")
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	if err := json.NewEncoder(w).Encode(dto.MagicLinkResponseDTO{Message: "If the address is valid, a sign-in link is on its way."}); err != nil {
		h.logger.Error().Err(err).Msg("Failed to encode magic link response")
	}
}

// callback godoc
// @Summary Complete a magic-link sign-in
// @Description Consumes the single-use token from the emailed link, sets the session cookie, and redirects to the app.
// @Tags auth
// @Param token query string true "Magic link token"
// @Success 303 {string} string "Redirect to the app"
// @Failure 401 {string} string "Invalid or expired link"
// @Router /auth/callback [get]
func (h *AuthHandler) callback(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		http.Error(w, "Missing token", http.StatusUnauthorized)
		return
	}

	_, sessionToken, err := h.sessionService.Consume(token)
	if err != nil {
		http.Error(w, "Invalid or expired link", http.StatusUnauthorized)
		return
	}

	http.SetCookie(w, h.sessionService.SessionCookie(sessionToken))
	http.Redirect(w, r, h.sessionService.PostLoginRedirect(), http.StatusSeeOther)
}

// logout godoc
// @Summary Sign out
// @Description Clears the session cookie.
// @Tags auth
// @Success 204 {string} string "No content"
// @Router /auth/logout [post]
func (h *AuthHandler) logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, h.sessionService.ClearCookie())
	w.WriteHeader(http.StatusNoContent)
}

// session godoc
// @Summary Current session
// @Description Returns the signed-in identity.
// @Tags auth
// @Produce json
// @Success 200 {object} dto.SessionResponseDTO
// @Failure 401 {string} string "Authentication required"
// @Router /auth/session [get]
func (h *AuthHandler) session(w http.ResponseWriter, r *http.Request) {
	data, ok := middleware.SessionFromContext(r.Context())
	if !ok {
		http.Error(w, "Authentication required", http.StatusUnauthorized)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(dto.SessionResponseDTO{UserID: data.UserID, Email: data.Email}); err != nil {
		h.logger.Error().Err(err).Msg("Failed to encode session response")
	}
}
