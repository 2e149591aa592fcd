package router

import (
	"net/http"

	"hostscore/internal/api/v1/handler"
	"hostscore/internal/config"
	"hostscore/internal/email"
	"hostscore/internal/gateway"
	"hostscore/internal/ledger"
	"hostscore/internal/middleware"
	"hostscore/internal/refine"
	"hostscore/internal/service"

	"github.com/go-playground/validator/v10"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
)

func New(cfg *config.Config, logger zerolog.Logger) (http.Handler, error) {
	logger.Info().Msg("Router initialized")
	logger.Info().Str("environment", cfg.Environment).Msg("App environment loaded")

	// 1. Initialize validator
	validate := validator.New(validator.WithRequiredStructEnabled())

	// 2. Initialize the in-memory ledger
	store := ledger.New()

	// 3. Initialize external clients
	renderClient := gateway.New(cfg, logger)
	refineClient := refine.New(cfg, logger)
	if !refineClient.Enabled() {
		logger.Warn().Msg("No refinement API key configured; serving deterministic reports only")
	}

	var sender email.Sender
	if cfg.ResendAPIKey != "" {
		sender = email.NewResendSender(cfg.ResendAPIKey, cfg.ResendSender, logger)
	} else {
		logger.Warn().Msg("No Resend API key configured; emails are logged to the console")
		sender = email.NewConsoleSender(logger)
	}

	// 4. Initialize services & handlers
	assessSvc := service.NewAssessService(cfg, renderClient, refineClient, store, logger)
	sessionSvc := service.NewSessionService(cfg, store, sender, logger)
	checkoutSvc := service.NewCheckoutService(cfg, service.NewStripeProvider(cfg), store, logger)

	assessHandler := handler.NewAssessHandler(assessSvc, validate, logger)
	authHandler := handler.NewAuthHandler(sessionSvc, validate, logger)
	checkoutHandler := handler.NewCheckoutHandler(checkoutSvc, validate, logger)

	// 5. Initialize middleware
	authMiddleware := middleware.AuthMiddleware(sessionSvc)
	optionalAuthMiddleware := middleware.OptionalAuthMiddleware(sessionSvc)

	// 6. Create ServeMux router
	mux := http.NewServeMux()

	// Create a subrouter for API v1 with the /v1 prefix
	apiV1Mux := http.NewServeMux()
	assessHandler.RegisterRoutes(apiV1Mux, optionalAuthMiddleware)
	authHandler.RegisterRoutes(apiV1Mux, authMiddleware)
	checkoutHandler.RegisterRoutes(apiV1Mux, authMiddleware)

	// Mount the API v1 routes under /v1
	mux.Handle("/v1/", http.StripPrefix("/v1", apiV1Mux))

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	// 7. Apply CORS middleware
	c := cors.New(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	})

	return middleware.LoggerMiddleware(c.Handler(mux)), nil
}
