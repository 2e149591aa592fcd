package config

import (
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Port           string   `envconfig:"PORT" default:"8080"`
	Environment    string   `envconfig:"ENV" default:"development"`
	AllowedOrigins []string `envconfig:"API_ALLOWED_ORIGINS" default:"http://localhost:5173"`

	// Cache settings
	CacheTTLSeconds  int    `envconfig:"CACHE_TTL_SECONDS" default:"900"`
	CacheCapacity    int    `envconfig:"CACHE_MAXSIZE" default:"128"`
	ExtractorVersion string `envconfig:"EXTRACTOR_VERSION" default:"v3"`

	// Render/extraction gateway settings
	RendererBaseURL        string `envconfig:"RENDERER_BASE_URL" required:"true"`
	RendererMaxSessions    int    `envconfig:"RENDERER_MAX_SESSIONS" default:"4"`
	RenderTimeoutSec       int    `envconfig:"RENDER_TIMEOUT_SEC" default:"12"`
	RequestTimeoutSec      int    `envconfig:"REQUEST_TIMEOUT_SEC" default:"20"`
	RenderMaxRetries       int    `envconfig:"RENDER_MAX_RETRIES" default:"3"`
	RenderBackoffInitialMs int    `envconfig:"RENDER_BACKOFF_INITIAL_MS" default:"500"`
	RenderBackoffMaxMs     int    `envconfig:"RENDER_BACKOFF_MAX_MS" default:"4000"`

	// Refinement settings
	RefineAPIKey    string `envconfig:"REFINE_API_KEY"`
	RefineModel     string `envconfig:"REFINE_MODEL" default:"claude-haiku-4-5"`
	RefineTimeoutMs int    `envconfig:"REFINE_TIMEOUT_MS" default:"4000"`
	RefineMaxTokens int    `envconfig:"REFINE_MAX_TOKENS" default:"512"`

	// Session / magic link settings
	SessionSecret        string `envconfig:"SESSION_SECRET" required:"true"`
	SessionTTLSeconds    int    `envconfig:"SESSION_TTL_SECONDS" default:"2592000"`
	MagicLinkTTLSeconds  int    `envconfig:"MAGIC_LINK_TTL_SECONDS" default:"900"`
	MagicLinkIssuer      string `envconfig:"MAGIC_LINK_ISSUER" default:"hostscore"`
	AuthCallbackBaseURL  string `envconfig:"AUTH_CALLBACK_BASE_URL" default:"http://localhost:8080"`
	PostLoginRedirectURL string `envconfig:"POST_LOGIN_REDIRECT_URL" default:"http://localhost:5173"`
	CookieSecure         bool   `envconfig:"SESSION_COOKIE_SECURE" default:"true"`
	CookieDomain         string `envconfig:"SESSION_COOKIE_DOMAIN"`

	// Stripe checkout settings
	StripeSecretKey     string `envconfig:"STRIPE_SECRET_KEY"`
	StripeWebhookSecret string `envconfig:"STRIPE_WEBHOOK_SECRET"`
	StripePriceReport   string `envconfig:"STRIPE_PRICE_REPORT"`
	StripeSuccessURL    string `envconfig:"STRIPE_SUCCESS_URL"`
	StripeCancelURL     string `envconfig:"STRIPE_CANCEL_URL"`
	CreditValidityDays  int    `envconfig:"CREDIT_VALIDITY_DAYS" default:"30"`

	// Email delivery settings
	ResendAPIKey string `envconfig:"RESEND_API_KEY"`
	ResendSender string `envconfig:"RESEND_SENDER"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
