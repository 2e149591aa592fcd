package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"hostscore/internal/config"
	"hostscore/internal/email"
	"hostscore/internal/ledger"
	"hostscore/internal/model"

	"github.com/dgrijalva/jwt-go"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ErrInvalidSession covers every way a magic link or session token can fail
// validation. Callers never learn which check failed.
var ErrInvalidSession = errors.New("invalid or expired session")

const sessionCookieName = "hostscore_session"

// SessionService issues magic-link logins and the session tokens they mint.
type SessionService struct {
	store             *ledger.Ledger
	sender            email.Sender
	secret            []byte
	issuer            string
	magicLinkTTL      time.Duration
	sessionTTL        time.Duration
	callbackBaseURL   string
	postLoginRedirect string
	cookieSecure      bool
	cookieDomain      string
	logger            zerolog.Logger
	now               func() time.Time
}

func NewSessionService(cfg *config.Config, store *ledger.Ledger, sender email.Sender, logger zerolog.Logger) *SessionService {
	return &SessionService{
		store:             store,
		sender:            sender,
		secret:            []byte(cfg.SessionSecret),
		issuer:            cfg.MagicLinkIssuer,
		magicLinkTTL:      time.Duration(cfg.MagicLinkTTLSeconds) * time.Second,
		sessionTTL:        time.Duration(cfg.SessionTTLSeconds) * time.Second,
		callbackBaseURL:   cfg.AuthCallbackBaseURL,
		postLoginRedirect: cfg.PostLoginRedirectURL,
		cookieSecure:      cfg.CookieSecure,
		cookieDomain:      cfg.CookieDomain,
		logger:            logger.With().Str("service", "SessionService").Logger(),
		now:               time.Now,
	}
}

// IssueMagicLink creates the user if needed, mints a single-use login token,
// and emails the link. The caller responds identically whether delivery
// succeeded or not so the endpoint cannot be used to probe for accounts.
func (s *SessionService) IssueMagicLink(ctx context.Context, emailAddr string) error {
	user := s.store.UpsertUser(emailAddr)

	nonce := uuid.NewString()
	record := s.store.CreateToken(user.ID, hashNonce(nonce), s.magicLinkTTL)

	now := s.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":   user.ID,
		"email": user.Email,
		"nonce": nonce,
		"jti":   record.ID,
		"iss":   s.issuer,
		"iat":   now.Unix(),
		"exp":   now.Add(s.magicLinkTTL).Unix(),
	})
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return fmt.Errorf("sign magic link token: %w", err)
	}

	link := fmt.Sprintf("%s/v1/auth/callback?token=%s", s.callbackBaseURL, url.QueryEscape(signed))
	html := fmt.Sprintf(
		`<p>Click the link below to sign in. It expires in %d minutes and works once.</p><p><a href="%s">Sign in</a></p>`,
		int(s.magicLinkTTL.Minutes()), link,
	)
	if err := s.sender.Send(ctx, user.Email, "Your sign-in link", html); err != nil {
		s.logger.Error().Err(err).Str("user_id", user.ID).Msg("Failed to deliver magic link email")
		return fmt.Errorf("deliver magic link: %w", err)
	}
	s.logger.Info().Str("user_id", user.ID).Msg("Magic link issued")
	return nil
}

// Consume validates a magic-link token, burns it, and mints a session token.
// Every failure collapses to ErrInvalidSession.
func (s *SessionService) Consume(tokenString string) (*model.SessionData, string, error) {
	claims, err := s.parseClaims(tokenString)
	if err != nil {
		return nil, "", ErrInvalidSession
	}

	jti, _ := claims["jti"].(string)
	nonce, _ := claims["nonce"].(string)
	userID, _ := claims["sub"].(string)
	emailAddr, _ := claims["email"].(string)
	if jti == "" || nonce == "" || userID == "" {
		return nil, "", ErrInvalidSession
	}

	record, err := s.store.ConsumeToken(jti, hashNonce(nonce))
	if err != nil {
		s.logger.Warn().Err(err).Msg("Magic link rejected")
		return nil, "", ErrInvalidSession
	}
	if record.UserID != userID {
		return nil, "", ErrInvalidSession
	}
	s.store.TouchLogin(userID)

	now := s.now()
	session := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":   userID,
		"email": emailAddr,
		"typ":   "session",
		"iss":   s.issuer,
		"iat":   now.Unix(),
		"exp":   now.Add(s.sessionTTL).Unix(),
	})
	signed, err := session.SignedString(s.secret)
	if err != nil {
		return nil, "", fmt.Errorf("sign session token: %w", err)
	}
	return &model.SessionData{UserID: userID, Email: emailAddr}, signed, nil
}

// Validate checks a session token and returns the identity it carries.
func (s *SessionService) Validate(tokenString string) (*model.SessionData, error) {
	claims, err := s.parseClaims(tokenString)
	if err != nil {
		return nil, ErrInvalidSession
	}
	if typ, _ := claims["typ"].(string); typ != "session" {
		return nil, ErrInvalidSession
	}
	userID, _ := claims["sub"].(string)
	emailAddr, _ := claims["email"].(string)
	if userID == "" {
		return nil, ErrInvalidSession
	}
	return &model.SessionData{UserID: userID, Email: emailAddr}, nil
}

func (s *SessionService) parseClaims(tokenString string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidSession
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidSession
	}
	if iss, _ := claims["iss"].(string); iss != s.issuer {
		return nil, ErrInvalidSession
	}
	return claims, nil
}

// SessionCookie wraps a session token for the browser.
func (s *SessionService) SessionCookie(token string) *http.Cookie {
	return &http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     "/",
		Domain:   s.cookieDomain,
		MaxAge:   int(s.sessionTTL.Seconds()),
		HttpOnly: true,
		Secure:   s.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	}
}

// ClearCookie expires the session cookie.
func (s *SessionService) ClearCookie() *http.Cookie {
	return &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		Domain:   s.cookieDomain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	}
}

// CookieName is the session cookie's name, exported for the middleware.
func (s *SessionService) CookieName() string {
	return sessionCookieName
}

// PostLoginRedirect is where the callback sends the browser after login.
func (s *SessionService) PostLoginRedirect() string {
	return s.postLoginRedirect
}

func hashNonce(nonce string) string {
	sum := sha256.Sum256([]byte(nonce))
	return hex.EncodeToString(sum[:])
}
