package service

import (
	"context"
	"errors"
	"net/url"
	"regexp"
	"strings"
	"testing"
	"time"

	"hostscore/internal/config"
	"hostscore/internal/ledger"

	"github.com/rs/zerolog"
)

// capturingSender records delivered mail for assertions.
type capturingSender struct {
	to      string
	subject string
	html    string
}

func (s *capturingSender) Send(ctx context.Context, to, subject, html string) error {
	s.to, s.subject, s.html = to, subject, html
	return nil
}

var linkPattern = regexp.MustCompile(`token=([^"&]+)`)

func (s *capturingSender) token(t *testing.T) string {
	t.Helper()
	m := linkPattern.FindStringSubmatch(s.html)
	if m == nil {
		t.Fatalf("no token in email: %s", s.html)
	}
	tok, err := url.QueryUnescape(m[1])
	if err != nil {
		t.Fatalf("unescape token: %v", err)
	}
	return tok
}

func sessionFixture(t *testing.T) (*SessionService, *ledger.Ledger, *capturingSender) {
	t.Helper()
	cfg := &config.Config{
		SessionSecret:        "test-secret",
		MagicLinkIssuer:      "hostscore",
		MagicLinkTTLSeconds:  900,
		SessionTTLSeconds:    2592000,
		AuthCallbackBaseURL:  "https://app.example.com",
		PostLoginRedirectURL: "https://app.example.com/dashboard",
	}
	store := ledger.New()
	sender := &capturingSender{}
	return NewSessionService(cfg, store, sender, zerolog.Nop()), store, sender
}

func TestMagicLinkRoundTrip(t *testing.T) {
	svc, store, sender := sessionFixture(t)

	if err := svc.IssueMagicLink(context.Background(), "Guest@Example.com"); err != nil {
		t.Fatalf("issue: %v", err)
	}
	if sender.to != "guest@example.com" {
		t.Fatalf("expected normalized recipient, got %q", sender.to)
	}
	if !strings.Contains(sender.html, "/v1/auth/callback?token=") {
		t.Fatalf("expected callback link in email, got %s", sender.html)
	}

	data, sessionToken, err := svc.Consume(sender.token(t))
	if err != nil {
		t.Fatalf("consume: %v", err)
	}
	if data.Email != "guest@example.com" {
		t.Fatalf("unexpected identity %+v", data)
	}
	if sessionToken == "" {
		t.Fatal("expected a session token")
	}

	user, err := store.UserByEmail("guest@example.com")
	if err != nil {
		t.Fatalf("user lookup: %v", err)
	}
	if user.LastLogin == nil {
		t.Fatal("expected login to be recorded")
	}

	got, err := svc.Validate(sessionToken)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if got.UserID != data.UserID {
		t.Fatalf("expected matching identity, got %+v", got)
	}
}

func TestMagicLinkSingleUse(t *testing.T) {
	svc, _, sender := sessionFixture(t)

	if err := svc.IssueMagicLink(context.Background(), "guest@example.com"); err != nil {
		t.Fatalf("issue: %v", err)
	}
	tok := sender.token(t)
	if _, _, err := svc.Consume(tok); err != nil {
		t.Fatalf("first consume: %v", err)
	}
	if _, _, err := svc.Consume(tok); !errors.Is(err, ErrInvalidSession) {
		t.Fatalf("expected replay to fail, got %v", err)
	}
}

func TestMagicLinkExpires(t *testing.T) {
	svc, _, sender := sessionFixture(t)

	// Issue the link in the past so it is already expired when consumed.
	svc.now = func() time.Time { return time.Now().Add(-time.Hour) }
	if err := svc.IssueMagicLink(context.Background(), "guest@example.com"); err != nil {
		t.Fatalf("issue: %v", err)
	}
	svc.now = time.Now
	if _, _, err := svc.Consume(sender.token(t)); !errors.Is(err, ErrInvalidSession) {
		t.Fatalf("expected expired link to fail, got %v", err)
	}
}

func TestConsumeRejectsGarbage(t *testing.T) {
	svc, _, _ := sessionFixture(t)
	for _, tok := range []string{"", "not-a-jwt", "a.b.c"} {
		if _, _, err := svc.Consume(tok); !errors.Is(err, ErrInvalidSession) {
			t.Fatalf("expected ErrInvalidSession for %q, got %v", tok, err)
		}
	}
}

func TestValidateRejectsMagicLinkToken(t *testing.T) {
	svc, _, sender := sessionFixture(t)

	if err := svc.IssueMagicLink(context.Background(), "guest@example.com"); err != nil {
		t.Fatalf("issue: %v", err)
	}
	// A magic-link token is not a session token.
	if _, err := svc.Validate(sender.token(t)); !errors.Is(err, ErrInvalidSession) {
		t.Fatalf("expected ErrInvalidSession, got %v", err)
	}
}

func TestValidateRejectsForgedToken(t *testing.T) {
	svc, _, sender := sessionFixture(t)
	if err := svc.IssueMagicLink(context.Background(), "guest@example.com"); err != nil {
		t.Fatalf("issue: %v", err)
	}
	_, sessionToken, err := svc.Consume(sender.token(t))
	if err != nil {
		t.Fatalf("consume: %v", err)
	}

	other, _, _ := sessionFixture(t)
	forged := strings.Split(sessionToken, ".")
	forged[2] = "tampered"
	if _, err := other.Validate(strings.Join(forged, ".")); !errors.Is(err, ErrInvalidSession) {
		t.Fatalf("expected forged token to fail, got %v", err)
	}
}

func TestSessionCookieShape(t *testing.T) {
	svc, _, _ := sessionFixture(t)
	c := svc.SessionCookie("tok")
	if c.Name != svc.CookieName() || !c.HttpOnly || c.Path != "/" {
		t.Fatalf("unexpected cookie %+v", c)
	}
	cleared := svc.ClearCookie()
	if cleared.MaxAge != -1 || cleared.Value != "" {
		t.Fatalf("expected clearing cookie, got %+v", cleared)
	}
}
