package model

import "time"

// User is an identity known to the entitlement ledger.
type User struct {
	ID        string     `json:"user_id"`
	Email     string     `json:"email"`
	CreatedAt time.Time  `json:"created_at"`
	LastLogin *time.Time `json:"last_login,omitempty"`
}

// Credit is a redeemable entitlement to one full report. Redemption is
// terminal; a credit is consumed by at most one report generation.
type Credit struct {
	ID         string     `json:"credit_id"`
	UserID     string     `json:"user_id"`
	CheckoutID string     `json:"checkout_id"`
	IssuedAt   time.Time  `json:"issued_at"`
	ExpiresAt  time.Time  `json:"expires_at"`
	RedeemedAt *time.Time `json:"redeemed_at,omitempty"`
}

// CreditSummary aggregates a user's live credits at read time.
type CreditSummary struct {
	Available      int        `json:"available"`
	NextExpiration *time.Time `json:"next_expiration,omitempty"`
}

// CheckoutStatus is the lifecycle state of a checkout session.
type CheckoutStatus string

const (
	CheckoutCreated   CheckoutStatus = "created"
	CheckoutCompleted CheckoutStatus = "completed"
	CheckoutExpired   CheckoutStatus = "expired"
)

// CheckoutSession mirrors one purchase intent against the payment processor.
// The transition to completed is driven only by processor confirmation.
type CheckoutSession struct {
	ID           string         `json:"checkout_id"`
	UserID       string         `json:"user_id,omitempty"`
	PendingEmail string         `json:"pending_email,omitempty"`
	Status       CheckoutStatus `json:"status"`
	Fingerprint  string         `json:"fingerprint,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	CreditIssued bool           `json:"credit_issued"`
}

// AuthToken is a single-use magic-link token record. Only the nonce hash is
// kept; the signed token itself travels in the email link.
type AuthToken struct {
	ID         string
	UserID     string
	NonceHash  string
	CreatedAt  time.Time
	ExpiresAt  time.Time
	ConsumedAt *time.Time
}

// SessionData is the authenticated identity carried by a session token.
type SessionData struct {
	UserID string
	Email  string
}
