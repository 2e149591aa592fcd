// Package ledger is the in-memory system of record for users, paid credits,
// magic-link tokens, and checkout sessions. Credit operations for one user
// are serialized with a per-user lock so concurrent requests can never spend
// the same credit twice.
package ledger

import (
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"hostscore/internal/model"

	"github.com/google/uuid"
)

var (
	ErrInsufficientCredits = errors.New("no available credits")
	ErrUserNotFound        = errors.New("user not found")
	ErrReservationNotFound = errors.New("reservation not found or expired")
	ErrTokenNotFound       = errors.New("token not found")
	ErrTokenExpired        = errors.New("token expired")
	ErrTokenConsumed       = errors.New("token already used")
	ErrCheckoutNotFound    = errors.New("checkout session not found")
)

// How long an authorized credit stays held for a request before the hold
// lapses on its own.
const reservationTTL = 10 * time.Minute

// Reservation is a short-lived hold on one credit. The caller either redeems
// it after delivering the paid report or releases it on failure.
type Reservation struct {
	ID        string
	UserID    string
	CreditID  string
	ExpiresAt time.Time
}

type Ledger struct {
	mu           sync.Mutex
	users        map[string]*model.User   // by ID
	usersByEmail map[string]*model.User   // by normalized email
	credits      map[string]*model.Credit // by ID
	reservations map[string]*Reservation  // by reservation ID
	heldCredits  map[string]string        // credit ID -> reservation ID
	tokens       map[string]*model.AuthToken
	checkouts    map[string]*model.CheckoutSession
	processed    map[string]bool // checkout IDs already granted a credit

	userLocks map[string]*sync.Mutex

	now func() time.Time
}

func New() *Ledger {
	return &Ledger{
		users:        make(map[string]*model.User),
		usersByEmail: make(map[string]*model.User),
		credits:      make(map[string]*model.Credit),
		reservations: make(map[string]*Reservation),
		heldCredits:  make(map[string]string),
		tokens:       make(map[string]*model.AuthToken),
		checkouts:    make(map[string]*model.CheckoutSession),
		processed:    make(map[string]bool),
		userLocks:    make(map[string]*sync.Mutex),
		now:          time.Now,
	}
}

// NormalizeEmail folds an email address for identity matching.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// userLock returns the per-user mutex, creating it on first use.
func (l *Ledger) userLock(userID string) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()
	lock, ok := l.userLocks[userID]
	if !ok {
		lock = &sync.Mutex{}
		l.userLocks[userID] = lock
	}
	return lock
}

// UpsertUser finds or creates the user for an email address.
func (l *Ledger) UpsertUser(email string) *model.User {
	norm := NormalizeEmail(email)
	l.mu.Lock()
	defer l.mu.Unlock()
	if u, ok := l.usersByEmail[norm]; ok {
		return u
	}
	u := &model.User{
		ID:        uuid.NewString(),
		Email:     norm,
		CreatedAt: l.now(),
	}
	l.users[u.ID] = u
	l.usersByEmail[norm] = u
	return u
}

func (l *Ledger) UserByID(id string) (*model.User, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	u, ok := l.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	return u, nil
}

func (l *Ledger) UserByEmail(email string) (*model.User, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	u, ok := l.usersByEmail[NormalizeEmail(email)]
	if !ok {
		return nil, ErrUserNotFound
	}
	return u, nil
}

// TouchLogin records a successful login.
func (l *Ledger) TouchLogin(userID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if u, ok := l.users[userID]; ok {
		t := l.now()
		u.LastLogin = &t
	}
}

// IssueCredit grants the user one credit tied to a checkout session.
func (l *Ledger) IssueCredit(userID, checkoutID string, validity time.Duration) *model.Credit {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.issueCreditLocked(userID, checkoutID, validity)
}

func (l *Ledger) issueCreditLocked(userID, checkoutID string, validity time.Duration) *model.Credit {
	c := &model.Credit{
		ID:         uuid.NewString(),
		UserID:     userID,
		CheckoutID: checkoutID,
		IssuedAt:   l.now(),
		ExpiresAt:  l.now().Add(validity),
	}
	l.credits[c.ID] = c
	return c
}

// Authorize places a hold on the user's earliest-expiring usable credit.
// Usable means not redeemed, not expired, and not already held by a live
// reservation. Lapsed holds are reclaimed here.
func (l *Ledger) Authorize(userID string) (*Reservation, error) {
	lock := l.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	var candidates []*model.Credit
	for _, c := range l.credits {
		if c.UserID != userID || c.RedeemedAt != nil || !c.ExpiresAt.After(now) {
			continue
		}
		if resID, held := l.heldCredits[c.ID]; held {
			res := l.reservations[resID]
			if res != nil && res.ExpiresAt.After(now) {
				continue
			}
			// Hold lapsed without redeem or release.
			delete(l.reservations, resID)
			delete(l.heldCredits, c.ID)
		}
		candidates = append(candidates, c)
	}
	if len(candidates) == 0 {
		return nil, ErrInsufficientCredits
	}
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].ExpiresAt.Before(candidates[j].ExpiresAt)
	})

	res := &Reservation{
		ID:        uuid.NewString(),
		UserID:    userID,
		CreditID:  candidates[0].ID,
		ExpiresAt: now.Add(reservationTTL),
	}
	l.reservations[res.ID] = res
	l.heldCredits[res.CreditID] = res.ID
	return res, nil
}

// Redeem burns the held credit. The reservation must still be live.
func (l *Ledger) Redeem(res *Reservation) error {
	lock := l.userLock(res.UserID)
	lock.Lock()
	defer lock.Unlock()

	l.mu.Lock()
	defer l.mu.Unlock()

	stored, ok := l.reservations[res.ID]
	if !ok || !stored.ExpiresAt.After(l.now()) {
		return ErrReservationNotFound
	}
	credit, ok := l.credits[stored.CreditID]
	if !ok {
		return ErrReservationNotFound
	}
	t := l.now()
	credit.RedeemedAt = &t
	delete(l.reservations, res.ID)
	delete(l.heldCredits, credit.ID)
	return nil
}

// Release drops the hold without spending the credit.
func (l *Ledger) Release(res *Reservation) {
	lock := l.userLock(res.UserID)
	lock.Lock()
	defer lock.Unlock()

	l.mu.Lock()
	defer l.mu.Unlock()

	if stored, ok := l.reservations[res.ID]; ok {
		delete(l.heldCredits, stored.CreditID)
		delete(l.reservations, res.ID)
	}
}

// Summary counts the user's spendable credits and the soonest expiry among
// them. Held credits still count as available; the hold is transient.
func (l *Ledger) Summary(userID string) model.CreditSummary {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	var summary model.CreditSummary
	for _, c := range l.credits {
		if c.UserID != userID || c.RedeemedAt != nil || !c.ExpiresAt.After(now) {
			continue
		}
		summary.Available++
		if summary.NextExpiration == nil || c.ExpiresAt.Before(*summary.NextExpiration) {
			exp := c.ExpiresAt
			summary.NextExpiration = &exp
		}
	}
	return summary
}

// CreateToken stores a magic-link token record keyed by its ID. Only the
// nonce hash is kept; the nonce itself travels in the link.
func (l *Ledger) CreateToken(userID, nonceHash string, ttl time.Duration) *model.AuthToken {
	l.mu.Lock()
	defer l.mu.Unlock()
	t := &model.AuthToken{
		ID:        uuid.NewString(),
		UserID:    userID,
		NonceHash: nonceHash,
		CreatedAt: l.now(),
		ExpiresAt: l.now().Add(ttl),
	}
	l.tokens[t.ID] = t
	return t
}

// ConsumeToken atomically validates and burns a magic-link token. A token is
// single use: the first successful consume wins and every retry fails.
func (l *Ledger) ConsumeToken(tokenID, nonceHash string) (*model.AuthToken, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	t, ok := l.tokens[tokenID]
	if !ok || t.NonceHash != nonceHash {
		return nil, ErrTokenNotFound
	}
	if t.ConsumedAt != nil {
		return nil, ErrTokenConsumed
	}
	if !t.ExpiresAt.After(l.now()) {
		return nil, ErrTokenExpired
	}
	now := l.now()
	t.ConsumedAt = &now
	return t, nil
}

// SaveCheckout stores or updates a checkout session record. The ledger keeps
// its own copy so later edits to the caller's value never touch stored state.
func (l *Ledger) SaveCheckout(s *model.CheckoutSession) {
	l.mu.Lock()
	defer l.mu.Unlock()
	cp := *s
	l.checkouts[cp.ID] = &cp
}

// Checkout returns a detached copy of the session record. Mutations go
// through ExpireCheckout and CompleteCheckout, which hold the ledger lock.
func (l *Ledger) Checkout(id string) (*model.CheckoutSession, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	s, ok := l.checkouts[id]
	if !ok {
		return nil, ErrCheckoutNotFound
	}
	cp := *s
	return &cp, nil
}

// ExpireCheckout marks the session expired.
func (l *Ledger) ExpireCheckout(id string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if s, ok := l.checkouts[id]; ok {
		s.Status = model.CheckoutExpired
	}
}

// CompleteCheckout marks the session completed and, the first time it is
// called for a session, issues the credit. Retries observe the completed
// record without granting again, so confirm calls and webhook deliveries can
// race freely. Returns a detached copy of the record and the issued credit,
// nil on every call after the first.
func (l *Ledger) CompleteCheckout(id string, validity time.Duration) (*model.CheckoutSession, *model.Credit, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	s, ok := l.checkouts[id]
	if !ok {
		return nil, nil, ErrCheckoutNotFound
	}
	s.Status = model.CheckoutCompleted
	var credit *model.Credit
	if !l.processed[id] {
		l.processed[id] = true
		credit = l.issueCreditLocked(s.UserID, id, validity)
		s.CreditIssued = true
	}
	cp := *s
	return &cp, credit, nil
}
