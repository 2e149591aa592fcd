package ledger

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"hostscore/internal/model"
)

func TestUpsertUserNormalizesEmail(t *testing.T) {
	l := New()
	a := l.UpsertUser("Guest@Example.com ")
	b := l.UpsertUser("guest@example.com")
	if a.ID != b.ID {
		t.Fatal("expected case-folded emails to map to one user")
	}
	if a.Email != "guest@example.com" {
		t.Fatalf("expected normalized email, got %q", a.Email)
	}
	if _, err := l.UserByEmail("GUEST@example.com"); err != nil {
		t.Fatalf("expected lookup by unnormalized email, got %v", err)
	}
}

func TestAuthorizePicksEarliestExpiry(t *testing.T) {
	l := New()
	u := l.UpsertUser("a@example.com")
	l.IssueCredit(u.ID, "co_late", 60*24*time.Hour)
	early := l.IssueCredit(u.ID, "co_early", 24*time.Hour)

	res, err := l.Authorize(u.ID)
	if err != nil {
		t.Fatalf("expected authorization, got %v", err)
	}
	if res.CreditID != early.ID {
		t.Fatal("expected the earliest-expiring credit to be held")
	}
}

func TestAuthorizeSkipsExpiredAndRedeemed(t *testing.T) {
	l := New()
	u := l.UpsertUser("a@example.com")
	l.IssueCredit(u.ID, "co_expired", -time.Hour)

	if _, err := l.Authorize(u.ID); !errors.Is(err, ErrInsufficientCredits) {
		t.Fatalf("expected ErrInsufficientCredits, got %v", err)
	}

	l.IssueCredit(u.ID, "co_live", 24*time.Hour)
	res, err := l.Authorize(u.ID)
	if err != nil {
		t.Fatalf("expected authorization, got %v", err)
	}
	if err := l.Redeem(res); err != nil {
		t.Fatalf("expected redeem, got %v", err)
	}
	if _, err := l.Authorize(u.ID); !errors.Is(err, ErrInsufficientCredits) {
		t.Fatalf("expected redeemed credit to be spent, got %v", err)
	}
}

func TestReleaseReturnsCredit(t *testing.T) {
	l := New()
	u := l.UpsertUser("a@example.com")
	l.IssueCredit(u.ID, "co_1", 24*time.Hour)

	res, err := l.Authorize(u.ID)
	if err != nil {
		t.Fatalf("expected authorization, got %v", err)
	}
	// While held, the single credit cannot be authorized again.
	if _, err := l.Authorize(u.ID); !errors.Is(err, ErrInsufficientCredits) {
		t.Fatalf("expected held credit to be unavailable, got %v", err)
	}
	l.Release(res)
	if _, err := l.Authorize(u.ID); err != nil {
		t.Fatalf("expected released credit to be reusable, got %v", err)
	}
}

func TestLapsedReservationIsReclaimed(t *testing.T) {
	l := New()
	u := l.UpsertUser("a@example.com")
	l.IssueCredit(u.ID, "co_1", 24*time.Hour)

	if _, err := l.Authorize(u.ID); err != nil {
		t.Fatalf("expected authorization, got %v", err)
	}

	// Move past the hold TTL without redeem or release.
	l.now = func() time.Time { return time.Now().Add(reservationTTL + time.Minute) }
	if _, err := l.Authorize(u.ID); err != nil {
		t.Fatalf("expected lapsed hold to be reclaimed, got %v", err)
	}
}

func TestRedeemLapsedReservationFails(t *testing.T) {
	l := New()
	u := l.UpsertUser("a@example.com")
	l.IssueCredit(u.ID, "co_1", 24*time.Hour)

	res, err := l.Authorize(u.ID)
	if err != nil {
		t.Fatalf("expected authorization, got %v", err)
	}
	l.now = func() time.Time { return time.Now().Add(reservationTTL + time.Minute) }
	if err := l.Redeem(res); !errors.Is(err, ErrReservationNotFound) {
		t.Fatalf("expected lapsed redeem to fail, got %v", err)
	}
}

func TestConcurrentAuthorizeSpendsEachCreditOnce(t *testing.T) {
	l := New()
	u := l.UpsertUser("a@example.com")
	for i := 0; i < 3; i++ {
		l.IssueCredit(u.ID, "co", 24*time.Hour)
	}

	var granted int32
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := l.Authorize(u.ID)
			if err != nil {
				return
			}
			atomic.AddInt32(&granted, 1)
			if err := l.Redeem(res); err != nil {
				t.Errorf("redeem failed: %v", err)
			}
		}()
	}
	wg.Wait()

	if got := atomic.LoadInt32(&granted); got != 3 {
		t.Fatalf("expected exactly 3 grants for 3 credits, got %d", got)
	}
	if s := l.Summary(u.ID); s.Available != 0 {
		t.Fatalf("expected all credits spent, got %d available", s.Available)
	}
}

func TestSummary(t *testing.T) {
	l := New()
	u := l.UpsertUser("a@example.com")
	if s := l.Summary(u.ID); s.Available != 0 || s.NextExpiration != nil {
		t.Fatalf("expected empty summary, got %+v", s)
	}

	l.IssueCredit(u.ID, "co_late", 48*time.Hour)
	early := l.IssueCredit(u.ID, "co_early", 24*time.Hour)
	l.IssueCredit(u.ID, "co_expired", -time.Hour)

	s := l.Summary(u.ID)
	if s.Available != 2 {
		t.Fatalf("expected 2 available credits, got %d", s.Available)
	}
	if s.NextExpiration == nil || !s.NextExpiration.Equal(early.ExpiresAt) {
		t.Fatalf("expected next expiration %v, got %v", early.ExpiresAt, s.NextExpiration)
	}
}

func TestConsumeTokenSingleUse(t *testing.T) {
	l := New()
	u := l.UpsertUser("a@example.com")
	tok := l.CreateToken(u.ID, "hash", 15*time.Minute)

	if _, err := l.ConsumeToken(tok.ID, "wrong-hash"); !errors.Is(err, ErrTokenNotFound) {
		t.Fatalf("expected mismatched nonce to fail, got %v", err)
	}
	got, err := l.ConsumeToken(tok.ID, "hash")
	if err != nil {
		t.Fatalf("expected consume to succeed, got %v", err)
	}
	if got.UserID != u.ID {
		t.Fatalf("expected token owner %s, got %s", u.ID, got.UserID)
	}
	if _, err := l.ConsumeToken(tok.ID, "hash"); !errors.Is(err, ErrTokenConsumed) {
		t.Fatalf("expected replay to fail, got %v", err)
	}
}

func TestConsumeTokenExpired(t *testing.T) {
	l := New()
	u := l.UpsertUser("a@example.com")
	tok := l.CreateToken(u.ID, "hash", 15*time.Minute)

	l.now = func() time.Time { return time.Now().Add(time.Hour) }
	if _, err := l.ConsumeToken(tok.ID, "hash"); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected expiry, got %v", err)
	}
}

func TestConcurrentConsumeTokenOneWinner(t *testing.T) {
	l := New()
	u := l.UpsertUser("a@example.com")
	tok := l.CreateToken(u.ID, "hash", 15*time.Minute)

	var wins int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := l.ConsumeToken(tok.ID, "hash"); err == nil {
				atomic.AddInt32(&wins, 1)
			}
		}()
	}
	wg.Wait()
	if got := atomic.LoadInt32(&wins); got != 1 {
		t.Fatalf("expected exactly one successful consume, got %d", got)
	}
}

func TestCompleteCheckoutIssuesCreditOnce(t *testing.T) {
	l := New()
	u := l.UpsertUser("a@example.com")
	l.SaveCheckout(&model.CheckoutSession{ID: "co_1", UserID: u.ID, Status: model.CheckoutCreated})

	first, credit, err := l.CompleteCheckout("co_1", 24*time.Hour)
	if err != nil {
		t.Fatalf("expected completion, got %v", err)
	}
	if first.Status != model.CheckoutCompleted || !first.CreditIssued {
		t.Fatalf("expected completed record with credit, got %+v", first)
	}
	if credit == nil || credit.UserID != u.ID {
		t.Fatalf("expected credit for %s, got %+v", u.ID, credit)
	}

	second, credit, err := l.CompleteCheckout("co_1", 24*time.Hour)
	if err != nil {
		t.Fatalf("expected retry to succeed, got %v", err)
	}
	if credit != nil {
		t.Fatal("expected no second credit")
	}
	if !second.CreditIssued {
		t.Fatal("expected retry to observe the issued credit")
	}
	if s := l.Summary(u.ID); s.Available != 1 {
		t.Fatalf("expected a single credit, got %d", s.Available)
	}

	if _, _, err := l.CompleteCheckout("co_missing", 24*time.Hour); !errors.Is(err, ErrCheckoutNotFound) {
		t.Fatalf("expected ErrCheckoutNotFound, got %v", err)
	}
}

func TestConcurrentCompleteCheckoutOneCredit(t *testing.T) {
	l := New()
	u := l.UpsertUser("a@example.com")
	l.SaveCheckout(&model.CheckoutSession{ID: "co_1", UserID: u.ID, Status: model.CheckoutCreated})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, _, err := l.CompleteCheckout("co_1", 24*time.Hour); err != nil {
				t.Errorf("complete failed: %v", err)
			}
		}()
	}
	wg.Wait()

	if s := l.Summary(u.ID); s.Available != 1 {
		t.Fatalf("expected exactly one credit, got %d", s.Available)
	}
}

func TestCheckoutReturnsDetachedCopy(t *testing.T) {
	l := New()
	l.SaveCheckout(&model.CheckoutSession{ID: "co_1", Status: model.CheckoutCreated})

	got, err := l.Checkout("co_1")
	if err != nil {
		t.Fatalf("checkout lookup: %v", err)
	}
	got.Status = model.CheckoutExpired

	again, err := l.Checkout("co_1")
	if err != nil {
		t.Fatalf("checkout lookup: %v", err)
	}
	if again.Status != model.CheckoutCreated {
		t.Fatalf("expected stored record untouched, got %s", again.Status)
	}
}
