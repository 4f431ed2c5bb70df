package validators

import (
	"context"
	"errors"
	"testing"
	"time"

	"tapgate/contexts/faucet-access/claim-service/domain/entities"
	domainerrors "tapgate/contexts/faucet-access/claim-service/domain/errors"
)

type stubLedger struct {
	recent    []entities.ClaimRecord
	hasClaim  bool
	lastQuery string
}

func (s *stubLedger) Insert(_ context.Context, _ entities.ClaimRecord) error {
	return nil
}

func (s *stubLedger) HasClaim(_ context.Context, wallet string, _ string) (bool, error) {
	s.lastQuery = wallet
	return s.hasClaim, nil
}

func (s *stubLedger) RecentClaims(_ context.Context, wallet string, _ string, _ time.Time) ([]entities.ClaimRecord, error) {
	s.lastQuery = wallet
	return s.recent, nil
}

func (s *stubLedger) Stats(_ context.Context) (entities.LedgerStats, error) {
	return entities.LedgerStats{}, nil
}

type fixedClock struct {
	now time.Time
}

func (c fixedClock) Now() time.Time { return c.now }

const testWallet = "0x00000000000000000000000000000000000000aa"

func directClaim(wallet string) entities.ClaimContext {
	return entities.ClaimContext{
		DistributorID: "dist-1",
		VisitorID:     "visitor-1",
		WalletAddress: wallet,
	}
}

func recordAt(at time.Time) entities.ClaimRecord {
	return entities.ClaimRecord{
		ID:             "claim",
		DistributorID:  "dist-1",
		EmbeddedWallet: testWallet,
		ExternalWallet: testWallet,
		CreatedAt:      at,
	}
}

func TestNewTimeWindowRejectsUnreachableMaximum(t *testing.T) {
	_, err := NewTimeWindow("dist-1", TimeWindowConfig{
		Window:    168 * time.Hour,
		MaxClaims: 5,
		Cooldown:  48 * time.Hour,
	}, &stubLedger{}, fixedClock{})
	if !errors.Is(err, domainerrors.ErrInvalidDistributorConfig) {
		t.Fatalf("expected invalid config for cooldown exceeding window, got %v", err)
	}
}

func TestTimeWindowAllowsFirstClaim(t *testing.T) {
	now := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
	validator, err := NewTimeWindow("dist-1", TimeWindowConfig{
		Window:    7 * 24 * time.Hour,
		MaxClaims: 3,
		Cooldown:  24 * time.Hour,
	}, &stubLedger{}, fixedClock{now: now})
	if err != nil {
		t.Fatalf("construct validator: %v", err)
	}

	patch, err := validator.Validate(context.Background(), directClaim(testWallet))
	if err != nil {
		t.Fatalf("expected empty history to pass, got %v", err)
	}
	if patch[entities.AttachmentValidatedWallet] != testWallet {
		t.Fatalf("expected validated wallet attachment, got %v", patch)
	}
}

func TestTimeWindowRejectsWhenCountExhausted(t *testing.T) {
	now := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
	ledger := &stubLedger{recent: []entities.ClaimRecord{
		recordAt(now.Add(-25 * time.Hour)),
		recordAt(now.Add(-50 * time.Hour)),
		recordAt(now.Add(-75 * time.Hour)),
	}}
	validator, err := NewTimeWindow("dist-1", TimeWindowConfig{
		Window:    7 * 24 * time.Hour,
		MaxClaims: 3,
		Cooldown:  24 * time.Hour,
	}, ledger, fixedClock{now: now})
	if err != nil {
		t.Fatalf("construct validator: %v", err)
	}

	_, err = validator.Validate(context.Background(), directClaim(testWallet))
	if !errors.Is(err, domainerrors.ErrRateLimited) {
		t.Fatalf("expected rate limit with window full, got %v", err)
	}
}

func TestTimeWindowRejectsDuringCooldown(t *testing.T) {
	now := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
	ledger := &stubLedger{recent: []entities.ClaimRecord{
		recordAt(now.Add(-1 * time.Hour)),
	}}
	validator, err := NewTimeWindow("dist-1", TimeWindowConfig{
		Window:    7 * 24 * time.Hour,
		MaxClaims: 3,
		Cooldown:  24 * time.Hour,
	}, ledger, fixedClock{now: now})
	if err != nil {
		t.Fatalf("construct validator: %v", err)
	}

	_, err = validator.Validate(context.Background(), directClaim(testWallet))
	if !errors.Is(err, domainerrors.ErrRateLimited) {
		t.Fatalf("expected cooldown rejection, got %v", err)
	}
}

func TestTimeWindowAllowsAfterCooldownWithRoom(t *testing.T) {
	now := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
	ledger := &stubLedger{recent: []entities.ClaimRecord{
		recordAt(now.Add(-30 * time.Hour)),
	}}
	validator, err := NewTimeWindow("dist-1", TimeWindowConfig{
		Window:    7 * 24 * time.Hour,
		MaxClaims: 3,
		Cooldown:  24 * time.Hour,
	}, ledger, fixedClock{now: now})
	if err != nil {
		t.Fatalf("construct validator: %v", err)
	}

	if _, err := validator.Validate(context.Background(), directClaim(testWallet)); err != nil {
		t.Fatalf("expected claim with room and elapsed cooldown to pass, got %v", err)
	}
}

func TestTimeWindowQueriesLowercasedWallet(t *testing.T) {
	now := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
	ledger := &stubLedger{}
	validator, err := NewTimeWindow("dist-1", TimeWindowConfig{
		Window:    24 * time.Hour,
		MaxClaims: 1,
		Cooldown:  time.Hour,
	}, ledger, fixedClock{now: now})
	if err != nil {
		t.Fatalf("construct validator: %v", err)
	}

	mixed := "0x00000000000000000000000000000000000000AA"
	if _, err := validator.Validate(context.Background(), directClaim(mixed)); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if ledger.lastQuery != testWallet {
		t.Fatalf("expected lowercased ledger lookup, got %q", ledger.lastQuery)
	}
}

func TestResolveWindowPeriods(t *testing.T) {
	cases := []struct {
		period string
		want   time.Duration
	}{
		{"hour", time.Hour},
		{"day", 24 * time.Hour},
		{"week", 7 * 24 * time.Hour},
		{"month", 30 * 24 * time.Hour},
		{"year", 365 * 24 * time.Hour},
		{"", 7 * 24 * time.Hour},
	}
	for _, tc := range cases {
		got, err := resolveWindow(Config{Period: tc.period})
		if err != nil {
			t.Fatalf("period %q: %v", tc.period, err)
		}
		if got != tc.want {
			t.Fatalf("period %q: expected %s, got %s", tc.period, tc.want, got)
		}
	}

	if _, err := resolveWindow(Config{Period: "fortnight"}); !errors.Is(err, domainerrors.ErrInvalidDistributorConfig) {
		t.Fatalf("expected unknown period rejection, got %v", err)
	}
}
