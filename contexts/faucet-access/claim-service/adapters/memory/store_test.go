package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"tapgate/contexts/faucet-access/claim-service/domain/entities"
	domainerrors "tapgate/contexts/faucet-access/claim-service/domain/errors"
)

func record(id string, wallet string, exclusive bool, createdAt time.Time) entities.ClaimRecord {
	return entities.ClaimRecord{
		ID:             id,
		DistributorID:  "dist-1",
		EmbeddedWallet: wallet,
		ExternalWallet: wallet,
		VisitorID:      "visitor-1",
		Amount:         decimal.RequireFromString("0.05"),
		Exclusive:      exclusive,
		CreatedAt:      createdAt,
	}
}

func TestInsertRejectsExclusiveDuplicates(t *testing.T) {
	store := NewStore()
	now := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)

	if err := store.Insert(context.Background(), record("c1", "0x00000000000000000000000000000000000000AA", true, now)); err != nil {
		t.Fatalf("first insert: %v", err)
	}
	err := store.Insert(context.Background(), record("c2", "0x00000000000000000000000000000000000000aa", true, now))
	if !errors.Is(err, domainerrors.ErrAlreadyClaimed) {
		t.Fatalf("expected duplicate rejection across case variants, got %v", err)
	}
}

func TestInsertAllowsRepeatsForWindowedDistributors(t *testing.T) {
	store := NewStore()
	now := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
	wallet := "0x00000000000000000000000000000000000000aa"

	if err := store.Insert(context.Background(), record("c1", wallet, false, now)); err != nil {
		t.Fatalf("first insert: %v", err)
	}
	if err := store.Insert(context.Background(), record("c2", wallet, false, now.Add(time.Hour))); err != nil {
		t.Fatalf("second insert: %v", err)
	}
}

func TestHasClaimMatchesEitherWalletCaseInsensitive(t *testing.T) {
	store := NewStore()
	now := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
	rec := record("c1", "0x00000000000000000000000000000000000000aa", false, now)
	rec.ExternalWallet = "0x00000000000000000000000000000000000000bb"
	if err := store.Insert(context.Background(), rec); err != nil {
		t.Fatalf("insert: %v", err)
	}

	claimed, err := store.HasClaim(context.Background(), "0x00000000000000000000000000000000000000BB", "dist-1")
	if err != nil {
		t.Fatalf("has claim: %v", err)
	}
	if !claimed {
		t.Fatalf("expected external wallet match regardless of case")
	}

	claimed, err = store.HasClaim(context.Background(), "0x00000000000000000000000000000000000000cc", "dist-1")
	if err != nil {
		t.Fatalf("has claim: %v", err)
	}
	if claimed {
		t.Fatalf("expected unknown wallet to report no claim")
	}
}

func TestRecentClaimsNewestFirstWithinWindow(t *testing.T) {
	store := NewStore()
	now := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
	wallet := "0x00000000000000000000000000000000000000aa"

	for i, age := range []time.Duration{72 * time.Hour, 2 * time.Hour, 30 * time.Hour} {
		rec := record("c"+string(rune('1'+i)), wallet, false, now.Add(-age))
		if err := store.Insert(context.Background(), rec); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}

	items, err := store.RecentClaims(context.Background(), wallet, "dist-1", now.Add(-48*time.Hour))
	if err != nil {
		t.Fatalf("recent claims: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected the 72h record filtered out, got %d records", len(items))
	}
	if !items[0].CreatedAt.After(items[1].CreatedAt) {
		t.Fatalf("expected newest-first ordering, got %v then %v", items[0].CreatedAt, items[1].CreatedAt)
	}
}

func TestStatsAggregates(t *testing.T) {
	store := NewStore()
	now := time.Now().UTC()

	if err := store.Insert(context.Background(), record("c1", "0x00000000000000000000000000000000000000aa", false, now.Add(-time.Hour))); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := store.Insert(context.Background(), record("c2", "0x00000000000000000000000000000000000000bb", false, now.Add(-48*time.Hour))); err != nil {
		t.Fatalf("insert: %v", err)
	}

	stats, err := store.Stats(context.Background())
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.TotalClaims != 2 || stats.UniqueWallets != 2 {
		t.Fatalf("unexpected totals %+v", stats)
	}
	if stats.ClaimsLast24h != 1 {
		t.Fatalf("expected one claim in the last 24h, got %d", stats.ClaimsLast24h)
	}
	if !stats.TotalAmount.Equal(decimal.RequireFromString("0.1")) {
		t.Fatalf("expected summed amount 0.1, got %s", stats.TotalAmount)
	}
}
