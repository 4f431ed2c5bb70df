package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"tapgate/contexts/faucet-access/claim-service/domain/entities"
	domainerrors "tapgate/contexts/faucet-access/claim-service/domain/errors"
)

// Store is the in-memory claim ledger used by tests and local runs. It also
// provides the clock and id generator so a module can be wired with one value.
type Store struct {
	mu      sync.RWMutex
	records []entities.ClaimRecord
}

func NewStore() *Store {
	return &Store{}
}

func (s *Store) Insert(_ context.Context, record entities.ClaimRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if strings.TrimSpace(record.ID) == "" {
		return domainerrors.ErrInvalidDistributorConfig
	}
	if record.Exclusive {
		for _, existing := range s.records {
			if existing.DistributorID == record.DistributorID &&
				existing.EmbeddedWallet == entities.NormalizeWallet(record.EmbeddedWallet) {
				return domainerrors.ErrAlreadyClaimed
			}
		}
	}

	record.EmbeddedWallet = entities.NormalizeWallet(record.EmbeddedWallet)
	record.ExternalWallet = entities.NormalizeWallet(record.ExternalWallet)
	record.CreatedAt = record.CreatedAt.UTC()
	s.records = append(s.records, record)
	return nil
}

func (s *Store) HasClaim(_ context.Context, wallet string, distributorID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	wallet = entities.NormalizeWallet(wallet)
	for _, record := range s.records {
		if record.DistributorID != distributorID {
			continue
		}
		if record.EmbeddedWallet == wallet || record.ExternalWallet == wallet {
			return true, nil
		}
	}
	return false, nil
}

func (s *Store) RecentClaims(_ context.Context, wallet string, distributorID string, since time.Time) ([]entities.ClaimRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	wallet = entities.NormalizeWallet(wallet)
	items := make([]entities.ClaimRecord, 0)
	for _, record := range s.records {
		if record.DistributorID != distributorID {
			continue
		}
		if record.EmbeddedWallet != wallet && record.ExternalWallet != wallet {
			continue
		}
		if record.CreatedAt.Before(since) {
			continue
		}
		items = append(items, record)
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})
	return items, nil
}

func (s *Store) Stats(_ context.Context) (entities.LedgerStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := entities.LedgerStats{TotalAmount: decimal.Zero}
	wallets := make(map[string]struct{})
	dayAgo := time.Now().UTC().Add(-24 * time.Hour)
	for _, record := range s.records {
		stats.TotalClaims++
		stats.TotalAmount = stats.TotalAmount.Add(record.Amount)
		wallets[record.EmbeddedWallet] = struct{}{}
		if record.CreatedAt.After(dayAgo) {
			stats.ClaimsLast24h++
		}
	}
	stats.UniqueWallets = int64(len(wallets))
	return stats, nil
}

func (s *Store) Now() time.Time {
	return time.Now().UTC()
}

func (s *Store) NewID(_ context.Context) (string, error) {
	return uuid.NewString(), nil
}
