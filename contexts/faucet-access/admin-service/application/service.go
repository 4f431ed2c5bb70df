package application

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"tapgate/contexts/faucet-access/admin-service/ports"
	"tapgate/contexts/faucet-access/claim-service/domain/entities"
	domainerrors "tapgate/contexts/faucet-access/claim-service/domain/errors"
)

// DistributorInfo is the operator-facing description of one configured
// distributor.
type DistributorInfo struct {
	ID   string
	Name string
	Path string
	// APIKey is the upstream credential; the claim-code endpoints are
	// scoped by it.
	APIKey     string
	WalletMode entities.WalletMode
	Validators []string

	// DesiredRules is the rule set the upstream should hold for this
	// distributor, taken from local configuration.
	DesiredRules []entities.UpstreamRule
}

// RuleSyncReport summarizes one destructive rule synchronization run.
type RuleSyncReport struct {
	DistributorID string
	Applied       []string
	Deleted       []string
}

// Service drives the operator surface: distributor inventory, ledger
// statistics, and the management endpoints of the upstream faucet.
type Service struct {
	distributors []DistributorInfo
	upstream     ports.Upstream
	ledger       ports.LedgerReader
	logger       *slog.Logger
}

func NewService(
	distributors []DistributorInfo,
	upstream ports.Upstream,
	ledger ports.LedgerReader,
	logger *slog.Logger,
) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		distributors: distributors,
		upstream:     upstream,
		ledger:       ledger,
		logger:       logger,
	}
}

// ListDistributors returns the configured distributor inventory.
func (s *Service) ListDistributors(_ context.Context) []DistributorInfo {
	out := make([]DistributorInfo, len(s.distributors))
	copy(out, s.distributors)
	return out
}

// Stats returns aggregate ledger statistics.
func (s *Service) Stats(ctx context.Context) (entities.LedgerStats, error) {
	return s.ledger.Stats(ctx)
}

// Rules fetches the rule set the upstream currently holds for a distributor.
func (s *Service) Rules(ctx context.Context, distributorID string) ([]entities.UpstreamRule, error) {
	if _, err := s.findDistributor(distributorID); err != nil {
		return nil, err
	}
	return s.upstream.Rules(ctx, distributorID)
}

// SyncRules makes the upstream rule set for a distributor match local
// configuration. Rules the upstream holds but the configuration does not are
// deleted; every configured rule is then written. The sync is destructive and
// not transactional, so a mid-run failure leaves the upstream partially
// updated; rerunning converges.
func (s *Service) SyncRules(ctx context.Context, distributorID string) (RuleSyncReport, error) {
	info, err := s.findDistributor(distributorID)
	if err != nil {
		return RuleSyncReport{}, err
	}

	current, err := s.upstream.Rules(ctx, distributorID)
	if err != nil {
		return RuleSyncReport{}, fmt.Errorf("list upstream rules: %w", err)
	}

	desired := make(map[string]struct{}, len(info.DesiredRules))
	for _, rule := range info.DesiredRules {
		desired[rule.Key] = struct{}{}
	}

	report := RuleSyncReport{DistributorID: distributorID}
	for _, rule := range current {
		if _, keep := desired[rule.Key]; keep {
			continue
		}
		if err := s.upstream.DeleteRule(ctx, distributorID, rule.ID); err != nil {
			return report, fmt.Errorf("delete upstream rule %s: %w", rule.Key, err)
		}
		report.Deleted = append(report.Deleted, rule.Key)
	}
	for _, rule := range info.DesiredRules {
		if err := s.upstream.SetRule(ctx, distributorID, rule); err != nil {
			return report, fmt.Errorf("set upstream rule %s: %w", rule.Key, err)
		}
		report.Applied = append(report.Applied, rule.Key)
	}

	s.logger.Info("upstream rules synchronized",
		"event", "admin_rules_synced",
		"module", "faucet-access/admin-service",
		"layer", "application",
		"distributor_id", distributorID,
		"applied", len(report.Applied),
		"deleted", len(report.Deleted),
	)
	return report, nil
}

// CreateClaimCodes mints single-use claim codes upstream.
func (s *Service) CreateClaimCodes(ctx context.Context, distributorID string, count int) ([]entities.ClaimCode, error) {
	info, err := s.findDistributor(distributorID)
	if err != nil {
		return nil, err
	}
	codes, err := s.upstream.CreateClaimCodes(ctx, info.APIKey, count)
	if err != nil {
		return nil, err
	}
	s.logger.Info("claim codes created",
		"event", "admin_claim_codes_created",
		"module", "faucet-access/admin-service",
		"layer", "application",
		"distributor_id", distributorID,
		"count", len(codes),
	)
	return codes, nil
}

// ClaimCodes lists the claim codes issued upstream for a distributor.
func (s *Service) ClaimCodes(ctx context.Context, distributorID string) ([]entities.ClaimCode, error) {
	info, err := s.findDistributor(distributorID)
	if err != nil {
		return nil, err
	}
	return s.upstream.ClaimCodes(ctx, info.APIKey)
}

// TransactionStatus fetches the upstream view of a drip by the transaction id
// a claim returned.
func (s *Service) TransactionStatus(ctx context.Context, transactionID string) (entities.UpstreamTransactionStatus, error) {
	transactionID = strings.TrimSpace(transactionID)
	if transactionID == "" {
		return entities.UpstreamTransactionStatus{}, fmt.Errorf("transaction id is required")
	}
	return s.upstream.TransactionStatus(ctx, transactionID)
}

func (s *Service) findDistributor(distributorID string) (DistributorInfo, error) {
	distributorID = strings.TrimSpace(distributorID)
	for _, info := range s.distributors {
		if info.ID == distributorID {
			return info, nil
		}
	}
	return DistributorInfo{}, fmt.Errorf("%w: %s", domainerrors.ErrDistributorNotFound, distributorID)
}
