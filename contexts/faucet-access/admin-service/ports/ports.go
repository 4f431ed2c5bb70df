package ports

import (
	"context"

	"tapgate/contexts/faucet-access/claim-service/domain/entities"
)

// Upstream is the management surface of the upstream faucet API.
type Upstream interface {
	Rules(ctx context.Context, distributorID string) ([]entities.UpstreamRule, error)
	SetRule(ctx context.Context, distributorID string, rule entities.UpstreamRule) error
	DeleteRule(ctx context.Context, distributorID string, ruleID string) error
	// The claim-code endpoints are scoped upstream by the distributor api
	// key rather than an id in the path.
	CreateClaimCodes(ctx context.Context, apiKey string, count int) ([]entities.ClaimCode, error)
	ClaimCodes(ctx context.Context, apiKey string) ([]entities.ClaimCode, error)
	TransactionStatus(ctx context.Context, transactionID string) (entities.UpstreamTransactionStatus, error)
}

// LedgerReader is the read-only slice of the claim ledger the admin surface
// exposes.
type LedgerReader interface {
	Stats(ctx context.Context) (entities.LedgerStats, error)
}
