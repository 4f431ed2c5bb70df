package ports

import (
	"context"
	"math/big"
	"time"

	"tapgate/contexts/faucet-access/claim-service/domain/entities"
)

// ClaimLedger is the append-only claim record store backing the rate-limit
// validators. RecentClaims returns records newest-first.
type ClaimLedger interface {
	Insert(ctx context.Context, record entities.ClaimRecord) error
	HasClaim(ctx context.Context, wallet string, distributorID string) (bool, error)
	RecentClaims(ctx context.Context, wallet string, distributorID string, since time.Time) ([]entities.ClaimRecord, error)
	Stats(ctx context.Context) (entities.LedgerStats, error)
}

type Clock interface {
	Now() time.Time
}

type IDGenerator interface {
	NewID(ctx context.Context) (string, error)
}

// FaucetClient submits an approved claim to the upstream faucet. One attempt
// per claim; the upstream exposes no idempotency key, so retries are unsafe.
type FaucetClient interface {
	SubmitClaim(ctx context.Context, apiKey string, submission entities.ClaimSubmission) (entities.ClaimGrant, error)
}

// TokenTransferer performs the optional secondary on-chain payout and returns
// the transaction hash after one confirmation.
type TokenTransferer interface {
	Transfer(ctx context.Context, recipient string) (string, error)
}

// BalanceReader reads an ERC-1155 balance for ownership checks.
type BalanceReader interface {
	BalanceOf(ctx context.Context, contract string, wallet string, tokenID *big.Int) (*big.Int, error)
}

// WalletVerifier confirms an embedded wallet belongs to the configured
// project. An unknown wallet (upstream 404) is not an error; only transport
// failures and hard rejections are.
type WalletVerifier interface {
	VerifyWallet(ctx context.Context, address string) error
}
