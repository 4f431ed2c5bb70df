package validators

import (
	"context"
	"fmt"

	"tapgate/contexts/faucet-access/claim-service/domain/entities"
	domainerrors "tapgate/contexts/faucet-access/claim-service/domain/errors"
	"tapgate/contexts/faucet-access/claim-service/ports"
)

// OnceOnly permits at most one lifetime claim per wallet per distributor.
type OnceOnly struct {
	distributorID string
	ledger        ports.ClaimLedger
}

func NewOnceOnly(distributorID string, ledger ports.ClaimLedger) (*OnceOnly, error) {
	if distributorID == "" {
		return nil, fmt.Errorf("%w: once-only requires a distributor id",
			domainerrors.ErrInvalidDistributorConfig)
	}
	if ledger == nil {
		return nil, fmt.Errorf("%w: once-only requires a claim ledger",
			domainerrors.ErrInvalidDistributorConfig)
	}
	return &OnceOnly{distributorID: distributorID, ledger: ledger}, nil
}

func buildOnceOnly(env BuildEnvironment, _ Config) (Validator, error) {
	return NewOnceOnly(env.DistributorID, env.Ledger)
}

func (v *OnceOnly) Name() string { return TypeOnceOnly }

func (v *OnceOnly) Validate(ctx context.Context, claim entities.ClaimContext) (entities.Patch, error) {
	wallet := claimantWallet(claim)
	if wallet == "" {
		return nil, domainerrors.ErrWalletUnavailable
	}

	claimed, err := v.ledger.HasClaim(ctx, wallet, v.distributorID)
	if err != nil {
		return nil, fmt.Errorf("once-only lookup: %w", err)
	}
	if claimed {
		return nil, domainerrors.ErrAlreadyClaimed
	}
	return entities.Patch{entities.AttachmentValidatedWallet: wallet}, nil
}
