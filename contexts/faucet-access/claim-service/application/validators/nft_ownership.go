package validators

import (
	"context"
	"fmt"
	"math/big"

	"tapgate/contexts/faucet-access/claim-service/domain/entities"
	domainerrors "tapgate/contexts/faucet-access/claim-service/domain/errors"
	"tapgate/contexts/faucet-access/claim-service/ports"
)

// NFTOwnership gates a claim on holding at least one unit of a configured
// ERC-1155 token.
type NFTOwnership struct {
	contract string
	tokenID  *big.Int
	balances ports.BalanceReader
}

func NewNFTOwnership(contract string, tokenID *big.Int, balances ports.BalanceReader) (*NFTOwnership, error) {
	if !entities.ValidWalletAddress(contract) {
		return nil, fmt.Errorf("%w: nft-ownership contract address %q is not a valid EVM address",
			domainerrors.ErrInvalidDistributorConfig, contract)
	}
	if tokenID == nil || tokenID.Sign() < 0 {
		return nil, fmt.Errorf("%w: nft-ownership token id is required",
			domainerrors.ErrInvalidDistributorConfig)
	}
	if balances == nil {
		return nil, fmt.Errorf("%w: nft-ownership requires a balance reader",
			domainerrors.ErrInvalidDistributorConfig)
	}
	return &NFTOwnership{
		contract: entities.NormalizeWallet(contract),
		tokenID:  tokenID,
		balances: balances,
	}, nil
}

func buildNFTOwnership(env BuildEnvironment, cfg Config) (Validator, error) {
	if env.NewBalanceReader == nil {
		return nil, fmt.Errorf("%w: no blockchain read client configured for nft-ownership",
			domainerrors.ErrInvalidDistributorConfig)
	}
	if cfg.RPCURL == "" {
		return nil, fmt.Errorf("%w: nft-ownership requires an rpc_url",
			domainerrors.ErrInvalidDistributorConfig)
	}
	tokenID, ok := new(big.Int).SetString(cfg.TokenID, 10)
	if !ok {
		return nil, fmt.Errorf("%w: nft-ownership token id %q is not a decimal integer",
			domainerrors.ErrInvalidDistributorConfig, cfg.TokenID)
	}
	balances, err := env.NewBalanceReader(cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("%w: nft-ownership rpc client: %v",
			domainerrors.ErrInvalidDistributorConfig, err)
	}
	return NewNFTOwnership(cfg.ContractAddress, tokenID, balances)
}

func (v *NFTOwnership) Name() string { return TypeNFTOwnership }

func (v *NFTOwnership) Validate(ctx context.Context, claim entities.ClaimContext) (entities.Patch, error) {
	wallet := claimantWallet(claim)
	if wallet == "" {
		return nil, domainerrors.ErrWalletUnavailable
	}
	if !entities.ValidWalletAddress(wallet) {
		return nil, domainerrors.ErrInvalidWalletAddress
	}

	// A read failure is surfaced as such; it must never be conflated with a
	// zero balance.
	balance, err := v.balances.BalanceOf(ctx, v.contract, wallet, v.tokenID)
	if err != nil {
		return nil, fmt.Errorf("nft ownership read for %s: %w", wallet, err)
	}
	if balance.Sign() == 0 {
		return nil, fmt.Errorf("%w: token id %s at %s", domainerrors.ErrNFTNotOwned,
			v.tokenID.String(), v.contract)
	}

	return entities.Patch{
		entities.AttachmentValidatedWallet: wallet,
		entities.AttachmentNFTBalance:      balance.String(),
	}, nil
}
