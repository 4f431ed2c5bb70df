package commands

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"

	application "tapgate/contexts/faucet-access/claim-service/application"
	"tapgate/contexts/faucet-access/claim-service/application/validators"
	"tapgate/contexts/faucet-access/claim-service/domain/entities"
	domainerrors "tapgate/contexts/faucet-access/claim-service/domain/errors"
	"tapgate/contexts/faucet-access/claim-service/ports"
)

// Distributor orchestrates one logical faucet endpoint: its validator chain,
// upstream credentials, optional secondary payout, and the persistence of
// granted claims. Instances are built once at startup and never mutated.
type Distributor struct {
	ID           string
	Name         string
	Path         string
	APIKey       string
	PayoutAmount decimal.Decimal
	WalletMode   entities.WalletMode

	Validators []validators.Validator
	Ledger     ports.ClaimLedger
	Faucet     ports.FaucetClient
	Transfer   ports.TokenTransferer
	Clock      ports.Clock
	IDGen      ports.IDGenerator
	Logger     *slog.Logger

	exclusive bool
}

// NewDistributor validates the wiring invariants that the configuration
// layer cannot see. Any error here is fatal at startup.
func NewDistributor(d Distributor) (*Distributor, error) {
	switch {
	case strings.TrimSpace(d.ID) == "":
		return nil, fmt.Errorf("%w: distributor id is required", domainerrors.ErrInvalidDistributorConfig)
	case strings.TrimSpace(d.APIKey) == "":
		return nil, fmt.Errorf("%w: distributor %s has no upstream api key",
			domainerrors.ErrInvalidDistributorConfig, d.ID)
	case len(d.Validators) == 0:
		return nil, fmt.Errorf("%w: distributor %s has no validators",
			domainerrors.ErrInvalidDistributorConfig, d.ID)
	case d.WalletMode != entities.WalletModeIdentityToken && d.WalletMode != entities.WalletModeDirect:
		return nil, fmt.Errorf("%w: distributor %s wallet mode %q is not identity-token or direct",
			domainerrors.ErrInvalidDistributorConfig, d.ID, d.WalletMode)
	case d.Ledger == nil || d.Faucet == nil || d.Clock == nil || d.IDGen == nil:
		return nil, fmt.Errorf("%w: distributor %s is missing ledger, faucet, clock or id wiring",
			domainerrors.ErrInvalidDistributorConfig, d.ID)
	}
	for _, validator := range d.Validators {
		if validator.Name() == validators.TypeOnceOnly {
			d.exclusive = true
		}
	}
	logger := application.ResolveLogger(d.Logger)
	logger.Info("distributor initialized",
		"event", "distributor_initialized",
		"module", "faucet-access/claim-service",
		"layer", "application",
		"distributor_id", d.ID,
		"path", d.Path,
		"wallet_mode", string(d.WalletMode),
		"validator_count", len(d.Validators),
		"transfer_enabled", d.Transfer != nil,
	)
	return &d, nil
}

// ProcessClaim runs the claim state machine:
// ResolveWallet -> RunValidators -> SubmitUpstream -> [Transfer] -> Persist.
// No stage is retried; the first failure terminates the claim with the
// originating error.
func (d *Distributor) ProcessClaim(ctx context.Context, input ClaimInput) (entities.ClaimResult, error) {
	logger := application.ResolveLogger(d.Logger)

	claim, err := d.resolveContext(input)
	if err != nil {
		logger.Warn("claim request rejected at resolution",
			"event", "claim_resolution_rejected",
			"module", "faucet-access/claim-service",
			"layer", "application",
			"distributor_id", d.ID,
			"visitor_id", strings.TrimSpace(input.VisitorID),
			"error", err.Error(),
		)
		return entities.ClaimResult{}, err
	}

	for _, validator := range d.Validators {
		patch, err := validator.Validate(ctx, claim)
		if err != nil {
			logger.Warn("claim validator failed",
				"event", "claim_validator_failed",
				"module", "faucet-access/claim-service",
				"layer", "application",
				"distributor_id", d.ID,
				"validator", validator.Name(),
				"visitor_id", claim.VisitorID,
				"error", err.Error(),
			)
			return entities.ClaimResult{}, err
		}
		claim = claim.WithPatch(patch)
	}

	wallet := claim.ClaimantWallet()
	if wallet == "" {
		return entities.ClaimResult{}, domainerrors.ErrWalletUnavailable
	}

	grant, err := d.Faucet.SubmitClaim(ctx, d.APIKey, entities.ClaimSubmission{
		Address:   wallet,
		ClientIP:  claim.ClientIP,
		VisitorID: claim.VisitorID,
	})
	if err != nil {
		logger.Warn("upstream claim submission failed",
			"event", "claim_upstream_failed",
			"module", "faucet-access/claim-service",
			"layer", "application",
			"distributor_id", d.ID,
			"wallet", wallet,
			"error", err.Error(),
		)
		return entities.ClaimResult{}, err
	}

	amount := grant.Amount
	if amount.IsZero() {
		amount = d.PayoutAmount
	}

	result := entities.ClaimResult{
		TransactionID: grant.TransactionID,
		Amount:        amount,
	}

	// The secondary payout runs in its own failure domain. The upstream
	// grant already happened, so a transfer failure must not fail the claim.
	if d.Transfer != nil {
		txHash, err := d.Transfer.Transfer(ctx, wallet)
		if err != nil {
			logger.Error("secondary token transfer failed",
				"event", "claim_token_transfer_failed",
				"module", "faucet-access/claim-service",
				"layer", "application",
				"distributor_id", d.ID,
				"wallet", wallet,
				"upstream_tx_id", grant.TransactionID,
				"error", err.Error(),
			)
		} else {
			result.TransferTxID = txHash
		}
	}

	if err := d.persistRecord(ctx, claim, wallet, grant.TransactionID, result.TransferTxID, amount); err != nil {
		logger.Error("claim record persistence failed",
			"event", "claim_persist_failed",
			"module", "faucet-access/claim-service",
			"layer", "application",
			"distributor_id", d.ID,
			"wallet", wallet,
			"upstream_tx_id", grant.TransactionID,
			"error", err.Error(),
		)
		return entities.ClaimResult{}, err
	}

	logger.Info("claim granted",
		"event", "claim_granted",
		"module", "faucet-access/claim-service",
		"layer", "application",
		"distributor_id", d.ID,
		"wallet", wallet,
		"upstream_tx_id", grant.TransactionID,
		"transfer_tx_id", result.TransferTxID,
		"amount", amount.String(),
	)
	return result, nil
}

func (d *Distributor) persistRecord(
	ctx context.Context,
	claim entities.ClaimContext,
	wallet string,
	upstreamTxID string,
	transferTxID string,
	amount decimal.Decimal,
) error {
	recordID, err := d.IDGen.NewID(ctx)
	if err != nil {
		return err
	}

	embedded := claim.StringAttachment(entities.AttachmentEmbeddedWallet)
	if embedded == "" {
		embedded = wallet
	}
	external := claim.StringAttachment(entities.AttachmentExternalWallet)
	if external == "" {
		external = wallet
	}

	record := entities.ClaimRecord{
		ID:             recordID,
		DistributorID:  d.ID,
		EmbeddedWallet: entities.NormalizeWallet(embedded),
		ExternalWallet: entities.NormalizeWallet(external),
		VisitorID:      claim.VisitorID,
		ClientIP:       claim.ClientIP,
		Amount:         amount,
		Exclusive:      d.exclusive,
		CreatedAt:      d.Clock.Now().UTC(),
	}
	if upstreamTxID != "" {
		record.UpstreamTxID = &upstreamTxID
	}
	if transferTxID != "" {
		record.TransferTxID = &transferTxID
	}
	return d.Ledger.Insert(ctx, record)
}
