package commands

import (
	"strings"

	"tapgate/contexts/faucet-access/claim-service/domain/entities"
	domainerrors "tapgate/contexts/faucet-access/claim-service/domain/errors"
)

// ClaimInput is the raw material of a claim request as the transport layer
// hands it over. Nothing here is trusted yet.
type ClaimInput struct {
	WalletAddress string
	IdentityToken string
	VisitorID     string
	ClientIP      string
}

// resolveContext checks the inputs the wallet mode requires and seeds the
// immutable claim context the validator chain operates on.
func (d *Distributor) resolveContext(input ClaimInput) (entities.ClaimContext, error) {
	visitorID := strings.TrimSpace(input.VisitorID)
	if visitorID == "" {
		return entities.ClaimContext{}, domainerrors.ErrVisitorRequired
	}

	wallet := strings.TrimSpace(input.WalletAddress)
	token := strings.TrimSpace(input.IdentityToken)

	switch d.WalletMode {
	case entities.WalletModeDirect:
		if wallet == "" {
			return entities.ClaimContext{}, domainerrors.ErrWalletRequired
		}
		if !entities.ValidWalletAddress(wallet) {
			return entities.ClaimContext{}, domainerrors.ErrInvalidWalletAddress
		}
		wallet = entities.NormalizeWallet(wallet)
	case entities.WalletModeIdentityToken:
		if token == "" {
			return entities.ClaimContext{}, domainerrors.ErrTokenRequired
		}
		// A wallet sent alongside a token is kept as a fallback but never
		// outranks the token-derived addresses.
		if wallet != "" && entities.ValidWalletAddress(wallet) {
			wallet = entities.NormalizeWallet(wallet)
		} else {
			wallet = ""
		}
	}

	return entities.ClaimContext{
		DistributorID: d.ID,
		VisitorID:     visitorID,
		ClientIP:      strings.TrimSpace(input.ClientIP),
		IdentityToken: token,
		WalletAddress: wallet,
	}, nil
}
