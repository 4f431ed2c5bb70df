package httpadapter

import (
	"context"
	"log/slog"

	"tapgate/contexts/faucet-access/claim-service/application/commands"
	httptransport "tapgate/contexts/faucet-access/claim-service/transport/http"
)

type Handler struct {
	Distributor *commands.Distributor
	Logger      *slog.Logger
}

func (h Handler) ClaimHandler(
	ctx context.Context,
	identityToken string,
	clientIP string,
	req httptransport.ClaimRequest,
) (httptransport.ClaimResponse, error) {
	result, err := h.Distributor.ProcessClaim(ctx, commands.ClaimInput{
		WalletAddress: req.WalletAddress,
		IdentityToken: identityToken,
		VisitorID:     req.VisitorID,
		ClientIP:      clientIP,
	})
	if err != nil {
		return httptransport.ClaimResponse{}, err
	}
	return httptransport.ClaimResponse{
		Success:       true,
		TransactionID: result.TransactionID,
		Amount:        result.Amount.String(),
		TransferID:    result.TransferTxID,
	}, nil
}
