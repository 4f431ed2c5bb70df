package httpadapter

import (
	"context"
	"log/slog"

	"tapgate/contexts/faucet-access/admin-service/application"
	httptransport "tapgate/contexts/faucet-access/admin-service/transport/http"
	"tapgate/contexts/faucet-access/claim-service/domain/entities"
)

type Handler struct {
	Service *application.Service
	Logger  *slog.Logger
}

func (h Handler) ListDistributorsHandler(ctx context.Context) httptransport.DistributorListResponse {
	infos := h.Service.ListDistributors(ctx)
	items := make([]httptransport.DistributorItem, 0, len(infos))
	for _, info := range infos {
		items = append(items, httptransport.DistributorItem{
			ID:         info.ID,
			Name:       info.Name,
			Path:       info.Path,
			WalletMode: string(info.WalletMode),
			Validators: info.Validators,
		})
	}
	return httptransport.DistributorListResponse{Items: items}
}

func (h Handler) StatsHandler(ctx context.Context) (httptransport.StatsResponse, error) {
	stats, err := h.Service.Stats(ctx)
	if err != nil {
		return httptransport.StatsResponse{}, err
	}
	return httptransport.StatsResponse{
		TotalClaims:   stats.TotalClaims,
		UniqueWallets: stats.UniqueWallets,
		TotalAmount:   stats.TotalAmount.String(),
		ClaimsLast24h: stats.ClaimsLast24h,
	}, nil
}

func (h Handler) RulesHandler(ctx context.Context, distributorID string) (httptransport.RuleListResponse, error) {
	rules, err := h.Service.Rules(ctx, distributorID)
	if err != nil {
		return httptransport.RuleListResponse{}, err
	}
	return httptransport.RuleListResponse{Items: mapRules(rules)}, nil
}

func (h Handler) SyncRulesHandler(ctx context.Context, distributorID string) (httptransport.RuleSyncResponse, error) {
	report, err := h.Service.SyncRules(ctx, distributorID)
	if err != nil {
		return httptransport.RuleSyncResponse{}, err
	}
	return httptransport.RuleSyncResponse{
		DistributorID: report.DistributorID,
		Applied:       report.Applied,
		Deleted:       report.Deleted,
	}, nil
}

func (h Handler) CreateClaimCodesHandler(
	ctx context.Context,
	distributorID string,
	req httptransport.CreateClaimCodesRequest,
) (httptransport.ClaimCodeListResponse, error) {
	codes, err := h.Service.CreateClaimCodes(ctx, distributorID, req.Count)
	if err != nil {
		return httptransport.ClaimCodeListResponse{}, err
	}
	return httptransport.ClaimCodeListResponse{Items: mapClaimCodes(codes)}, nil
}

func (h Handler) ClaimCodesHandler(ctx context.Context, distributorID string) (httptransport.ClaimCodeListResponse, error) {
	codes, err := h.Service.ClaimCodes(ctx, distributorID)
	if err != nil {
		return httptransport.ClaimCodeListResponse{}, err
	}
	return httptransport.ClaimCodeListResponse{Items: mapClaimCodes(codes)}, nil
}

func (h Handler) TransactionStatusHandler(ctx context.Context, transactionID string) (httptransport.TransactionStatusResponse, error) {
	status, err := h.Service.TransactionStatus(ctx, transactionID)
	if err != nil {
		return httptransport.TransactionStatusResponse{}, err
	}
	return httptransport.TransactionStatusResponse{
		TxHash:      status.TxHash,
		Status:      status.Status,
		Amount:      status.Amount,
		BlockNumber: status.BlockNumber,
		GasUsed:     status.GasUsed,
	}, nil
}

func mapRules(rules []entities.UpstreamRule) []httptransport.RuleItem {
	items := make([]httptransport.RuleItem, 0, len(rules))
	for _, rule := range rules {
		items = append(items, httptransport.RuleItem{
			ID:    rule.ID,
			Key:   rule.Key,
			Value: rule.Value,
		})
	}
	return items
}

func mapClaimCodes(codes []entities.ClaimCode) []httptransport.ClaimCodeItem {
	items := make([]httptransport.ClaimCodeItem, 0, len(codes))
	for _, code := range codes {
		items = append(items, httptransport.ClaimCodeItem{
			Code:   code.Code,
			Used:   code.Used,
			UsedAt: code.UsedAt,
		})
	}
	return items
}
