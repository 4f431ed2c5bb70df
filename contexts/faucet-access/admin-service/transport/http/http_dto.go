package http

type DistributorItem struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Path       string   `json:"path"`
	WalletMode string   `json:"walletMode"`
	Validators []string `json:"validators"`
}

type DistributorListResponse struct {
	Items []DistributorItem `json:"items"`
}

type StatsResponse struct {
	TotalClaims   int64  `json:"totalClaims"`
	UniqueWallets int64  `json:"uniqueWallets"`
	TotalAmount   string `json:"totalAmount"`
	ClaimsLast24h int64  `json:"claimsLast24h"`
}

type RuleItem struct {
	ID    string `json:"id,omitempty"`
	Key   string `json:"key"`
	Value any    `json:"value"`
}

type RuleListResponse struct {
	Items []RuleItem `json:"items"`
}

type RuleSyncResponse struct {
	DistributorID string   `json:"distributorId"`
	Applied       []string `json:"applied"`
	Deleted       []string `json:"deleted"`
}

type CreateClaimCodesRequest struct {
	Count int `json:"count"`
}

type ClaimCodeItem struct {
	Code   string `json:"code"`
	Used   bool   `json:"used"`
	UsedAt string `json:"usedAt,omitempty"`
}

type ClaimCodeListResponse struct {
	Items []ClaimCodeItem `json:"items"`
}

type TransactionStatusResponse struct {
	TxHash      string  `json:"txHash"`
	Status      string  `json:"status"`
	Amount      float64 `json:"amount"`
	BlockNumber int64   `json:"blockNumber"`
	GasUsed     string  `json:"gasUsed,omitempty"`
}
