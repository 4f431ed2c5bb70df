package entities

// Upstream drip-rule keys accepted by the faucet partner API.
const (
	RuleDefaultDripAmount       = "DEFAULT_DRIP_AMOUNT"
	RuleDripPerInterval         = "DRIP_PER_INTERVAL"
	RuleDripInterval            = "DRIP_INTERVAL"
	RuleTotalDripPerInterval    = "TOTAL_DRIP_PER_INTERVAL"
	RuleTotalDripInterval       = "TOTAL_DRIP_INTERVAL"
	RuleMainnetBalance          = "MAINNET_BALANCE"
	RuleMainnetTransactionCount = "MAINNET_TRANSACTION_COUNT"
)

// UpstreamRule is one drip rule as stored by the upstream faucet.
type UpstreamRule struct {
	ID    string
	Key   string
	Value any
}

// ClaimCode is a pre-issued single-use claim voucher.
type ClaimCode struct {
	Code   string
	Used   bool
	UsedAt string
}

// UpstreamTransactionStatus mirrors the upstream claim status lookup.
type UpstreamTransactionStatus struct {
	TxHash      string
	Status      string
	Amount      float64
	BlockNumber int64
	GasUsed     string
}
