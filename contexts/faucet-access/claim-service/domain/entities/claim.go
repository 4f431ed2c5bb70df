package entities

import (
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type WalletMode string

const (
	WalletModeIdentityToken WalletMode = "identity-token"
	WalletModeDirect        WalletMode = "direct"
)

// Attachment keys written by validators and consumed by later pipeline stages.
const (
	AttachmentEmbeddedWallet  = "embedded_wallet"
	AttachmentExternalWallet  = "external_wallet"
	AttachmentValidatedWallet = "validated_wallet"
	AttachmentUserID          = "user_id"
	AttachmentNFTBalance      = "nft_balance"
)

var walletAddressPattern = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)

// ValidWalletAddress reports whether value looks like an EVM address.
func ValidWalletAddress(value string) bool {
	return walletAddressPattern.MatchString(value)
}

// NormalizeWallet lowercases an address so claims cannot evade duplicate
// detection through case variation.
func NormalizeWallet(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}

// ClaimContext carries one claim attempt through the validator chain.
// The struct value is treated as immutable; validators return patches that
// the orchestrator folds into a fresh copy between stages.
type ClaimContext struct {
	DistributorID string
	VisitorID     string
	ClientIP      string
	IdentityToken string
	WalletAddress string
	Attachments   map[string]any
}

// Patch is the attachment set a validator contributes on success.
type Patch map[string]any

// WithPatch returns a copy of the context with patch merged into the
// attachments. Later values win on key collision.
func (c ClaimContext) WithPatch(patch Patch) ClaimContext {
	if len(patch) == 0 {
		return c
	}
	merged := make(map[string]any, len(c.Attachments)+len(patch))
	for key, value := range c.Attachments {
		merged[key] = value
	}
	for key, value := range patch {
		merged[key] = value
	}
	c.Attachments = merged
	return c
}

// StringAttachment returns the named attachment when it is a non-empty string.
func (c ClaimContext) StringAttachment(key string) string {
	value, ok := c.Attachments[key].(string)
	if !ok {
		return ""
	}
	return strings.TrimSpace(value)
}

// ClaimantWallet resolves the canonical claimant address. Embedded custody
// wallets win over chain-validated wallets, which win over the address the
// request supplied directly.
func (c ClaimContext) ClaimantWallet() string {
	if wallet := c.StringAttachment(AttachmentEmbeddedWallet); wallet != "" {
		return NormalizeWallet(wallet)
	}
	if wallet := c.StringAttachment(AttachmentValidatedWallet); wallet != "" {
		return NormalizeWallet(wallet)
	}
	return NormalizeWallet(c.WalletAddress)
}

// ClaimRecord is one granted claim in the append-only ledger. Exclusive marks
// records written under a once-per-lifetime policy; the store enforces wallet
// uniqueness only for those.
type ClaimRecord struct {
	ID             string
	DistributorID  string
	EmbeddedWallet string
	ExternalWallet string
	VisitorID      string
	ClientIP       string
	UpstreamTxID   *string
	TransferTxID   *string
	Amount         decimal.Decimal
	Exclusive      bool
	CreatedAt      time.Time
}

// LedgerStats is the aggregate view served to operators.
type LedgerStats struct {
	TotalClaims   int64
	UniqueWallets int64
	TotalAmount   decimal.Decimal
	ClaimsLast24h int64
}

// ClaimSubmission is the payload forwarded to the upstream faucet.
type ClaimSubmission struct {
	Address   string
	ClientIP  string
	VisitorID string
}

// ClaimGrant is a successful upstream faucet response.
type ClaimGrant struct {
	TransactionID string
	Amount        decimal.Decimal
}

// ClaimResult is the terminal success state of one claim.
type ClaimResult struct {
	TransactionID string
	Amount        decimal.Decimal
	TransferTxID  string
}
