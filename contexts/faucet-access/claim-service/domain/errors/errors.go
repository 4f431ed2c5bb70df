package errors

import "errors"

var (
	// Request shape.
	ErrVisitorRequired      = errors.New("visitorId is required")
	ErrWalletRequired       = errors.New("walletAddress is required for this faucet")
	ErrInvalidWalletAddress = errors.New("walletAddress is not a valid EVM address")
	ErrWalletUnavailable    = errors.New("no wallet address available for claim")

	// Authorization.
	ErrTokenRequired   = errors.New("authorization token is required")
	ErrInvalidToken    = errors.New("identity token could not be verified")
	ErrWalletsNotFound = errors.New("EVM wallets not found in identity token")

	// Validation outcomes.
	ErrWalletVerificationFailed = errors.New("embedded wallet does not belong to this project")
	ErrNFTNotOwned              = errors.New("required NFT is not owned by this wallet")
	ErrAlreadyClaimed           = errors.New("this wallet has already claimed from this faucet")
	ErrRateLimited              = errors.New("claim rate limit active")

	// Upstream.
	ErrTapClosed        = errors.New("faucet temporarily unavailable: daily limit reached")
	ErrUpstreamRejected = errors.New("claim rejected by upstream faucet")

	// Routing / configuration.
	ErrDistributorNotFound      = errors.New("faucet endpoint not found")
	ErrInvalidDistributorConfig = errors.New("invalid distributor configuration")
)
