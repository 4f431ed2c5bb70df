package validators

import (
	"context"
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"tapgate/contexts/faucet-access/claim-service/domain/entities"
	domainerrors "tapgate/contexts/faucet-access/claim-service/domain/errors"
	"tapgate/contexts/faucet-access/claim-service/ports"
)

// Validator is one eligibility check in a distributor's chain. A nil error
// means the claim may proceed; the returned patch is folded into the claim
// context for downstream validators. The first failing validator
// short-circuits the chain and its error reaches the caller unmodified.
type Validator interface {
	Name() string
	Validate(ctx context.Context, claim entities.ClaimContext) (entities.Patch, error)
}

// TokenKeyResolver supplies the verification keys for identity tokens,
// backed by a process-wide JWKS cache.
type TokenKeyResolver interface {
	Keyfunc(ctx context.Context) (jwt.Keyfunc, error)
}

// Config is the declarative shape of one validator entry in a distributor
// definition. Builders validate the fields they consume and reject the rest
// eagerly, so a broken configuration is a startup failure.
type Config struct {
	Type string

	// identity-proof
	JWKSURL   string
	VerifyURL string
	SecretKey string

	// nft-ownership
	ContractAddress string
	TokenID         string
	RPCURL          string

	// time-window
	Period         string
	WindowSeconds  int64
	MaxClaims      int
	CooldownSecs   int64
	CooldownHours  int
}

// BuildEnvironment carries the shared dependencies and adapter factories
// validator builders may draw on. Factories are keyed by the endpoint each
// validator configures, so two distributors pointing at the same RPC or JWKS
// URL share a client.
type BuildEnvironment struct {
	DistributorID string
	Ledger        ports.ClaimLedger
	Clock         ports.Clock

	NewBalanceReader  func(rpcURL string) (ports.BalanceReader, error)
	NewTokenKeys      func(jwksURL string) (TokenKeyResolver, error)
	NewWalletVerifier func(verifyURL string, secretKey string) (ports.WalletVerifier, error)
}

// Builder constructs one validator variant from its declarative config.
type Builder func(env BuildEnvironment, cfg Config) (Validator, error)

// builders is the registry mapping configured validator type names to their
// constructors. Built once; looked up at configuration-load time only.
var builders = map[string]Builder{
	TypeIdentityProof: buildIdentityProof,
	TypeOnceOnly:      buildOnceOnly,
	TypeTimeWindow:    buildTimeWindow,
	TypeNFTOwnership:  buildNFTOwnership,
}

const (
	TypeIdentityProof = "identity-proof"
	TypeOnceOnly      = "once-only"
	TypeTimeWindow    = "time-window"
	TypeNFTOwnership  = "nft-ownership"
)

// Build resolves cfg.Type in the registry and constructs the validator.
func Build(env BuildEnvironment, cfg Config) (Validator, error) {
	builder, ok := builders[cfg.Type]
	if !ok {
		return nil, fmt.Errorf("%w: unknown validator type %q",
			domainerrors.ErrInvalidDistributorConfig, cfg.Type)
	}
	return builder(env, cfg)
}

// BuildChain constructs the full ordered chain for one distributor.
func BuildChain(env BuildEnvironment, cfgs []Config) ([]Validator, error) {
	if len(cfgs) == 0 {
		return nil, fmt.Errorf("%w: at least one validator is required",
			domainerrors.ErrInvalidDistributorConfig)
	}
	chain := make([]Validator, 0, len(cfgs))
	for _, cfg := range cfgs {
		validator, err := Build(env, cfg)
		if err != nil {
			return nil, err
		}
		chain = append(chain, validator)
	}
	return chain, nil
}

// claimantWallet resolves the wallet a ledger-backed validator should key on:
// the external wallet attached by an earlier identity-proof stage, falling
// back to the request-supplied address. Always lowercased.
func claimantWallet(claim entities.ClaimContext) string {
	if wallet := claim.StringAttachment(entities.AttachmentExternalWallet); wallet != "" {
		return entities.NormalizeWallet(wallet)
	}
	return entities.NormalizeWallet(claim.WalletAddress)
}
