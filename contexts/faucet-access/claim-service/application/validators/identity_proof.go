package validators

import (
	"context"
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"tapgate/contexts/faucet-access/claim-service/domain/entities"
	domainerrors "tapgate/contexts/faucet-access/claim-service/domain/errors"
	"tapgate/contexts/faucet-access/claim-service/ports"
)

// IdentityProof verifies a signed identity token against a rotating JWKS key
// set and extracts the wallet addresses asserted by the token. Verification
// fails closed: an unreachable key endpoint or unknown key id rejects the
// claim, never degrades to unverified acceptance.
type IdentityProof struct {
	keys     TokenKeyResolver
	verifier ports.WalletVerifier
}

type identityWallet struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	Address string `json:"address"`
}

type identityClaims struct {
	Data struct {
		UserID          string           `json:"userId"`
		Wallets         []identityWallet `json:"wallets"`
		ExternalWallets []identityWallet `json:"externalWallets"`
	} `json:"data"`
	jwt.RegisteredClaims
}

// NewIdentityProof builds the validator. verifier may be nil when no
// secondary verification endpoint is configured.
func NewIdentityProof(keys TokenKeyResolver, verifier ports.WalletVerifier) (*IdentityProof, error) {
	if keys == nil {
		return nil, fmt.Errorf("%w: identity-proof requires a key resolver",
			domainerrors.ErrInvalidDistributorConfig)
	}
	return &IdentityProof{keys: keys, verifier: verifier}, nil
}

func buildIdentityProof(env BuildEnvironment, cfg Config) (Validator, error) {
	if env.NewTokenKeys == nil {
		return nil, fmt.Errorf("%w: no key-discovery client configured for identity-proof",
			domainerrors.ErrInvalidDistributorConfig)
	}
	if cfg.JWKSURL == "" {
		return nil, fmt.Errorf("%w: identity-proof requires a jwks_url",
			domainerrors.ErrInvalidDistributorConfig)
	}
	keys, err := env.NewTokenKeys(cfg.JWKSURL)
	if err != nil {
		return nil, fmt.Errorf("%w: identity-proof key discovery: %v",
			domainerrors.ErrInvalidDistributorConfig, err)
	}
	var verifier ports.WalletVerifier
	if cfg.VerifyURL != "" {
		if cfg.SecretKey == "" {
			return nil, fmt.Errorf("%w: identity-proof verify_url requires a secret_key",
				domainerrors.ErrInvalidDistributorConfig)
		}
		if env.NewWalletVerifier == nil {
			return nil, fmt.Errorf("%w: no wallet verification client configured for identity-proof",
				domainerrors.ErrInvalidDistributorConfig)
		}
		verifier, err = env.NewWalletVerifier(cfg.VerifyURL, cfg.SecretKey)
		if err != nil {
			return nil, fmt.Errorf("%w: identity-proof wallet verifier: %v",
				domainerrors.ErrInvalidDistributorConfig, err)
		}
	}
	return NewIdentityProof(keys, verifier)
}

func (v *IdentityProof) Name() string { return TypeIdentityProof }

func (v *IdentityProof) Validate(ctx context.Context, claim entities.ClaimContext) (entities.Patch, error) {
	if claim.IdentityToken == "" {
		return nil, domainerrors.ErrTokenRequired
	}

	keyfunc, err := v.keys.Keyfunc(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: key discovery unavailable: %v", domainerrors.ErrInvalidToken, err)
	}

	var claims identityClaims
	if _, err := jwt.ParseWithClaims(
		claim.IdentityToken,
		&claims,
		keyfunc,
		jwt.WithValidMethods([]string{"RS256"}),
	); err != nil {
		return nil, fmt.Errorf("%w: %v", domainerrors.ErrInvalidToken, err)
	}

	embedded := findEVMWallet(claims.Data.Wallets)
	external := findEVMWallet(claims.Data.ExternalWallets)
	if embedded == "" || external == "" {
		return nil, domainerrors.ErrWalletsNotFound
	}
	embedded = entities.NormalizeWallet(embedded)
	external = entities.NormalizeWallet(external)

	if v.verifier != nil {
		if err := v.verifier.VerifyWallet(ctx, embedded); err != nil {
			return nil, err
		}
	}

	return entities.Patch{
		entities.AttachmentEmbeddedWallet: embedded,
		entities.AttachmentExternalWallet: external,
		entities.AttachmentUserID:         claims.Data.UserID,
	}, nil
}

func findEVMWallet(wallets []identityWallet) string {
	for _, wallet := range wallets {
		if wallet.Type == "EVM" && wallet.Address != "" {
			return wallet.Address
		}
	}
	return ""
}
