package validators

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"tapgate/contexts/faucet-access/claim-service/domain/entities"
	domainerrors "tapgate/contexts/faucet-access/claim-service/domain/errors"
)

type staticKeys struct {
	key *rsa.PrivateKey
}

func (s staticKeys) Keyfunc(_ context.Context) (jwt.Keyfunc, error) {
	return func(_ *jwt.Token) (any, error) {
		return &s.key.PublicKey, nil
	}, nil
}

type failingKeys struct{}

func (failingKeys) Keyfunc(_ context.Context) (jwt.Keyfunc, error) {
	return nil, errors.New("jwks endpoint unreachable")
}

type recordingVerifier struct {
	address string
	err     error
}

func (r *recordingVerifier) VerifyWallet(_ context.Context, address string) error {
	r.address = address
	return r.err
}

const (
	embeddedAddress = "0x00000000000000000000000000000000000000Cc"
	externalAddress = "0x00000000000000000000000000000000000000Dd"
)

func signIdentityToken(t *testing.T, key *rsa.PrivateKey, wallets []map[string]string, externalWallets []map[string]string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, jwt.MapClaims{
		"data": map[string]any{
			"userId":          "user-1",
			"wallets":         wallets,
			"externalWallets": externalWallets,
		},
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString(key)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func evmWallet(address string) []map[string]string {
	return []map[string]string{{"id": "w", "type": "EVM", "address": address}}
}

func tokenClaim(token string) entities.ClaimContext {
	return entities.ClaimContext{
		DistributorID: "dist-1",
		VisitorID:     "visitor-1",
		IdentityToken: token,
	}
}

func TestIdentityProofExtractsWallets(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	validator, err := NewIdentityProof(staticKeys{key: key}, nil)
	if err != nil {
		t.Fatalf("construct validator: %v", err)
	}

	token := signIdentityToken(t, key, evmWallet(embeddedAddress), evmWallet(externalAddress))
	patch, err := validator.Validate(context.Background(), tokenClaim(token))
	if err != nil {
		t.Fatalf("expected valid token to pass, got %v", err)
	}
	if patch[entities.AttachmentEmbeddedWallet] != entities.NormalizeWallet(embeddedAddress) {
		t.Fatalf("expected lowercased embedded wallet, got %v", patch[entities.AttachmentEmbeddedWallet])
	}
	if patch[entities.AttachmentExternalWallet] != entities.NormalizeWallet(externalAddress) {
		t.Fatalf("expected lowercased external wallet, got %v", patch[entities.AttachmentExternalWallet])
	}
	if patch[entities.AttachmentUserID] != "user-1" {
		t.Fatalf("expected user id attachment, got %v", patch[entities.AttachmentUserID])
	}
}

func TestIdentityProofRequiresToken(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	validator, err := NewIdentityProof(staticKeys{key: key}, nil)
	if err != nil {
		t.Fatalf("construct validator: %v", err)
	}

	_, err = validator.Validate(context.Background(), tokenClaim(""))
	if !errors.Is(err, domainerrors.ErrTokenRequired) {
		t.Fatalf("expected token-required rejection, got %v", err)
	}
}

func TestIdentityProofRejectsWrongKey(t *testing.T) {
	signerKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate signer key: %v", err)
	}
	verifierKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate verifier key: %v", err)
	}
	validator, err := NewIdentityProof(staticKeys{key: verifierKey}, nil)
	if err != nil {
		t.Fatalf("construct validator: %v", err)
	}

	token := signIdentityToken(t, signerKey, evmWallet(embeddedAddress), evmWallet(externalAddress))
	_, err = validator.Validate(context.Background(), tokenClaim(token))
	if !errors.Is(err, domainerrors.ErrInvalidToken) {
		t.Fatalf("expected invalid-token rejection, got %v", err)
	}
}

func TestIdentityProofFailsClosedWhenKeysUnavailable(t *testing.T) {
	validator, err := NewIdentityProof(failingKeys{}, nil)
	if err != nil {
		t.Fatalf("construct validator: %v", err)
	}

	_, err = validator.Validate(context.Background(), tokenClaim("any-token"))
	if !errors.Is(err, domainerrors.ErrInvalidToken) {
		t.Fatalf("expected fail-closed invalid-token rejection, got %v", err)
	}
}

func TestIdentityProofRequiresBothEVMWallets(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	validator, err := NewIdentityProof(staticKeys{key: key}, nil)
	if err != nil {
		t.Fatalf("construct validator: %v", err)
	}

	solanaOnly := []map[string]string{{"id": "w", "type": "SOLANA", "address": "abc"}}
	token := signIdentityToken(t, key, evmWallet(embeddedAddress), solanaOnly)
	_, err = validator.Validate(context.Background(), tokenClaim(token))
	if !errors.Is(err, domainerrors.ErrWalletsNotFound) {
		t.Fatalf("expected wallets-not-found rejection, got %v", err)
	}
}

func TestIdentityProofRunsWalletVerifier(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	verifier := &recordingVerifier{}
	validator, err := NewIdentityProof(staticKeys{key: key}, verifier)
	if err != nil {
		t.Fatalf("construct validator: %v", err)
	}

	token := signIdentityToken(t, key, evmWallet(embeddedAddress), evmWallet(externalAddress))
	if _, err := validator.Validate(context.Background(), tokenClaim(token)); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if verifier.address != entities.NormalizeWallet(embeddedAddress) {
		t.Fatalf("expected verifier called with embedded wallet, got %q", verifier.address)
	}

	verifier.err = domainerrors.ErrWalletVerificationFailed
	_, err = validator.Validate(context.Background(), tokenClaim(token))
	if !errors.Is(err, domainerrors.ErrWalletVerificationFailed) {
		t.Fatalf("expected verifier failure to reject claim, got %v", err)
	}
}
