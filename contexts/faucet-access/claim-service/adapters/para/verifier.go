package para

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	domainerrors "tapgate/contexts/faucet-access/claim-service/domain/errors"
)

const defaultTimeout = 15 * time.Second

// Verifier checks an embedded wallet against the custody provider's project
// registry. A 404 means the wallet belongs to another project and is allowed
// through; only transport failures and hard rejections block a claim.
type Verifier struct {
	verifyURL  string
	secretKey  string
	httpClient *http.Client
}

func NewVerifier(verifyURL string, secretKey string, httpClient *http.Client) (*Verifier, error) {
	verifyURL = strings.TrimSpace(verifyURL)
	if verifyURL == "" {
		return nil, fmt.Errorf("para: verify url is required")
	}
	if strings.TrimSpace(secretKey) == "" {
		return nil, fmt.Errorf("para: secret key is required")
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	return &Verifier{
		verifyURL:  verifyURL,
		secretKey:  strings.TrimSpace(secretKey),
		httpClient: httpClient,
	}, nil
}

func (v *Verifier) VerifyWallet(ctx context.Context, address string) error {
	body, err := json.Marshal(map[string]string{"address": address})
	if err != nil {
		return fmt.Errorf("para: encode verification: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.verifyURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("para: build verification request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-external-api-key", v.secretKey)

	resp, err := v.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", domainerrors.ErrWalletVerificationFailed, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode <= 299:
		return nil
	case resp.StatusCode == http.StatusNotFound:
		return nil
	default:
		return fmt.Errorf("%w: custody provider answered %d",
			domainerrors.ErrWalletVerificationFailed, resp.StatusCode)
	}
}
