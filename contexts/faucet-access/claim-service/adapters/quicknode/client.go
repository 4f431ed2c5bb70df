package quicknode

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"tapgate/contexts/faucet-access/claim-service/domain/entities"
	domainerrors "tapgate/contexts/faucet-access/claim-service/domain/errors"
)

const defaultTimeout = 30 * time.Second

// Client talks to the QuickNode partner faucet API. Claim submissions carry a
// per-distributor api key; the management endpoints use the partner-level key.
type Client struct {
	baseURL    string
	partnerKey string
	httpClient *http.Client
}

// NewClient builds a faucet client. httpClient may be nil, in which case a
// client with a 30 second timeout is used.
func NewClient(baseURL string, partnerKey string, httpClient *http.Client) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("quicknode: base url is required")
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	return &Client{
		baseURL:    baseURL,
		partnerKey: strings.TrimSpace(partnerKey),
		httpClient: httpClient,
	}, nil
}

type claimRequest struct {
	Address   string `json:"address"`
	IP        string `json:"ip,omitempty"`
	VisitorID string `json:"visitorId,omitempty"`
}

type claimResponse struct {
	TransactionID string `json:"transactionId"`
	Data          struct {
		Amount decimal.Decimal `json:"amount"`
	} `json:"data"`
}

type errorResponse struct {
	Message string `json:"message"`
	Error   string `json:"error"`
	Data    struct {
		IsTapClosed bool `json:"isTapClosed"`
	} `json:"data"`
}

// SubmitClaim forwards an approved claim upstream. A closed tap maps to
// ErrTapClosed; any other non-2xx answer maps to ErrUpstreamRejected with the
// upstream message attached when one was given.
func (c *Client) SubmitClaim(ctx context.Context, apiKey string, submission entities.ClaimSubmission) (entities.ClaimGrant, error) {
	body, err := json.Marshal(claimRequest{
		Address:   submission.Address,
		IP:        submission.ClientIP,
		VisitorID: submission.VisitorID,
	})
	if err != nil {
		return entities.ClaimGrant{}, fmt.Errorf("quicknode: encode claim: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/partners/distributors/claim", bytes.NewReader(body))
	if err != nil {
		return entities.ClaimGrant{}, fmt.Errorf("quicknode: build claim request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-partner-api-key", apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return entities.ClaimGrant{}, fmt.Errorf("quicknode: submit claim: %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return entities.ClaimGrant{}, fmt.Errorf("quicknode: read claim response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return entities.ClaimGrant{}, c.rejectionError(resp.StatusCode, payload)
	}

	var grant claimResponse
	if err := json.Unmarshal(payload, &grant); err != nil {
		return entities.ClaimGrant{}, fmt.Errorf("quicknode: decode claim response: %w", err)
	}
	return entities.ClaimGrant{
		TransactionID: grant.TransactionID,
		Amount:        grant.Data.Amount,
	}, nil
}

func (c *Client) rejectionError(status int, payload []byte) error {
	var detail errorResponse
	_ = json.Unmarshal(payload, &detail)
	if detail.Data.IsTapClosed {
		return domainerrors.ErrTapClosed
	}
	message := detail.Message
	if message == "" {
		message = detail.Error
	}
	if message == "" {
		message = fmt.Sprintf("upstream error (%d)", status)
	}
	return fmt.Errorf("%w: %s", domainerrors.ErrUpstreamRejected, message)
}

// Rules lists the rate-limit rules the upstream holds for a distributor.
func (c *Client) Rules(ctx context.Context, distributorID string) ([]entities.UpstreamRule, error) {
	var out []entities.UpstreamRule
	path := fmt.Sprintf("/partners/distributors/%s/rules", url.PathEscape(distributorID))
	if err := c.doJSON(ctx, http.MethodGet, path, c.partnerKey, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// SetRule creates or replaces one upstream rule for a distributor.
func (c *Client) SetRule(ctx context.Context, distributorID string, rule entities.UpstreamRule) error {
	path := fmt.Sprintf("/partners/distributors/%s/rules", url.PathEscape(distributorID))
	return c.doJSON(ctx, http.MethodPost, path, c.partnerKey, map[string]any{
		"key":   rule.Key,
		"value": rule.Value,
	}, nil)
}

// DeleteRule removes one upstream rule by id.
func (c *Client) DeleteRule(ctx context.Context, distributorID string, ruleID string) error {
	path := fmt.Sprintf("/partners/distributors/%s/rules/%s",
		url.PathEscape(distributorID), url.PathEscape(ruleID))
	return c.doJSON(ctx, http.MethodDelete, path, c.partnerKey, nil, nil)
}

// CreateClaimCodes mints up to 100 single-use claim codes. The upstream
// scopes the code endpoints by the distributor api key, the same way claim
// submissions are scoped.
func (c *Client) CreateClaimCodes(ctx context.Context, apiKey string, count int) ([]entities.ClaimCode, error) {
	if count < 1 || count > 100 {
		return nil, fmt.Errorf("quicknode: claim code count must be between 1 and 100, got %d", count)
	}
	var out struct {
		Codes []string `json:"codes"`
	}
	if err := c.doJSON(ctx, http.MethodPost, "/partners/distributors/code", apiKey,
		map[string]any{"count": count}, &out); err != nil {
		return nil, err
	}
	codes := make([]entities.ClaimCode, 0, len(out.Codes))
	for _, code := range out.Codes {
		codes = append(codes, entities.ClaimCode{Code: code})
	}
	return codes, nil
}

// ClaimCodes lists the claim codes issued for the distributor the api key
// belongs to, with their usage state.
func (c *Client) ClaimCodes(ctx context.Context, apiKey string) ([]entities.ClaimCode, error) {
	var out []entities.ClaimCode
	if err := c.doJSON(ctx, http.MethodGet, "/partners/distributors/code", apiKey, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// TransactionStatus fetches the upstream view of a drip by the transaction id
// a claim submission returned.
func (c *Client) TransactionStatus(ctx context.Context, transactionID string) (entities.UpstreamTransactionStatus, error) {
	var out entities.UpstreamTransactionStatus
	path := "/partners/distributors/claim?transactionId=" + url.QueryEscape(transactionID)
	if err := c.doJSON(ctx, http.MethodGet, path, c.partnerKey, nil, &out); err != nil {
		return entities.UpstreamTransactionStatus{}, err
	}
	return out, nil
}

func (c *Client) doJSON(ctx context.Context, method string, path string, apiKey string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("quicknode: encode %s %s: %w", method, path, err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("quicknode: build %s %s: %w", method, path, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("x-partner-api-key", apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("quicknode: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("quicknode: read %s %s response: %w", method, path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return c.rejectionError(resp.StatusCode, payload)
	}
	if out == nil || len(payload) == 0 {
		return nil
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return fmt.Errorf("quicknode: decode %s %s response: %w", method, path, err)
	}
	return nil
}
