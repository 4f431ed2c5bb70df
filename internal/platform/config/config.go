package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v2"
)

// Config is centralized process configuration. Infra values come from the
// environment; the distributor inventory comes from a YAML file so validator
// chains keep their declared order.
type Config struct {
	ServiceName string
	HTTPPort    string
	PostgresDSN string

	FaucetAPIURL     string
	FaucetPartnerKey string

	Distributors []Distributor
}

// Distributor is one declared faucet endpoint.
type Distributor struct {
	ID           string          `yaml:"id"`
	Name         string          `yaml:"name"`
	Path         string          `yaml:"path"`
	APIKeyEnv    string          `yaml:"api_key_env"`
	PayoutAmount decimal.Decimal `yaml:"-"`
	RawPayout    string          `yaml:"payout_amount"`
	WalletMode   string          `yaml:"wallet_mode"`
	Validators   []Validator     `yaml:"validators"`
	Transfer     *Transfer       `yaml:"transfer"`
	Rules        []Rule          `yaml:"rules"`

	// APIKey is resolved from APIKeyEnv at load time.
	APIKey string `yaml:"-"`
}

// Validator is one entry in a distributor's ordered chain.
type Validator struct {
	Type string `yaml:"type"`

	JWKSURL      string `yaml:"jwks_url"`
	VerifyURL    string `yaml:"verify_url"`
	SecretKeyEnv string `yaml:"secret_key_env"`

	ContractAddress string `yaml:"contract_address"`
	TokenID         string `yaml:"token_id"`
	RPCURL          string `yaml:"rpc_url"`

	Period        string `yaml:"period"`
	WindowSeconds int64  `yaml:"window_seconds"`
	MaxClaims     int    `yaml:"max_claims"`
	CooldownSecs  int64  `yaml:"cooldown_seconds"`
	CooldownHours int    `yaml:"cooldown_hours"`

	// SecretKey is resolved from SecretKeyEnv at load time.
	SecretKey string `yaml:"-"`
}

// Transfer configures the optional secondary ERC-20 payout for a distributor.
type Transfer struct {
	RPCURL        string `yaml:"rpc_url"`
	TokenAddress  string `yaml:"token_address"`
	PrivateKeyEnv string `yaml:"private_key_env"`
	RawAmount     string `yaml:"amount"`
	ChainID       int64  `yaml:"chain_id"`

	Amount     decimal.Decimal `yaml:"-"`
	PrivateKey string          `yaml:"-"`
}

// Rule is one upstream drip rule the gateway should hold the upstream to.
type Rule struct {
	Key   string `yaml:"key"`
	Value any    `yaml:"value"`
}

const (
	walletModeIdentityToken = "identity-token"
	walletModeDirect        = "direct"

	validatorIdentityProof = "identity-proof"
)

type distributorsFile struct {
	Distributors []Distributor `yaml:"distributors"`
}

func Load() (Config, error) {
	service := os.Getenv("SERVICE_NAME")
	if service == "" {
		service = "tapgate"
	}

	port := os.Getenv("HTTP_PORT")
	if port == "" {
		port = "8080"
	}

	cfg := Config{
		ServiceName:      service,
		HTTPPort:         port,
		PostgresDSN:      os.Getenv("POSTGRES_DSN"),
		FaucetAPIURL:     os.Getenv("FAUCET_API_URL"),
		FaucetPartnerKey: os.Getenv("FAUCET_PARTNER_API_KEY"),
	}
	if cfg.FaucetAPIURL == "" {
		return Config{}, fmt.Errorf("config: FAUCET_API_URL is required")
	}

	path := os.Getenv("DISTRIBUTORS_FILE")
	if path == "" {
		path = "distributors.yaml"
	}
	distributors, err := loadDistributors(path)
	if err != nil {
		return Config{}, err
	}
	cfg.Distributors = distributors
	return cfg, nil
}

func loadDistributors(path string) ([]Distributor, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read distributors file %s: %w", path, err)
	}
	var file distributorsFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("config: parse distributors file %s: %w", path, err)
	}
	if len(file.Distributors) == 0 {
		return nil, fmt.Errorf("config: distributors file %s declares no distributors", path)
	}

	seenIDs := make(map[string]struct{}, len(file.Distributors))
	seenPaths := make(map[string]struct{}, len(file.Distributors))
	out := make([]Distributor, 0, len(file.Distributors))
	for i := range file.Distributors {
		dist := file.Distributors[i]
		if err := resolveDistributor(&dist); err != nil {
			return nil, err
		}
		if _, dup := seenIDs[dist.ID]; dup {
			return nil, fmt.Errorf("config: duplicate distributor id %q", dist.ID)
		}
		if _, dup := seenPaths[dist.Path]; dup {
			return nil, fmt.Errorf("config: duplicate distributor path %q", dist.Path)
		}
		seenIDs[dist.ID] = struct{}{}
		seenPaths[dist.Path] = struct{}{}
		out = append(out, dist)
	}
	return out, nil
}

func resolveDistributor(dist *Distributor) error {
	dist.ID = strings.TrimSpace(dist.ID)
	if dist.ID == "" {
		return fmt.Errorf("config: distributor id is required")
	}
	dist.Path = strings.TrimSpace(dist.Path)
	if !strings.HasPrefix(dist.Path, "/") {
		return fmt.Errorf("config: distributor %s path %q must start with /", dist.ID, dist.Path)
	}

	apiKey, err := requireEnv(dist.APIKeyEnv, fmt.Sprintf("distributor %s api key", dist.ID))
	if err != nil {
		return err
	}
	dist.APIKey = apiKey

	if dist.RawPayout != "" {
		amount, err := decimal.NewFromString(dist.RawPayout)
		if err != nil {
			return fmt.Errorf("config: distributor %s payout amount %q: %w", dist.ID, dist.RawPayout, err)
		}
		dist.PayoutAmount = amount
	}

	if err := checkWalletMode(dist); err != nil {
		return err
	}

	for i := range dist.Validators {
		validator := &dist.Validators[i]
		if validator.SecretKeyEnv != "" {
			secret, err := requireEnv(validator.SecretKeyEnv,
				fmt.Sprintf("distributor %s validator %s secret", dist.ID, validator.Type))
			if err != nil {
				return err
			}
			validator.SecretKey = secret
		}
	}

	if dist.Transfer != nil {
		key, err := requireEnv(dist.Transfer.PrivateKeyEnv,
			fmt.Sprintf("distributor %s transfer signer key", dist.ID))
		if err != nil {
			return err
		}
		dist.Transfer.PrivateKey = key

		amount, err := decimal.NewFromString(dist.Transfer.RawAmount)
		if err != nil {
			return fmt.Errorf("config: distributor %s transfer amount %q: %w",
				dist.ID, dist.Transfer.RawAmount, err)
		}
		dist.Transfer.Amount = amount
	}
	return nil
}

// checkWalletMode enforces the coupling between wallet mode and the chain:
// identity-token distributors must verify a token, direct distributors must
// not claim to.
func checkWalletMode(dist *Distributor) error {
	hasIdentityProof := false
	for _, validator := range dist.Validators {
		if validator.Type == validatorIdentityProof {
			hasIdentityProof = true
		}
	}

	switch dist.WalletMode {
	case walletModeIdentityToken:
		if !hasIdentityProof {
			return fmt.Errorf("config: distributor %s uses identity-token wallet mode without an identity-proof validator", dist.ID)
		}
	case walletModeDirect:
		if hasIdentityProof {
			return fmt.Errorf("config: distributor %s uses direct wallet mode with an identity-proof validator", dist.ID)
		}
	default:
		return fmt.Errorf("config: distributor %s wallet mode %q is not identity-token or direct",
			dist.ID, dist.WalletMode)
	}
	return nil
}

func requireEnv(name string, what string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("config: %s env var name is required", what)
	}
	value := strings.TrimSpace(os.Getenv(name))
	if value == "" {
		return "", fmt.Errorf("config: %s env var %s is empty", what, name)
	}
	return value, nil
}
