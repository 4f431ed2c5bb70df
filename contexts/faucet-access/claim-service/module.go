package claimservice

import (
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	httpadapter "tapgate/contexts/faucet-access/claim-service/adapters/http"
	"tapgate/contexts/faucet-access/claim-service/adapters/memory"
	"tapgate/contexts/faucet-access/claim-service/application/commands"
	"tapgate/contexts/faucet-access/claim-service/application/validators"
	"tapgate/contexts/faucet-access/claim-service/domain/entities"
	"tapgate/contexts/faucet-access/claim-service/ports"
)

// DistributorSpec is the declarative definition of one faucet endpoint, as
// produced by the configuration layer.
type DistributorSpec struct {
	ID           string
	Name         string
	Path         string
	APIKey       string
	PayoutAmount decimal.Decimal
	WalletMode   entities.WalletMode
	Validators   []validators.Config

	// Transfer is the optional secondary payout lane; nil disables it.
	Transfer ports.TokenTransferer
}

type Dependencies struct {
	Ledger ports.ClaimLedger
	Faucet ports.FaucetClient
	Clock  ports.Clock
	IDGen  ports.IDGenerator

	NewBalanceReader  func(rpcURL string) (ports.BalanceReader, error)
	NewTokenKeys      func(jwksURL string) (validators.TokenKeyResolver, error)
	NewWalletVerifier func(verifyURL string, secretKey string) (ports.WalletVerifier, error)

	Logger *slog.Logger
}

// Module is the assembled claim service: one HTTP handler per distributor,
// keyed by route path.
type Module struct {
	Handlers     map[string]httpadapter.Handler
	Distributors []*commands.Distributor
	Store        *memory.Store
}

func NewModule(specs []DistributorSpec, deps Dependencies) (Module, error) {
	module := Module{
		Handlers: make(map[string]httpadapter.Handler, len(specs)),
	}
	for _, spec := range specs {
		chain, err := validators.BuildChain(validators.BuildEnvironment{
			DistributorID:     spec.ID,
			Ledger:            deps.Ledger,
			Clock:             deps.Clock,
			NewBalanceReader:  deps.NewBalanceReader,
			NewTokenKeys:      deps.NewTokenKeys,
			NewWalletVerifier: deps.NewWalletVerifier,
		}, spec.Validators)
		if err != nil {
			return Module{}, fmt.Errorf("distributor %s: %w", spec.ID, err)
		}

		distributor, err := commands.NewDistributor(commands.Distributor{
			ID:           spec.ID,
			Name:         spec.Name,
			Path:         spec.Path,
			APIKey:       spec.APIKey,
			PayoutAmount: spec.PayoutAmount,
			WalletMode:   spec.WalletMode,
			Validators:   chain,
			Ledger:       deps.Ledger,
			Faucet:       deps.Faucet,
			Transfer:     spec.Transfer,
			Clock:        deps.Clock,
			IDGen:        deps.IDGen,
			Logger:       deps.Logger,
		})
		if err != nil {
			return Module{}, err
		}

		if _, exists := module.Handlers[spec.Path]; exists {
			return Module{}, fmt.Errorf("distributor %s: path %q already routed", spec.ID, spec.Path)
		}
		module.Handlers[spec.Path] = httpadapter.Handler{
			Distributor: distributor,
			Logger:      deps.Logger,
		}
		module.Distributors = append(module.Distributors, distributor)
	}
	return module, nil
}

// NewInMemoryModule wires the module against the in-memory store. Used by
// tests and local runs without a database.
func NewInMemoryModule(specs []DistributorSpec, faucet ports.FaucetClient, logger *slog.Logger) (Module, error) {
	store := memory.NewStore()
	module, err := NewModule(specs, Dependencies{
		Ledger: store,
		Faucet: faucet,
		Clock:  store,
		IDGen:  store,
		Logger: logger,
	})
	if err != nil {
		return Module{}, err
	}
	module.Store = store
	return module, nil
}
