package bootstrap

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"

	adminservice "tapgate/contexts/faucet-access/admin-service"
	adminapp "tapgate/contexts/faucet-access/admin-service/application"
	claimservice "tapgate/contexts/faucet-access/claim-service"
	"tapgate/contexts/faucet-access/claim-service/adapters/evm"
	"tapgate/contexts/faucet-access/claim-service/adapters/memory"
	"tapgate/contexts/faucet-access/claim-service/adapters/para"
	postgresadapter "tapgate/contexts/faucet-access/claim-service/adapters/postgres"
	"tapgate/contexts/faucet-access/claim-service/adapters/quicknode"
	"tapgate/contexts/faucet-access/claim-service/application/validators"
	"tapgate/contexts/faucet-access/claim-service/domain/entities"
	"tapgate/contexts/faucet-access/claim-service/ports"
	"tapgate/internal/platform/config"
	"tapgate/internal/platform/db"
	"tapgate/internal/platform/httpserver"
	"tapgate/internal/platform/jwks"
	"tapgate/internal/platform/metrics"
)

// Package bootstrap is the composition root.
// Keep construction/wiring here so module code stays framework-agnostic.

type APIApp struct {
	server   *httpserver.Server
	postgres *db.Postgres
	logger   *slog.Logger
}

func BuildAPI() (*APIApp, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger := slog.Default().With("service", cfg.ServiceName, "process", "api")

	var (
		pg     *db.Postgres
		ledger ports.ClaimLedger
		clock  ports.Clock
		idGen  ports.IDGenerator
	)
	if strings.TrimSpace(cfg.PostgresDSN) != "" {
		pg, err = db.Connect(cfg.PostgresDSN)
		if err != nil {
			return nil, err
		}
		ledger = postgresadapter.NewRepository(pg.DB, logger)
		clock = postgresadapter.SystemClock{}
		idGen = postgresadapter.UUIDGenerator{}
	} else {
		store := memory.NewStore()
		ledger = store
		clock = store
		idGen = store
		logger.Warn("running with in-memory ledger, claims will not survive a restart",
			"event", "bootstrap_memory_ledger",
			"module", "internal/app/bootstrap",
			"layer", "platform",
		)
	}

	faucet, err := quicknode.NewClient(cfg.FaucetAPIURL, cfg.FaucetPartnerKey, nil)
	if err != nil {
		return nil, err
	}

	specs, err := buildDistributorSpecs(cfg.Distributors)
	if err != nil {
		return nil, err
	}

	jwksCache := jwks.NewCache(logger)
	claims, err := claimservice.NewModule(specs, claimservice.Dependencies{
		Ledger:           ledger,
		Faucet:           faucet,
		Clock:            clock,
		IDGen:            idGen,
		NewBalanceReader: sharedNFTReaders(),
		NewTokenKeys: func(jwksURL string) (validators.TokenKeyResolver, error) {
			return jwksCache.Provider(jwksURL), nil
		},
		NewWalletVerifier: func(verifyURL string, secretKey string) (ports.WalletVerifier, error) {
			return para.NewVerifier(verifyURL, secretKey, nil)
		},
		Logger: logger,
	})
	if err != nil {
		return nil, err
	}

	admin := adminservice.NewModule(adminservice.Dependencies{
		Distributors: buildDistributorInfos(cfg.Distributors),
		Upstream:     faucet,
		Ledger:       ledger,
		Logger:       logger,
	})

	server := httpserver.New(claims, admin, metrics.New(), logger, normalizeAddr(cfg.HTTPPort))
	return &APIApp{
		server:   server,
		postgres: pg,
		logger:   logger,
	}, nil
}

func (a *APIApp) Run(_ context.Context) error {
	if a.logger != nil {
		a.logger.Info("api app started",
			"event", "bootstrap_api_started",
			"module", "internal/app/bootstrap",
			"layer", "platform",
		)
	}
	return a.server.Start()
}

func (a *APIApp) Close() error {
	if a.postgres != nil {
		return a.postgres.Close()
	}
	return nil
}

func buildDistributorSpecs(distributors []config.Distributor) ([]claimservice.DistributorSpec, error) {
	specs := make([]claimservice.DistributorSpec, 0, len(distributors))
	for _, dist := range distributors {
		spec := claimservice.DistributorSpec{
			ID:           dist.ID,
			Name:         dist.Name,
			Path:         dist.Path,
			APIKey:       dist.APIKey,
			PayoutAmount: dist.PayoutAmount,
			WalletMode:   entities.WalletMode(dist.WalletMode),
			Validators:   buildValidatorConfigs(dist.Validators),
		}
		if dist.Transfer != nil {
			transfer, err := evm.NewERC20Transferer(evm.ERC20TransferConfig{
				RPCURL:        dist.Transfer.RPCURL,
				TokenAddress:  dist.Transfer.TokenAddress,
				PrivateKeyHex: dist.Transfer.PrivateKey,
				Amount:        dist.Transfer.Amount,
				ChainID:       dist.Transfer.ChainID,
			})
			if err != nil {
				return nil, errors.Join(errors.New("distributor "+dist.ID), err)
			}
			spec.Transfer = transfer
		}
		specs = append(specs, spec)
	}
	return specs, nil
}

func buildValidatorConfigs(entries []config.Validator) []validators.Config {
	configs := make([]validators.Config, 0, len(entries))
	for _, entry := range entries {
		configs = append(configs, validators.Config{
			Type:            entry.Type,
			JWKSURL:         entry.JWKSURL,
			VerifyURL:       entry.VerifyURL,
			SecretKey:       entry.SecretKey,
			ContractAddress: entry.ContractAddress,
			TokenID:         entry.TokenID,
			RPCURL:          entry.RPCURL,
			Period:          entry.Period,
			WindowSeconds:   entry.WindowSeconds,
			MaxClaims:       entry.MaxClaims,
			CooldownSecs:    entry.CooldownSecs,
			CooldownHours:   entry.CooldownHours,
		})
	}
	return configs
}

func buildDistributorInfos(distributors []config.Distributor) []adminapp.DistributorInfo {
	infos := make([]adminapp.DistributorInfo, 0, len(distributors))
	for _, dist := range distributors {
		info := adminapp.DistributorInfo{
			ID:         dist.ID,
			Name:       dist.Name,
			Path:       dist.Path,
			APIKey:     dist.APIKey,
			WalletMode: entities.WalletMode(dist.WalletMode),
		}
		for _, validator := range dist.Validators {
			info.Validators = append(info.Validators, validator.Type)
		}
		for _, rule := range dist.Rules {
			info.DesiredRules = append(info.DesiredRules, entities.UpstreamRule{
				Key:   rule.Key,
				Value: rule.Value,
			})
		}
		infos = append(infos, info)
	}
	return infos
}

// sharedNFTReaders returns a balance-reader factory that hands out one RPC
// client per endpoint URL.
func sharedNFTReaders() func(rpcURL string) (ports.BalanceReader, error) {
	var mu sync.Mutex
	readers := make(map[string]*evm.NFTReader)
	return func(rpcURL string) (ports.BalanceReader, error) {
		mu.Lock()
		defer mu.Unlock()
		if reader, ok := readers[rpcURL]; ok {
			return reader, nil
		}
		reader, err := evm.NewNFTReader(rpcURL)
		if err != nil {
			return nil, err
		}
		readers[rpcURL] = reader
		return reader, nil
	}
}

func normalizeAddr(port string) string {
	value := strings.TrimSpace(port)
	if value == "" {
		return ":8080"
	}
	if strings.HasPrefix(value, ":") {
		return value
	}
	return ":" + value
}
