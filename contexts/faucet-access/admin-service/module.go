package adminservice

import (
	"log/slog"

	httpadapter "tapgate/contexts/faucet-access/admin-service/adapters/http"
	"tapgate/contexts/faucet-access/admin-service/application"
	"tapgate/contexts/faucet-access/admin-service/ports"
)

type Module struct {
	Handler httpadapter.Handler
	Service *application.Service
}

type Dependencies struct {
	Distributors []application.DistributorInfo
	Upstream     ports.Upstream
	Ledger       ports.LedgerReader
	Logger       *slog.Logger
}

func NewModule(deps Dependencies) Module {
	service := application.NewService(deps.Distributors, deps.Upstream, deps.Ledger, deps.Logger)
	return Module{
		Handler: httpadapter.Handler{
			Service: service,
			Logger:  deps.Logger,
		},
		Service: service,
	}
}
