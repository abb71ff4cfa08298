package webhookservice

import (
	"log/slog"

	httpadapter "herald/contexts/delivery-core/webhook-service/adapters/http"
	"herald/contexts/delivery-core/webhook-service/adapters/memory"
	"herald/contexts/delivery-core/webhook-service/application/commands"
	"herald/contexts/delivery-core/webhook-service/application/queries"
	"herald/contexts/delivery-core/webhook-service/ports"
)

type Module struct {
	Handler  httpadapter.Handler
	Commands commands.UseCase
	Queries  queries.UseCase
	Store    *memory.Store
}

type Dependencies struct {
	Registry   ports.Registry
	Deliveries ports.DeliveryStore
	Sender     ports.Sender
	Clock      ports.Clock
	IDGen      ports.IDGenerator
	Logger     *slog.Logger
}

func NewModule(deps Dependencies) Module {
	commandUseCase := commands.UseCase{
		Registry:   deps.Registry,
		Deliveries: deps.Deliveries,
		Sender:     deps.Sender,
		Clock:      deps.Clock,
		IDGen:      deps.IDGen,
		Logger:     deps.Logger,
	}
	queryUseCase := queries.UseCase{
		Registry:   deps.Registry,
		Deliveries: deps.Deliveries,
		Logger:     deps.Logger,
	}
	return Module{
		Handler: httpadapter.Handler{
			Commands: commandUseCase,
			Queries:  queryUseCase,
			Logger:   deps.Logger,
		},
		Commands: commandUseCase,
		Queries:  queryUseCase,
	}
}

func NewInMemoryModule(sender ports.Sender, logger *slog.Logger) Module {
	store := memory.NewStore()
	module := NewModule(Dependencies{
		Registry:   store,
		Deliveries: store,
		Sender:     sender,
		Clock:      store,
		IDGen:      store,
		Logger:     logger,
	})
	module.Store = store
	return module
}
