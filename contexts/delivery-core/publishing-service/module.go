package publishingservice

import (
	"log/slog"

	httpadapter "herald/contexts/delivery-core/publishing-service/adapters/http"
	"herald/contexts/delivery-core/publishing-service/adapters/memory"
	"herald/contexts/delivery-core/publishing-service/application/commands"
	"herald/contexts/delivery-core/publishing-service/application/queries"
	"herald/contexts/delivery-core/publishing-service/domain/entities"
	"herald/contexts/delivery-core/publishing-service/ports"
)

type Module struct {
	Handler  httpadapter.Handler
	Commands commands.UseCase
	Store    *memory.Store
}

type Dependencies struct {
	Jobs        ports.JobStore
	Credentials ports.CredentialProvider
	Adapters    ports.AdapterRegistry
	Events      ports.EventTrigger
	Clock       ports.Clock
	IDGen       ports.IDGenerator
	Logger      *slog.Logger
}

func NewModule(deps Dependencies) Module {
	commandUseCase := commands.UseCase{
		Jobs:        deps.Jobs,
		Credentials: deps.Credentials,
		Adapters:    deps.Adapters,
		Events:      deps.Events,
		Clock:       deps.Clock,
		IDGen:       deps.IDGen,
		Logger:      deps.Logger,
	}
	queryUseCase := queries.UseCase{
		Jobs:        deps.Jobs,
		Credentials: deps.Credentials,
		Adapters:    deps.Adapters,
		Logger:      deps.Logger,
	}
	return Module{
		Handler: httpadapter.Handler{
			Commands: commandUseCase,
			Queries:  queryUseCase,
			Logger:   deps.Logger,
		},
		Commands: commandUseCase,
	}
}

func NewInMemoryModule(
	seed []entities.PublishingJob,
	credentials ports.CredentialProvider,
	adapters ports.AdapterRegistry,
	events ports.EventTrigger,
	logger *slog.Logger,
) Module {
	store := memory.NewStore(seed)
	module := NewModule(Dependencies{
		Jobs:        store,
		Credentials: credentials,
		Adapters:    adapters,
		Events:      events,
		Clock:       store,
		IDGen:       store,
		Logger:      logger,
	})
	module.Store = store
	return module
}
