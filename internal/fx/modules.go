package fx

import (
	"battleflow/internal/config"
	"battleflow/internal/database"
	"battleflow/internal/logger"
	"battleflow/internal/repository"
	"battleflow/internal/server"
	"battleflow/internal/service"

	"go.uber.org/fx"
)

var Module = fx.Options(
	fx.Provide(logger.New),
	fx.Provide(config.Load),
	fx.Provide(database.New),
	// repos
	fx.Provide(repository.NewTournamentRepository),
	fx.Provide(repository.NewCategoryRepository),
	fx.Provide(repository.NewPerformerRepository),
	fx.Provide(repository.NewPoolRepository),
	fx.Provide(repository.NewBattleRepository),
	fx.Provide(service.NewRepos),
	// svc
	fx.Provide(service.NewWriteLock),
	fx.Provide(service.NewTiebreakService),
	fx.Provide(service.NewTournamentService),
	fx.Provide(service.NewPhaseService),
	fx.Provide(service.NewResultService),
	fx.Provide(service.NewQueueService),
	// server
	fx.Provide(server.NewEngineServer),
)
