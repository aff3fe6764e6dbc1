package di

import (
	"github.com/rs/zerolog"

	"github.com/aristath/elasticom/internal/modules/simulation"
	"github.com/aristath/elasticom/internal/modules/transactions"
)

// InitializeRepositories creates the repositories over the open databases
func InitializeRepositories(container *Container, log zerolog.Logger) error {
	container.TransactionRepo = transactions.NewRepository(container.TransactionsDB.Conn(), container.Metrics, log)
	container.SimulationRepo = simulation.NewRepository(container.SimulationsDB.Conn(), log)

	log.Info().Msg("Repositories initialized")
	return nil
}
