// Package di provides dependency injection for database connections.
package di

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/aristath/elasticom/internal/config"
	"github.com/aristath/elasticom/internal/database"
)

// InitializeDatabases opens both databases and applies schemas
func InitializeDatabases(cfg *config.Config, log zerolog.Logger) (*Container, error) {
	container := &Container{}

	// 1. transactions.db - Sales history, append-mostly (maximum durability)
	transactionsDB, err := database.New(database.Config{
		Path:    cfg.TransactionsDBPath(),
		Profile: database.ProfileLedger,
		Name:    database.NameTransactions,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize transactions database: %w", err)
	}
	container.TransactionsDB = transactionsDB

	// 2. simulations.db - Saved price-change scenarios
	simulationsDB, err := database.New(database.Config{
		Path:    cfg.SimulationsDBPath(),
		Profile: database.ProfileStandard,
		Name:    database.NameSimulations,
	})
	if err != nil {
		transactionsDB.Close()
		return nil, fmt.Errorf("failed to initialize simulations database: %w", err)
	}
	container.SimulationsDB = simulationsDB

	// Apply schemas to all databases (single source of truth)
	for _, db := range container.Databases() {
		if err := db.Migrate(); err != nil {
			_ = container.Close()
			return nil, fmt.Errorf("failed to apply schema to %s: %w", db.Name(), err)
		}
	}

	log.Info().Str("data_dir", cfg.DataDir).Msg("All databases initialized and schemas applied")

	return container, nil
}
