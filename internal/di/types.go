/**
 * Package di provides dependency injection type definitions.
 *
 * This package defines the Container type which holds all application dependencies.
 * The Container is the single source of truth for all service instances and is
 * passed to the server for access to services.
 */
package di

import (
	"errors"

	"github.com/aristath/elasticom/internal/database"
	"github.com/aristath/elasticom/internal/domain"
	"github.com/aristath/elasticom/internal/metrics"
	"github.com/aristath/elasticom/internal/modules/dashboard"
	"github.com/aristath/elasticom/internal/modules/elasticity"
	"github.com/aristath/elasticom/internal/modules/rfm"
	"github.com/aristath/elasticom/internal/modules/simulation"
	"github.com/aristath/elasticom/internal/modules/stockitems"
	"github.com/aristath/elasticom/internal/modules/transactions"
	"github.com/aristath/elasticom/internal/scheduler"
)

// Container holds all application dependencies
type Container struct {
	// Databases
	TransactionsDB *database.DB // transactions.db - sales history (ledger profile)
	SimulationsDB  *database.DB // simulations.db - saved scenarios

	Metrics *metrics.Metrics
	Clock   domain.Clock

	// Repositories
	TransactionRepo *transactions.Repository
	SimulationRepo  *simulation.Repository

	// Services
	ElasticityService *elasticity.Service
	RFMService        *rfm.Service
	SimulationService *simulation.Service
	StockItemsService *stockitems.Service
	DashboardService  *dashboard.Service
}

// Databases returns every open database, for maintenance jobs and stats
func (c *Container) Databases() []*database.DB {
	out := make([]*database.DB, 0, 2)
	for _, db := range []*database.DB{c.TransactionsDB, c.SimulationsDB} {
		if db != nil {
			out = append(out, db)
		}
	}
	return out
}

// Close closes every open database
func (c *Container) Close() error {
	var errs []error
	for _, db := range c.Databases() {
		if err := db.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// JobInstances holds the registered maintenance jobs
type JobInstances struct {
	WALCheckpoints *scheduler.CheckWALCheckpointsJob
	CoreDatabases  *scheduler.CheckCoreDatabasesJob
}

// All returns the jobs in registration order
func (j *JobInstances) All() []scheduler.Job {
	return []scheduler.Job{j.WALCheckpoints, j.CoreDatabases}
}
