package di

import (
	"github.com/rs/zerolog"

	"github.com/aristath/elasticom/internal/config"
	"github.com/aristath/elasticom/internal/modules/dashboard"
	"github.com/aristath/elasticom/internal/modules/elasticity"
	"github.com/aristath/elasticom/internal/modules/rfm"
	"github.com/aristath/elasticom/internal/modules/simulation"
	"github.com/aristath/elasticom/internal/modules/stockitems"
)

// EstimatorOptions returns the elasticity fit options selected by cfg
func EstimatorOptions(cfg *config.Config) []elasticity.Option {
	var opts []elasticity.Option
	if cfg.OutlierFilter {
		opts = append(opts, elasticity.WithOutlierFilter(cfg.OutlierK))
	}
	return opts
}

// InitializeServices builds the analytics services on top of the repositories
func InitializeServices(container *Container, cfg *config.Config, log zerolog.Logger) error {
	opts := EstimatorOptions(cfg)

	container.ElasticityService = elasticity.NewService(container.TransactionRepo, opts, container.Metrics, log)
	container.RFMService = rfm.NewService(container.TransactionRepo, container.Metrics, log)
	container.SimulationService = simulation.NewService(
		container.SimulationRepo,
		container.ElasticityService,
		container.RFMService,
		container.TransactionRepo,
		opts,
		container.Metrics,
		log,
	)
	container.StockItemsService = stockitems.NewService(
		container.TransactionRepo,
		container.ElasticityService,
		container.RFMService,
		log,
	)
	container.DashboardService = dashboard.NewService(
		container.TransactionRepo,
		container.ElasticityService,
		container.RFMService,
		log,
	)

	log.Info().
		Bool("outlier_filter", cfg.OutlierFilter).
		Msg("Services initialized")
	return nil
}
