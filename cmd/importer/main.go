// Package main loads an Online Retail CSV export into the transactions database.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/aristath/elasticom/internal/config"
	"github.com/aristath/elasticom/internal/database"
	"github.com/aristath/elasticom/internal/importer"
	"github.com/aristath/elasticom/internal/metrics"
	"github.com/aristath/elasticom/internal/modules/transactions"
	"github.com/aristath/elasticom/pkg/logger"
)

var (
	dataDir   string
	batchSize int
	limit     int
	dryRun    bool
	logLevel  string
)

var rootCmd = &cobra.Command{
	Use:   "importer <csv-file>",
	Short: "Import sales transactions from a CSV export",
	Long: `Reads an Online Retail style CSV (InvoiceNo, StockCode, Description,
Quantity, InvoiceDate, UnitPrice, CustomerID, Country) and stores every
valid row in transactions.db. Rows that cannot be parsed are skipped.`,
	Args: cobra.ExactArgs(1),
	RunE: run,
}

func init() {
	rootCmd.Flags().StringVar(&dataDir, "db-dir", "", "directory holding transactions.db (default: ELASTICOM_DATA_DIR or ./data)")
	rootCmd.Flags().IntVar(&batchSize, "batch-size", importer.DefaultBatchSize, "rows per database transaction")
	rootCmd.Flags().IntVar(&limit, "limit", 0, "import at most this many rows (0 = all)")
	rootCmd.Flags().BoolVar(&dryRun, "dry-run", false, "parse and validate without writing")
	rootCmd.Flags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
}

func run(cmd *cobra.Command, args []string) error {
	log := logger.New(logger.Config{Level: logLevel, Pretty: true})

	cfg := &config.Config{DataDir: dataDir}
	if dataDir == "" {
		loaded, err := config.Load()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		cfg = loaded
	} else if err := os.MkdirAll(dataDir, 0755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	file, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", args[0], err)
	}
	defer file.Close()

	db, err := database.New(database.Config{
		Path:    cfg.TransactionsDBPath(),
		Profile: database.ProfileLedger,
		Name:    database.NameTransactions,
	})
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	repo := transactions.NewRepository(db.Conn(), metrics.New(), log)
	bar := progressbar.NewOptions(-1,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetDescription("importing rows"),
		progressbar.OptionShowCount(),
		progressbar.OptionThrottle(100*time.Millisecond),
	)

	log.Info().
		Str("file", args[0]).
		Str("database", db.Path()).
		Int("batch_size", batchSize).
		Bool("dry_run", dryRun).
		Msg("Starting import")

	result, err := importer.New(repo, log).Import(ctx, file, importer.Options{
		BatchSize: batchSize,
		Limit:     limit,
		DryRun:    dryRun,
		Progress:  bar,
	})
	if err != nil {
		if result != nil {
			log.Error().
				Int("rows_stored", result.RowsStored).
				Msg("Import stopped; stored batches were kept")
		}
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "\nread %d rows, skipped %d, stored %d in %d batches (%s)\n",
		result.RowsRead, result.RowsSkipped, result.RowsStored, result.Batches, result.Duration.Round(time.Millisecond))
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
