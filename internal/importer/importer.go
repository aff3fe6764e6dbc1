package importer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"
	"github.com/schollz/progressbar/v3"

	"github.com/aristath/elasticom/internal/domain"
	"github.com/aristath/elasticom/internal/utils"
)

// DefaultBatchSize is the number of rows written per transaction
const DefaultBatchSize = 1000

// BatchStore persists a batch of transactions atomically
type BatchStore interface {
	CreateBatch(ctx context.Context, records []domain.TransactionRecord) ([]domain.TransactionRecord, error)
}

// Options controls an import run
type Options struct {
	BatchSize int  // rows per batch; DefaultBatchSize when zero
	Limit     int  // stop after this many accepted rows; zero means no limit
	DryRun    bool // parse and validate only
	Progress  *progressbar.ProgressBar
}

// Result summarizes an import run
type Result struct {
	RowsRead    int           `json:"rows_read"`
	RowsSkipped int           `json:"rows_skipped"`
	RowsStored  int           `json:"rows_stored"`
	Batches     int           `json:"batches"`
	DryRun      bool          `json:"dry_run"`
	Duration    time.Duration `json:"duration"`
}

// Importer streams CSV rows into a BatchStore
type Importer struct {
	store BatchStore
	log   zerolog.Logger
}

// New creates an importer. store may be nil for dry runs.
func New(store BatchStore, log zerolog.Logger) *Importer {
	return &Importer{
		store: store,
		log:   log.With().Str("component", "importer").Logger(),
	}
}

// Import reads src to the end (or until the limit) and stores the accepted
// rows in batches. Rows that fail to parse are skipped with a warning. A
// failing batch aborts the run; earlier batches stay committed.
func (i *Importer) Import(ctx context.Context, src io.Reader, opts Options) (*Result, error) {
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.Limit < 0 {
		return nil, fmt.Errorf("limit must not be negative, got %d", opts.Limit)
	}
	if !opts.DryRun && i.store == nil {
		return nil, errors.New("importer has no store")
	}

	elapsed := utils.OperationTimer("import_csv", i.log)
	result := &Result{DryRun: opts.DryRun}

	reader, err := NewReader(src)
	if err != nil {
		return nil, err
	}

	batch := make([]domain.TransactionRecord, 0, opts.BatchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if !opts.DryRun {
			created, err := i.store.CreateBatch(ctx, batch)
			if err != nil {
				return fmt.Errorf("failed to store batch %d: %w", result.Batches+1, err)
			}
			result.RowsStored += len(created)
		}
		result.Batches++
		i.log.Debug().
			Int("batch", result.Batches).
			Int("rows", len(batch)).
			Msg("Batch processed")
		batch = batch[:0]
		return nil
	}

	accepted := 0
	for opts.Limit == 0 || accepted < opts.Limit {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		rec, err := reader.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		result.RowsRead++
		if opts.Progress != nil {
			_ = opts.Progress.Add(1)
		}

		if err != nil {
			var rowErr *RowError
			if !errors.As(err, &rowErr) {
				return result, fmt.Errorf("failed to read csv: %w", err)
			}
			result.RowsSkipped++
			i.log.Warn().Int("line", rowErr.Line).Err(rowErr.Err).Msg("Skipping row")
			continue
		}

		accepted++
		batch = append(batch, rec)
		if len(batch) >= opts.BatchSize {
			if err := flush(); err != nil {
				return result, err
			}
		}
	}

	if err := flush(); err != nil {
		return result, err
	}
	if opts.Progress != nil {
		_ = opts.Progress.Finish()
	}

	result.Duration = elapsed()
	i.log.Info().
		Int("rows_read", result.RowsRead).
		Int("rows_skipped", result.RowsSkipped).
		Int("rows_stored", result.RowsStored).
		Int("batches", result.Batches).
		Bool("dry_run", result.DryRun).
		Dur("duration", result.Duration).
		Msg("Import completed")

	return result, nil
}
