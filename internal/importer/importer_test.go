package importer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/schollz/progressbar/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/elasticom/internal/database"
	"github.com/aristath/elasticom/internal/domain"
	"github.com/aristath/elasticom/internal/modules/transactions"
	testingpkg "github.com/aristath/elasticom/internal/testing"
)

type recordingStore struct {
	batches [][]domain.TransactionRecord
	failOn  int
}

func (s *recordingStore) CreateBatch(ctx context.Context, records []domain.TransactionRecord) ([]domain.TransactionRecord, error) {
	if s.failOn > 0 && len(s.batches)+1 == s.failOn {
		return nil, errors.New("disk full")
	}
	s.batches = append(s.batches, append([]domain.TransactionRecord(nil), records...))
	return records, nil
}

func csvRows(n int, badEvery int) string {
	var b strings.Builder
	b.WriteString(header)
	for i := 1; i <= n; i++ {
		qty := fmt.Sprint(i)
		if badEvery > 0 && i%badEvery == 0 {
			qty = "n/a"
		}
		fmt.Fprintf(&b, "5%05d,SKU%d,Item,%s,1/%d/2011 10:00,1.50,12345,Norway\n", i, i%3, qty, i%28+1)
	}
	return b.String()
}

func silentBar() *progressbar.ProgressBar {
	return progressbar.NewOptions(-1, progressbar.OptionSetWriter(io.Discard))
}

func TestImporter_Batches(t *testing.T) {
	store := &recordingStore{}
	imp := New(store, zerolog.New(nil).Level(zerolog.Disabled))

	result, err := imp.Import(context.Background(), strings.NewReader(csvRows(25, 0)), Options{
		BatchSize: 10,
		Progress:  silentBar(),
	})
	require.NoError(t, err)

	assert.Equal(t, 25, result.RowsRead)
	assert.Equal(t, 0, result.RowsSkipped)
	assert.Equal(t, 25, result.RowsStored)
	assert.Equal(t, 3, result.Batches)
	require.Len(t, store.batches, 3)
	assert.Len(t, store.batches[0], 10)
	assert.Len(t, store.batches[2], 5)
}

func TestImporter_SkipsBadRows(t *testing.T) {
	store := &recordingStore{}
	imp := New(store, zerolog.New(nil).Level(zerolog.Disabled))

	result, err := imp.Import(context.Background(), strings.NewReader(csvRows(20, 5)), Options{})
	require.NoError(t, err)

	assert.Equal(t, 20, result.RowsRead)
	assert.Equal(t, 4, result.RowsSkipped)
	assert.Equal(t, 16, result.RowsStored)
	assert.Equal(t, 1, result.Batches)
}

func TestImporter_Limit(t *testing.T) {
	store := &recordingStore{}
	imp := New(store, zerolog.New(nil).Level(zerolog.Disabled))

	result, err := imp.Import(context.Background(), strings.NewReader(csvRows(50, 0)), Options{Limit: 7, BatchSize: 5})
	require.NoError(t, err)
	assert.Equal(t, 7, result.RowsStored)
	assert.Equal(t, 2, result.Batches)

	_, err = imp.Import(context.Background(), strings.NewReader(csvRows(1, 0)), Options{Limit: -1})
	assert.Error(t, err)
}

func TestImporter_DryRun(t *testing.T) {
	imp := New(nil, zerolog.New(nil).Level(zerolog.Disabled))

	result, err := imp.Import(context.Background(), strings.NewReader(csvRows(12, 4)), Options{DryRun: true, BatchSize: 5})
	require.NoError(t, err)
	assert.True(t, result.DryRun)
	assert.Equal(t, 12, result.RowsRead)
	assert.Equal(t, 3, result.RowsSkipped)
	assert.Equal(t, 0, result.RowsStored)
	assert.Equal(t, 2, result.Batches)

	_, err = imp.Import(context.Background(), strings.NewReader(csvRows(1, 0)), Options{})
	assert.Error(t, err, "a real run needs a store")
}

func TestImporter_StoreFailureStopsRun(t *testing.T) {
	store := &recordingStore{failOn: 2}
	imp := New(store, zerolog.New(nil).Level(zerolog.Disabled))

	result, err := imp.Import(context.Background(), strings.NewReader(csvRows(30, 0)), Options{BatchSize: 10})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "batch 2")
	assert.Equal(t, 10, result.RowsStored)
}

func TestImporter_CancelledContext(t *testing.T) {
	imp := New(&recordingStore{}, zerolog.New(nil).Level(zerolog.Disabled))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := imp.Import(ctx, strings.NewReader(csvRows(3, 0)), Options{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestImporter_IntoTransactionsRepository(t *testing.T) {
	db, _ := testingpkg.NewTestDB(t, database.NameTransactions)
	log := zerolog.New(nil).Level(zerolog.Disabled)
	repo := transactions.NewRepository(db.Conn(), nil, log)

	result, err := New(repo, log).Import(context.Background(), strings.NewReader(csvRows(15, 0)), Options{BatchSize: 4})
	require.NoError(t, err)
	assert.Equal(t, 15, result.RowsStored)

	count, err := repo.Count(context.Background(), domain.TransactionFilter{})
	require.NoError(t, err)
	assert.Equal(t, 15, count)

	countries, err := repo.Countries(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"Norway"}, countries)
}
