package elasticity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/elasticom/internal/domain"
	testingpkg "github.com/aristath/elasticom/internal/testing"
)

func TestBuildDailySeries(t *testing.T) {
	day1 := time.Date(2011, 1, 3, 9, 0, 0, 0, time.UTC)
	day2 := day1.AddDate(0, 0, 1)

	records := []domain.TransactionRecord{
		testingpkg.WithDescription(testingpkg.Txn("1", "B", "C1", 4, "2.00", day1), "LUNCH BAG"),
		testingpkg.Txn("2", "B", "C2", 6, "3.00", day1.Add(3*time.Hour)),
		testingpkg.Txn("3", "B", "C1", 2, "4.00", day2),
		testingpkg.Txn("4", "A", "C1", 1, "1.00", day2),
	}

	series := BuildDailySeries(records)
	require.Len(t, series, 2)

	assert.Equal(t, "A", series[0].StockCode, "sorted by stock code")
	b := series[1]
	assert.Equal(t, "LUNCH BAG", b.Description)
	require.Len(t, b.Points, 2)
	assert.Equal(t, time.Date(2011, 1, 3, 0, 0, 0, 0, time.UTC), b.Points[0].Day)
	assert.InDelta(t, 2.5, b.Points[0].Price, 1e-12, "mean of row prices")
	assert.Equal(t, 10.0, b.Points[0].Quantity, "summed quantity")
	assert.Equal(t, []float64{2.5, 4}, b.Prices())
	assert.Equal(t, []float64{10, 2}, b.Quantities())
	assert.Equal(t, 12.0, b.TotalQuantity())
}

func TestBuildDailySeries_DropsNonPositiveDays(t *testing.T) {
	day := time.Date(2011, 1, 3, 9, 0, 0, 0, time.UTC)

	records := []domain.TransactionRecord{
		// Sale fully returned the same day
		testingpkg.Txn("1", "A", "C1", 3, "2.00", day),
		testingpkg.Txn("C2", "A", "C1", -3, "2.00", day),
		// Free samples
		testingpkg.Txn("3", "A", "C1", 5, "0.00", day.AddDate(0, 0, 1)),
		// Partial return nets positive
		testingpkg.Txn("4", "A", "C1", 5, "2.00", day.AddDate(0, 0, 2)),
		testingpkg.Txn("C5", "A", "C1", -1, "2.00", day.AddDate(0, 0, 2)),
	}

	series := BuildDailySeries(records)
	require.Len(t, series, 1)
	require.Len(t, series[0].Points, 1)
	assert.Equal(t, 4.0, series[0].Points[0].Quantity)
}

func TestBuildDailySeries_UsesUTCDay(t *testing.T) {
	tz := time.FixedZone("UTC+10", 10*60*60)
	// 2011-01-04 01:00 local = 2011-01-03 15:00 UTC
	local := time.Date(2011, 1, 4, 1, 0, 0, 0, tz)

	series := BuildDailySeries([]domain.TransactionRecord{
		testingpkg.Txn("1", "A", "C1", 1, "1.00", local),
	})
	require.Len(t, series, 1)
	assert.Equal(t, 3, series[0].Points[0].Day.Day())
}
