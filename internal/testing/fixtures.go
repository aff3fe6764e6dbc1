package testing

import (
	"fmt"
	"math"
	"time"

	"github.com/shopspring/decimal"

	"github.com/aristath/elasticom/internal/domain"
)

// FixtureSnapshot is the reference date used by the transaction fixtures
var FixtureSnapshot = time.Date(2011, 12, 10, 0, 0, 0, 0, time.UTC)

// Txn builds a single sale row. customer may be "" for an anonymous row.
func Txn(invoice, stockCode, customer string, quantity int64, price string, when time.Time) domain.TransactionRecord {
	t := domain.TransactionRecord{
		ID:          fmt.Sprintf("%s-%s-%d", invoice, stockCode, when.Unix()),
		InvoiceNo:   invoice,
		StockCode:   stockCode,
		Quantity:    quantity,
		UnitPrice:   decimal.RequireFromString(price),
		InvoiceDate: when,
	}
	if customer != "" {
		c := customer
		t.CustomerID = &c
	}
	return t
}

// WithCountry returns t with its country set
func WithCountry(t domain.TransactionRecord, country string) domain.TransactionRecord {
	t.Country = &country
	return t
}

// WithDescription returns t with its description set
func WithDescription(t domain.TransactionRecord, description string) domain.TransactionRecord {
	t.Description = &description
	return t
}

// NewConstantElasticityFixtures generates one sale per day for stockCode
// following Q = scale * P^elasticity exactly. Prices cycle through prices.
func NewConstantElasticityFixtures(stockCode string, elasticity, scale float64, prices []float64, start time.Time) []domain.TransactionRecord {
	records := make([]domain.TransactionRecord, 0, len(prices))
	for i, p := range prices {
		qty := math.Round(scale * math.Pow(p, elasticity))
		day := start.AddDate(0, 0, i)
		records = append(records, Txn(
			fmt.Sprintf("INV%s%03d", stockCode, i),
			stockCode,
			fmt.Sprintf("C%03d", i%5),
			int64(qty),
			decimal.NewFromFloat(p).StringFixed(2),
			day,
		))
	}
	return records
}

// NewRFMFixtures returns a small customer base spread across recency,
// frequency and monetary tertiles relative to FixtureSnapshot.
//
//	C1: recent, frequent, big spender
//	C2: middling on every axis
//	C3: lapsed, one small order
//	C4: only a return (excluded from RFM)
func NewRFMFixtures() []domain.TransactionRecord {
	day := func(daysAgo int) time.Time {
		return FixtureSnapshot.AddDate(0, 0, -daysAgo).Add(10 * time.Hour)
	}
	return []domain.TransactionRecord{
		WithCountry(Txn("536365", "85123A", "C1", 10, "2.55", day(2)), "United Kingdom"),
		WithCountry(Txn("536365", "71053", "C1", 5, "3.39", day(2)), "United Kingdom"),
		WithCountry(Txn("536366", "85123A", "C1", 20, "2.55", day(10)), "United Kingdom"),
		WithCountry(Txn("536367", "22423", "C1", 4, "12.75", day(30)), "United Kingdom"),

		WithCountry(Txn("536400", "85123A", "C2", 6, "2.55", day(45)), "France"),
		WithCountry(Txn("536401", "71053", "C2", 3, "3.39", day(60)), "France"),

		WithCountry(Txn("536500", "22423", "C3", 1, "12.75", day(200)), "Germany"),

		WithCountry(Txn("C536600", "85123A", "C4", -2, "2.55", day(5)), "United Kingdom"),
	}
}
