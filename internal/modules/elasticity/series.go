package elasticity

import (
	"sort"
	"time"

	"github.com/aristath/elasticom/internal/domain"
)

// DailyPoint is one item's sales aggregated over a single UTC day
type DailyPoint struct {
	Day      time.Time `json:"day"`
	Price    float64   `json:"price"`    // Mean unit price across the day's rows
	Quantity float64   `json:"quantity"` // Net quantity sold on the day
}

// Series is the daily demand history of a single stock item.
type Series struct {
	StockCode   string       `json:"stock_code"`
	Description string       `json:"description,omitempty"`
	Points      []DailyPoint `json:"points"`
}

// Prices returns the daily prices in day order
func (s Series) Prices() []float64 {
	out := make([]float64, len(s.Points))
	for i, p := range s.Points {
		out[i] = p.Price
	}
	return out
}

// Quantities returns the daily quantities in day order
func (s Series) Quantities() []float64 {
	out := make([]float64, len(s.Points))
	for i, p := range s.Points {
		out[i] = p.Quantity
	}
	return out
}

// TotalQuantity sums the daily quantities
func (s Series) TotalQuantity() float64 {
	total := 0.0
	for _, p := range s.Points {
		total += p.Quantity
	}
	return total
}

type dayKey struct {
	stockCode string
	day       time.Time
}

type dayAccumulator struct {
	priceSum float64
	rows     int
	quantity int64
}

// BuildDailySeries groups records by (stock code, UTC day) into mean price
// and summed quantity. Days whose summed quantity or mean price is not
// positive are dropped, which nets returns against same-day sales.
// Series are sorted by stock code, points by day.
func BuildDailySeries(records []domain.TransactionRecord) []Series {
	days := make(map[dayKey]*dayAccumulator)
	descriptions := make(map[string]string)

	for _, r := range records {
		d := r.InvoiceDate.UTC()
		key := dayKey{
			stockCode: r.StockCode,
			day:       time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC),
		}
		acc, ok := days[key]
		if !ok {
			acc = &dayAccumulator{}
			days[key] = acc
		}
		acc.priceSum += r.UnitPrice.InexactFloat64()
		acc.rows++
		acc.quantity += r.Quantity

		// Lexically greatest non-empty description wins, matching MAX() in SQL
		if r.Description != nil && *r.Description > descriptions[r.StockCode] {
			descriptions[r.StockCode] = *r.Description
		}
	}

	byItem := make(map[string][]DailyPoint)
	for key, acc := range days {
		meanPrice := acc.priceSum / float64(acc.rows)
		if acc.quantity <= 0 || meanPrice <= 0 {
			continue
		}
		byItem[key.stockCode] = append(byItem[key.stockCode], DailyPoint{
			Day:      key.day,
			Price:    meanPrice,
			Quantity: float64(acc.quantity),
		})
	}

	codes := make([]string, 0, len(byItem))
	for code := range byItem {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	series := make([]Series, 0, len(codes))
	for _, code := range codes {
		points := byItem[code]
		sort.Slice(points, func(i, j int) bool { return points[i].Day.Before(points[j].Day) })
		series = append(series, Series{
			StockCode:   code,
			Description: descriptions[code],
			Points:      points,
		})
	}
	return series
}
