// Package domain provides core domain models and types.
package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionRecord is one sales line item as ingested from the store.
// Records are immutable once created.
type TransactionRecord struct {
	InvoiceDate time.Time       `json:"invoice_date"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	CustomerID  *string         `json:"customer_id,omitempty"`
	Country     *string         `json:"country,omitempty"`
	Description *string         `json:"description,omitempty"`
	ID          string          `json:"id"`
	InvoiceNo   string          `json:"invoice_no"`
	StockCode   string          `json:"stock_code"`
	Quantity    int64           `json:"quantity"` // Negative or zero for returns/invalid rows
}

// IsSale reports whether the row counts as a purchase (quantity > 0)
func (t TransactionRecord) IsSale() bool {
	return t.Quantity > 0
}

// LineTotal returns quantity * unit price
func (t TransactionRecord) LineTotal() decimal.Decimal {
	return t.UnitPrice.Mul(decimal.NewFromInt(t.Quantity))
}

// Customer returns the customer id, or "" when the row is anonymous
func (t TransactionRecord) Customer() string {
	if t.CustomerID == nil {
		return ""
	}
	return *t.CustomerID
}

// TransactionFilter scopes a transaction query. Zero values mean "no filter".
type TransactionFilter struct {
	StartDate   *time.Time // Inclusive
	EndDate     *time.Time // Inclusive (whole day when time part is zero)
	Country     string
	StockCodes  []string
	CustomerIDs []string
}

// Matches applies the filter to a single record in memory.
// Stores are expected to apply the same semantics in their queries.
func (f TransactionFilter) Matches(t TransactionRecord) bool {
	if f.StartDate != nil && t.InvoiceDate.Before(*f.StartDate) {
		return false
	}
	if f.EndDate != nil && t.InvoiceDate.After(f.EndBound()) {
		return false
	}
	if f.Country != "" && (t.Country == nil || *t.Country != f.Country) {
		return false
	}
	if len(f.StockCodes) > 0 && !contains(f.StockCodes, t.StockCode) {
		return false
	}
	if len(f.CustomerIDs) > 0 && (t.CustomerID == nil || !contains(f.CustomerIDs, *t.CustomerID)) {
		return false
	}
	return true
}

// EndBound returns the inclusive upper bound for EndDate.
// A date without a time component covers the whole day.
func (f TransactionFilter) EndBound() time.Time {
	if f.EndDate == nil {
		return time.Time{}
	}
	end := *f.EndDate
	if end.Hour() == 0 && end.Minute() == 0 && end.Second() == 0 && end.Nanosecond() == 0 {
		return end.Add(24*time.Hour - time.Nanosecond)
	}
	return end
}

// FilterRecords returns the records matching f, preserving order
func FilterRecords(records []TransactionRecord, f TransactionFilter) []TransactionRecord {
	out := make([]TransactionRecord, 0, len(records))
	for _, r := range records {
		if f.Matches(r) {
			out = append(out, r)
		}
	}
	return out
}

func contains(values []string, v string) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}

// CustomerMetrics is the (recency, frequency, monetary) triple for one customer.
// Only customers with positive monetary value are ever produced.
type CustomerMetrics struct {
	LastPurchase time.Time       `json:"last_purchase"`
	Monetary     decimal.Decimal `json:"monetary"`
	CustomerID   string          `json:"customer_id"`
	Recency      int             `json:"recency"`   // Days since last purchase
	Frequency    int             `json:"frequency"` // Distinct invoices
}

// RecencyDays returns the number of whole calendar days between the date of
// last and the date of snapshot, both taken in UTC. Negative gaps clamp to 0.
func RecencyDays(snapshot, last time.Time) int {
	s := truncateDay(snapshot)
	l := truncateDay(last)
	days := int(s.Sub(l).Hours() / 24)
	if days < 0 {
		return 0
	}
	return days
}

func truncateDay(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}
