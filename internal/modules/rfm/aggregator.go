// Package rfm computes per-customer recency, frequency and monetary metrics
// and assigns customers to named segments.
package rfm

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/aristath/elasticom/internal/domain"
)

type accumulator struct {
	invoices map[string]struct{}
	monetary decimal.Decimal
	last     time.Time
}

// Aggregate reduces transaction rows to one CustomerMetrics per customer.
//
// Only rows with a customer id and a positive quantity count. Frequency is the
// number of distinct invoices, monetary the sum of quantity * unit price and
// recency the whole days between snapshot and the latest purchase. Customers
// whose monetary total is not positive are omitted. Output is sorted by
// customer id.
func Aggregate(snapshot time.Time, records []domain.TransactionRecord) []domain.CustomerMetrics {
	byCustomer := make(map[string]*accumulator)

	for _, r := range records {
		customer := r.Customer()
		if customer == "" || !r.IsSale() {
			continue
		}

		acc, ok := byCustomer[customer]
		if !ok {
			acc = &accumulator{invoices: make(map[string]struct{})}
			byCustomer[customer] = acc
		}
		acc.invoices[r.InvoiceNo] = struct{}{}
		acc.monetary = acc.monetary.Add(r.LineTotal())
		if r.InvoiceDate.After(acc.last) {
			acc.last = r.InvoiceDate
		}
	}

	out := make([]domain.CustomerMetrics, 0, len(byCustomer))
	for customer, acc := range byCustomer {
		if !acc.monetary.IsPositive() {
			continue
		}
		out = append(out, domain.CustomerMetrics{
			CustomerID:   customer,
			Recency:      domain.RecencyDays(snapshot, acc.last),
			Frequency:    len(acc.invoices),
			Monetary:     acc.monetary,
			LastPurchase: acc.last.UTC(),
		})
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].CustomerID < out[j].CustomerID
	})
	return out
}
