package domain

import (
	"context"
	"time"
)

// TransactionQuerier is the read contract the analysis modules consume.
// Implementations return records in a stable order (invoice date, then id).
type TransactionQuerier interface {
	Query(ctx context.Context, filter TransactionFilter) ([]TransactionRecord, error)
}

// CustomerMetricsSource is implemented by stores that can compute RFM metrics
// inside the data layer instead of materializing every row.
// Semantics must match rfm.Aggregate exactly.
type CustomerMetricsSource interface {
	CustomerMetrics(ctx context.Context, filter TransactionFilter, snapshot time.Time) ([]CustomerMetrics, error)
}

// Clock returns the current time. Injected wherever a default snapshot date
// is needed so tests stay deterministic.
type Clock func() time.Time
