package transactions

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/aristath/elasticom/internal/database"
	"github.com/aristath/elasticom/internal/domain"
	"github.com/aristath/elasticom/internal/metrics"
)

// transactionsColumns is the column list for the transactions table.
// Order must match scanTransaction().
const transactionsColumns = `id, invoice_no, stock_code, description, quantity, unit_price_cents, invoice_date, customer_id, country`

// Repository handles transaction database operations
type Repository struct {
	db      *sql.DB // transactions.db
	metrics *metrics.Metrics
	log     zerolog.Logger
}

var (
	_ domain.TransactionQuerier    = (*Repository)(nil)
	_ domain.CustomerMetricsSource = (*Repository)(nil)
)

// NewRepository creates a new transaction repository. m may be nil.
func NewRepository(db *sql.DB, m *metrics.Metrics, log zerolog.Logger) *Repository {
	return &Repository{
		db:      db,
		metrics: m,
		log:     log.With().Str("repo", "transactions").Logger(),
	}
}

// Create validates and inserts a single transaction, returning the stored record
func (r *Repository) Create(ctx context.Context, t domain.TransactionRecord) (*domain.TransactionRecord, error) {
	stored, err := r.CreateBatch(ctx, []domain.TransactionRecord{t})
	if err != nil {
		return nil, err
	}
	return &stored[0], nil
}

// CreateBatch validates and inserts all records in one database transaction.
// Either every record is stored or none is. Records without an ID get a new UUID.
func (r *Repository) CreateBatch(ctx context.Context, records []domain.TransactionRecord) ([]domain.TransactionRecord, error) {
	if len(records) == 0 {
		return []domain.TransactionRecord{}, nil
	}

	prepared := make([]domain.TransactionRecord, len(records))
	for i, rec := range records {
		rec = Normalize(rec)
		if err := Validate(rec); err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		if rec.ID == "" {
			rec.ID = uuid.New().String()
		}
		prepared[i] = rec
	}

	now := time.Now().Unix()
	err := database.WithTransactionContext(ctx, r.db, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO transactions
			(id, invoice_no, stock_code, description, quantity, unit_price_cents,
			 invoice_date, customer_id, country, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare insert: %w", err)
		}
		defer stmt.Close()

		for _, rec := range prepared {
			_, err := stmt.ExecContext(ctx,
				rec.ID,
				rec.InvoiceNo,
				rec.StockCode,
				nullStringPtr(rec.Description),
				rec.Quantity,
				toCents(rec.UnitPrice),
				rec.InvoiceDate.Unix(),
				nullStringPtr(rec.CustomerID),
				nullStringPtr(rec.Country),
				now,
			)
			if err != nil {
				return fmt.Errorf("failed to insert transaction %s: %w", rec.ID, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create transactions: %w", err)
	}

	r.metrics.AddTransactions(len(prepared))
	r.log.Debug().Int("count", len(prepared)).Msg("Transactions created")

	return prepared, nil
}

// GetByID retrieves a transaction by id. Returns domain.ErrNotFound if absent.
func (r *Repository) GetByID(ctx context.Context, id string) (*domain.TransactionRecord, error) {
	query := "SELECT " + transactionsColumns + " FROM transactions WHERE id = ?"

	t, err := scanTransaction(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("transaction %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}
	return &t, nil
}

// Query returns every transaction matching filter ordered by invoice date, then id
func (r *Repository) Query(ctx context.Context, filter domain.TransactionFilter) ([]domain.TransactionRecord, error) {
	where, args := buildWhere(filter)
	query := "SELECT " + transactionsColumns + " FROM transactions" + where + " ORDER BY invoice_date, id"
	return r.queryTransactions(ctx, query, args...)
}

// List returns up to limit transactions matching filter, newest first
func (r *Repository) List(ctx context.Context, filter domain.TransactionFilter, limit int) ([]domain.TransactionRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	where, args := buildWhere(filter)
	query := "SELECT " + transactionsColumns + " FROM transactions" + where + " ORDER BY invoice_date DESC, id LIMIT ?"
	args = append(args, limit)
	return r.queryTransactions(ctx, query, args...)
}

// Count returns the number of transactions matching filter
func (r *Repository) Count(ctx context.Context, filter domain.TransactionFilter) (int, error) {
	where, args := buildWhere(filter)

	var count int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM transactions"+where, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count transactions: %w", err)
	}
	return count, nil
}

// Countries returns the distinct non-empty countries, sorted
func (r *Repository) Countries(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT DISTINCT country FROM transactions
		WHERE country IS NOT NULL AND country != ''
		ORDER BY country
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query countries: %w", err)
	}
	defer rows.Close()

	countries := make([]string, 0)
	for rows.Next() {
		var country string
		if err := rows.Scan(&country); err != nil {
			return nil, fmt.Errorf("failed to scan country: %w", err)
		}
		countries = append(countries, country)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating countries: %w", err)
	}
	return countries, nil
}

// Delete removes a transaction by id. Returns domain.ErrNotFound if absent.
func (r *Repository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM transactions WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete transaction: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("transaction %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

// DeleteAll removes every transaction and returns how many were deleted
func (r *Repository) DeleteAll(ctx context.Context) (int64, error) {
	result, err := r.db.ExecContext(ctx, "DELETE FROM transactions")
	if err != nil {
		return 0, fmt.Errorf("failed to delete transactions: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	r.log.Info().Int64("deleted", affected).Msg("All transactions deleted")
	return affected, nil
}

// CustomerMetrics computes recency, frequency and monetary per customer in SQL.
// Only positive-quantity rows with a customer id count; customers whose
// monetary total is not positive are omitted. Results are ordered by customer id.
func (r *Repository) CustomerMetrics(ctx context.Context, filter domain.TransactionFilter, snapshot time.Time) ([]domain.CustomerMetrics, error) {
	where, args := buildWhere(filter, "quantity > 0", "customer_id IS NOT NULL", "customer_id != ''")
	query := `
		SELECT customer_id,
		       MAX(invoice_date),
		       COUNT(DISTINCT invoice_no),
		       SUM(quantity * unit_price_cents)
		FROM transactions` + where + `
		GROUP BY customer_id
		HAVING SUM(quantity * unit_price_cents) > 0
		ORDER BY customer_id
	`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate customer metrics: %w", err)
	}
	defer rows.Close()

	out := make([]domain.CustomerMetrics, 0)
	for rows.Next() {
		var (
			customerID    string
			lastPurchase  int64
			frequency     int
			monetaryCents int64
		)
		if err := rows.Scan(&customerID, &lastPurchase, &frequency, &monetaryCents); err != nil {
			return nil, fmt.Errorf("failed to scan customer metrics: %w", err)
		}
		last := time.Unix(lastPurchase, 0).UTC()
		out = append(out, domain.CustomerMetrics{
			CustomerID:   customerID,
			LastPurchase: last,
			Recency:      domain.RecencyDays(snapshot, last),
			Frequency:    frequency,
			Monetary:     fromCents(monetaryCents),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating customer metrics: %w", err)
	}
	return out, nil
}

func (r *Repository) queryTransactions(ctx context.Context, query string, args ...interface{}) ([]domain.TransactionRecord, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	out := make([]domain.TransactionRecord, 0)
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transactions: %w", err)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanTransaction(row scanner) (domain.TransactionRecord, error) {
	var (
		t           domain.TransactionRecord
		description sql.NullString
		customerID  sql.NullString
		country     sql.NullString
		priceCents  int64
		invoiceDate int64
	)

	err := row.Scan(
		&t.ID,
		&t.InvoiceNo,
		&t.StockCode,
		&description,
		&t.Quantity,
		&priceCents,
		&invoiceDate,
		&customerID,
		&country,
	)
	if err != nil {
		return t, err
	}

	t.UnitPrice = fromCents(priceCents)
	t.InvoiceDate = time.Unix(invoiceDate, 0).UTC()
	if description.Valid {
		t.Description = &description.String
	}
	if customerID.Valid {
		t.CustomerID = &customerID.String
	}
	if country.Valid {
		t.Country = &country.String
	}
	return t, nil
}

// buildWhere renders filter (plus any fixed conditions) as a WHERE clause
func buildWhere(filter domain.TransactionFilter, conditions ...string) (string, []interface{}) {
	clauses := append([]string{}, conditions...)
	args := make([]interface{}, 0)

	if filter.StartDate != nil {
		clauses = append(clauses, "invoice_date >= ?")
		args = append(args, filter.StartDate.Unix())
	}
	if filter.EndDate != nil {
		clauses = append(clauses, "invoice_date <= ?")
		args = append(args, filter.EndBound().Unix())
	}
	if filter.Country != "" {
		clauses = append(clauses, "country = ?")
		args = append(args, filter.Country)
	}
	if len(filter.StockCodes) > 0 {
		clauses = append(clauses, "stock_code IN ("+placeholders(len(filter.StockCodes))+")")
		for _, code := range filter.StockCodes {
			args = append(args, code)
		}
	}
	if len(filter.CustomerIDs) > 0 {
		clauses = append(clauses, "customer_id IN ("+placeholders(len(filter.CustomerIDs))+")")
		for _, id := range filter.CustomerIDs {
			args = append(args, id)
		}
	}

	if len(clauses) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func toCents(d decimal.Decimal) int64 {
	return d.Shift(PriceScale).Round(0).IntPart()
}

func fromCents(cents int64) decimal.Decimal {
	return decimal.New(cents, -PriceScale)
}

func nullStringPtr(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{Valid: false}
	}
	return sql.NullString{String: *s, Valid: true}
}
