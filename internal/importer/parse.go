// Package importer loads sales history from UCI Online Retail style CSV
// exports into the transaction store.
package importer

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"github.com/aristath/elasticom/internal/domain"
	"github.com/aristath/elasticom/internal/modules/transactions"
)

// Column headers
const (
	ColInvoiceNo   = "InvoiceNo"
	ColStockCode   = "StockCode"
	ColDescription = "Description"
	ColQuantity    = "Quantity"
	ColInvoiceDate = "InvoiceDate"
	ColUnitPrice   = "UnitPrice"
	ColCustomerID  = "CustomerID"
	ColCountry     = "Country"
)

var requiredColumns = []string{ColInvoiceNo, ColStockCode, ColQuantity, ColInvoiceDate, ColUnitPrice}

// dateLayouts are tried in order; month-first matches the UCI export
var dateLayouts = []string{"1/2/2006 15:04", "2/1/2006 15:04"}

var minPrice = decimal.New(1, -transactions.PriceScale)

// RowError describes a row that could not be converted. The import skips it.
type RowError struct {
	Line int
	Err  error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

func (e *RowError) Unwrap() error {
	return e.Err
}

// ParseInvoiceDate parses "M/D/YYYY H:MM", falling back to "D/M/YYYY H:MM".
// The result is in UTC.
func ParseInvoiceDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, value, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid invoice date %q", value)
}

// NormalizePrice takes the absolute value and rounds half-to-even to cents.
// A positive price that rounds to zero becomes the smallest cent.
func NormalizePrice(value string) (decimal.Decimal, error) {
	price, err := decimal.NewFromString(strings.TrimSpace(value))
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid unit price %q", value)
	}

	price = price.Abs()
	rounded := price.RoundBank(transactions.PriceScale)
	if price.IsPositive() && rounded.LessThan(minPrice) {
		return minPrice, nil
	}
	return rounded, nil
}

// toUTF8 returns s unchanged when it is valid UTF-8 and otherwise decodes it
// as Latin-1, which is how the UCI export is encoded.
func toUTF8(s string) string {
	if utf8.ValidString(s) {
		return s
	}
	var b strings.Builder
	b.Grow(len(s) * 2)
	for i := 0; i < len(s); i++ {
		b.WriteRune(rune(s[i]))
	}
	return b.String()
}

// Reader converts CSV rows into transaction records
type Reader struct {
	csv     *csv.Reader
	columns map[string]int
	line    int
}

// NewReader reads the header row and checks that the required columns exist
func NewReader(r io.Reader) (*Reader, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("csv file is empty")
		}
		return nil, fmt.Errorf("failed to read csv header: %w", err)
	}

	columns := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.TrimSpace(strings.TrimPrefix(toUTF8(name), "\ufeff"))
		columns[name] = i
	}
	for _, name := range requiredColumns {
		if _, ok := columns[name]; !ok {
			return nil, fmt.Errorf("csv header is missing column %s", name)
		}
	}

	return &Reader{csv: cr, columns: columns, line: 1}, nil
}

// Next returns the next record. A row that cannot be converted yields a
// *RowError; reading may continue after it. io.EOF marks the end of input.
func (r *Reader) Next() (domain.TransactionRecord, error) {
	row, err := r.csv.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return domain.TransactionRecord{}, io.EOF
		}
		var parseErr *csv.ParseError
		if errors.As(err, &parseErr) {
			r.line = parseErr.Line
			return domain.TransactionRecord{}, &RowError{Line: parseErr.Line, Err: parseErr.Err}
		}
		return domain.TransactionRecord{}, err
	}
	r.line++

	rec, err := r.convert(row)
	if err != nil {
		return domain.TransactionRecord{}, &RowError{Line: r.line, Err: err}
	}
	return rec, nil
}

func (r *Reader) field(row []string, name string) string {
	i, ok := r.columns[name]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(toUTF8(row[i]))
}

func (r *Reader) optional(row []string, name string, limit int) *string {
	v := r.field(row, name)
	if v == "" {
		return nil
	}
	v = transactions.Truncate(v, limit)
	return &v
}

func (r *Reader) convert(row []string) (domain.TransactionRecord, error) {
	quantity, err := strconv.ParseInt(r.field(row, ColQuantity), 10, 64)
	if err != nil {
		return domain.TransactionRecord{}, fmt.Errorf("invalid quantity %q", r.field(row, ColQuantity))
	}
	invoiceDate, err := ParseInvoiceDate(r.field(row, ColInvoiceDate))
	if err != nil {
		return domain.TransactionRecord{}, err
	}
	price, err := NormalizePrice(r.field(row, ColUnitPrice))
	if err != nil {
		return domain.TransactionRecord{}, err
	}

	rec := domain.TransactionRecord{
		InvoiceNo:   transactions.Truncate(r.field(row, ColInvoiceNo), transactions.MaxInvoiceNoLen),
		StockCode:   transactions.Truncate(r.field(row, ColStockCode), transactions.MaxStockCodeLen),
		Description: r.optional(row, ColDescription, transactions.MaxDescriptionLen),
		Quantity:    quantity,
		UnitPrice:   price,
		InvoiceDate: invoiceDate,
		CustomerID:  r.optional(row, ColCustomerID, transactions.MaxCustomerIDLen),
		Country:     r.optional(row, ColCountry, transactions.MaxCountryLen),
	}

	if err := transactions.Validate(transactions.Normalize(rec)); err != nil {
		return domain.TransactionRecord{}, err
	}
	return rec, nil
}
