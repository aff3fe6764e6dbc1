// Package transactions stores sales line items and serves them to the
// analysis modules.
package transactions

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"github.com/aristath/elasticom/internal/domain"
)

// Column limits
const (
	MaxInvoiceNoLen   = 20
	MaxStockCodeLen   = 20
	MaxDescriptionLen = 256
	MaxCustomerIDLen  = 20
	MaxCountryLen     = 64
)

// PriceScale is the number of decimal places unit prices are stored with
const PriceScale = 2

// Normalize trims text fields, turns blank optionals into nil and rounds the
// unit price to PriceScale places. It does not validate.
func Normalize(t domain.TransactionRecord) domain.TransactionRecord {
	t.InvoiceNo = strings.TrimSpace(t.InvoiceNo)
	t.StockCode = strings.TrimSpace(t.StockCode)
	t.Description = trimOptional(t.Description)
	t.CustomerID = trimOptional(t.CustomerID)
	t.Country = trimOptional(t.Country)
	t.UnitPrice = t.UnitPrice.Round(PriceScale)
	t.InvoiceDate = t.InvoiceDate.UTC()
	return t
}

// Validate checks a normalized record against the column rules
func Validate(t domain.TransactionRecord) error {
	if t.InvoiceNo == "" {
		return &domain.InvalidInputError{Field: "invoice_no", Message: "is required"}
	}
	if err := checkLen("invoice_no", t.InvoiceNo, MaxInvoiceNoLen); err != nil {
		return err
	}
	if t.StockCode == "" {
		return &domain.InvalidInputError{Field: "stock_code", Message: "is required"}
	}
	if err := checkLen("stock_code", t.StockCode, MaxStockCodeLen); err != nil {
		return err
	}
	if t.UnitPrice.IsNegative() {
		return &domain.InvalidInputError{Field: "unit_price", Message: "must not be negative"}
	}
	if t.UnitPrice.GreaterThan(maxUnitPrice) {
		return &domain.InvalidInputError{Field: "unit_price", Message: "exceeds maximum of " + maxUnitPrice.String()}
	}
	if t.InvoiceDate.IsZero() {
		return &domain.InvalidInputError{Field: "invoice_date", Message: "is required"}
	}
	if t.Description != nil {
		if err := checkLen("description", *t.Description, MaxDescriptionLen); err != nil {
			return err
		}
	}
	if t.CustomerID != nil {
		if err := checkLen("customer_id", *t.CustomerID, MaxCustomerIDLen); err != nil {
			return err
		}
	}
	if t.Country != nil {
		if err := checkLen("country", *t.Country, MaxCountryLen); err != nil {
			return err
		}
	}
	return nil
}

// Numeric(10,2)
var maxUnitPrice = decimal.RequireFromString("99999999.99")

func checkLen(field, value string, limit int) error {
	if utf8.RuneCountInString(value) > limit {
		return &domain.InvalidInputError{
			Field:   field,
			Message: fmt.Sprintf("must be at most %d characters", limit),
		}
	}
	return nil
}

func trimOptional(s *string) *string {
	if s == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*s)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

// Truncate shortens s to at most limit characters
func Truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return string(runes[:limit])
}
