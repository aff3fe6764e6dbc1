package utils

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/elasticom/internal/domain"
)

// DateLayout is the query parameter date format
const DateLayout = "2006-01-02"

// WriteJSON writes data as a JSON response
func WriteJSON(w http.ResponseWriter, status int, data interface{}, log zerolog.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// WriteData writes data wrapped in the standard {"data", "metadata"} envelope
func WriteData(w http.ResponseWriter, status int, data interface{}, log zerolog.Logger) {
	WriteJSON(w, status, map[string]interface{}{
		"data": data,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		},
	}, log)
}

// StatusForError maps an error to its HTTP status code
func StatusForError(err error) int {
	switch {
	case domain.IsInvalidInput(err):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case domain.IsInsufficientData(err), domain.IsNumerical(err):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// WriteError writes err as {"error", "kind"} with the mapped status.
// Internal errors are logged and their message is not exposed.
func WriteError(w http.ResponseWriter, err error, log zerolog.Logger) {
	status := StatusForError(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		log.Error().Err(err).Msg("Request failed")
		message = http.StatusText(status)
	}

	WriteJSON(w, status, map[string]string{
		"error": message,
		"kind":  domain.ErrorKind(err),
	}, log)
}

// DecodeJSON decodes the request body into dst, rejecting unknown fields
func DecodeJSON(r *http.Request, dst interface{}) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		return &domain.InvalidInputError{Field: "body", Message: err.Error()}
	}
	return nil
}

// ParseDate parses an optional YYYY-MM-DD query value.
// An empty value returns nil.
func ParseDate(field, value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	d, err := time.ParseInLocation(DateLayout, value, time.UTC)
	if err != nil {
		return nil, &domain.InvalidInputError{
			Field:   field,
			Message: fmt.Sprintf("expected date as %s", DateLayout),
		}
	}
	return &d, nil
}

// ParseTransactionFilter reads start_date, end_date, country, stock_codes and
// customer_ids from query parameters
func ParseTransactionFilter(q url.Values) (domain.TransactionFilter, error) {
	var filter domain.TransactionFilter

	start, err := ParseDate("start_date", q.Get("start_date"))
	if err != nil {
		return filter, err
	}
	end, err := ParseDate("end_date", q.Get("end_date"))
	if err != nil {
		return filter, err
	}
	if start != nil && end != nil && end.Before(*start) {
		return filter, &domain.InvalidInputError{Field: "end_date", Message: "must not be before start_date"}
	}

	filter.StartDate = start
	filter.EndDate = end
	filter.Country = q.Get("country")
	filter.StockCodes = ParseCSV(q.Get("stock_codes"))
	filter.CustomerIDs = ParseCSV(q.Get("customer_ids"))
	return filter, nil
}

// ParseReferenceDate reads the reference_date query value used as the RFM
// snapshot. When absent it defaults to today's date according to clock.
func ParseReferenceDate(q url.Values, clock domain.Clock) (time.Time, error) {
	ref, err := ParseDate("reference_date", q.Get("reference_date"))
	if err != nil {
		return time.Time{}, err
	}
	if ref != nil {
		return *ref, nil
	}
	if clock == nil {
		clock = time.Now
	}
	now := clock().UTC()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC), nil
}
