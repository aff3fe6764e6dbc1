package simulation

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/aristath/elasticom/internal/domain"
)

// Limits on quick and saved scenarios
const (
	MinPriceChangePercent = -99
	MaxPriceChangePercent = 1000
	MaxNameLen            = 256
	MaxStockCodeLen       = 20
	MaxCurvePoints        = 500
)

// PriceRange is a sweep of whole percentage changes, inclusive on both ends.
// It is encoded in JSON as [from, to, step].
type PriceRange struct {
	From int
	To   int
	Step int
}

// MarshalJSON encodes the range as a three-element array
func (p PriceRange) MarshalJSON() ([]byte, error) {
	return json.Marshal([3]int{p.From, p.To, p.Step})
}

// UnmarshalJSON decodes a three-element array
func (p *PriceRange) UnmarshalJSON(data []byte) error {
	var values []int
	if err := json.Unmarshal(data, &values); err != nil {
		return fmt.Errorf("price_range must be [from, to, step]: %w", err)
	}
	if len(values) != 3 {
		return fmt.Errorf("price_range must have exactly 3 values, got %d", len(values))
	}
	p.From, p.To, p.Step = values[0], values[1], values[2]
	return nil
}

// Validate checks bounds, ordering and step
func (p PriceRange) Validate() error {
	switch {
	case p.From < MinPriceChangePercent || p.To > MaxPriceChangePercent:
		return &domain.InvalidInputError{
			Field:   "price_range",
			Message: fmt.Sprintf("values must be between %d and %d", MinPriceChangePercent, MaxPriceChangePercent),
		}
	case p.From > p.To:
		return &domain.InvalidInputError{Field: "price_range", Message: "from must not exceed to"}
	case p.Step <= 0:
		return &domain.InvalidInputError{Field: "price_range", Message: "step must be positive"}
	case (p.To-p.From)/p.Step+1 > MaxCurvePoints:
		return &domain.InvalidInputError{
			Field:   "price_range",
			Message: fmt.Sprintf("range produces more than %d points", MaxCurvePoints),
		}
	}
	return nil
}

// Midpoint returns the centre of the range in percent
func (p PriceRange) Midpoint() float64 {
	return float64(p.From+p.To) / 2
}

// Points returns every percentage in the sweep. The upper bound is included
// even when it is not a whole number of steps from the lower bound.
func (p PriceRange) Points() []int {
	if p.Step <= 0 || p.From > p.To {
		return nil
	}
	points := make([]int, 0, (p.To-p.From)/p.Step+2)
	for v := p.From; v <= p.To; v += p.Step {
		points = append(points, v)
	}
	if points[len(points)-1] != p.To {
		points = append(points, p.To)
	}
	return points
}

// SavedSimulation is a named scenario persisted for later evaluation
type SavedSimulation struct {
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	Description *string    `json:"description,omitempty"`
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	StockCode   string     `json:"stock_item_ref"`
	PriceRange  PriceRange `json:"price_range"`
}

// Normalize trims text fields
func (s SavedSimulation) Normalize() SavedSimulation {
	s.Name = strings.TrimSpace(s.Name)
	s.StockCode = strings.TrimSpace(s.StockCode)
	if s.Description != nil {
		d := strings.TrimSpace(*s.Description)
		if d == "" {
			s.Description = nil
		} else {
			s.Description = &d
		}
	}
	return s
}

// Validate checks a scenario before it is stored
func (s SavedSimulation) Validate() error {
	if s.Name == "" || utf8.RuneCountInString(s.Name) > MaxNameLen {
		return &domain.InvalidInputError{
			Field:   "name",
			Message: fmt.Sprintf("must be 1 to %d characters", MaxNameLen),
		}
	}
	if s.StockCode == "" || utf8.RuneCountInString(s.StockCode) > MaxStockCodeLen {
		return &domain.InvalidInputError{
			Field:   "stock_item_ref",
			Message: fmt.Sprintf("must be 1 to %d characters", MaxStockCodeLen),
		}
	}
	return s.PriceRange.Validate()
}

// Update is a partial change to a saved scenario. Nil fields are left as is.
type Update struct {
	Name        *string     `json:"name,omitempty"`
	Description *string     `json:"description,omitempty"`
	PriceRange  *PriceRange `json:"price_range,omitempty"`
}

// Apply returns s with the update's fields set
func (u Update) Apply(s SavedSimulation) SavedSimulation {
	if u.Name != nil {
		s.Name = *u.Name
	}
	if u.Description != nil {
		d := *u.Description
		s.Description = &d
	}
	if u.PriceRange != nil {
		s.PriceRange = *u.PriceRange
	}
	return s.Normalize()
}

// ValidatePercent checks a quick-simulation percentage
func ValidatePercent(field string, pct float64) error {
	if pct < MinPriceChangePercent || pct > MaxPriceChangePercent {
		return &domain.InvalidInputError{
			Field:   field,
			Message: fmt.Sprintf("must be between %d and %d", MinPriceChangePercent, MaxPriceChangePercent),
		}
	}
	return nil
}
