package simulation

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/aristath/elasticom/internal/domain"
)

const simulationColumns = `id, name, description, stock_code, price_from, price_to, price_step, created_at, updated_at`

// Repository stores saved scenarios in the simulations database
type Repository struct {
	db  *sql.DB
	now func() time.Time
	log zerolog.Logger
}

// NewRepository creates a new simulation repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		now: time.Now,
		log: log.With().Str("repo", "simulations").Logger(),
	}
}

// Create validates s, assigns it an id and timestamps and stores it
func (r *Repository) Create(ctx context.Context, s SavedSimulation) (*SavedSimulation, error) {
	s = s.Normalize()
	if err := s.Validate(); err != nil {
		return nil, err
	}

	now := r.now().UTC().Truncate(time.Second)
	s.ID = uuid.New().String()
	s.CreatedAt = now
	s.UpdatedAt = now

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO simulations (`+simulationColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		s.ID,
		s.Name,
		nullString(s.Description),
		s.StockCode,
		s.PriceRange.From,
		s.PriceRange.To,
		s.PriceRange.Step,
		s.CreatedAt.Unix(),
		s.UpdatedAt.Unix(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create simulation: %w", err)
	}

	r.log.Info().Str("id", s.ID).Str("stock_code", s.StockCode).Msg("Simulation saved")
	return &s, nil
}

// GetByID retrieves a scenario. Returns domain.ErrNotFound if absent.
func (r *Repository) GetByID(ctx context.Context, id string) (*SavedSimulation, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+simulationColumns+" FROM simulations WHERE id = ?", id)

	s, err := scanSimulation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("simulation %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get simulation: %w", err)
	}
	return &s, nil
}

// List returns up to limit scenarios, newest first
func (r *Repository) List(ctx context.Context, limit int) ([]SavedSimulation, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := r.db.QueryContext(ctx,
		"SELECT "+simulationColumns+" FROM simulations ORDER BY created_at DESC, rowid DESC LIMIT ?", limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query simulations: %w", err)
	}
	defer rows.Close()

	out := make([]SavedSimulation, 0)
	for rows.Next() {
		s, err := scanSimulation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan simulation: %w", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating simulations: %w", err)
	}
	return out, nil
}

// Count returns the number of saved scenarios
func (r *Repository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM simulations").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count simulations: %w", err)
	}
	return count, nil
}

// Update applies a partial update and returns the stored scenario
func (r *Repository) Update(ctx context.Context, id string, u Update) (*SavedSimulation, error) {
	current, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	updated := u.Apply(*current)
	if err := updated.Validate(); err != nil {
		return nil, err
	}
	updated.UpdatedAt = r.now().UTC().Truncate(time.Second)

	_, err = r.db.ExecContext(ctx, `
		UPDATE simulations
		SET name = ?, description = ?, price_from = ?, price_to = ?, price_step = ?, updated_at = ?
		WHERE id = ?
	`,
		updated.Name,
		nullString(updated.Description),
		updated.PriceRange.From,
		updated.PriceRange.To,
		updated.PriceRange.Step,
		updated.UpdatedAt.Unix(),
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update simulation: %w", err)
	}
	return &updated, nil
}

// Delete removes a scenario. Returns domain.ErrNotFound if absent.
func (r *Repository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM simulations WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete simulation: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("simulation %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanSimulation(row scanner) (SavedSimulation, error) {
	var (
		s           SavedSimulation
		description sql.NullString
		createdAt   int64
		updatedAt   int64
	)
	err := row.Scan(
		&s.ID,
		&s.Name,
		&description,
		&s.StockCode,
		&s.PriceRange.From,
		&s.PriceRange.To,
		&s.PriceRange.Step,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return s, err
	}

	if description.Valid {
		s.Description = &description.String
	}
	s.CreatedAt = time.Unix(createdAt, 0).UTC()
	s.UpdatedAt = time.Unix(updatedAt, 0).UTC()
	return s, nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
