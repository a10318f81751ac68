package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/elimuhub/elimu-api/internal/models"
)

// TermRepository provides database access for academic terms.
type TermRepository struct {
	db *sqlx.DB
}

// NewTermRepository constructs the repository.
func NewTermRepository(db *sqlx.DB) *TermRepository {
	return &TermRepository{db: db}
}

// List returns all terms, most recent first.
func (r *TermRepository) List(ctx context.Context) ([]models.Term, error) {
	const query = `SELECT id, name, year, start_date, end_date, created_at FROM terms ORDER BY start_date DESC`
	var terms []models.Term
	if err := r.db.SelectContext(ctx, &terms, query); err != nil {
		return nil, fmt.Errorf("list terms: %w", err)
	}
	return terms, nil
}

// GetByID returns a term by identifier.
func (r *TermRepository) GetByID(ctx context.Context, id string) (*models.Term, error) {
	const query = `SELECT id, name, year, start_date, end_date, created_at FROM terms WHERE id = $1 LIMIT 1`
	var term models.Term
	if err := r.db.GetContext(ctx, &term, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("get term: %w", err)
	}
	return &term, nil
}

// Create inserts a term row.
func (r *TermRepository) Create(ctx context.Context, term *models.Term) error {
	if term.ID == "" {
		term.ID = uuid.NewString()
	}
	if term.CreatedAt.IsZero() {
		term.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO terms (id, name, year, start_date, end_date, created_at) VALUES (:id, :name, :year, :start_date, :end_date, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, term); err != nil {
		return fmt.Errorf("create term: %w", err)
	}
	return nil
}
