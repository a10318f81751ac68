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

// GradingRepository manages grading systems and their scale bands.
type GradingRepository struct {
	db *sqlx.DB
}

// NewGradingRepository constructs the repository.
func NewGradingRepository(db *sqlx.DB) *GradingRepository {
	return &GradingRepository{db: db}
}

// ListSystems returns all grading systems without their bands.
func (r *GradingRepository) ListSystems(ctx context.Context) ([]models.GradingSystem, error) {
	const query = `SELECT id, name, description, is_default, created_at, updated_at FROM grading_systems ORDER BY name`
	var systems []models.GradingSystem
	if err := r.db.SelectContext(ctx, &systems, query); err != nil {
		return nil, fmt.Errorf("list grading systems: %w", err)
	}
	return systems, nil
}

// GetSystem returns one grading system with its bands loaded.
func (r *GradingRepository) GetSystem(ctx context.Context, id string) (*models.GradingSystem, error) {
	const query = `SELECT id, name, description, is_default, created_at, updated_at FROM grading_systems WHERE id = $1 LIMIT 1`
	var system models.GradingSystem
	if err := r.db.GetContext(ctx, &system, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("get grading system: %w", err)
	}
	scales, err := r.ScalesBySystem(ctx, id)
	if err != nil {
		return nil, err
	}
	system.Scales = scales
	return &system, nil
}

// DefaultSystem returns the grading system currently flagged default.
// sql.ErrNoRows signals that no default has been configured yet.
func (r *GradingRepository) DefaultSystem(ctx context.Context) (*models.GradingSystem, error) {
	const query = `SELECT id, name, description, is_default, created_at, updated_at FROM grading_systems WHERE is_default = TRUE LIMIT 1`
	var system models.GradingSystem
	if err := r.db.GetContext(ctx, &system, query); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("default grading system: %w", err)
	}
	return &system, nil
}

// CreateSystem inserts a grading system row.
func (r *GradingRepository) CreateSystem(ctx context.Context, system *models.GradingSystem) error {
	if system.ID == "" {
		system.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if system.CreatedAt.IsZero() {
		system.CreatedAt = now
	}
	system.UpdatedAt = now

	const query = `INSERT INTO grading_systems (id, name, description, is_default, created_at, updated_at)
VALUES (:id, :name, :description, :is_default, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, system); err != nil {
		return fmt.Errorf("create grading system: %w", err)
	}
	return nil
}

// UpdateSystem updates name and description.
func (r *GradingRepository) UpdateSystem(ctx context.Context, system *models.GradingSystem) error {
	system.UpdatedAt = time.Now().UTC()
	const query = `UPDATE grading_systems SET name = :name, description = :description, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, system); err != nil {
		return fmt.Errorf("update grading system: %w", err)
	}
	return nil
}

// SetDefaultSystem atomically moves the default flag to the given system.
// The old flag is cleared and the new one set in one transaction so there
// is never a moment with two defaults.
func (r *GradingRepository) SetDefaultSystem(ctx context.Context, id string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `UPDATE grading_systems SET is_default = FALSE WHERE is_default = TRUE`); err != nil {
		tx.Rollback() //nolint:errcheck
		return fmt.Errorf("clear default grading system: %w", err)
	}
	res, err := tx.ExecContext(ctx, `UPDATE grading_systems SET is_default = TRUE, updated_at = $2 WHERE id = $1`, id, time.Now().UTC())
	if err != nil {
		tx.Rollback() //nolint:errcheck
		return fmt.Errorf("set default grading system: %w", err)
	}
	affected, err := res.RowsAffected()
	if err == nil && affected == 0 {
		tx.Rollback() //nolint:errcheck
		return sql.ErrNoRows
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit default grading system: %w", err)
	}
	return nil
}

// ScalesBySystem returns the bands of one system ordered for resolution.
func (r *GradingRepository) ScalesBySystem(ctx context.Context, systemID string) ([]models.GradeScale, error) {
	const query = `SELECT id, grading_system_id, grade, min_score, max_score, grade_point, remark, color, display_order, created_at
FROM grade_scales WHERE grading_system_id = $1 ORDER BY display_order, min_score`
	var scales []models.GradeScale
	if err := r.db.SelectContext(ctx, &scales, query, systemID); err != nil {
		return nil, fmt.Errorf("list grade scales: %w", err)
	}
	return scales, nil
}

// ReplaceScales swaps the full band set of one system in a transaction.
func (r *GradingRepository) ReplaceScales(ctx context.Context, systemID string, scales []models.GradeScale) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM grade_scales WHERE grading_system_id = $1`, systemID); err != nil {
		tx.Rollback() //nolint:errcheck
		return fmt.Errorf("clear grade scales: %w", err)
	}
	const query = `INSERT INTO grade_scales (id, grading_system_id, grade, min_score, max_score, grade_point, remark, color, display_order, created_at)
VALUES (:id, :grading_system_id, :grade, :min_score, :max_score, :grade_point, :remark, :color, :display_order, :created_at)`
	now := time.Now().UTC()
	for i := range scales {
		scales[i].GradingSystemID = systemID
		if scales[i].ID == "" {
			scales[i].ID = uuid.NewString()
		}
		if scales[i].CreatedAt.IsZero() {
			scales[i].CreatedAt = now
		}
		if _, err := tx.NamedExecContext(ctx, query, scales[i]); err != nil {
			tx.Rollback() //nolint:errcheck
			return fmt.Errorf("insert grade scale: %w", err)
		}
	}
	if _, err := tx.ExecContext(ctx, `UPDATE grading_systems SET updated_at = $2 WHERE id = $1`, systemID, now); err != nil {
		tx.Rollback() //nolint:errcheck
		return fmt.Errorf("touch grading system: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit grade scales: %w", err)
	}
	return nil
}
