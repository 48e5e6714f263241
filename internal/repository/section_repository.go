package repository // repository defines data access for sections

import (
	"context"
	"database/sql"
	"errors"

	"github.com/tablerhq/tabler/internal/model"
)

// ErrSectionNotFound is returned when a section lookup yields no rows.
var ErrSectionNotFound = errors.New("section not found")

// SectionRepo provides methods to work with sections in the database.  The
// customers_served column is the fairness counter the whole rotation hangs
// on, so every write to it goes through this repo and, for multi-step
// operations, through the caller's transaction.
type SectionRepo struct {
	db *sql.DB
}

// NewSectionRepo constructs a SectionRepo with the given DB handle.
func NewSectionRepo(db *sql.DB) *SectionRepo {
	return &SectionRepo{db: db}
}

// DB exposes the underlying handle so handlers can begin transactions.
func (r *SectionRepo) DB() *sql.DB { return r.db }

const sectionColumns = `id, layout_id, name, color, priority_rank, customers_served`

// GetByLayout retrieves all sections of a layout ordered by priority rank,
// the same order the rotation uses for tie-breaking.
func (r *SectionRepo) GetByLayout(ctx context.Context, layoutID string) ([]model.Section, error) {
	q := `SELECT ` + sectionColumns + ` FROM sections WHERE layout_id = ? ORDER BY priority_rank, id`
	rows, err := r.db.QueryContext(ctx, q, layoutID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []model.Section
	for rows.Next() {
		var s model.Section
		if err := rows.Scan(&s.ID, &s.LayoutID, &s.Name, &s.Color, &s.PriorityRank, &s.CustomersServed); err != nil {
			return nil, err
		}
		result = append(result, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// GetByIDForOwner retrieves a section by id while enforcing ownership via
// layouts.
func (r *SectionRepo) GetByIDForOwner(ctx context.Context, id, ownerID string) (*model.Section, error) {
	const q = `SELECT s.id, s.layout_id, s.name, s.color, s.priority_rank, s.customers_served
	           FROM sections s
	           JOIN layouts l ON l.id = s.layout_id
	           WHERE s.id = ? AND l.owner_user_id = ?`
	var s model.Section
	err := r.db.QueryRowContext(ctx, q, id, ownerID).
		Scan(&s.ID, &s.LayoutID, &s.Name, &s.Color, &s.PriorityRank, &s.CustomersServed)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSectionNotFound
		}
		return nil, err
	}
	return &s, nil
}

// GetForUpdateTx loads a section inside tx with a row lock, so that counter
// adjustments read and write customers_served atomically.
func (r *SectionRepo) GetForUpdateTx(ctx context.Context, tx *sql.Tx, id string) (*model.Section, error) {
	q := `SELECT ` + sectionColumns + ` FROM sections WHERE id = ? FOR UPDATE`
	var s model.Section
	err := tx.QueryRowContext(ctx, q, id).
		Scan(&s.ID, &s.LayoutID, &s.Name, &s.Color, &s.PriorityRank, &s.CustomersServed)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSectionNotFound
		}
		return nil, err
	}
	return &s, nil
}

// SetServedTx writes an already-clamped customers_served value inside tx.
func (r *SectionRepo) SetServedTx(ctx context.Context, tx *sql.Tx, id string, served int) error {
	const q = `UPDATE sections SET customers_served = ? WHERE id = ?`
	_, err := tx.ExecContext(ctx, q, served, id)
	return err
}

// SetServed overwrites a section's counter outside any transaction.  This is
// the manual override escape hatch; callers must have verified ownership
// first via GetByIDForOwner.
func (r *SectionRepo) SetServed(ctx context.Context, id string, served int) error {
	const q = `UPDATE sections SET customers_served = ? WHERE id = ?`
	_, err := r.db.ExecContext(ctx, q, served, id)
	return err
}
