package repository // repository defines data access for layouts

import (
	"context"
	"database/sql"
	"errors"

	"github.com/tablerhq/tabler/internal/model"
)

// ErrLayoutNotFound is returned when a layout lookup yields no rows.
var ErrLayoutNotFound = errors.New("layout not found")

// LayoutRepo provides read access to floor plans.  The seating engine never
// creates or mutates layouts; that belongs to the setup tooling.
type LayoutRepo struct {
	db *sql.DB
}

// NewLayoutRepo constructs a LayoutRepo with the given DB handle.
func NewLayoutRepo(db *sql.DB) *LayoutRepo {
	return &LayoutRepo{db: db}
}

const layoutColumns = `id, owner_user_id, name, description, width, height, created_at, updated_at`

func scanLayout(row *sql.Row) (*model.Layout, error) {
	var l model.Layout
	var desc sql.NullString
	err := row.Scan(&l.ID, &l.OwnerUserID, &l.Name, &desc, &l.Width, &l.Height, &l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrLayoutNotFound
		}
		return nil, err
	}
	if desc.Valid {
		l.Description = &desc.String
	}
	return &l, nil
}

// GetByOwner retrieves the operator's floor plan.  Each operator owns exactly
// one layout once setup has completed.
func (r *LayoutRepo) GetByOwner(ctx context.Context, ownerID string) (*model.Layout, error) {
	q := `SELECT ` + layoutColumns + ` FROM layouts WHERE owner_user_id = ?`
	return scanLayout(r.db.QueryRowContext(ctx, q, ownerID))
}

// GetByIDAndOwner retrieves a layout by id while enforcing ownership.
func (r *LayoutRepo) GetByIDAndOwner(ctx context.Context, id, ownerID string) (*model.Layout, error) {
	q := `SELECT ` + layoutColumns + ` FROM layouts WHERE id = ? AND owner_user_id = ?`
	return scanLayout(r.db.QueryRowContext(ctx, q, id, ownerID))
}
