package repository // repository defines data access for tables

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/tablerhq/tabler/internal/model"
)

// ErrTableNotFound is returned when a table lookup yields no rows.
var ErrTableNotFound = errors.New("table not found")

// TableRepo provides methods to work with tables in the database.  Occupancy
// writes happen inside the caller's transaction together with the matching
// section counter and ledger writes, so a failed step never leaves a table
// half seated.
type TableRepo struct {
	db *sql.DB
}

// NewTableRepo constructs a TableRepo with the given DB handle.
func NewTableRepo(db *sql.DB) *TableRepo {
	return &TableRepo{db: db}
}

// DB exposes the underlying handle so handlers can begin transactions.
func (r *TableRepo) DB() *sql.DB { return r.db }

const tableColumns = `id, layout_id, section_id, current_section, x_pos, y_pos, name, capacity, is_taken, current_party_size, assigned_at`

func scanTable(scan func(dest ...any) error) (*model.Table, error) {
	var t model.Table
	var sectionID, currentSection sql.NullString
	var assignedAt sql.NullTime
	err := scan(&t.ID, &t.LayoutID, &sectionID, &currentSection, &t.XPos, &t.YPos,
		&t.Name, &t.Capacity, &t.IsTaken, &t.CurrentPartySize, &assignedAt)
	if err != nil {
		return nil, err
	}
	if sectionID.Valid {
		t.SectionID = &sectionID.String
	}
	if currentSection.Valid {
		t.CurrentSection = &currentSection.String
	}
	if assignedAt.Valid {
		at := assignedAt.Time
		t.AssignedAt = &at
	}
	return &t, nil
}

// GetByLayout retrieves all tables of a layout ordered by grid position.
func (r *TableRepo) GetByLayout(ctx context.Context, layoutID string) ([]model.Table, error) {
	q := `SELECT ` + tableColumns + ` FROM tables WHERE layout_id = ? ORDER BY y_pos, x_pos`
	rows, err := r.db.QueryContext(ctx, q, layoutID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []model.Table
	for rows.Next() {
		t, err := scanTable(rows.Scan)
		if err != nil {
			return nil, err
		}
		result = append(result, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// GetByIDForOwner retrieves a table by id while enforcing ownership via
// layouts.
func (r *TableRepo) GetByIDForOwner(ctx context.Context, id, ownerID string) (*model.Table, error) {
	const q = `SELECT t.id, t.layout_id, t.section_id, t.current_section, t.x_pos, t.y_pos,
	                  t.name, t.capacity, t.is_taken, t.current_party_size, t.assigned_at
	           FROM tables t
	           JOIN layouts l ON l.id = t.layout_id
	           WHERE t.id = ? AND l.owner_user_id = ?`
	t, err := scanTable(r.db.QueryRowContext(ctx, q, id, ownerID).Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTableNotFound
		}
		return nil, err
	}
	return t, nil
}

// GetForUpdateTx loads a table inside tx with a row lock.  Seat, complete and
// move all re-read occupancy through this method right before committing
// effects, which is what turns a stale proposal into ErrAlreadyOccupied
// instead of a double seating.
func (r *TableRepo) GetForUpdateTx(ctx context.Context, tx *sql.Tx, id string) (*model.Table, error) {
	q := `SELECT ` + tableColumns + ` FROM tables WHERE id = ? FOR UPDATE`
	t, err := scanTable(tx.QueryRowContext(ctx, q, id).Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTableNotFound
		}
		return nil, err
	}
	return t, nil
}

// SetOccupancyTx writes a table's full occupancy state inside tx: the taken
// flag, party size, credited section and seating timestamp.
func (r *TableRepo) SetOccupancyTx(ctx context.Context, tx *sql.Tx, id string, isTaken bool, partySize int, currentSection *string, assignedAt *time.Time) error {
	const q = `UPDATE tables
	           SET is_taken = ?, current_party_size = ?, current_section = ?, assigned_at = ?
	           WHERE id = ?`
	var section any
	if currentSection != nil {
		section = *currentSection
	}
	var at any
	if assignedAt != nil {
		at = assignedAt.UTC()
	}
	_, err := tx.ExecContext(ctx, q, isTaken, partySize, section, at, id)
	return err
}

// SetCurrentSectionTx re-credits an occupied table to a different section
// without touching the rest of its occupancy state.
func (r *TableRepo) SetCurrentSectionTx(ctx context.Context, tx *sql.Tx, id string, currentSection *string) error {
	const q = `UPDATE tables SET current_section = ? WHERE id = ?`
	var section any
	if currentSection != nil {
		section = *currentSection
	}
	_, err := tx.ExecContext(ctx, q, section, id)
	return err
}

// SetPartySizeTx corrects the live party size of an occupied table.
func (r *TableRepo) SetPartySizeTx(ctx context.Context, tx *sql.Tx, id string, partySize int) error {
	const q = `UPDATE tables SET current_party_size = ? WHERE id = ?`
	_, err := tx.ExecContext(ctx, q, partySize, id)
	return err
}
