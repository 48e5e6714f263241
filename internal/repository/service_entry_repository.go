package repository // repository defines data access for the service ledger

import (
	"context"
	"database/sql"
	"errors"

	"github.com/tablerhq/tabler/internal/model"
)

// ErrEntryNotFound is returned when a ledger lookup yields no rows.
var ErrEntryNotFound = errors.New("service entry not found")

// ServiceEntryRepo provides methods to work with the service_history table.
// The ledger is append-mostly: rows are inserted on seating, flipped to moved
// or completed as the party's status changes, edited in place only as a
// manual correction, and deleted only through the explicit delete action.
type ServiceEntryRepo struct {
	db *sql.DB
}

// NewServiceEntryRepo constructs a ServiceEntryRepo with the given DB handle.
func NewServiceEntryRepo(db *sql.DB) *ServiceEntryRepo {
	return &ServiceEntryRepo{db: db}
}

// DB exposes the underlying handle so handlers can begin transactions.
func (r *ServiceEntryRepo) DB() *sql.DB { return r.db }

// ListByOwner retrieves the operator's full ledger ordered by timestamp
// ascending.  When currentOnly is set, entries with status moved are dropped;
// they represent superseded history and stay out of the current-service view.
func (r *ServiceEntryRepo) ListByOwner(ctx context.Context, ownerID string, currentOnly bool) ([]model.ServiceEntry, error) {
	q := `SELECT h.id, h.table_id, h.table_name, h.section_id, h.party_size, h.timestamp, h.is_active, h.status
	      FROM service_history h
	      JOIN tables t ON t.id = h.table_id
	      JOIN layouts l ON l.id = t.layout_id
	      WHERE l.owner_user_id = ?`
	if currentOnly {
		q += ` AND h.status <> 'moved'`
	}
	q += ` ORDER BY h.timestamp`
	rows, err := r.db.QueryContext(ctx, q, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []model.ServiceEntry
	for rows.Next() {
		var e model.ServiceEntry
		if err := rows.Scan(&e.ID, &e.TableID, &e.TableName, &e.SectionID, &e.PartySize, &e.Timestamp, &e.IsActive, &e.Status); err != nil {
			return nil, err
		}
		result = append(result, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// GetForUpdateTx loads a ledger entry inside tx with a row lock, for edits
// and deletions that must reconcile counters against the entry's old values.
func (r *ServiceEntryRepo) GetForUpdateTx(ctx context.Context, tx *sql.Tx, id string) (*model.ServiceEntry, error) {
	const q = `SELECT id, table_id, table_name, section_id, party_size, timestamp, is_active, status
	           FROM service_history WHERE id = ? FOR UPDATE`
	var e model.ServiceEntry
	err := tx.QueryRowContext(ctx, q, id).
		Scan(&e.ID, &e.TableID, &e.TableName, &e.SectionID, &e.PartySize, &e.Timestamp, &e.IsActive, &e.Status)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrEntryNotFound
		}
		return nil, err
	}
	return &e, nil
}

// GetByIDForOwner retrieves a ledger entry by id while enforcing ownership
// via the entry's table and layout.
func (r *ServiceEntryRepo) GetByIDForOwner(ctx context.Context, id, ownerID string) (*model.ServiceEntry, error) {
	const q = `SELECT h.id, h.table_id, h.table_name, h.section_id, h.party_size, h.timestamp, h.is_active, h.status
	           FROM service_history h
	           JOIN tables t ON t.id = h.table_id
	           JOIN layouts l ON l.id = t.layout_id
	           WHERE h.id = ? AND l.owner_user_id = ?`
	var e model.ServiceEntry
	err := r.db.QueryRowContext(ctx, q, id, ownerID).
		Scan(&e.ID, &e.TableID, &e.TableName, &e.SectionID, &e.PartySize, &e.Timestamp, &e.IsActive, &e.Status)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrEntryNotFound
		}
		return nil, err
	}
	return &e, nil
}

// InsertTx appends a new entry inside tx.
func (r *ServiceEntryRepo) InsertTx(ctx context.Context, tx *sql.Tx, e model.ServiceEntry) error {
	const q = `INSERT INTO service_history (id, table_id, table_name, section_id, party_size, timestamp, is_active, status)
	           VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := tx.ExecContext(ctx, q, e.ID, e.TableID, e.TableName, e.SectionID, e.PartySize, e.Timestamp.UTC(), e.IsActive, e.Status)
	return err
}

// MarkMovedTx flips the currently-active entry for a table to status moved.
// The replacement entry for the destination is inserted separately by the
// caller so the audit trail keeps both halves of the move.
func (r *ServiceEntryRepo) MarkMovedTx(ctx context.Context, tx *sql.Tx, tableID string) error {
	const q = `UPDATE service_history SET is_active = FALSE, status = 'moved'
	           WHERE table_id = ? AND is_active = TRUE`
	_, err := tx.ExecContext(ctx, q, tableID)
	return err
}

// MarkCompletedTx flips the currently-active entry for a table to status
// completed.
func (r *ServiceEntryRepo) MarkCompletedTx(ctx context.Context, tx *sql.Tx, tableID string) error {
	const q = `UPDATE service_history SET is_active = FALSE, status = 'completed'
	           WHERE table_id = ? AND is_active = TRUE`
	_, err := tx.ExecContext(ctx, q, tableID)
	return err
}

// UpdateTx rewrites an entry's correctable fields in place inside tx.  Status
// and timestamp are never edited; corrections change where the party sat and
// how large it was, not when or whether it happened.
func (r *ServiceEntryRepo) UpdateTx(ctx context.Context, tx *sql.Tx, id, tableID, tableName, sectionID string, partySize int) error {
	const q = `UPDATE service_history
	           SET table_id = ?, table_name = ?, section_id = ?, party_size = ?
	           WHERE id = ?`
	_, err := tx.ExecContext(ctx, q, tableID, tableName, sectionID, partySize, id)
	return err
}

// DeleteTx removes an entry inside tx.
func (r *ServiceEntryRepo) DeleteTx(ctx context.Context, tx *sql.Tx, id string) error {
	const q = `DELETE FROM service_history WHERE id = ?`
	res, err := tx.ExecContext(ctx, q, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrEntryNotFound
	}
	return nil
}
