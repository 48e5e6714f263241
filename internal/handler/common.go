package handler

// Shared helpers for the seating handlers.  Every protected route runs behind
// the JWTAuth middleware, which stores the operator's id in the context under
// "user_id"; getUserID pulls it back out.

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/tablerhq/tabler/internal/model"
	"github.com/tablerhq/tabler/internal/repository"
	"github.com/tablerhq/tabler/internal/seating"
)

// getUserID extracts the authenticated operator id from the Echo context.
func getUserID(c echo.Context) (string, error) {
	if s, ok := c.Get("user_id").(string); ok && s != "" {
		return s, nil
	}
	return "", errors.New("no user in context")
}

// entryTableName resolves the display name recorded on a ledger entry: the
// table's name, or the tail of its id when the table was never named.
func entryTableName(t *model.Table) string {
	if t.Name != "" {
		return t.Name
	}
	if len(t.ID) > 2 {
		return t.ID[len(t.ID)-2:]
	}
	return t.ID
}

// newEntryID builds a ledger entry id of the form "<tableID>-<unix millis>",
// so entries for one table sort naturally by creation time.
func newEntryID(tableID string, at time.Time) string {
	return fmt.Sprintf("%s-%d", tableID, at.UnixMilli())
}

// applySectionDeltas adjusts customers_served for each delta inside tx.  The
// current value is read under a row lock and the adjusted value is floored at
// zero before writing, so no sequence of corrections drives a counter
// negative.
func applySectionDeltas(ctx context.Context, tx *sql.Tx, sections *repository.SectionRepo, deltas []seating.CounterDelta) error {
	for _, d := range deltas {
		s, err := sections.GetForUpdateTx(ctx, tx, d.SectionID)
		if err != nil {
			return err
		}
		if err := sections.SetServedTx(ctx, tx, s.ID, seating.ApplyFloor(s.CustomersServed, d.Delta)); err != nil {
			return err
		}
	}
	return nil
}
