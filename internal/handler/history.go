package handler

// Service history endpoints.  The ledger is append-mostly, but operators do
// fix typos after the fact, so entries can be edited and deleted.  Edits to
// an entry whose table is still occupied propagate to the live floor; edits
// to a finished entry only correct the record and the counters.

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/tablerhq/tabler/internal/repository"
	"github.com/tablerhq/tabler/internal/seating"
)

// HistoryHandler serves the service history ledger.
type HistoryHandler struct {
	TableRepo   *repository.TableRepo
	SectionRepo *repository.SectionRepo
	EntryRepo   *repository.ServiceEntryRepo
}

// NewHistoryHandler constructs a HistoryHandler.
func NewHistoryHandler(tables *repository.TableRepo, sections *repository.SectionRepo, entries *repository.ServiceEntryRepo) *HistoryHandler {
	if tables == nil || sections == nil || entries == nil {
		panic("nil repository passed to NewHistoryHandler")
	}
	return &HistoryHandler{TableRepo: tables, SectionRepo: sections, EntryRepo: entries}
}

// List handles GET /v1/history.  With ?current=true it hides moved entries,
// which is the view an operator wants during service: one row per party,
// at its latest table.
func (h *HistoryHandler) List(c echo.Context) error {
	ownerID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	currentOnly := c.QueryParam("current") == "true"
	entries, err := h.EntryRepo.ListByOwner(c.Request().Context(), ownerID, currentOnly)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load history"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"items": entries,
		"count": len(entries),
	})
}

// Edit handles PATCH /v1/history/:id.  Omitted fields keep their current
// values.  When the entry's table is still occupied the correction also
// lands on the floor: a table change reseats the party, a section change
// re-credits it, a size change updates the head count.  Counter deltas are
// applied whether or not the service is still live; the ledger and the
// counters must keep agreeing.
func (h *HistoryHandler) Edit(c echo.Context) error {
	ownerID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	entryID := c.Param("id")
	var body struct {
		TableID   *string `json:"table_id"`
		TableName *string `json:"table_name"`
		SectionID *string `json:"section_id"`
		PartySize *int    `json:"party_size"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	ctx := c.Request().Context()

	existing, err := h.EntryRepo.GetByIDForOwner(ctx, entryID, ownerID)
	if err != nil {
		if errors.Is(err, repository.ErrEntryNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "history entry not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}

	newTableID := existing.TableID
	if body.TableID != nil {
		newTableID = *body.TableID
	}
	newSectionID := existing.SectionID
	if body.SectionID != nil {
		newSectionID = *body.SectionID
	}
	newSize := existing.PartySize
	if body.PartySize != nil {
		newSize = *body.PartySize
	}
	if newSize < 1 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "party size must be at least 1"})
	}

	tableChanged := newTableID != existing.TableID
	sectionChanged := newSectionID != existing.SectionID
	sizeChanged := newSize != existing.PartySize

	// New references must belong to the operator before anything is written.
	if tableChanged {
		if _, err := h.TableRepo.GetByIDForOwner(ctx, newTableID, ownerID); err != nil {
			if errors.Is(err, repository.ErrTableNotFound) {
				return c.JSON(http.StatusNotFound, echo.Map{"error": "table not found"})
			}
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
		}
	}
	if sectionChanged {
		if _, err := h.SectionRepo.GetByIDForOwner(ctx, newSectionID, ownerID); err != nil {
			if errors.Is(err, repository.ErrSectionNotFound) {
				return c.JSON(http.StatusNotFound, echo.Map{"error": "section not found"})
			}
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
		}
	}

	tx, err := h.TableRepo.DB().BeginTx(ctx, nil)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to start transaction"})
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	entry, err := h.EntryRepo.GetForUpdateTx(ctx, tx, entryID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load history entry"})
	}

	oldTable, err := h.TableRepo.GetForUpdateTx(ctx, tx, entry.TableID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load table"})
	}

	newName := entry.TableName
	if body.TableName != nil {
		newName = *body.TableName
	}

	// Propagate to the floor only while the entry's service is still live.
	live := entry.IsActive && oldTable.IsTaken
	if live {
		switch {
		case tableChanged:
			newTable, err := h.TableRepo.GetForUpdateTx(ctx, tx, newTableID)
			if err != nil {
				return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load table"})
			}
			if newTable.IsTaken {
				return c.JSON(http.StatusConflict, echo.Map{"error": "target table already occupied"})
			}
			if newSize > newTable.EffectiveCapacity() {
				return c.JSON(http.StatusConflict, echo.Map{"error": "table capacity exceeded", "capacity": newTable.EffectiveCapacity()})
			}
			released := seating.Release(*oldTable)
			if err := h.TableRepo.SetOccupancyTx(ctx, tx, released.ID, false, 0, released.CurrentSection, released.AssignedAt); err != nil {
				return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to update table"})
			}
			occupied := seating.Occupy(*newTable, newSectionID, newSize, entry.Timestamp)
			if err := h.TableRepo.SetOccupancyTx(ctx, tx, occupied.ID, true, occupied.CurrentPartySize, occupied.CurrentSection, occupied.AssignedAt); err != nil {
				return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to update table"})
			}
			if body.TableName == nil {
				newName = entryTableName(newTable)
			}
		case sectionChanged, sizeChanged:
			if sizeChanged && newSize > oldTable.EffectiveCapacity() {
				return c.JSON(http.StatusConflict, echo.Map{"error": "table capacity exceeded", "capacity": oldTable.EffectiveCapacity()})
			}
			if sectionChanged {
				if err := h.TableRepo.SetCurrentSectionTx(ctx, tx, oldTable.ID, &newSectionID); err != nil {
					return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to update table"})
				}
			}
			if sizeChanged {
				if err := h.TableRepo.SetPartySizeTx(ctx, tx, oldTable.ID, newSize); err != nil {
					return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to update table"})
				}
			}
		}
	} else if tableChanged && body.TableName == nil {
		newTable, err := h.TableRepo.GetForUpdateTx(ctx, tx, newTableID)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load table"})
		}
		newName = entryTableName(newTable)
	}

	if err := h.EntryRepo.UpdateTx(ctx, tx, entry.ID, newTableID, newName, newSectionID, newSize); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to update history entry"})
	}

	deltas := seating.TransferDeltas(entry.SectionID, entry.PartySize, newSectionID, newSize)
	if err := applySectionDeltas(ctx, tx, h.SectionRepo, deltas); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to update sections"})
	}

	if err := tx.Commit(); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to commit edit"})
	}
	committed = true

	updated := *entry
	updated.TableID = newTableID
	updated.TableName = newName
	updated.SectionID = newSectionID
	updated.PartySize = newSize
	return c.JSON(http.StatusOK, echo.Map{"entry": updated})
}

// Delete handles DELETE /v1/history/:id.  The entry is removed, the credited
// section gives back the party's count (floored at zero) and, when the
// service was still live, the table goes free.  Responds 204 on success.
func (h *HistoryHandler) Delete(c echo.Context) error {
	ownerID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	entryID := c.Param("id")
	ctx := c.Request().Context()

	if _, err := h.EntryRepo.GetByIDForOwner(ctx, entryID, ownerID); err != nil {
		if errors.Is(err, repository.ErrEntryNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "history entry not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}

	tx, err := h.TableRepo.DB().BeginTx(ctx, nil)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to start transaction"})
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	entry, err := h.EntryRepo.GetForUpdateTx(ctx, tx, entryID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load history entry"})
	}
	if err := h.EntryRepo.DeleteTx(ctx, tx, entry.ID); err != nil {
		if errors.Is(err, repository.ErrEntryNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "history entry not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to delete history entry"})
	}

	// An active entry owned the table's occupancy; deleting it frees the
	// table as if the party had never been seated.
	if entry.IsActive {
		t, err := h.TableRepo.GetForUpdateTx(ctx, tx, entry.TableID)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load table"})
		}
		if t.IsTaken {
			released := seating.Release(*t)
			if err := h.TableRepo.SetOccupancyTx(ctx, tx, released.ID, false, 0, released.CurrentSection, released.AssignedAt); err != nil {
				return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to update table"})
			}
		}
	}

	delta := seating.DeleteDelta(entry.SectionID, entry.PartySize)
	if err := applySectionDeltas(ctx, tx, h.SectionRepo, []seating.CounterDelta{delta}); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to update section"})
	}

	if err := tx.Commit(); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to commit delete"})
	}
	committed = true

	return c.NoContent(http.StatusNoContent)
}
