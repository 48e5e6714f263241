package handler

// This file defines the lifecycle operations on an occupied table: completing
// a service when the party leaves, and moving a party to another table and/or
// section.  Moves are the trickiest transition in the engine; they split into
// four sub-cases depending on what actually changed, and each sub-case
// implies different ledger writes and counter deltas.  All of it happens in
// one transaction per request.

import (
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/tablerhq/tabler/internal/model"
	"github.com/tablerhq/tabler/internal/queue"
	"github.com/tablerhq/tabler/internal/repository"
	"github.com/tablerhq/tabler/internal/seating"
	queue_publisher "github.com/tablerhq/tabler/internal/service"
)

// ServiceHandler groups the repositories needed to complete and move
// services.  All dependencies must be non-nil.
type ServiceHandler struct {
	TableRepo   *repository.TableRepo
	SectionRepo *repository.SectionRepo
	EntryRepo   *repository.ServiceEntryRepo
}

// NewServiceHandler constructs a ServiceHandler.
func NewServiceHandler(tables *repository.TableRepo, sections *repository.SectionRepo, entries *repository.ServiceEntryRepo) *ServiceHandler {
	if tables == nil || sections == nil || entries == nil {
		panic("nil repository passed to NewServiceHandler")
	}
	return &ServiceHandler{TableRepo: tables, SectionRepo: sections, EntryRepo: entries}
}

// Complete handles POST /v1/tables/:id/complete.  The party has left: the
// table goes free, an overflow table gives back its borrowed section, and the
// active ledger entry flips to completed.  The section counter does not move;
// customers_served is cumulative, not a count of who is seated right now.
func (h *ServiceHandler) Complete(c echo.Context) error {
	ownerID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	tableID := c.Param("id")
	ctx := c.Request().Context()

	if _, err := h.TableRepo.GetByIDForOwner(ctx, tableID, ownerID); err != nil {
		if errors.Is(err, repository.ErrTableNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "table not found"})
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

	t, err := h.TableRepo.GetForUpdateTx(ctx, tx, tableID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load table"})
	}
	if err := seating.ValidateRelease(*t); err != nil {
		return c.JSON(http.StatusConflict, echo.Map{"error": err.Error()})
	}

	released := seating.Release(*t)
	if err := h.TableRepo.SetOccupancyTx(ctx, tx, released.ID, false, 0, released.CurrentSection, released.AssignedAt); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to update table"})
	}
	if err := h.EntryRepo.MarkCompletedTx(ctx, tx, tableID); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to update service history"})
	}

	if err := tx.Commit(); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to commit completion"})
	}
	committed = true

	if err := queue_publisher.PublishSeatingEvent(ctx, queue.SeatingEvent{
		Type:       queue.EventServiceCompleted,
		TableID:    t.ID,
		TableName:  entryTableName(t),
		SectionID:  t.CreditedSection(),
		PartySize:  t.CurrentPartySize,
		OccurredAt: time.Now().UTC().Format(time.RFC3339),
	}); err != nil {
		log.Printf("service: publish completed event failed: %v", err)
	}

	return c.JSON(http.StatusOK, echo.Map{"table": released})
}

// Move handles POST /v1/tables/:id/move.  It relocates the party seated at
// the source table to a target table and/or section.  The optional
// keep_original_section flag pins the credited section to the source's
// current one, so a party can change chairs without losing its section's
// fairness credit; new_party_size corrects the head count in the same step.
//
// Whatever the sub-case, the ledger keeps both halves of the move: the
// source's active entry flips to moved and a fresh active entry is written
// for the destination.  Counters adjust only by the difference the move
// implies; a pure table swap with the same section and size moves no credit
// at all.
func (h *ServiceHandler) Move(c echo.Context) error {
	ownerID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	sourceID := c.Param("id")
	var body struct {
		TargetTableID       string `json:"target_table_id"`
		TargetSectionID     string `json:"target_section_id"`
		KeepOriginalSection bool   `json:"keep_original_section"`
		NewPartySize        *int   `json:"new_party_size"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if body.TargetTableID == "" {
		body.TargetTableID = sourceID // section/size change in place
	}
	ctx := c.Request().Context()

	if _, err := h.TableRepo.GetByIDForOwner(ctx, sourceID, ownerID); err != nil {
		if errors.Is(err, repository.ErrTableNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "table not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if body.TargetTableID != sourceID {
		if _, err := h.TableRepo.GetByIDForOwner(ctx, body.TargetTableID, ownerID); err != nil {
			if errors.Is(err, repository.ErrTableNotFound) {
				return c.JSON(http.StatusNotFound, echo.Map{"error": "target table not found"})
			}
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
		}
	}
	if body.TargetSectionID != "" {
		if _, err := h.SectionRepo.GetByIDForOwner(ctx, body.TargetSectionID, ownerID); err != nil {
			if errors.Is(err, repository.ErrSectionNotFound) {
				return c.JSON(http.StatusNotFound, echo.Map{"error": "target section not found"})
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

	src, err := h.TableRepo.GetForUpdateTx(ctx, tx, sourceID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load table"})
	}
	if err := seating.ValidateRelease(*src); err != nil {
		return c.JSON(http.StatusConflict, echo.Map{"error": err.Error()})
	}

	finalSize := src.CurrentPartySize
	if body.NewPartySize != nil {
		finalSize = *body.NewPartySize
	}
	if finalSize < 1 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "party size must be at least 1"})
	}

	// keep_original_section wins over the requested target section.
	finalSection := body.TargetSectionID
	if body.KeepOriginalSection && src.CurrentSection != nil {
		finalSection = *src.CurrentSection
	}
	if finalSection == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "target_section_id is required"})
	}

	oldSection := src.CreditedSection()
	oldSize := src.CurrentPartySize
	now := time.Now().UTC()

	var moved model.Table
	if body.TargetTableID == sourceID {
		// In-place change of section and/or size on the same table.
		if oldSection == finalSection && oldSize == finalSize {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "nothing to change"})
		}
		if finalSize > src.EffectiveCapacity() {
			return c.JSON(http.StatusConflict, echo.Map{"error": "table capacity exceeded", "capacity": src.EffectiveCapacity()})
		}
		if oldSection != finalSection {
			if err := h.TableRepo.SetCurrentSectionTx(ctx, tx, src.ID, &finalSection); err != nil {
				return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to update table"})
			}
		}
		if oldSize != finalSize {
			if err := h.TableRepo.SetPartySizeTx(ctx, tx, src.ID, finalSize); err != nil {
				return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to update table"})
			}
		}
		moved = *src
		moved.CurrentSection = &finalSection
		moved.CurrentPartySize = finalSize
	} else {
		// Physical relocation: free the source, occupy the target.
		tgt, err := h.TableRepo.GetForUpdateTx(ctx, tx, body.TargetTableID)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load table"})
		}
		if tgt.IsTaken {
			return c.JSON(http.StatusConflict, echo.Map{"error": "target table already occupied"})
		}
		if finalSize > tgt.EffectiveCapacity() {
			return c.JSON(http.StatusConflict, echo.Map{"error": "table capacity exceeded", "capacity": tgt.EffectiveCapacity()})
		}
		released := seating.Release(*src)
		if err := h.TableRepo.SetOccupancyTx(ctx, tx, released.ID, false, 0, released.CurrentSection, released.AssignedAt); err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to update source table"})
		}
		moved = seating.Occupy(*tgt, finalSection, finalSize, now)
		if err := h.TableRepo.SetOccupancyTx(ctx, tx, moved.ID, true, moved.CurrentPartySize, moved.CurrentSection, moved.AssignedAt); err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to update target table"})
		}
	}

	// Ledger: supersede the source entry, append one for the destination.
	if err := h.EntryRepo.MarkMovedTx(ctx, tx, sourceID); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to update service history"})
	}
	entry := model.ServiceEntry{
		ID:        newEntryID(moved.ID, now),
		TableID:   moved.ID,
		TableName: entryTableName(&moved),
		SectionID: finalSection,
		PartySize: finalSize,
		Timestamp: now,
		IsActive:  true,
		Status:    model.ServiceActive,
	}
	if err := h.EntryRepo.InsertTx(ctx, tx, entry); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to record service"})
	}

	deltas := seating.TransferDeltas(oldSection, oldSize, finalSection, finalSize)
	if err := applySectionDeltas(ctx, tx, h.SectionRepo, deltas); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to update sections"})
	}

	if err := tx.Commit(); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to commit move"})
	}
	committed = true

	if err := queue_publisher.PublishSeatingEvent(ctx, queue.SeatingEvent{
		Type:          queue.EventPartyMoved,
		TableID:       moved.ID,
		TableName:     entry.TableName,
		SectionID:     finalSection,
		PartySize:     finalSize,
		SourceTableID: sourceID,
		OccurredAt:    now.Format(time.RFC3339),
	}); err != nil {
		log.Printf("service: publish moved event failed: %v", err)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"table":    moved,
		"entry_id": entry.ID,
	})
}
