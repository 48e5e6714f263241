package handler

// This file defines the walk-in assignment flow: proposing a table and
// section for a party, showing which section is due next, and confirming a
// proposal.  Proposal and confirmation are deliberately separate steps; the
// floor can change while the operator looks at the suggestion, so every
// precondition is re-checked inside the confirm transaction.

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

// AssignmentHandler groups the repositories needed to propose and confirm
// seat assignments.  All dependencies must be non-nil.
type AssignmentHandler struct {
	LayoutRepo  *repository.LayoutRepo
	TableRepo   *repository.TableRepo
	SectionRepo *repository.SectionRepo
	EntryRepo   *repository.ServiceEntryRepo
}

// NewAssignmentHandler constructs an AssignmentHandler.
func NewAssignmentHandler(layouts *repository.LayoutRepo, tables *repository.TableRepo, sections *repository.SectionRepo, entries *repository.ServiceEntryRepo) *AssignmentHandler {
	if layouts == nil || tables == nil || sections == nil || entries == nil {
		panic("nil repository passed to NewAssignmentHandler")
	}
	return &AssignmentHandler{LayoutRepo: layouts, TableRepo: tables, SectionRepo: sections, EntryRepo: entries}
}

// loadFloor reads the operator's layout with its tables and sections.
func (h *AssignmentHandler) loadFloor(c echo.Context, ownerID string) (*model.Layout, []model.Table, []model.Section, error) {
	ctx := c.Request().Context()
	layout, err := h.LayoutRepo.GetByOwner(ctx, ownerID)
	if err != nil {
		return nil, nil, nil, err
	}
	tables, err := h.TableRepo.GetByLayout(ctx, layout.ID)
	if err != nil {
		return nil, nil, nil, err
	}
	sections, err := h.SectionRepo.GetByLayout(ctx, layout.ID)
	if err != nil {
		return nil, nil, nil, err
	}
	return layout, tables, sections, nil
}

// Propose handles POST /v1/assignments/propose.  Given a party size it
// suggests the best table and credited section without touching any state.
// An optional table_id pins the physical table (the operator tapped one on
// the grid) and an optional section_id pins the credited section (strict
// assign mode); either way the rotation fills in whatever was left open.
// Responds 409 when no free table can fit the party.
func (h *AssignmentHandler) Propose(c echo.Context) error {
	ownerID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var body struct {
		PartySize int    `json:"party_size"`
		TableID   string `json:"table_id"`
		SectionID string `json:"section_id"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if body.PartySize < 1 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "party_size must be at least 1"})
	}
	_, tables, sections, err := h.loadFloor(c, ownerID)
	if err != nil {
		if errors.Is(err, repository.ErrLayoutNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "layout not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load floor"})
	}

	// Fully automatic proposal: fairness rotation plus position priority.
	if body.TableID == "" && body.SectionID == "" {
		prop, err := seating.AutoAssign(body.PartySize, tables, sections)
		if err != nil {
			if errors.Is(err, seating.ErrNoTablesAvailable) {
				return c.JSON(http.StatusConflict, echo.Map{"error": "no tables available", "party_size": body.PartySize})
			}
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to propose assignment"})
		}
		return c.JSON(http.StatusOK, prop)
	}

	// Partially pinned proposal.  The credited section is the pinned one, or
	// the rotation's optimal section.
	var target model.Section
	if body.SectionID != "" {
		found := false
		for _, s := range sections {
			if s.ID == body.SectionID {
				target, found = s, true
				break
			}
		}
		if !found {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "section not found"})
		}
	} else {
		target, err = seating.OptimalSection(sections)
		if err != nil {
			return c.JSON(http.StatusConflict, echo.Map{"error": "no sections configured"})
		}
	}

	if body.TableID != "" {
		for _, t := range tables {
			if t.ID == body.TableID {
				return c.JSON(http.StatusOK, seating.Proposal{Table: t, Section: target})
			}
		}
		return c.JSON(http.StatusNotFound, echo.Map{"error": "table not found"})
	}

	// Section pinned, table open: first free table of the section that fits.
	free := seating.Filter(tables, seating.FilterOptions{
		SectionID:     target.ID,
		AvailableOnly: true,
		MinCapacity:   body.PartySize,
	})
	if len(free) == 0 {
		return c.JSON(http.StatusConflict, echo.Map{"error": "no tables available", "party_size": body.PartySize})
	}
	return c.JSON(http.StatusOK, seating.Proposal{Table: free[0], Section: target})
}

// Next handles GET /v1/assignments/next.  It reports which section is due
// the next party, for the "whose turn" banner.
func (h *AssignmentHandler) Next(c echo.Context) error {
	ownerID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	_, _, sections, err := h.loadFloor(c, ownerID)
	if err != nil {
		if errors.Is(err, repository.ErrLayoutNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "layout not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load floor"})
	}
	optimal, err := seating.OptimalSection(sections)
	if err != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "no sections configured"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"section_id":       optimal.ID,
		"name":             optimal.Name,
		"color":            optimal.Color,
		"customers_served": optimal.CustomersServed,
	})
}

// Confirm handles POST /v1/assignments/confirm.  It seats the party: the
// table flips to occupied, a new active ledger entry is appended and the
// credited section's counter grows by the party size, all inside one
// transaction.  Occupancy and capacity are re-validated under a row lock, so
// a proposal that went stale comes back as 409 instead of a double seating.
func (h *AssignmentHandler) Confirm(c echo.Context) error {
	ownerID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var body struct {
		TableID   string `json:"table_id"`
		SectionID string `json:"section_id"`
		PartySize int    `json:"party_size"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if body.TableID == "" || body.SectionID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "table_id and section_id are required"})
	}
	ctx := c.Request().Context()

	// Ownership checks outside the transaction; both must belong to the
	// operator's layout.
	if _, err := h.TableRepo.GetByIDForOwner(ctx, body.TableID, ownerID); err != nil {
		if errors.Is(err, repository.ErrTableNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "table not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	section, err := h.SectionRepo.GetByIDForOwner(ctx, body.SectionID, ownerID)
	if err != nil {
		if errors.Is(err, repository.ErrSectionNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "section not found"})
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

	t, err := h.TableRepo.GetForUpdateTx(ctx, tx, body.TableID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load table"})
	}
	if err := seating.ValidateSeat(*t, body.PartySize); err != nil {
		switch {
		case errors.Is(err, seating.ErrInvalidPartySize):
			return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
		case errors.Is(err, seating.ErrCapacityExceeded):
			return c.JSON(http.StatusConflict, echo.Map{"error": "table capacity exceeded", "capacity": t.EffectiveCapacity()})
		default: // already occupied
			return c.JSON(http.StatusConflict, echo.Map{"error": "table already occupied", "party_size": t.CurrentPartySize})
		}
	}

	now := time.Now().UTC()
	occupied := seating.Occupy(*t, section.ID, body.PartySize, now)
	if err := h.TableRepo.SetOccupancyTx(ctx, tx, occupied.ID, true, occupied.CurrentPartySize, occupied.CurrentSection, occupied.AssignedAt); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to update table"})
	}

	entry := model.ServiceEntry{
		ID:        newEntryID(t.ID, now),
		TableID:   t.ID,
		TableName: entryTableName(t),
		SectionID: section.ID,
		PartySize: body.PartySize,
		Timestamp: now,
		IsActive:  true,
		Status:    model.ServiceActive,
	}
	if err := h.EntryRepo.InsertTx(ctx, tx, entry); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to record service"})
	}

	delta := seating.SeatDelta(section.ID, body.PartySize)
	if err := applySectionDeltas(ctx, tx, h.SectionRepo, []seating.CounterDelta{delta}); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to update section"})
	}

	if err := tx.Commit(); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to commit assignment"})
	}
	committed = true

	// Seating events are best-effort; a broker outage never fails a seating.
	if err := queue_publisher.PublishSeatingEvent(ctx, queue.SeatingEvent{
		Type:       queue.EventPartySeated,
		TableID:    entry.TableID,
		TableName:  entry.TableName,
		SectionID:  entry.SectionID,
		PartySize:  entry.PartySize,
		OccurredAt: now.Format(time.RFC3339),
	}); err != nil {
		log.Printf("assignment: publish seated event failed: %v", err)
	}

	return c.JSON(http.StatusCreated, echo.Map{
		"table":    occupied,
		"entry_id": entry.ID,
	})
}
