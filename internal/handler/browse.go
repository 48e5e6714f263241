package handler

// Read-only floor views plus the manual counter override.  These back the
// grid the operator stares at all shift, so they are deliberately flat: load,
// group, return.

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/tablerhq/tabler/internal/model"
	"github.com/tablerhq/tabler/internal/repository"
	"github.com/tablerhq/tabler/internal/seating"
)

// BrowseHandler serves layout, table and section views.
type BrowseHandler struct {
	LayoutRepo  *repository.LayoutRepo
	TableRepo   *repository.TableRepo
	SectionRepo *repository.SectionRepo
}

// NewBrowseHandler constructs a BrowseHandler.
func NewBrowseHandler(layouts *repository.LayoutRepo, tables *repository.TableRepo, sections *repository.SectionRepo) *BrowseHandler {
	if layouts == nil || tables == nil || sections == nil {
		panic("nil repository passed to NewBrowseHandler")
	}
	return &BrowseHandler{LayoutRepo: layouts, TableRepo: tables, SectionRepo: sections}
}

// ListTables handles GET /v1/layouts/:id/tables.
func (h *BrowseHandler) ListTables(c echo.Context) error {
	ownerID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	layoutID := c.Param("id")
	ctx := c.Request().Context()

	if _, err := h.LayoutRepo.GetByIDAndOwner(ctx, layoutID, ownerID); err != nil {
		if errors.Is(err, repository.ErrLayoutNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "layout not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	tables, err := h.TableRepo.GetByLayout(ctx, layoutID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load tables"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"items": tables,
		"count": len(tables),
	})
}

// ListSections handles GET /v1/layouts/:id/sections.  Sections come back in
// priority rank order, which is also the rotation's tie-break order.
func (h *BrowseHandler) ListSections(c echo.Context) error {
	ownerID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	layoutID := c.Param("id")
	ctx := c.Request().Context()

	if _, err := h.LayoutRepo.GetByIDAndOwner(ctx, layoutID, ownerID); err != nil {
		if errors.Is(err, repository.ErrLayoutNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "layout not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	sections, err := h.SectionRepo.GetByLayout(ctx, layoutID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load sections"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"items": sections,
		"count": len(sections),
	})
}

// TableGroups handles GET /v1/sections/:id/table-groups.  It splits the floor
// the way the seating picker presents it: the section's own tables first,
// then tables homed in other sections, then overflow tables that belong to
// nobody.
func (h *BrowseHandler) TableGroups(c echo.Context) error {
	ownerID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	sectionID := c.Param("id")
	ctx := c.Request().Context()

	section, err := h.SectionRepo.GetByIDForOwner(ctx, sectionID, ownerID)
	if err != nil {
		if errors.Is(err, repository.ErrSectionNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "section not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	tables, err := h.TableRepo.GetByLayout(ctx, section.LayoutID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load tables"})
	}

	own := seating.Filter(tables, seating.FilterOptions{SectionID: sectionID})
	others := seating.Filter(tables, seating.FilterOptions{SectionID: sectionID, ExcludeSection: true})
	overflow := make([]model.Table, 0)
	kept := others[:0]
	for _, t := range others {
		if t.IsOverflow() {
			overflow = append(overflow, t)
		} else {
			kept = append(kept, t)
		}
	}
	others = kept

	return c.JSON(http.StatusOK, echo.Map{
		"section_tables":       own,
		"other_section_tables": others,
		"overflow_tables":      overflow,
	})
}

// SetSectionCount handles PUT /v1/sections/:id/count, the manual override
// used to reconcile a counter with reality after off-system corrections.
func (h *BrowseHandler) SetSectionCount(c echo.Context) error {
	ownerID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	sectionID := c.Param("id")
	var body struct {
		CustomersServed *int `json:"customers_served"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if body.CustomersServed == nil || *body.CustomersServed < 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "customers_served must be zero or greater"})
	}
	ctx := c.Request().Context()

	section, err := h.SectionRepo.GetByIDForOwner(ctx, sectionID, ownerID)
	if err != nil {
		if errors.Is(err, repository.ErrSectionNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "section not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if err := h.SectionRepo.SetServed(ctx, sectionID, *body.CustomersServed); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to update section"})
	}
	section.CustomersServed = *body.CustomersServed
	return c.JSON(http.StatusOK, echo.Map{"section": section})
}
