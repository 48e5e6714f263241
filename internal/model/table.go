package model

import "time"

// DefaultCapacity is assumed when a table row has no capacity recorded.
const DefaultCapacity = 4

// Table is one physical table placed on the layout grid.
//
// SectionID is the table's home section, fixed at layout-design time.  A nil
// SectionID marks an overflow table: it belongs to no section and may be
// borrowed by any section when that section's own tables are full.
//
// CurrentSection is the section presently credited with the table's
// occupancy.  It normally equals SectionID but diverges while an overflow
// table is borrowed, or when a party is physically relocated while keeping
// its original section credit.
//
// Invariants: IsTaken == false implies CurrentPartySize == 0; IsTaken == true
// implies 0 < CurrentPartySize <= capacity.
type Table struct {
	ID               string     `json:"id"`                 // tables.id
	LayoutID         string     `json:"layout_id"`          // tables.layout_id
	SectionID        *string    `json:"section_id"`         // tables.section_id (nullable, home section)
	CurrentSection   *string    `json:"current_section"`    // tables.current_section (nullable, credited section)
	XPos             int        `json:"x_pos"`              // tables.x_pos (1-based column)
	YPos             int        `json:"y_pos"`              // tables.y_pos (1-based row, 1 = front)
	Name             string     `json:"name"`               // tables.name
	Capacity         int        `json:"capacity"`           // tables.capacity (0 = unset)
	IsTaken          bool       `json:"is_taken"`           // tables.is_taken
	CurrentPartySize int        `json:"current_party_size"` // tables.current_party_size
	AssignedAt       *time.Time `json:"assigned_at"`        // tables.assigned_at (nullable)
}

// IsOverflow reports whether the table has no home section.
func (t *Table) IsOverflow() bool { return t.SectionID == nil }

// HomeSection returns the home section ID and whether one exists.
func (t *Table) HomeSection() (string, bool) {
	if t.SectionID == nil {
		return "", false
	}
	return *t.SectionID, true
}

// EffectiveCapacity resolves the seat count, falling back to DefaultCapacity
// for rows created before the capacity column existed.
func (t *Table) EffectiveCapacity() int {
	if t.Capacity <= 0 {
		return DefaultCapacity
	}
	return t.Capacity
}

// CreditedSection returns the section currently credited with this table's
// occupancy, or "" when the table carries no credit.
func (t *Table) CreditedSection() string {
	if t.CurrentSection == nil {
		return ""
	}
	return *t.CurrentSection
}
