package seating

import (
	"errors"
	"time"

	"github.com/tablerhq/tabler/internal/model"
)

// ErrCapacityExceeded rejects a seating whose party is larger than the table.
var ErrCapacityExceeded = errors.New("table capacity exceeded")

// ErrAlreadyOccupied rejects a seating at a table that filled up between
// proposal and confirmation.
var ErrAlreadyOccupied = errors.New("table already occupied")

// ErrNotOccupied rejects completing or moving a table nobody is sitting at.
var ErrNotOccupied = errors.New("table is not occupied")

// ErrInvalidPartySize rejects party sizes below one.
var ErrInvalidPartySize = errors.New("party size must be at least 1")

// ValidateSeat checks the FREE -> OCCUPIED preconditions against the table's
// current state.  Callers re-run this inside the commit transaction so that a
// proposal gone stale is rejected rather than double-seated.
func ValidateSeat(t model.Table, partySize int) error {
	if partySize < 1 {
		return ErrInvalidPartySize
	}
	if partySize > t.EffectiveCapacity() {
		return ErrCapacityExceeded
	}
	if t.IsTaken {
		return ErrAlreadyOccupied
	}
	return nil
}

// ValidateRelease checks the OCCUPIED -> FREE precondition: completing or
// moving a service only makes sense at a table somebody is sitting at.
func ValidateRelease(t model.Table) error {
	if !t.IsTaken {
		return ErrNotOccupied
	}
	return nil
}

// Occupy returns the table as it looks after seating a party of partySize
// credited to sectionID.  Pure: the input is copied, not mutated.
func Occupy(t model.Table, sectionID string, partySize int, at time.Time) model.Table {
	t.IsTaken = true
	t.CurrentPartySize = partySize
	t.CurrentSection = &sectionID
	t.AssignedAt = &at
	return t
}

// Release returns the table as it looks after its party leaves.  An overflow
// table also gives back its borrowed section credit; a section-homed table
// keeps pointing at its credited section so the grid still shows whose floor
// it is.
func Release(t model.Table) model.Table {
	t.IsTaken = false
	t.CurrentPartySize = 0
	if t.IsOverflow() {
		t.CurrentSection = nil
	}
	return t
}
