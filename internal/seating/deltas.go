package seating

// CounterDelta is one pending adjustment to a section's customers_served
// total.  Deltas are computed here and applied by the caller, floored at zero
// via ApplyFloor, inside the same unit of work as the table and ledger writes.
type CounterDelta struct {
	SectionID string
	Delta     int
}

// SeatDelta credits a brand new seating to its section.
func SeatDelta(sectionID string, partySize int) CounterDelta {
	return CounterDelta{SectionID: sectionID, Delta: partySize}
}

// TransferDeltas computes the counter adjustments implied by a service whose
// credited section and/or party size changed: a move, or a corrective edit of
// a ledger entry.
//
// Same section: one delta of newSize-oldSize (nil when nothing changed).
// Different sections: -oldSize on the old section, +newSize on the new one.
// When either side is unknown no adjustment is made at all; credit cannot be
// transferred to or from nowhere.
func TransferDeltas(oldSectionID string, oldSize int, newSectionID string, newSize int) []CounterDelta {
	if oldSectionID == "" || newSectionID == "" {
		return nil
	}
	if oldSectionID == newSectionID {
		diff := newSize - oldSize
		if diff == 0 {
			return nil
		}
		return []CounterDelta{{SectionID: oldSectionID, Delta: diff}}
	}
	return []CounterDelta{
		{SectionID: oldSectionID, Delta: -oldSize},
		{SectionID: newSectionID, Delta: newSize},
	}
}

// DeleteDelta reverses a ledger entry's contribution when the entry itself is
// removed from history.
func DeleteDelta(sectionID string, partySize int) CounterDelta {
	return CounterDelta{SectionID: sectionID, Delta: -partySize}
}

// ApplyFloor applies a delta to a running total without letting it go
// negative.  Out-of-order corrections can otherwise push a section below
// zero, and the ledger must never imply negative customers served.
func ApplyFloor(current, delta int) int {
	v := current + delta
	if v < 0 {
		return 0
	}
	return v
}
