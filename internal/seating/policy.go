// Package seating implements the assignment policy for the front-of-house
// engine: which section is due the next walk-in party, which table that party
// should get, and the counter arithmetic that keeps each section's
// customers_served total consistent with the service ledger.
//
// Everything in this package is a pure function over model values.  Nothing
// here touches the store; callers read current state, ask this package for a
// decision or a delta, and apply the effects themselves.
package seating

import (
	"errors"
	"sort"

	"github.com/tablerhq/tabler/internal/model"
)

// ErrNoSections is returned when a decision needs at least one section and
// none are configured.  Layout setup guarantees this never happens in a
// finished floor plan.
var ErrNoSections = errors.New("no sections configured")

// ErrNoTablesAvailable is returned by AutoAssign when no free table can fit
// the party.  It is reported to the operator, never retried automatically.
var ErrNoTablesAvailable = errors.New("no tables available")

// FilterOptions selects a subset of tables.  All set filters compose by
// logical AND.
type FilterOptions struct {
	// SectionID keeps tables whose home section matches.  Matching is on the
	// home section, not the credited one; a borrowed overflow table still
	// belongs to nobody.
	SectionID string
	// ExcludeSection inverts the SectionID match: keep tables homed anywhere
	// but SectionID.  Used to build the "other sections" table group.
	ExcludeSection bool
	// AvailableOnly drops occupied tables.
	AvailableOnly bool
	// MinCapacity drops tables that seat fewer than this many people.
	MinCapacity int
}

// Filter returns the tables passing every set filter in opts.  The input
// slice is not modified.
func Filter(tables []model.Table, opts FilterOptions) []model.Table {
	out := make([]model.Table, 0, len(tables))
	for _, t := range tables {
		home, hasHome := t.HomeSection()
		if opts.SectionID != "" && !opts.ExcludeSection {
			if !hasHome || home != opts.SectionID {
				continue
			}
		}
		if opts.SectionID != "" && opts.ExcludeSection {
			if hasHome && home == opts.SectionID {
				continue
			}
		}
		if opts.AvailableOnly && t.IsTaken {
			continue
		}
		if opts.MinCapacity > 0 && t.EffectiveCapacity() < opts.MinCapacity {
			continue
		}
		out = append(out, t)
	}
	return out
}

// OptimalSection picks the section most due for the next party: the one with
// the fewest customers served so far, ties broken by the smallest priority
// rank.  On equal rank the earlier section in the slice wins, so callers that
// load sections in rank order get a stable choice.
func OptimalSection(sections []model.Section) (model.Section, error) {
	if len(sections) == 0 {
		return model.Section{}, ErrNoSections
	}
	minServed := sections[0].CustomersServed
	for _, s := range sections[1:] {
		if s.CustomersServed < minServed {
			minServed = s.CustomersServed
		}
	}
	var best model.Section
	first := true
	for _, s := range sections {
		if s.CustomersServed != minServed {
			continue
		}
		if first || s.PriorityRank < best.PriorityRank {
			best = s
			first = false
		}
	}
	return best, nil
}

// SortByPosition orders tables by seating ergonomics: right side of the room
// first (higher x), then closest to the front (lower y).
func SortByPosition(tables []model.Table) {
	sort.SliceStable(tables, func(i, j int) bool {
		if tables[i].XPos != tables[j].XPos {
			return tables[i].XPos > tables[j].XPos
		}
		return tables[i].YPos < tables[j].YPos
	})
}

// sortBySectionThenPosition orders tables homed in optimalID ahead of all
// others, then by position within each group.
func sortBySectionThenPosition(tables []model.Table, optimalID string) {
	sort.SliceStable(tables, func(i, j int) bool {
		iOpt := tables[i].SectionID != nil && *tables[i].SectionID == optimalID
		jOpt := tables[j].SectionID != nil && *tables[j].SectionID == optimalID
		if iOpt != jOpt {
			return iOpt
		}
		if tables[i].XPos != tables[j].XPos {
			return tables[i].XPos > tables[j].XPos
		}
		return tables[i].YPos < tables[j].YPos
	})
}

// Proposal is an assignment suggestion: seat the party at Table and credit
// Section with it.  Nothing is committed until the operator confirms, because
// occupancy may change between proposal and confirmation.
type Proposal struct {
	Table   model.Table   `json:"table"`
	Section model.Section `json:"section"`
}

// AutoAssign proposes the single best table and credited section for a party.
//
// Free tables big enough for the party are split into section-homed and
// overflow tables.  Section-homed tables are preferred: first the best
// positioned free table inside the optimal section, otherwise the best
// positioned free table from any section.  In that fallback the credited
// section stays the optimal one even though the table is borrowed from a
// different section's floor; the borrowed-from section keeps home duty for a
// table it gets no credit for.  That matches long-standing floor practice and
// is kept on purpose rather than rebalanced here.  Only when every
// section-homed table is unusable do overflow tables come into play, again
// best position first, credited to the optimal section.
func AutoAssign(partySize int, tables []model.Table, sections []model.Section) (Proposal, error) {
	available := Filter(tables, FilterOptions{AvailableOnly: true, MinCapacity: partySize})

	var sectionTables, overflowTables []model.Table
	for _, t := range available {
		if t.IsOverflow() {
			overflowTables = append(overflowTables, t)
		} else {
			sectionTables = append(sectionTables, t)
		}
	}

	switch {
	case len(sectionTables) > 0:
		optimal, err := OptimalSection(sections)
		if err != nil {
			return Proposal{}, err
		}
		inOptimal := Filter(sectionTables, FilterOptions{SectionID: optimal.ID})
		if len(inOptimal) > 0 {
			SortByPosition(inOptimal)
			return Proposal{Table: inOptimal[0], Section: optimal}, nil
		}
		// Optimal section has nothing free that fits; borrow the best
		// positioned table from any section.
		sortBySectionThenPosition(sectionTables, optimal.ID)
		return Proposal{Table: sectionTables[0], Section: optimal}, nil

	case len(overflowTables) > 0:
		optimal, err := OptimalSection(sections)
		if err != nil {
			return Proposal{}, err
		}
		SortByPosition(overflowTables)
		return Proposal{Table: overflowTables[0], Section: optimal}, nil

	default:
		return Proposal{}, ErrNoTablesAvailable
	}
}
