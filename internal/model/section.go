package model

// Section is a group of tables worked by one server.  Walk-in parties are
// rotated across sections so that everyone gets a fair share of customers.
//
// CustomersServed is a running total of every person ever routed into the
// section, not a count of who is sitting there right now.  It only grows on
// a new seating and shrinks on a corrective edit, move-out or deletion, by
// exactly the party size involved.  It never goes below zero.
//
// PriorityRank breaks ties between equally served sections; a lower rank
// wins the next party.
type Section struct {
	ID              string `json:"id"`               // sections.id
	LayoutID        string `json:"layout_id"`        // sections.layout_id
	Name            string `json:"name"`             // sections.name
	Color           string `json:"color"`            // sections.color (hex, display only)
	PriorityRank    int    `json:"priority_rank"`    // sections.priority_rank
	CustomersServed int    `json:"customers_served"` // sections.customers_served
}
