// Package queue defines message payloads exchanged over the message broker
// and the background consumer that applies external floor updates.
package queue

// Seating event types published to the seating.events queue.
const (
	EventPartySeated      = "party.seated"
	EventServiceCompleted = "service.completed"
	EventPartyMoved       = "party.moved"
)

// SeatingEvent is published after a seating change commits. It carries enough
// information for downstream consumers to log, notify, or feed analytics
// without querying the primary database.
type SeatingEvent struct {
	Type          string `json:"type"`
	TableID       string `json:"table_id"`
	TableName     string `json:"table_name"`
	SectionID     string `json:"section_id"`
	PartySize     int    `json:"party_size"`
	SourceTableID string `json:"source_table_id,omitempty"`
	OccurredAt    string `json:"occurred_at"`
}

// TableUpdate is consumed from the table.updates queue. External tools (the
// layout editor, imports) push partial updates; only non-nil fields are
// applied. Kind selects the target record.
type TableUpdate struct {
	Kind             string  `json:"kind"` // "table" or "section"
	ID               string  `json:"id"`
	IsTaken          *bool   `json:"is_taken,omitempty"`
	CurrentPartySize *int    `json:"current_party_size,omitempty"`
	CurrentSection   *string `json:"current_section,omitempty"`
	CustomersServed  *int    `json:"customers_served,omitempty"`
}
