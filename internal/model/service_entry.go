package model

import "time"

// Service entry statuses.  One entry records one discrete seating event; the
// status tracks what eventually happened to that party at that table.
const (
	ServiceActive    = "active"    // party is currently seated
	ServiceCompleted = "completed" // party finished and left
	ServiceMoved     = "moved"     // party was relocated; a newer entry supersedes this one
)

// ServiceEntry is one row of the per-table service ledger.  Entries are
// append-mostly: a seating creates one, a move flips it to "moved" and adds a
// replacement for the destination, and corrections edit it in place.  Section
// totals are reconciled against this ledger whenever an entry changes.
//
// Fields:
//  ID        – ledger key, "<tableID>-<unix millis>" so entries sort naturally.
//  TableID   – table the party was seated at.
//  TableName – display name captured at seating time.
//  SectionID – section credited with this service.
//  PartySize – size of this party alone, not a running total.
//  Timestamp – when the party was seated.
//  IsActive  – true only while Status is "active".
//  Status    – active, completed or moved.
type ServiceEntry struct {
	ID        string    `json:"id"`         // service_history.id
	TableID   string    `json:"table_id"`   // service_history.table_id
	TableName string    `json:"table_name"` // service_history.table_name
	SectionID string    `json:"section_id"` // service_history.section_id
	PartySize int       `json:"party_size"` // service_history.party_size
	Timestamp time.Time `json:"timestamp"`  // service_history.timestamp
	IsActive  bool      `json:"is_active"`  // service_history.is_active
	Status    string    `json:"status"`     // service_history.status
}
