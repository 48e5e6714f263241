package model

import "time"

// Layout represents the floor plan of a restaurant: a rectangular grid of
// width x height cells owned by one operator.  Sections and tables are
// positioned inside this grid.  The seating engine treats a layout as
// immutable; editing the grid is a setup-time concern.
//
// Fields:
//  ID          – primary key identifier.
//  OwnerUserID – user ID of the operator who owns this layout.
//  Name        – display name of the floor plan.
//  Description – optional free-form description.
//  Width       – number of grid columns.
//  Height      – number of grid rows.
//  CreatedAt   – timestamp when the layout was created.
//  UpdatedAt   – timestamp of last update.
type Layout struct {
	ID          string    `json:"id"`           // layouts.id
	OwnerUserID string    `json:"owner_user_id"` // layouts.owner_user_id
	Name        string    `json:"name"`         // layouts.name
	Description *string   `json:"description"`  // layouts.description (nullable)
	Width       int       `json:"width"`        // layouts.width
	Height      int       `json:"height"`       // layouts.height
	CreatedAt   time.Time `json:"created_at"`   // layouts.created_at
	UpdatedAt   time.Time `json:"updated_at"`   // layouts.updated_at
}
