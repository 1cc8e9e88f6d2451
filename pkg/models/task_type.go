package models

import "time"

// TaskType is a node in the administrative workflow graph. Task instances
// reference a TaskType but never own it; the graph editor is the only writer.
type TaskType struct {
	ID            int64          `json:"id" db:"id"`                   // Unique identifier (PostgreSQL auto-increment)
	Code          string         `json:"code" db:"code"`               // Stable short code (e.g., "ONBOARD")
	Label         string         `json:"label" db:"label"`             // Display name
	Description   string         `json:"description" db:"description"` // Free-form description
	Order         int            `json:"order" db:"sort_order"`        // Ordering index in admin lists
	IsActive      bool           `json:"isActive" db:"is_active"`      // Soft-delete flag
	PositionX     *float64       `json:"positionX" db:"position_x"`    // Nullable until first placed in the graph view
	PositionY     *float64       `json:"positionY" db:"position_y"`    // Nullable until first placed in the graph view
	Questions     []Question     `json:"questions,omitempty"`          // Per-type questionnaire (populated on graph reads)
	OutgoingFlows []TaskTypeFlow `json:"outgoingFlows,omitempty"`      // Outgoing edges (populated on graph reads)
	CreatedAt     time.Time      `json:"createdAt" db:"created_at"`
	UpdatedAt     time.Time      `json:"updatedAt" db:"updated_at"`
}

// NodePosition is a single layout update submitted by the graph editor.
type NodePosition struct {
	ID        int64   `json:"id" validate:"required"`
	PositionX float64 `json:"positionX"`
	PositionY float64 `json:"positionY"`
}
