package models

import "time"

// AuditEntry records an administrative action. Writes are best-effort: an
// audit failure never rolls back the operation it describes.
type AuditEntry struct {
	ID       int64     `json:"id" db:"id"`
	ActorID  int64     `json:"actorId" db:"actor_id"`
	Action   string    `json:"action" db:"action"`
	Entity   string    `json:"entity" db:"entity"`
	EntityID string    `json:"entityId" db:"entity_id"`
	Details  string    `json:"details,omitempty" db:"details"`
	LoggedAt time.Time `json:"loggedAt" db:"logged_at"`
}
