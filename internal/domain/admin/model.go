package admin

import (
	"time"

	"github.com/google/uuid"
)

// Audit actions written by admin-privileged operations.
const (
	ActionReassignRequest      = "reassign_request"
	ActionOverrideAvailability = "override_availability"
)

// Target types referenced by audit entries.
const (
	TargetServiceRequest = "service_request"
	TargetNurseProfile   = "nurse_profile"
)

// AuditLog maps to the admin_audit_log table. Append-only.
type AuditLog struct {
	ID         int64                  `db:"id" json:"id"`
	ActorID    uuid.UUID              `db:"actor_id" json:"actor_id"`
	Action     string                 `db:"action" json:"action"`
	TargetType string                 `db:"target_type" json:"target_type"`
	TargetID   uuid.UUID              `db:"target_id" json:"target_id"`
	Details    map[string]interface{} `db:"details" json:"details,omitempty"`
	CreatedAt  time.Time              `db:"created_at" json:"created_at"`
}
