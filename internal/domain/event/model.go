package event

import (
	"time"

	"github.com/google/uuid"
)

// Event types recorded against a service request. The log is append-only:
// rows are never updated or deleted.
const (
	TypeCreated         = "created"
	TypeAssigned        = "assigned"
	TypeAccepted        = "accepted"
	TypeRejected        = "rejected"
	TypeEnroute         = "enroute"
	TypeCompleted       = "completed"
	TypeCanceled        = "canceled"
	TypeReassigned      = "reassigned"
	TypeAllocationEmpty = "allocation_empty"
)

// Event maps to the request_event table. One row per state change on a
// service request; ActorID is nil for system-generated events.
type Event struct {
	ID         int64                  `db:"id" json:"id"`
	RequestID  uuid.UUID              `db:"request_id" json:"request_id"`
	EventType  string                 `db:"event_type" json:"event_type"`
	ActorID    *uuid.UUID             `db:"actor_id" json:"actor_id,omitempty"`
	FromStatus *string                `db:"from_status" json:"from_status,omitempty"`
	ToStatus   *string                `db:"to_status" json:"to_status,omitempty"`
	Metadata   map[string]interface{} `db:"metadata" json:"metadata,omitempty"`
	CreatedAt  time.Time              `db:"created_at" json:"created_at"`
}
