package request

import (
	"time"

	"github.com/google/uuid"
)

// Service request statuses. Completed and canceled are terminal.
// Rejected is part of the status vocabulary and schema but no lifecycle
// transition produces it: a rejected assignment returns the request to
// open, recording the decline as an event plus rejected_at.
const (
	StatusOpen      = "open"
	StatusAssigned  = "assigned"
	StatusAccepted  = "accepted"
	StatusRejected  = "rejected"
	StatusEnroute   = "enroute"
	StatusCompleted = "completed"
	StatusCanceled  = "canceled"
)

// ServiceRequest maps to the service_request table. The row is the
// single source of truth for the visit lifecycle; every transition
// happens under a row lock.
type ServiceRequest struct {
	ID          uuid.UUID  `db:"id" json:"id"`
	RequesterID uuid.UUID  `db:"requester_id" json:"requester_id"`
	NurseID     *uuid.UUID `db:"nurse_id" json:"nurse_id,omitempty"`
	Status      string     `db:"status" json:"status"`
	Address     string     `db:"address" json:"address"`
	Lat         float64    `db:"lat" json:"lat"`
	Lng         float64    `db:"lng" json:"lng"`
	AssignedAt  *time.Time `db:"assigned_at" json:"assigned_at,omitempty"`
	AcceptedAt  *time.Time `db:"accepted_at" json:"accepted_at,omitempty"`
	EnrouteAt   *time.Time `db:"enroute_at" json:"enroute_at,omitempty"`
	CompletedAt *time.Time `db:"completed_at" json:"completed_at,omitempty"`
	CanceledAt  *time.Time `db:"canceled_at" json:"canceled_at,omitempty"`
	RejectedAt  *time.Time `db:"rejected_at" json:"rejected_at,omitempty"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updated_at"`
}

// Terminal reports whether the request can no longer change state.
func (r *ServiceRequest) Terminal() bool {
	return r.Status == StatusCompleted || r.Status == StatusCanceled
}

// Candidate is a nurse considered during allocation: available, active,
// with a known location, and row-locked for the deciding transaction.
type Candidate struct {
	NurseID uuid.UUID
	Lat     float64
	Lng     float64
}
