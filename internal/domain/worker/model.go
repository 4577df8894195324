package worker

import (
	"time"

	"github.com/google/uuid"
)

// NurseProfile maps to the nurse_profile table. UserID is the identity
// provider's subject; the dispatch core never stores credentials.
type NurseProfile struct {
	UserID         uuid.UUID `db:"user_id" json:"user_id"`
	FullName       string    `db:"full_name" json:"full_name"`
	LicenseNo      string    `db:"license_no" json:"license_no"`
	Specialization *string   `db:"specialization" json:"specialization,omitempty"`
	// Active gates participation entirely; inactive nurses are invisible
	// to allocation and cannot act on requests.
	Active bool `db:"active" json:"active"`
	// Available flips to false while the nurse is on an accepted visit
	// and back to true when the visit ends.
	Available bool      `db:"available" json:"available"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// NurseLocation maps to the nurse_location table, one row per nurse.
type NurseLocation struct {
	NurseID   uuid.UUID `db:"nurse_id" json:"nurse_id"`
	Lat       float64   `db:"lat" json:"lat"`
	Lng       float64   `db:"lng" json:"lng"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}
