package worker

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Repository interface {
	CreateProfile(ctx context.Context, p *NurseProfile) error
	GetProfile(ctx context.Context, userID uuid.UUID) (*NurseProfile, error)
	ListProfiles(ctx context.Context, limit, offset int) ([]*NurseProfile, int, error)
	SetAvailability(ctx context.Context, userID uuid.UUID, available bool) error
	SetActive(ctx context.Context, userID uuid.UUID, active bool) error

	// UpsertLocationThrottled writes the nurse's location unless the
	// stored row was updated less than minInterval ago. The write and
	// the throttle check are one atomic statement; the returned bool
	// reports whether the write happened. Either way the current stored
	// location is returned.
	UpsertLocationThrottled(ctx context.Context, nurseID uuid.UUID, lat, lng float64, minInterval time.Duration) (*NurseLocation, bool, error)
	GetLocation(ctx context.Context, nurseID uuid.UUID) (*NurseLocation, error)
}
