package worker

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/homereach/dispatch/internal/platform/apperr"
	"github.com/homereach/dispatch/internal/platform/auth"
	"github.com/homereach/dispatch/internal/platform/db"
	"github.com/homereach/dispatch/pkg/geo"
)

// AuditRecorder persists an admin audit entry when an admin overrides a
// nurse's availability. Implemented by the admin service.
type AuditRecorder interface {
	RecordAvailabilityOverride(ctx context.Context, adminID, nurseID uuid.UUID, available bool) error
}

// LocationResult is returned from UpdateLocation. Throttled reports
// whether the write was suppressed by the minimum-interval guard; the
// location is then the previously stored one.
type LocationResult struct {
	Location  *NurseLocation `json:"location"`
	Throttled bool           `json:"throttled"`
}

type Service struct {
	repo     Repository
	audit    AuditRecorder
	tx       db.TxFn
	throttle time.Duration
}

func NewService(repo Repository, audit AuditRecorder, tx db.TxFn, throttle time.Duration) *Service {
	return &Service{repo: repo, audit: audit, tx: tx, throttle: throttle}
}

func (s *Service) RegisterNurse(ctx context.Context, p *NurseProfile) error {
	if p.UserID == uuid.Nil {
		return apperr.Validation("user_id is required")
	}
	if p.FullName == "" {
		return apperr.Validation("full_name is required")
	}
	if p.LicenseNo == "" {
		return apperr.Validation("license_no is required")
	}
	p.Active = true
	p.Available = true

	err := s.tx(ctx, func(ctx context.Context) error {
		return s.repo.CreateProfile(ctx, p)
	})
	if err != nil {
		return apperr.Internal("creating nurse profile", err)
	}
	return nil
}

func (s *Service) GetNurse(ctx context.Context, userID uuid.UUID) (*NurseProfile, error) {
	p, err := s.repo.GetProfile(ctx, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("nurse %s not found", userID)
		}
		return nil, apperr.Internal("loading nurse profile", err)
	}
	return p, nil
}

func (s *Service) ListNurses(ctx context.Context, limit, offset int) ([]*NurseProfile, int, error) {
	items, total, err := s.repo.ListProfiles(ctx, limit, offset)
	if err != nil {
		return nil, 0, apperr.Internal("listing nurse profiles", err)
	}
	return items, total, nil
}

// UpdateAvailability flips a nurse's availability flag. Nurses may only
// change their own flag; admins may override anyone's, which also writes
// an admin audit entry in the same transaction.
func (s *Service) UpdateAvailability(ctx context.Context, actor auth.Actor, nurseID uuid.UUID, available bool) error {
	override := actor.IsAdmin() && actor.ID != nurseID
	if !override && actor.ID != nurseID {
		return apperr.Forbidden("cannot change another nurse's availability")
	}

	return s.tx(ctx, func(ctx context.Context) error {
		p, err := s.repo.GetProfile(ctx, nurseID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return apperr.NotFound("nurse %s not found", nurseID)
			}
			return apperr.Internal("loading nurse profile", err)
		}
		if !p.Active && !actor.IsAdmin() {
			return apperr.Forbidden("nurse profile is inactive")
		}

		if err := s.repo.SetAvailability(ctx, nurseID, available); err != nil {
			return apperr.Internal("updating availability", err)
		}

		if override && s.audit != nil {
			if err := s.audit.RecordAvailabilityOverride(ctx, actor.ID, nurseID, available); err != nil {
				return apperr.Internal("recording availability override", err)
			}
		}
		return nil
	})
}

// SetActive activates or deactivates a nurse profile. Admin only,
// enforced at the route.
func (s *Service) SetActive(ctx context.Context, nurseID uuid.UUID, active bool) error {
	return s.tx(ctx, func(ctx context.Context) error {
		if err := s.repo.SetActive(ctx, nurseID, active); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return apperr.NotFound("nurse %s not found", nurseID)
			}
			return apperr.Internal("updating active flag", err)
		}
		return nil
	})
}

// UpdateLocation persists the nurse's reported position, subject to the
// throttle interval. A throttled report is not an error: the caller
// gets the stored location back with Throttled set.
func (s *Service) UpdateLocation(ctx context.Context, actor auth.Actor, lat, lng float64) (*LocationResult, error) {
	if !geo.ValidCoordinates(lat, lng) {
		return nil, apperr.Validation("coordinates out of range: lat=%f lng=%f", lat, lng)
	}

	p, err := s.repo.GetProfile(ctx, actor.ID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("nurse %s not found", actor.ID)
		}
		return nil, apperr.Internal("loading nurse profile", err)
	}
	if !p.Active {
		return nil, apperr.Forbidden("nurse profile is inactive")
	}

	var result LocationResult
	err = s.tx(ctx, func(ctx context.Context) error {
		loc, updated, err := s.repo.UpsertLocationThrottled(ctx, actor.ID, lat, lng, s.throttle)
		if err != nil {
			return apperr.Internal("upserting nurse location", err)
		}
		result.Location = loc
		result.Throttled = !updated
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}
