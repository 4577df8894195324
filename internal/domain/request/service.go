package request

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/homereach/dispatch/internal/domain/event"
	"github.com/homereach/dispatch/internal/domain/triage"
	"github.com/homereach/dispatch/internal/domain/worker"
	"github.com/homereach/dispatch/internal/platform/apperr"
	"github.com/homereach/dispatch/internal/platform/auth"
	"github.com/homereach/dispatch/internal/platform/db"
	"github.com/homereach/dispatch/pkg/geo"
)

// NurseDirectory is the slice of the worker repository the lifecycle
// needs: profile lookups and the availability flag. The worker
// repository satisfies it directly.
type NurseDirectory interface {
	GetProfile(ctx context.Context, userID uuid.UUID) (*worker.NurseProfile, error)
	SetAvailability(ctx context.Context, userID uuid.UUID, available bool) error
}

// ReassignmentAuditor records the admin audit entry for a reassignment.
// A nil toNurse means the request was unassigned. Satisfied by the admin
// service.
type ReassignmentAuditor interface {
	RecordReassignment(ctx context.Context, adminID, requestID uuid.UUID, fromNurse, toNurse *uuid.UUID) error
}

type Service struct {
	repo   Repository
	nurses NurseDirectory
	events event.Repository
	audit  ReassignmentAuditor
	tx     db.TxFn
	policy triage.Policy
	now    func() time.Time
}

func NewService(repo Repository, nurses NurseDirectory, events event.Repository, audit ReassignmentAuditor, tx db.TxFn) *Service {
	return &Service{
		repo:   repo,
		nurses: nurses,
		events: events,
		audit:  audit,
		tx:     tx,
		policy: triage.DefaultPolicy(),
		now:    time.Now,
	}
}

// Create opens a new service request and immediately tries to allocate
// the nearest free nurse. Creation, the allocation decision, and the
// events describing both commit in one transaction: a failure leaves
// neither a request nor a dangling assignment.
func (s *Service) Create(ctx context.Context, actor auth.Actor, address string, lat, lng float64) (*ServiceRequest, error) {
	if address == "" {
		return nil, apperr.Validation("address is required")
	}
	if !geo.ValidCoordinates(lat, lng) {
		return nil, apperr.Validation("coordinates out of range: lat=%f lng=%f", lat, lng)
	}

	sr := &ServiceRequest{
		RequesterID: actor.ID,
		Status:      StatusOpen,
		Address:     address,
		Lat:         lat,
		Lng:         lng,
	}

	err := s.tx(ctx, func(ctx context.Context) error {
		if err := s.repo.Create(ctx, sr); err != nil {
			return apperr.Internal("creating service request", err)
		}
		if err := s.appendEvent(ctx, sr.ID, event.TypeCreated, &actor.ID, nil, strPtr(StatusOpen), nil); err != nil {
			return err
		}
		return s.allocate(ctx, sr)
	})
	if err != nil {
		return nil, err
	}
	return sr, nil
}

// allocate picks the nearest lockable candidate and assigns them. With
// no candidates the request simply stays open; that fact is recorded so
// dispatchers can see requests that found nobody.
func (s *Service) allocate(ctx context.Context, sr *ServiceRequest) error {
	candidates, err := s.repo.LockCandidates(ctx)
	if err != nil {
		return apperr.Internal("locking allocation candidates", err)
	}
	if len(candidates) == 0 {
		return s.appendEvent(ctx, sr.ID, event.TypeAllocationEmpty, nil, nil, nil, nil)
	}

	best := candidates[0]
	bestDist := geo.Haversine(sr.Lat, sr.Lng, best.Lat, best.Lng)
	for _, c := range candidates[1:] {
		d := geo.Haversine(sr.Lat, sr.Lng, c.Lat, c.Lng)
		// Lexicographic id break keeps equal distances deterministic.
		if d < bestDist || (d == bestDist && c.NurseID.String() < best.NurseID.String()) {
			best, bestDist = c, d
		}
	}

	now := s.now()
	prev := sr.Status
	sr.NurseID = &best.NurseID
	sr.Status = StatusAssigned
	sr.AssignedAt = &now
	if err := s.repo.Update(ctx, sr); err != nil {
		return apperr.Internal("assigning nurse", err)
	}

	return s.appendEvent(ctx, sr.ID, event.TypeAssigned, nil, strPtr(prev), strPtr(StatusAssigned), map[string]interface{}{
		"nurse_id":        best.NurseID.String(),
		"distance_meters": bestDist,
	})
}

// Act applies a lifecycle action under the request's row lock. A racer
// that blocked on the lock re-reads the post-commit state, so the losing
// accept of two concurrent ones sees the availability flag already
// consumed and fails with Conflict instead of double-assigning.
func (s *Service) Act(ctx context.Context, actor auth.Actor, requestID uuid.UUID, action Action) (*ServiceRequest, error) {
	if !ValidAction(action) {
		return nil, apperr.Validation("unknown action %q", action)
	}

	var result *ServiceRequest
	err := s.tx(ctx, func(ctx context.Context) error {
		sr, err := s.repo.GetByIDForUpdate(ctx, requestID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return apperr.NotFound("request %s not found", requestID)
			}
			return apperr.Internal("locking service request", err)
		}

		if err := s.authorize(ctx, actor, sr, action); err != nil {
			return err
		}

		next, ok := Next(sr.Status, action)
		if !ok {
			return apperr.Conflict("action %s is not valid in status %s", action, sr.Status)
		}

		if err := s.apply(ctx, actor, sr, action, next); err != nil {
			return err
		}
		result = sr
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// authorize enforces who may act: the requester cancels, the assigned
// nurse does everything else, and nobody substitutes for either.
func (s *Service) authorize(ctx context.Context, actor auth.Actor, sr *ServiceRequest, action Action) error {
	if action == ActionCancel {
		if actor.ID != sr.RequesterID {
			return apperr.Forbidden("only the requester may cancel")
		}
		return nil
	}

	if sr.NurseID == nil || actor.ID != *sr.NurseID {
		return apperr.Forbidden("only the assigned nurse may %s", action)
	}

	profile, err := s.nurses.GetProfile(ctx, actor.ID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperr.Forbidden("no nurse profile for actor")
		}
		return apperr.Internal("loading nurse profile", err)
	}
	if !profile.Active {
		return apperr.Forbidden("nurse profile is inactive")
	}

	if action == ActionAccept && !profile.Available {
		return apperr.Conflict("nurse is already on a visit")
	}
	return nil
}

func (s *Service) apply(ctx context.Context, actor auth.Actor, sr *ServiceRequest, action Action, next string) error {
	now := s.now()
	prev := sr.Status
	var eventType string
	var metadata map[string]interface{}

	switch action {
	case ActionAccept:
		sr.AcceptedAt = &now
		if sr.AssignedAt == nil {
			sr.AssignedAt = &now
		}
		if err := s.nurses.SetAvailability(ctx, actor.ID, false); err != nil {
			return apperr.Internal("marking nurse busy", err)
		}
		eventType = event.TypeAccepted

	case ActionReject:
		rejected := *sr.NurseID
		sr.NurseID = nil
		sr.RejectedAt = &now
		if err := s.nurses.SetAvailability(ctx, rejected, true); err != nil {
			return apperr.Internal("returning nurse to pool", err)
		}
		eventType = event.TypeRejected
		metadata = map[string]interface{}{"nurse_id": rejected.String()}

	case ActionEnroute:
		sr.EnrouteAt = &now
		eventType = event.TypeEnroute

	case ActionComplete:
		sr.CompletedAt = &now
		if err := s.nurses.SetAvailability(ctx, actor.ID, true); err != nil {
			return apperr.Internal("returning nurse to pool", err)
		}
		eventType = event.TypeCompleted

	case ActionCancel:
		sr.CanceledAt = &now
		// Canceling an accepted visit frees the nurse who had
		// committed to it.
		if sr.NurseID != nil && prev == StatusAccepted {
			if err := s.nurses.SetAvailability(ctx, *sr.NurseID, true); err != nil {
				return apperr.Internal("returning nurse to pool", err)
			}
		}
		eventType = event.TypeCanceled
	}

	sr.Status = next
	if err := s.repo.Update(ctx, sr); err != nil {
		return apperr.Internal("updating service request", err)
	}
	return s.appendEvent(ctx, sr.ID, eventType, &actor.ID, strPtr(prev), strPtr(next), metadata)
}

// Reassign lets an admin point an open or assigned request at a chosen
// nurse, or detach it entirely (nil target puts it back in the open
// pool). The state change, its event, and the admin audit entry commit
// in one transaction.
func (s *Service) Reassign(ctx context.Context, actor auth.Actor, requestID uuid.UUID, targetNurse *uuid.UUID) (*ServiceRequest, error) {
	if !actor.IsAdmin() {
		return nil, apperr.Forbidden("reassignment is admin-only")
	}

	var result *ServiceRequest
	err := s.tx(ctx, func(ctx context.Context) error {
		sr, err := s.repo.GetByIDForUpdate(ctx, requestID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return apperr.NotFound("request %s not found", requestID)
			}
			return apperr.Internal("locking service request", err)
		}

		if sr.Status != StatusOpen && sr.Status != StatusAssigned {
			return apperr.Forbidden("cannot reassign a request in status %s", sr.Status)
		}

		from := sr.NurseID
		next := StatusAssigned
		if targetNurse != nil {
			profile, err := s.nurses.GetProfile(ctx, *targetNurse)
			if err != nil {
				if errors.Is(err, pgx.ErrNoRows) {
					return apperr.Validation("target %s is not a nurse", *targetNurse)
				}
				return apperr.Internal("loading target nurse profile", err)
			}
			if !profile.Active {
				return apperr.Validation("target nurse %s is inactive", *targetNurse)
			}
			if from != nil && *from == *targetNurse {
				return apperr.Conflict("request is already assigned to nurse %s", *targetNurse)
			}
		} else {
			if from == nil {
				return apperr.Conflict("request %s has no nurse to unassign", requestID)
			}
			next = StatusOpen
		}

		now := s.now()
		prev := sr.Status
		sr.NurseID = targetNurse
		sr.Status = next
		if targetNurse != nil {
			sr.AssignedAt = &now
		}
		if err := s.repo.Update(ctx, sr); err != nil {
			return apperr.Internal("reassigning request", err)
		}

		metadata := map[string]interface{}{}
		if targetNurse != nil {
			metadata["to_nurse_id"] = targetNurse.String()
		}
		if from != nil {
			metadata["from_nurse_id"] = from.String()
		}
		if err := s.appendEvent(ctx, sr.ID, event.TypeReassigned, &actor.ID, strPtr(prev), strPtr(next), metadata); err != nil {
			return err
		}

		if err := s.audit.RecordReassignment(ctx, actor.ID, sr.ID, from, targetNurse); err != nil {
			return apperr.Internal("recording reassignment audit", err)
		}
		result = sr
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Get returns a request to its participants and to admins.
func (s *Service) Get(ctx context.Context, actor auth.Actor, requestID uuid.UUID) (*ServiceRequest, error) {
	sr, err := s.repo.GetByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("request %s not found", requestID)
		}
		return nil, apperr.Internal("loading service request", err)
	}
	if !actor.IsAdmin() && actor.ID != sr.RequesterID && (sr.NurseID == nil || actor.ID != *sr.NurseID) {
		return nil, apperr.Forbidden("not a participant of request %s", requestID)
	}
	return sr, nil
}

func (s *Service) ListByRequester(ctx context.Context, requesterID uuid.UUID, limit, offset int) ([]*ServiceRequest, int, error) {
	items, total, err := s.repo.ListByRequester(ctx, requesterID, limit, offset)
	if err != nil {
		return nil, 0, apperr.Internal("listing requests", err)
	}
	return items, total, nil
}

func (s *Service) ListByNurse(ctx context.Context, nurseID uuid.UUID, limit, offset int) ([]*ServiceRequest, int, error) {
	items, total, err := s.repo.ListByNurse(ctx, nurseID, limit, offset)
	if err != nil {
		return nil, 0, apperr.Internal("listing requests", err)
	}
	return items, total, nil
}

// Queue scores every live request and returns them most-urgent first.
// Results carry a masked location hint, never the full address.
func (s *Service) Queue(ctx context.Context) ([]triage.Result, error) {
	active, err := s.repo.ListActive(ctx)
	if err != nil {
		return nil, apperr.Internal("listing active requests", err)
	}
	lastEvent, err := s.events.LatestByRequest(ctx)
	if err != nil {
		return nil, apperr.Internal("loading last event times", err)
	}

	inputs := make([]triage.Input, len(active))
	for i, sr := range active {
		inputs[i] = triage.Input{
			RequestID:   sr.ID,
			Status:      sr.Status,
			NurseID:     sr.NurseID,
			CreatedAt:   sr.CreatedAt,
			LastEventAt: lastEvent[sr.ID],
			Lat:         sr.Lat,
			Lng:         sr.Lng,
		}
	}
	return triage.Rank(s.policy, inputs, s.now()), nil
}

func (s *Service) appendEvent(ctx context.Context, requestID uuid.UUID, eventType string, actorID *uuid.UUID, from, to *string, metadata map[string]interface{}) error {
	err := s.events.Append(ctx, &event.Event{
		RequestID:  requestID,
		EventType:  eventType,
		ActorID:    actorID,
		FromStatus: from,
		ToStatus:   to,
		Metadata:   metadata,
	})
	if err != nil {
		return apperr.Internal("appending request event", err)
	}
	return nil
}

func strPtr(s string) *string { return &s }
