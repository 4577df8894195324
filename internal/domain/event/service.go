package event

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/homereach/dispatch/internal/platform/apperr"
	"github.com/homereach/dispatch/internal/platform/auth"
)

const (
	defaultNotificationLimit = 50
	maxNotificationLimit     = 200
)

type Service struct {
	repo   Repository
	access RequestAccess
}

func NewService(repo Repository, access RequestAccess) *Service {
	return &Service{repo: repo, access: access}
}

// Timeline returns the full event history for a request, oldest first.
// Visible only to the requester, the currently assigned nurse, and
// admins; everyone else gets Forbidden without learning whether the
// request exists.
func (s *Service) Timeline(ctx context.Context, actor auth.Actor, requestID uuid.UUID) ([]*Event, error) {
	requesterID, nurseID, err := s.access.AccessInfo(ctx, requestID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("request %s not found", requestID)
		}
		return nil, apperr.Internal("loading request access info", err)
	}

	if !actor.IsAdmin() && actor.ID != requesterID && (nurseID == nil || actor.ID != *nurseID) {
		return nil, apperr.Forbidden("not a participant of request %s", requestID)
	}

	events, err := s.repo.ListByRequest(ctx, requestID)
	if err != nil {
		return nil, apperr.Internal("listing request events", err)
	}
	return events, nil
}

// Notifications returns events newer than sinceID on requests the actor
// participates in. The cursor is the event id, so callers can poll with
// the last id they saw and never miss or double-count an event.
func (s *Service) Notifications(ctx context.Context, actor auth.Actor, sinceID int64, limit int) ([]*Event, error) {
	if sinceID < 0 {
		return nil, apperr.Validation("since must be >= 0")
	}
	if limit <= 0 {
		limit = defaultNotificationLimit
	}
	if limit > maxNotificationLimit {
		limit = maxNotificationLimit
	}

	events, err := s.repo.ListVisibleSince(ctx, actor.ID, actor.IsAdmin(), sinceID, limit)
	if err != nil {
		return nil, apperr.Internal("listing notifications", err)
	}
	return events, nil
}
