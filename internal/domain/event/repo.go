package event

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Repository interface {
	// Append inserts a new event. It runs on the caller's transaction
	// when one is in the context, so a rolled-back operation leaves no
	// trace in the log.
	Append(ctx context.Context, e *Event) error
	ListByRequest(ctx context.Context, requestID uuid.UUID) ([]*Event, error)
	// ListVisibleSince returns events with id > sinceID on requests the
	// actor participates in: as requester, as the currently assigned
	// nurse, or as a nurse who was assigned at any point (the event log
	// remembers past assignments even after the row moves on). Admins
	// see every event. When more than limit events match, the most
	// recent limit of them are returned, oldest first.
	ListVisibleSince(ctx context.Context, actorID uuid.UUID, isAdmin bool, sinceID int64, limit int) ([]*Event, error)
	// LatestByRequest reports the newest event time per request, used to
	// detect requests whose log has gone quiet.
	LatestByRequest(ctx context.Context) (map[uuid.UUID]time.Time, error)
}

// RequestAccess resolves who may read a request's timeline. Implemented
// by the service request repository; defined here to avoid an import
// cycle.
type RequestAccess interface {
	AccessInfo(ctx context.Context, requestID uuid.UUID) (requesterID uuid.UUID, nurseID *uuid.UUID, err error)
}
