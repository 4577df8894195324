package event

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/homereach/dispatch/internal/platform/apperr"
	"github.com/homereach/dispatch/internal/platform/auth"
)

type requestInfo struct {
	requesterID uuid.UUID
	nurseID     *uuid.UUID
}

type mockAccess struct {
	requests map[uuid.UUID]requestInfo
}

func (m *mockAccess) AccessInfo(_ context.Context, requestID uuid.UUID) (uuid.UUID, *uuid.UUID, error) {
	info, ok := m.requests[requestID]
	if !ok {
		return uuid.Nil, nil, pgx.ErrNoRows
	}
	return info.requesterID, info.nurseID, nil
}

type mockRepo struct {
	events []*Event
	access *mockAccess
	nextID int64
}

func (m *mockRepo) Append(_ context.Context, e *Event) error {
	m.nextID++
	e.ID = m.nextID
	m.events = append(m.events, e)
	return nil
}

func (m *mockRepo) ListByRequest(_ context.Context, requestID uuid.UUID) ([]*Event, error) {
	var out []*Event
	for _, e := range m.events {
		if e.RequestID == requestID {
			out = append(out, e)
		}
	}
	return out, nil
}

// participates mirrors the store's visibility rule: requester, current
// nurse, or any nurse the request's event log ever named.
func (m *mockRepo) participates(requestID, actorID uuid.UUID) bool {
	if info, ok := m.access.requests[requestID]; ok {
		if info.requesterID == actorID || (info.nurseID != nil && *info.nurseID == actorID) {
			return true
		}
	}
	id := actorID.String()
	for _, e := range m.events {
		if e.RequestID != requestID {
			continue
		}
		if e.ActorID != nil && *e.ActorID == actorID {
			return true
		}
		for _, key := range []string{"nurse_id", "to_nurse_id", "from_nurse_id"} {
			if v, ok := e.Metadata[key]; ok && v == id {
				return true
			}
		}
	}
	return false
}

func (m *mockRepo) ListVisibleSince(_ context.Context, actorID uuid.UUID, isAdmin bool, sinceID int64, limit int) ([]*Event, error) {
	var visible []*Event
	for _, e := range m.events {
		if e.ID <= sinceID {
			continue
		}
		if !isAdmin && !m.participates(e.RequestID, actorID) {
			continue
		}
		visible = append(visible, e)
	}
	// Keep the most recent limit events, oldest first.
	if len(visible) > limit {
		visible = visible[len(visible)-limit:]
	}
	return visible, nil
}

func (m *mockRepo) LatestByRequest(_ context.Context) (map[uuid.UUID]time.Time, error) {
	latest := map[uuid.UUID]time.Time{}
	for _, e := range m.events {
		if e.CreatedAt.After(latest[e.RequestID]) {
			latest[e.RequestID] = e.CreatedAt
		}
	}
	return latest, nil
}

func newTestService() (*Service, *mockRepo, *mockAccess) {
	access := &mockAccess{requests: make(map[uuid.UUID]requestInfo)}
	repo := &mockRepo{access: access}
	return NewService(repo, access), repo, access
}

func seedEvent(repo *mockRepo, requestID uuid.UUID, eventType string) *Event {
	e := &Event{RequestID: requestID, EventType: eventType}
	_ = repo.Append(context.Background(), e)
	return e
}

func TestTimeline_RequesterSeesOwnRequest(t *testing.T) {
	svc, repo, access := newTestService()
	requester := uuid.New()
	requestID := uuid.New()
	access.requests[requestID] = requestInfo{requesterID: requester}
	seedEvent(repo, requestID, TypeCreated)
	seedEvent(repo, requestID, TypeAssigned)

	events, err := svc.Timeline(context.Background(), auth.Actor{ID: requester, Role: auth.RolePatient}, requestID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if events[0].EventType != TypeCreated || events[1].EventType != TypeAssigned {
		t.Errorf("events out of order: %s, %s", events[0].EventType, events[1].EventType)
	}
}

func TestTimeline_AssignedNurseSeesRequest(t *testing.T) {
	svc, repo, access := newTestService()
	nurse := uuid.New()
	requestID := uuid.New()
	access.requests[requestID] = requestInfo{requesterID: uuid.New(), nurseID: &nurse}
	seedEvent(repo, requestID, TypeCreated)

	_, err := svc.Timeline(context.Background(), auth.Actor{ID: nurse, Role: auth.RoleNurse}, requestID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestTimeline_StrangerForbidden(t *testing.T) {
	svc, repo, access := newTestService()
	requestID := uuid.New()
	access.requests[requestID] = requestInfo{requesterID: uuid.New()}
	seedEvent(repo, requestID, TypeCreated)

	_, err := svc.Timeline(context.Background(), auth.Actor{ID: uuid.New(), Role: auth.RoleNurse}, requestID)
	if !apperr.IsKind(err, apperr.KindForbidden) {
		t.Fatalf("expected Forbidden, got %v", err)
	}
}

func TestTimeline_AdminSeesEverything(t *testing.T) {
	svc, repo, access := newTestService()
	requestID := uuid.New()
	access.requests[requestID] = requestInfo{requesterID: uuid.New()}
	seedEvent(repo, requestID, TypeCreated)

	events, err := svc.Timeline(context.Background(), auth.Actor{ID: uuid.New(), Role: auth.RoleAdmin}, requestID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
}

func TestTimeline_UnknownRequestNotFound(t *testing.T) {
	svc, _, _ := newTestService()
	_, err := svc.Timeline(context.Background(), auth.Actor{ID: uuid.New(), Role: auth.RoleAdmin}, uuid.New())
	if !apperr.IsKind(err, apperr.KindNotFound) {
		t.Fatalf("expected NotFound, got %v", err)
	}
}

func TestNotifications_FiltersByParticipation(t *testing.T) {
	svc, repo, access := newTestService()
	requester := uuid.New()
	mine := uuid.New()
	theirs := uuid.New()
	access.requests[mine] = requestInfo{requesterID: requester}
	access.requests[theirs] = requestInfo{requesterID: uuid.New()}
	seedEvent(repo, mine, TypeCreated)
	seedEvent(repo, theirs, TypeCreated)
	seedEvent(repo, mine, TypeAssigned)

	events, err := svc.Notifications(context.Background(), auth.Actor{ID: requester, Role: auth.RolePatient}, 0, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 visible events, got %d", len(events))
	}
	for _, e := range events {
		if e.RequestID != mine {
			t.Errorf("leaked event from another request: %+v", e)
		}
	}
}

func TestNotifications_SinceCursorSkipsSeen(t *testing.T) {
	svc, repo, access := newTestService()
	requester := uuid.New()
	requestID := uuid.New()
	access.requests[requestID] = requestInfo{requesterID: requester}
	first := seedEvent(repo, requestID, TypeCreated)
	seedEvent(repo, requestID, TypeAssigned)

	events, err := svc.Notifications(context.Background(), auth.Actor{ID: requester, Role: auth.RolePatient}, first.ID, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected 1 event after cursor, got %d", len(events))
	}
	if events[0].EventType != TypeAssigned {
		t.Errorf("expected assigned event, got %s", events[0].EventType)
	}
}

func TestNotifications_NegativeCursorRejected(t *testing.T) {
	svc, _, _ := newTestService()
	_, err := svc.Notifications(context.Background(), auth.Actor{ID: uuid.New(), Role: auth.RolePatient}, -1, 0)
	if !apperr.IsKind(err, apperr.KindValidation) {
		t.Fatalf("expected Validation, got %v", err)
	}
}

func TestNotifications_LimitClamped(t *testing.T) {
	svc, repo, access := newTestService()
	requester := uuid.New()
	requestID := uuid.New()
	access.requests[requestID] = requestInfo{requesterID: requester}
	for i := 0; i < 5; i++ {
		seedEvent(repo, requestID, TypeCreated)
	}

	events, err := svc.Notifications(context.Background(), auth.Actor{ID: requester, Role: auth.RolePatient}, 0, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("expected 3 events with limit 3, got %d", len(events))
	}
	// The cap keeps the newest events, returned oldest first.
	if events[0].ID != 3 || events[2].ID != 5 {
		t.Errorf("expected events 3..5, got %d..%d", events[0].ID, events[2].ID)
	}
}

// A nurse who was assigned and then rejected (or was reassigned away)
// keeps seeing the request's events: the feed covers requests the actor
// was ever part of, not just current assignments.
func TestNotifications_FormerNurseStillSees(t *testing.T) {
	svc, repo, access := newTestService()
	nurse := uuid.New()
	requestID := uuid.New()
	// Currently back in the pool with no nurse attached.
	access.requests[requestID] = requestInfo{requesterID: uuid.New()}

	seedEvent(repo, requestID, TypeCreated)
	assigned := seedEvent(repo, requestID, TypeAssigned)
	assigned.Metadata = map[string]interface{}{"nurse_id": nurse.String()}
	rejected := seedEvent(repo, requestID, TypeRejected)
	rejected.ActorID = &nurse

	events, err := svc.Notifications(context.Background(), auth.Actor{ID: nurse, Role: auth.RoleNurse}, 0, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("expected 3 events for former nurse, got %d", len(events))
	}
}
