package admin

import (
	"context"
	"testing"

	"github.com/google/uuid"
)

type mockRepo struct {
	entries []*AuditLog
	nextID  int64
}

func (m *mockRepo) Append(_ context.Context, entry *AuditLog) error {
	m.nextID++
	entry.ID = m.nextID
	m.entries = append(m.entries, entry)
	return nil
}

func (m *mockRepo) List(_ context.Context, action string, limit, offset int) ([]*AuditLog, int, error) {
	var out []*AuditLog
	for _, e := range m.entries {
		if action == "" || e.Action == action {
			out = append(out, e)
		}
	}
	return out, len(out), nil
}

func TestRecordReassignment_DetailsIncludeBothNurses(t *testing.T) {
	repo := &mockRepo{}
	svc := NewService(repo)

	adminID := uuid.New()
	requestID := uuid.New()
	from := uuid.New()
	to := uuid.New()

	if err := svc.RecordReassignment(context.Background(), adminID, requestID, &from, &to); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(repo.entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(repo.entries))
	}
	entry := repo.entries[0]
	if entry.Action != ActionReassignRequest {
		t.Errorf("action = %q, want %q", entry.Action, ActionReassignRequest)
	}
	if entry.TargetType != TargetServiceRequest || entry.TargetID != requestID {
		t.Errorf("unexpected target: %s %s", entry.TargetType, entry.TargetID)
	}
	if entry.Details["from_nurse_id"] != from.String() {
		t.Errorf("missing from_nurse_id, got %v", entry.Details)
	}
	if entry.Details["to_nurse_id"] != to.String() {
		t.Errorf("missing to_nurse_id, got %v", entry.Details)
	}
}

func TestRecordReassignment_NoPriorNurse(t *testing.T) {
	repo := &mockRepo{}
	svc := NewService(repo)

	to := uuid.New()
	if err := svc.RecordReassignment(context.Background(), uuid.New(), uuid.New(), nil, &to); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	entry := repo.entries[0]
	if _, ok := entry.Details["from_nurse_id"]; ok {
		t.Error("from_nurse_id must be absent when the request was unassigned")
	}
}

func TestRecordReassignment_Unassignment(t *testing.T) {
	repo := &mockRepo{}
	svc := NewService(repo)

	from := uuid.New()
	if err := svc.RecordReassignment(context.Background(), uuid.New(), uuid.New(), &from, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	entry := repo.entries[0]
	if entry.Details["from_nurse_id"] != from.String() {
		t.Errorf("missing from_nurse_id, got %v", entry.Details)
	}
	if _, ok := entry.Details["to_nurse_id"]; ok {
		t.Error("to_nurse_id must be absent when the request was detached")
	}
}

func TestRecordAvailabilityOverride(t *testing.T) {
	repo := &mockRepo{}
	svc := NewService(repo)

	adminID := uuid.New()
	nurseID := uuid.New()
	if err := svc.RecordAvailabilityOverride(context.Background(), adminID, nurseID, false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	entry := repo.entries[0]
	if entry.Action != ActionOverrideAvailability {
		t.Errorf("action = %q, want %q", entry.Action, ActionOverrideAvailability)
	}
	if entry.TargetType != TargetNurseProfile || entry.TargetID != nurseID {
		t.Errorf("unexpected target: %s %s", entry.TargetType, entry.TargetID)
	}
	if entry.Details["available"] != false {
		t.Errorf("unexpected details: %v", entry.Details)
	}
}

func TestListAuditLog_FilterByAction(t *testing.T) {
	repo := &mockRepo{}
	svc := NewService(repo)

	_ = svc.RecordAvailabilityOverride(context.Background(), uuid.New(), uuid.New(), true)
	target := uuid.New()
	_ = svc.RecordReassignment(context.Background(), uuid.New(), uuid.New(), nil, &target)

	items, total, err := svc.ListAuditLog(context.Background(), ActionReassignRequest, 20, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 1 || len(items) != 1 {
		t.Fatalf("expected 1 reassignment entry, got %d", len(items))
	}
	if items[0].Action != ActionReassignRequest {
		t.Errorf("unexpected action: %s", items[0].Action)
	}
}
