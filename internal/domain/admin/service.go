package admin

import (
	"context"

	"github.com/google/uuid"

	"github.com/homereach/dispatch/internal/platform/apperr"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// RecordReassignment writes the audit entry for an admin reassignment.
// A nil toNurse records an unassignment. Runs on the caller's
// transaction so the entry commits atomically with the reassignment
// itself.
func (s *Service) RecordReassignment(ctx context.Context, adminID, requestID uuid.UUID, fromNurse, toNurse *uuid.UUID) error {
	details := map[string]interface{}{}
	if toNurse != nil {
		details["to_nurse_id"] = toNurse.String()
	}
	if fromNurse != nil {
		details["from_nurse_id"] = fromNurse.String()
	}
	return s.repo.Append(ctx, &AuditLog{
		ActorID:    adminID,
		Action:     ActionReassignRequest,
		TargetType: TargetServiceRequest,
		TargetID:   requestID,
		Details:    details,
	})
}

// RecordAvailabilityOverride writes the audit entry for an admin
// changing another nurse's availability flag. Satisfies the worker
// package's AuditRecorder.
func (s *Service) RecordAvailabilityOverride(ctx context.Context, adminID, nurseID uuid.UUID, available bool) error {
	return s.repo.Append(ctx, &AuditLog{
		ActorID:    adminID,
		Action:     ActionOverrideAvailability,
		TargetType: TargetNurseProfile,
		TargetID:   nurseID,
		Details: map[string]interface{}{
			"available": available,
		},
	})
}

func (s *Service) ListAuditLog(ctx context.Context, action string, limit, offset int) ([]*AuditLog, int, error) {
	items, total, err := s.repo.List(ctx, action, limit, offset)
	if err != nil {
		return nil, 0, apperr.Internal("listing audit log", err)
	}
	return items, total, nil
}
