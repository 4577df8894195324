package request

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, r *ServiceRequest) error
	GetByID(ctx context.Context, id uuid.UUID) (*ServiceRequest, error)
	// GetByIDForUpdate blocks on the row lock. Every lifecycle decision
	// reads through this so concurrent actions serialize on the row.
	GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*ServiceRequest, error)
	Update(ctx context.Context, r *ServiceRequest) error
	ListByRequester(ctx context.Context, requesterID uuid.UUID, limit, offset int) ([]*ServiceRequest, int, error)
	ListByNurse(ctx context.Context, nurseID uuid.UUID, limit, offset int) ([]*ServiceRequest, int, error)
	ListActive(ctx context.Context) ([]*ServiceRequest, error)
	CountOpen(ctx context.Context) (int64, error)

	// LockCandidates row-locks every allocatable nurse it can grab
	// without waiting (SKIP LOCKED), so two concurrent allocations
	// never see the same candidate.
	LockCandidates(ctx context.Context) ([]Candidate, error)

	// AccessInfo reports who may read the request's timeline. Satisfies
	// event.RequestAccess.
	AccessInfo(ctx context.Context, requestID uuid.UUID) (requesterID uuid.UUID, nurseID *uuid.UUID, err error)
}
