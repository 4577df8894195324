package request

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/homereach/dispatch/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

func (r *repoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const requestCols = `id, requester_id, nurse_id, status, address, lat, lng,
	assigned_at, accepted_at, enroute_at, completed_at, canceled_at, rejected_at,
	created_at, updated_at`

func scanRequest(row pgx.Row) (*ServiceRequest, error) {
	var sr ServiceRequest
	err := row.Scan(&sr.ID, &sr.RequesterID, &sr.NurseID, &sr.Status, &sr.Address, &sr.Lat, &sr.Lng,
		&sr.AssignedAt, &sr.AcceptedAt, &sr.EnrouteAt, &sr.CompletedAt, &sr.CanceledAt, &sr.RejectedAt,
		&sr.CreatedAt, &sr.UpdatedAt)
	return &sr, err
}

func (r *repoPG) Create(ctx context.Context, sr *ServiceRequest) error {
	sr.ID = uuid.New()
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO service_request (id, requester_id, status, address, lat, lng)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at`,
		sr.ID, sr.RequesterID, sr.Status, sr.Address, sr.Lat, sr.Lng,
	).Scan(&sr.CreatedAt, &sr.UpdatedAt)
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*ServiceRequest, error) {
	return scanRequest(r.conn(ctx).QueryRow(ctx,
		`SELECT `+requestCols+` FROM service_request WHERE id = $1`, id))
}

func (r *repoPG) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*ServiceRequest, error) {
	return scanRequest(r.conn(ctx).QueryRow(ctx,
		`SELECT `+requestCols+` FROM service_request WHERE id = $1 FOR UPDATE`, id))
}

func (r *repoPG) Update(ctx context.Context, sr *ServiceRequest) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE service_request SET nurse_id=$2, status=$3,
			assigned_at=$4, accepted_at=$5, enroute_at=$6,
			completed_at=$7, canceled_at=$8, rejected_at=$9,
			updated_at=NOW()
		WHERE id = $1`,
		sr.ID, sr.NurseID, sr.Status,
		sr.AssignedAt, sr.AcceptedAt, sr.EnrouteAt,
		sr.CompletedAt, sr.CanceledAt, sr.RejectedAt)
	return err
}

func (r *repoPG) ListByRequester(ctx context.Context, requesterID uuid.UUID, limit, offset int) ([]*ServiceRequest, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM service_request WHERE requester_id = $1`, requesterID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+requestCols+` FROM service_request
		WHERE requester_id = $1
		ORDER BY created_at DESC LIMIT $2 OFFSET $3`, requesterID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	return collect(rows, total)
}

func (r *repoPG) ListByNurse(ctx context.Context, nurseID uuid.UUID, limit, offset int) ([]*ServiceRequest, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM service_request WHERE nurse_id = $1`, nurseID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+requestCols+` FROM service_request
		WHERE nurse_id = $1
		ORDER BY created_at DESC LIMIT $2 OFFSET $3`, nurseID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	return collect(rows, total)
}

func (r *repoPG) ListActive(ctx context.Context) ([]*ServiceRequest, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+requestCols+` FROM service_request
		WHERE status NOT IN ($1, $2)
		ORDER BY created_at ASC`, StatusCompleted, StatusCanceled)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items, _, err := collect(rows, 0)
	return items, err
}

func (r *repoPG) CountOpen(ctx context.Context) (int64, error) {
	var n int64
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM service_request WHERE status = $1`, StatusOpen).Scan(&n)
	return n, err
}

func collect(rows pgx.Rows, total int) ([]*ServiceRequest, int, error) {
	var items []*ServiceRequest
	for rows.Next() {
		sr, err := scanRequest(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, sr)
	}
	return items, total, rows.Err()
}

// LockCandidates grabs row locks on allocatable nurses without waiting.
// A nurse already locked by a concurrent allocation is skipped, and a
// nurse who still holds a live assignment is excluded outright so one
// nurse never carries two visits.
func (r *repoPG) LockCandidates(ctx context.Context) ([]Candidate, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT np.user_id, nl.lat, nl.lng
		FROM nurse_profile np
		JOIN nurse_location nl ON nl.nurse_id = np.user_id
		WHERE np.active AND np.available
		  AND NOT EXISTS (
			SELECT 1 FROM service_request sr
			WHERE sr.nurse_id = np.user_id
			  AND sr.status IN ($1, $2, $3)
		  )
		FOR UPDATE OF np SKIP LOCKED`,
		StatusAssigned, StatusAccepted, StatusEnroute)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Candidate
	for rows.Next() {
		var c Candidate
		if err := rows.Scan(&c.NurseID, &c.Lat, &c.Lng); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *repoPG) AccessInfo(ctx context.Context, requestID uuid.UUID) (uuid.UUID, *uuid.UUID, error) {
	var requesterID uuid.UUID
	var nurseID *uuid.UUID
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT requester_id, nurse_id FROM service_request WHERE id = $1`, requestID,
	).Scan(&requesterID, &nurseID)
	return requesterID, nurseID, err
}
