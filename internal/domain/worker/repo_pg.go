package worker

import (
	"context"
	"errors"
	"time"

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

const profileCols = `user_id, full_name, license_no, specialization, active, available, created_at, updated_at`

func scanProfile(row pgx.Row) (*NurseProfile, error) {
	var p NurseProfile
	err := row.Scan(&p.UserID, &p.FullName, &p.LicenseNo, &p.Specialization,
		&p.Active, &p.Available, &p.CreatedAt, &p.UpdatedAt)
	return &p, err
}

func (r *repoPG) CreateProfile(ctx context.Context, p *NurseProfile) error {
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO nurse_profile (user_id, full_name, license_no, specialization, active, available)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at`,
		p.UserID, p.FullName, p.LicenseNo, p.Specialization, p.Active, p.Available,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
}

func (r *repoPG) GetProfile(ctx context.Context, userID uuid.UUID) (*NurseProfile, error) {
	return scanProfile(r.conn(ctx).QueryRow(ctx,
		`SELECT `+profileCols+` FROM nurse_profile WHERE user_id = $1`, userID))
}

func (r *repoPG) ListProfiles(ctx context.Context, limit, offset int) ([]*NurseProfile, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM nurse_profile`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+profileCols+` FROM nurse_profile ORDER BY created_at DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*NurseProfile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, p)
	}
	return items, total, rows.Err()
}

func (r *repoPG) SetAvailability(ctx context.Context, userID uuid.UUID, available bool) error {
	tag, err := r.conn(ctx).Exec(ctx,
		`UPDATE nurse_profile SET available = $2, updated_at = NOW() WHERE user_id = $1`,
		userID, available)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *repoPG) SetActive(ctx context.Context, userID uuid.UUID, active bool) error {
	tag, err := r.conn(ctx).Exec(ctx,
		`UPDATE nurse_profile SET active = $2, updated_at = NOW() WHERE user_id = $1`,
		userID, active)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *repoPG) UpsertLocationThrottled(ctx context.Context, nurseID uuid.UUID, lat, lng float64, minInterval time.Duration) (*NurseLocation, bool, error) {
	// The throttle window lives in the WHERE of the conflict update so
	// concurrent writers race on the row, not on a read-then-write gap.
	loc, err := scanLocation(r.conn(ctx).QueryRow(ctx, `
		INSERT INTO nurse_location (nurse_id, lat, lng, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (nurse_id) DO UPDATE
			SET lat = EXCLUDED.lat, lng = EXCLUDED.lng, updated_at = NOW()
			WHERE nurse_location.updated_at <= NOW() - $4::interval
		RETURNING nurse_id, lat, lng, updated_at`,
		nurseID, lat, lng, minInterval))
	if err == nil {
		return loc, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, false, err
	}

	// Throttled: the update hit the WHERE guard, nothing was written.
	loc, err = r.GetLocation(ctx, nurseID)
	if err != nil {
		return nil, false, err
	}
	return loc, false, nil
}

func scanLocation(row pgx.Row) (*NurseLocation, error) {
	var l NurseLocation
	err := row.Scan(&l.NurseID, &l.Lat, &l.Lng, &l.UpdatedAt)
	return &l, err
}

func (r *repoPG) GetLocation(ctx context.Context, nurseID uuid.UUID) (*NurseLocation, error) {
	return scanLocation(r.conn(ctx).QueryRow(ctx,
		`SELECT nurse_id, lat, lng, updated_at FROM nurse_location WHERE nurse_id = $1`, nurseID))
}
