package event

import (
	"context"
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

const eventCols = `id, request_id, event_type, actor_id, from_status, to_status, metadata, created_at`

func scanEvent(row pgx.Row) (*Event, error) {
	var e Event
	err := row.Scan(&e.ID, &e.RequestID, &e.EventType, &e.ActorID,
		&e.FromStatus, &e.ToStatus, &e.Metadata, &e.CreatedAt)
	return &e, err
}

func (r *repoPG) Append(ctx context.Context, e *Event) error {
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO request_event (request_id, event_type, actor_id, from_status, to_status, metadata)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`,
		e.RequestID, e.EventType, e.ActorID, e.FromStatus, e.ToStatus, e.Metadata,
	).Scan(&e.ID, &e.CreatedAt)
}

func (r *repoPG) ListByRequest(ctx context.Context, requestID uuid.UUID) ([]*Event, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+eventCols+` FROM request_event
		WHERE request_id = $1
		ORDER BY id ASC`, requestID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, e)
	}
	return items, rows.Err()
}

// ListVisibleSince keeps the feed capped at the most recent limit
// events: the inner query walks newest-first, the outer one restores
// chronological order for the caller. Past participation is read from
// the event log itself, so a nurse who rejected or was reassigned away
// still sees what happened on that request.
func (r *repoPG) ListVisibleSince(ctx context.Context, actorID uuid.UUID, isAdmin bool, sinceID int64, limit int) ([]*Event, error) {
	var (
		rows pgx.Rows
		err  error
	)
	if isAdmin {
		rows, err = r.conn(ctx).Query(ctx, `
			SELECT `+eventCols+` FROM (
				SELECT `+eventCols+` FROM request_event
				WHERE id > $1
				ORDER BY id DESC
				LIMIT $2
			) recent
			ORDER BY id ASC`, sinceID, limit)
	} else {
		rows, err = r.conn(ctx).Query(ctx, `
			SELECT `+eventCols+` FROM (
				SELECT e.id, e.request_id, e.event_type, e.actor_id, e.from_status, e.to_status, e.metadata, e.created_at
				FROM request_event e
				JOIN service_request sr ON sr.id = e.request_id
				WHERE e.id > $1
				  AND (sr.requester_id = $2 OR sr.nurse_id = $2
					OR EXISTS (
						SELECT 1 FROM request_event h
						WHERE h.request_id = e.request_id
						  AND (h.actor_id = $2
							OR h.metadata->>'nurse_id' = $3
							OR h.metadata->>'to_nurse_id' = $3
							OR h.metadata->>'from_nurse_id' = $3)
					))
				ORDER BY e.id DESC
				LIMIT $4
			) recent
			ORDER BY id ASC`, sinceID, actorID, actorID.String(), limit)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, e)
	}
	return items, rows.Err()
}

func (r *repoPG) LatestByRequest(ctx context.Context) (map[uuid.UUID]time.Time, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT request_id, MAX(created_at)
		FROM request_event
		GROUP BY request_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	latest := make(map[uuid.UUID]time.Time)
	for rows.Next() {
		var id uuid.UUID
		var at time.Time
		if err := rows.Scan(&id, &at); err != nil {
			return nil, err
		}
		latest[id] = at
	}
	return latest, rows.Err()
}
