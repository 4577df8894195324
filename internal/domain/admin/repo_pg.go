package admin

import (
	"context"

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

const auditCols = `id, actor_id, action, target_type, target_id, details, created_at`

func scanAudit(row pgx.Row) (*AuditLog, error) {
	var a AuditLog
	err := row.Scan(&a.ID, &a.ActorID, &a.Action, &a.TargetType, &a.TargetID, &a.Details, &a.CreatedAt)
	return &a, err
}

func (r *repoPG) Append(ctx context.Context, entry *AuditLog) error {
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO admin_audit_log (actor_id, action, target_type, target_id, details)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`,
		entry.ActorID, entry.Action, entry.TargetType, entry.TargetID, entry.Details,
	).Scan(&entry.ID, &entry.CreatedAt)
}

func (r *repoPG) List(ctx context.Context, action string, limit, offset int) ([]*AuditLog, int, error) {
	countQuery := `SELECT COUNT(*) FROM admin_audit_log`
	query := `SELECT ` + auditCols + ` FROM admin_audit_log`
	var args []interface{}
	if action != "" {
		countQuery += ` WHERE action = $1`
		query += ` WHERE action = $1 ORDER BY id DESC LIMIT $2 OFFSET $3`
		args = append(args, action, limit, offset)
	} else {
		query += ` ORDER BY id DESC LIMIT $1 OFFSET $2`
		args = append(args, limit, offset)
	}

	var total int
	countArgs := args
	if action != "" {
		countArgs = args[:1]
	} else {
		countArgs = nil
	}
	if err := r.conn(ctx).QueryRow(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*AuditLog
	for rows.Next() {
		a, err := scanAudit(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, a)
	}
	return items, total, rows.Err()
}
