package admin

import "context"

type Repository interface {
	// Append inserts an audit entry on the caller's transaction when one
	// is in the context, so the entry commits or rolls back with the
	// operation it describes.
	Append(ctx context.Context, entry *AuditLog) error
	List(ctx context.Context, action string, limit, offset int) ([]*AuditLog, int, error)
}
