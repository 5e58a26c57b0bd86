package audit

import (
	"context"
)

// AuditRepository defines the interface for audit log persistence.
// Records are append-only; there is no update or delete.
type AuditRepository interface {
	Insert(ctx context.Context, log Log) error
	List(ctx context.Context, params ListParams) ([]Log, error)
	Count(ctx context.Context) (int64, error)
	CountByAction(ctx context.Context) ([]ActionCount, error)
}
