package account

import (
	"context"

	"github.com/google/uuid"
)

// AccountRepository defines the interface for account persistence
type AccountRepository interface {
	Create(ctx context.Context, arg CreateAccountParams) (Account, error)
	GetByID(ctx context.Context, id uuid.UUID) (Account, error)
	GetByEmail(ctx context.Context, email string) (Account, error)
	List(ctx context.Context) ([]Account, error)
	UpdateInfo(ctx context.Context, arg UpdateAccountParams) (Account, error)
	UpdateSuperAdmin(ctx context.Context, id uuid.UUID, isSuperAdmin bool) (Account, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status Status) (Account, error)
}
