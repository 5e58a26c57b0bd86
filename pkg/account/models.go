package account

import (
	"time"

	"github.com/google/uuid"
)

// Status is the account lifecycle state
type Status string

const (
	StatusActive    Status = "active"
	StatusInactive  Status = "inactive"
	StatusSuspended Status = "suspended"
)

// Valid reports whether s is a known lifecycle state
func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusInactive, StatusSuspended:
		return true
	}
	return false
}

// Account is a global identity capable of owning workspaces and holding
// the superadmin flag. Accounts are never hard-deleted.
type Account struct {
	ID           uuid.UUID `json:"id"`
	FullName     string    `json:"full_name"`
	Email        string    `json:"email"`
	Phone        string    `json:"phone,omitempty"`
	IsSuperAdmin bool      `json:"is_super_admin"`
	Status       Status    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
}

// CreateAccountParams contains parameters for creating a new account.
// ID is optional: when set, the account is created under that identifier
// so it can mirror an identity-provider subject; when zero, a fresh one
// is generated.
type CreateAccountParams struct {
	ID           uuid.UUID `json:"id,omitempty"`
	FullName     string    `json:"full_name"`
	Email        string    `json:"email"`
	Phone        string    `json:"phone,omitempty"`
	IsSuperAdmin bool      `json:"is_super_admin,omitempty"`
}

// UpdateAccountParams contains parameters for updating an account's own
// details
type UpdateAccountParams struct {
	ID       uuid.UUID `json:"id"`
	FullName string    `json:"full_name,omitempty"`
	Phone    string    `json:"phone,omitempty"`
}
