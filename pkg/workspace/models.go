package workspace

import (
	"time"

	"github.com/google/uuid"
)

// Roles a member can hold within a workspace
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// ValidRole reports whether role is a recognized membership role
func ValidRole(role string) bool {
	return role == RoleAdmin || role == RoleUser
}

// Workspace is a tenant boundary owned by the account that created it
type Workspace struct {
	ID          uuid.UUID
	Name        string
	Description string
	AccountID   uuid.UUID
	CreatedAt   time.Time
}

// Membership links an account to a workspace with a role
type Membership struct {
	ID          uuid.UUID
	WorkspaceID uuid.UUID
	AccountID   uuid.UUID
	Role        string
	CreatedAt   time.Time
}

// Profile is an account's per-workspace display identity
type Profile struct {
	ID          uuid.UUID
	Name        string
	WorkspaceID uuid.UUID
	AccountID   uuid.UUID
	CreatedAt   time.Time
}

// Member is a membership joined with account identity for listings
type Member struct {
	MembershipID uuid.UUID
	AccountID    uuid.UUID
	Email        string
	FullName     string
	ProfileName  string
	Role         string
	JoinedAt     time.Time
}

// Overview is a workspace together with the viewing account's role
// and profile, as returned by the session endpoint
type Overview struct {
	Workspace   Workspace
	Role        string
	ProfileName string
}

type CreateWorkspaceParams struct {
	Name        string
	Description string
	AccountID   uuid.UUID
	ProfileName string
}

type UpdateWorkspaceParams struct {
	ID          uuid.UUID
	Name        string
	Description string
}

type AddMemberParams struct {
	WorkspaceID uuid.UUID
	AccountID   uuid.UUID
	Role        string
	ProfileName string
}
