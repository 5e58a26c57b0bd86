package workspace

import (
	"context"

	"github.com/google/uuid"
)

// WorkspaceRepository defines the persistence operations for workspaces,
// memberships and profiles. Multi-step operations are transactional:
// either every write lands or none do.
type WorkspaceRepository interface {
	// CreateWorkspace inserts the workspace and, in the same
	// transaction, an admin membership and a profile for the creator.
	CreateWorkspace(ctx context.Context, params CreateWorkspaceParams) (Workspace, error)
	GetWorkspace(ctx context.Context, id uuid.UUID) (Workspace, error)
	UpdateWorkspace(ctx context.Context, params UpdateWorkspaceParams) (Workspace, error)
	// DeleteWorkspace removes profiles, memberships and the workspace
	// row in a single transaction.
	DeleteWorkspace(ctx context.Context, id uuid.UUID) error
	ListWorkspaces(ctx context.Context) ([]Workspace, error)

	// ListForAccount returns every workspace the account belongs to,
	// with the account's role and profile in each.
	ListForAccount(ctx context.Context, accountID uuid.UUID) ([]Overview, error)

	// AddMember inserts the membership and profile atomically.
	AddMember(ctx context.Context, params AddMemberParams) (Membership, error)
	ListMembers(ctx context.Context, workspaceID uuid.UUID) ([]Member, error)
	ListMemberships(ctx context.Context) ([]Membership, error)
	GetMembership(ctx context.Context, workspaceID, accountID uuid.UUID) (Membership, error)
	GetMembershipByID(ctx context.Context, membershipID uuid.UUID) (Membership, error)

	// UpdateMemberRole changes a member's role. Demoting the last
	// admin of the workspace fails with a validation error.
	UpdateMemberRole(ctx context.Context, membershipID uuid.UUID, role string) (Membership, error)
	// RemoveMember deletes the membership and profile atomically.
	// Removing the last admin of the workspace fails with a
	// validation error.
	RemoveMember(ctx context.Context, membershipID uuid.UUID) error

	UpdateProfile(ctx context.Context, workspaceID, accountID uuid.UUID, name string) (Profile, error)
	GetProfile(ctx context.Context, workspaceID, accountID uuid.UUID) (Profile, error)
}
