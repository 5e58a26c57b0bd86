package workspace

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tendant/simple-workspace/pkg/errors"
)

// InMemWorkspaceRepository implements WorkspaceRepository with in-memory
// storage, for tests and local development. The failure hooks let tests
// force an error partway through a multi-step operation to check that
// no partial state is left behind.
type InMemWorkspaceRepository struct {
	mu          sync.RWMutex
	workspaces  map[uuid.UUID]Workspace
	memberships map[uuid.UUID]Membership
	profiles    map[uuid.UUID]Profile

	// FailMembershipInsert makes the membership insert step of
	// CreateWorkspace fail after the workspace row is written.
	FailMembershipInsert error
	// FailProfileInsert makes the profile insert step of AddMember
	// fail after the membership row is written.
	FailProfileInsert error
}

// NewInMemWorkspaceRepository creates a new in-memory workspace repository
func NewInMemWorkspaceRepository() *InMemWorkspaceRepository {
	return &InMemWorkspaceRepository{
		workspaces:  make(map[uuid.UUID]Workspace),
		memberships: make(map[uuid.UUID]Membership),
		profiles:    make(map[uuid.UUID]Profile),
	}
}

func (r *InMemWorkspaceRepository) findMembership(workspaceID, accountID uuid.UUID) (Membership, bool) {
	for _, m := range r.memberships {
		if m.WorkspaceID == workspaceID && m.AccountID == accountID {
			return m, true
		}
	}
	return Membership{}, false
}

func (r *InMemWorkspaceRepository) findProfile(workspaceID, accountID uuid.UUID) (Profile, bool) {
	for _, p := range r.profiles {
		if p.WorkspaceID == workspaceID && p.AccountID == accountID {
			return p, true
		}
	}
	return Profile{}, false
}

func (r *InMemWorkspaceRepository) adminCount(workspaceID uuid.UUID) int {
	count := 0
	for _, m := range r.memberships {
		if m.WorkspaceID == workspaceID && m.Role == RoleAdmin {
			count++
		}
	}
	return count
}

// CreateWorkspace inserts the workspace, the creator's admin membership
// and the creator's profile as one atomic step
func (r *InMemWorkspaceRepository) CreateWorkspace(ctx context.Context, arg CreateWorkspaceParams) (Workspace, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.FailMembershipInsert != nil {
		return Workspace{}, errors.DatabaseWrap(r.FailMembershipInsert, "failed to create membership")
	}

	now := time.Now()
	ws := Workspace{
		ID:          uuid.New(),
		Name:        arg.Name,
		Description: arg.Description,
		AccountID:   arg.AccountID,
		CreatedAt:   now,
	}
	r.workspaces[ws.ID] = ws

	m := Membership{
		ID:          uuid.New(),
		WorkspaceID: ws.ID,
		AccountID:   arg.AccountID,
		Role:        RoleAdmin,
		CreatedAt:   now,
	}
	r.memberships[m.ID] = m

	p := Profile{
		ID:          uuid.New(),
		Name:        arg.ProfileName,
		WorkspaceID: ws.ID,
		AccountID:   arg.AccountID,
		CreatedAt:   now,
	}
	r.profiles[p.ID] = p

	return ws, nil
}

// GetWorkspace retrieves a workspace by its ID
func (r *InMemWorkspaceRepository) GetWorkspace(ctx context.Context, id uuid.UUID) (Workspace, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ws, ok := r.workspaces[id]
	if !ok {
		return Workspace{}, errors.WorkspaceNotFound(id.String())
	}
	return ws, nil
}

// UpdateWorkspace updates a workspace's name and description
func (r *InMemWorkspaceRepository) UpdateWorkspace(ctx context.Context, arg UpdateWorkspaceParams) (Workspace, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ws, ok := r.workspaces[arg.ID]
	if !ok {
		return Workspace{}, errors.WorkspaceNotFound(arg.ID.String())
	}

	if arg.Name != "" {
		ws.Name = arg.Name
	}
	if arg.Description != "" {
		ws.Description = arg.Description
	}

	r.workspaces[ws.ID] = ws
	return ws, nil
}

// DeleteWorkspace removes the workspace and all of its memberships and
// profiles as one atomic step
func (r *InMemWorkspaceRepository) DeleteWorkspace(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.workspaces[id]; !ok {
		return errors.WorkspaceNotFound(id.String())
	}

	for pid, p := range r.profiles {
		if p.WorkspaceID == id {
			delete(r.profiles, pid)
		}
	}
	for mid, m := range r.memberships {
		if m.WorkspaceID == id {
			delete(r.memberships, mid)
		}
	}
	delete(r.workspaces, id)
	return nil
}

// ListWorkspaces returns all workspaces, newest first
func (r *InMemWorkspaceRepository) ListWorkspaces(ctx context.Context) ([]Workspace, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	workspaces := make([]Workspace, 0, len(r.workspaces))
	for _, ws := range r.workspaces {
		workspaces = append(workspaces, ws)
	}
	sort.Slice(workspaces, func(i, j int) bool {
		return workspaces[i].CreatedAt.After(workspaces[j].CreatedAt)
	})
	return workspaces, nil
}

// ListForAccount returns every workspace the account belongs to, with
// the account's role and profile in each
func (r *InMemWorkspaceRepository) ListForAccount(ctx context.Context, accountID uuid.UUID) ([]Overview, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var overviews []Overview
	for _, m := range r.memberships {
		if m.AccountID != accountID {
			continue
		}
		ws, ok := r.workspaces[m.WorkspaceID]
		if !ok {
			continue
		}
		o := Overview{Workspace: ws, Role: m.Role}
		if p, ok := r.findProfile(m.WorkspaceID, accountID); ok {
			o.ProfileName = p.Name
		}
		overviews = append(overviews, o)
	}
	sort.Slice(overviews, func(i, j int) bool {
		return overviews[i].Workspace.CreatedAt.After(overviews[j].Workspace.CreatedAt)
	})
	return overviews, nil
}

// AddMember inserts the membership and profile as one atomic step
func (r *InMemWorkspaceRepository) AddMember(ctx context.Context, arg AddMemberParams) (Membership, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.workspaces[arg.WorkspaceID]; !ok {
		return Membership{}, errors.WorkspaceNotFound(arg.WorkspaceID.String())
	}
	if _, exists := r.findMembership(arg.WorkspaceID, arg.AccountID); exists {
		return Membership{}, errors.Conflict("account is already a member of this workspace")
	}

	if r.FailProfileInsert != nil {
		return Membership{}, errors.DatabaseWrap(r.FailProfileInsert, "failed to create profile")
	}

	now := time.Now()
	m := Membership{
		ID:          uuid.New(),
		WorkspaceID: arg.WorkspaceID,
		AccountID:   arg.AccountID,
		Role:        arg.Role,
		CreatedAt:   now,
	}
	r.memberships[m.ID] = m

	p := Profile{
		ID:          uuid.New(),
		Name:        arg.ProfileName,
		WorkspaceID: arg.WorkspaceID,
		AccountID:   arg.AccountID,
		CreatedAt:   now,
	}
	r.profiles[p.ID] = p

	return m, nil
}

// ListMembers returns the members of a workspace. Account identity
// fields are left blank since the in-memory store holds no accounts.
func (r *InMemWorkspaceRepository) ListMembers(ctx context.Context, workspaceID uuid.UUID) ([]Member, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var members []Member
	for _, m := range r.memberships {
		if m.WorkspaceID != workspaceID {
			continue
		}
		member := Member{
			MembershipID: m.ID,
			AccountID:    m.AccountID,
			Role:         m.Role,
			JoinedAt:     m.CreatedAt,
		}
		if p, ok := r.findProfile(workspaceID, m.AccountID); ok {
			member.ProfileName = p.Name
		}
		members = append(members, member)
	}
	sort.Slice(members, func(i, j int) bool {
		return members[i].JoinedAt.Before(members[j].JoinedAt)
	})
	return members, nil
}

// ListMemberships returns all memberships across workspaces
func (r *InMemWorkspaceRepository) ListMemberships(ctx context.Context) ([]Membership, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	memberships := make([]Membership, 0, len(r.memberships))
	for _, m := range r.memberships {
		memberships = append(memberships, m)
	}
	sort.Slice(memberships, func(i, j int) bool {
		return memberships[i].CreatedAt.After(memberships[j].CreatedAt)
	})
	return memberships, nil
}

// GetMembership retrieves the membership for an account in a workspace
func (r *InMemWorkspaceRepository) GetMembership(ctx context.Context, workspaceID, accountID uuid.UUID) (Membership, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	m, ok := r.findMembership(workspaceID, accountID)
	if !ok {
		return Membership{}, errors.NotFound("membership", fmt.Sprintf("%s/%s", workspaceID, accountID))
	}
	return m, nil
}

// GetMembershipByID retrieves a membership by its own ID
func (r *InMemWorkspaceRepository) GetMembershipByID(ctx context.Context, membershipID uuid.UUID) (Membership, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	m, ok := r.memberships[membershipID]
	if !ok {
		return Membership{}, errors.NotFound("membership", membershipID.String())
	}
	return m, nil
}

// UpdateMemberRole changes a member's role, refusing to demote the
// workspace's last admin
func (r *InMemWorkspaceRepository) UpdateMemberRole(ctx context.Context, membershipID uuid.UUID, role string) (Membership, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.memberships[membershipID]
	if !ok {
		return Membership{}, errors.NotFound("membership", membershipID.String())
	}

	if m.Role == RoleAdmin && role != RoleAdmin && r.adminCount(m.WorkspaceID) <= 1 {
		return Membership{}, errors.ValidationFailed("role", "cannot demote the last admin of a workspace")
	}

	m.Role = role
	r.memberships[membershipID] = m
	return m, nil
}

// RemoveMember deletes the membership and profile as one atomic step,
// refusing to remove the workspace's last admin
func (r *InMemWorkspaceRepository) RemoveMember(ctx context.Context, membershipID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.memberships[membershipID]
	if !ok {
		return errors.NotFound("membership", membershipID.String())
	}

	if m.Role == RoleAdmin && r.adminCount(m.WorkspaceID) <= 1 {
		return errors.ValidationFailed("member", "cannot remove the last admin of a workspace")
	}

	if p, ok := r.findProfile(m.WorkspaceID, m.AccountID); ok {
		delete(r.profiles, p.ID)
	}
	delete(r.memberships, membershipID)
	return nil
}

// UpdateProfile renames an account's profile within a workspace
func (r *InMemWorkspaceRepository) UpdateProfile(ctx context.Context, workspaceID, accountID uuid.UUID, name string) (Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.findProfile(workspaceID, accountID)
	if !ok {
		return Profile{}, errors.NotFound("profile", fmt.Sprintf("%s/%s", workspaceID, accountID))
	}

	p.Name = name
	r.profiles[p.ID] = p
	return p, nil
}

// GetProfile retrieves an account's profile within a workspace
func (r *InMemWorkspaceRepository) GetProfile(ctx context.Context, workspaceID, accountID uuid.UUID) (Profile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.findProfile(workspaceID, accountID)
	if !ok {
		return Profile{}, errors.NotFound("profile", fmt.Sprintf("%s/%s", workspaceID, accountID))
	}
	return p, nil
}

// Counts reports the number of workspaces, memberships and profiles,
// for atomicity assertions in tests
func (r *InMemWorkspaceRepository) Counts() (workspaces, memberships, profiles int) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.workspaces), len(r.memberships), len(r.profiles)
}
