package workspace

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/tendant/simple-workspace/pkg/account"
	"github.com/tendant/simple-workspace/pkg/audit"
	"github.com/tendant/simple-workspace/pkg/errors"
)

const maxNameLength = 100

// WorkspaceService provides workspace, membership and profile operations
type WorkspaceService struct {
	repo           WorkspaceRepository
	accountService *account.AccountService
	recorder       *audit.Recorder
}

// NewWorkspaceService creates a new workspace service
func NewWorkspaceService(repo WorkspaceRepository, accountService *account.AccountService, recorder *audit.Recorder) *WorkspaceService {
	return &WorkspaceService{
		repo:           repo,
		accountService: accountService,
		recorder:       recorder,
	}
}

func validateName(field, name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", errors.ValidationFailed(field, "must not be empty")
	}
	if len(name) > maxNameLength {
		return "", errors.ValidationFailed(field, "must be at most 100 characters")
	}
	return name, nil
}

// CreateWorkspace creates a workspace and joins the creator as its
// first admin, with a profile defaulting to the creator's name
func (s *WorkspaceService) CreateWorkspace(ctx context.Context, accountID uuid.UUID, name, description string) (Workspace, error) {
	name, err := validateName("name", name)
	if err != nil {
		return Workspace{}, err
	}

	creator, err := s.accountService.GetAccount(ctx, accountID)
	if err != nil {
		return Workspace{}, err
	}

	ws, err := s.repo.CreateWorkspace(ctx, CreateWorkspaceParams{
		Name:        name,
		Description: description,
		AccountID:   accountID,
		ProfileName: creator.FullName,
	})
	if err != nil {
		return Workspace{}, err
	}

	s.recorder.Record(ctx, audit.Entry{
		Action:      "workspace.created",
		EntityType:  "workspace",
		EntityID:    ws.ID.String(),
		ActorID:     accountID,
		WorkspaceID: ws.ID.String(),
		Details:     map[string]interface{}{"name": ws.Name},
	})

	return ws, nil
}

// GetWorkspace retrieves a workspace by ID
func (s *WorkspaceService) GetWorkspace(ctx context.Context, id uuid.UUID) (Workspace, error) {
	return s.repo.GetWorkspace(ctx, id)
}

// UpdateWorkspace updates a workspace's name and description
func (s *WorkspaceService) UpdateWorkspace(ctx context.Context, actorID uuid.UUID, params UpdateWorkspaceParams) (Workspace, error) {
	if params.Name != "" {
		name, err := validateName("name", params.Name)
		if err != nil {
			return Workspace{}, err
		}
		params.Name = name
	}

	ws, err := s.repo.UpdateWorkspace(ctx, params)
	if err != nil {
		return Workspace{}, err
	}

	s.recorder.Record(ctx, audit.Entry{
		Action:      "workspace.updated",
		EntityType:  "workspace",
		EntityID:    ws.ID.String(),
		ActorID:     actorID,
		WorkspaceID: ws.ID.String(),
		Details:     map[string]interface{}{"name": ws.Name},
	})

	return ws, nil
}

// DeleteWorkspace removes a workspace together with its memberships
// and profiles
func (s *WorkspaceService) DeleteWorkspace(ctx context.Context, actorID, id uuid.UUID) error {
	if err := s.repo.DeleteWorkspace(ctx, id); err != nil {
		return err
	}

	s.recorder.Record(ctx, audit.Entry{
		Action:      "workspace.deleted",
		EntityType:  "workspace",
		EntityID:    id.String(),
		ActorID:     actorID,
		WorkspaceID: id.String(),
	})

	return nil
}

// ListForAccount returns the workspaces an account belongs to, with the
// account's role and profile in each
func (s *WorkspaceService) ListForAccount(ctx context.Context, accountID uuid.UUID) ([]Overview, error) {
	return s.repo.ListForAccount(ctx, accountID)
}

// ListWorkspaces returns all workspaces for the admin surface
func (s *WorkspaceService) ListWorkspaces(ctx context.Context) ([]Workspace, error) {
	return s.repo.ListWorkspaces(ctx)
}

// ListMemberships returns all memberships for the admin surface
func (s *WorkspaceService) ListMemberships(ctx context.Context) ([]Membership, error) {
	return s.repo.ListMemberships(ctx)
}

// AddMember invites an account, identified by email, into a workspace
func (s *WorkspaceService) AddMember(ctx context.Context, actorID, workspaceID uuid.UUID, email, role, profileName string) (Membership, error) {
	if !ValidRole(role) {
		return Membership{}, errors.ValidationFailed("role", "must be one of admin, user")
	}

	invitee, err := s.accountService.GetByEmail(ctx, email)
	if err != nil {
		return Membership{}, err
	}

	if profileName == "" {
		profileName = invitee.FullName
	}
	profileName, err = validateName("profile_name", profileName)
	if err != nil {
		return Membership{}, err
	}

	m, err := s.repo.AddMember(ctx, AddMemberParams{
		WorkspaceID: workspaceID,
		AccountID:   invitee.ID,
		Role:        role,
		ProfileName: profileName,
	})
	if err != nil {
		return Membership{}, err
	}

	s.recorder.Record(ctx, audit.Entry{
		Action:      "workspace.member_added",
		EntityType:  "membership",
		EntityID:    m.ID.String(),
		ActorID:     actorID,
		TargetID:    invitee.ID.String(),
		TargetEmail: invitee.Email,
		WorkspaceID: workspaceID.String(),
		Details:     map[string]interface{}{"role": role},
	})

	return m, nil
}

// ListMembers returns the members of a workspace
func (s *WorkspaceService) ListMembers(ctx context.Context, workspaceID uuid.UUID) ([]Member, error) {
	return s.repo.ListMembers(ctx, workspaceID)
}

// UpdateMemberRole changes a workspace member's role
func (s *WorkspaceService) UpdateMemberRole(ctx context.Context, actorID, workspaceID, membershipID uuid.UUID, role string) (Membership, error) {
	if !ValidRole(role) {
		return Membership{}, errors.ValidationFailed("role", "must be one of admin, user")
	}

	current, err := s.repo.GetMembershipByID(ctx, membershipID)
	if err != nil {
		return Membership{}, err
	}
	if current.WorkspaceID != workspaceID {
		return Membership{}, errors.NotFound("membership", membershipID.String())
	}

	m, err := s.repo.UpdateMemberRole(ctx, membershipID, role)
	if err != nil {
		return Membership{}, err
	}

	s.recorder.Record(ctx, audit.Entry{
		Action:      "workspace.member_role_updated",
		EntityType:  "membership",
		EntityID:    m.ID.String(),
		ActorID:     actorID,
		TargetID:    m.AccountID.String(),
		WorkspaceID: workspaceID.String(),
		Details:     map[string]interface{}{"role": role},
	})

	return m, nil
}

// RemoveMember removes a member and their profile from a workspace
func (s *WorkspaceService) RemoveMember(ctx context.Context, actorID, workspaceID, membershipID uuid.UUID) error {
	current, err := s.repo.GetMembershipByID(ctx, membershipID)
	if err != nil {
		return err
	}
	if current.WorkspaceID != workspaceID {
		return errors.NotFound("membership", membershipID.String())
	}

	if err := s.repo.RemoveMember(ctx, membershipID); err != nil {
		return err
	}

	s.recorder.Record(ctx, audit.Entry{
		Action:      "workspace.member_removed",
		EntityType:  "membership",
		EntityID:    membershipID.String(),
		ActorID:     actorID,
		TargetID:    current.AccountID.String(),
		WorkspaceID: workspaceID.String(),
	})

	return nil
}

// UpdateProfile renames the caller's profile within a workspace
func (s *WorkspaceService) UpdateProfile(ctx context.Context, accountID, workspaceID uuid.UUID, name string) (Profile, error) {
	name, err := validateName("name", name)
	if err != nil {
		return Profile{}, err
	}
	return s.repo.UpdateProfile(ctx, workspaceID, accountID, name)
}
