package account

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/tendant/simple-workspace/pkg/audit"
	"github.com/tendant/simple-workspace/pkg/errors"
)

// AccountService provides account operations
type AccountService struct {
	repo     AccountRepository
	recorder *audit.Recorder
}

// NewAccountService creates a new account service
func NewAccountService(repo AccountRepository, recorder *audit.Recorder) *AccountService {
	return &AccountService{
		repo:     repo,
		recorder: recorder,
	}
}

// CreateAccount creates a new account after validation
func (s *AccountService) CreateAccount(ctx context.Context, params CreateAccountParams) (Account, error) {
	params.FullName = strings.TrimSpace(params.FullName)
	params.Email = strings.TrimSpace(params.Email)

	if params.FullName == "" {
		return Account{}, errors.ValidationFailed("full_name", "must not be empty")
	}
	if params.Email == "" || !strings.Contains(params.Email, "@") {
		return Account{}, errors.ValidationFailed("email", "must be a valid email address")
	}

	return s.repo.Create(ctx, params)
}

// EnsureAccount returns the account for an identity-provider subject,
// creating it on first sight. Used by the signup passthrough.
func (s *AccountService) EnsureAccount(ctx context.Context, id uuid.UUID, fullName, email string) (Account, error) {
	a, err := s.repo.GetByID(ctx, id)
	if err == nil {
		return a, nil
	}
	if !errors.IsCode(err, errors.ErrCodeAccountNotFound) {
		return Account{}, err
	}

	return s.repo.Create(ctx, CreateAccountParams{
		ID:       id,
		FullName: fullName,
		Email:    email,
	})
}

// GetAccount retrieves an account by ID
func (s *AccountService) GetAccount(ctx context.Context, id uuid.UUID) (Account, error) {
	return s.repo.GetByID(ctx, id)
}

// GetByEmail retrieves an account by its unique email
func (s *AccountService) GetByEmail(ctx context.Context, email string) (Account, error) {
	return s.repo.GetByEmail(ctx, email)
}

// ListAccounts returns all accounts
func (s *AccountService) ListAccounts(ctx context.Context) ([]Account, error) {
	return s.repo.List(ctx)
}

// UpdateAccount updates an account's own details
func (s *AccountService) UpdateAccount(ctx context.Context, params UpdateAccountParams) (Account, error) {
	params.FullName = strings.TrimSpace(params.FullName)
	return s.repo.UpdateInfo(ctx, params)
}

// UpdateRole sets or clears the global superadmin flag on an account.
// The change is audited; an audit write failure never fails the update.
func (s *AccountService) UpdateRole(ctx context.Context, actorID, targetID uuid.UUID, isSuperAdmin bool) (Account, error) {
	a, err := s.repo.UpdateSuperAdmin(ctx, targetID, isSuperAdmin)
	if err != nil {
		return Account{}, err
	}

	s.recorder.Record(ctx, audit.Entry{
		Action:     "account.role_updated",
		EntityType: "account",
		EntityID:   targetID.String(),
		ActorID:    actorID,
		TargetID:   targetID.String(),
		Details:    map[string]interface{}{"is_super_admin": isSuperAdmin},
	})

	return a, nil
}

// UpdateStatus transitions the account lifecycle status. The change is
// audited; an audit write failure never fails the update.
func (s *AccountService) UpdateStatus(ctx context.Context, actorID, targetID uuid.UUID, status Status) (Account, error) {
	if !status.Valid() {
		return Account{}, errors.ValidationFailed("status", "must be one of active, inactive, suspended")
	}

	a, err := s.repo.UpdateStatus(ctx, targetID, status)
	if err != nil {
		return Account{}, err
	}

	s.recorder.Record(ctx, audit.Entry{
		Action:     "account.status_updated",
		EntityType: "account",
		EntityID:   targetID.String(),
		ActorID:    actorID,
		TargetID:   targetID.String(),
		Details:    map[string]interface{}{"status": string(status)},
	})

	return a, nil
}

// GetStatus reports the lifecycle status for the status guard
func (s *AccountService) GetStatus(ctx context.Context, id uuid.UUID) (string, error) {
	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return "", err
	}
	return string(a.Status), nil
}

// EmailForAccount resolves an account's email for audit records
func (s *AccountService) EmailForAccount(ctx context.Context, id uuid.UUID) (string, error) {
	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return "", err
	}
	return a.Email, nil
}
