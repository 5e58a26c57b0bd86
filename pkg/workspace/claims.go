package workspace

import (
	"context"

	"github.com/google/uuid"

	"github.com/tendant/simple-workspace/pkg/account"
	"github.com/tendant/simple-workspace/pkg/authz"
	"github.com/tendant/simple-workspace/pkg/errors"
)

// ClaimsResolver assembles authorization claims for a verified account:
// the base authenticated claim, the global superadmin claim when set, and
// the membership role in the workspace named by the request, if any.
type ClaimsResolver struct {
	repo           WorkspaceRepository
	accountService *account.AccountService
}

// NewClaimsResolver creates a claims resolver backed by the workspace
// repository and account service
func NewClaimsResolver(repo WorkspaceRepository, accountService *account.AccountService) *ClaimsResolver {
	return &ClaimsResolver{
		repo:           repo,
		accountService: accountService,
	}
}

// ResolveClaims implements authz.ClaimsSource
func (c *ClaimsResolver) ResolveClaims(ctx context.Context, accountID uuid.UUID, workspaceID string) ([]string, error) {
	var claims []string

	a, err := c.accountService.GetAccount(ctx, accountID)
	if errors.IsCode(err, errors.ErrCodeAccountNotFound) {
		// A subject with no local account holds no claims
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	claims = append(claims, authz.ClaimAuthenticated)
	if a.IsSuperAdmin {
		claims = append(claims, authz.ClaimSuper)
	}

	if workspaceID != "" {
		wsID, err := uuid.Parse(workspaceID)
		if err != nil {
			return nil, errors.ValidationFailed("x-workspace-id", "invalid UUID format")
		}

		m, err := c.repo.GetMembership(ctx, wsID, accountID)
		switch {
		case err == nil:
			claims = append(claims, m.Role)
		case errors.IsCode(err, errors.ErrCodeNotFound):
			// not a member: no workspace claim
		default:
			return nil, err
		}
	}

	return claims, nil
}
