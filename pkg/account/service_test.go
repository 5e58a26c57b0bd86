package account

import (
	"context"
	stderrors "errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tendant/simple-workspace/pkg/audit"
	"github.com/tendant/simple-workspace/pkg/errors"
)

func newService(t *testing.T) (*AccountService, *audit.InMemAuditRepository) {
	t.Helper()

	auditRepo := audit.NewInMemAuditRepository()
	recorder := audit.NewRecorder(auditRepo, nil)
	service := NewAccountService(NewInMemAccountRepository(), recorder)
	recorder.SetResolver(service)
	return service, auditRepo
}

func TestCreateAccount(t *testing.T) {
	service, _ := newService(t)
	ctx := context.Background()

	a, err := service.CreateAccount(ctx, CreateAccountParams{
		FullName: "  Alice  ",
		Email:    "alice@example.com",
	})
	require.NoError(t, err)
	assert.Equal(t, "Alice", a.FullName)
	assert.Equal(t, StatusActive, a.Status)
	assert.False(t, a.IsSuperAdmin)
}

func TestCreateAccount_Validation(t *testing.T) {
	service, _ := newService(t)
	ctx := context.Background()

	_, err := service.CreateAccount(ctx, CreateAccountParams{Email: "a@b.com"})
	assert.True(t, errors.IsCode(err, errors.ErrCodeValidationFailed))

	_, err = service.CreateAccount(ctx, CreateAccountParams{FullName: "Alice", Email: "not-an-email"})
	assert.True(t, errors.IsCode(err, errors.ErrCodeValidationFailed))
}

func TestCreateAccount_DuplicateEmailConflicts(t *testing.T) {
	service, _ := newService(t)
	ctx := context.Background()

	_, err := service.CreateAccount(ctx, CreateAccountParams{FullName: "Alice", Email: "alice@example.com"})
	require.NoError(t, err)

	_, err = service.CreateAccount(ctx, CreateAccountParams{FullName: "Other", Email: "alice@example.com"})
	assert.True(t, errors.IsCode(err, errors.ErrCodeConflict))
}

func TestEnsureAccount(t *testing.T) {
	service, _ := newService(t)
	ctx := context.Background()
	id := uuid.New()

	// an unknown subject id gets created under that exact id, so token
	// subjects and local rows stay interchangeable
	a, err := service.EnsureAccount(ctx, id, "Alice", "alice@example.com")
	require.NoError(t, err)
	require.Equal(t, id, a.ID)
	assert.Equal(t, "alice@example.com", a.Email)

	// the id now resolves to the same account
	got, err := service.GetAccount(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, id, got.ID)

	// a second call is idempotent and ignores the new details
	again, err := service.EnsureAccount(ctx, id, "Ignored", "ignored@example.com")
	require.NoError(t, err)
	assert.Equal(t, id, again.ID)
	assert.Equal(t, "alice@example.com", again.Email)
}

func TestUpdateRole_Audited(t *testing.T) {
	service, auditRepo := newService(t)
	ctx := context.Background()

	actor, err := service.CreateAccount(ctx, CreateAccountParams{FullName: "Root", Email: "root@example.com", IsSuperAdmin: true})
	require.NoError(t, err)
	target, err := service.CreateAccount(ctx, CreateAccountParams{FullName: "Bob", Email: "bob@example.com"})
	require.NoError(t, err)

	updated, err := service.UpdateRole(ctx, actor.ID, target.ID, true)
	require.NoError(t, err)
	assert.True(t, updated.IsSuperAdmin)

	logs := auditRepo.All()
	require.Len(t, logs, 1)
	assert.Equal(t, "account.role_updated", logs[0].Action)
	assert.Equal(t, "root@example.com", logs[0].ActorEmail)
	assert.Equal(t, "bob@example.com", logs[0].TargetEmail)
}

func TestUpdateStatus(t *testing.T) {
	service, auditRepo := newService(t)
	ctx := context.Background()

	actor, err := service.CreateAccount(ctx, CreateAccountParams{FullName: "Root", Email: "root@example.com", IsSuperAdmin: true})
	require.NoError(t, err)
	target, err := service.CreateAccount(ctx, CreateAccountParams{FullName: "Bob", Email: "bob@example.com"})
	require.NoError(t, err)

	_, err = service.UpdateStatus(ctx, actor.ID, target.ID, Status("frozen"))
	assert.True(t, errors.IsCode(err, errors.ErrCodeValidationFailed))

	updated, err := service.UpdateStatus(ctx, actor.ID, target.ID, StatusSuspended)
	require.NoError(t, err)
	assert.Equal(t, StatusSuspended, updated.Status)

	status, err := service.GetStatus(ctx, target.ID)
	require.NoError(t, err)
	assert.Equal(t, "suspended", status)

	require.Len(t, auditRepo.All(), 1)
}

func TestUpdateStatus_SucceedsWhenAuditFails(t *testing.T) {
	service, auditRepo := newService(t)
	ctx := context.Background()

	actor, err := service.CreateAccount(ctx, CreateAccountParams{FullName: "Root", Email: "root@example.com", IsSuperAdmin: true})
	require.NoError(t, err)
	target, err := service.CreateAccount(ctx, CreateAccountParams{FullName: "Bob", Email: "bob@example.com"})
	require.NoError(t, err)

	auditRepo.FailInsert = stderrors.New("audit store down")

	updated, err := service.UpdateStatus(ctx, actor.ID, target.ID, StatusInactive)
	require.NoError(t, err, "audit failure must not fail the operation")
	assert.Equal(t, StatusInactive, updated.Status)
	assert.Empty(t, auditRepo.All())
}

func TestEmailForAccount(t *testing.T) {
	service, _ := newService(t)
	ctx := context.Background()

	a, err := service.CreateAccount(ctx, CreateAccountParams{FullName: "Alice", Email: "alice@example.com"})
	require.NoError(t, err)

	email, err := service.EmailForAccount(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", email)

	_, err = service.EmailForAccount(ctx, uuid.New())
	assert.True(t, errors.IsCode(err, errors.ErrCodeAccountNotFound))
}
