package workspace

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/tendant/simple-workspace/pkg/account"
	"github.com/tendant/simple-workspace/pkg/errors"
)

func setupTestDatabase(t *testing.T) (*pgxpool.Pool, func()) {
	ctx := context.Background()

	dbName := "workspace_db"
	dbUser := "workspace"
	dbPassword := "pwd"

	container, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithInitScripts(filepath.Join("../../migrations", "workspace_db.sql")),
		postgres.WithDatabase(dbName),
		postgres.WithUsername(dbUser),
		postgres.WithPassword(dbPassword),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(5*time.Second)),
	)
	require.NoError(t, err)

	connString, err := container.ConnectionString(ctx)
	require.NoError(t, err)

	poolConfig, err := pgxpool.ParseConfig(connString)
	require.NoError(t, err)

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	require.NoError(t, err)

	cleanup := func() {
		pool.Close()
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	}

	return pool, cleanup
}

func createTestAccount(t *testing.T, pool *pgxpool.Pool, name, email string) account.Account {
	t.Helper()

	accountRepo := account.NewPostgresAccountRepository(pool)
	a, err := accountRepo.Create(context.Background(), account.CreateAccountParams{
		FullName: name,
		Email:    email,
	})
	require.NoError(t, err)
	return a
}

func TestPostgresCreateWorkspace(t *testing.T) {
	ctx := context.Background()
	pool, cleanup := setupTestDatabase(t)
	defer cleanup()

	repo := NewPostgresWorkspaceRepository(pool)
	alice := createTestAccount(t, pool, "Alice", "alice@example.com")

	ws, err := repo.CreateWorkspace(ctx, CreateWorkspaceParams{
		Name:        "Design Team",
		Description: "drawings",
		AccountID:   alice.ID,
		ProfileName: "Alice",
	})
	require.NoError(t, err)
	assert.Equal(t, "Design Team", ws.Name)

	// creator's admin membership and profile landed in the same commit
	m, err := repo.GetMembership(ctx, ws.ID, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, RoleAdmin, m.Role)

	p, err := repo.GetProfile(ctx, ws.ID, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, "Alice", p.Name)

	overviews, err := repo.ListForAccount(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, overviews, 1)
	assert.Equal(t, RoleAdmin, overviews[0].Role)
	assert.Equal(t, "Alice", overviews[0].ProfileName)
}

func TestPostgresAccountKeepsProvidedID(t *testing.T) {
	ctx := context.Background()
	pool, cleanup := setupTestDatabase(t)
	defer cleanup()

	accountRepo := account.NewPostgresAccountRepository(pool)
	subjectID := uuid.New()

	// an account created under a provider subject id keeps that id
	a, err := accountRepo.Create(ctx, account.CreateAccountParams{
		ID:       subjectID,
		FullName: "Alice",
		Email:    "alice@example.com",
	})
	require.NoError(t, err)
	require.Equal(t, subjectID, a.ID)

	got, err := accountRepo.GetByID(ctx, subjectID)
	require.NoError(t, err)
	assert.Equal(t, subjectID, got.ID)
}

func TestPostgresAddMember(t *testing.T) {
	ctx := context.Background()
	pool, cleanup := setupTestDatabase(t)
	defer cleanup()

	repo := NewPostgresWorkspaceRepository(pool)
	alice := createTestAccount(t, pool, "Alice", "alice@example.com")
	bob := createTestAccount(t, pool, "Bob", "bob@example.com")

	ws, err := repo.CreateWorkspace(ctx, CreateWorkspaceParams{
		Name: "Team", AccountID: alice.ID, ProfileName: "Alice",
	})
	require.NoError(t, err)

	m, err := repo.AddMember(ctx, AddMemberParams{
		WorkspaceID: ws.ID,
		AccountID:   bob.ID,
		Role:        RoleUser,
		ProfileName: "Bob",
	})
	require.NoError(t, err)
	assert.Equal(t, RoleUser, m.Role)

	// second invite for the same account violates the unique constraint
	_, err = repo.AddMember(ctx, AddMemberParams{
		WorkspaceID: ws.ID,
		AccountID:   bob.ID,
		Role:        RoleAdmin,
		ProfileName: "Bob",
	})
	assert.True(t, errors.IsCode(err, errors.ErrCodeConflict))

	members, err := repo.ListMembers(ctx, ws.ID)
	require.NoError(t, err)
	require.Len(t, members, 2)
	assert.Equal(t, "alice@example.com", members[0].Email)
	assert.Equal(t, "bob@example.com", members[1].Email)
}

func TestPostgresLastAdminGuard(t *testing.T) {
	ctx := context.Background()
	pool, cleanup := setupTestDatabase(t)
	defer cleanup()

	repo := NewPostgresWorkspaceRepository(pool)
	alice := createTestAccount(t, pool, "Alice", "alice@example.com")
	bob := createTestAccount(t, pool, "Bob", "bob@example.com")

	ws, err := repo.CreateWorkspace(ctx, CreateWorkspaceParams{
		Name: "Team", AccountID: alice.ID, ProfileName: "Alice",
	})
	require.NoError(t, err)

	aliceMembership, err := repo.GetMembership(ctx, ws.ID, alice.ID)
	require.NoError(t, err)

	_, err = repo.UpdateMemberRole(ctx, aliceMembership.ID, RoleUser)
	assert.True(t, errors.IsCode(err, errors.ErrCodeValidationFailed))

	err = repo.RemoveMember(ctx, aliceMembership.ID)
	assert.True(t, errors.IsCode(err, errors.ErrCodeValidationFailed))

	// with a second admin in place the demotion succeeds
	_, err = repo.AddMember(ctx, AddMemberParams{
		WorkspaceID: ws.ID,
		AccountID:   bob.ID,
		Role:        RoleAdmin,
		ProfileName: "Bob",
	})
	require.NoError(t, err)

	m, err := repo.UpdateMemberRole(ctx, aliceMembership.ID, RoleUser)
	require.NoError(t, err)
	assert.Equal(t, RoleUser, m.Role)
}

func TestPostgresDeleteWorkspaceCascades(t *testing.T) {
	ctx := context.Background()
	pool, cleanup := setupTestDatabase(t)
	defer cleanup()

	repo := NewPostgresWorkspaceRepository(pool)
	alice := createTestAccount(t, pool, "Alice", "alice@example.com")
	bob := createTestAccount(t, pool, "Bob", "bob@example.com")

	ws, err := repo.CreateWorkspace(ctx, CreateWorkspaceParams{
		Name: "Team", AccountID: alice.ID, ProfileName: "Alice",
	})
	require.NoError(t, err)
	_, err = repo.AddMember(ctx, AddMemberParams{
		WorkspaceID: ws.ID, AccountID: bob.ID, Role: RoleUser, ProfileName: "Bob",
	})
	require.NoError(t, err)

	require.NoError(t, repo.DeleteWorkspace(ctx, ws.ID))

	_, err = repo.GetWorkspace(ctx, ws.ID)
	assert.True(t, errors.IsCode(err, errors.ErrCodeWorkspaceNotFound))

	members, err := repo.ListMembers(ctx, ws.ID)
	require.NoError(t, err)
	assert.Empty(t, members)

	err = repo.DeleteWorkspace(ctx, ws.ID)
	assert.True(t, errors.IsCode(err, errors.ErrCodeWorkspaceNotFound))
}

func TestPostgresUpdateWorkspace(t *testing.T) {
	ctx := context.Background()
	pool, cleanup := setupTestDatabase(t)
	defer cleanup()

	repo := NewPostgresWorkspaceRepository(pool)
	alice := createTestAccount(t, pool, "Alice", "alice@example.com")

	ws, err := repo.CreateWorkspace(ctx, CreateWorkspaceParams{
		Name: "Team", Description: "old", AccountID: alice.ID, ProfileName: "Alice",
	})
	require.NoError(t, err)

	updated, err := repo.UpdateWorkspace(ctx, UpdateWorkspaceParams{
		ID:   ws.ID,
		Name: "Renamed",
	})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Name)
	// blank fields keep their previous value
	assert.Equal(t, "old", updated.Description)

	_, err = repo.UpdateWorkspace(ctx, UpdateWorkspaceParams{ID: uuid.New(), Name: "x"})
	assert.True(t, errors.IsCode(err, errors.ErrCodeWorkspaceNotFound))
}
