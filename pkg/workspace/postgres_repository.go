package workspace

import (
	"context"
	stderrors "errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tendant/simple-workspace/pkg/errors"
)

// PostgresWorkspaceRepository implements WorkspaceRepository using PostgreSQL
type PostgresWorkspaceRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresWorkspaceRepository creates a new PostgreSQL workspace repository
func NewPostgresWorkspaceRepository(pool *pgxpool.Pool) *PostgresWorkspaceRepository {
	return &PostgresWorkspaceRepository{
		pool: pool,
	}
}

const workspaceColumns = `id, name, description, account_id, created_at`
const membershipColumns = `id, workspace_id, account_id, role, created_at`
const profileColumns = `id, name, workspace_id, account_id, created_at`

func scanWorkspace(row pgx.Row) (Workspace, error) {
	var ws Workspace
	err := row.Scan(
		&ws.ID,
		&ws.Name,
		&ws.Description,
		&ws.AccountID,
		&ws.CreatedAt,
	)
	return ws, err
}

func scanMembership(row pgx.Row) (Membership, error) {
	var m Membership
	err := row.Scan(
		&m.ID,
		&m.WorkspaceID,
		&m.AccountID,
		&m.Role,
		&m.CreatedAt,
	)
	return m, err
}

func scanProfile(row pgx.Row) (Profile, error) {
	var p Profile
	err := row.Scan(
		&p.ID,
		&p.Name,
		&p.WorkspaceID,
		&p.AccountID,
		&p.CreatedAt,
	)
	return p, err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return stderrors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation
}

// CreateWorkspace inserts the workspace, the creator's admin membership
// and the creator's profile in a single transaction
func (r *PostgresWorkspaceRepository) CreateWorkspace(ctx context.Context, arg CreateWorkspaceParams) (Workspace, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Workspace{}, errors.DatabaseWrap(err, "failed to begin transaction")
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO workspace (name, description, account_id)
		VALUES ($1, $2, $3)
		RETURNING ` + workspaceColumns

	ws, err := scanWorkspace(tx.QueryRow(ctx, query, arg.Name, arg.Description, arg.AccountID))
	if err != nil {
		return Workspace{}, errors.DatabaseWrap(err, "failed to create workspace")
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO membership (workspace_id, account_id, role)
		VALUES ($1, $2, $3)`,
		ws.ID, arg.AccountID, RoleAdmin)
	if err != nil {
		return Workspace{}, errors.DatabaseWrap(err, "failed to create membership")
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO profile (name, workspace_id, account_id)
		VALUES ($1, $2, $3)`,
		arg.ProfileName, ws.ID, arg.AccountID)
	if err != nil {
		return Workspace{}, errors.DatabaseWrap(err, "failed to create profile")
	}

	if err := tx.Commit(ctx); err != nil {
		return Workspace{}, errors.DatabaseWrap(err, "failed to commit transaction")
	}

	return ws, nil
}

// GetWorkspace retrieves a workspace by its ID
func (r *PostgresWorkspaceRepository) GetWorkspace(ctx context.Context, id uuid.UUID) (Workspace, error) {
	query := `SELECT ` + workspaceColumns + ` FROM workspace WHERE id = $1`

	ws, err := scanWorkspace(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if stderrors.Is(err, pgx.ErrNoRows) {
			return Workspace{}, errors.WorkspaceNotFound(id.String())
		}
		return Workspace{}, errors.DatabaseWrap(err, "failed to get workspace")
	}

	return ws, nil
}

// UpdateWorkspace updates a workspace's name and description
func (r *PostgresWorkspaceRepository) UpdateWorkspace(ctx context.Context, arg UpdateWorkspaceParams) (Workspace, error) {
	query := `
		UPDATE workspace
		SET name = COALESCE(NULLIF($2, ''), name),
		    description = COALESCE(NULLIF($3, ''), description)
		WHERE id = $1
		RETURNING ` + workspaceColumns

	ws, err := scanWorkspace(r.pool.QueryRow(ctx, query, arg.ID, arg.Name, arg.Description))
	if err != nil {
		if stderrors.Is(err, pgx.ErrNoRows) {
			return Workspace{}, errors.WorkspaceNotFound(arg.ID.String())
		}
		return Workspace{}, errors.DatabaseWrap(err, "failed to update workspace")
	}

	return ws, nil
}

// DeleteWorkspace removes profiles, memberships and the workspace row
// in a single transaction
func (r *PostgresWorkspaceRepository) DeleteWorkspace(ctx context.Context, id uuid.UUID) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return errors.DatabaseWrap(err, "failed to begin transaction")
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM profile WHERE workspace_id = $1`, id); err != nil {
		return errors.DatabaseWrap(err, "failed to delete profiles")
	}
	if _, err := tx.Exec(ctx, `DELETE FROM membership WHERE workspace_id = $1`, id); err != nil {
		return errors.DatabaseWrap(err, "failed to delete memberships")
	}

	tag, err := tx.Exec(ctx, `DELETE FROM workspace WHERE id = $1`, id)
	if err != nil {
		return errors.DatabaseWrap(err, "failed to delete workspace")
	}
	if tag.RowsAffected() == 0 {
		return errors.WorkspaceNotFound(id.String())
	}

	if err := tx.Commit(ctx); err != nil {
		return errors.DatabaseWrap(err, "failed to commit transaction")
	}

	return nil
}

// ListWorkspaces returns all workspaces ordered by creation time
func (r *PostgresWorkspaceRepository) ListWorkspaces(ctx context.Context) ([]Workspace, error) {
	query := `SELECT ` + workspaceColumns + ` FROM workspace ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, errors.DatabaseWrap(err, "failed to list workspaces")
	}
	defer rows.Close()

	var workspaces []Workspace
	for rows.Next() {
		ws, err := scanWorkspace(rows)
		if err != nil {
			return nil, errors.DatabaseWrap(err, "failed to scan workspace")
		}
		workspaces = append(workspaces, ws)
	}

	if rows.Err() != nil {
		return nil, errors.DatabaseWrap(rows.Err(), "error iterating workspaces")
	}

	return workspaces, nil
}

// ListForAccount returns every workspace the account belongs to, with
// the account's role and profile in each
func (r *PostgresWorkspaceRepository) ListForAccount(ctx context.Context, accountID uuid.UUID) ([]Overview, error) {
	query := `
		SELECT w.id, w.name, w.description, w.account_id, w.created_at,
		       m.role, COALESCE(p.name, '')
		FROM membership m
		JOIN workspace w ON w.id = m.workspace_id
		LEFT JOIN profile p ON p.workspace_id = m.workspace_id AND p.account_id = m.account_id
		WHERE m.account_id = $1
		ORDER BY w.created_at DESC`

	rows, err := r.pool.Query(ctx, query, accountID)
	if err != nil {
		return nil, errors.DatabaseWrap(err, "failed to list workspaces for account")
	}
	defer rows.Close()

	var overviews []Overview
	for rows.Next() {
		var o Overview
		err := rows.Scan(
			&o.Workspace.ID,
			&o.Workspace.Name,
			&o.Workspace.Description,
			&o.Workspace.AccountID,
			&o.Workspace.CreatedAt,
			&o.Role,
			&o.ProfileName,
		)
		if err != nil {
			return nil, errors.DatabaseWrap(err, "failed to scan workspace overview")
		}
		overviews = append(overviews, o)
	}

	if rows.Err() != nil {
		return nil, errors.DatabaseWrap(rows.Err(), "error iterating workspace overviews")
	}

	return overviews, nil
}

// AddMember inserts the membership and profile atomically
func (r *PostgresWorkspaceRepository) AddMember(ctx context.Context, arg AddMemberParams) (Membership, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Membership{}, errors.DatabaseWrap(err, "failed to begin transaction")
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO membership (workspace_id, account_id, role)
		VALUES ($1, $2, $3)
		RETURNING ` + membershipColumns

	m, err := scanMembership(tx.QueryRow(ctx, query, arg.WorkspaceID, arg.AccountID, arg.Role))
	if err != nil {
		if isUniqueViolation(err) {
			return Membership{}, errors.Conflict("account is already a member of this workspace")
		}
		return Membership{}, errors.DatabaseWrap(err, "failed to create membership")
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO profile (name, workspace_id, account_id)
		VALUES ($1, $2, $3)`,
		arg.ProfileName, arg.WorkspaceID, arg.AccountID)
	if err != nil {
		if isUniqueViolation(err) {
			return Membership{}, errors.Conflict("account already has a profile in this workspace")
		}
		return Membership{}, errors.DatabaseWrap(err, "failed to create profile")
	}

	if err := tx.Commit(ctx); err != nil {
		return Membership{}, errors.DatabaseWrap(err, "failed to commit transaction")
	}

	return m, nil
}

// ListMembers returns the members of a workspace with account identity
func (r *PostgresWorkspaceRepository) ListMembers(ctx context.Context, workspaceID uuid.UUID) ([]Member, error) {
	query := `
		SELECT m.id, m.account_id, a.email, a.full_name, COALESCE(p.name, ''), m.role, m.created_at
		FROM membership m
		JOIN account a ON a.id = m.account_id
		LEFT JOIN profile p ON p.workspace_id = m.workspace_id AND p.account_id = m.account_id
		WHERE m.workspace_id = $1
		ORDER BY m.created_at ASC`

	rows, err := r.pool.Query(ctx, query, workspaceID)
	if err != nil {
		return nil, errors.DatabaseWrap(err, "failed to list members")
	}
	defer rows.Close()

	var members []Member
	for rows.Next() {
		var m Member
		err := rows.Scan(
			&m.MembershipID,
			&m.AccountID,
			&m.Email,
			&m.FullName,
			&m.ProfileName,
			&m.Role,
			&m.JoinedAt,
		)
		if err != nil {
			return nil, errors.DatabaseWrap(err, "failed to scan member")
		}
		members = append(members, m)
	}

	if rows.Err() != nil {
		return nil, errors.DatabaseWrap(rows.Err(), "error iterating members")
	}

	return members, nil
}

// ListMemberships returns all memberships across workspaces
func (r *PostgresWorkspaceRepository) ListMemberships(ctx context.Context) ([]Membership, error) {
	query := `SELECT ` + membershipColumns + ` FROM membership ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, errors.DatabaseWrap(err, "failed to list memberships")
	}
	defer rows.Close()

	var memberships []Membership
	for rows.Next() {
		m, err := scanMembership(rows)
		if err != nil {
			return nil, errors.DatabaseWrap(err, "failed to scan membership")
		}
		memberships = append(memberships, m)
	}

	if rows.Err() != nil {
		return nil, errors.DatabaseWrap(rows.Err(), "error iterating memberships")
	}

	return memberships, nil
}

// GetMembership retrieves the membership for an account in a workspace
func (r *PostgresWorkspaceRepository) GetMembership(ctx context.Context, workspaceID, accountID uuid.UUID) (Membership, error) {
	query := `SELECT ` + membershipColumns + ` FROM membership WHERE workspace_id = $1 AND account_id = $2`

	m, err := scanMembership(r.pool.QueryRow(ctx, query, workspaceID, accountID))
	if err != nil {
		if stderrors.Is(err, pgx.ErrNoRows) {
			return Membership{}, errors.NotFound("membership", fmt.Sprintf("%s/%s", workspaceID, accountID))
		}
		return Membership{}, errors.DatabaseWrap(err, "failed to get membership")
	}

	return m, nil
}

// GetMembershipByID retrieves a membership by its own ID
func (r *PostgresWorkspaceRepository) GetMembershipByID(ctx context.Context, membershipID uuid.UUID) (Membership, error) {
	query := `SELECT ` + membershipColumns + ` FROM membership WHERE id = $1`

	m, err := scanMembership(r.pool.QueryRow(ctx, query, membershipID))
	if err != nil {
		if stderrors.Is(err, pgx.ErrNoRows) {
			return Membership{}, errors.NotFound("membership", membershipID.String())
		}
		return Membership{}, errors.DatabaseWrap(err, "failed to get membership")
	}

	return m, nil
}

// lockedAdminCount counts the workspace's admin memberships inside the
// caller's transaction, locking the rows so a concurrent demotion or
// removal cannot race past the last-admin check.
func lockedAdminCount(ctx context.Context, tx pgx.Tx, workspaceID uuid.UUID) (int, error) {
	rows, err := tx.Query(ctx, `
		SELECT id FROM membership
		WHERE workspace_id = $1 AND role = $2
		FOR UPDATE`,
		workspaceID, RoleAdmin)
	if err != nil {
		return 0, err
	}
	defer rows.Close()

	count := 0
	for rows.Next() {
		count++
	}
	return count, rows.Err()
}

// UpdateMemberRole changes a member's role, refusing to demote the
// workspace's last admin
func (r *PostgresWorkspaceRepository) UpdateMemberRole(ctx context.Context, membershipID uuid.UUID, role string) (Membership, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Membership{}, errors.DatabaseWrap(err, "failed to begin transaction")
	}
	defer tx.Rollback(ctx)

	current, err := scanMembership(tx.QueryRow(ctx,
		`SELECT `+membershipColumns+` FROM membership WHERE id = $1 FOR UPDATE`, membershipID))
	if err != nil {
		if stderrors.Is(err, pgx.ErrNoRows) {
			return Membership{}, errors.NotFound("membership", membershipID.String())
		}
		return Membership{}, errors.DatabaseWrap(err, "failed to get membership")
	}

	if current.Role == RoleAdmin && role != RoleAdmin {
		admins, err := lockedAdminCount(ctx, tx, current.WorkspaceID)
		if err != nil {
			return Membership{}, errors.DatabaseWrap(err, "failed to count admins")
		}
		if admins <= 1 {
			return Membership{}, errors.ValidationFailed("role", "cannot demote the last admin of a workspace")
		}
	}

	m, err := scanMembership(tx.QueryRow(ctx, `
		UPDATE membership
		SET role = $2
		WHERE id = $1
		RETURNING `+membershipColumns,
		membershipID, role))
	if err != nil {
		return Membership{}, errors.DatabaseWrap(err, "failed to update member role")
	}

	if err := tx.Commit(ctx); err != nil {
		return Membership{}, errors.DatabaseWrap(err, "failed to commit transaction")
	}

	return m, nil
}

// RemoveMember deletes the membership and profile atomically, refusing
// to remove the workspace's last admin
func (r *PostgresWorkspaceRepository) RemoveMember(ctx context.Context, membershipID uuid.UUID) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return errors.DatabaseWrap(err, "failed to begin transaction")
	}
	defer tx.Rollback(ctx)

	current, err := scanMembership(tx.QueryRow(ctx,
		`SELECT `+membershipColumns+` FROM membership WHERE id = $1 FOR UPDATE`, membershipID))
	if err != nil {
		if stderrors.Is(err, pgx.ErrNoRows) {
			return errors.NotFound("membership", membershipID.String())
		}
		return errors.DatabaseWrap(err, "failed to get membership")
	}

	if current.Role == RoleAdmin {
		admins, err := lockedAdminCount(ctx, tx, current.WorkspaceID)
		if err != nil {
			return errors.DatabaseWrap(err, "failed to count admins")
		}
		if admins <= 1 {
			return errors.ValidationFailed("member", "cannot remove the last admin of a workspace")
		}
	}

	_, err = tx.Exec(ctx, `DELETE FROM profile WHERE workspace_id = $1 AND account_id = $2`,
		current.WorkspaceID, current.AccountID)
	if err != nil {
		return errors.DatabaseWrap(err, "failed to delete profile")
	}

	if _, err := tx.Exec(ctx, `DELETE FROM membership WHERE id = $1`, membershipID); err != nil {
		return errors.DatabaseWrap(err, "failed to delete membership")
	}

	if err := tx.Commit(ctx); err != nil {
		return errors.DatabaseWrap(err, "failed to commit transaction")
	}

	return nil
}

// UpdateProfile renames an account's profile within a workspace
func (r *PostgresWorkspaceRepository) UpdateProfile(ctx context.Context, workspaceID, accountID uuid.UUID, name string) (Profile, error) {
	query := `
		UPDATE profile
		SET name = $3
		WHERE workspace_id = $1 AND account_id = $2
		RETURNING ` + profileColumns

	p, err := scanProfile(r.pool.QueryRow(ctx, query, workspaceID, accountID, name))
	if err != nil {
		if stderrors.Is(err, pgx.ErrNoRows) {
			return Profile{}, errors.NotFound("profile", fmt.Sprintf("%s/%s", workspaceID, accountID))
		}
		return Profile{}, errors.DatabaseWrap(err, "failed to update profile")
	}

	return p, nil
}

// GetProfile retrieves an account's profile within a workspace
func (r *PostgresWorkspaceRepository) GetProfile(ctx context.Context, workspaceID, accountID uuid.UUID) (Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM profile WHERE workspace_id = $1 AND account_id = $2`

	p, err := scanProfile(r.pool.QueryRow(ctx, query, workspaceID, accountID))
	if err != nil {
		if stderrors.Is(err, pgx.ErrNoRows) {
			return Profile{}, errors.NotFound("profile", fmt.Sprintf("%s/%s", workspaceID, accountID))
		}
		return Profile{}, errors.DatabaseWrap(err, "failed to get profile")
	}

	return p, nil
}
