package account

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

// PostgresAccountRepository implements AccountRepository using PostgreSQL
type PostgresAccountRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresAccountRepository creates a new PostgreSQL account repository
func NewPostgresAccountRepository(pool *pgxpool.Pool) *PostgresAccountRepository {
	return &PostgresAccountRepository{
		pool: pool,
	}
}

const accountColumns = `id, full_name, email, phone, is_super_admin, status, created_at`

func scanAccount(row pgx.Row) (Account, error) {
	var a Account
	err := row.Scan(
		&a.ID,
		&a.FullName,
		&a.Email,
		&a.Phone,
		&a.IsSuperAdmin,
		&a.Status,
		&a.CreatedAt,
	)
	return a, err
}

// Create inserts a new account, under arg.ID when it is set
func (r *PostgresAccountRepository) Create(ctx context.Context, arg CreateAccountParams) (Account, error) {
	id := arg.ID
	if id == uuid.Nil {
		id = uuid.New()
	}

	query := `
		INSERT INTO account (id, full_name, email, phone, is_super_admin, status)
		VALUES ($1, $2, $3, $4, $5, 'active')
		RETURNING ` + accountColumns

	a, err := scanAccount(r.pool.QueryRow(ctx, query, id, arg.FullName, arg.Email, arg.Phone, arg.IsSuperAdmin))
	if err != nil {
		var pgErr *pgconn.PgError
		if stderrors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return Account{}, errors.Conflict(fmt.Sprintf("account with email %s already exists", arg.Email))
		}
		return Account{}, errors.DatabaseWrap(err, "failed to create account")
	}

	return a, nil
}

// GetByID retrieves an account by its ID
func (r *PostgresAccountRepository) GetByID(ctx context.Context, id uuid.UUID) (Account, error) {
	query := `SELECT ` + accountColumns + ` FROM account WHERE id = $1`

	a, err := scanAccount(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if stderrors.Is(err, pgx.ErrNoRows) {
			return Account{}, errors.AccountNotFound(id.String())
		}
		return Account{}, errors.DatabaseWrap(err, "failed to get account")
	}

	return a, nil
}

// GetByEmail retrieves an account by its unique email
func (r *PostgresAccountRepository) GetByEmail(ctx context.Context, email string) (Account, error) {
	query := `SELECT ` + accountColumns + ` FROM account WHERE email = $1`

	a, err := scanAccount(r.pool.QueryRow(ctx, query, email))
	if err != nil {
		if stderrors.Is(err, pgx.ErrNoRows) {
			return Account{}, errors.AccountNotFound(email)
		}
		return Account{}, errors.DatabaseWrap(err, "failed to get account by email")
	}

	return a, nil
}

// List returns all accounts ordered by creation time
func (r *PostgresAccountRepository) List(ctx context.Context) ([]Account, error) {
	query := `SELECT ` + accountColumns + ` FROM account ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, errors.DatabaseWrap(err, "failed to list accounts")
	}
	defer rows.Close()

	var accounts []Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, errors.DatabaseWrap(err, "failed to scan account")
		}
		accounts = append(accounts, a)
	}

	if rows.Err() != nil {
		return nil, errors.DatabaseWrap(rows.Err(), "error iterating accounts")
	}

	return accounts, nil
}

// UpdateInfo updates an account's own details
func (r *PostgresAccountRepository) UpdateInfo(ctx context.Context, arg UpdateAccountParams) (Account, error) {
	query := `
		UPDATE account
		SET full_name = COALESCE(NULLIF($2, ''), full_name),
		    phone = COALESCE(NULLIF($3, ''), phone)
		WHERE id = $1
		RETURNING ` + accountColumns

	a, err := scanAccount(r.pool.QueryRow(ctx, query, arg.ID, arg.FullName, arg.Phone))
	if err != nil {
		if stderrors.Is(err, pgx.ErrNoRows) {
			return Account{}, errors.AccountNotFound(arg.ID.String())
		}
		return Account{}, errors.DatabaseWrap(err, "failed to update account")
	}

	return a, nil
}

// UpdateSuperAdmin sets the global superadmin flag
func (r *PostgresAccountRepository) UpdateSuperAdmin(ctx context.Context, id uuid.UUID, isSuperAdmin bool) (Account, error) {
	query := `
		UPDATE account
		SET is_super_admin = $2
		WHERE id = $1
		RETURNING ` + accountColumns

	a, err := scanAccount(r.pool.QueryRow(ctx, query, id, isSuperAdmin))
	if err != nil {
		if stderrors.Is(err, pgx.ErrNoRows) {
			return Account{}, errors.AccountNotFound(id.String())
		}
		return Account{}, errors.DatabaseWrap(err, "failed to update account role")
	}

	return a, nil
}

// UpdateStatus sets the account lifecycle status
func (r *PostgresAccountRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status Status) (Account, error) {
	query := `
		UPDATE account
		SET status = $2
		WHERE id = $1
		RETURNING ` + accountColumns

	a, err := scanAccount(r.pool.QueryRow(ctx, query, id, status))
	if err != nil {
		if stderrors.Is(err, pgx.ErrNoRows) {
			return Account{}, errors.AccountNotFound(id.String())
		}
		return Account{}, errors.DatabaseWrap(err, "failed to update account status")
	}

	return a, nil
}
