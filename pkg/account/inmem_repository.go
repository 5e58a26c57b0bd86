package account

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tendant/simple-workspace/pkg/errors"
)

// InMemAccountRepository implements AccountRepository with in-memory
// storage, for tests and local development.
type InMemAccountRepository struct {
	mu       sync.RWMutex
	accounts map[uuid.UUID]Account
	byEmail  map[string]uuid.UUID
}

// NewInMemAccountRepository creates a new in-memory account repository
func NewInMemAccountRepository() *InMemAccountRepository {
	return &InMemAccountRepository{
		accounts: make(map[uuid.UUID]Account),
		byEmail:  make(map[string]uuid.UUID),
	}
}

// Create inserts a new account
func (r *InMemAccountRepository) Create(ctx context.Context, arg CreateAccountParams) (Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byEmail[arg.Email]; exists {
		return Account{}, errors.Conflict(fmt.Sprintf("account with email %s already exists", arg.Email))
	}

	id := arg.ID
	if id == uuid.Nil {
		id = uuid.New()
	}
	if _, exists := r.accounts[id]; exists {
		return Account{}, errors.Conflict(fmt.Sprintf("account %s already exists", id))
	}

	a := Account{
		ID:           id,
		FullName:     arg.FullName,
		Email:        arg.Email,
		Phone:        arg.Phone,
		IsSuperAdmin: arg.IsSuperAdmin,
		Status:       StatusActive,
		CreatedAt:    time.Now(),
	}

	r.accounts[a.ID] = a
	r.byEmail[a.Email] = a.ID
	return a, nil
}

// GetByID retrieves an account by its ID
func (r *InMemAccountRepository) GetByID(ctx context.Context, id uuid.UUID) (Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.accounts[id]
	if !ok {
		return Account{}, errors.AccountNotFound(id.String())
	}
	return a, nil
}

// GetByEmail retrieves an account by its unique email
func (r *InMemAccountRepository) GetByEmail(ctx context.Context, email string) (Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byEmail[email]
	if !ok {
		return Account{}, errors.AccountNotFound(email)
	}
	return r.accounts[id], nil
}

// List returns all accounts ordered by creation time, newest first
func (r *InMemAccountRepository) List(ctx context.Context) ([]Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	accounts := make([]Account, 0, len(r.accounts))
	for _, a := range r.accounts {
		accounts = append(accounts, a)
	}
	sort.Slice(accounts, func(i, j int) bool {
		return accounts[i].CreatedAt.After(accounts[j].CreatedAt)
	})
	return accounts, nil
}

// UpdateInfo updates an account's own details
func (r *InMemAccountRepository) UpdateInfo(ctx context.Context, arg UpdateAccountParams) (Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.accounts[arg.ID]
	if !ok {
		return Account{}, errors.AccountNotFound(arg.ID.String())
	}

	if arg.FullName != "" {
		a.FullName = arg.FullName
	}
	if arg.Phone != "" {
		a.Phone = arg.Phone
	}

	r.accounts[a.ID] = a
	return a, nil
}

// UpdateSuperAdmin sets the global superadmin flag
func (r *InMemAccountRepository) UpdateSuperAdmin(ctx context.Context, id uuid.UUID, isSuperAdmin bool) (Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.accounts[id]
	if !ok {
		return Account{}, errors.AccountNotFound(id.String())
	}

	a.IsSuperAdmin = isSuperAdmin
	r.accounts[id] = a
	return a, nil
}

// UpdateStatus sets the account lifecycle status
func (r *InMemAccountRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status Status) (Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.accounts[id]
	if !ok {
		return Account{}, errors.AccountNotFound(id.String())
	}

	a.Status = status
	r.accounts[id] = a
	return a, nil
}
