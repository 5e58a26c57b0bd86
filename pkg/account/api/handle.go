package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jinzhu/copier"

	"github.com/tendant/simple-workspace/pkg/account"
	"github.com/tendant/simple-workspace/pkg/client"
	"github.com/tendant/simple-workspace/pkg/errors"
	"github.com/tendant/simple-workspace/pkg/response"
)

type Handle struct {
	accountService *account.AccountService
}

func NewHandle(accountService *account.AccountService) *Handle {
	return &Handle{
		accountService: accountService,
	}
}

// AccountResponse is the wire representation of an account
type AccountResponse struct {
	ID           uuid.UUID `json:"id"`
	FullName     string    `json:"full_name"`
	Email        string    `json:"email"`
	Phone        string    `json:"phone,omitempty"`
	IsSuperAdmin bool      `json:"is_super_admin"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
}

func toAccountResponse(a account.Account) AccountResponse {
	var resp AccountResponse
	copier.Copy(&resp, &a)
	resp.Status = string(a.Status)
	return resp
}

// List handles GET /admin/accounts
func (h *Handle) List(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.accountService.ListAccounts(r.Context())
	if err != nil {
		response.Err(w, r, err)
		return
	}

	resp := make([]AccountResponse, len(accounts))
	for i, a := range accounts {
		resp[i] = toAccountResponse(a)
	}
	response.OK(w, r, "accounts retrieved", resp)
}

// Create handles POST /admin/accounts
func (h *Handle) Create(w http.ResponseWriter, r *http.Request) {
	var body struct {
		FullName     string `json:"full_name"`
		Email        string `json:"email"`
		Phone        string `json:"phone"`
		IsSuperAdmin bool   `json:"is_super_admin"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		response.Err(w, r, errors.ValidationFailed("body", "invalid JSON"))
		return
	}

	var params account.CreateAccountParams
	copier.Copy(&params, &body)

	a, err := h.accountService.CreateAccount(r.Context(), params)
	if err != nil {
		response.Err(w, r, err)
		return
	}
	response.Created(w, r, "account created", toAccountResponse(a))
}

// Get handles GET /accounts/{id}
func (h *Handle) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.Err(w, r, errors.ValidationFailed("id", "invalid UUID format"))
		return
	}

	a, err := h.accountService.GetAccount(r.Context(), id)
	if err != nil {
		response.Err(w, r, err)
		return
	}
	response.OK(w, r, "account retrieved", toAccountResponse(a))
}

// Update handles PATCH /accounts/{id}
func (h *Handle) Update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.Err(w, r, errors.ValidationFailed("id", "invalid UUID format"))
		return
	}

	var body struct {
		FullName string `json:"full_name"`
		Phone    string `json:"phone"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		response.Err(w, r, errors.ValidationFailed("body", "invalid JSON"))
		return
	}

	a, err := h.accountService.UpdateAccount(r.Context(), account.UpdateAccountParams{
		ID:       id,
		FullName: body.FullName,
		Phone:    body.Phone,
	})
	if err != nil {
		response.Err(w, r, err)
		return
	}
	response.OK(w, r, "account updated", toAccountResponse(a))
}

// UpdateRole handles PUT /admin/accounts/{id}/role
func (h *Handle) UpdateRole(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.Err(w, r, errors.ValidationFailed("id", "invalid UUID format"))
		return
	}

	var body struct {
		IsSuperAdmin *bool `json:"is_super_admin"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		response.Err(w, r, errors.ValidationFailed("body", "invalid JSON"))
		return
	}
	if body.IsSuperAdmin == nil {
		response.Err(w, r, errors.MissingParameter("is_super_admin"))
		return
	}

	actor, ok := client.FromContext(r.Context())
	if !ok {
		response.Err(w, r, errors.Unauthorized("authentication required"))
		return
	}

	a, err := h.accountService.UpdateRole(r.Context(), actor.AccountID, id, *body.IsSuperAdmin)
	if err != nil {
		response.Err(w, r, err)
		return
	}
	response.OK(w, r, "account role updated", toAccountResponse(a))
}

// UpdateStatus handles PUT /admin/accounts/{id}/status
func (h *Handle) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.Err(w, r, errors.ValidationFailed("id", "invalid UUID format"))
		return
	}

	var body struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		response.Err(w, r, errors.ValidationFailed("body", "invalid JSON"))
		return
	}
	if body.Status == "" {
		response.Err(w, r, errors.MissingParameter("status"))
		return
	}

	actor, ok := client.FromContext(r.Context())
	if !ok {
		response.Err(w, r, errors.Unauthorized("authentication required"))
		return
	}

	a, err := h.accountService.UpdateStatus(r.Context(), actor.AccountID, id, account.Status(body.Status))
	if err != nil {
		response.Err(w, r, err)
		return
	}
	response.OK(w, r, "account status updated", toAccountResponse(a))
}
