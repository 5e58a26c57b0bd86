package api

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"github.com/tendant/simple-workspace/pkg/account"
	"github.com/tendant/simple-workspace/pkg/errors"
	"github.com/tendant/simple-workspace/pkg/idp"
	"github.com/tendant/simple-workspace/pkg/response"
)

// Handle passes credentials through to the identity provider and keeps
// the local account table in step with it.
type Handle struct {
	idpClient      *idp.Client
	accountService *account.AccountService
}

func NewHandle(idpClient *idp.Client, accountService *account.AccountService) *Handle {
	return &Handle{
		idpClient:      idpClient,
		accountService: accountService,
	}
}

// TokenResponse carries the identity provider's tokens back to the caller
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	ExpiresIn    int    `json:"expires_in,omitempty"`
}

// Login handles POST /login
func (h *Handle) Login(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		response.Err(w, r, errors.ValidationFailed("body", "invalid JSON"))
		return
	}
	if body.Email == "" {
		response.Err(w, r, errors.MissingParameter("email"))
		return
	}
	if body.Password == "" {
		response.Err(w, r, errors.MissingParameter("password"))
		return
	}

	tokens, err := h.idpClient.SignIn(r.Context(), body.Email, body.Password)
	if err != nil {
		response.Err(w, r, err)
		return
	}

	response.OK(w, r, "login successful", TokenResponse{
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
		ExpiresIn:    tokens.ExpiresIn,
	})
}

// Signup handles POST /signup: registers with the identity provider and
// creates the matching local account under the provider's subject ID
func (h *Handle) Signup(w http.ResponseWriter, r *http.Request) {
	var body struct {
		FullName string `json:"full_name"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		response.Err(w, r, errors.ValidationFailed("body", "invalid JSON"))
		return
	}
	if body.FullName == "" {
		response.Err(w, r, errors.MissingParameter("full_name"))
		return
	}
	if body.Email == "" {
		response.Err(w, r, errors.MissingParameter("email"))
		return
	}
	if body.Password == "" {
		response.Err(w, r, errors.MissingParameter("password"))
		return
	}

	tokens, err := h.idpClient.SignUp(r.Context(), body.FullName, body.Email, body.Password)
	if err != nil {
		response.Err(w, r, err)
		return
	}

	subjectID, err := uuid.Parse(tokens.SubjectID)
	if err != nil {
		response.Err(w, r, errors.Internal("identity provider returned an invalid subject"))
		return
	}

	if _, err := h.accountService.EnsureAccount(r.Context(), subjectID, body.FullName, body.Email); err != nil {
		response.Err(w, r, err)
		return
	}

	response.Created(w, r, "signup successful", TokenResponse{
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
		ExpiresIn:    tokens.ExpiresIn,
	})
}

// Healthz handles GET /healthz
func (h *Handle) Healthz(w http.ResponseWriter, r *http.Request) {
	response.OK(w, r, "ok", nil)
}
