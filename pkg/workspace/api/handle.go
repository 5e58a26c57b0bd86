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
	"github.com/tendant/simple-workspace/pkg/workspace"
)

type Handle struct {
	workspaceService *workspace.WorkspaceService
	accountService   *account.AccountService
}

func NewHandle(workspaceService *workspace.WorkspaceService, accountService *account.AccountService) *Handle {
	return &Handle{
		workspaceService: workspaceService,
		accountService:   accountService,
	}
}

// WorkspaceResponse is the wire representation of a workspace
type WorkspaceResponse struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	AccountID   uuid.UUID `json:"account_id"`
	CreatedAt   time.Time `json:"created_at"`
}

// MembershipResponse is the wire representation of a membership
type MembershipResponse struct {
	ID          uuid.UUID `json:"id"`
	WorkspaceID uuid.UUID `json:"workspace_id"`
	AccountID   uuid.UUID `json:"account_id"`
	Role        string    `json:"role"`
	CreatedAt   time.Time `json:"created_at"`
}

// MemberResponse is a membership joined with account identity
type MemberResponse struct {
	MembershipID uuid.UUID `json:"membership_id"`
	AccountID    uuid.UUID `json:"account_id"`
	Email        string    `json:"email"`
	FullName     string    `json:"full_name"`
	ProfileName  string    `json:"profile_name"`
	Role         string    `json:"role"`
	JoinedAt     time.Time `json:"joined_at"`
}

// OverviewResponse is a workspace with the caller's role and profile
type OverviewResponse struct {
	Workspace   WorkspaceResponse `json:"workspace"`
	Role        string            `json:"role"`
	ProfileName string            `json:"profile_name"`
}

// MeResponse is the caller's account and workspace overview
type MeResponse struct {
	ID           uuid.UUID          `json:"id"`
	FullName     string             `json:"full_name"`
	Email        string             `json:"email"`
	Phone        string             `json:"phone,omitempty"`
	IsSuperAdmin bool               `json:"is_super_admin"`
	Status       string             `json:"status"`
	Workspaces   []OverviewResponse `json:"workspaces"`
}

func toWorkspaceResponse(ws workspace.Workspace) WorkspaceResponse {
	var resp WorkspaceResponse
	copier.Copy(&resp, &ws)
	return resp
}

func toMembershipResponse(m workspace.Membership) MembershipResponse {
	var resp MembershipResponse
	copier.Copy(&resp, &m)
	return resp
}

func toOverviewResponses(overviews []workspace.Overview) []OverviewResponse {
	resp := make([]OverviewResponse, len(overviews))
	for i, o := range overviews {
		resp[i] = OverviewResponse{
			Workspace:   toWorkspaceResponse(o.Workspace),
			Role:        o.Role,
			ProfileName: o.ProfileName,
		}
	}
	return resp
}

func authUser(w http.ResponseWriter, r *http.Request) (*client.AuthUser, bool) {
	user, ok := client.FromContext(r.Context())
	if !ok {
		response.Err(w, r, errors.Unauthorized("authentication required"))
		return nil, false
	}
	return user, true
}

func workspaceParam(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.Err(w, r, errors.ValidationFailed("id", "invalid UUID format"))
		return uuid.Nil, false
	}
	return id, true
}

// Me handles GET /me
func (h *Handle) Me(w http.ResponseWriter, r *http.Request) {
	user, ok := authUser(w, r)
	if !ok {
		return
	}

	a, err := h.accountService.GetAccount(r.Context(), user.AccountID)
	if err != nil {
		response.Err(w, r, err)
		return
	}

	overviews, err := h.workspaceService.ListForAccount(r.Context(), user.AccountID)
	if err != nil {
		response.Err(w, r, err)
		return
	}

	var resp MeResponse
	copier.Copy(&resp, &a)
	resp.Status = string(a.Status)
	resp.Workspaces = toOverviewResponses(overviews)
	response.OK(w, r, "session retrieved", resp)
}

// List handles GET /workspaces, returning the caller's workspaces
func (h *Handle) List(w http.ResponseWriter, r *http.Request) {
	user, ok := authUser(w, r)
	if !ok {
		return
	}

	overviews, err := h.workspaceService.ListForAccount(r.Context(), user.AccountID)
	if err != nil {
		response.Err(w, r, err)
		return
	}
	response.OK(w, r, "workspaces retrieved", toOverviewResponses(overviews))
}

// Create handles POST /workspaces
func (h *Handle) Create(w http.ResponseWriter, r *http.Request) {
	user, ok := authUser(w, r)
	if !ok {
		return
	}

	var body struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		response.Err(w, r, errors.ValidationFailed("body", "invalid JSON"))
		return
	}

	ws, err := h.workspaceService.CreateWorkspace(r.Context(), user.AccountID, body.Name, body.Description)
	if err != nil {
		response.Err(w, r, err)
		return
	}
	response.Created(w, r, "workspace created", toWorkspaceResponse(ws))
}

// Get handles GET /workspaces/{id}
func (h *Handle) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := workspaceParam(w, r)
	if !ok {
		return
	}

	ws, err := h.workspaceService.GetWorkspace(r.Context(), id)
	if err != nil {
		response.Err(w, r, err)
		return
	}
	response.OK(w, r, "workspace retrieved", toWorkspaceResponse(ws))
}

// Update handles PATCH /workspaces/{id}
func (h *Handle) Update(w http.ResponseWriter, r *http.Request) {
	user, ok := authUser(w, r)
	if !ok {
		return
	}
	id, ok := workspaceParam(w, r)
	if !ok {
		return
	}

	var body struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		response.Err(w, r, errors.ValidationFailed("body", "invalid JSON"))
		return
	}

	ws, err := h.workspaceService.UpdateWorkspace(r.Context(), user.AccountID, workspace.UpdateWorkspaceParams{
		ID:          id,
		Name:        body.Name,
		Description: body.Description,
	})
	if err != nil {
		response.Err(w, r, err)
		return
	}
	response.OK(w, r, "workspace updated", toWorkspaceResponse(ws))
}

// Delete handles DELETE /workspaces/{id}
func (h *Handle) Delete(w http.ResponseWriter, r *http.Request) {
	user, ok := authUser(w, r)
	if !ok {
		return
	}
	id, ok := workspaceParam(w, r)
	if !ok {
		return
	}

	if err := h.workspaceService.DeleteWorkspace(r.Context(), user.AccountID, id); err != nil {
		response.Err(w, r, err)
		return
	}
	response.OK(w, r, "workspace deleted", nil)
}

// UpdateProfile handles PATCH /workspaces/{id}/profile
func (h *Handle) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	user, ok := authUser(w, r)
	if !ok {
		return
	}
	id, ok := workspaceParam(w, r)
	if !ok {
		return
	}

	var body struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		response.Err(w, r, errors.ValidationFailed("body", "invalid JSON"))
		return
	}

	p, err := h.workspaceService.UpdateProfile(r.Context(), user.AccountID, id, body.Name)
	if err != nil {
		response.Err(w, r, err)
		return
	}
	response.OK(w, r, "profile updated", struct {
		ID          uuid.UUID `json:"id"`
		Name        string    `json:"name"`
		WorkspaceID uuid.UUID `json:"workspace_id"`
		AccountID   uuid.UUID `json:"account_id"`
	}{p.ID, p.Name, p.WorkspaceID, p.AccountID})
}

// ListMembers handles GET /workspaces/{id}/members
func (h *Handle) ListMembers(w http.ResponseWriter, r *http.Request) {
	id, ok := workspaceParam(w, r)
	if !ok {
		return
	}

	members, err := h.workspaceService.ListMembers(r.Context(), id)
	if err != nil {
		response.Err(w, r, err)
		return
	}

	resp := make([]MemberResponse, len(members))
	for i, m := range members {
		copier.Copy(&resp[i], &m)
	}
	response.OK(w, r, "members retrieved", resp)
}

// AddMember handles POST /workspaces/{id}/members
func (h *Handle) AddMember(w http.ResponseWriter, r *http.Request) {
	user, ok := authUser(w, r)
	if !ok {
		return
	}
	id, ok := workspaceParam(w, r)
	if !ok {
		return
	}

	var body struct {
		Email       string `json:"email"`
		Role        string `json:"role"`
		ProfileName string `json:"profile_name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		response.Err(w, r, errors.ValidationFailed("body", "invalid JSON"))
		return
	}
	if body.Email == "" {
		response.Err(w, r, errors.MissingParameter("email"))
		return
	}

	m, err := h.workspaceService.AddMember(r.Context(), user.AccountID, id, body.Email, body.Role, body.ProfileName)
	if err != nil {
		response.Err(w, r, err)
		return
	}
	response.Created(w, r, "member added", toMembershipResponse(m))
}

// UpdateMemberRole handles PUT /workspaces/{id}/members/{memberId}
func (h *Handle) UpdateMemberRole(w http.ResponseWriter, r *http.Request) {
	user, ok := authUser(w, r)
	if !ok {
		return
	}
	id, ok := workspaceParam(w, r)
	if !ok {
		return
	}
	memberID, err := uuid.Parse(chi.URLParam(r, "memberId"))
	if err != nil {
		response.Err(w, r, errors.ValidationFailed("memberId", "invalid UUID format"))
		return
	}

	var body struct {
		Role string `json:"role"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		response.Err(w, r, errors.ValidationFailed("body", "invalid JSON"))
		return
	}

	m, err := h.workspaceService.UpdateMemberRole(r.Context(), user.AccountID, id, memberID, body.Role)
	if err != nil {
		response.Err(w, r, err)
		return
	}
	response.OK(w, r, "member role updated", toMembershipResponse(m))
}

// RemoveMember handles DELETE /workspaces/{id}/members/{memberId}
func (h *Handle) RemoveMember(w http.ResponseWriter, r *http.Request) {
	user, ok := authUser(w, r)
	if !ok {
		return
	}
	id, ok := workspaceParam(w, r)
	if !ok {
		return
	}
	memberID, err := uuid.Parse(chi.URLParam(r, "memberId"))
	if err != nil {
		response.Err(w, r, errors.ValidationFailed("memberId", "invalid UUID format"))
		return
	}

	if err := h.workspaceService.RemoveMember(r.Context(), user.AccountID, id, memberID); err != nil {
		response.Err(w, r, err)
		return
	}
	response.OK(w, r, "member removed", nil)
}

// AdminListWorkspaces handles GET /admin/workspaces
func (h *Handle) AdminListWorkspaces(w http.ResponseWriter, r *http.Request) {
	workspaces, err := h.workspaceService.ListWorkspaces(r.Context())
	if err != nil {
		response.Err(w, r, err)
		return
	}

	resp := make([]WorkspaceResponse, len(workspaces))
	for i, ws := range workspaces {
		resp[i] = toWorkspaceResponse(ws)
	}
	response.OK(w, r, "workspaces retrieved", resp)
}

// AdminListMemberships handles GET /admin/memberships
func (h *Handle) AdminListMemberships(w http.ResponseWriter, r *http.Request) {
	memberships, err := h.workspaceService.ListMemberships(r.Context())
	if err != nil {
		response.Err(w, r, err)
		return
	}

	resp := make([]MembershipResponse, len(memberships))
	for i, m := range memberships {
		resp[i] = toMembershipResponse(m)
	}
	response.OK(w, r, "memberships retrieved", resp)
}
