package authz

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tendant/simple-workspace/pkg/client"
	"github.com/tendant/simple-workspace/pkg/errors"
	"github.com/tendant/simple-workspace/pkg/idp"
	"github.com/tendant/simple-workspace/pkg/response"
)

type fakeVerifier struct {
	subjects map[string]*idp.Subject
}

func (f *fakeVerifier) Verify(ctx context.Context, token string) (*idp.Subject, error) {
	s, ok := f.subjects[token]
	if !ok {
		return nil, errors.InvalidToken("unknown token")
	}
	return s, nil
}

type fakeClaimsSource struct {
	claims map[uuid.UUID][]string
}

// ResolveClaims mirrors the real claims source: a malformed workspace id
// is a validation failure, an unknown account holds no claims.
func (f *fakeClaimsSource) ResolveClaims(ctx context.Context, accountID uuid.UUID, workspaceID string) ([]string, error) {
	if workspaceID != "" {
		if _, err := uuid.Parse(workspaceID); err != nil {
			return nil, errors.ValidationFailed(client.WorkspaceIDHeader, "invalid UUID format")
		}
	}
	return f.claims[accountID], nil
}

type fakeStatusReader struct {
	statuses map[uuid.UUID]string
}

func (f *fakeStatusReader) GetStatus(ctx context.Context, accountID uuid.UUID) (string, error) {
	status, ok := f.statuses[accountID]
	if !ok {
		return "", errors.AccountNotFound(accountID.String())
	}
	return status, nil
}

type pipelineFixture struct {
	router   *chi.Mux
	verifier *fakeVerifier
	claims   *fakeClaimsSource
	statuses *fakeStatusReader
	// identity seen by the /me handler
	seenUser *client.AuthUser
}

func newPipeline(t *testing.T) *pipelineFixture {
	t.Helper()

	f := &pipelineFixture{
		verifier: &fakeVerifier{subjects: map[string]*idp.Subject{}},
		claims:   &fakeClaimsSource{claims: map[uuid.UUID][]string{}},
		statuses: &fakeStatusReader{statuses: map[uuid.UUID]string{}},
	}

	mw := NewMiddleware(BuildRegistry(), f.verifier, f.claims, f.statuses)

	r := chi.NewRouter()
	r.Use(mw.Authenticator)
	r.Use(mw.Authorizer)
	r.Use(mw.AccountStatusGuard)

	ok := func(w http.ResponseWriter, r *http.Request) {
		if user, found := client.FromContext(r.Context()); found {
			f.seenUser = user
		}
		response.OK(w, r, "ok", nil)
	}

	r.Get("/healthz", ok)
	r.Get("/me", ok)
	r.Get("/workspaces", ok)
	r.Get("/workspaces/{id}", ok)
	r.Delete("/workspaces/{id}", ok)
	r.Get("/admin/accounts", ok)

	mw.SetRoutes(r)
	f.router = r
	return f
}

// addAccount registers a verifiable token and claims for a fresh account.
// Every account carries the base authenticated claim, same as the real
// claims source.
func (f *pipelineFixture) addAccount(token string, claims []string, status string) uuid.UUID {
	id := uuid.New()
	f.verifier.subjects[token] = &idp.Subject{ID: id.String(), Email: token + "@example.com"}
	f.claims.claims[id] = append([]string{ClaimAuthenticated}, claims...)
	f.statuses.statuses[id] = status
	return id
}

func do(t *testing.T, router http.Handler, method, path, token, workspaceID string) (*httptest.ResponseRecorder, response.Envelope) {
	t.Helper()

	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if workspaceID != "" {
		req.Header.Set(client.WorkspaceIDHeader, workspaceID)
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var env response.Envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return rec, env
}

func TestPipeline_PublicRouteNeedsNoToken(t *testing.T) {
	f := newPipeline(t)

	rec, env := do(t, f.router, http.MethodGet, "/healthz", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, env.Success)
}

func TestPipeline_MissingTokenRejected(t *testing.T) {
	f := newPipeline(t)

	rec, env := do(t, f.router, http.MethodGet, "/me", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, env.Success)
	assert.Equal(t, string(errors.ErrCodeUnauthorized), env.Error)
}

func TestPipeline_InvalidTokenRejected(t *testing.T) {
	f := newPipeline(t)

	rec, env := do(t, f.router, http.MethodGet, "/me", "garbage", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, string(errors.ErrCodeTokenInvalid), env.Error)
}

func TestPipeline_AuthenticatedCallerReachesHandler(t *testing.T) {
	f := newPipeline(t)
	id := f.addAccount("alice", []string{RoleUser}, "active")

	rec, env := do(t, f.router, http.MethodGet, "/me", "alice", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, env.Success)
	require.NotNil(t, f.seenUser)
	assert.Equal(t, id, f.seenUser.AccountID)
	assert.Equal(t, "alice@example.com", f.seenUser.Email)
}

func TestPipeline_WorkspaceRouteNeedsHeader(t *testing.T) {
	f := newPipeline(t)
	f.addAccount("alice", []string{RoleAdmin}, "active")

	rec, env := do(t, f.router, http.MethodGet, "/workspaces/"+uuid.NewString(), "alice", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, string(errors.ErrCodeMissingParameter), env.Error)
}

func TestPipeline_WorkspaceRoleEnforced(t *testing.T) {
	f := newPipeline(t)
	f.addAccount("admin", []string{RoleAdmin}, "active")
	f.addAccount("outsider", nil, "active")
	wsID := uuid.NewString()

	rec, _ := do(t, f.router, http.MethodGet, "/workspaces/"+wsID, "admin", wsID)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, env := do(t, f.router, http.MethodGet, "/workspaces/"+wsID, "outsider", wsID)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, env.Success)
}

func TestPipeline_WorkspaceHeaderMustMatchPath(t *testing.T) {
	f := newPipeline(t)
	f.addAccount("admin", []string{RoleAdmin}, "active")
	home := uuid.NewString()
	other := uuid.NewString()

	// admin role in one workspace grants nothing over another: a header
	// naming the home workspace cannot reach a different one by path
	rec, env := do(t, f.router, http.MethodDelete, "/workspaces/"+other, "admin", home)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, string(errors.ErrCodeValidationFailed), env.Error)

	rec, env = do(t, f.router, http.MethodGet, "/workspaces/"+other, "admin", home)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, string(errors.ErrCodeValidationFailed), env.Error)

	// matching header and path pass through
	rec, _ = do(t, f.router, http.MethodDelete, "/workspaces/"+home, "admin", home)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestPipeline_MalformedWorkspaceHeaderIsBadRequest(t *testing.T) {
	f := newPipeline(t)
	f.addAccount("alice", []string{}, "active")

	rec, env := do(t, f.router, http.MethodGet, "/workspaces", "alice", "not-a-uuid")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, string(errors.ErrCodeValidationFailed), env.Error)
}

func TestPipeline_SubjectWithoutClaimsDenied(t *testing.T) {
	f := newPipeline(t)
	id := uuid.New()
	f.verifier.subjects["ghost"] = &idp.Subject{ID: id.String(), Email: "ghost@example.com"}
	// no claims entry: the subject has no local account

	rec, env := do(t, f.router, http.MethodGet, "/me", "ghost", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, string(errors.ErrCodeUnauthorized), env.Error)
}

func TestPipeline_SuperSurface(t *testing.T) {
	f := newPipeline(t)
	f.addAccount("root", []string{ClaimSuper}, "active")
	f.addAccount("admin", []string{RoleAdmin}, "active")

	rec, _ := do(t, f.router, http.MethodGet, "/admin/accounts", "root", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, f.seenUser)
	assert.True(t, f.seenUser.Super)

	rec, env := do(t, f.router, http.MethodGet, "/admin/accounts", "admin", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, env.Success)
}

func TestPipeline_InactiveAccountBlocked(t *testing.T) {
	f := newPipeline(t)
	f.addAccount("alice", []string{RoleUser}, "suspended")

	rec, env := do(t, f.router, http.MethodGet, "/me", "alice", "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, string(errors.ErrCodeAccountInactive), env.Error)
}

func TestPipeline_UnknownAccountBlockedByStatusGuard(t *testing.T) {
	f := newPipeline(t)
	id := uuid.New()
	f.verifier.subjects["ghost"] = &idp.Subject{ID: id.String(), Email: "ghost@example.com"}
	f.claims.claims[id] = []string{RoleUser}
	// no status entry: the account no longer exists

	rec, env := do(t, f.router, http.MethodGet, "/me", "ghost", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, env.Success)
}
