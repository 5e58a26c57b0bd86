package authz

import (
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noopHandler(w http.ResponseWriter, r *http.Request) {}

func TestRegistry_Lookup(t *testing.T) {
	reg := BuildRegistry()

	d, ok := reg.Lookup("/login")
	require.True(t, ok)
	assert.False(t, d.Authenticated)

	d, ok = reg.Lookup("/admin/accounts")
	require.True(t, ok)
	assert.True(t, d.Authenticated)
	assert.Equal(t, RequireSuper, d.MethodRoles[http.MethodGet].Kind)

	_, ok = reg.Lookup("/nope")
	assert.False(t, ok)
}

func TestRegistry_MethodRequirement(t *testing.T) {
	reg := BuildRegistry()

	req, ok := reg.MethodRequirement("/workspaces/{id}", http.MethodDelete)
	require.True(t, ok)
	assert.Equal(t, RequireRoles, req.Kind)
	assert.Equal(t, []string{RoleAdmin}, req.Roles)

	_, ok = reg.MethodRequirement("/workspaces/{id}", http.MethodPost)
	assert.False(t, ok)
}

func TestRegistry_RequiresAuthDefaultsClosed(t *testing.T) {
	reg := BuildRegistry()

	assert.False(t, reg.RequiresAuth("/healthz"))
	assert.True(t, reg.RequiresAuth("/me"))
	// unknown routes are treated as protected
	assert.True(t, reg.RequiresAuth("/unknown"))
}

func TestRegistry_ValidateAccepts(t *testing.T) {
	reg := NewRegistry(map[string]Descriptor{
		"/ping": Public(http.MethodGet),
		"/things/{id}": Protected(map[string]RoleRequirement{
			http.MethodGet: Any(),
		}),
	})

	r := chi.NewRouter()
	r.Get("/ping", noopHandler)
	r.Get("/things/{id}", noopHandler)

	assert.NoError(t, reg.Validate(r))
}

func TestRegistry_ValidateReportsUnmappedRoutes(t *testing.T) {
	reg := NewRegistry(map[string]Descriptor{
		"/ping": Public(http.MethodGet),
	})

	r := chi.NewRouter()
	r.Get("/ping", noopHandler)
	r.Post("/ping", noopHandler)
	r.Get("/orphan", noopHandler)

	err := reg.Validate(r)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "GET /orphan")
	assert.Contains(t, err.Error(), "POST /ping")
}
