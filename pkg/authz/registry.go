package authz

import (
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/go-chi/chi/v5"
)

// Role tokens understood by the authorization stage. "authenticated" is the
// base claim every verified account carries; "super" is the global superadmin
// claim; "admin" and "user" are workspace-scoped roles granted through a
// membership.
const (
	ClaimAuthenticated = "authenticated"
	ClaimSuper         = "super"
	RoleAdmin          = "admin"
	RoleUser           = "user"
)

// RequirementKind tags the variants of a RoleRequirement.
type RequirementKind int

const (
	// RequireAny allows any authenticated caller
	RequireAny RequirementKind = iota
	// RequireRoles allows callers whose workspace-scoped claims intersect
	// the requirement's role set
	RequireRoles
	// RequireOwner allows the caller whose identity matches a resource
	// identifier in the path ("id" or "accountId" convention)
	RequireOwner
	// RequireSuper allows only global superadmins
	RequireSuper
)

// RoleRequirement describes who may call a (route, method) pair.
type RoleRequirement struct {
	Kind  RequirementKind
	Roles []string
	// OwnerFallback lets a user-class claim holder through a role
	// requirement when they are also the resource owner
	OwnerFallback bool
}

// Any returns a requirement satisfied by any authenticated caller
func Any() RoleRequirement {
	return RoleRequirement{Kind: RequireAny}
}

// Roles returns a workspace-scoped role requirement
func Roles(roles ...string) RoleRequirement {
	return RoleRequirement{Kind: RequireRoles, Roles: roles}
}

// RolesOrOwner returns a role requirement with the owner fallback enabled
func RolesOrOwner(roles ...string) RoleRequirement {
	return RoleRequirement{Kind: RequireRoles, Roles: roles, OwnerFallback: true}
}

// Owner returns an ownership requirement
func Owner() RoleRequirement {
	return RoleRequirement{Kind: RequireOwner}
}

// Super returns a superadmin-only requirement
func Super() RoleRequirement {
	return RoleRequirement{Kind: RequireSuper}
}

// Descriptor is the unified per-route permission entry: whether the route
// requires authentication at all, and the requirement per HTTP method.
type Descriptor struct {
	Authenticated bool
	MethodRoles   map[string]RoleRequirement
}

// Public returns a descriptor for an unauthenticated route
func Public(methods ...string) Descriptor {
	d := Descriptor{Authenticated: false, MethodRoles: map[string]RoleRequirement{}}
	for _, m := range methods {
		d.MethodRoles[m] = Any()
	}
	return d
}

// Protected returns a descriptor for an authenticated route
func Protected(methodRoles map[string]RoleRequirement) Descriptor {
	return Descriptor{Authenticated: true, MethodRoles: methodRoles}
}

// Registry maps normalized route patterns (chi syntax, e.g.
// "/workspaces/{id}") to permission descriptors. It is built once at
// bootstrap by BuildRegistry and never mutated afterwards.
type Registry struct {
	entries map[string]Descriptor
}

// NewRegistry creates a registry from explicit entries
func NewRegistry(entries map[string]Descriptor) *Registry {
	return &Registry{entries: entries}
}

// Lookup returns the descriptor for a route pattern
func (reg *Registry) Lookup(routeKey string) (Descriptor, bool) {
	d, ok := reg.entries[routeKey]
	return d, ok
}

// MethodRequirement returns the requirement for a concrete (pattern, method)
// pair. The second return is false when no requirement is registered.
func (reg *Registry) MethodRequirement(routeKey, method string) (RoleRequirement, bool) {
	d, ok := reg.entries[routeKey]
	if !ok {
		return RoleRequirement{}, false
	}
	req, ok := d.MethodRoles[method]
	return req, ok
}

// RequiresAuth reports whether the route pattern requires authentication.
// Unknown routes default to requiring authentication.
func (reg *Registry) RequiresAuth(routeKey string) bool {
	d, ok := reg.entries[routeKey]
	if !ok {
		return true
	}
	return d.Authenticated
}

// Validate checks the registry against the concrete application route
// table. Every registered (method, pattern) must have a matching registry
// entry; any gap is a boot error and the process must refuse to start.
func (reg *Registry) Validate(routes chi.Routes) error {
	var missing []string

	err := chi.Walk(routes, func(method, route string, handler http.Handler, middlewares ...func(http.Handler) http.Handler) error {
		pattern := normalizePattern(route)
		d, ok := reg.entries[pattern]
		if !ok {
			missing = append(missing, fmt.Sprintf("%s %s", method, pattern))
			return nil
		}
		if _, ok := d.MethodRoles[method]; !ok {
			missing = append(missing, fmt.Sprintf("%s %s", method, pattern))
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to walk routes: %w", err)
	}

	if len(missing) > 0 {
		sort.Strings(missing)
		return fmt.Errorf("permission registry is missing entries for: %s", strings.Join(missing, ", "))
	}

	return nil
}

// normalizePattern strips the trailing slash chi.Walk appends to mounted
// subrouter roots so registry keys stay in one shape.
func normalizePattern(route string) string {
	if route != "/" && strings.HasSuffix(route, "/") {
		return strings.TrimSuffix(route, "/")
	}
	return route
}

// BuildRegistry constructs the permission registry for the full HTTP
// surface. Invoked once during process bootstrap; main must refuse to
// start when Validate reports an unmapped route.
func BuildRegistry() *Registry {
	return NewRegistry(map[string]Descriptor{
		// Public surface
		"/login":   Public(http.MethodPost),
		"/signup":  Public(http.MethodPost),
		"/healthz": Public(http.MethodGet),

		// Authenticated caller surface
		"/me": Protected(map[string]RoleRequirement{
			http.MethodGet: Any(),
		}),
		"/accounts/{id}": Protected(map[string]RoleRequirement{
			http.MethodGet:   Owner(),
			http.MethodPatch: Owner(),
		}),

		// Workspace-scoped surface
		"/workspaces": Protected(map[string]RoleRequirement{
			http.MethodGet:  Any(),
			http.MethodPost: Any(),
		}),
		"/workspaces/{id}": Protected(map[string]RoleRequirement{
			http.MethodGet:    Roles(RoleAdmin, RoleUser),
			http.MethodPatch:  Roles(RoleAdmin),
			http.MethodDelete: Roles(RoleAdmin),
		}),
		"/workspaces/{id}/profile": Protected(map[string]RoleRequirement{
			http.MethodPatch: Roles(RoleAdmin, RoleUser),
		}),
		"/workspaces/{id}/members": Protected(map[string]RoleRequirement{
			http.MethodGet:  Roles(RoleAdmin, RoleUser),
			http.MethodPost: Roles(RoleAdmin),
		}),
		"/workspaces/{id}/members/{memberId}": Protected(map[string]RoleRequirement{
			http.MethodPut:    Roles(RoleAdmin),
			http.MethodDelete: Roles(RoleAdmin),
		}),

		// Superadmin surface
		"/admin/accounts": Protected(map[string]RoleRequirement{
			http.MethodGet:  Super(),
			http.MethodPost: Super(),
		}),
		"/admin/accounts/{id}/role": Protected(map[string]RoleRequirement{
			http.MethodPut: Super(),
		}),
		"/admin/accounts/{id}/status": Protected(map[string]RoleRequirement{
			http.MethodPut: Super(),
		}),
		"/admin/workspaces": Protected(map[string]RoleRequirement{
			http.MethodGet: Super(),
		}),
		"/admin/memberships": Protected(map[string]RoleRequirement{
			http.MethodGet: Super(),
		}),
		"/admin/audit-logs": Protected(map[string]RoleRequirement{
			http.MethodGet: Super(),
		}),
		"/admin/audit-logs/stats": Protected(map[string]RoleRequirement{
			http.MethodGet: Super(),
		}),
	})
}
