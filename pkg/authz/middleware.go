package authz

import (
	"context"
	stderrors "errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/jwtauth/v5"
	"github.com/google/uuid"

	"github.com/tendant/simple-workspace/pkg/client"
	"github.com/tendant/simple-workspace/pkg/errors"
	"github.com/tendant/simple-workspace/pkg/idp"
	"github.com/tendant/simple-workspace/pkg/response"
)

// ClaimsSource resolves the caller's claim set: the super claim for
// superadmin accounts plus the caller's role in the given workspace, when
// any. An unknown account yields an empty claim set, not an error.
type ClaimsSource interface {
	ResolveClaims(ctx context.Context, accountID uuid.UUID, workspaceID string) ([]string, error)
}

// StatusReader reports an account's lifecycle status for the status guard.
type StatusReader interface {
	GetStatus(ctx context.Context, accountID uuid.UUID) (string, error)
}

// Middleware is the authentication/authorization pipeline. Stages run
// strictly in order per request: Authenticator, Authorizer, and optionally
// AccountStatusGuard on sensitive routes.
type Middleware struct {
	registry *Registry
	verifier idp.TokenVerifier
	claims   ClaimsSource
	status   StatusReader
	routes   chi.Routes
}

// NewMiddleware creates the middleware pipeline. SetRoutes must be called
// with the concrete router before serving.
func NewMiddleware(registry *Registry, verifier idp.TokenVerifier, claims ClaimsSource, status StatusReader) *Middleware {
	return &Middleware{
		registry: registry,
		verifier: verifier,
		claims:   claims,
		status:   status,
	}
}

// SetRoutes attaches the concrete route table used to normalize incoming
// URLs to their registered patterns.
func (m *Middleware) SetRoutes(routes chi.Routes) {
	m.routes = routes
}

// matchRoute resolves the concrete (pattern, params) the router will match
// for this request. Middleware runs before chi populates the route context,
// so we pre-match against the route table.
func (m *Middleware) matchRoute(r *http.Request) (string, map[string]string, bool) {
	rctx := chi.NewRouteContext()
	if m.routes == nil || !m.routes.Match(rctx, r.Method, r.URL.Path) {
		return "", nil, false
	}

	params := make(map[string]string, len(rctx.URLParams.Keys))
	for i, key := range rctx.URLParams.Keys {
		if key == "*" {
			continue
		}
		params[key] = rctx.URLParams.Values[i]
	}

	return normalizePattern(rctx.RoutePattern()), params, true
}

// Authenticator extracts the bearer credential and resolves the caller
// identity through the identity provider. Routes whose registry entry does
// not require authentication pass through unconditionally.
func (m *Middleware) Authenticator(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		pattern, _, matched := m.matchRoute(r)
		if !matched {
			// Let the router emit its own 404/405
			next.ServeHTTP(w, r)
			return
		}

		if !m.registry.RequiresAuth(pattern) {
			next.ServeHTTP(w, r)
			return
		}

		token := jwtauth.TokenFromHeader(r)
		if token == "" {
			response.Err(w, r, errors.Unauthorized("missing bearer token"))
			return
		}

		subject, err := m.verifier.Verify(r.Context(), token)
		if err != nil || subject == nil {
			slog.Debug("Token verification failed", "err", err)
			response.Err(w, r, errors.InvalidToken("token verification failed"))
			return
		}

		accountID, err := uuid.Parse(subject.ID)
		if err != nil {
			response.Err(w, r, errors.InvalidToken("subject is not a valid account id"))
			return
		}

		authUser := &client.AuthUser{
			AccountID:   accountID,
			Email:       subject.Email,
			WorkspaceID: r.Header.Get(client.WorkspaceIDHeader),
		}

		next.ServeHTTP(w, r.WithContext(client.WithAuthUser(r.Context(), authUser)))
	})
}

// Authorizer consults the permission registry for the matched route and
// method and applies the pure authorization decision to the caller's
// resolved claims.
func (m *Middleware) Authorizer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		pattern, params, matched := m.matchRoute(r)
		if !matched || !m.registry.RequiresAuth(pattern) {
			next.ServeHTTP(w, r)
			return
		}

		req, registered := m.registry.MethodRequirement(pattern, r.Method)
		if !registered {
			next.ServeHTTP(w, r)
			return
		}

		authUser, ok := client.FromContext(r.Context())
		if !ok || authUser == nil {
			response.Err(w, r, errors.Unauthorized("no authenticated caller"))
			return
		}

		if req.Kind == RequireRoles {
			if authUser.WorkspaceID == "" {
				response.Err(w, r, errors.MissingParameter(client.WorkspaceIDHeader))
				return
			}
			// Role claims are scoped to the workspace context; it must
			// name the workspace the route operates on.
			if wsID, ok := params["id"]; ok && wsID != authUser.WorkspaceID {
				response.Err(w, r, errors.ValidationFailed(client.WorkspaceIDHeader,
					"does not match the workspace in the request path"))
				return
			}
		}

		claims, err := m.claims.ResolveClaims(r.Context(), authUser.AccountID, authUser.WorkspaceID)
		if err != nil {
			// Structured failures (malformed workspace id, lookup errors)
			// surface with their own code; only unknown errors become 500s.
			var appErr *errors.Error
			if !stderrors.As(err, &appErr) {
				err = errors.DatabaseWrap(err, "failed to resolve caller claims")
			}
			response.Err(w, r, err)
			return
		}

		if !IsAuthorized(&req, claims, authUser.AccountID.String(), params) {
			slog.Warn("Authorization denied",
				"account_id", authUser.AccountID,
				"pattern", pattern,
				"method", r.Method,
				"claims", claims)
			response.Err(w, r, errors.Unauthorized("not authorized for this resource"))
			return
		}

		// Re-attach the identity with the resolved super flag so handlers
		// do not need a second lookup
		enriched := *authUser
		enriched.Super = hasClaim(claims, ClaimSuper)
		next.ServeHTTP(w, r.WithContext(client.WithAuthUser(r.Context(), &enriched)))
	})
}

// AccountStatusGuard gates sensitive operations on account lifecycle
// state. It is a defense-in-depth check distinct from role authorization.
func (m *Middleware) AccountStatusGuard(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		pattern, _, matched := m.matchRoute(r)
		if !matched || !m.registry.RequiresAuth(pattern) {
			next.ServeHTTP(w, r)
			return
		}

		authUser, ok := client.FromContext(r.Context())
		if !ok || authUser == nil {
			response.Err(w, r, errors.Unauthorized("no authenticated caller"))
			return
		}

		status, err := m.status.GetStatus(r.Context(), authUser.AccountID)
		if err != nil {
			response.Err(w, r, errors.Unauthorized("account not found"))
			return
		}

		if status != "active" {
			response.Err(w, r, errors.AccountInactive(status))
			return
		}

		next.ServeHTTP(w, r)
	})
}
