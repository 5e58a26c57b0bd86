package client

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

// AuthUser is the caller identity resolved by the authentication stage.
// It is created once per request and threaded through the context as an
// immutable value; later stages read it, they never mutate it.
type AuthUser struct {
	AccountID uuid.UUID `json:"account_id"`
	Email     string    `json:"email,omitempty"`
	// WorkspaceID is the workspace context supplied by the caller via the
	// x-workspace-id header, empty when absent.
	WorkspaceID string `json:"workspace_id,omitempty"`
	// Super is the global superadmin flag on the account.
	Super bool `json:"super,omitempty"`
}

func (u AuthUser) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("account_id", u.AccountID.String()),
		slog.String("workspace_id", u.WorkspaceID),
		slog.Bool("super", u.Super),
	)
}

// RequestInfo carries transport-level request metadata for audit records.
type RequestInfo struct {
	IPAddress string
	UserAgent string
}

// contextKey is a value for use with context.WithValue. It's used as
// a pointer so it fits in an interface{} without allocation. This technique
// for defining context keys was copied from Go 1.7's new use of context in net/http.
type contextKey struct {
	name string
}

func (k *contextKey) String() string {
	return "workspace context value " + k.name
}

var (
	AuthUserKey    = &contextKey{"AuthUser"}
	RequestInfoKey = &contextKey{"RequestInfo"}
)

// WorkspaceIDHeader carries the workspace context on workspace-scoped routes.
const WorkspaceIDHeader = "x-workspace-id"

// WithAuthUser returns a context carrying the resolved caller identity
func WithAuthUser(ctx context.Context, user *AuthUser) context.Context {
	return context.WithValue(ctx, AuthUserKey, user)
}

// FromContext extracts the resolved caller identity from the context
func FromContext(ctx context.Context) (*AuthUser, bool) {
	user, ok := ctx.Value(AuthUserKey).(*AuthUser)
	return user, ok
}

// WithRequestInfo returns a context carrying transport metadata
func WithRequestInfo(ctx context.Context, info *RequestInfo) context.Context {
	return context.WithValue(ctx, RequestInfoKey, info)
}

// RequestInfoFromContext extracts transport metadata from the context
func RequestInfoFromContext(ctx context.Context) (*RequestInfo, bool) {
	info, ok := ctx.Value(RequestInfoKey).(*RequestInfo)
	return info, ok
}

// ClientIP extracts the client IP address from the request
func ClientIP(r *http.Request) string {
	// X-Forwarded-For can contain multiple IPs, take the first one
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		ips := strings.Split(xff, ",")
		if len(ips) > 0 {
			return strings.TrimSpace(ips[0])
		}
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}

	// RemoteAddr is in format "IP:port", we only want the IP
	addr := r.RemoteAddr
	if idx := strings.LastIndex(addr, ":"); idx != -1 {
		return addr[:idx]
	}

	return addr
}
