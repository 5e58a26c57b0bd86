package authz

// IsAuthorized decides whether a caller may proceed. It is a pure function
// of the route requirement, the caller's verified claims, the caller's own
// identifier, and the matched path parameters; it performs no I/O.
//
// The decision is ordered, first match wins:
//  1. nil requirement (route/method not registered) allows.
//  2. A caller with no identity or no claims is denied.
//  3. The global superadmin claim allows everything.
//  4. An owner requirement allows only when a path parameter identifies
//     the caller.
//  5. A role requirement allows when the claim set intersects it; with the
//     owner fallback, a user-class claim holder who owns the resource is
//     also allowed.
func IsAuthorized(req *RoleRequirement, claims []string, callerID string, params map[string]string) bool {
	if req == nil {
		return true
	}

	if callerID == "" || len(claims) == 0 {
		return false
	}

	if hasClaim(claims, ClaimSuper) {
		return true
	}

	switch req.Kind {
	case RequireAny:
		return true

	case RequireOwner:
		return isOwner(callerID, params)

	case RequireRoles:
		for _, role := range req.Roles {
			if hasClaim(claims, role) {
				return true
			}
		}
		if req.OwnerFallback && hasClaim(claims, RoleUser) && isOwner(callerID, params) {
			return true
		}
		return false

	case RequireSuper:
		// Only the super claim satisfies this, handled above
		return false
	}

	return false
}

func hasClaim(claims []string, want string) bool {
	for _, c := range claims {
		if c == want {
			return true
		}
	}
	return false
}

// isOwner matches the caller against the "id" or "accountId" path
// parameter conventions.
func isOwner(callerID string, params map[string]string) bool {
	if id, ok := params["id"]; ok && id == callerID {
		return true
	}
	if id, ok := params["accountId"]; ok && id == callerID {
		return true
	}
	return false
}
