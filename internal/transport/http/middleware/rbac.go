package middleware

import (
	"context"
	"net/http"

	"hrms/internal/transport/http/api"
)

// PermissionChecker resolves role permissions, typically from the cached
// role_permissions table.
type PermissionChecker interface {
	HasPermission(ctx context.Context, roles []string, permission string) (bool, error)
}

func RequirePermission(permission string, checker PermissionChecker) func(http.Handler) http.Handler {
	return RequireAnyPermission(checker, permission)
}

// RequireAnyPermission passes when any of the actor's roles grants one of permissions.
func RequireAnyPermission(checker PermissionChecker, permissions ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := GetRequestID(r.Context())
			actor, ok := GetUser(r.Context())
			if !ok {
				api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", requestID)
				return
			}
			for _, perm := range permissions {
				allowed, err := checker.HasPermission(r.Context(), actor.Roles, perm)
				if err != nil {
					api.Fail(w, http.StatusInternalServerError, "permission_error", "permission check failed", requestID)
					return
				}
				if allowed {
					next.ServeHTTP(w, r)
					return
				}
			}
			api.Fail(w, http.StatusForbidden, "forbidden", "insufficient permissions", requestID)
		})
	}
}
