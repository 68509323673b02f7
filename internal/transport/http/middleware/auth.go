package middleware

import (
	"context"
	"net/http"
	"strings"

	"hrms/internal/domain/access"
	"hrms/internal/requestctx"
	"hrms/internal/transport/http/api"
	"hrms/internal/transport/http/shared"
)

// TokenVerifier turns a bearer token into the calling actor.
type TokenVerifier interface {
	VerifyAccessToken(ctx context.Context, token string) (access.Actor, error)
}

// Auth attaches the actor for valid bearer tokens. Requests without a valid
// token continue anonymously; RequireAuth and RequirePermission reject them.
func Auth(verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}
			actor, err := verifier.VerifyAccessToken(r.Context(), token)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}
			actor.RequestID = GetRequestID(r.Context())
			actor.IP = shared.ClientIP(r)
			next.ServeHTTP(w, r.WithContext(requestctx.WithActor(r.Context(), actor)))
		})
	}
}

func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := GetUser(r.Context()); !ok {
			api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", GetRequestID(r.Context()))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func GetUser(ctx context.Context) (access.Actor, bool) {
	return requestctx.GetActor(ctx)
}

// WithUser is used by tests and websocket upgrades that authenticate outside Auth.
func WithUser(ctx context.Context, actor access.Actor) context.Context {
	return requestctx.WithActor(ctx, actor)
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
			return strings.TrimSpace(parts[1])
		}
		return ""
	}
	// browsers cannot set headers on websocket upgrades
	if strings.EqualFold(r.Header.Get("Upgrade"), "websocket") {
		return r.URL.Query().Get("access_token")
	}
	return ""
}
