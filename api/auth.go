package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// Role is the auth principal's role claim, per spec.md §6's bearer-token
// auth contract.
type Role string

const (
	RoleParticipant Role = "participant"
	RoleCoordinator Role = "coordinator"
)

type principal struct {
	UserID string
	Role   Role
}

type contextKey int

const principalContextKey contextKey = iota

// claims is the JWT claim set the coordinator's issuer signs: a subject
// (the participant/coordinator identifier) and a role claim.
type claims struct {
	jwt.RegisteredClaims
	Role string `json:"role"`
}

// authMiddleware verifies a bearer JWT signed with secret and, on success,
// attaches the resolved principal to the request context. It never itself
// rejects on role; callers use requireRole to enforce that per endpoint.
func authMiddleware(secret []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, err := parseBearer(r, secret)
			if err != nil {
				ErrUnauthorized.WithErr(err).Write(w)
				return
			}
			ctx := context.WithValue(r.Context(), principalContextKey, p)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func parseBearer(r *http.Request, secret []byte) (*principal, error) {
	header := r.Header.Get("Authorization")
	tokenStr, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || tokenStr == "" {
		return nil, jwt.ErrTokenMalformed
	}

	var c claims
	_, err := jwt.ParseWithClaims(tokenStr, &c, func(t *jwt.Token) (interface{}, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		return nil, err
	}

	return &principal{UserID: c.Subject, Role: Role(c.Role)}, nil
}

func principalFromContext(ctx context.Context) (*principal, bool) {
	p, ok := ctx.Value(principalContextKey).(*principal)
	return p, ok
}

// requireRole wraps a handler so it only runs if the request's principal
// has one of the allowed roles.
func requireRole(next http.HandlerFunc, allowed ...Role) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, ok := principalFromContext(r.Context())
		if !ok {
			ErrUnauthorized.Write(w)
			return
		}
		for _, role := range allowed {
			if p.Role == role {
				next(w, r)
				return
			}
		}
		ErrForbidden.Write(w)
	}
}
