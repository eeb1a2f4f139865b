package middleware

import (
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/carebridge/telemed-platform/internal/identity"
)

// PrincipalClaims is the JWT payload issued by the auth collaborator: the
// subject is the user id, role the caller's role.
type PrincipalClaims struct {
	jwt.RegisteredClaims
	Role string `json:"role"`
}

// Auth enforces an HMAC-signed JWT and places the authenticated principal in
// the request context.
func Auth(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if secret == "" {
				http.Error(w, "auth disabled", http.StatusUnauthorized)
				return
			}
			auth := r.Header.Get("Authorization")
			if auth == "" || !strings.HasPrefix(auth, "Bearer ") {
				http.Error(w, "missing authorization header", http.StatusUnauthorized)
				return
			}
			tokenString := strings.TrimPrefix(auth, "Bearer ")
			claims := PrincipalClaims{}
			token, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (any, error) {
				if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, jwt.ErrSignatureInvalid
				}
				return []byte(secret), nil
			})
			if err != nil || !token.Valid {
				http.Error(w, "invalid token", http.StatusUnauthorized)
				return
			}

			userID, err := uuid.Parse(claims.Subject)
			if err != nil {
				http.Error(w, "invalid token subject", http.StatusUnauthorized)
				return
			}
			role := identity.Role(claims.Role)
			switch role {
			case identity.RolePatient, identity.RoleDoctor, identity.RoleAdmin:
			default:
				http.Error(w, "invalid token role", http.StatusUnauthorized)
				return
			}

			ctx := identity.WithPrincipal(r.Context(), identity.Principal{ID: userID, Role: role})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole rejects authenticated callers whose role is not in the allow
// list.
func RequireRole(roles ...identity.Role) func(http.Handler) http.Handler {
	allow := make(map[identity.Role]struct{}, len(roles))
	for _, r := range roles {
		allow[r] = struct{}{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := identity.PrincipalFromContext(r.Context())
			if !ok {
				http.Error(w, "missing principal", http.StatusUnauthorized)
				return
			}
			if _, ok := allow[p.Role]; !ok {
				http.Error(w, "role not permitted", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
