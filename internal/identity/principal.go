package identity

import (
	"context"

	"github.com/google/uuid"
)

// Role is the authenticated caller's role as asserted by the auth
// collaborator. The core trusts it without re-verifying credentials.
type Role string

const (
	RolePatient Role = "patient"
	RoleDoctor  Role = "doctor"
	RoleAdmin   Role = "admin"
)

// Principal is an authenticated caller.
type Principal struct {
	ID   uuid.UUID
	Role Role
}

type ctxKey string

const principalKey ctxKey = "telemed.principal"

// WithPrincipal stores the authenticated principal in context.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// PrincipalFromContext extracts the authenticated principal if present.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	val := ctx.Value(principalKey)
	if val == nil {
		return Principal{}, false
	}
	p, ok := val.(Principal)
	return p, ok && p.ID != uuid.Nil
}
