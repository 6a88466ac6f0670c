package shared

import (
	"context"
	"slices"
)

// Role is the name of an actor's single assigned role.
type Role string

const (
	RoleAdmin          Role = "Admin"
	RoleSalesExecutive Role = "Sales Executive"
	RoleLogistics      Role = "Logistics"
	RoleAccounts       Role = "Accounts"
)

// IsValid reports whether r is a known role.
func (r Role) IsValid() bool {
	switch r {
	case RoleAdmin, RoleSalesExecutive, RoleLogistics, RoleAccounts:
		return true
	default:
		return false
	}
}

// Actor is the authenticated user performing an operation.
type Actor struct {
	UserID int64
	Name   string
	Role   Role
}

// HasRole reports whether the actor holds any of roles.
func (a Actor) HasRole(roles ...Role) bool {
	return slices.Contains(roles, a.Role)
}

// RequireRole returns an UnauthorizedRole error unless the actor holds one of roles.
func (a Actor) RequireRole(roles ...Role) error {
	if a.HasRole(roles...) {
		return nil
	}
	return NewUnauthorizedRole(a.Role, roles...)
}

type actorContextKey struct{}

// ContextWithActor stores the actor in context.
func ContextWithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

// ActorFromContext extracts the actor from context.
func ActorFromContext(ctx context.Context) (Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(Actor)
	return actor, ok
}
