// Package actor identifies the user performing an action. The auth
// middleware stores it on the request context, services read it to decide
// ownership and to stamp reviewers.
package actor

import (
	"context"
	"fmt"

	"github.com/tyotrack/tyotrack-backend/pkg/permissions"
)

// SystemID is the actor ID used for background and event-driven work.
const SystemID = "00000000-0000-0000-0000-000000000000"

// Actor represents the user performing an action.
type Actor struct {
	ID          string   `json:"id"`
	Name        string   `json:"name,omitempty"`
	Email       string   `json:"email"`
	CompanyID   string   `json:"company_id"`
	Role        string   `json:"role"`
	Permissions []string `json:"permissions,omitempty"`
}

// String returns a string representation of the actor for logging
func (a *Actor) String() string {
	if a == nil {
		return "system"
	}
	return fmt.Sprintf("%s (%s)", a.ID, a.Email)
}

// Can reports whether the actor holds perm, directly or through its role.
func (a *Actor) Can(perm string) bool {
	if a == nil {
		return false
	}
	return permissions.HasPermission(permissions.Effective(a.Role, a.Permissions), perm)
}

// IsSystem returns true if the actor represents the system.
func (a *Actor) IsSystem() bool {
	return a == nil || a.ID == SystemID
}

type contextKey struct{}

// FromContext returns the actor on ctx, or nil for system operations.
func FromContext(ctx context.Context) *Actor {
	if ctx == nil {
		return nil
	}
	a, _ := ctx.Value(contextKey{}).(*Actor)
	return a
}

// WithActor returns a new context with the Actor attached.
func WithActor(ctx context.Context, a *Actor) context.Context {
	return context.WithValue(ctx, contextKey{}, a)
}

// SystemActor returns the actor used for background work.
func SystemActor() *Actor {
	return &Actor{
		ID:          SystemID,
		Name:        "System",
		Email:       "system@tyotrack.local",
		Role:        permissions.RoleSuperAdmin,
		Permissions: []string{"*"},
	}
}
