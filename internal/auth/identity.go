// Package auth holds the credential primitives shared by the session manager
// and the per-request authorization gate.
package auth

import (
	"context"

	"github.com/pipecraft/apiserver/internal/apperr"
)

const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// Identity is the request-scoped view of the caller, built once from the live
// user record after the access token has been verified.
type Identity struct {
	ID          string  `json:"userId"`
	Email       string  `json:"email"`
	DisplayName string  `json:"name"`
	Role        string  `json:"role"`
	Age         *int    `json:"age,omitempty"`
	AvatarRef   *string `json:"avatar,omitempty"`
	Phone       *string `json:"phone,omitempty"`
}

func (i Identity) IsAdmin() bool {
	return i.Role == RoleAdmin
}

// RequireAdmin fails with a Forbidden error unless the identity is an admin.
func RequireAdmin(i Identity) error {
	if !i.IsAdmin() {
		return apperr.Forbidden(apperr.MsgAdminRequired)
	}
	return nil
}

type contextKey struct{}

func WithIdentity(ctx context.Context, identity Identity) context.Context {
	return context.WithValue(ctx, contextKey{}, identity)
}

func IdentityFromContext(ctx context.Context) (Identity, bool) {
	identity, ok := ctx.Value(contextKey{}).(Identity)
	if !ok || identity.ID == "" {
		return Identity{}, false
	}
	return identity, true
}
