package auth

import (
	"context"
	"slices"
	"strings"
)

const (
	RoleUser  = "user"
	RoleStaff = "staff"
	RoleAdmin = "admin"
)

// operatorRoles may read and transition any customer's orders.
var operatorRoles = []string{RoleAdmin, RoleStaff}

// Identity is the caller behind a verified bearer token. Roles are lower-case once the
// middleware has built the identity; hand-built identities are matched case-insensitively.
type Identity struct {
	UID   string
	Email string
	Roles []string
}

func (i *Identity) HasRole(role string) bool {
	role = normaliseRole(role)
	if i == nil || role == "" {
		return false
	}
	for _, held := range i.Roles {
		if strings.EqualFold(held, role) {
			return true
		}
	}
	return false
}

func (i *Identity) HasAnyRole(roles ...string) bool {
	return slices.ContainsFunc(roles, i.HasRole)
}

// IsOperator reports whether the caller is back-office staff.
func (i *Identity) IsOperator() bool {
	return i.HasAnyRole(operatorRoles...)
}

// Owns reports whether userID names this caller.
func (i *Identity) Owns(userID string) bool {
	return i != nil && i.UID != "" && i.UID == strings.TrimSpace(userID)
}

type identityCtxKey struct{}

func WithIdentity(ctx context.Context, identity *Identity) context.Context {
	return context.WithValue(ctx, identityCtxKey{}, identity)
}

// IdentityFromContext returns the caller attached by Authenticator.Require.
func IdentityFromContext(ctx context.Context) (*Identity, bool) {
	identity, _ := ctx.Value(identityCtxKey{}).(*Identity)
	return identity, identity != nil
}

func normaliseRole(role string) string {
	return strings.ToLower(strings.TrimSpace(role))
}
