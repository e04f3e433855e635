package domain

import "context"

// AuthPort handles registration, login, and token lifecycle. Tokens are
// opaque, DB-backed, and revocable (4.I) — never JWTs, so revocation takes
// effect immediately rather than waiting out a token's natural expiry
type AuthPort interface {
	// Register creates a user for a phone number (or phone-alias), idempotent
	// on phone: a second Register for the same phone returns the existing user
	Register(ctx context.Context, phone string) (User, error)

	// Login issues a fresh bearer token for an existing user
	Login(ctx context.Context, phone string) (token string, u User, err error)

	// Revoke invalidates a bearer token immediately
	Revoke(ctx context.Context, token string) error
}

// ResolverPort resolves a bearer token to the calling principal. Every
// request pipeline step (Auth → RBAC → Consent → Handler → Audit) starts here
type ResolverPort interface {
	Resolve(ctx context.Context, token string) (Principal, error)
}

// RoleAdminPort assigns and lists roles. Role mutation itself requires
// national_admin at the HTTP layer; this port has no opinion on that
type RoleAdminPort interface {
	AssignRole(ctx context.Context, userID string, role Role) error
	RolesFor(ctx context.Context, userID string) ([]Role, error)
}

// Ports bundles the identity surface for module wiring
type Ports interface {
	AuthPort
	ResolverPort
	RoleAdminPort
}
