// Package http provides http transport and the auth/RBAC middleware for
// the ident service (4.I)
package http

import (
	stdhttp "net/http"

	"sahay/internal/modkit/httpkit"
	perrs "sahay/internal/platform/errors"
	pnet "sahay/internal/platform/net"
	phttp "sahay/internal/platform/net/http"
	"sahay/internal/services/ident/domain"
)

// Authenticate resolves the bearer token on every request and stashes the
// principal's user id and roles on the context. It is the "Auth" step of
// the Auth → RBAC → Consent → Handler → Audit pipeline (§2)
func Authenticate(resolver domain.ResolverPort) func(stdhttp.Handler) stdhttp.Handler {
	return func(next stdhttp.Handler) stdhttp.Handler {
		return stdhttp.HandlerFunc(func(w stdhttp.ResponseWriter, r *stdhttp.Request) {
			token, err := httpkit.JWT(r)
			if err != nil {
				writeErr(w, r, err)
				return
			}
			p, err := resolver.Resolve(r.Context(), token)
			if err != nil {
				writeErr(w, r, err)
				return
			}
			ctx := pnet.WithUser(r.Context(), p.UserID)
			ctx = pnet.WithRoles(ctx, roleStrings(p.Roles))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// OptionalAuthenticate resolves a bearer token when present but lets the
// request through unauthenticated when it is absent, for routes that admit
// an anonymous caller (e.g. anonymous complaint submission, 4.E). A token
// that is present but invalid still fails the request
func OptionalAuthenticate(resolver domain.ResolverPort) func(stdhttp.Handler) stdhttp.Handler {
	return func(next stdhttp.Handler) stdhttp.Handler {
		return stdhttp.HandlerFunc(func(w stdhttp.ResponseWriter, r *stdhttp.Request) {
			token, err := httpkit.JWT(r)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}
			p, err := resolver.Resolve(r.Context(), token)
			if err != nil {
				writeErr(w, r, err)
				return
			}
			ctx := pnet.WithUser(r.Context(), p.UserID)
			ctx = pnet.WithRoles(ctx, roleStrings(p.Roles))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole is the RBAC step: the caller must hold at least one of the
// given roles. Use on routes with a fixed set of acceptable roles, e.g.
// POST /tele/prescriptions requires clinician
func RequireRole(roles ...domain.Role) func(stdhttp.Handler) stdhttp.Handler {
	return func(next stdhttp.Handler) stdhttp.Handler {
		return stdhttp.HandlerFunc(func(w stdhttp.ResponseWriter, r *stdhttp.Request) {
			have := pnet.Roles(r.Context())
			if !anyRoleMatches(have, roles) {
				writeErr(w, r, perrs.Forbiddenf("role does not permit this action"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAtLeast is the RBAC step for administrative ladder checks, e.g.
// dashboard endpoints require district_officer or higher
func RequireAtLeast(min domain.Role) func(stdhttp.Handler) stdhttp.Handler {
	return func(next stdhttp.Handler) stdhttp.Handler {
		return stdhttp.HandlerFunc(func(w stdhttp.ResponseWriter, r *stdhttp.Request) {
			have := pnet.Roles(r.Context())
			ok := false
			for _, h := range have {
				if domain.Role(h).AtLeast(min) {
					ok = true
					break
				}
			}
			if !ok {
				writeErr(w, r, perrs.Forbiddenf("role does not permit this action"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func anyRoleMatches(have []string, want []domain.Role) bool {
	for _, h := range have {
		for _, w := range want {
			if domain.Role(h) == w {
				return true
			}
		}
	}
	return false
}

func writeErr(w stdhttp.ResponseWriter, r *stdhttp.Request, err error) {
	status, body := pnet.Error(err, pnet.RequestID(r.Context()))
	phttp.JSON(w, status, body)
}

func roleStrings(roles []domain.Role) []string {
	out := make([]string, len(roles))
	for i, r := range roles {
		out[i] = string(r)
	}
	return out
}
