// Package module wires identity, auth, and RBAC into the API using modkit
package module

import (
	"net/http"

	"sahay/internal/modkit"
	"sahay/internal/modkit/httpkit"

	"sahay/internal/services/ident/domain"
	ihttp "sahay/internal/services/ident/http"
	irepo "sahay/internal/services/ident/repo"
	isvc "sahay/internal/services/ident/service"
)

// Module implements the ident service module
type Module struct {
	deps   modkit.Deps
	name   string
	prefix string

	mws       []func(http.Handler) http.Handler
	ports     any
	subrouter func(httpkit.Router) httpkit.Router
	register  func(httpkit.Router)
}

// New constructs the ident module
func New(deps modkit.Deps, opts ...modkit.Option) modkit.Module {
	b := modkit.Build(append([]modkit.Option{
		modkit.WithName("ident"),
		modkit.WithPrefix("/auth"),
	}, opts...)...)

	svc := isvc.New(deps.PG, irepo.NewPG())

	m := &Module{
		deps:      deps,
		name:      b.Name,
		prefix:    b.Prefix,
		mws:       b.Mw,
		subrouter: b.Subrouter,
	}
	m.ports = svc

	external := b.Register
	m.register = func(r httpkit.Router) {
		ihttp.Register(r, svc)
		r.Group(func(rr httpkit.Router) {
			rr.Use(ihttp.Authenticate(svc))
			rr.Use(ihttp.RequireRole(domain.RoleNationalAdmin))
			ihttp.RegisterAdmin(rr, svc)
		})
		if external != nil {
			external(r)
		}
	}
	return m
}

// MountRoutes mounts the module routes on the given router
func (m *Module) MountRoutes(r httpkit.Router) {
	r.Route(m.prefix, func(rr httpkit.Router) {
		for _, mw := range m.mws {
			rr.Use(mw)
		}
		if m.subrouter != nil {
			rr = m.subrouter(rr)
		}
		if m.register != nil {
			m.register(rr)
		}
	})
}

// Ports returns the module ports (domain.Ports, implemented by the service)
func (m *Module) Ports() any { return m.ports }

// Name returns the module name
func (m *Module) Name() string { return m.name }

// Prefix returns the module route prefix
func (m *Module) Prefix() string { return m.prefix }
