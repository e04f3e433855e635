// Package module wires the dashboard materialized views into the API
// using modkit
package module

import (
	"context"
	"net/http"

	"sahay/internal/modkit"
	"sahay/internal/modkit/httpkit"

	adomain "sahay/internal/services/analytics/domain"
	dhttp "sahay/internal/services/api/dashboard/http"
	drepo "sahay/internal/services/api/dashboard/repo"
	dsvc "sahay/internal/services/api/dashboard/service"
	idomain "sahay/internal/services/ident/domain"
	ihttp "sahay/internal/services/ident/http"
)

// Ports declares the cross-module ports this module requires
type Ports struct {
	Resolver  idomain.ResolverPort
	Analytics analyticsQuerier
}

type analyticsQuerier interface {
	Summary(ctx context.Context, f adomain.QueryFilter) ([]adomain.AggregateRow, error)
}

// Module implements the dashboard module
type Module struct {
	deps   modkit.Deps
	name   string
	prefix string

	mws       []func(http.Handler) http.Handler
	ports     any
	subrouter func(httpkit.Router) httpkit.Router
	register  func(httpkit.Router)
}

// New constructs the dashboard module. Requires Ports{Resolver, Analytics}
// injected via modkit.WithPorts
func New(deps modkit.Deps, opts ...modkit.Option) modkit.Module {
	b := modkit.Build(append([]modkit.Option{
		modkit.WithName("dashboard"),
		modkit.WithPrefix("/dashboard"),
	}, opts...)...)

	injected, ok := b.Ports.(Ports)
	if !ok || injected.Resolver == nil || injected.Analytics == nil {
		panic("dashboard module requires Ports{Resolver, Analytics}")
	}

	svc := dsvc.New(deps.PG, drepo.NewPG(), injected.Analytics)

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
		r.Use(ihttp.Authenticate(injected.Resolver))
		r.Use(ihttp.RequireAtLeast(idomain.RoleDistrictOfficer))
		dhttp.RegisterQuery(r, svc)
		dhttp.RegisterAdmin(r, svc)
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

// Ports returns the module ports
func (m *Module) Ports() any { return m.ports }

// Name returns the module name
func (m *Module) Name() string { return m.name }

// Prefix returns the module route prefix
func (m *Module) Prefix() string { return m.prefix }
