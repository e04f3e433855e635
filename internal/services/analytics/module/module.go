// Package module wires the analytics pipeline into the API using modkit
package module

import (
	"context"
	"net/http"

	"sahay/internal/modkit"
	"sahay/internal/modkit/httpkit"

	ahttp "sahay/internal/services/analytics/http"
	arepo "sahay/internal/services/analytics/repo"
	asvc "sahay/internal/services/analytics/service"
	cdomain "sahay/internal/services/consent/domain"
	idomain "sahay/internal/services/ident/domain"
	ihttp "sahay/internal/services/ident/http"
)

// Ports declares the cross-module ports this module requires
type Ports struct {
	Resolver idomain.ResolverPort
	Consent  consentRequirer
}

type consentRequirer interface {
	Require(ctx context.Context, userID string, category cdomain.Category, scope cdomain.Scope) error
}

// Module implements the analytics module
type Module struct {
	deps   modkit.Deps
	name   string
	prefix string

	mws       []func(http.Handler) http.Handler
	ports     any
	subrouter func(httpkit.Router) httpkit.Router
	register  func(httpkit.Router)
}

// New constructs the analytics module. Requires Ports{Resolver, Consent}
// injected via modkit.WithPorts; deps.CH must be a non-nil ClickHouse handle
func New(deps modkit.Deps, opts ...modkit.Option) modkit.Module {
	b := modkit.Build(append([]modkit.Option{
		modkit.WithName("analytics"),
		modkit.WithPrefix("/analytics"),
	}, opts...)...)

	injected, ok := b.Ports.(Ports)
	if !ok || injected.Resolver == nil || injected.Consent == nil {
		panic("analytics module requires Ports{Resolver, Consent}")
	}
	if deps.CH == nil {
		panic("analytics module requires a non-nil ClickHouse handle (deps.CH)")
	}

	svc := asvc.New(deps.PG, arepo.NewPG(), arepo.NewCH(deps.CH), injected.Consent)

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
		ahttp.RegisterEmit(r, svc)

		r.Group(func(rr httpkit.Router) {
			rr.Use(ihttp.RequireAtLeast(idomain.RoleDistrictOfficer))
			ahttp.RegisterQuery(rr, svc)
			ahttp.RegisterAdmin(rr, svc)
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

// Ports returns the module ports
func (m *Module) Ports() any { return m.ports }

// Name returns the module name
func (m *Module) Name() string { return m.name }

// Prefix returns the module route prefix
func (m *Module) Prefix() string { return m.prefix }
