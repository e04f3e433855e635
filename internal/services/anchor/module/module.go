// Package module wires the anchor client into the API using modkit
package module

import (
	"net/http"

	"sahay/internal/modkit"
	"sahay/internal/modkit/httpkit"

	ahttp "sahay/internal/services/anchor/http"
	arepo "sahay/internal/services/anchor/repo"
	asvc "sahay/internal/services/anchor/service"
	idomain "sahay/internal/services/ident/domain"
	ihttp "sahay/internal/services/ident/http"
)

// Ports declares the cross-module ports this module requires
type Ports struct {
	Resolver idomain.ResolverPort
	Chain    asvc.ChainClient
}

// Module implements the anchor module
type Module struct {
	deps   modkit.Deps
	name   string
	prefix string

	mws       []func(http.Handler) http.Handler
	ports     any
	subrouter func(httpkit.Router) httpkit.Router
	register  func(httpkit.Router)
}

// New constructs the anchor module. Requires Ports{Resolver, Chain}
// injected via modkit.WithPorts. The returned Module's Ports() value also
// satisfies the anchorEnqueuer structural interface other services (e.g.
// complaints) declare locally, so it can be passed directly into their
// modkit.WithPorts
func New(deps modkit.Deps, opts ...modkit.Option) modkit.Module {
	b := modkit.Build(append([]modkit.Option{
		modkit.WithName("anchor"),
		modkit.WithPrefix("/anchors"),
	}, opts...)...)

	injected, ok := b.Ports.(Ports)
	if !ok || injected.Resolver == nil || injected.Chain == nil {
		panic("anchor module requires Ports{Resolver, Chain}")
	}

	svc := asvc.New(deps.PG, arepo.NewPG(), injected.Chain)

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
		ahttp.Register(r, svc)
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

// Ports returns the module ports (domain.Ports plus the enqueue seam,
// implemented by the service)
func (m *Module) Ports() any { return m.ports }

// Name returns the module name
func (m *Module) Name() string { return m.name }

// Prefix returns the module route prefix
func (m *Module) Prefix() string { return m.prefix }
