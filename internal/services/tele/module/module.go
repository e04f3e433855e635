// Package module wires teleconsultation requests and prescriptions into
// the API using modkit
package module

import (
	"context"
	"net/http"

	"sahay/internal/modkit"
	"sahay/internal/modkit/httpkit"
	"sahay/internal/modkit/repokit"

	adomain "sahay/internal/services/audit/domain"
	idomain "sahay/internal/services/ident/domain"
	ihttp "sahay/internal/services/ident/http"
	thttp "sahay/internal/services/tele/http"
	trepo "sahay/internal/services/tele/repo"
	tsvc "sahay/internal/services/tele/service"
)

// Ports declares the cross-module ports this module requires: the ident
// resolver for the Auth/RBAC middleware and the audit AppendInTx seam.
// Audit may be nil
type Ports struct {
	Resolver idomain.ResolverPort
	Audit    auditAppender
}

type auditAppender interface {
	AppendInTx(ctx context.Context, q repokit.Queryer, in adomain.Append) (adomain.Entry, error)
}

// Module implements the tele module
type Module struct {
	deps   modkit.Deps
	name   string
	prefix string

	mws       []func(http.Handler) http.Handler
	ports     any
	subrouter func(httpkit.Router) httpkit.Router
	register  func(httpkit.Router)
}

// New constructs the tele module. Requires Ports{Resolver} injected via
// modkit.WithPorts
func New(deps modkit.Deps, opts ...modkit.Option) modkit.Module {
	b := modkit.Build(append([]modkit.Option{
		modkit.WithName("tele"),
		modkit.WithPrefix("/tele"),
	}, opts...)...)

	injected, ok := b.Ports.(Ports)
	if !ok || injected.Resolver == nil {
		panic("tele API module requires Ports{Resolver} (from services/ident)")
	}

	svc := tsvc.New(deps.PG, trepo.NewPG(), injected.Audit)

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
		r.Group(func(rr httpkit.Router) {
			rr.Use(ihttp.Authenticate(injected.Resolver))
			thttp.Register(rr, svc)
		})
		r.Group(func(rr httpkit.Router) {
			rr.Use(ihttp.Authenticate(injected.Resolver))
			rr.Use(ihttp.RequireRole(idomain.RoleClinician))
			thttp.RegisterClinician(rr, svc)
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
