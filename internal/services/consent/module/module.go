// Package module wires the consent registry into the API using modkit
package module

import (
	"context"
	"net/http"

	"sahay/internal/modkit"
	"sahay/internal/modkit/httpkit"
	"sahay/internal/modkit/repokit"

	adomain "sahay/internal/services/audit/domain"
	chttp "sahay/internal/services/consent/http"
	crepo "sahay/internal/services/consent/repo"
	csvc "sahay/internal/services/consent/service"
	idomain "sahay/internal/services/ident/domain"
	ihttp "sahay/internal/services/ident/http"
)

// Ports declares the cross-module ports this module requires: the audit
// chain's AppendInTx seam and the ident resolver for the Auth middleware
type Ports struct {
	Audit    auditAppender
	Resolver idomain.ResolverPort
}

type auditAppender interface {
	AppendInTx(ctx context.Context, q repokit.Queryer, in adomain.Append) (adomain.Entry, error)
}

// Module implements the consent service module
type Module struct {
	deps   modkit.Deps
	name   string
	prefix string

	mws       []func(http.Handler) http.Handler
	ports     any
	subrouter func(httpkit.Router) httpkit.Router
	register  func(httpkit.Router)
}

// New constructs the consent module. Requires Ports{Resolver} to be
// injected via modkit.WithPorts; Audit may be nil
func New(deps modkit.Deps, opts ...modkit.Option) modkit.Module {
	b := modkit.Build(append([]modkit.Option{
		modkit.WithName("consent"),
		modkit.WithPrefix("/consents"),
	}, opts...)...)

	injected, ok := b.Ports.(Ports)
	if !ok || injected.Resolver == nil {
		panic("consent API module requires Ports{Resolver} (from services/ident)")
	}

	svc := csvc.New(deps.PG, crepo.NewPG(), injected.Audit)

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
		chttp.Register(r, svc)
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
