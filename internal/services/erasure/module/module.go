// Package module wires the right-to-erasure cascade into the API using
// modkit. Unlike most modules here, erasure has no repo/service pair of its
// own: it composes narrow erase seams from six other modules, the same way
// the scheduler composes narrow tickers
package module

import (
	"context"
	"net/http"

	"sahay/internal/modkit"
	"sahay/internal/modkit/httpkit"
	"sahay/internal/modkit/repokit"

	ehttp "sahay/internal/services/erasure/http"
	esvc "sahay/internal/services/erasure/service"

	adomain "sahay/internal/services/audit/domain"
	idomain "sahay/internal/services/ident/domain"
	ihttp "sahay/internal/services/ident/http"
)

type identEraser interface {
	EraseUserInTx(ctx context.Context, q repokit.Queryer, userID string) error
}

type consentEraser interface {
	EraseUserInTx(ctx context.Context, q repokit.Queryer, userID string) error
}

type syncEraser interface {
	EraseUserInTx(ctx context.Context, q repokit.Queryer, userID string) error
}

type triageEraser interface {
	EraseUserInTx(ctx context.Context, q repokit.Queryer, userID string) error
}

type teleEraser interface {
	EraseUserInTx(ctx context.Context, q repokit.Queryer, userID string) error
}

type complaintsEraser interface {
	AnonymizeSubmitterInTx(ctx context.Context, q repokit.Queryer, submitterID string) error
}

type auditAppender interface {
	AppendInTx(ctx context.Context, q repokit.Queryer, in adomain.Append) (adomain.Entry, error)
}

// Ports declares the cross-module ports this module requires. Audit is
// optional; every other module eraser is required since a cascade missing
// one would silently leave owned rows behind
type Ports struct {
	Resolver   idomain.ResolverPort
	Ident      identEraser
	Consent    consentEraser
	Sync       syncEraser
	Triage     triageEraser
	Tele       teleEraser
	Complaints complaintsEraser
	Audit      auditAppender
}

// Module implements the erasure module
type Module struct {
	deps   modkit.Deps
	name   string
	prefix string

	mws       []func(http.Handler) http.Handler
	ports     any
	subrouter func(httpkit.Router) httpkit.Router
	register  func(httpkit.Router)
}

// New constructs the erasure module. Requires
// Ports{Resolver, Ident, Consent, Sync, Triage, Tele, Complaints} injected
// via modkit.WithPorts
func New(deps modkit.Deps, opts ...modkit.Option) modkit.Module {
	b := modkit.Build(append([]modkit.Option{
		modkit.WithName("erasure"),
		modkit.WithPrefix("/users"),
	}, opts...)...)

	injected, ok := b.Ports.(Ports)
	if !ok || injected.Resolver == nil || injected.Ident == nil || injected.Consent == nil ||
		injected.Sync == nil || injected.Triage == nil || injected.Tele == nil || injected.Complaints == nil {
		panic("erasure module requires Ports{Resolver, Ident, Consent, Sync, Triage, Tele, Complaints}")
	}

	svc := esvc.New(
		deps.PG,
		injected.Ident,
		injected.Consent,
		injected.Sync,
		injected.Triage,
		injected.Tele,
		injected.Complaints,
		injected.Audit,
	)

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
		r.Use(ihttp.RequireAtLeast(idomain.RoleNationalAdmin))
		ehttp.Register(r, svc)
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
