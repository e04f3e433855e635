// Package module wires the triage service into the API using modkit
package module

import (
	"net/http"

	"sahay/internal/modkit"
	"sahay/internal/modkit/httpkit"

	core "sahay/internal/core/triage"
	idomain "sahay/internal/services/ident/domain"
	ihttp "sahay/internal/services/ident/http"
	thttp "sahay/internal/services/triage/http"
	trepo "sahay/internal/services/triage/repo"
	tsvc "sahay/internal/services/triage/service"
)

// Ports declares the cross-module ports this module requires: the ident
// resolver for the Auth middleware
type Ports struct {
	Resolver   idomain.ResolverPort
	Classifier core.ClassifierPort // optional; nil defaults every non-red-flag case to PHC
}

// Module implements the triage service module
type Module struct {
	deps   modkit.Deps
	name   string
	prefix string

	mws       []func(http.Handler) http.Handler
	ports     any
	subrouter func(httpkit.Router) httpkit.Router
	register  func(httpkit.Router)
}

// New constructs the triage module. Requires Ports{Resolver} injected via
// modkit.WithPorts; Classifier is optional
func New(deps modkit.Deps, opts ...modkit.Option) modkit.Module {
	b := modkit.Build(append([]modkit.Option{
		modkit.WithName("triage"),
		modkit.WithPrefix("/triage"),
	}, opts...)...)

	injected, ok := b.Ports.(Ports)
	if !ok || injected.Resolver == nil {
		panic("triage API module requires Ports{Resolver} (from services/ident)")
	}

	pack, err := core.LoadEmbedded()
	if err != nil {
		panic("triage: failed to load embedded red-flag pack: " + err.Error())
	}
	engine := core.New(pack, core.NewGuidanceSet(), injected.Classifier)

	svc := tsvc.New(deps.PG, trepo.NewPG(), engine)

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
		thttp.Register(r, svc)
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
