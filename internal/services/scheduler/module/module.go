// Package module wires the advisory-lock scheduler into the API using modkit
package module

import (
	"context"
	"net/http"

	"sahay/internal/modkit"
	"sahay/internal/modkit/httpkit"
	"sahay/internal/platform/logger"

	shttp "sahay/internal/services/scheduler/http"
	ssvc "sahay/internal/services/scheduler/service"

	idomain "sahay/internal/services/ident/domain"
	ihttp "sahay/internal/services/ident/http"
)

// Ports declares the cross-module ports this module requires. Outbox is
// optional: a deployment that never enqueues outbound messages may leave
// it nil and outbox_drain is skipped on every pass
type Ports struct {
	Resolver   idomain.ResolverPort
	Complaints complaintsTicker
	Anchor     anchorTicker
	Analytics  analyticsFlusher
	Dashboard  dashboardRefresher
	Outbox     outboxDrainer
}

type complaintsTicker interface {
	Tick(ctx context.Context) (int, error)
}

type anchorTicker interface {
	Tick(ctx context.Context) (int, error)
}

type analyticsFlusher interface {
	Flush(ctx context.Context) (int, error)
}

type dashboardRefresher interface {
	RefreshDue(ctx context.Context) (int, error)
}

type outboxDrainer interface {
	Tick(ctx context.Context) (int, error)
}

// Module implements the scheduler module. Admin endpoints trigger jobs
// on demand; the background pass is driven separately by Service.Loop
type Module struct {
	deps   modkit.Deps
	name   string
	prefix string

	mws       []func(http.Handler) http.Handler
	ports     any
	subrouter func(httpkit.Router) httpkit.Router
	register  func(httpkit.Router)
}

// New constructs the scheduler module. Requires
// Ports{Resolver, Complaints, Anchor, Analytics, Dashboard} injected via
// modkit.WithPorts
func New(deps modkit.Deps, opts ...modkit.Option) modkit.Module {
	b := modkit.Build(append([]modkit.Option{
		modkit.WithName("scheduler"),
		modkit.WithPrefix("/scheduler"),
	}, opts...)...)

	injected, ok := b.Ports.(Ports)
	if !ok || injected.Resolver == nil || injected.Complaints == nil ||
		injected.Anchor == nil || injected.Analytics == nil || injected.Dashboard == nil {
		panic("scheduler module requires Ports{Resolver, Complaints, Anchor, Analytics, Dashboard}")
	}

	svc := ssvc.New(
		deps.PG,
		*logger.Named("scheduler"),
		injected.Complaints,
		injected.Anchor,
		injected.Analytics,
		injected.Dashboard,
		injected.Outbox,
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
		shttp.Register(r, svc)
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
