// Package module wires the outbox queue into the API using modkit
package module

import (
	"net/http"

	"sahay/internal/modkit"
	"sahay/internal/modkit/httpkit"

	"sahay/internal/services/outbox/domain"
	osvc "sahay/internal/services/outbox/service"
	orepo "sahay/internal/services/outbox/repo"
)

// Ports declares the cross-module ports this module requires: one Sender
// per Kind this deployment is able to deliver. A Kind with no Sender still
// queues durably; Tick will simply keep retrying until MaxAttempts
type Ports struct {
	Owner   string
	Senders map[domain.Kind]domain.Sender
}

// Module implements the outbox module. It exposes no end-user HTTP routes;
// enqueue happens from other services' Go code (complaints) and
// delivery is driven by the scheduler's outbox_drain job
type Module struct {
	deps   modkit.Deps
	name   string
	prefix string

	mws       []func(http.Handler) http.Handler
	ports     any
	subrouter func(httpkit.Router) httpkit.Router
	register  func(httpkit.Router)
}

// New constructs the outbox module
func New(deps modkit.Deps, opts ...modkit.Option) modkit.Module {
	b := modkit.Build(append([]modkit.Option{
		modkit.WithName("outbox"),
		modkit.WithPrefix("/outbox"),
	}, opts...)...)

	injected, _ := b.Ports.(Ports)

	svc := osvc.New(deps.PG, orepo.NewPG(), injected.Owner, injected.Senders)

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
		if external != nil {
			external(r)
		}
	}
	return m
}

// MountRoutes mounts the module routes on the given router (a no-op prefix
// group unless the caller supplies external routes via modkit.WithRegister)
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
