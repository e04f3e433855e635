// Package module wires the complaint SLA engine into the API using modkit
package module

import (
	"context"
	"net/http"
	"time"

	"sahay/internal/modkit"
	"sahay/internal/modkit/httpkit"
	"sahay/internal/modkit/repokit"

	adomain "sahay/internal/services/audit/domain"
	chttp "sahay/internal/services/complaints/http"
	crepo "sahay/internal/services/complaints/repo"
	csvc "sahay/internal/services/complaints/service"
	idomain "sahay/internal/services/ident/domain"
	ihttp "sahay/internal/services/ident/http"
	odomain "sahay/internal/services/outbox/domain"
)

// Ports declares the cross-module ports this module requires: the ident
// resolver for the Auth middleware, the audit AppendInTx seam, the anchor
// enqueue seam, and the outbox EnqueueInTx seam. Audit, Anchor and Outbox
// may be nil
type Ports struct {
	Resolver idomain.ResolverPort
	Audit    auditAppender
	Anchor   anchorEnqueuer
	Outbox   outboxEnqueuer
	SLA      csvc.SLAConfig
}

type auditAppender interface {
	AppendInTx(ctx context.Context, q repokit.Queryer, in adomain.Append) (adomain.Entry, error)
}

type anchorEnqueuer interface {
	EnqueueCreate(ctx context.Context, q repokit.Queryer, complaintID string, complaintHash, slaHash, statusHash [32]byte, createdAt time.Time) error
	EnqueueUpdate(ctx context.Context, q repokit.Queryer, complaintID string, statusHash [32]byte, updatedAt time.Time) error
}

type outboxEnqueuer interface {
	EnqueueInTx(ctx context.Context, q repokit.Queryer, in odomain.Enqueue) (odomain.Message, error)
}

// Module implements the complaints module
type Module struct {
	deps   modkit.Deps
	name   string
	prefix string

	mws       []func(http.Handler) http.Handler
	ports     any
	subrouter func(httpkit.Router) httpkit.Router
	register  func(httpkit.Router)
}

// New constructs the complaints module. Requires Ports{Resolver} injected
// via modkit.WithPorts
func New(deps modkit.Deps, opts ...modkit.Option) modkit.Module {
	b := modkit.Build(append([]modkit.Option{
		modkit.WithName("complaints"),
		modkit.WithPrefix("/complaints"),
	}, opts...)...)

	injected, ok := b.Ports.(Ports)
	if !ok || injected.Resolver == nil {
		panic("complaints API module requires Ports{Resolver} (from services/ident)")
	}

	svc := csvc.New(deps.PG, crepo.NewPG(), injected.Audit, injected.Anchor, injected.SLA, injected.Outbox)

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
		// submit admits anonymous callers; every other route requires auth
		r.Group(func(rr httpkit.Router) {
			rr.Use(ihttp.OptionalAuthenticate(injected.Resolver))
			chttp.RegisterSubmit(rr, svc)
		})
		r.Group(func(rr httpkit.Router) {
			rr.Use(ihttp.Authenticate(injected.Resolver))
			chttp.RegisterAuthed(rr, svc)
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
