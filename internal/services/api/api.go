// Package api provides the HTTP API for the application
package api

import (
	"sahay/internal/platform/config"
	"sahay/internal/platform/logger"
	phttp "sahay/internal/platform/net/http"
	"sahay/internal/platform/store"

	"sahay/internal/modkit"
	"sahay/internal/modkit/httpkit"
	"sahay/internal/modkit/module"
	"sahay/internal/modkit/swaggerkit"

	anchorclient "sahay/internal/adapters/anchor"

	analyticsmod "sahay/internal/services/analytics/module"
	analyticssvc "sahay/internal/services/analytics/service"
	anchormod "sahay/internal/services/anchor/module"
	anchorsvc "sahay/internal/services/anchor/service"
	dashboardmod "sahay/internal/services/api/dashboard/module"
	dashboardsvc "sahay/internal/services/api/dashboard/service"
	auditmod "sahay/internal/services/audit/module"
	auditsvc "sahay/internal/services/audit/service"
	complaintsmod "sahay/internal/services/complaints/module"
	complaintssvc "sahay/internal/services/complaints/service"
	consentmod "sahay/internal/services/consent/module"
	consentsvc "sahay/internal/services/consent/service"
	erasuremod "sahay/internal/services/erasure/module"
	identdomain "sahay/internal/services/ident/domain"
	identmod "sahay/internal/services/ident/module"
	identsvc "sahay/internal/services/ident/service"
	outboxmod "sahay/internal/services/outbox/module"
	outboxsvc "sahay/internal/services/outbox/service"
	schedulermod "sahay/internal/services/scheduler/module"
	syncmod "sahay/internal/services/sync/module"
	syncsvc "sahay/internal/services/sync/service"
	telemod "sahay/internal/services/tele/module"
	telesvc "sahay/internal/services/tele/service"
	triagemod "sahay/internal/services/triage/module"
	triagesvc "sahay/internal/services/triage/service"
)

// Options are the API options
type Options struct {
	Config         config.Conf
	Store          *store.Store
	Logger         *logger.Logger
	EnableSwagger  bool
	EnableProfiler bool
}

// Mount mounts the SAHAY API onto the given router. Modules are composed in
// dependency order: ident provides the bearer-token resolver every other
// module authenticates against; audit and anchor provide the cross-module
// seams (AppendInTx, EnqueueCreate/EnqueueUpdate) consumed by consent and
// complaints; analytics' k-anonymous Summary feeds dashboard; and the
// scheduler drives complaints/anchor/analytics/dashboard's periodic jobs
func Mount(r phttp.Router, opt Options) {
	deps := modkit.Deps{
		Cfg: opt.Config,
		PG:  opt.Store.PG,
		CH:  opt.Store.CH,
		Log: *opt.Logger,
	}

	anchorCfg := opt.Config.Prefix("SAHAY_ANCHOR_")
	chain := anchorclient.NewClient(anchorclient.Options{
		BaseURL: anchorCfg.MayString("BASE_URL", ""),
		APIKey:  anchorCfg.MayString("API_KEY", ""),
	})

	ident := identmod.New(deps)
	resolver := module.MustPortsOf[identdomain.ResolverPort](ident)
	identSvc := ident.Ports().(*identsvc.Service)

	audit := auditmod.New(deps)
	auditSvc := audit.Ports().(*auditsvc.Service)

	consent := consentmod.New(deps, modkit.WithPorts(consentmod.Ports{
		Audit:    auditSvc,
		Resolver: resolver,
	}))
	consentSvc := consent.Ports().(*consentsvc.Service)

	sync := syncmod.New(deps, modkit.WithPorts(syncmod.Ports{Resolver: resolver}))
	syncSvc := sync.Ports().(*syncsvc.Service)

	triage := triagemod.New(deps, modkit.WithPorts(triagemod.Ports{Resolver: resolver}))
	triageSvc := triage.Ports().(*triagesvc.Service)

	anchor := anchormod.New(deps, modkit.WithPorts(anchormod.Ports{
		Resolver: resolver,
		Chain:    chain,
	}))
	anchorSvc := anchor.Ports().(*anchorsvc.Service)

	// outbox carries no Senders by default: a deployment wires real
	// delivery channels (SMS gateway, webhook) by supplying
	// outboxmod.Ports{Senders: ...} for each odomain.Kind it can deliver.
	// Messages with no registered Sender still queue durably and retry
	outbox := outboxmod.New(deps, modkit.WithPorts(outboxmod.Ports{Owner: "sahay-api"}))
	outboxSvc := outbox.Ports().(*outboxsvc.Service)

	complaints := complaintsmod.New(deps, modkit.WithPorts(complaintsmod.Ports{
		Resolver: resolver,
		Audit:    auditSvc,
		Anchor:   anchorSvc,
		Outbox:   outboxSvc,
		SLA:      complaintssvc.SLAConfig{},
	}))
	complaintsSvc := complaints.Ports().(*complaintssvc.Service)

	tele := telemod.New(deps, modkit.WithPorts(telemod.Ports{Resolver: resolver, Audit: auditSvc}))
	teleSvc := tele.Ports().(*telesvc.Service)

	erasure := erasuremod.New(deps, modkit.WithPorts(erasuremod.Ports{
		Resolver:   resolver,
		Ident:      identSvc,
		Consent:    consentSvc,
		Sync:       syncSvc,
		Triage:     triageSvc,
		Tele:       teleSvc,
		Complaints: complaintsSvc,
		Audit:      auditSvc,
	}))

	analytics := analyticsmod.New(deps, modkit.WithPorts(analyticsmod.Ports{
		Resolver: resolver,
		Consent:  consentSvc,
	}))
	analyticsSvc := analytics.Ports().(*analyticssvc.Service)

	dashboard := dashboardmod.New(deps, modkit.WithPorts(dashboardmod.Ports{
		Resolver:  resolver,
		Analytics: analyticsSvc,
	}))
	dashboardSvc := dashboard.Ports().(*dashboardsvc.Service)

	scheduler := schedulermod.New(deps, modkit.WithPorts(schedulermod.Ports{
		Resolver:   resolver,
		Complaints: complaintsSvc,
		Anchor:     anchorSvc,
		Analytics:  analyticsSvc,
		Dashboard:  dashboardSvc,
		Outbox:     outboxSvc,
	}))

	mods := []module.Module{
		ident,
		audit,
		consent,
		sync,
		triage,
		anchor,
		outbox,
		complaints,
		tele,
		erasure,
		analytics,
		dashboard,
		scheduler,
	}

	httpkit.MountAPIV1(r, httpkit.CommonStack(), func(api httpkit.Router) {
		swaggerkit.Mount(r, opt.EnableSwagger)
		phttp.MountProfiler(r, "/debug", opt.EnableProfiler)

		for _, m := range mods {
			module.Register(m.Name(), m.Ports())
			m.MountRoutes(api)
		}
	})
}
