// Package main runs the SAHAY scheduler as a standalone worker process,
// separate from the HTTP API. It wires the same service graph api.Mount
// wires for the job-bearing modules, but skips ident/sync/triage and all
// HTTP routing since the scheduler only ever calls service methods directly
package main

import (
	"context"

	"sahay/internal/platform/config"
	"sahay/internal/platform/logger"
	"sahay/internal/platform/store"

	anchorclient "sahay/internal/adapters/anchor"

	analyticsrepo "sahay/internal/services/analytics/repo"
	analyticssvc "sahay/internal/services/analytics/service"
	anchorrepo "sahay/internal/services/anchor/repo"
	anchorsvc "sahay/internal/services/anchor/service"
	dashboardrepo "sahay/internal/services/api/dashboard/repo"
	dashboardsvc "sahay/internal/services/api/dashboard/service"
	complaintsrepo "sahay/internal/services/complaints/repo"
	complaintssvc "sahay/internal/services/complaints/service"
	consentrepo "sahay/internal/services/consent/repo"
	consentsvc "sahay/internal/services/consent/service"
	outboxrepo "sahay/internal/services/outbox/repo"
	outboxsvc "sahay/internal/services/outbox/service"
	scheddomain "sahay/internal/services/scheduler/domain"
	schedulersvc "sahay/internal/services/scheduler/service"
)

func main() {
	root := config.New()
	dbCfg := root.Prefix("SERVICE_PGSQL_")
	chCfg := root.Prefix("SERVICE_CH_")
	anchorCfg := root.Prefix("SAHAY_ANCHOR_")

	l := logger.Get()

	dsn := dbCfg.MayString("DBURL", "")
	if dsn == "" {
		panic("missing SERVICE_PGSQL_DBURL")
	}
	chDSN := chCfg.MayString("DBURL", "")
	if chDSN == "" {
		panic("missing SERVICE_CH_DBURL")
	}
	st, err := store.Open(
		context.Background(),
		store.Config{
			PG: store.PGConfig{
				Enabled:     true,
				URL:         dsn,
				MaxConns:    int32(dbCfg.MayInt("MAX_CONNS", 4)),
				SlowQueryMs: dbCfg.MayInt("SLOW_MS", 500),
				LogSQL:      dbCfg.MayBool("LOG_SQL", true),
			},
			CH: store.CHConfig{
				Enabled: true,
				URL:     chDSN,
			},
		},
		store.WithLogger(*logger.Get()),
	)
	if err != nil {
		l.Panic().Err(err).Msg("store.Open failed")
	}
	defer func() {
		if err := st.Close(context.Background()); err != nil {
			l.Error().Err(err).Msg("failed to close store")
		}
	}()

	chain := anchorclient.NewClient(anchorclient.Options{
		BaseURL: anchorCfg.MayString("BASE_URL", ""),
		APIKey:  anchorCfg.MayString("API_KEY", ""),
	})

	consent := consentsvc.New(st.PG, consentrepo.NewPG(), nil)
	anchor := anchorsvc.New(st.PG, anchorrepo.NewPG(), chain)
	complaints := complaintssvc.New(st.PG, complaintsrepo.NewPG(), nil, anchor, complaintssvc.SLAConfig{}, nil)
	analytics := analyticssvc.New(st.PG, analyticsrepo.NewPG(), analyticsrepo.NewCH(st.CH), consent)
	dashboard := dashboardsvc.New(st.PG, dashboardrepo.NewPG(), analytics)

	// outboxSenders carries no delivery channels by default: a deployment
	// wires real senders (SMS gateway, webhook) per domain.Kind it can
	// deliver. Messages with no registered Sender still queue and retry
	outbox := outboxsvc.New(st.PG, outboxrepo.NewPG(), "sahay-scheduler", nil)

	sched := schedulersvc.New(st.PG, *l, complaints, anchor, analytics, dashboard, outbox)

	l.Info().Dur("interval", scheddomain.TickInterval).Msg("scheduler worker starting")
	if err := sched.Loop(context.Background()); err != nil {
		l.Panic().Err(err).Msg("scheduler loop stopped")
	}
}
