// Package service implements the advisory-lock scheduler (§5, §9): each job
// runs inside a transaction holding pg_try_advisory_xact_lock(hashtext(job)),
// so only one scheduler instance in the fleet executes a given job at a
// time; the lock releases automatically at transaction end
package service

import (
	"context"
	"time"

	"sahay/internal/modkit/repokit"
	"sahay/internal/platform/logger"
	"sahay/internal/services/scheduler/domain"

	perrs "sahay/internal/platform/errors"
)

type jobFunc func(ctx context.Context) (int, error)

// Service implements domain.Ports
type Service struct {
	db   repokit.TxRunner
	log  logger.Logger
	jobs map[domain.JobName]jobFunc
}

// complaintsTicker is the narrow slice of the complaint SLA engine the
// scheduler drives
type complaintsTicker interface {
	Tick(ctx context.Context) (int, error)
}

// anchorTicker is the narrow slice of the anchor client the scheduler drives
type anchorTicker interface {
	Tick(ctx context.Context) (int, error)
}

// analyticsFlusher is the narrow slice of the analytics pipeline the
// scheduler drives
type analyticsFlusher interface {
	Flush(ctx context.Context) (int, error)
}

// dashboardRefresher is the narrow slice of the dashboard views the
// scheduler drives
type dashboardRefresher interface {
	RefreshDue(ctx context.Context) (int, error)
}

// outboxDrainer is the narrow slice of the outbox queue the scheduler
// drives. Optional: a deployment that enqueues nothing may leave it nil
type outboxDrainer interface {
	Tick(ctx context.Context) (int, error)
}

// New constructs the scheduler service. outbox may be nil, in which case
// domain.JobOutboxDrain is skipped on every pass
func New(
	db repokit.TxRunner,
	log logger.Logger,
	complaints complaintsTicker,
	anchor anchorTicker,
	analytics analyticsFlusher,
	dashboard dashboardRefresher,
	outbox outboxDrainer,
) *Service {
	if db == nil {
		panic("scheduler.Service requires a non-nil TxRunner")
	}
	if complaints == nil || anchor == nil || analytics == nil || dashboard == nil {
		panic("scheduler.Service requires all four job dependencies")
	}
	jobs := map[domain.JobName]jobFunc{
		domain.JobSLATick:          complaints.Tick,
		domain.JobAnchorRetryTick:  anchor.Tick,
		domain.JobAnalyticsFlush:   analytics.Flush,
		domain.JobDashboardRefresh: dashboard.RefreshDue,
	}
	if outbox != nil {
		jobs[domain.JobOutboxDrain] = outbox.Tick
	}
	return &Service{
		db:   db,
		log:  log,
		jobs: jobs,
	}
}

// Run implements domain.RunnerPort
func (s *Service) Run(ctx context.Context, job domain.JobName) (domain.Result, error) {
	fn, ok := s.jobs[job]
	if !ok {
		return domain.Result{}, perrs.InvalidArgf("scheduler: unknown job %q", job)
	}

	var res domain.Result
	err := s.db.Tx(ctx, func(q repokit.Queryer) error {
		locked, err := tryLock(ctx, q, job)
		if err != nil {
			return err
		}
		if !locked {
			res = domain.Result{Ran: false}
			return nil
		}
		n, err := fn(ctx)
		if err != nil {
			res = domain.Result{Ran: true, Err: err}
			return err
		}
		res = domain.Result{Ran: true, Count: n}
		return nil
	})
	return res, err
}

// RunAll implements domain.RunnerPort. Each job's failure is recorded
// against that job and does not prevent the others from running. Jobs with
// no registered dependency (e.g. outbox_drain when no outbox was wired) are
// silently skipped rather than treated as failures
func (s *Service) RunAll(ctx context.Context) (map[domain.JobName]domain.Result, error) {
	out := make(map[domain.JobName]domain.Result, len(domain.AllJobs))
	for _, job := range domain.AllJobs {
		if _, registered := s.jobs[job]; !registered {
			continue
		}
		res, err := s.Run(ctx, job)
		if err != nil {
			s.log.Error().Err(err).Str("job", string(job)).Msg("scheduler job failed")
			res.Err = err
		}
		out[job] = res
	}
	return out, nil
}

// Loop runs RunAll every domain.TickInterval until ctx is cancelled,
// mirroring the teacher's ticker-driven worker loop
func (s *Service) Loop(ctx context.Context) error {
	t := time.NewTicker(domain.TickInterval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
			if _, err := s.RunAll(ctx); err != nil {
				s.log.Error().Err(err).Msg("scheduler pass failed")
			}
		}
	}
}

func tryLock(ctx context.Context, q repokit.Queryer, job domain.JobName) (bool, error) {
	row := q.QueryRow(ctx, `SELECT pg_try_advisory_xact_lock(hashtext($1))`, string(job))
	var locked bool
	if err := row.Scan(&locked); err != nil {
		return false, err
	}
	return locked, nil
}
