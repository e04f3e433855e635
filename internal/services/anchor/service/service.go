// Package service implements the anchor client (4.F): every complaint
// create/update is queued as a hash commitment and submitted to an
// external chain contract with retry and nonce recovery, independent of
// the request path that enqueued it
package service

import (
	"context"
	"errors"
	"time"

	"sahay/internal/adapters/anchor"
	adomain "sahay/internal/services/anchor/domain"
	"sahay/internal/services/anchor/repo"

	"golang.org/x/sync/singleflight"

	"sahay/internal/modkit/repokit"
	perrs "sahay/internal/platform/errors"
	"sahay/internal/platform/logger"
)

const (
	maxAttempts = 8
	retryBase   = 30 * time.Second
	retryCap    = 30 * time.Minute
	claimBatch  = 50
)

// ChainClient is the external chain contract surface the anchor service
// depends on. Satisfied by internal/adapters/anchor.Client
type ChainClient interface {
	CreateAnchor(ctx context.Context, complaintHash, slaHash, statusHash [32]byte, createdAt time.Time, nonce uint64) error
	UpdateStatus(ctx context.Context, complaintHash, statusHash [32]byte, updatedAt time.Time, nonce uint64) error
	CurrentNonce(ctx context.Context, complaintHash [32]byte) (uint64, error)
}

// Service implements adomain.Ports plus the tx-composable enqueue seam
// consumed by other services (complaints)
type Service struct {
	db     repokit.TxRunner
	binder repokit.Binder[repo.Repo]
	chain  ChainClient
	log    logger.Logger

	// sf ensures at most one in-flight chain submission per complaint even
	// if two scheduler ticks overlap within this process; the DB claim
	// (FOR UPDATE SKIP LOCKED) is the cross-process guarantee, this is the
	// in-process one
	sf singleflight.Group
}

// New constructs the anchor service
func New(db repokit.TxRunner, binder repokit.Binder[repo.Repo], chain ChainClient) *Service {
	if db == nil {
		panic("anchor.Service requires a non-nil TxRunner")
	}
	if binder == nil {
		panic("anchor.Service requires a non-nil Repo binder")
	}
	if chain == nil {
		panic("anchor.Service requires a non-nil ChainClient")
	}
	return &Service{db: db, binder: binder, chain: chain, log: *logger.Named("anchor")}
}

// EnqueueCreate queues a create-anchor job for a newly filed complaint,
// reserving its first nonce, in the caller's transaction
func (s *Service) EnqueueCreate(ctx context.Context, q repokit.Queryer, complaintID string, complaintHash, slaHash, statusHash [32]byte, createdAt time.Time) error {
	r := s.binder.Bind(q)
	nonce, err := r.NextNonce(ctx, q, complaintID)
	if err != nil {
		return err
	}
	_, err = r.InsertJob(ctx, q, adomain.Job{
		ComplaintID:   complaintID,
		Kind:          adomain.JobKindCreate,
		ComplaintHash: complaintHash,
		SLAHash:       slaHash,
		StatusHash:    statusHash,
		CreatedAt:     createdAt,
		UpdatedAt:     createdAt,
		Nonce:         nonce,
	})
	return err
}

// EnqueueUpdate queues an update-status job, reusing the complaint hash
// bookkept by the original create job
func (s *Service) EnqueueUpdate(ctx context.Context, q repokit.Queryer, complaintID string, statusHash [32]byte, updatedAt time.Time) error {
	r := s.binder.Bind(q)
	prev, found, err := r.LatestForComplaint(ctx, q, complaintID)
	if err != nil {
		return err
	}
	if !found {
		return perrs.StateInvalidf("anchor: complaint %s has no prior anchor job to update", complaintID)
	}
	nonce, err := r.NextNonce(ctx, q, complaintID)
	if err != nil {
		return err
	}
	_, err = r.InsertJob(ctx, q, adomain.Job{
		ComplaintID:   complaintID,
		Kind:          adomain.JobKindUpdate,
		ComplaintHash: prev.ComplaintHash,
		SLAHash:       prev.SLAHash,
		StatusHash:    statusHash,
		CreatedAt:     updatedAt,
		UpdatedAt:     updatedAt,
		Nonce:         nonce,
	})
	return err
}

// Status reports the latest anchor job state for a complaint
func (s *Service) Status(ctx context.Context, complaintID string) (adomain.Status, error) {
	var out adomain.Status
	err := s.db.Tx(ctx, func(q repokit.Queryer) error {
		j, found, err := s.binder.Bind(q).LatestForComplaint(ctx, q, complaintID)
		if err != nil {
			return err
		}
		if !found {
			out = adomain.Status{ComplaintID: complaintID}
			return nil
		}
		out = adomain.Status{
			ComplaintID: complaintID,
			Anchored:    j.Status == adomain.JobStatusDone,
			LastStatus:  j.Status,
			Attempts:    j.Attempts,
		}
		return nil
	})
	return out, err
}

// Tick claims due anchor jobs and submits them to the chain, retrying
// transient failures with exponential backoff and recovering from a stale
// nonce by reading the chain's current nonce and resuming at onchain+1
// (4.F). Intended to run under the central scheduler's advisory lock
func (s *Service) Tick(ctx context.Context) (int, error) {
	submitted := 0
	err := s.db.Tx(ctx, func(q repokit.Queryer) error {
		r := s.binder.Bind(q)
		due, err := r.ClaimDue(ctx, time.Now().UTC(), claimBatch)
		if err != nil {
			return err
		}
		for _, j := range due {
			if err := r.MarkInFlight(ctx, j.ID); err != nil {
				return err
			}
			j.Attempts++ // MarkInFlight bumps the stored row; mirror it locally for the retry-budget check below
			_, err, _ := s.sf.Do(j.ComplaintID, func() (any, error) {
				return nil, s.submit(ctx, r, q, j)
			})
			if err != nil {
				return err
			}
			submitted++
		}
		return nil
	})
	return submitted, err
}

func (s *Service) submit(ctx context.Context, r repo.Repo, q repokit.Queryer, j adomain.Job) error {
	var err error
	switch j.Kind {
	case adomain.JobKindCreate:
		err = s.chain.CreateAnchor(ctx, j.ComplaintHash, j.SLAHash, j.StatusHash, j.CreatedAt, j.Nonce)
	case adomain.JobKindUpdate:
		err = s.chain.UpdateStatus(ctx, j.ComplaintHash, j.StatusHash, j.UpdatedAt, j.Nonce)
	default:
		return perrs.Internalf("anchor: unknown job kind %q", j.Kind)
	}

	if err == nil {
		return r.MarkDone(ctx, j.ID)
	}

	if errors.Is(err, anchor.ErrInvalidNonce) {
		onchain, cerr := s.chain.CurrentNonce(ctx, j.ComplaintHash)
		if cerr != nil {
			s.log.Warn().Err(cerr).Str("job_id", j.ID).Msg("anchor nonce recovery failed, chain unavailable")
			return r.MarkChainUnavailable(ctx, j.ID, time.Now().UTC().Add(retryBase))
		}
		if serr := r.SetNonce(ctx, q, j.ComplaintID, onchain+1); serr != nil {
			return serr
		}
		return r.MarkRetry(ctx, j.ID, time.Now().UTC())
	}

	if j.Attempts >= maxAttempts {
		s.log.Warn().Err(err).Str("job_id", j.ID).Int("attempts", j.Attempts).Msg("anchor job exhausted retries, degrading to chain_unavailable")
		return r.MarkChainUnavailable(ctx, j.ID, time.Now().UTC().Add(retryCap))
	}

	back := backoff(j.Attempts)
	s.log.Warn().Err(err).Str("job_id", j.ID).Dur("retry_in", back).Msg("anchor submission failed, retrying")
	return r.MarkRetry(ctx, j.ID, time.Now().UTC().Add(back))
}

func backoff(attempt int) time.Duration {
	d := retryBase << uint(attempt)
	if d > retryCap {
		return retryCap
	}
	return d
}
