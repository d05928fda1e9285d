// File: internal/infra/sched/session_reconciler.go
package sched

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"marketplace-payments/internal/domain/model"
	"marketplace-payments/internal/domain/ports/repository"
	"marketplace-payments/internal/infra/worker"
)

// SessionResolver is the one-shot resolution entry point the reconciler needs.
// Satisfied by the status poller.
type SessionResolver interface {
	ReconcileOnce(ctx context.Context, s *model.PaymentSession) error
}

// SessionReconciler periodically scans for stale pending sessions and queries
// the gateway once for each. This covers callbacks that never arrived and
// processes that crashed mid-resolution.
type SessionReconciler struct {
	resolver   SessionResolver
	sessions   repository.PaymentSessionRepository
	pool       *worker.Pool
	interval   time.Duration // how often to scan
	staleAfter time.Duration // how old a pending session must be to retry
	log        *zerolog.Logger
}

func NewSessionReconciler(
	resolver SessionResolver,
	sessions repository.PaymentSessionRepository,
	pool *worker.Pool,
	interval, staleAfter time.Duration,
	logger *zerolog.Logger,
) *SessionReconciler {
	if interval <= 0 {
		interval = time.Minute
	}
	if staleAfter <= 0 {
		staleAfter = 10 * time.Minute
	}
	return &SessionReconciler{
		resolver:   resolver,
		sessions:   sessions,
		pool:       pool,
		interval:   interval,
		staleAfter: staleAfter,
		log:        logger,
	}
}

func (w *SessionReconciler) Start(ctx context.Context) {
	t := time.NewTicker(w.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			w.tick(ctx)
		}
	}
}

func (w *SessionReconciler) tick(ctx context.Context) {
	cutoff := time.Now().Add(-w.staleAfter)
	pending, err := w.sessions.ListPendingOlderThan(ctx, repository.NoTX, cutoff, 200)
	if err != nil {
		w.log.Error().Err(err).Msg("reconciler: list pending sessions failed")
		return
	}
	for _, s := range pending {
		if s.TrackingID == "" {
			// Initiation never acked; nothing to query the gateway about.
			continue
		}
		s := s
		err := w.pool.Submit(func(ctx context.Context) error {
			if err := w.resolver.ReconcileOnce(ctx, s); err != nil {
				w.log.Warn().
					Str("session_id", s.ID).
					Str("tracking_id", s.TrackingID).
					Err(err).
					Msg("reconciler: resolution attempt failed")
			}
			return nil
		})
		if err != nil {
			w.log.Warn().Err(err).Msg("reconciler: submit skipped")
			return
		}
	}
}
