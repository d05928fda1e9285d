// File: internal/usecase/poll_uc.go
package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"marketplace-payments/internal/domain"
	"marketplace-payments/internal/domain/model"
	"marketplace-payments/internal/domain/ports/adapter"
	"marketplace-payments/internal/domain/ports/repository"
	"marketplace-payments/internal/infra/metrics"
)

// Compile-time check
var _ StatusPoller = (*pollUC)(nil)

const pendingDetail = "no response from gateway"

type PollResult struct {
	Status model.SessionStatus
	Detail string
}

type StatusPoller interface {
	// Poll resolves a pending session by querying the gateway, up to the
	// configured attempt budget. Exhausting the budget is a normal PENDING
	// outcome, not an error. Concurrent polls for one tracking id share a
	// single query loop and receive the same result.
	Poll(ctx context.Context, trackingID string) (PollResult, error)
}

// inflightPoll is one entry of the keyed single-flight registry. Joiners
// block on done and read res/err afterwards.
type inflightPoll struct {
	done chan struct{}
	res  PollResult
	err  error
}

type pollUC struct {
	sessions    repository.PaymentSessionRepository
	gateway     adapter.PushGateway
	fin         *finalizer
	maxAttempts int
	interval    time.Duration
	log         *zerolog.Logger

	mu       sync.Mutex
	inflight map[string]*inflightPoll
}

func NewStatusPoller(
	sessions repository.PaymentSessionRepository,
	gateway adapter.PushGateway,
	fin *finalizer,
	maxAttempts int,
	interval time.Duration,
	logger *zerolog.Logger,
) *pollUC {
	if maxAttempts <= 0 {
		maxAttempts = 5
	}
	if interval <= 0 {
		interval = 15 * time.Second
	}
	return &pollUC{
		sessions:    sessions,
		gateway:     gateway,
		fin:         fin,
		maxAttempts: maxAttempts,
		interval:    interval,
		log:         logger,
		inflight:    make(map[string]*inflightPoll),
	}
}

func (u *pollUC) Poll(ctx context.Context, trackingID string) (PollResult, error) {
	if trackingID == "" {
		return PollResult{}, fmt.Errorf("%w: tracking id required", domain.ErrInvalidArgument)
	}

	// Cached terminal answer: no DB or gateway round trip needed.
	if u.fin.cache != nil {
		if v, err := u.fin.cache.GetTerminal(ctx, trackingID); err == nil && v != "" {
			return PollResult{Status: model.SessionStatus(v)}, nil
		}
	}

	// Terminal in storage already: answer without touching the gateway.
	// Covers the callback-arrived-first case and repeat polls after resolution.
	s, err := u.sessions.FindByTrackingID(ctx, repository.NoTX, trackingID)
	if err != nil {
		return PollResult{}, err
	}
	if s.Status.Terminal() {
		return PollResult{Status: s.Status}, nil
	}

	u.mu.Lock()
	if call, ok := u.inflight[trackingID]; ok {
		u.mu.Unlock()
		metrics.IncSingleflightHit()
		// Join the running loop; a caller that stops waiting just abandons the
		// shared result, the loop itself is never cancelled.
		select {
		case <-call.done:
			return call.res, call.err
		case <-ctx.Done():
			return PollResult{}, ctx.Err()
		}
	}
	call := &inflightPoll{done: make(chan struct{})}
	u.inflight[trackingID] = call
	u.mu.Unlock()

	call.res, call.err = u.run(ctx, s)

	// Release the slot before waking joiners so a fresh poll can start the
	// moment this one is observable.
	u.mu.Lock()
	delete(u.inflight, trackingID)
	u.mu.Unlock()
	close(call.done)

	return call.res, call.err
}

// ReconcileOnce makes a single query attempt for a stale session, on behalf of
// the background reconciler. One attempt per sweep; the next sweep retries.
func (u *pollUC) ReconcileOnce(ctx context.Context, s *model.PaymentSession) error {
	if s.TrackingID == "" {
		return domain.ErrNoTrackingID
	}
	res, err := u.gateway.QueryStatus(ctx, s.TrackingID)
	if err != nil {
		metrics.IncPollAttempt("error")
		return err
	}
	switch res.Outcome {
	case adapter.OutcomeSuccess:
		metrics.IncPollAttempt("success")
		if err := u.fin.resolveSuccess(ctx, s, "reconciler"); err != nil && err != domain.ErrSessionResolved {
			return err
		}
	case adapter.OutcomeFailed:
		metrics.IncPollAttempt("failed")
		if err := u.fin.resolveFailed(ctx, s, "reconciler"); err != nil && err != domain.ErrSessionResolved {
			return err
		}
	default:
		metrics.IncPollAttempt("pending")
	}
	return nil
}

// run executes the bounded query loop for one tracking id.
func (u *pollUC) run(ctx context.Context, s *model.PaymentSession) (PollResult, error) {
	for attempt := 1; attempt <= u.maxAttempts; attempt++ {
		// A callback may have settled the session between attempts.
		if attempt > 1 {
			fresh, err := u.sessions.FindByTrackingID(ctx, repository.NoTX, s.TrackingID)
			if err == nil && fresh.Status.Terminal() {
				return PollResult{Status: fresh.Status}, nil
			}
		}

		res, err := u.gateway.QueryStatus(ctx, s.TrackingID)
		if err != nil {
			// Auth/transport trouble fails this attempt, never the payment.
			metrics.IncPollAttempt("error")
			u.log.Warn().
				Str("tracking_id", s.TrackingID).
				Int("attempt", attempt).
				Err(err).
				Msg("status query attempt failed")
		} else {
			switch res.Outcome {
			case adapter.OutcomeSuccess:
				metrics.IncPollAttempt("success")
				if err := u.fin.resolveSuccess(ctx, s, "poll"); err != nil {
					if err == domain.ErrSessionResolved {
						return PollResult{Status: model.SessionStatusSuccess}, nil
					}
					return PollResult{}, err
				}
				return PollResult{Status: model.SessionStatusSuccess}, nil
			case adapter.OutcomeFailed:
				metrics.IncPollAttempt("failed")
				if err := u.fin.resolveFailed(ctx, s, "poll"); err != nil && err != domain.ErrSessionResolved {
					return PollResult{}, err
				}
				return PollResult{Status: model.SessionStatusFailed, Detail: res.Description}, nil
			default:
				metrics.IncPollAttempt("pending")
				u.log.Debug().
					Str("tracking_id", s.TrackingID).
					Int("attempt", attempt).
					Str("code", res.Code).
					Msg("payment still pending")
			}
		}

		if attempt == u.maxAttempts {
			break
		}
		select {
		case <-time.After(u.interval):
		case <-ctx.Done():
			return PollResult{}, ctx.Err()
		}
	}

	// Exhausted the budget: a normal outcome. The session stays PENDING in
	// storage for a later callback or a fresh poll to settle.
	return PollResult{Status: model.SessionStatusPending, Detail: pendingDetail}, nil
}
