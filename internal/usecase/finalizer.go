// File: internal/usecase/finalizer.go
package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"marketplace-payments/internal/domain"
	"marketplace-payments/internal/domain/model"
	"marketplace-payments/internal/domain/ports/repository"
	"marketplace-payments/internal/infra/metrics"
)

// StatusCache is the poller/finalizer view of the terminal-status cache.
// Implemented by infra/redis.StatusCache; nil-able in tests.
type StatusCache interface {
	StoreTerminal(ctx context.Context, trackingID, status string) error
	GetTerminal(ctx context.Context, trackingID string) (string, error)
}

// finalizer owns the one PENDING->terminal transition plus downstream
// materialization. Both resolution paths (webhook callback and status poll)
// funnel through it so the claim semantics cannot drift apart.
type finalizer struct {
	sessions repository.PaymentSessionRepository
	orders   repository.OrderRepository
	subs     repository.SubscriptionRepository
	wallets  repository.WalletRepository
	tm       repository.TransactionManager
	cache    StatusCache
	log      *zerolog.Logger
}

func newFinalizer(
	sessions repository.PaymentSessionRepository,
	orders repository.OrderRepository,
	subs repository.SubscriptionRepository,
	wallets repository.WalletRepository,
	tm repository.TransactionManager,
	cache StatusCache,
	logger *zerolog.Logger,
) *finalizer {
	return &finalizer{sessions: sessions, orders: orders, subs: subs, wallets: wallets, tm: tm, cache: cache, log: logger}
}

// resolveSuccess claims the session and materializes the order/subscription
// and wallet credits. Returns domain.ErrSessionResolved when another path won
// the race (callers treat that as a quiet no-op), and
// domain.ErrMaterializationFailed when the claim landed but a downstream
// write did not.
func (f *finalizer) resolveSuccess(ctx context.Context, s *model.PaymentSession, path string) error {
	claimed, err := f.sessions.UpdateStatusIfPending(ctx, repository.NoTX, s.ID, model.SessionStatusSuccess)
	if err != nil {
		return fmt.Errorf("claim session %s: %w", s.ID, err)
	}
	if !claimed {
		return domain.ErrSessionResolved
	}

	// The claim is already durable. A failure below leaves a SUCCESS session
	// without its business side-effects, which is exactly the state that must
	// be shouted about, not rolled back silently.
	err = f.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		switch s.Purpose {
		case model.PurposeSubscription:
			return f.materializeSubscription(ctx, tx, s)
		default:
			return f.materializeOrder(ctx, tx, s)
		}
	})
	if err != nil {
		metrics.IncMaterializationFailure()
		f.log.Error().
			Str("channel", "reconciliation").
			Str("session_id", s.ID).
			Str("tracking_id", s.TrackingID).
			Err(err).
			Msg("session marked SUCCESS but materialization failed; manual reconciliation required")
		return fmt.Errorf("%w: session %s: %v", domain.ErrMaterializationFailed, s.ID, err)
	}

	f.afterTerminal(ctx, s.TrackingID, model.SessionStatusSuccess, path)
	return nil
}

// resolveFailed claims the session as FAILED. No downstream materialization.
func (f *finalizer) resolveFailed(ctx context.Context, s *model.PaymentSession, path string) error {
	claimed, err := f.sessions.UpdateStatusIfPending(ctx, repository.NoTX, s.ID, model.SessionStatusFailed)
	if err != nil {
		return fmt.Errorf("claim session %s: %w", s.ID, err)
	}
	if !claimed {
		return domain.ErrSessionResolved
	}
	if s.Purpose == model.PurposeSubscription {
		if err := f.subs.MarkFailed(ctx, repository.NoTX, s.SubjectID); err != nil && err != domain.ErrNotFound {
			f.log.Warn().Str("session_id", s.ID).Err(err).Msg("mark subscription failed")
		}
	}
	f.afterTerminal(ctx, s.TrackingID, model.SessionStatusFailed, path)
	return nil
}

func (f *finalizer) materializeOrder(ctx context.Context, tx repository.Tx, s *model.PaymentSession) error {
	order := model.NewOrderFromSnapshot(ulid.Make().String(), s, time.Now())
	if err := f.orders.Save(ctx, tx, order); err != nil {
		return fmt.Errorf("create order: %w", err)
	}
	// One ledger entry per vendor represented in the order.
	for vendorID, share := range s.Snapshot.VendorTotals() {
		if _, err := f.wallets.Credit(ctx, tx, vendorID, share, s.ID); err != nil {
			return fmt.Errorf("credit wallet %s: %w", vendorID, err)
		}
		metrics.AddWalletCredit("kes", share)
	}
	f.log.Info().
		Str("session_id", s.ID).
		Str("order_id", order.ID).
		Int64("amount", s.Amount).
		Msg("order materialized")
	return nil
}

func (f *finalizer) materializeSubscription(ctx context.Context, tx repository.Tx, s *model.PaymentSession) error {
	plan := s.Snapshot.Plan
	if plan == "" {
		plan = model.PlanForAmount(s.Amount)
	}
	// The entitlement clock starts at confirmation, not initiation.
	start, end := plan.PeriodFrom(time.Now())
	err := f.subs.MarkPaid(ctx, tx, s.SubjectID, plan, start, end)
	if err == domain.ErrNotFound {
		now := time.Now()
		err = f.subs.Save(ctx, tx, &model.Subscription{
			ID:        uuid.NewString(),
			UserID:    s.SubjectID,
			Plan:      plan,
			Amount:    s.Amount,
			Status:    model.SubscriptionStatusPaid,
			StartDate: &start,
			EndDate:   &end,
			CreatedAt: now,
			UpdatedAt: now,
		})
	}
	if err != nil {
		return fmt.Errorf("activate subscription for %s: %w", s.SubjectID, err)
	}
	f.log.Info().
		Str("session_id", s.ID).
		Str("user_id", s.SubjectID).
		Str("plan", string(plan)).
		Time("end_date", end).
		Msg("subscription activated")
	return nil
}

func (f *finalizer) afterTerminal(ctx context.Context, trackingID string, status model.SessionStatus, path string) {
	metrics.IncResolved(string(status), path)
	if f.cache != nil && trackingID != "" {
		if err := f.cache.StoreTerminal(ctx, trackingID, string(status)); err != nil {
			f.log.Debug().Err(err).Msg("status cache store failed")
		}
	}
}
