package repository

import (
	"context"
	"time"

	"marketplace-payments/internal/domain/model"
)

type PaymentSessionRepository interface {
	Save(ctx context.Context, tx Tx, s *model.PaymentSession) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.PaymentSession, error)
	FindByTrackingID(ctx context.Context, tx Tx, trackingID string) (*model.PaymentSession, error)
	// SetTrackingID records the gateway correlation key after initiation acks.
	SetTrackingID(ctx context.Context, tx Tx, id, trackingID string) error
	// UpdateStatusIfPending transitions the session out of PENDING only when it
	// is still PENDING. Returns false when another path already claimed it.
	// This conditional update is the correctness boundary for the
	// callback/poller race; read-then-write is not an acceptable substitute.
	UpdateStatusIfPending(ctx context.Context, tx Tx, id string, status model.SessionStatus) (bool, error)
	// ListPendingOlderThan feeds the stale-session reconciler. Sessions without
	// a tracking id are abandoned and excluded.
	ListPendingOlderThan(ctx context.Context, tx Tx, olderThan time.Time, limit int) ([]*model.PaymentSession, error)
}
