package repository

import (
	"context"
	"time"

	"marketplace-payments/internal/domain/model"
)

type SubscriptionRepository interface {
	Save(ctx context.Context, tx Tx, s *model.Subscription) error
	FindByUserID(ctx context.Context, tx Tx, userID string) (*model.Subscription, error)
	// MarkPaid upserts the entitlement window computed at confirmation time.
	MarkPaid(ctx context.Context, tx Tx, userID string, plan model.PlanType, start, end time.Time) error
	MarkFailed(ctx context.Context, tx Tx, userID string) error
}
