package repository

import (
	"context"

	"marketplace-payments/internal/domain/model"
)

type OrderRepository interface {
	Save(ctx context.Context, tx Tx, o *model.Order) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.Order, error)
	// FindBySessionID locates the order a resolved session materialized, if any.
	FindBySessionID(ctx context.Context, tx Tx, sessionID string) (*model.Order, error)
	ListByVendor(ctx context.Context, tx Tx, vendorID string, offset, limit int) ([]*model.Order, error)
}
