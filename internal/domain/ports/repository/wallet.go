package repository

import (
	"context"

	"marketplace-payments/internal/domain/model"
)

type WalletRepository interface {
	FindByVendor(ctx context.Context, tx Tx, vendorID string) (*model.Wallet, error)
	// Credit appends one deposit ledger entry and bumps balance/total_sales in
	// a single atomic operation, creating the wallet on first credit. Returns
	// the new balance.
	Credit(ctx context.Context, tx Tx, vendorID string, amount int64, reference string) (int64, error)
	ListTransactions(ctx context.Context, tx Tx, vendorID string, limit int) ([]model.WalletTransaction, error)
}
