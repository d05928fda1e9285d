package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/oklog/ulid/v2"

	"marketplace-payments/internal/domain"
	"marketplace-payments/internal/domain/model"
	"marketplace-payments/internal/domain/ports/repository"
)

var _ repository.WalletRepository = (*walletRepo)(nil)

type walletRepo struct{ pool *pgxpool.Pool }

func NewWalletRepo(pool *pgxpool.Pool) *walletRepo {
	return &walletRepo{pool: pool}
}

func (r *walletRepo) FindByVendor(ctx context.Context, tx repository.Tx, vendorID string) (*model.Wallet, error) {
	const q = `SELECT vendor_id, balance, total_sales, created_at, updated_at
 FROM wallets WHERE vendor_id=$1;`
	row, err := pickRow(ctx, r.pool, tx, q, vendorID)
	if err != nil {
		return nil, err
	}
	w := &model.Wallet{}
	if err := row.Scan(&w.VendorID, &w.Balance, &w.TotalSales, &w.CreatedAt, &w.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return w, nil
}

// Credit upserts the vendor wallet, bumps balance and total_sales, and
// appends the ledger row carrying the post-credit balance — one statement,
// so balance and ledger can never drift apart mid-credit.
func (r *walletRepo) Credit(ctx context.Context, tx repository.Tx, vendorID string, amount int64, reference string) (int64, error) {
	if amount <= 0 {
		return 0, domain.ErrInvalidArgument
	}
	const q = `
WITH upsert AS (
  INSERT INTO wallets (vendor_id, balance, total_sales, created_at, updated_at)
  VALUES ($1, $2, $2, NOW(), NOW())
  ON CONFLICT (vendor_id) DO UPDATE
    SET balance = wallets.balance + $2,
        total_sales = wallets.total_sales + $2,
        updated_at = NOW()
  RETURNING balance
)
INSERT INTO wallet_transactions (id, wallet_id, type, amount, reference, balance_after, created_at)
SELECT $3, $1, 'deposit', $2, $4, upsert.balance, NOW() FROM upsert
RETURNING balance_after;`

	txID := ulid.Make().String()
	row, err := pickRow(ctx, r.pool, tx, q, vendorID, amount, txID, reference)
	if err != nil {
		return 0, err
	}
	var balance int64
	if err := row.Scan(&balance); err != nil {
		return 0, domain.ErrOperationFailed
	}
	return balance, nil
}

func (r *walletRepo) ListTransactions(ctx context.Context, tx repository.Tx, vendorID string, limit int) ([]model.WalletTransaction, error) {
	if limit <= 0 {
		limit = 100
	}
	const q = `SELECT id, wallet_id, type, amount, reference, balance_after, created_at
 FROM wallet_transactions WHERE wallet_id=$1 ORDER BY id DESC LIMIT $2;`
	rows, err := queryRows(ctx, r.pool, tx, q, vendorID, limit)
	if err != nil {
		switch err {
		case domain.ErrInvalidArgument, domain.ErrInvalidExecContext:
			return nil, err
		default:
			return nil, domain.ErrOperationFailed
		}
	}
	defer rows.Close()

	var out []model.WalletTransaction
	for rows.Next() {
		var wt model.WalletTransaction
		if err := rows.Scan(&wt.ID, &wt.WalletID, &wt.Type, &wt.Amount, &wt.Reference, &wt.BalanceAfter, &wt.CreatedAt); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		out = append(out, wt)
	}
	return out, nil
}
