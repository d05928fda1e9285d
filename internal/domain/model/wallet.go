package model

import "time"

type WalletTxType string

const (
	WalletTxDeposit    WalletTxType = "deposit"
	WalletTxWithdrawal WalletTxType = "withdrawal"
)

// WalletTransaction is one append-only ledger entry. BalanceAfter records the
// running balance at append time so the ledger is auditable row by row.
type WalletTransaction struct {
	ID           string // ULID; doubles as the ledger ordering key
	WalletID     string
	Type         WalletTxType
	Amount       int64
	Reference    string // payment session id (credits) or payout id (debits)
	BalanceAfter int64
	CreatedAt    time.Time
}

// Wallet holds a vendor's funds. Balance is not a free-standing counter: it
// must equal the signed sum of the transaction ledger at all times.
type Wallet struct {
	VendorID   string
	Balance    int64
	TotalSales int64 // lifetime deposits, never decremented
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (t WalletTxType) Signed(amount int64) int64 {
	if t == WalletTxWithdrawal {
		return -amount
	}
	return amount
}

// LedgerBalance recomputes the balance from scratch. Used to check the
// balance/ledger invariant.
func LedgerBalance(txs []WalletTransaction) int64 {
	var sum int64
	for _, tx := range txs {
		sum += tx.Type.Signed(tx.Amount)
	}
	return sum
}
