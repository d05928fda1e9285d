//go:build !integration

package model

import (
	"testing"
	"time"
)

func TestSessionStatusTerminal(t *testing.T) {
	if SessionStatusPending.Terminal() {
		t.Error("PENDING must not be terminal")
	}
	if !SessionStatusSuccess.Terminal() || !SessionStatusFailed.Terminal() {
		t.Error("SUCCESS and FAILED must be terminal")
	}
}

func TestVendorTotals(t *testing.T) {
	s := CartSnapshot{Items: []CartItem{
		{ProductID: "p1", VendorID: "a", Quantity: 2, Price: 500},
		{ProductID: "p2", VendorID: "b", Quantity: 1, Price: 300},
		{ProductID: "p3", VendorID: "a", Quantity: 1, Price: 200},
	}}
	totals := s.VendorTotals()
	if totals["a"] != 1200 || totals["b"] != 300 {
		t.Errorf("totals = %v", totals)
	}
	if s.Total() != 1500 {
		t.Errorf("total = %d", s.Total())
	}
}

func TestPlanForAmount(t *testing.T) {
	if PlanForAmount(500) != PlanWeekly {
		t.Error("500 must map to weekly")
	}
	if PlanForAmount(2000) != PlanMonthly {
		t.Error("2000 must map to monthly")
	}
	if PlanForAmount(499) != PlanMonthly {
		t.Error("non-weekly amounts map to monthly")
	}
}

func TestPeriodFrom(t *testing.T) {
	start := time.Date(2026, 1, 31, 10, 0, 0, 0, time.UTC)

	s, e := PlanWeekly.PeriodFrom(start)
	if !s.Equal(start) || e.Sub(s) != 7*24*time.Hour {
		t.Errorf("weekly window %v..%v", s, e)
	}

	s, e = PlanMonthly.PeriodFrom(start)
	if !s.Equal(start) {
		t.Errorf("monthly start = %v", s)
	}
	// Calendar month arithmetic, Jan 31 + 1 month normalizes per AddDate.
	if want := start.AddDate(0, 1, 0); !e.Equal(want) {
		t.Errorf("monthly end = %v, want %v", e, want)
	}
}

func TestLedgerBalance(t *testing.T) {
	txs := []WalletTransaction{
		{Type: WalletTxDeposit, Amount: 1000, BalanceAfter: 1000},
		{Type: WalletTxDeposit, Amount: 500, BalanceAfter: 1500},
		{Type: WalletTxWithdrawal, Amount: 300, BalanceAfter: 1200},
	}
	if got := LedgerBalance(txs); got != 1200 {
		t.Errorf("ledger balance = %d, want 1200", got)
	}
	// Row-by-row audit: every BalanceAfter matches the running sum.
	var run int64
	for i, tx := range txs {
		run += tx.Type.Signed(tx.Amount)
		if tx.BalanceAfter != run {
			t.Errorf("row %d balance_after = %d, want %d", i, tx.BalanceAfter, run)
		}
	}
}

func TestNewOrderFromSnapshot(t *testing.T) {
	now := time.Now()
	sess := &PaymentSession{
		ID:      "s1",
		BuyerID: "buyer-1",
		Amount:  1500,
		Snapshot: CartSnapshot{Items: []CartItem{
			{ProductID: "p1", VendorID: "a", Quantity: 2, Price: 500},
			{ProductID: "p2", VendorID: "b", Quantity: 1, Price: 500},
		}},
	}
	o := NewOrderFromSnapshot("01ABC", sess, now)
	if o.Status != OrderStatusPaid {
		t.Errorf("status = %s, want Paid", o.Status)
	}
	if o.SessionID != "s1" || o.BuyerID != "buyer-1" || o.Total != 1500 {
		t.Errorf("order = %+v", o)
	}
	if len(o.Items) != 2 {
		t.Fatalf("items = %d", len(o.Items))
	}
}
