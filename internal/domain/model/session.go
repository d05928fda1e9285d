package model

import "time"

type SessionStatus string

const (
	SessionStatusPending SessionStatus = "PENDING" // push sent (or about to be); awaiting gateway outcome
	SessionStatusSuccess SessionStatus = "SUCCESS" // gateway confirmed payment; downstream entities materialized
	SessionStatusFailed  SessionStatus = "FAILED"  // gateway reported a terminal failure (cancel, insufficient funds)
)

// Terminal reports whether the status can never change again.
func (s SessionStatus) Terminal() bool {
	return s == SessionStatusSuccess || s == SessionStatusFailed
}

type PaymentPurpose string

const (
	PurposeOrder        PaymentPurpose = "ORDER"
	PurposeSubscription PaymentPurpose = "SUBSCRIPTION"
)

// PaymentSession records one push-payment attempt. The gateway-issued
// TrackingID correlates both the asynchronous callback and active status
// queries back to this record; it stays empty when initiation never reached
// the gateway, which leaves the session permanently PENDING and ignored by
// both resolution paths.
type PaymentSession struct {
	ID         string         // UUID
	SubjectID  string         // order id (ORDER) or user id (SUBSCRIPTION)
	Purpose    PaymentPurpose
	Phone      string // normalized MSISDN, 2547XXXXXXXX
	Amount     int64  // whole currency units
	TrackingID string // gateway CheckoutRequestID; empty until the gateway acks initiation
	Status     SessionStatus
	Snapshot   CartSnapshot // captured at creation; materialization never re-reads live state
	BuyerID    string       // authenticated buyer, or a generated placeholder
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// CartSnapshot freezes the cart (or subscription plan) at session creation.
type CartSnapshot struct {
	Items []CartItem `json:"items,omitempty"`
	Plan  PlanType   `json:"plan,omitempty"`
}

type CartItem struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name,omitempty"`
	VendorID  string `json:"vendor_id"`
	Quantity  int    `json:"quantity"`
	Price     int64  `json:"price"`
}

// VendorTotals sums item amounts per vendor, preserving first-seen order.
// One wallet credit per vendor is derived from this split.
func (s CartSnapshot) VendorTotals() map[string]int64 {
	totals := make(map[string]int64, len(s.Items))
	for _, it := range s.Items {
		totals[it.VendorID] += it.Price * int64(it.Quantity)
	}
	return totals
}

// Total is the sum over all items.
func (s CartSnapshot) Total() int64 {
	var sum int64
	for _, it := range s.Items {
		sum += it.Price * int64(it.Quantity)
	}
	return sum
}
