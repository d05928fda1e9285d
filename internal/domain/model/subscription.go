package model

import "time"

type PlanType string

const (
	PlanWeekly  PlanType = "weekly"
	PlanMonthly PlanType = "monthly"
)

// PlanForAmount maps a paid amount to a plan the way checkout prices plans:
// the weekly tier costs 500, everything else is the monthly tier.
func PlanForAmount(amount int64) PlanType {
	if amount == 500 {
		return PlanWeekly
	}
	return PlanMonthly
}

type SubscriptionStatus string

const (
	SubscriptionStatusPending SubscriptionStatus = "PENDING"
	SubscriptionStatusPaid    SubscriptionStatus = "PAID"
	SubscriptionStatusFailed  SubscriptionStatus = "FAILED"
	SubscriptionStatusExpired SubscriptionStatus = "EXPIRED"
)

// Subscription is the vendor entitlement bought through a SUBSCRIPTION
// session. StartDate/EndDate are computed when payment confirms, not when it
// is initiated: the paid-for window must not shrink while the push prompt
// sits unanswered on the payer's device.
type Subscription struct {
	ID        string // UUID
	UserID    string
	Plan      PlanType
	Amount    int64
	Status    SubscriptionStatus
	StartDate *time.Time
	EndDate   *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// PeriodFrom returns the entitlement window starting at the confirmation
// instant: 7 days for weekly, one calendar month for monthly.
func (p PlanType) PeriodFrom(start time.Time) (time.Time, time.Time) {
	switch p {
	case PlanWeekly:
		return start, start.AddDate(0, 0, 7)
	default:
		return start, start.AddDate(0, 1, 0)
	}
}
