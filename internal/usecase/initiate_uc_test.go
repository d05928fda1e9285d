//go:build !integration

// File: internal/usecase/initiate_uc_test.go
package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"marketplace-payments/internal/domain"
	"marketplace-payments/internal/domain/model"
	"marketplace-payments/internal/domain/ports/repository"
)

func TestInitiate_HappyPath(t *testing.T) {
	f := newFixture(time.Millisecond)
	f.gateway.trackingID = "ws_CO_123"

	s, err := f.initiator.Initiate(context.Background(), InitiateInput{
		SubjectID: "order-42",
		Phone:     "0712 345 678",
		Amount:    1200,
		Purpose:   model.PurposeOrder,
		BuyerID:   "buyer-9",
		Snapshot: model.CartSnapshot{Items: []model.CartItem{
			{ProductID: "p1", VendorID: "v1", Quantity: 1, Price: 1200},
		}},
	})
	if err != nil {
		t.Fatalf("Initiate: %v", err)
	}
	if s.Status != model.SessionStatusPending {
		t.Errorf("status = %s, want PENDING", s.Status)
	}
	if s.TrackingID != "ws_CO_123" {
		t.Errorf("tracking id = %q", s.TrackingID)
	}
	if s.Phone != "254712345678" {
		t.Errorf("phone not normalized: %q", s.Phone)
	}

	stored, err := f.sessions.FindByTrackingID(context.Background(), repository.NoTX, "ws_CO_123")
	if err != nil {
		t.Fatalf("session not findable by tracking id: %v", err)
	}
	if stored.ID != s.ID {
		t.Errorf("stored id %q != returned id %q", stored.ID, s.ID)
	}
}

func TestInitiate_PhoneFormatsNormalizeAlike(t *testing.T) {
	for _, raw := range []string{"0712345678", "+254712345678", "254712345678", "0712 345 678"} {
		if got := model.NormalizeMSISDN(raw); got != "254712345678" {
			t.Errorf("NormalizeMSISDN(%q) = %q", raw, got)
		}
	}
}

func TestInitiate_Validation(t *testing.T) {
	f := newFixture(time.Millisecond)

	cases := []struct {
		name string
		in   InitiateInput
	}{
		{"missing subject", InitiateInput{Phone: "0712345678", Amount: 100}},
		{"zero amount", InitiateInput{SubjectID: "o1", Phone: "0712345678", Amount: 0}},
		{"negative amount", InitiateInput{SubjectID: "o1", Phone: "0712345678", Amount: -5}},
		{"empty phone", InitiateInput{SubjectID: "o1", Amount: 100}},
		{"short phone", InitiateInput{SubjectID: "o1", Phone: "12345", Amount: 100}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.initiator.Initiate(context.Background(), tc.in)
			if !errors.Is(err, domain.ErrInvalidArgument) {
				t.Errorf("err = %v, want ErrInvalidArgument", err)
			}
		})
	}
}

func TestInitiate_GatewayFailureLeavesPendingSession(t *testing.T) {
	f := newFixture(time.Millisecond)
	f.gateway.pushErr = errors.New("stkpush rejected")

	_, err := f.initiator.Initiate(context.Background(), InitiateInput{
		SubjectID: "order-43",
		Phone:     "0712345678",
		Amount:    300,
	})
	if err == nil {
		t.Fatal("expected error from failed push")
	}

	// The session record still exists, PENDING and without a tracking id, so
	// nothing can ever resolve it. Both resolution paths key off tracking id.
	var found *model.PaymentSession
	for _, s := range f.sessions.store {
		found = s
	}
	if found == nil {
		t.Fatal("session was not persisted before gateway call")
	}
	if found.Status != model.SessionStatusPending || found.TrackingID != "" {
		t.Errorf("session status=%s tracking=%q, want PENDING with empty tracking", found.Status, found.TrackingID)
	}
}

func TestInitiate_SubscriptionDefaultsPlanFromAmount(t *testing.T) {
	f := newFixture(time.Millisecond)

	s, err := f.initiator.Initiate(context.Background(), InitiateInput{
		SubjectID: "user-7",
		Phone:     "0712345678",
		Amount:    500,
		Purpose:   model.PurposeSubscription,
	})
	if err != nil {
		t.Fatalf("Initiate: %v", err)
	}
	if s.Snapshot.Plan != model.PlanWeekly {
		t.Errorf("plan = %s, want weekly for amount 500", s.Snapshot.Plan)
	}
	if s.BuyerID == "" {
		t.Error("expected generated buyer id for anonymous checkout")
	}
}
