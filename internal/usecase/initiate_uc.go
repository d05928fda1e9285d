// File: internal/usecase/initiate_uc.go
package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"marketplace-payments/internal/domain"
	"marketplace-payments/internal/domain/model"
	"marketplace-payments/internal/domain/ports/adapter"
	"marketplace-payments/internal/domain/ports/repository"
	"marketplace-payments/internal/infra/metrics"
)

// Compile-time check
var _ PaymentInitiator = (*initiateUC)(nil)

type InitiateInput struct {
	SubjectID string
	Phone     string
	Amount    int64
	Purpose   model.PaymentPurpose
	BuyerID   string // empty means unauthenticated; a placeholder id is generated
	Snapshot  model.CartSnapshot
}

type PaymentInitiator interface {
	// Initiate creates the session and asks the gateway to prompt the payer.
	// On gateway failure the session stays PENDING without a tracking id and
	// the error is returned; there is no automatic retry.
	Initiate(ctx context.Context, in InitiateInput) (*model.PaymentSession, error)
}

type initiateUC struct {
	sessions repository.PaymentSessionRepository
	gateway  adapter.PushGateway
	log      *zerolog.Logger
}

func NewPaymentInitiator(sessions repository.PaymentSessionRepository, gateway adapter.PushGateway, logger *zerolog.Logger) *initiateUC {
	return &initiateUC{sessions: sessions, gateway: gateway, log: logger}
}

func (u *initiateUC) Initiate(ctx context.Context, in InitiateInput) (*model.PaymentSession, error) {
	if in.SubjectID == "" {
		return nil, fmt.Errorf("%w: subject id required", domain.ErrInvalidArgument)
	}
	if in.Amount <= 0 {
		return nil, fmt.Errorf("%w: amount must be positive", domain.ErrInvalidArgument)
	}
	phone := model.NormalizeMSISDN(in.Phone)
	if phone == "" {
		return nil, fmt.Errorf("%w: phone required", domain.ErrInvalidArgument)
	}

	purpose := in.Purpose
	if purpose == "" {
		purpose = model.PurposeOrder
	}
	snapshot := in.Snapshot
	if purpose == model.PurposeSubscription && snapshot.Plan == "" {
		snapshot.Plan = model.PlanForAmount(in.Amount)
	}
	buyerID := in.BuyerID
	if buyerID == "" {
		// Unauthenticated checkout keeps working under a generated placeholder
		// identity; the order still materializes against it.
		buyerID = uuid.NewString()
	}

	now := time.Now()
	s := &model.PaymentSession{
		ID:        uuid.NewString(),
		SubjectID: in.SubjectID,
		Purpose:   purpose,
		Phone:     phone,
		Amount:    in.Amount,
		Status:    model.SessionStatusPending,
		Snapshot:  snapshot,
		BuyerID:   buyerID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	// Persist before touching the gateway so a crash mid-initiation still
	// leaves a recoverable record.
	if err := u.sessions.Save(ctx, repository.NoTX, s); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}

	reference := strings.ToLower(string(purpose)) + "-" + in.SubjectID
	description := "Order Payment"
	if purpose == model.PurposeSubscription {
		description = "Subscription Payment"
	}
	trackingID, err := u.gateway.InitiatePush(ctx, phone, in.Amount, reference, description)
	if err != nil {
		u.log.Warn().Str("session_id", s.ID).Err(err).Msg("push initiation failed; session left pending without tracking id")
		return nil, fmt.Errorf("initiate push: %w", err)
	}
	if err := u.sessions.SetTrackingID(ctx, repository.NoTX, s.ID, trackingID); err != nil {
		return nil, fmt.Errorf("store tracking id: %w", err)
	}
	s.TrackingID = trackingID

	metrics.IncSession(string(purpose))
	u.log.Info().
		Str("session_id", s.ID).
		Str("tracking_id", trackingID).
		Str("purpose", string(purpose)).
		Int64("amount", in.Amount).
		Msg("push payment initiated")
	return s, nil
}
