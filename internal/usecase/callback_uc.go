// File: internal/usecase/callback_uc.go
package usecase

import (
	"context"
	"strconv"

	"github.com/rs/zerolog"

	"marketplace-payments/internal/domain"
	"marketplace-payments/internal/domain/ports/adapter"
	"marketplace-payments/internal/domain/ports/repository"
)

// Compile-time check
var _ CallbackReconciler = (*callbackUC)(nil)

// CallbackEnvelope mirrors the provider's webhook shape. ResultCode is a
// pointer so a missing field is distinguishable from a literal zero.
type CallbackEnvelope struct {
	Body struct {
		StkCallback struct {
			MerchantRequestID string `json:"MerchantRequestID"`
			CheckoutRequestID string `json:"CheckoutRequestID"`
			ResultCode        *int   `json:"ResultCode"`
			ResultDesc        string `json:"ResultDesc"`
			CallbackMetadata  struct {
				Item []struct {
					Name  string `json:"Name"`
					Value any    `json:"Value"`
				} `json:"Item"`
			} `json:"CallbackMetadata"`
		} `json:"stkCallback"`
	} `json:"Body"`
}

// valid reports whether the envelope carries the fields reconciliation needs.
func (e *CallbackEnvelope) valid() bool {
	cb := e.Body.StkCallback
	return cb.ResultCode != nil && cb.CheckoutRequestID != ""
}

func (e *CallbackEnvelope) receipt() string {
	for _, item := range e.Body.StkCallback.CallbackMetadata.Item {
		if item.Name == "MpesaReceiptNumber" {
			if s, ok := item.Value.(string); ok {
				return s
			}
		}
	}
	return ""
}

// CallbackAck is always returned to the gateway, whatever happened inside.
// Erroring back at a webhook only invites provider-side retry storms.
type CallbackAck struct {
	ResultCode int    `json:"ResultCode"`
	ResultDesc string `json:"ResultDesc"`
}

type CallbackReconciler interface {
	// Process handles one webhook delivery. The returned ack is always safe to
	// send; a non-nil error is for the caller's log only and signals
	// materialization trouble, never a validation problem.
	Process(ctx context.Context, env *CallbackEnvelope) (CallbackAck, error)
}

type callbackUC struct {
	sessions repository.PaymentSessionRepository
	fin      *finalizer
	log      *zerolog.Logger
}

func NewCallbackReconciler(sessions repository.PaymentSessionRepository, fin *finalizer, logger *zerolog.Logger) *callbackUC {
	return &callbackUC{sessions: sessions, fin: fin, log: logger}
}

func (u *callbackUC) Process(ctx context.Context, env *CallbackEnvelope) (CallbackAck, error) {
	accepted := CallbackAck{ResultCode: 0, ResultDesc: "Accepted"}

	if env == nil || !env.valid() {
		u.log.Warn().Msg("callback rejected: missing stkCallback envelope or result code")
		return CallbackAck{ResultCode: 0, ResultDesc: "Invalid callback"}, nil
	}

	cb := env.Body.StkCallback
	s, err := u.sessions.FindByTrackingID(ctx, repository.NoTX, cb.CheckoutRequestID)
	if err != nil {
		if err == domain.ErrNotFound {
			// Expected for replayed callbacks after cleanup or for sessions this
			// instance does not know yet; nothing to do.
			u.log.Warn().Str("tracking_id", cb.CheckoutRequestID).Msg("callback for unknown session")
			return accepted, nil
		}
		u.log.Error().Str("tracking_id", cb.CheckoutRequestID).Err(err).Msg("callback session lookup failed")
		return accepted, nil
	}
	if s.Status.Terminal() {
		// At-least-once delivery; the first delivery already did the work.
		return accepted, nil
	}

	res := adapter.OutcomeForCode(strconv.Itoa(*cb.ResultCode), cb.ResultDesc)
	switch res.Outcome {
	case adapter.OutcomeSuccess:
		err := u.fin.resolveSuccess(ctx, s, "callback")
		if err == domain.ErrSessionResolved {
			return accepted, nil
		}
		if err != nil {
			return accepted, err
		}
		if r := env.receipt(); r != "" {
			u.log.Info().Str("session_id", s.ID).Str("receipt", r).Msg("payment confirmed via callback")
		}
		return accepted, nil
	case adapter.OutcomeFailed:
		if err := u.fin.resolveFailed(ctx, s, "callback"); err != nil && err != domain.ErrSessionResolved {
			return accepted, err
		}
		u.log.Info().
			Str("session_id", s.ID).
			Str("code", res.Code).
			Str("desc", res.Description).
			Msg("payment failed via callback")
		return accepted, nil
	default:
		// Ambiguous code: leave the session PENDING for the poller or a later
		// callback to settle.
		u.log.Debug().Str("session_id", s.ID).Str("code", res.Code).Msg("callback with ambiguous result code; no action")
		return accepted, nil
	}
}
