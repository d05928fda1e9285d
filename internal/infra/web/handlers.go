// File: internal/infra/web/handlers.go
package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"marketplace-payments/internal/domain"
	"marketplace-payments/internal/domain/model"
	"marketplace-payments/internal/infra/logging"
	"marketplace-payments/internal/infra/redis"
	"marketplace-payments/internal/usecase"
)

// How many push prompts one phone may trigger per window. A payer can only
// answer one prompt at a time, so this is generous already.
const (
	initiateLimit  = 5
	initiateWindow = time.Minute
)

type initiateRequest struct {
	SubjectID string `json:"subject_id"`
	Phone     string `json:"phone"`
	Amount    int64  `json:"amount"`
	Purpose   string `json:"purpose"`
	Snapshot  struct {
		Items []model.CartItem `json:"items"`
		Plan  string           `json:"plan"`
	} `json:"snapshot"`
}

// Handler for starting a push payment.
func initiateHandler(initiator usecase.PaymentInitiator, auth *AuthManager, limiter *redis.RateLimiter, dev bool, base *zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		log := logging.With(ctx, base)

		var req initiateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}

		phone := model.NormalizeMSISDN(req.Phone)
		if phone != "" && limiter != nil {
			ok, err := limiter.Allow(ctx, redis.InitiateKey(phone), initiateLimit, initiateWindow)
			if err != nil {
				// Redis being down must not stop checkout.
				log.Warn().Err(err).Msg("rate limiter unavailable; allowing request")
			} else if !ok {
				log.Warn().Str("phone", logging.Redact(phone, dev)).Msg("initiation rate limited")
				http.Error(w, "Too many payment attempts, try again shortly", http.StatusTooManyRequests)
				return
			}
		}

		// Checkout works without a token; the session then runs under a
		// generated buyer id.
		buyerID := ""
		if auth != nil {
			buyerID = auth.SubjectFromRequest(r)
		}

		session, err := initiator.Initiate(ctx, usecase.InitiateInput{
			SubjectID: req.SubjectID,
			Phone:     req.Phone,
			Amount:    req.Amount,
			Purpose:   model.PaymentPurpose(req.Purpose),
			BuyerID:   buyerID,
			Snapshot: model.CartSnapshot{
				Items: req.Snapshot.Items,
				Plan:  model.PlanType(req.Snapshot.Plan),
			},
		})
		if err != nil {
			if errors.Is(err, domain.ErrInvalidArgument) {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			log.Error().Err(err).Msg("payment initiation failed")
			http.Error(w, "Failed to initiate payment", http.StatusBadGateway)
			return
		}

		response := struct {
			SessionID  string `json:"session_id"`
			TrackingID string `json:"tracking_id"`
			Status     string `json:"status"`
		}{
			SessionID:  session.ID,
			TrackingID: session.TrackingID,
			Status:     string(session.Status),
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusAccepted)
		json.NewEncoder(w).Encode(response)
	}
}

// Handler for the provider's webhook. Always answers 200 with the provider's
// ack shape; retrying a webhook cannot fix anything on our side.
func callbackHandler(reconciler usecase.CallbackReconciler, base *zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		log := logging.With(ctx, base)

		var env usecase.CallbackEnvelope
		if err := json.NewDecoder(r.Body).Decode(&env); err != nil {
			log.Warn().Err(err).Msg("callback body undecodable")
			writeAck(w, usecase.CallbackAck{ResultCode: 0, ResultDesc: "Invalid callback"})
			return
		}

		ack, err := reconciler.Process(ctx, &env)
		if err != nil {
			// Already fully logged inside; the ack below still tells the
			// provider to stop retrying.
			log.Error().Err(err).Msg("callback processing error")
		}
		writeAck(w, ack)
	}
}

type statusRequest struct {
	TrackingID string `json:"tracking_id"`
	SubjectID  string `json:"subject_id"`
}

// Handler for client-driven status polling.
func statusHandler(poller usecase.StatusPoller, base *zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		log := logging.With(ctx, base)

		var req statusRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
		if req.TrackingID == "" {
			http.Error(w, "tracking_id is required", http.StatusBadRequest)
			return
		}

		res, err := poller.Poll(ctx, req.TrackingID)
		if err != nil {
			switch {
			case errors.Is(err, domain.ErrNotFound):
				http.Error(w, "Unknown tracking id", http.StatusNotFound)
			case errors.Is(err, domain.ErrInvalidArgument):
				http.Error(w, err.Error(), http.StatusBadRequest)
			default:
				log.Error().Str("tracking_id", req.TrackingID).Err(err).Msg("status poll failed")
				http.Error(w, "Failed to resolve payment status", http.StatusInternalServerError)
			}
			return
		}

		response := struct {
			TrackingID string `json:"tracking_id"`
			Status     string `json:"status"`
			Detail     string `json:"detail,omitempty"`
		}{
			TrackingID: req.TrackingID,
			Status:     string(res.Status),
			Detail:     res.Detail,
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(response)
	}
}

func writeAck(w http.ResponseWriter, ack usecase.CallbackAck) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(ack)
}
