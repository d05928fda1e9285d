// File: internal/usecase/wire.go
package usecase

import (
	"github.com/rs/zerolog"

	"marketplace-payments/internal/config"
	"marketplace-payments/internal/domain/ports/adapter"
	"marketplace-payments/internal/domain/ports/repository"
)

// Deps bundles everything the payment use cases need.
type Deps struct {
	Sessions repository.PaymentSessionRepository
	Orders   repository.OrderRepository
	Subs     repository.SubscriptionRepository
	Wallets  repository.WalletRepository
	TM       repository.TransactionManager
	Gateway  adapter.PushGateway
	Cache    StatusCache
	Poller   config.PollerConfig
	Log      *zerolog.Logger
}

// Build wires the three use cases around one shared finalizer, so the
// callback path and the poll path cannot diverge on resolution semantics.
func Build(d Deps) (PaymentInitiator, CallbackReconciler, *pollUC) {
	fin := newFinalizer(d.Sessions, d.Orders, d.Subs, d.Wallets, d.TM, d.Cache, d.Log)
	initiator := NewPaymentInitiator(d.Sessions, d.Gateway, d.Log)
	reconciler := NewCallbackReconciler(d.Sessions, fin, d.Log)
	poller := NewStatusPoller(d.Sessions, d.Gateway, fin, d.Poller.MaxAttempts, d.Poller.Interval, d.Log)
	return initiator, reconciler, poller
}
