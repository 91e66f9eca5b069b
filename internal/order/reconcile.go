package order

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"

	"Storefront/internal/payments"
)

const (
	defaultReconcileTimeout = 3 * time.Second
	breakerOpenFor          = 30 * time.Second
	breakerTripAfter        = 5
)

// FetchFunc performs one live read of the provider's view of an order.
type FetchFunc func(ctx context.Context) (payments.ProviderOrder, error)

type OrderFetcher interface {
	GetOrder(ctx context.Context, orderID string) (payments.ProviderOrder, error)
}

type ReconcilerConfig struct {
	// Timeout bounds each live fetch; expiry counts as a failed fetch.
	Timeout time.Duration
}

// Reconciler serves order reads: the cached record, refreshed with live
// provider state when the provider answers.
type Reconciler struct {
	store    Store
	provider OrderFetcher
	timeout  time.Duration
	log      *zap.Logger
	metrics  *Metrics
	breaker  *gobreaker.CircuitBreaker[payments.ProviderOrder]
}

func NewReconciler(store Store, provider OrderFetcher, cfg ReconcilerConfig, log *zap.Logger, metrics *Metrics) *Reconciler {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultReconcileTimeout
	}

	r := &Reconciler{
		store:    store,
		provider: provider,
		timeout:  cfg.Timeout,
		log:      log,
		metrics:  metrics,
	}
	r.breaker = gobreaker.NewCircuitBreaker[payments.ProviderOrder](gobreaker.Settings{
		Name:    "provider-order-fetch",
		Timeout: breakerOpenFor,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= breakerTripAfter
		},
		IsSuccessful: providerHealthy,
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("circuit breaker state change",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})
	return r
}

// providerHealthy keeps client-side rejections (4xx) from tripping the
// breaker: the provider answered, the order just is not readable.
func providerHealthy(err error) bool {
	if err == nil {
		return true
	}
	var pe *payments.ProviderError
	return errors.As(err, &pe) && pe.StatusCode < http.StatusInternalServerError
}

// Get looks the order up locally and reconciles it. Unknown ids fail with
// ErrOrderNotFound before the provider is contacted.
func (r *Reconciler) Get(ctx context.Context, id string) (View, error) {
	rec, ok, err := r.store.Get(ctx, id)
	if err != nil {
		return View{}, err
	}
	if !ok {
		return View{}, ErrOrderNotFound
	}

	return r.Reconcile(ctx, rec, func(ctx context.Context) (payments.ProviderOrder, error) {
		return r.provider.GetOrder(ctx, id)
	}), nil
}

// Reconcile never fails: any fetch error is logged and local is returned
// as-is.
func (r *Reconciler) Reconcile(ctx context.Context, local Record, fetch FetchFunc) View {
	fctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	live, err := r.breaker.Execute(func() (payments.ProviderOrder, error) {
		return fetch(fctx)
	})
	if err != nil {
		r.log.Warn("live order fetch failed, serving cached order",
			zap.String("order_id", local.OrderID),
			zap.Error(err),
		)
		r.metrics.reconciled(reconcileFallback)
		return View{Record: local}
	}

	r.metrics.reconciled(reconcileLive)
	return Merge(local, live)
}

// Merge keeps local's stable fields and takes status, fraud status, expiry,
// captures and refunds from live.
func Merge(local Record, live payments.ProviderOrder) View {
	v := View{
		Record:         local,
		ProviderStatus: live.Status,
		FraudStatus:    live.FraudStatus,
		ExpiresAt:      live.ExpiresAt,
		Captures:       live.Captures,
		Refunds:        live.Refunds,
	}
	if live.Status != "" {
		v.Status = Status(live.Status)
	}
	if v.Captures == nil {
		v.Captures = []payments.Capture{}
	}
	if v.Refunds == nil {
		v.Refunds = []payments.Refund{}
	}
	return v
}
