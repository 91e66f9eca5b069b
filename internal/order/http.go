package order

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"Storefront/internal/money"
	"Storefront/internal/payments"
	"Storefront/internal/pricing"
	"Storefront/pkg/kit"
)

// Provider is the subset of the payment provider the storefront calls.
type Provider interface {
	CreateSession(ctx context.Context, req payments.OrderRequest) (payments.Session, error)
	CreateOrder(ctx context.Context, authToken string, req payments.OrderRequest) (payments.CreatedOrder, error)
	GetOrder(ctx context.Context, orderID string) (payments.ProviderOrder, error)
}

type Server struct {
	Catalog    pricing.Catalog
	Builder    *Builder
	Provider   Provider
	Store      Store
	Reconciler *Reconciler
	Log        *zap.Logger
	Metrics    *Metrics

	// ProviderConfigured is reported by /api/health.
	ProviderConfigured bool
	Now                func() time.Time
}

type sessionReq struct {
	Cart     []pricing.CartLine `json:"cart"`
	Customer *CustomerInfo      `json:"customer_info,omitempty"`
}

type sessionResp struct {
	SessionID               string                           `json:"session_id"`
	ClientToken             string                           `json:"client_token"`
	PaymentMethodCategories []payments.PaymentMethodCategory `json:"payment_method_categories"`
	OrderAmount             int64                            `json:"order_amount"`
	OrderTaxAmount          int64                            `json:"order_tax_amount"`
	PurchaseCurrency        string                           `json:"purchase_currency"`
}

type createReq struct {
	AuthorizationToken string             `json:"authorization_token"`
	Cart               []pricing.CartLine `json:"cart"`
	Customer           *CustomerInfo      `json:"customer_info,omitempty"`
}

type createResp struct {
	OrderID           string `json:"order_id"`
	ProviderReference string `json:"provider_reference"`
	RedirectURL       string `json:"redirect_url,omitempty"`
	Status            Status `json:"status"`
	OrderAmount       int64  `json:"order_amount"`
	PurchaseCurrency  string `json:"purchase_currency"`
}

const (
	maxCreateBody = 1 << 20
)

var errMissingAuthToken = errors.New("authorization token is required")

func (s *Server) HealthHandler() http.HandlerFunc        { return s.health }
func (s *Server) CreateSessionHandler() http.HandlerFunc { return s.createSession }
func (s *Server) CreateHandler() http.HandlerFunc        { return s.create }
func (s *Server) GetHandler() http.HandlerFunc           { return s.get }
func (s *Server) ListHandler() http.HandlerFunc          { return s.list }

func (s *Server) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Server) logger() *zap.Logger {
	if s.Log != nil {
		return s.Log
	}
	return zap.NewNop()
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	kit.WriteJSON(w, http.StatusOK, map[string]any{
		"status":              "healthy",
		"timestamp":           s.now().UTC().Format(time.RFC3339),
		"provider_configured": s.ProviderConfigured,
	})
}

func (s *Server) createSession(w http.ResponseWriter, r *http.Request) {
	var req sessionReq
	if err := decodeJSON(w, r, &req); err != nil {
		kit.WriteError(w, r, http.StatusBadRequest, "bad json", map[string]any{"cause": err.Error()})
		return
	}

	p, err := pricing.Price(req.Cart, s.Catalog)
	if err != nil {
		s.writeError(w, r, err, "Failed to create payment session")
		return
	}

	payload, err := s.Builder.BuildSession(p, req.Customer)
	if err != nil {
		s.writeError(w, r, err, "Failed to create payment session")
		return
	}

	sess, err := s.Provider.CreateSession(r.Context(), payload)
	if err != nil {
		s.writeError(w, r, err, "Failed to create payment session")
		return
	}
	s.Metrics.sessionCreated()

	s.logger().Info("payment session created",
		zap.String("session_id", sess.SessionID),
		zap.String("amount", money.Format(p.Total, p.Currency)),
	)

	kit.WriteJSON(w, http.StatusOK, sessionResp{
		SessionID:               sess.SessionID,
		ClientToken:             sess.ClientToken,
		PaymentMethodCategories: sess.PaymentMethodCategories,
		OrderAmount:             p.Total,
		OrderTaxAmount:          p.TotalTax,
		PurchaseCurrency:        p.Currency,
	})
}

func (s *Server) create(w http.ResponseWriter, r *http.Request) {
	var req createReq
	if err := decodeJSON(w, r, &req); err != nil {
		kit.WriteError(w, r, http.StatusBadRequest, "bad json", map[string]any{"cause": err.Error()})
		return
	}

	token := strings.TrimSpace(req.AuthorizationToken)
	if token == "" {
		s.writeError(w, r, errMissingAuthToken, "Failed to create order")
		return
	}

	p, err := pricing.Price(req.Cart, s.Catalog)
	if err != nil {
		s.writeError(w, r, err, "Failed to create order")
		return
	}

	payload, err := s.Builder.Build(p, req.Customer)
	if err != nil {
		s.writeError(w, r, err, "Failed to create order")
		return
	}

	created, err := s.Provider.CreateOrder(r.Context(), token, payload)
	if err != nil {
		s.writeError(w, r, err, "Failed to create order")
		return
	}

	rec := Record{
		OrderID:           created.OrderID,
		ProviderReference: created.ProviderReference,
		Status:            StatusAuthorized,
		OrderAmount:       p.Total,
		OrderTaxAmount:    p.TotalTax,
		Currency:          p.Currency,
		Items:             p.Lines,
		Customer:          s.Builder.NormalizeCustomer(req.Customer),
		MerchantReference: payload.MerchantReference1,
		RedirectURL:       created.RedirectURL,
		CreatedAt:         s.now().UTC(),
	}

	if err := s.Store.Put(r.Context(), rec); err != nil {
		s.logger().Error("store put order failed", zap.Error(err), zap.String("order_id", rec.OrderID))
		kit.WriteError(w, r, http.StatusInternalServerError, "server error", nil)
		return
	}
	s.Metrics.orderCreated()

	s.logger().Info("order created",
		zap.String("order_id", rec.OrderID),
		zap.String("merchant_reference", rec.MerchantReference),
		zap.String("amount", money.Format(rec.OrderAmount, rec.Currency)),
	)

	kit.WriteJSON(w, http.StatusOK, createResp{
		OrderID:           rec.OrderID,
		ProviderReference: rec.ProviderReference,
		RedirectURL:       rec.RedirectURL,
		Status:            rec.Status,
		OrderAmount:       rec.OrderAmount,
		PurchaseCurrency:  rec.Currency,
	})
}

func (s *Server) get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	v, err := s.Reconciler.Get(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err, "Failed to retrieve order")
		return
	}
	kit.WriteJSON(w, http.StatusOK, v)
}

func (s *Server) list(w http.ResponseWriter, r *http.Request) {
	recs, err := s.Store.List(r.Context())
	if err != nil {
		s.writeError(w, r, err, "Failed to list orders")
		return
	}
	kit.WriteJSON(w, http.StatusOK, recs)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxCreateBody)
	defer func() { _ = r.Body.Close() }()

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(v); err != nil {
		return err
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return errors.New("extra data after json object")
	}
	return nil
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error, message string) {
	var (
		verr *ValidationError
		perr *payments.ProviderError
	)

	switch {
	case errors.Is(err, ErrOrderNotFound):
		kit.WriteError(w, r, http.StatusNotFound, "order not found", map[string]any{"id": chi.URLParam(r, "id")})
	case errors.Is(err, errMissingAuthToken), pricing.IsValidation(err):
		kit.WriteError(w, r, http.StatusBadRequest, err.Error(), nil)
	case errors.As(err, &verr):
		kit.WriteError(w, r, http.StatusBadRequest, "invalid customer info", verr.Fields)
	case errors.As(err, &perr):
		s.logger().Warn("provider rejected request",
			zap.String("op", perr.Op),
			zap.Int("status", perr.StatusCode),
			zap.ByteString("body", perr.Body),
		)
		kit.WriteUpstreamError(w, r, perr.StatusCode, "provider error", message, perr.Body)
	case errors.Is(err, payments.ErrProviderUnavailable), errors.Is(err, payments.ErrBadResponse):
		s.logger().Error("provider call failed", zap.Error(err))
		kit.WriteError(w, r, http.StatusBadGateway, "provider unavailable", nil)
	default:
		s.logger().Error("internal error", zap.Error(err), zap.String("path", r.URL.Path))
		kit.WriteError(w, r, http.StatusInternalServerError, "server error", nil)
	}
}
