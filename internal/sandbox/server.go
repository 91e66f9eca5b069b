// Package sandbox is an in-process stand-in for the payment provider: the
// session, authorization, order and order-management endpoints the
// storefront talks to, plus the widget endpoints a browser would call.
package sandbox

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"Storefront/internal/payments"
	"Storefront/pkg/kit"
)

const (
	clientTokenTTL = 48 * time.Hour
	orderExpiry    = 28 * 24 * time.Hour
	maxBodyBytes   = 1 << 20

	fraudAccepted = "ACCEPTED"
)

var defaultCategories = []payments.PaymentMethodCategory{
	{Identifier: "pay_now", Name: "Pay now"},
	{Identifier: "pay_later", Name: "Pay later"},
	{Identifier: "pay_over_time", Name: "Financing"},
}

type session struct {
	id      string
	request payments.OrderRequest
}

type authorization struct {
	sessionID string
	category  string
}

func offered(category string) bool {
	for _, c := range defaultCategories {
		if c.Identifier == category {
			return true
		}
	}
	return false
}

type order struct {
	view     payments.ProviderOrder
	amount   int64
	captured int64
	refunded int64
}

type Server struct {
	Log         *zap.Logger
	Credentials *Credentials
	Tokens      *TokenMaker
	// RedirectBase prefixes the confirmation redirect of created orders.
	RedirectBase string
	Now          func() time.Time

	mu       sync.Mutex
	sessions map[string]*session
	auths    map[string]authorization
	orders   map[string]*order
}

func NewServer(creds *Credentials, tokens *TokenMaker, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{
		Log:          log,
		Credentials:  creds,
		Tokens:       tokens,
		RedirectBase: "https://sandbox.example.com/confirmation",
		Now:          time.Now,
		sessions:     map[string]*session{},
		auths:        map[string]authorization{},
		orders:       map[string]*order{},
	}
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(kit.Recoverer(s.Log))
	r.Use(kit.Logging(s.Log))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })

	r.Group(func(mr chi.Router) {
		mr.Use(s.Credentials.RequireBasicAuth)
		mr.Post("/payments/v1/sessions", s.createSession)
		mr.Post("/payments/v1/authorizations/{token}/order", s.createOrder)
		mr.Get("/ordermanagement/v1/orders/{id}", s.getOrder)
		mr.Post("/ordermanagement/v1/orders/{id}/captures", s.capture)
		mr.Post("/ordermanagement/v1/orders/{id}/refunds", s.refund)
	})

	r.Group(func(wr chi.Router) {
		wr.Use(s.requireClientToken)
		wr.Get("/payments/v1/sessions/{id}/widget", s.widgetSession)
		wr.Post("/payments/v1/sessions/{id}/authorize", s.widgetAuthorize)
	})

	return r
}

type providerError struct {
	ErrorCode     string   `json:"error_code"`
	ErrorMessages []string `json:"error_messages"`
	CorrelationID string   `json:"correlation_id"`
}

func writeProviderError(w http.ResponseWriter, status int, code string, msgs ...string) {
	kit.WriteJSON(w, status, providerError{
		ErrorCode:     code,
		ErrorMessages: msgs,
		CorrelationID: uuid.NewString(),
	})
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeProviderError(w, http.StatusBadRequest, "BAD_VALUE", "malformed json: "+err.Error())
		return false
	}
	return true
}

// validateOrder applies the provider's own consistency rules.
func validateOrder(req payments.OrderRequest) []string {
	var problems []string
	if req.PurchaseCountry == "" {
		problems = append(problems, "purchase_country is required")
	}
	if req.PurchaseCurrency == "" {
		problems = append(problems, "purchase_currency is required")
	}
	if len(req.OrderLines) == 0 {
		problems = append(problems, "order_lines is required")
	}

	var total, tax int64
	for i, l := range req.OrderLines {
		if l.Quantity <= 0 {
			problems = append(problems, fmt.Sprintf("order_lines[%d].quantity must be positive", i))
		}
		total += l.TotalAmount
		tax += l.TotalTaxAmount
	}
	if total != req.OrderAmount {
		problems = append(problems, fmt.Sprintf("order_amount %d does not match sum of order lines %d", req.OrderAmount, total))
	}
	if tax != req.OrderTaxAmount {
		problems = append(problems, fmt.Sprintf("order_tax_amount %d does not match sum of order lines %d", req.OrderTaxAmount, tax))
	}
	return problems
}

func (s *Server) createSession(w http.ResponseWriter, r *http.Request) {
	var req payments.OrderRequest
	if !decode(w, r, &req) {
		return
	}
	if problems := validateOrder(req); len(problems) > 0 {
		writeProviderError(w, http.StatusBadRequest, "BAD_VALUE", problems...)
		return
	}

	id := uuid.NewString()
	tok, err := s.Tokens.New(id, s.Now(), clientTokenTTL)
	if err != nil {
		s.Log.Error("client token issue", zap.Error(err))
		writeProviderError(w, http.StatusInternalServerError, "INTERNAL_ERROR")
		return
	}

	s.mu.Lock()
	s.sessions[id] = &session{id: id, request: req}
	s.mu.Unlock()

	kit.WriteJSON(w, http.StatusOK, payments.Session{
		SessionID:               id,
		ClientToken:             tok,
		PaymentMethodCategories: defaultCategories,
	})
}

func (s *Server) createOrder(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")

	var req payments.OrderRequest
	if !decode(w, r, &req) {
		return
	}
	if problems := validateOrder(req); len(problems) > 0 {
		writeProviderError(w, http.StatusBadRequest, "BAD_VALUE", problems...)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	auth, ok := s.auths[token]
	if !ok {
		writeProviderError(w, http.StatusNotFound, "NOT_FOUND", "authorization token not found or already used")
		return
	}
	sess := s.sessions[auth.sessionID]
	if sess == nil || sess.request.OrderAmount != req.OrderAmount || sess.request.PurchaseCurrency != req.PurchaseCurrency {
		writeProviderError(w, http.StatusBadRequest, "BAD_VALUE", "order does not match the authorized session")
		return
	}
	delete(s.auths, token)

	now := s.Now().UTC()
	expires := now.Add(orderExpiry)
	id := uuid.NewString()
	ref := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:10])

	s.orders[id] = &order{
		amount: req.OrderAmount,
		view: payments.ProviderOrder{
			OrderID:     id,
			Status:      "AUTHORIZED",
			FraudStatus: fraudAccepted,
			ExpiresAt:   &expires,
			Captures:    []payments.Capture{},
			Refunds:     []payments.Refund{},
		},
	}

	s.Log.Info("order created",
		zap.String("order_id", id),
		zap.String("session_id", auth.sessionID),
		zap.String("payment_method_category", auth.category),
		zap.Int64("order_amount", req.OrderAmount),
	)

	kit.WriteJSON(w, http.StatusOK, payments.CreatedOrder{
		OrderID:           id,
		ProviderReference: ref,
		RedirectURL:       s.RedirectBase + "/" + id,
		FraudStatus:       fraudAccepted,
	})
}

func (s *Server) getOrder(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	s.mu.Lock()
	o, ok := s.orders[id]
	var view payments.ProviderOrder
	if ok {
		view = o.view
	}
	s.mu.Unlock()

	if !ok {
		writeProviderError(w, http.StatusNotFound, "NOT_FOUND", "order not found")
		return
	}
	kit.WriteJSON(w, http.StatusOK, view)
}

type captureReq struct {
	CapturedAmount int64 `json:"captured_amount"`
}

func (s *Server) capture(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req captureReq
	if !decode(w, r, &req) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.orders[id]
	if !ok {
		writeProviderError(w, http.StatusNotFound, "NOT_FOUND", "order not found")
		return
	}
	if req.CapturedAmount <= 0 || o.captured+req.CapturedAmount > o.amount {
		writeProviderError(w, http.StatusForbidden, "CAPTURE_NOT_ALLOWED", "captured amount exceeds remaining authorized amount")
		return
	}

	o.captured += req.CapturedAmount
	c := payments.Capture{
		CaptureID:      uuid.NewString(),
		CapturedAmount: req.CapturedAmount,
		CapturedAt:     s.Now().UTC(),
	}
	o.view.Captures = append(o.view.Captures, c)
	o.view.Status = "PART_CAPTURED"
	if o.captured == o.amount {
		o.view.Status = "CAPTURED"
	}

	w.Header().Set("Capture-Id", c.CaptureID)
	w.WriteHeader(http.StatusCreated)
}

type refundReq struct {
	RefundedAmount int64 `json:"refunded_amount"`
}

func (s *Server) refund(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req refundReq
	if !decode(w, r, &req) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.orders[id]
	if !ok {
		writeProviderError(w, http.StatusNotFound, "NOT_FOUND", "order not found")
		return
	}
	if req.RefundedAmount <= 0 || o.refunded+req.RefundedAmount > o.captured {
		writeProviderError(w, http.StatusForbidden, "REFUND_NOT_ALLOWED", "refunded amount exceeds captured amount")
		return
	}

	o.refunded += req.RefundedAmount
	rf := payments.Refund{
		RefundID:       uuid.NewString(),
		RefundedAmount: req.RefundedAmount,
		RefundedAt:     s.Now().UTC(),
	}
	o.view.Refunds = append(o.view.Refunds, rf)
	if o.refunded == o.captured {
		o.view.Status = "REFUNDED"
	}

	w.Header().Set("Refund-Id", rf.RefundID)
	w.WriteHeader(http.StatusCreated)
}

type ctxKey int

const sessionKey ctxKey = 1

// requireClientToken admits widget calls carrying a client token issued for
// the session named in the path.
func (s *Server) requireClientToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tok, ok := kit.BearerToken(r)
		if !ok {
			kit.WriteError(w, r, http.StatusUnauthorized, "missing client token", nil)
			return
		}
		claims, err := s.Tokens.Parse(tok)
		if err != nil {
			kit.WriteError(w, r, http.StatusUnauthorized, "invalid client token", nil)
			return
		}
		if claims.SessionID != chi.URLParam(r, "id") {
			kit.WriteError(w, r, http.StatusForbidden, "client token not valid for session", nil)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), sessionKey, claims.SessionID)))
	})
}

func sessionFrom(r *http.Request) string {
	id, _ := r.Context().Value(sessionKey).(string)
	return id
}

type widgetSessionResp struct {
	SessionID               string                           `json:"session_id"`
	PurchaseCurrency        string                           `json:"purchase_currency"`
	OrderAmount             int64                            `json:"order_amount"`
	PaymentMethodCategories []payments.PaymentMethodCategory `json:"payment_method_categories"`
}

func (s *Server) widgetSession(w http.ResponseWriter, r *http.Request) {
	id := sessionFrom(r)

	s.mu.Lock()
	sess, ok := s.sessions[id]
	var resp widgetSessionResp
	if ok {
		resp = widgetSessionResp{
			SessionID:               sess.id,
			PurchaseCurrency:        sess.request.PurchaseCurrency,
			OrderAmount:             sess.request.OrderAmount,
			PaymentMethodCategories: defaultCategories,
		}
	}
	s.mu.Unlock()

	if !ok {
		writeProviderError(w, http.StatusNotFound, "NOT_FOUND", "session not found")
		return
	}
	kit.WriteJSON(w, http.StatusOK, resp)
}

type widgetAuthorizeReq struct {
	PaymentMethodCategory string                   `json:"payment_method_category"`
	BillingAddress        *payments.BillingAddress `json:"billing_address,omitempty"`
}

// widgetAuthorize plays the shopper's side of the widget. Billing emails
// beginning with "decline@" are refused.
func (s *Server) widgetAuthorize(w http.ResponseWriter, r *http.Request) {
	id := sessionFrom(r)

	var req widgetAuthorizeReq
	if !decode(w, r, &req) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		writeProviderError(w, http.StatusNotFound, "NOT_FOUND", "session not found")
		return
	}
	if !offered(req.PaymentMethodCategory) {
		kit.WriteJSON(w, http.StatusOK, payments.Authorization{Approved: false, Error: "payment method unavailable"})
		return
	}

	billing := req.BillingAddress
	if billing == nil {
		billing = sess.request.BillingAddress
	}
	if billing != nil && strings.HasPrefix(strings.ToLower(billing.Email), "decline@") {
		kit.WriteJSON(w, http.StatusOK, payments.Authorization{Approved: false, Error: "declined"})
		return
	}

	token := uuid.NewString()
	s.auths[token] = authorization{sessionID: id, category: req.PaymentMethodCategory}

	kit.WriteJSON(w, http.StatusOK, payments.Authorization{Approved: true, Token: token})
}
