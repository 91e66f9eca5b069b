package payments

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	ts := httptest.NewServer(h)
	t.Cleanup(ts.Close)
	return NewClient(Config{BaseURL: ts.URL + "/", Username: "merchant", Password: "s3cret", Timeout: time.Second})
}

func TestClient_CreateSession(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/payments/v1/sessions", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "merchant", user)
		assert.Equal(t, "s3cret", pass)

		var req OrderRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, int64(3425), req.OrderAmount)
		assert.Len(t, req.OrderLines, 2)

		_ = json.NewEncoder(w).Encode(map[string]any{
			"session_id":   "sess-1",
			"client_token": "tok",
			"payment_method_categories": []map[string]string{
				{"identifier": "pay_later", "name": "Pay later"},
			},
		})
	})

	s, err := c.CreateSession(context.Background(), OrderRequest{
		OrderAmount: 3425,
		OrderLines:  []OrderLine{{Reference: "12345"}, {Reference: "12346"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "sess-1", s.SessionID)
	assert.Equal(t, "tok", s.ClientToken)
	require.Len(t, s.PaymentMethodCategories, 1)
	assert.Equal(t, "pay_later", s.PaymentMethodCategories[0].Identifier)
}

func TestClient_CreateOrder_EscapesToken(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/payments/v1/authorizations/a%2Fb/order", r.URL.EscapedPath())
		_ = json.NewEncoder(w).Encode(map[string]any{
			"order_id":         "ord-1",
			"klarna_reference": "REF-1",
			"redirect_url":     "https://example.com/done",
		})
	})

	o, err := c.CreateOrder(context.Background(), "a/b", OrderRequest{})
	require.NoError(t, err)
	assert.Equal(t, "ord-1", o.OrderID)
	assert.Equal(t, "REF-1", o.ProviderReference)
	assert.Equal(t, "https://example.com/done", o.RedirectURL)
}

func TestClient_ProviderErrorPassthrough(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error_code":"BAD_VALUE","error_messages":["order_amount"]}`))
	})

	_, err := c.CreateOrder(context.Background(), "tok", OrderRequest{})

	var pe *ProviderError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, http.StatusBadRequest, pe.StatusCode)
	assert.Equal(t, "create_order", pe.Op)
	assert.JSONEq(t, `{"error_code":"BAD_VALUE","error_messages":["order_amount"]}`, string(pe.Body))
}

func TestClient_Unavailable(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := ts.URL
	ts.Close()

	c := NewClient(Config{BaseURL: url, Timeout: time.Second})
	_, err := c.GetOrder(context.Background(), "ord-1")
	assert.ErrorIs(t, err, ErrProviderUnavailable)
}

func TestClient_Timeout(t *testing.T) {
	release := make(chan struct{})
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	t.Cleanup(func() { close(release) })

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := c.GetOrder(ctx, "ord-1")
	assert.ErrorIs(t, err, ErrProviderUnavailable)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestClient_GetOrder_Metrics(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/ordermanagement/v1/orders/ord-1", r.URL.Path)
		_ = json.NewEncoder(w).Encode(ProviderOrder{OrderID: "ord-1", Status: "CAPTURED"})
	})
	reg := prometheus.NewRegistry()
	c.Metrics = NewMetrics(reg)

	o, err := c.GetOrder(context.Background(), "ord-1")
	require.NoError(t, err)
	assert.Equal(t, "CAPTURED", o.Status)
	assert.Equal(t, 1, testutil.CollectAndCount(c.Metrics.Calls, "checkout_provider_request_duration_seconds"))
}

func TestClient_BadJSON(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("not json"))
	})

	_, err := c.GetOrder(context.Background(), "ord-1")
	assert.ErrorIs(t, err, ErrBadResponse)
}
