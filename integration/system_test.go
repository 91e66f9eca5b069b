//go:build integration
// +build integration

package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"testing"
	"time"

	"Storefront/internal/sandbox"
)

var (
	baseURL     = getenv("E2E_BASE_URL", "http://localhost:3001")
	providerURL = getenv("E2E_PROVIDER_URL", "http://localhost:8090")
)

func TestSystem_E2E_Checkout(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)
	defer cancel()

	waitReady(t, ctx, baseURL+"/readyz")
	waitReady(t, ctx, providerURL+"/healthz")

	var products struct {
		Products []map[string]any `json:"products"`
	}
	doJSON(t, http.MethodGet, baseURL+"/api/products", nil, &products, 200)
	if len(products.Products) == 0 {
		t.Fatalf("expected non-empty products")
	}

	cart := []map[string]any{
		{"product_id": "12345", "quantity": 1},
		{"product_id": "12346", "quantity": 3},
	}

	var sess struct {
		ClientToken string `json:"client_token"`
		OrderAmount int64  `json:"order_amount"`
	}
	doJSON(t, http.MethodPost, baseURL+"/api/create-session", map[string]any{"cart": cart}, &sess, 200)
	if sess.OrderAmount != 3425 {
		t.Fatalf("expected order_amount 3425, got %d", sess.OrderAmount)
	}

	w := sandbox.NewWidget(providerURL)
	if err := w.Initialize(ctx, sess.ClientToken); err != nil {
		t.Fatalf("widget init: %v", err)
	}
	auth, err := w.Authorize(ctx, "pay_later", nil)
	if err != nil || !auth.Approved {
		t.Fatalf("authorize: %+v err=%v", auth, err)
	}

	var created map[string]any
	doJSON(t, http.MethodPost, baseURL+"/api/create-order", map[string]any{
		"authorization_token": auth.Token,
		"cart":                cart,
	}, &created, 200)

	orderID, _ := created["order_id"].(string)
	if orderID == "" {
		t.Fatalf("order id missing: %#v", created)
	}

	var got map[string]any
	doJSON(t, http.MethodGet, baseURL+"/api/orders/"+orderID, nil, &got, 200)
	if got["fraud_status"] != "ACCEPTED" {
		t.Fatalf("expected live overlay, got %#v", got)
	}

	if os.Getenv("E2E_STOP_PROVIDER") == "1" {
		composeProvider(t, ctx, "stop")
		defer composeProvider(t, ctx, "start")

		var cached map[string]any
		doJSON(t, http.MethodGet, baseURL+"/api/orders/"+orderID, nil, &cached, 200)
		if cached["status"] != "AUTHORIZED" {
			t.Fatalf("expected cached order, got %#v", cached)
		}
		for _, k := range []string{"provider_status", "fraud_status", "expires_at"} {
			if _, ok := cached[k]; ok {
				t.Fatalf("cached order carries live field %q: %#v", k, cached)
			}
		}
	}
}

func waitReady(t *testing.T, ctx context.Context, url string) {
	t.Helper()
	client := &http.Client{Timeout: 2 * time.Second}

	deadline := time.Now().Add(60 * time.Second)
	for time.Now().Before(deadline) {
		req, _ := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		resp, err := client.Do(req)
		if err == nil && resp != nil && resp.StatusCode == 200 {
			_ = resp.Body.Close()
			return
		}
		if resp != nil {
			_ = resp.Body.Close()
		}
		time.Sleep(500 * time.Millisecond)
	}
	t.Fatalf("service not ready: %s", url)
}

func doJSON(t *testing.T, method, url string, body any, out any, want int) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}

	req, err := http.NewRequest(method, url, &buf)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != want {
		t.Fatalf("%s %s: expected %d, got %d body=%s", method, url, want, resp.StatusCode, string(raw))
	}
	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			t.Fatalf("decode response: %v", err)
		}
	}
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
