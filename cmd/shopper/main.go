// Command shopper runs one scripted checkout against a storefront and the
// sandbox provider: open a session, authorize in the widget, create the
// order and read it back.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"Storefront/internal/money"
	"Storefront/internal/payments"
	"Storefront/internal/pricing"
	"Storefront/internal/sandbox"
	"Storefront/pkg/kit"
)

type checkout struct {
	base   string
	client *http.Client
}

func (c checkout) call(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s %s: status=%d body=%s", method, path, resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	return json.Unmarshal(raw, out)
}

func main() {
	storefront := flag.String("storefront", "http://localhost:3001", "storefront base url")
	provider := flag.String("provider", "http://localhost:8090", "sandbox provider base url")
	category := flag.String("category", "pay_later", "payment method category")
	email := flag.String("email", "shopper@example.com", "billing email; decline@... is refused")
	flag.Parse()

	log := kit.NewLogger("shopper", "info")
	defer func() { _ = log.Sync() }()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := run(ctx, log, *storefront, *provider, *category, *email); err != nil {
		log.Error("checkout failed", zap.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, log *zap.Logger, storefront, provider, category, email string) error {
	sf := checkout{base: strings.TrimRight(storefront, "/"), client: &http.Client{Timeout: 10 * time.Second}}

	cart := []pricing.CartLine{
		{ProductID: "12345", Quantity: 1},
		{ProductID: "12346", Quantity: 3},
	}
	customer := map[string]string{
		"first_name":  "Sam",
		"last_name":   "Shopper",
		"email":       email,
		"address":     "Storgatan 1",
		"city":        "Stockholm",
		"postal_code": "11122",
	}

	var sess struct {
		SessionID   string `json:"session_id"`
		ClientToken string `json:"client_token"`
		OrderAmount int64  `json:"order_amount"`
		Currency    string `json:"purchase_currency"`
	}
	if err := sf.call(ctx, http.MethodPost, "/api/create-session", map[string]any{"cart": cart, "customer_info": customer}, &sess); err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	log.Info("session opened",
		zap.String("session_id", sess.SessionID),
		zap.String("amount", money.Format(sess.OrderAmount, sess.Currency)),
	)

	var widget payments.Widget = sandbox.NewWidget(provider)
	if err := widget.Initialize(ctx, sess.ClientToken); err != nil {
		return fmt.Errorf("widget init: %w", err)
	}
	ok, err := widget.LoadMethod(ctx, category)
	if err != nil {
		return fmt.Errorf("widget load: %w", err)
	}
	if !ok {
		return fmt.Errorf("payment method %q not offered", category)
	}

	auth, err := widget.Authorize(ctx, category, &payments.BillingAddress{Email: email})
	if err != nil {
		return fmt.Errorf("widget authorize: %w", err)
	}
	if !auth.Approved {
		log.Warn("authorization declined", zap.String("reason", auth.Error))
		return nil
	}

	var created struct {
		OrderID   string `json:"order_id"`
		Reference string `json:"provider_reference"`
		Redirect  string `json:"redirect_url"`
	}
	req := map[string]any{"authorization_token": auth.Token, "cart": cart, "customer_info": customer}
	if err := sf.call(ctx, http.MethodPost, "/api/create-order", req, &created); err != nil {
		return fmt.Errorf("create order: %w", err)
	}

	var view map[string]any
	if err := sf.call(ctx, http.MethodGet, "/api/orders/"+created.OrderID, nil, &view); err != nil {
		return fmt.Errorf("read order: %w", err)
	}

	log.Info("order placed",
		zap.String("order_id", created.OrderID),
		zap.String("provider_reference", created.Reference),
		zap.String("redirect_url", created.Redirect),
		zap.Any("status", view["status"]),
		zap.Any("fraud_status", view["fraud_status"]),
	)
	return nil
}
