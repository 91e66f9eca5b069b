package sandbox

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"Storefront/internal/payments"
)

var ErrNotInitialized = errors.New("widget not initialized")

// Widget drives the sandbox widget endpoints over HTTP. It stands in for the
// browser component in tests and the demo shopper.
type Widget struct {
	BaseURL string
	Client  *http.Client

	mu          sync.Mutex
	clientToken string
	sessionID   string
	categories  []payments.PaymentMethodCategory
}

var _ payments.Widget = (*Widget)(nil)

func NewWidget(baseURL string) *Widget {
	return &Widget{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Client:  &http.Client{Timeout: 5 * time.Second},
	}
}

// Initialize reads the session id out of the client token and loads the
// categories the session offers. The token signature is checked server side.
func (w *Widget) Initialize(ctx context.Context, clientToken string) error {
	var claims ClientClaims
	if _, _, err := jwt.NewParser().ParseUnverified(clientToken, &claims); err != nil {
		return fmt.Errorf("parse client token: %w", err)
	}
	if claims.SessionID == "" {
		return errors.New("client token without session")
	}

	var resp widgetSessionResp
	path := "/payments/v1/sessions/" + url.PathEscape(claims.SessionID) + "/widget"
	if err := w.call(ctx, http.MethodGet, path, clientToken, nil, &resp); err != nil {
		return err
	}

	w.mu.Lock()
	w.clientToken = clientToken
	w.sessionID = claims.SessionID
	w.categories = resp.PaymentMethodCategories
	w.mu.Unlock()
	return nil
}

func (w *Widget) LoadMethod(_ context.Context, category string) (bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.sessionID == "" {
		return false, ErrNotInitialized
	}
	for _, c := range w.categories {
		if c.Identifier == category {
			return true, nil
		}
	}
	return false, nil
}

func (w *Widget) Authorize(ctx context.Context, category string, billing *payments.BillingAddress) (payments.Authorization, error) {
	w.mu.Lock()
	tok, sid := w.clientToken, w.sessionID
	w.mu.Unlock()

	if sid == "" {
		return payments.Authorization{}, ErrNotInitialized
	}

	body := widgetAuthorizeReq{PaymentMethodCategory: category, BillingAddress: billing}
	var out payments.Authorization
	path := "/payments/v1/sessions/" + url.PathEscape(sid) + "/authorize"
	if err := w.call(ctx, http.MethodPost, path, tok, body, &out); err != nil {
		return payments.Authorization{}, err
	}
	if !out.Approved && out.Error == "payment method unavailable" {
		return out, payments.ErrMethodUnavailable
	}
	return out, nil
}

func (w *Widget) call(ctx context.Context, method, path, token string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, w.BaseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := w.Client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", payments.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		return &payments.ProviderError{Op: "widget", StatusCode: resp.StatusCode, Body: raw}
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
