// Package payments talks to the payment provider's session, order and
// order-management REST APIs.
package payments

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	defaultTimeout = 10 * time.Second
	maxErrorBody   = 64 << 10
)

var (
	ErrProviderUnavailable = errors.New("payment provider unavailable")
	ErrBadResponse         = errors.New("payment provider bad response")
)

// ProviderError is a non-2xx answer from the provider. Body is kept verbatim
// so callers can relay it.
type ProviderError struct {
	Op         string
	StatusCode int
	Body       []byte
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider %s: status=%d", e.Op, e.StatusCode)
}

type Config struct {
	BaseURL  string
	Username string
	Password string
	Timeout  time.Duration
}

// Configured reports whether credentials are present.
func (c Config) Configured() bool {
	return c.Username != "" && c.Password != ""
}

type Client struct {
	BaseURL  string
	Client   *http.Client
	Metrics  *Metrics
	Log      *zap.Logger
	username string
	password string
}

func NewClient(cfg Config) *Client {
	baseURL := cfg.BaseURL
	if u, err := url.Parse(baseURL); err == nil && u.Scheme != "" && u.Host != "" {
		baseURL = strings.TrimRight(baseURL, "/")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		BaseURL:  baseURL,
		Client:   &http.Client{Timeout: timeout},
		Log:      zap.NewNop(),
		username: cfg.Username,
		password: cfg.Password,
	}
}

func (c *Client) CreateSession(ctx context.Context, req OrderRequest) (Session, error) {
	var s Session
	err := c.do(ctx, "create_session", http.MethodPost, "/payments/v1/sessions", req, &s)
	return s, err
}

func (c *Client) CreateOrder(ctx context.Context, authToken string, req OrderRequest) (CreatedOrder, error) {
	var o CreatedOrder
	path := "/payments/v1/authorizations/" + url.PathEscape(authToken) + "/order"
	err := c.do(ctx, "create_order", http.MethodPost, path, req, &o)
	return o, err
}

func (c *Client) GetOrder(ctx context.Context, orderID string) (ProviderOrder, error) {
	var o ProviderOrder
	err := c.do(ctx, "get_order", http.MethodGet, "/ordermanagement/v1/orders/"+url.PathEscape(orderID), nil, &o)
	return o, err
}

func (c *Client) do(ctx context.Context, op, method, path string, in, out any) (err error) {
	start := time.Now()
	status := 0
	defer func() {
		c.Metrics.observe(op, outcome(status, err), time.Since(start))
	}()

	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("provider %s: encode: %w", op, err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return fmt.Errorf("provider %s: %w", op, err)
	}
	req.SetBasicAuth(c.username, c.password)
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.Client.Do(req)
	if err != nil {
		c.Log.Debug("provider call failed", zap.String("op", op), zap.Error(err))
		return fmt.Errorf("%w: %s: %w", ErrProviderUnavailable, op, err)
	}
	defer resp.Body.Close()
	status = resp.StatusCode

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &ProviderError{Op: op, StatusCode: resp.StatusCode, Body: raw}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrBadResponse, op, err)
	}
	return nil
}

func outcome(status int, err error) string {
	switch {
	case err == nil:
		return "ok"
	case status != 0:
		return strconv.Itoa(status)
	default:
		return "error"
	}
}
