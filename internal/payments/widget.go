package payments

import (
	"context"
	"errors"
)

var ErrMethodUnavailable = errors.New("payment method unavailable")

// Authorization is the widget's verdict. Token is set only when Approved.
type Authorization struct {
	Approved bool   `json:"approved"`
	Token    string `json:"authorization_token,omitempty"`
	Error    string `json:"error,omitempty"`
}

// Widget is the client-side payment-method capability. The checkout core
// never renders it; it only consumes Authorization.Token.
type Widget interface {
	Initialize(ctx context.Context, clientToken string) error
	LoadMethod(ctx context.Context, category string) (bool, error)
	Authorize(ctx context.Context, category string, billing *BillingAddress) (Authorization, error)
}
