package order

import (
	"errors"
	"slices"
	"time"

	"Storefront/internal/payments"
	"Storefront/internal/pricing"
)

type Status string

const (
	StatusCreated      Status = "CREATED"
	StatusAuthorized   Status = "AUTHORIZED"
	StatusPartCaptured Status = "PART_CAPTURED"
	StatusCaptured     Status = "CAPTURED"
	StatusRefunded     Status = "REFUNDED"
	StatusCancelled    Status = "CANCELLED"
	StatusExpired      Status = "EXPIRED"
	StatusClosed       Status = "CLOSED"
)

var ErrOrderNotFound = errors.New("order not found")

type CustomerInfo struct {
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	Email      string `json:"email"`
	Address    string `json:"address"`
	City       string `json:"city"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country,omitempty"`
}

// Record is the locally cached result of a successful provider order
// creation. Only Status is ever AUTHORIZED here; later states come from
// reconciliation and are never written back.
type Record struct {
	OrderID           string               `json:"order_id"`
	ProviderReference string               `json:"provider_reference"`
	Status            Status               `json:"status"`
	OrderAmount       int64                `json:"order_amount"`
	OrderTaxAmount    int64                `json:"order_tax_amount"`
	Currency          string               `json:"purchase_currency"`
	Items             []pricing.PricedLine `json:"items"`
	Customer          *CustomerInfo        `json:"customer_info,omitempty"`
	MerchantReference string               `json:"merchant_reference"`
	RedirectURL       string               `json:"redirect_url,omitempty"`
	CreatedAt         time.Time            `json:"created_at"`
}

func (r Record) clone() Record {
	r.Items = slices.Clone(r.Items)
	if r.Customer != nil {
		c := *r.Customer
		r.Customer = &c
	}
	return r
}

// View is a Record with the provider's volatile fields laid over it.
type View struct {
	Record
	ProviderStatus string             `json:"provider_status,omitempty"`
	FraudStatus    string             `json:"fraud_status,omitempty"`
	ExpiresAt      *time.Time         `json:"expires_at,omitempty"`
	Captures       []payments.Capture `json:"captures,omitempty"`
	Refunds        []payments.Refund  `json:"refunds,omitempty"`
}
