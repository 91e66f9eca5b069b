package payments

import "time"

// OrderLine is one line of a provider order payload. Amounts are minor
// units; TotalAmount includes tax.
type OrderLine struct {
	Type                string `json:"type"`
	Reference           string `json:"reference"`
	Name                string `json:"name"`
	Quantity            int    `json:"quantity"`
	UnitPrice           int64  `json:"unit_price"`
	TaxRate             int64  `json:"tax_rate"`
	TotalAmount         int64  `json:"total_amount"`
	TotalDiscountAmount int64  `json:"total_discount_amount"`
	TotalTaxAmount      int64  `json:"total_tax_amount"`
	ProductURL          string `json:"product_url,omitempty"`
	ImageURL            string `json:"image_url,omitempty"`
}

type BillingAddress struct {
	GivenName     string `json:"given_name"`
	FamilyName    string `json:"family_name"`
	Email         string `json:"email"`
	StreetAddress string `json:"street_address"`
	PostalCode    string `json:"postal_code"`
	City          string `json:"city"`
	Country       string `json:"country"`
}

// OrderRequest is the body of both session and order creation.
type OrderRequest struct {
	PurchaseCountry    string          `json:"purchase_country"`
	PurchaseCurrency   string          `json:"purchase_currency"`
	Locale             string          `json:"locale"`
	OrderAmount        int64           `json:"order_amount"`
	OrderTaxAmount     int64           `json:"order_tax_amount"`
	OrderLines         []OrderLine     `json:"order_lines"`
	BillingAddress     *BillingAddress `json:"billing_address,omitempty"`
	MerchantReference1 string          `json:"merchant_reference1,omitempty"`
	MerchantReference2 string          `json:"merchant_reference2,omitempty"`
}

type PaymentMethodCategory struct {
	Identifier string `json:"identifier"`
	Name       string `json:"name"`
}

type Session struct {
	SessionID               string                  `json:"session_id"`
	ClientToken             string                  `json:"client_token"`
	PaymentMethodCategories []PaymentMethodCategory `json:"payment_method_categories"`
}

type CreatedOrder struct {
	OrderID           string `json:"order_id"`
	ProviderReference string `json:"klarna_reference"`
	RedirectURL       string `json:"redirect_url"`
	FraudStatus       string `json:"fraud_status,omitempty"`
}

type Capture struct {
	CaptureID      string    `json:"capture_id"`
	CapturedAmount int64     `json:"captured_amount"`
	CapturedAt     time.Time `json:"captured_at"`
}

type Refund struct {
	RefundID       string    `json:"refund_id"`
	RefundedAmount int64     `json:"refunded_amount"`
	RefundedAt     time.Time `json:"refunded_at"`
}

// ProviderOrder is the provider's authoritative, volatile view of an order.
type ProviderOrder struct {
	OrderID     string     `json:"order_id"`
	Status      string     `json:"status"`
	FraudStatus string     `json:"fraud_status"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	Captures    []Capture  `json:"captures"`
	Refunds     []Refund   `json:"refunds"`
}
