package order

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/bwmarrin/snowflake"

	"Storefront/internal/payments"
	"Storefront/internal/pricing"
)

const (
	lineTypePhysical = "physical"

	DefaultPurchaseCountry = "SE"
	DefaultLocale          = "en-SE"
	DefaultProductURL      = "https://example.com/product"
)

var emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// ValidationError maps offending field names to a reason.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "invalid customer info: " + strings.Join(parts, ", ")
}

// Validate checks the fields the provider needs for a billing address.
func (c *CustomerInfo) Validate() error {
	fields := map[string]string{}
	required := []struct {
		name, value string
	}{
		{"first_name", c.FirstName},
		{"last_name", c.LastName},
		{"email", c.Email},
		{"address", c.Address},
		{"city", c.City},
		{"postal_code", c.PostalCode},
	}
	for _, f := range required {
		if strings.TrimSpace(f.value) == "" {
			fields[f.name] = "required"
		}
	}
	if _, missing := fields["email"]; !missing && !emailRe.MatchString(strings.TrimSpace(c.Email)) {
		fields["email"] = "invalid email address"
	}

	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

type BuilderConfig struct {
	PurchaseCountry string
	Locale          string
	ProductURL      string
	// DefaultCountry fills billing addresses that omit a country.
	DefaultCountry string
}

// Builder turns a priced cart into provider payloads. It does no I/O.
type Builder struct {
	cfg  BuilderConfig
	refs *snowflake.Node
}

// NewBuilder uses node to mint merchant references; node ids must be
// unique per running process for references to stay unique.
func NewBuilder(cfg BuilderConfig, node *snowflake.Node) *Builder {
	if cfg.PurchaseCountry == "" {
		cfg.PurchaseCountry = DefaultPurchaseCountry
	}
	if cfg.Locale == "" {
		cfg.Locale = DefaultLocale
	}
	if cfg.ProductURL == "" {
		cfg.ProductURL = DefaultProductURL
	}
	if cfg.DefaultCountry == "" {
		cfg.DefaultCountry = cfg.PurchaseCountry
	}
	return &Builder{cfg: cfg, refs: node}
}

// BuildSession builds a session payload: the order payload without
// merchant references.
func (b *Builder) BuildSession(p pricing.Pricing, customer *CustomerInfo) (payments.OrderRequest, error) {
	if len(p.Lines) == 0 {
		return payments.OrderRequest{}, pricing.ErrEmptyCart
	}

	req := payments.OrderRequest{
		PurchaseCountry:  b.cfg.PurchaseCountry,
		PurchaseCurrency: p.Currency,
		Locale:           b.cfg.Locale,
		OrderAmount:      p.Total,
		OrderTaxAmount:   p.TotalTax,
		OrderLines:       make([]payments.OrderLine, 0, len(p.Lines)),
	}

	for _, l := range p.Lines {
		if l.Currency != p.Currency {
			return payments.OrderRequest{}, &pricing.CurrencyMismatchError{Want: p.Currency, Got: l.Currency, ProductID: l.ProductID}
		}
		req.OrderLines = append(req.OrderLines, payments.OrderLine{
			Type:                lineTypePhysical,
			Reference:           l.ProductID,
			Name:                l.Name,
			Quantity:            l.Quantity,
			UnitPrice:           l.UnitPrice,
			TaxRate:             l.TaxRate,
			TotalAmount:         l.Total,
			TotalDiscountAmount: 0,
			TotalTaxAmount:      l.Tax,
			ProductURL:          b.cfg.ProductURL,
			ImageURL:            l.ImageURL,
		})
	}

	if customer != nil {
		if err := customer.Validate(); err != nil {
			return payments.OrderRequest{}, err
		}
		req.BillingAddress = b.billingAddress(customer)
	}

	return req, nil
}

// Build builds an order-creation payload with a fresh merchant reference.
func (b *Builder) Build(p pricing.Pricing, customer *CustomerInfo) (payments.OrderRequest, error) {
	req, err := b.BuildSession(p, customer)
	if err != nil {
		return payments.OrderRequest{}, err
	}

	ids := make([]string, 0, len(p.Lines))
	for _, l := range p.Lines {
		ids = append(ids, l.ProductID)
	}

	req.MerchantReference1 = "ORDER-" + b.refs.Generate().String()
	req.MerchantReference2 = "DEMO-" + strings.Join(ids, "-")
	return req, nil
}

// NormalizeCustomer returns the customer as sent to the provider: fields
// trimmed, country upper-cased and defaulted.
func (b *Builder) NormalizeCustomer(c *CustomerInfo) *CustomerInfo {
	if c == nil {
		return nil
	}
	country := strings.ToUpper(strings.TrimSpace(c.Country))
	if country == "" {
		country = b.cfg.DefaultCountry
	}
	return &CustomerInfo{
		FirstName:  strings.TrimSpace(c.FirstName),
		LastName:   strings.TrimSpace(c.LastName),
		Email:      strings.TrimSpace(c.Email),
		Address:    strings.TrimSpace(c.Address),
		City:       strings.TrimSpace(c.City),
		PostalCode: strings.TrimSpace(c.PostalCode),
		Country:    country,
	}
}

func (b *Builder) billingAddress(c *CustomerInfo) *payments.BillingAddress {
	n := b.NormalizeCustomer(c)
	return &payments.BillingAddress{
		GivenName:     n.FirstName,
		FamilyName:    n.LastName,
		Email:         n.Email,
		StreetAddress: n.Address,
		PostalCode:    n.PostalCode,
		City:          n.City,
		Country:       n.Country,
	}
}

func NewNode(id int64) (*snowflake.Node, error) {
	n, err := snowflake.NewNode(id)
	if err != nil {
		return nil, fmt.Errorf("merchant reference node %d: %w", id, err)
	}
	return n, nil
}
