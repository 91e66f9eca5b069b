package order

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"Storefront/internal/catalog"
	"Storefront/internal/pricing"
)

func newTestBuilder(t *testing.T, cfg BuilderConfig) *Builder {
	t.Helper()
	node, err := NewNode(1)
	require.NoError(t, err)
	return NewBuilder(cfg, node)
}

func demoPricing(t *testing.T) pricing.Pricing {
	t.Helper()
	p, err := pricing.Price([]pricing.CartLine{
		{ProductID: "12345", Quantity: 1},
		{ProductID: "12346", Quantity: 3},
	}, catalog.NewStore())
	require.NoError(t, err)
	return p
}

func validCustomer() *CustomerInfo {
	return &CustomerInfo{
		FirstName:  "Ada",
		LastName:   "Lovelace",
		Email:      "ada@example.com",
		Address:    "Storgatan 1",
		City:       "Stockholm",
		PostalCode: "11122",
		Country:    "se",
	}
}

func TestBuildSession_Lines(t *testing.T) {
	b := newTestBuilder(t, BuilderConfig{})
	req, err := b.BuildSession(demoPricing(t), nil)
	require.NoError(t, err)

	assert.Equal(t, "SE", req.PurchaseCountry)
	assert.Equal(t, "EUR", req.PurchaseCurrency)
	assert.Equal(t, "en-SE", req.Locale)
	assert.Equal(t, int64(3425), req.OrderAmount)
	assert.Equal(t, int64(685), req.OrderTaxAmount)
	assert.Nil(t, req.BillingAddress)
	assert.Empty(t, req.MerchantReference1)
	assert.Empty(t, req.MerchantReference2)

	require.Len(t, req.OrderLines, 2)
	boots := req.OrderLines[0]
	assert.Equal(t, "physical", boots.Type)
	assert.Equal(t, "12345", boots.Reference)
	assert.Equal(t, "Boots", boots.Name)
	assert.Equal(t, 1, boots.Quantity)
	assert.Equal(t, int64(2500), boots.UnitPrice)
	assert.Equal(t, int64(2500), boots.TaxRate)
	assert.Equal(t, int64(3125), boots.TotalAmount)
	assert.Equal(t, int64(625), boots.TotalTaxAmount)
	assert.Equal(t, int64(0), boots.TotalDiscountAmount)
	assert.Equal(t, DefaultProductURL, boots.ProductURL)

	var sum, tax int64
	for _, l := range req.OrderLines {
		sum += l.TotalAmount
		tax += l.TotalTaxAmount
	}
	assert.Equal(t, req.OrderAmount, sum)
	assert.Equal(t, req.OrderTaxAmount, tax)
}

func TestBuildSession_Config(t *testing.T) {
	b := newTestBuilder(t, BuilderConfig{PurchaseCountry: "DE", Locale: "de-DE", ProductURL: "https://shop.test/p"})
	req, err := b.BuildSession(demoPricing(t), nil)
	require.NoError(t, err)

	assert.Equal(t, "DE", req.PurchaseCountry)
	assert.Equal(t, "de-DE", req.Locale)
	assert.Equal(t, "https://shop.test/p", req.OrderLines[0].ProductURL)
}

func TestBuild_BillingAddress(t *testing.T) {
	b := newTestBuilder(t, BuilderConfig{})
	req, err := b.Build(demoPricing(t), validCustomer())
	require.NoError(t, err)

	require.NotNil(t, req.BillingAddress)
	ba := req.BillingAddress
	assert.Equal(t, "Ada", ba.GivenName)
	assert.Equal(t, "Lovelace", ba.FamilyName)
	assert.Equal(t, "ada@example.com", ba.Email)
	assert.Equal(t, "Storgatan 1", ba.StreetAddress)
	assert.Equal(t, "11122", ba.PostalCode)
	assert.Equal(t, "Stockholm", ba.City)
	assert.Equal(t, "SE", ba.Country)
}

func TestBuild_BillingCountryDefault(t *testing.T) {
	b := newTestBuilder(t, BuilderConfig{PurchaseCountry: "FI"})
	c := validCustomer()
	c.Country = ""

	req, err := b.Build(demoPricing(t), c)
	require.NoError(t, err)
	assert.Equal(t, "FI", req.BillingAddress.Country)
}

func TestNormalizeCustomer_MatchesBillingAddress(t *testing.T) {
	b := newTestBuilder(t, BuilderConfig{PurchaseCountry: "FI"})
	c := &CustomerInfo{
		FirstName:  "  Ada ",
		LastName:   "Lovelace ",
		Email:      " ada@example.com",
		Address:    "Storgatan 1  ",
		City:       " Stockholm",
		PostalCode: " 11122 ",
	}

	n := b.NormalizeCustomer(c)
	assert.Equal(t, &CustomerInfo{
		FirstName:  "Ada",
		LastName:   "Lovelace",
		Email:      "ada@example.com",
		Address:    "Storgatan 1",
		City:       "Stockholm",
		PostalCode: "11122",
		Country:    "FI",
	}, n)
	assert.Equal(t, "  Ada ", c.FirstName)

	req, err := b.Build(demoPricing(t), c)
	require.NoError(t, err)
	ba := req.BillingAddress
	assert.Equal(t, n.FirstName, ba.GivenName)
	assert.Equal(t, n.LastName, ba.FamilyName)
	assert.Equal(t, n.Email, ba.Email)
	assert.Equal(t, n.Address, ba.StreetAddress)
	assert.Equal(t, n.City, ba.City)
	assert.Equal(t, n.PostalCode, ba.PostalCode)
	assert.Equal(t, n.Country, ba.Country)

	assert.Nil(t, b.NormalizeCustomer(nil))
}

func TestBuild_MerchantReferences(t *testing.T) {
	b := newTestBuilder(t, BuilderConfig{})
	p := demoPricing(t)

	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		req, err := b.Build(p, nil)
		require.NoError(t, err)
		assert.Regexp(t, `^ORDER-\d+$`, req.MerchantReference1)
		assert.Equal(t, "DEMO-12345-12346", req.MerchantReference2)
		assert.False(t, seen[req.MerchantReference1], "duplicate %s", req.MerchantReference1)
		seen[req.MerchantReference1] = true
	}
}

func TestBuild_InvalidCustomer(t *testing.T) {
	b := newTestBuilder(t, BuilderConfig{})

	c := validCustomer()
	c.Email = "not-an-email"
	c.City = "  "

	_, err := b.Build(demoPricing(t), c)
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, map[string]string{
		"email": "invalid email address",
		"city":  "required",
	}, verr.Fields)
	assert.Equal(t, "invalid customer info: city: required, email: invalid email address", verr.Error())
}

func TestBuild_EmptyPricing(t *testing.T) {
	b := newTestBuilder(t, BuilderConfig{})
	_, err := b.Build(pricing.Pricing{}, nil)
	assert.ErrorIs(t, err, pricing.ErrEmptyCart)
}

func TestBuild_LineCurrencyMustMatch(t *testing.T) {
	b := newTestBuilder(t, BuilderConfig{})
	p := demoPricing(t)
	p.Lines[1].Currency = "SEK"

	_, err := b.Build(p, nil)
	assert.ErrorIs(t, err, pricing.ErrCurrencyMismatch)
}

func TestCustomerInfo_Validate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*CustomerInfo)
		field  string
	}{
		{"ok", func(*CustomerInfo) {}, ""},
		{"missing first name", func(c *CustomerInfo) { c.FirstName = "" }, "first_name"},
		{"missing postal code", func(c *CustomerInfo) { c.PostalCode = "" }, "postal_code"},
		{"email without domain dot", func(c *CustomerInfo) { c.Email = "ada@example" }, "email"},
		{"email with space", func(c *CustomerInfo) { c.Email = "ada lovelace@example.com" }, "email"},
		{"country optional", func(c *CustomerInfo) { c.Country = "" }, ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := validCustomer()
			tc.mutate(c)
			err := c.Validate()
			if tc.field == "" {
				assert.NoError(t, err)
				return
			}
			var verr *ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Contains(t, verr.Fields, tc.field)
		})
	}
}
