// Package pricing turns a cart into monetary totals.
//
// All amounts are int64 minor units. Tax rates are basis points and tax is
// computed per line, rounded half-up, then summed; tax is never recomputed
// on the aggregate.
package pricing

import (
	"errors"
	"fmt"
	"math"

	"Storefront/internal/catalog"
)

const basisPoints = 10000

var (
	ErrEmptyCart        = errors.New("cart is empty")
	ErrInvalidQuantity  = errors.New("quantity must be positive")
	ErrProductNotFound  = errors.New("product not found")
	ErrCurrencyMismatch = errors.New("currency mismatch")
	ErrAmountOverflow   = errors.New("amount overflow")
)

type ProductNotFoundError struct {
	ID string
}

func (e *ProductNotFoundError) Error() string { return fmt.Sprintf("product not found: %q", e.ID) }
func (e *ProductNotFoundError) Is(target error) bool {
	return target == ErrProductNotFound
}

type CurrencyMismatchError struct {
	Want      string
	Got       string
	ProductID string
}

func (e *CurrencyMismatchError) Error() string {
	return fmt.Sprintf("currency mismatch: product %q is priced in %s, cart is %s", e.ProductID, e.Got, e.Want)
}
func (e *CurrencyMismatchError) Is(target error) bool {
	return target == ErrCurrencyMismatch
}

// IsValidation reports whether err is a caller mistake rather than a fault.
func IsValidation(err error) bool {
	return errors.Is(err, ErrEmptyCart) ||
		errors.Is(err, ErrInvalidQuantity) ||
		errors.Is(err, ErrProductNotFound) ||
		errors.Is(err, ErrCurrencyMismatch) ||
		errors.Is(err, ErrAmountOverflow)
}

type CartLine struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

type PricedLine struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	ImageURL  string `json:"image_url,omitempty"`
	Quantity  int    `json:"quantity"`
	Currency  string `json:"currency"`
	UnitPrice int64  `json:"unit_price"`
	TaxRate   int64  `json:"tax_rate"`
	Subtotal  int64  `json:"subtotal"`
	Tax       int64  `json:"tax"`
	Total     int64  `json:"total"`
}

type Pricing struct {
	Currency string       `json:"currency"`
	Lines    []PricedLine `json:"lines"`
	Subtotal int64        `json:"subtotal"`
	TotalTax int64        `json:"total_tax"`
	Total    int64        `json:"total"`
}

// Catalog resolves product ids. *catalog.MemStore satisfies it.
type Catalog interface {
	Lookup(id string) (catalog.Product, bool)
}

// Price resolves each cart line against cat and totals the cart.
func Price(cart []CartLine, cat Catalog) (Pricing, error) {
	if len(cart) == 0 {
		return Pricing{}, ErrEmptyCart
	}

	out := Pricing{Lines: make([]PricedLine, 0, len(cart))}
	for _, cl := range cart {
		if cl.Quantity <= 0 {
			return Pricing{}, fmt.Errorf("%w: product %q quantity %d", ErrInvalidQuantity, cl.ProductID, cl.Quantity)
		}

		p, ok := cat.Lookup(cl.ProductID)
		if !ok {
			return Pricing{}, &ProductNotFoundError{ID: cl.ProductID}
		}

		if out.Currency == "" {
			out.Currency = p.Currency
		} else if p.Currency != out.Currency {
			return Pricing{}, &CurrencyMismatchError{Want: out.Currency, Got: p.Currency, ProductID: p.ID}
		}

		line, err := priceLine(p, cl.Quantity)
		if err != nil {
			return Pricing{}, err
		}
		out.Lines = append(out.Lines, line)

		var okSub, okTax bool
		out.Subtotal, okSub = add(out.Subtotal, line.Subtotal)
		out.TotalTax, okTax = add(out.TotalTax, line.Tax)
		if !okSub || !okTax {
			return Pricing{}, fmt.Errorf("%w: cart totals", ErrAmountOverflow)
		}
	}

	total, ok := add(out.Subtotal, out.TotalTax)
	if !ok {
		return Pricing{}, fmt.Errorf("%w: cart total", ErrAmountOverflow)
	}
	out.Total = total
	return out, nil
}

func priceLine(p catalog.Product, qty int) (PricedLine, error) {
	subtotal, ok := mul(p.UnitPrice, int64(qty))
	if !ok {
		return PricedLine{}, fmt.Errorf("%w: product %q quantity %d", ErrAmountOverflow, p.ID, qty)
	}
	tax, err := LineTax(subtotal, p.TaxRate)
	if err != nil {
		return PricedLine{}, fmt.Errorf("%w: product %q quantity %d", err, p.ID, qty)
	}
	total, ok := add(subtotal, tax)
	if !ok {
		return PricedLine{}, fmt.Errorf("%w: product %q quantity %d", ErrAmountOverflow, p.ID, qty)
	}
	return PricedLine{
		ProductID: p.ID,
		Name:      p.Name,
		ImageURL:  p.ImageURL,
		Quantity:  qty,
		Currency:  p.Currency,
		UnitPrice: p.UnitPrice,
		TaxRate:   p.TaxRate,
		Subtotal:  subtotal,
		Tax:       tax,
		Total:     total,
	}, nil
}

// LineTax returns subtotal*rate/10000 rounded half away from zero, or
// ErrAmountOverflow when the product does not fit in int64.
func LineTax(subtotal, rateBps int64) (int64, error) {
	n, ok := mul(subtotal, rateBps)
	if !ok {
		return 0, ErrAmountOverflow
	}
	if n < 0 {
		if n < math.MinInt64+basisPoints/2 {
			return 0, ErrAmountOverflow
		}
		return (n - basisPoints/2) / basisPoints, nil
	}
	if n > math.MaxInt64-basisPoints/2 {
		return 0, ErrAmountOverflow
	}
	return (n + basisPoints/2) / basisPoints, nil
}

func add(a, b int64) (int64, bool) {
	if (b > 0 && a > math.MaxInt64-b) || (b < 0 && a < math.MinInt64-b) {
		return 0, false
	}
	return a + b, true
}

func mul(a, b int64) (int64, bool) {
	if a == 0 || b == 0 {
		return 0, true
	}
	if (a == -1 && b == math.MinInt64) || (b == -1 && a == math.MinInt64) {
		return 0, false
	}
	c := a * b
	if c/b != a {
		return 0, false
	}
	return c, true
}
