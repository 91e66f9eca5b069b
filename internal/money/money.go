// Package money renders integer minor-unit amounts for humans.
package money

import (
	"strings"

	"github.com/shopspring/decimal"
)

// zeroDecimal lists ISO 4217 currencies without a minor unit.
var zeroDecimal = map[string]bool{
	"JPY": true,
	"KRW": true,
	"ISK": true,
	"CLP": true,
	"VND": true,
}

// Exponent returns the number of minor-unit digits for currency.
func Exponent(currency string) int32 {
	if zeroDecimal[strings.ToUpper(currency)] {
		return 0
	}
	return 2
}

// Format renders amount (in minor units) as "25.00 EUR".
func Format(amount int64, currency string) string {
	cur := strings.ToUpper(currency)
	exp := Exponent(cur)
	s := decimal.New(amount, -exp).StringFixed(exp)
	if cur == "" {
		return s
	}
	return s + " " + cur
}
