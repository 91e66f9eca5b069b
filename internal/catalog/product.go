package catalog

import "context"

// Product is immutable reference data. Prices are in minor units of
// Currency, TaxRate in basis points (2500 = 25%).
type Product struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	UnitPrice   int64  `json:"unit_price"`
	Currency    string `json:"currency"`
	TaxRate     int64  `json:"tax_rate"`
	ImageURL    string `json:"image_url,omitempty"`
}

type Store interface {
	Ping(ctx context.Context) error
	Lookup(id string) (Product, bool)
	ListSortedByID(ctx context.Context) ([]Product, error)
	Get(ctx context.Context, id string) (Product, bool, error)
}

func DemoProducts() []Product {
	return []Product{
		{
			ID:          "12345",
			Name:        "Boots",
			Description: "These boots are made for walking",
			UnitPrice:   2500,
			Currency:    "EUR",
			TaxRate:     2500,
			ImageURL:    "https://placehold.co/400x400?text=Boots",
		},
		{
			ID:          "12346",
			Name:        "Banana",
			Description: "Yellow banana, rich in potassium",
			UnitPrice:   80,
			Currency:    "EUR",
			TaxRate:     2500,
			ImageURL:    "https://placehold.co/400x400?text=Banana",
		},
	}
}
