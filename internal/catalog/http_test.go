package catalog

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"
)

func TestRoutes_ListProducts(t *testing.T) {
	s := &Server{Store: NewStore(), Log: zap.NewNop()}

	rec := httptest.NewRecorder()
	s.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/products", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rec.Code, rec.Body.String())
	}

	var body struct {
		Products []productView `json:"products"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Products) != 2 {
		t.Fatalf("products=%d want=2", len(body.Products))
	}
	if body.Products[0].ID != "12345" || body.Products[1].ID != "12346" {
		t.Fatalf("unexpected order: %s, %s", body.Products[0].ID, body.Products[1].ID)
	}
	if body.Products[1].DisplayPrice != "0.80 EUR" {
		t.Fatalf("display_price=%q", body.Products[1].DisplayPrice)
	}
}

func TestRoutes_GetProduct(t *testing.T) {
	s := &Server{Store: NewStore()}
	h := s.Routes()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/products/12345", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d", rec.Code)
	}

	var p productView
	if err := json.NewDecoder(rec.Body).Decode(&p); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if p.Name != "Boots" || p.UnitPrice != 2500 || p.TaxRate != 2500 {
		t.Fatalf("unexpected product: %+v", p)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/products/nope", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status=%d want=404", rec.Code)
	}
}

func TestMemStore_ListIsACopy(t *testing.T) {
	s := NewStore()

	list, err := s.ListSortedByID(t.Context())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	list[0].UnitPrice = 1

	p, ok := s.Lookup("12345")
	if !ok || p.UnitPrice != 2500 {
		t.Fatalf("catalog mutated through listing: %+v", p)
	}
}
