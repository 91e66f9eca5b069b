package catalog

import (
	"context"
	"sort"
)

// MemStore is the process-wide product catalog. It is filled once by
// NewMemStore and never written afterwards, so reads take no lock.
type MemStore struct {
	m      map[string]Product
	sorted []Product
}

func NewMemStore(products ...Product) *MemStore {
	s := &MemStore{m: make(map[string]Product, len(products))}
	for _, p := range products {
		s.m[p.ID] = p
	}

	s.sorted = make([]Product, 0, len(s.m))
	for _, p := range s.m {
		s.sorted = append(s.sorted, p)
	}
	sort.Slice(s.sorted, func(i, j int) bool { return s.sorted[i].ID < s.sorted[j].ID })
	return s
}

// NewStore returns the demo catalog.
func NewStore() *MemStore {
	return NewMemStore(DemoProducts()...)
}

func (s *MemStore) Ping(ctx context.Context) error { return nil }

func (s *MemStore) Lookup(id string) (Product, bool) {
	p, ok := s.m[id]
	return p, ok
}

func (s *MemStore) ListSortedByID(ctx context.Context) ([]Product, error) {
	out := make([]Product, len(s.sorted))
	copy(out, s.sorted)
	return out, nil
}

func (s *MemStore) Get(ctx context.Context, id string) (Product, bool, error) {
	p, ok := s.Lookup(id)
	return p, ok, nil
}
