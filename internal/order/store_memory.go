package order

import (
	"context"
	"sort"
	"sync"
)

// MemStore keeps records for the process lifetime. Records are copied on
// the way in and out so no caller can alias stored state.
type MemStore struct {
	mu sync.RWMutex
	m  map[string]Record
}

func NewMemStore() *MemStore {
	return &MemStore{m: map[string]Record{}}
}

func NewStore() Store {
	return NewMemStore()
}

func (s *MemStore) Ping(ctx context.Context) error { return nil }

// Put inserts r, overwriting any record with the same order id.
func (s *MemStore) Put(ctx context.Context, r Record) error {
	r = r.clone()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[r.OrderID] = r
	return nil
}

func (s *MemStore) Get(ctx context.Context, id string) (Record, bool, error) {
	s.mu.RLock()
	r, ok := s.m[id]
	s.mu.RUnlock()

	if !ok {
		return Record{}, false, nil
	}
	return r.clone(), true, nil
}

// List returns every record, newest first.
func (s *MemStore) List(ctx context.Context) ([]Record, error) {
	s.mu.RLock()
	out := make([]Record, 0, len(s.m))
	for _, r := range s.m {
		out = append(out, r.clone())
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].OrderID < out[j].OrderID
	})
	return out, nil
}
