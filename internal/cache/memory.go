package cache

import (
	"context"
	"sync"
)

// MemoryStore is an in-process Store. It backs tests and single-node runs
// where durability across restarts is not needed.
type MemoryStore struct {
	mu          sync.Mutex
	generations map[string]map[string]*Entry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{generations: make(map[string]map[string]*Entry)}
}

func (s *MemoryStore) Open(ctx context.Context, generation string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.generations[generation]; !ok {
		s.generations[generation] = make(map[string]*Entry)
	}
	return nil
}

func (s *MemoryStore) Put(ctx context.Context, generation, url string, e *Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	gen, ok := s.generations[generation]
	if !ok {
		gen = make(map[string]*Entry)
		s.generations[generation] = gen
	}
	cp := *e
	cp.Body = append([]byte(nil), e.Body...)
	gen[url] = &cp
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, generation, url string) (*Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	gen, ok := s.generations[generation]
	if !ok {
		return nil, nil
	}
	e, ok := gen[url]
	if !ok {
		return nil, nil
	}
	cp := *e
	cp.Body = append([]byte(nil), e.Body...)
	return &cp, nil
}

func (s *MemoryStore) Generations(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.generations))
	for name := range s.generations {
		out = append(out, name)
	}
	return out, nil
}

func (s *MemoryStore) Delete(ctx context.Context, generation string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.generations, generation)
	return nil
}
