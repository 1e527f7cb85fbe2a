package store

import (
	"context"
	"sync"
	"time"
)

// MemStore is a concurrency-safe, process-local Store[T], useful for tests
// and for services that don't need real persistence. Save is a no-op: Add
// and Update are already durable the moment they return.
type MemStore[T Entity] struct {
	mu      sync.RWMutex
	entries map[int64]T
	nextID  int64
	clone   func(T) T
}

// NewMemStore builds an empty store. clone must return a deep-enough copy
// of T that callers mutating their own reference cannot corrupt what the
// store holds — for pointer-to-struct entities this is typically
// `func(e *User) *User { c := *e; return &c }`.
func NewMemStore[T Entity](clone func(T) T) *MemStore[T] {
	return &MemStore[T]{
		entries: make(map[int64]T),
		clone:   clone,
	}
}

func (s *MemStore[T]) Add(_ context.Context, entity T) (T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	now := time.Now().UTC()
	entity.SetID(s.nextID)
	entity.SetCreatedAt(now)
	entity.SetUpdatedAt(now)
	s.entries[s.nextID] = s.clone(entity)
	return entity, nil
}

func (s *MemStore[T]) FindByID(_ context.Context, id int64) (T, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entity, ok := s.entries[id]
	if !ok {
		var zero T
		return zero, ErrNotFound
	}
	return s.clone(entity), nil
}

func (s *MemStore[T]) Enumerate(_ context.Context) ([]T, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]T, 0, len(s.entries))
	for _, entity := range s.entries {
		out = append(out, s.clone(entity))
	}
	return out, nil
}

func (s *MemStore[T]) Update(_ context.Context, entity T) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.entries[entity.GetID()]
	if !ok {
		return ErrNotFound
	}
	entity.SetCreatedAt(existing.GetCreatedAt())
	entity.SetUpdatedAt(time.Now().UTC())
	s.entries[entity.GetID()] = s.clone(entity)
	return nil
}

func (s *MemStore[T]) Remove(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.entries[id]; !ok {
		return ErrNotFound
	}
	delete(s.entries, id)
	return nil
}

// Save is a no-op: every mutation above is already durable.
func (s *MemStore[T]) Save(_ context.Context) error { return nil }

// Ping always succeeds: there is no external connection to probe.
func (s *MemStore[T]) Ping(_ context.Context) error { return nil }
