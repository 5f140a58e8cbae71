package storage

import (
	"context"
	"sync"

	"github.com/felixgeelhaar/budgetcast/pkg/domain/override"
)

// MemoryOverrideStore keeps overrides in process memory.
type MemoryOverrideStore struct {
	mu        sync.RWMutex
	overrides map[override.Key]override.Override
}

func NewMemoryOverrideStore() *MemoryOverrideStore {
	return &MemoryOverrideStore{overrides: make(map[override.Key]override.Override)}
}

func (s *MemoryOverrideStore) Load(ctx context.Context, key override.Key) (*override.Override, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.overrides[key]
	if !ok {
		return nil, nil
	}
	return &o, nil
}

func (s *MemoryOverrideStore) Save(ctx context.Context, key override.Key, o override.Override) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := key.Validate(); err != nil {
		return err
	}
	if err := o.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.overrides[key] = o
	return nil
}
