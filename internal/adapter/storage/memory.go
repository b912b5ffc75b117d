package storage

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/niksmo/prodmng/internal/core/port"
)

// MemorySlots keeps slots in process memory. Values do not survive a
// restart.
type MemorySlots struct {
	mu    sync.RWMutex
	slots map[string][]byte
}

func NewMemorySlots() *MemorySlots {
	return &MemorySlots{slots: make(map[string][]byte)}
}

func (s *MemorySlots) Get(ctx context.Context, key string) ([]byte, error) {
	const op = "MemorySlots.Get"

	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.slots[key]
	if !ok {
		return nil, fmt.Errorf("%s: %q: %w", op, key, port.ErrSlotNotFound)
	}
	return slices.Clone(v), nil
}

func (s *MemorySlots) Put(ctx context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.slots[key] = slices.Clone(value)
	return nil
}
