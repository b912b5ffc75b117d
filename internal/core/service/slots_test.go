package service_test

import (
	"context"
	"errors"
	"sync"

	"github.com/niksmo/prodmng/internal/core/port"
)

var errDisk = errors.New("disk failure")

// fakeSlots is an in-memory slot storage with switchable failures.
type fakeSlots struct {
	mu      sync.Mutex
	data    map[string][]byte
	failGet bool
	failPut bool
	puts    int
}

func newFakeSlots() *fakeSlots {
	return &fakeSlots{data: make(map[string][]byte)}
}

func (s *fakeSlots) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failGet {
		return nil, errDisk
	}
	v, ok := s.data[key]
	if !ok {
		return nil, port.ErrSlotNotFound
	}
	return append([]byte(nil), v...), nil
}

func (s *fakeSlots) Put(ctx context.Context, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failPut {
		return errDisk
	}
	s.puts++
	s.data[key] = append([]byte(nil), value...)
	return nil
}

func (s *fakeSlots) raw(key string) []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data[key]
}
