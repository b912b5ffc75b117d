package storage

import (
	"errors"
	"regexp"

	"github.com/niksmo/prodmng/internal/core/port"
)

var ErrInvalidKey = errors.New("invalid slot key")

var keyPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]{0,127}$`)

func validKey(key string) bool {
	return keyPattern.MatchString(key)
}

var (
	_ port.SlotStorage = (*FileSlots)(nil)
	_ port.SlotStorage = (*SQLSlots)(nil)
	_ port.SlotStorage = (*MemorySlots)(nil)
)
