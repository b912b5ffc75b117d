package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/natefinch/atomic"
	"github.com/niksmo/prodmng/internal/core/port"
)

// FileSlots keeps every slot in its own file under a directory.
//
// Writes go through a temp file and a rename, so a reader sees either the
// previous or the new value.
type FileSlots struct {
	dir string
}

func NewFileSlots(dir string) (FileSlots, error) {
	const op = "NewFileSlots"

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return FileSlots{}, fmt.Errorf("%s: %w", op, err)
	}
	slog.Info("file slots are ready", "op", op, "dir", dir)
	return FileSlots{dir}, nil
}

func (s FileSlots) path(key string) string {
	return filepath.Join(s.dir, key+".json")
}

func (s FileSlots) Get(ctx context.Context, key string) ([]byte, error) {
	const op = "FileSlots.Get"

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if !validKey(key) {
		return nil, fmt.Errorf("%s: %q: %w", op, key, ErrInvalidKey)
	}

	data, err := os.ReadFile(s.path(key))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%s: %q: %w", op, key, port.ErrSlotNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return data, nil
}

func (s FileSlots) Put(ctx context.Context, key string, value []byte) error {
	const op = "FileSlots.Put"

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if !validKey(key) {
		return fmt.Errorf("%s: %q: %w", op, key, ErrInvalidKey)
	}

	if err := atomic.WriteFile(s.path(key), bytes.NewReader(value)); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
