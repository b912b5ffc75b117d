package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/niksmo/prodmng/internal/core/domain"
	"github.com/niksmo/prodmng/internal/core/port"
)

// DefaultOverlayKey is the slot key the overlay is stored under.
const DefaultOverlayKey = "prodMngData"

// An Overlay reads and writes the locally persisted products.
//
// Both operations fail soft: storage problems are logged and never
// reach the caller.
type Overlay struct {
	slots port.SlotStorage
	key   string
}

func NewOverlay(slots port.SlotStorage, key string) Overlay {
	if key == "" {
		key = DefaultOverlayKey
	}
	return Overlay{slots: slots, key: key}
}

// Load returns the persisted overlay. An absent, unreadable or malformed
// slot yields an empty overlay. Duplicate ids keep their first occurrence.
func (o Overlay) Load(ctx context.Context) []domain.Product {
	const op = "Overlay.Load"
	log := slog.With("op", op, "key", o.key)

	data, err := o.slots.Get(ctx, o.key)
	if err != nil {
		if errors.Is(err, port.ErrSlotNotFound) {
			return []domain.Product{}
		}
		log.Error("failed to read overlay",
			"err", fmt.Errorf("%w: %w", domain.ErrPersistence, err))
		return []domain.Product{}
	}

	var ps []domain.Product
	if err := json.Unmarshal(data, &ps); err != nil {
		log.Warn("malformed overlay, starting empty", "err", err)
		return []domain.Product{}
	}

	seen := make(map[domain.ID]struct{}, len(ps))
	out := make([]domain.Product, 0, len(ps))
	for _, p := range ps {
		if _, ok := seen[p.ID]; ok {
			log.Warn("duplicate overlay id dropped", "id", p.ID)
			continue
		}
		seen[p.ID] = struct{}{}
		out = append(out, p)
	}
	return out
}

// Save replaces the persisted overlay with ps. The write is not canceled
// with ctx, the in-memory state it mirrors has already changed.
func (o Overlay) Save(ctx context.Context, ps []domain.Product) {
	const op = "Overlay.Save"
	log := slog.With("op", op, "key", o.key)

	ctx = context.WithoutCancel(ctx)

	if ps == nil {
		ps = []domain.Product{}
	}

	data, err := json.Marshal(ps)
	if err != nil {
		log.Error("failed to encode overlay", "err", err)
		return
	}

	if err := o.slots.Put(ctx, o.key, data); err != nil {
		log.Error("failed to write overlay",
			"err", fmt.Errorf("%w: %w", domain.ErrPersistence, err))
		return
	}
	log.Debug("overlay saved", "nProducts", len(ps))
}
