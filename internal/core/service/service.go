package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/niksmo/prodmng/internal/core/domain"
	"github.com/niksmo/prodmng/internal/core/port"
)

var _ port.ProductsViewer = (*Store)(nil)
var _ port.ProductsRefresher = (*Store)(nil)
var _ port.ProductsEditor = (*Store)(nil)

// ErrIDAllocation is returned when the id generator keeps issuing ids
// that are already taken.
var ErrIDAllocation = errors.New("failed to allocate product id")

const (
	maxIDAttempts = 8

	// DefaultRemoteDeadline bounds the remote work of one store call.
	DefaultRemoteDeadline = 4 * time.Second
)

// A Store reconciles the remote catalog snapshot with the local overlay.
//
// The overlay is the durability layer: remote writes are issued but the
// remote catalog may ignore them, so everything the user creates or edits
// lives in the overlay. A successful refresh prefers remote records over
// overlay records that share an id.
//
// Each mutation validates, updates and persists the overlay, then updates
// the merged view while holding the store lock, so callers never observe
// a partial change. Remote calls happen after the lock is released, on a
// context detached from the caller and bounded by the remote deadline.
type Store struct {
	remote         port.RemoteCatalog
	overlay        Overlay
	ids            port.IDGenerator
	events         port.ProductEventsPublisher
	now            func() time.Time
	remoteDeadline time.Duration

	mu          sync.Mutex
	snapshot    []domain.Product
	hasSnapshot bool
	local       []domain.Product
	merged      []domain.Product
	degraded    bool
}

type Opt func(*Store)

// RemoteDeadlineOpt bounds every remote call sequence of the store,
// retries included. Non-positive values keep [DefaultRemoteDeadline].
func RemoteDeadlineOpt(d time.Duration) Opt {
	return func(s *Store) {
		if d > 0 {
			s.remoteDeadline = d
		}
	}
}

// New returns a store with an empty state, call [Store.Init] before use.
//
// events may be nil.
func New(
	remote port.RemoteCatalog,
	overlay Overlay,
	ids port.IDGenerator,
	events port.ProductEventsPublisher,
	opts ...Opt,
) *Store {
	s := &Store{
		remote:         remote,
		overlay:        overlay,
		ids:            ids,
		events:         events,
		now:            time.Now,
		remoteDeadline: DefaultRemoteDeadline,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// detach returns a context that outlives ctx cancellation and expires
// after the remote deadline.
func (s *Store) detach(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), s.remoteDeadline)
}

// Init loads the persisted overlay and shows it until the first refresh.
func (s *Store) Init(ctx context.Context) {
	const op = "Store.Init"

	local := s.overlay.Load(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.local = local
	s.snapshot = nil
	s.hasSnapshot = false
	s.degraded = false
	s.merged = slices.Clone(local)

	slog.Info("overlay loaded", "op", op, "nProducts", len(local))
}

// Refresh fetches the remote catalog and rebuilds the merged view.
//
// When the remote catalog cannot be read the merged view falls back to the
// overlay alone, the returned view is marked degraded and the error wraps
// [domain.ErrRemoteUnavailable]. The view is valid in both cases.
func (s *Store) Refresh(ctx context.Context) (domain.ProductsView, error) {
	const op = "Store.Refresh"
	log := slog.With("op", op)

	rctx, cancel := s.detach(ctx)
	remote, err := s.remote.ListProducts(rctx)
	cancel()

	s.mu.Lock()
	defer s.mu.Unlock()

	if err != nil {
		s.snapshot = nil
		s.hasSnapshot = false
		s.degraded = true
		s.merged = slices.Clone(s.local)
		log.Warn("remote catalog unavailable, using local products",
			"err", err, "nProducts", len(s.merged))
		return s.viewLocked(domain.ProductFilter{}),
			fmt.Errorf("%s: %w: %w", op, domain.ErrRemoteUnavailable, err)
	}

	s.snapshot = slices.Clone(remote)
	s.hasSnapshot = true
	s.degraded = false
	s.merged = Merge(s.snapshot, s.local)

	log.Info("catalog refreshed",
		"nRemote", len(s.snapshot), "nMerged", len(s.merged))
	return s.viewLocked(domain.ProductFilter{}), nil
}

// Products returns the merged view filtered by f.
func (s *Store) Products(
	ctx context.Context, f domain.ProductFilter,
) domain.ProductsView {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewLocked(f)
}

// View returns a copy of the merged view.
func (s *Store) View() []domain.Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.merged)
}

func (s *Store) Categories(ctx context.Context) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return domain.Categories(s.merged)
}

// Degraded reports whether the last refresh failed.
func (s *Store) Degraded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.degraded
}

func (s *Store) viewLocked(f domain.ProductFilter) domain.ProductsView {
	return domain.ProductsView{
		Products: domain.ApplyFilter(s.merged, f),
		Total:    len(s.merged),
		Degraded: s.degraded,
	}
}

// CreateProduct adds p to the overlay and the merged view. An empty id is
// replaced by a generated one; a given id must not be in use.
func (s *Store) CreateProduct(
	ctx context.Context, p domain.Product,
) (domain.MutationResult, error) {
	const op = "Store.CreateProduct"

	if err := p.Validate(); err != nil {
		return domain.MutationResult{}, fmt.Errorf("%s: %w", op, err)
	}

	s.mu.Lock()
	if p.ID == "" {
		id, err := s.newIDLocked()
		if err != nil {
			s.mu.Unlock()
			return domain.MutationResult{}, fmt.Errorf("%s: %w", op, err)
		}
		p.ID = id
	} else if s.knownLocked(p.ID) {
		s.mu.Unlock()
		var verr domain.ValidationError
		verr.Add("id", "Product id already exists")
		return domain.MutationResult{}, fmt.Errorf("%s: %w", op, &verr)
	}

	s.local = append(s.local, p)
	s.overlay.Save(ctx, s.local)
	s.merged = append(s.merged, p)
	s.mu.Unlock()

	rctx, cancel := s.detach(ctx)
	defer cancel()
	synced := s.syncRemote(rctx, op, p.ID, func(ctx context.Context) error {
		_, err := s.remote.CreateProduct(ctx, p)
		return err
	})
	s.publish(rctx, domain.ProductCreated, p)

	return domain.MutationResult{Product: p, Synced: synced}, nil
}

// UpdateProduct replaces the product with p.ID.
//
// An overlay entry is replaced in place. A product known only from the
// remote snapshot gets an overlay entry that overrides it in the merged
// view until the next successful refresh. A missing rating keeps the
// current one.
func (s *Store) UpdateProduct(
	ctx context.Context, p domain.Product,
) (domain.MutationResult, error) {
	const op = "Store.UpdateProduct"

	if err := p.Validate(); err != nil {
		return domain.MutationResult{}, fmt.Errorf("%s: %w", op, err)
	}

	s.mu.Lock()
	if i := domain.IndexOf(s.local, p.ID); i >= 0 {
		p.Rating = keepRating(p.Rating, s.local[i].Rating)
		s.local[i] = p
	} else if j := s.snapshotIndexLocked(p.ID); j >= 0 {
		p.Rating = keepRating(p.Rating, s.snapshot[j].Rating)
		s.local = append(s.local, p)
	} else {
		s.mu.Unlock()
		return domain.MutationResult{}, fmt.Errorf(
			"%s: %q: %w", op, p.ID, domain.ErrNotFound,
		)
	}
	s.overlay.Save(ctx, s.local)

	if k := domain.IndexOf(s.merged, p.ID); k >= 0 {
		s.merged[k] = p
	} else {
		s.merged = append(s.merged, p)
	}
	s.mu.Unlock()

	rctx, cancel := s.detach(ctx)
	defer cancel()
	synced := s.syncRemote(rctx, op, p.ID, func(ctx context.Context) error {
		_, err := s.remote.UpdateProduct(ctx, p)
		return err
	})
	s.publish(rctx, domain.ProductUpdated, p)

	return domain.MutationResult{Product: p, Synced: synced}, nil
}

// RemoveProduct drops the product from the merged view and the overlay.
// A remote product comes back on the next refresh unless the remote
// catalog deleted it as well.
func (s *Store) RemoveProduct(
	ctx context.Context, id domain.ID,
) (domain.MutationResult, error) {
	const op = "Store.RemoveProduct"

	s.mu.Lock()
	k := domain.IndexOf(s.merged, id)
	if k < 0 {
		s.mu.Unlock()
		return domain.MutationResult{}, fmt.Errorf(
			"%s: %q: %w", op, id, domain.ErrNotFound,
		)
	}
	removed := s.merged[k]

	if i := domain.IndexOf(s.local, id); i >= 0 {
		s.local = slices.Delete(s.local, i, i+1)
		s.overlay.Save(ctx, s.local)
	}
	s.merged = slices.Delete(s.merged, k, k+1)
	s.mu.Unlock()

	rctx, cancel := s.detach(ctx)
	defer cancel()
	synced := s.syncRemote(rctx, op, id, func(ctx context.Context) error {
		return s.remote.DeleteProduct(ctx, id)
	})
	s.publish(rctx, domain.ProductRemoved, removed)

	return domain.MutationResult{Product: removed, Synced: synced}, nil
}

func (s *Store) snapshotIndexLocked(id domain.ID) int {
	if !s.hasSnapshot {
		return -1
	}
	return domain.IndexOf(s.snapshot, id)
}

func (s *Store) knownLocked(id domain.ID) bool {
	return domain.IndexOf(s.merged, id) >= 0 ||
		domain.IndexOf(s.local, id) >= 0 ||
		s.snapshotIndexLocked(id) >= 0
}

func (s *Store) newIDLocked() (domain.ID, error) {
	for range maxIDAttempts {
		id := s.ids.NewID()
		if id != "" && !s.knownLocked(id) {
			return id, nil
		}
	}
	return "", ErrIDAllocation
}

func (s *Store) syncRemote(
	ctx context.Context, op string, id domain.ID,
	call func(context.Context) error,
) bool {
	if err := call(ctx); err != nil {
		slog.Warn("remote catalog rejected change, kept locally",
			"op", op, "id", id, "err", err)
		return false
	}
	return true
}

func (s *Store) publish(
	ctx context.Context, kind domain.EventKind, p domain.Product,
) {
	const op = "Store.publish"

	if s.events == nil {
		return
	}

	evt := domain.ProductEvent{Kind: kind, Product: p, OccurredAt: s.now()}
	if err := s.events.PublishProductEvent(ctx, evt); err != nil {
		slog.Warn("failed to publish product event",
			"op", op, "kind", kind, "id", p.ID, "err", err)
	}
}

func keepRating(next, current *domain.Rating) *domain.Rating {
	if next != nil {
		return next
	}
	return current
}
