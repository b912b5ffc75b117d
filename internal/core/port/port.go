package port

import (
	"context"
	"errors"

	"github.com/niksmo/prodmng/internal/core/domain"
)

// ErrSlotNotFound is returned by [SlotStorage.Get] for a key that was
// never written.
var ErrSlotNotFound = errors.New("slot not found")

type ProductsViewer interface {
	Products(context.Context, domain.ProductFilter) domain.ProductsView
	Categories(context.Context) []string
}

type ProductsRefresher interface {
	Refresh(context.Context) (domain.ProductsView, error)
}

type ProductsEditor interface {
	CreateProduct(context.Context, domain.Product) (domain.MutationResult, error)
	UpdateProduct(context.Context, domain.Product) (domain.MutationResult, error)
	RemoveProduct(context.Context, domain.ID) (domain.MutationResult, error)
}

// A RemoteCatalog is the external product API.
//
// Writes are accepted but not guaranteed to be durable.
type RemoteCatalog interface {
	ListProducts(context.Context) ([]domain.Product, error)
	CreateProduct(context.Context, domain.Product) (domain.Product, error)
	UpdateProduct(context.Context, domain.Product) (domain.Product, error)
	DeleteProduct(context.Context, domain.ID) error
}

// A SlotStorage is a durable key-value store. Put replaces the whole value.
type SlotStorage interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
}

type ProductEventsPublisher interface {
	PublishProductEvent(context.Context, domain.ProductEvent) error
}

type IDGenerator interface {
	NewID() domain.ID
}
