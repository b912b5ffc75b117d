package domain

import "time"

type EventKind string

const (
	ProductCreated EventKind = "created"
	ProductUpdated EventKind = "updated"
	ProductRemoved EventKind = "removed"
)

// A ProductEvent describes a mutation applied to the local overlay.
type ProductEvent struct {
	Kind       EventKind
	Product    Product
	OccurredAt time.Time
}
