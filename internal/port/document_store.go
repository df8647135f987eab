package port

import (
	"context"
	"errors"
)

// ErrStoreUnavailable is returned when the document store cannot be reached.
var ErrStoreUnavailable = errors.New("store unavailable")

// DocumentData is the body of an inventory document.
type DocumentData struct {
	Quantity int `json:"quantity" bson:"quantity"`
}

// Document is a keyed document returned by a collection scan.
type Document struct {
	Key  string
	Data DocumentData
}

type DocumentStore interface {
	// GetDocument returns the document stored under key, found is false if absent
	GetDocument(ctx context.Context, collection, key string) (doc Document, found bool, err error)

	// SetDocument upserts the document body under key
	SetDocument(ctx context.Context, collection, key string, data DocumentData) error

	// DeleteDocument removes the document, deleting a missing key is not an error
	DeleteDocument(ctx context.Context, collection, key string) error

	// ListDocuments scans the whole collection in store order
	ListDocuments(ctx context.Context, collection string) ([]Document, error)
}

// AtomicCounter is implemented by stores that can change a quantity in a
// single atomic step.
type AtomicCounter interface {
	// IncrementQuantity adds one, creating the document with quantity 1 if absent
	IncrementQuantity(ctx context.Context, collection, key string) (int, error)

	// DecrementQuantity subtracts one, deleting the document when it would reach zero.
	// found is false if the document did not exist.
	DecrementQuantity(ctx context.Context, collection, key string) (remaining int, found bool, err error)
}

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}
