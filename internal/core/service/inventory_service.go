package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/rl1809/pantry-tracker/internal/core/domain"
	"github.com/rl1809/pantry-tracker/internal/port"
)

// ErrStoreUnavailable wraps every document store failure.
var ErrStoreUnavailable = port.ErrStoreUnavailable

// DefaultCollection is the collection holding inventory documents.
const DefaultCollection = "inventory"

// ItemEditor handles edit requests for an item. What an edit means (rename or
// quantity change) is not decided yet, so the default editor does nothing.
type ItemEditor interface {
	EditItem(ctx context.Context, store port.DocumentStore, collection, name string) error
}

type noopEditor struct{}

func (noopEditor) EditItem(context.Context, port.DocumentStore, string, string) error { return nil }

type Option func(*InventoryService)

// WithCollection overrides DefaultCollection.
func WithCollection(name string) Option {
	return func(s *InventoryService) { s.collection = name }
}

// WithEditor installs the handler for edit requests.
func WithEditor(editor ItemEditor) Option {
	return func(s *InventoryService) { s.editor = editor }
}

// WithReadModifyWrite disables the store's atomic counter even when it has
// one. Concurrent add/remove for the same name then race and the last writer
// wins.
func WithReadModifyWrite() Option {
	return func(s *InventoryService) { s.counter = nil }
}

func WithLogger(logger *zap.Logger) Option {
	return func(s *InventoryService) { s.logger = logger }
}

// InventoryService turns add/remove/list intents into document store calls and
// keeps the last successfully fetched list.
type InventoryService struct {
	store      port.DocumentStore
	counter    port.AtomicCounter
	editor     ItemEditor
	collection string
	logger     *zap.Logger

	scans atomic.Uint64

	mu      sync.RWMutex
	items   domain.InventoryList
	applied uint64
}

func NewInventoryService(store port.DocumentStore, opts ...Option) *InventoryService {
	s := &InventoryService{
		store:      store,
		editor:     noopEditor{},
		collection: DefaultCollection,
		logger:     zap.NewNop(),
		items:      domain.InventoryList{},
	}
	if counter, ok := store.(port.AtomicCounter); ok {
		s.counter = counter
	}

	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Atomic reports whether add/remove use the store's atomic counter.
func (s *InventoryService) Atomic() bool {
	return s.counter != nil
}

// Items returns a copy of the last known list without touching the store.
func (s *InventoryService) Items() domain.InventoryList {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.items)
}

// ListAll scans the collection and returns what the scan saw. The cached list
// is replaced only if no scan started later has already been applied. On
// failure the cached list is returned unchanged together with the error.
func (s *InventoryService) ListAll(ctx context.Context) (domain.InventoryList, error) {
	seq := s.scans.Add(1)
	docs, err := s.store.ListDocuments(ctx, s.collection)
	if err != nil {
		err = s.unavailable("list documents", "", err)
		return s.Items(), err
	}

	list := make(domain.InventoryList, 0, len(docs))
	for _, doc := range docs {
		list = append(list, domain.Item{Name: doc.Key, Quantity: doc.Data.Quantity})
	}

	s.mu.Lock()
	if seq > s.applied {
		s.items = list
		s.applied = seq
	} else {
		s.logger.Debug("discarding stale scan", zap.Uint64("scan", seq), zap.Uint64("applied", s.applied))
	}
	s.mu.Unlock()

	s.logger.Debug("inventory refreshed", zap.Int("items", len(list)))
	return slices.Clone(list), nil
}

// AddItem increments the quantity of name, creating it with quantity 1 when
// absent, then refreshes and returns the list. Empty names are accepted.
func (s *InventoryService) AddItem(ctx context.Context, name string) (domain.InventoryList, error) {
	if s.counter != nil {
		if _, err := s.counter.IncrementQuantity(ctx, s.collection, name); err != nil {
			return nil, s.unavailable("increment quantity", name, err)
		}
		return s.ListAll(ctx)
	}

	// Not atomic: a concurrent writer between get and set is overwritten.
	doc, found, err := s.store.GetDocument(ctx, s.collection, name)
	if err != nil {
		return nil, s.unavailable("get document", name, err)
	}

	quantity := 1
	if found {
		quantity = doc.Data.Quantity + 1
	}
	if err := s.store.SetDocument(ctx, s.collection, name, port.DocumentData{Quantity: quantity}); err != nil {
		return nil, s.unavailable("set document", name, err)
	}

	return s.ListAll(ctx)
}

// RemoveItem takes one unit of name away, deleting the document at quantity
// 1. A missing name is a no-op, the list is refreshed and returned either way.
func (s *InventoryService) RemoveItem(ctx context.Context, name string) (domain.InventoryList, error) {
	if s.counter != nil {
		if _, _, err := s.counter.DecrementQuantity(ctx, s.collection, name); err != nil {
			return nil, s.unavailable("decrement quantity", name, err)
		}
		return s.ListAll(ctx)
	}

	doc, found, err := s.store.GetDocument(ctx, s.collection, name)
	if err != nil {
		return nil, s.unavailable("get document", name, err)
	}

	switch {
	case !found:
	case doc.Data.Quantity <= 1:
		if err := s.store.DeleteDocument(ctx, s.collection, name); err != nil {
			return nil, s.unavailable("delete document", name, err)
		}
	default:
		if err := s.store.SetDocument(ctx, s.collection, name, port.DocumentData{Quantity: doc.Data.Quantity - 1}); err != nil {
			return nil, s.unavailable("set document", name, err)
		}
	}

	return s.ListAll(ctx)
}

// EditItem dispatches to the configured ItemEditor. The default editor does nothing.
func (s *InventoryService) EditItem(ctx context.Context, name string) error {
	if err := s.editor.EditItem(ctx, s.store, s.collection, name); err != nil {
		return s.unavailable("edit item", name, err)
	}
	return nil
}

// Filter returns the items of list whose name contains term, ignoring case.
func Filter(list domain.InventoryList, term string) domain.InventoryList {
	return list.Filter(term)
}

func (s *InventoryService) unavailable(op, name string, err error) error {
	fields := []zap.Field{zap.String("op", op), zap.String("collection", s.collection), zap.Error(err)}
	if name != "" {
		fields = append(fields, zap.String("item", name))
	}
	s.logger.Error("document store call failed", fields...)

	if errors.Is(err, ErrStoreUnavailable) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%w: %s: %w", ErrStoreUnavailable, op, err)
}
