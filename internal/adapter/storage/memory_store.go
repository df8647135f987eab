package storage

import (
	"context"
	"sync"

	"github.com/rl1809/pantry-tracker/internal/port"
)

type memoryCollection struct {
	keys []string
	docs map[string]port.DocumentData
}

// MemoryStore keeps collections in process memory. Scans return documents in
// insertion order.
type MemoryStore struct {
	mu          sync.RWMutex
	collections map[string]*memoryCollection
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{collections: make(map[string]*memoryCollection)}
}

// collection must be called with mu held for writing.
func (s *MemoryStore) collection(name string) *memoryCollection {
	c, ok := s.collections[name]
	if !ok {
		c = &memoryCollection{docs: make(map[string]port.DocumentData)}
		s.collections[name] = c
	}
	return c
}

func (s *MemoryStore) GetDocument(ctx context.Context, collection, key string) (port.Document, bool, error) {
	if err := ctx.Err(); err != nil {
		return port.Document{}, false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.collections[collection]
	if !ok {
		return port.Document{}, false, nil
	}
	data, ok := c.docs[key]
	if !ok {
		return port.Document{}, false, nil
	}
	return port.Document{Key: key, Data: data}, true, nil
}

func (s *MemoryStore) SetDocument(ctx context.Context, collection, key string, data port.DocumentData) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.put(s.collection(collection), key, data)
	return nil
}

func (s *MemoryStore) DeleteDocument(ctx context.Context, collection, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if c, ok := s.collections[collection]; ok {
		s.remove(c, key)
	}
	return nil
}

func (s *MemoryStore) ListDocuments(ctx context.Context, collection string) ([]port.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.collections[collection]
	if !ok {
		return []port.Document{}, nil
	}
	docs := make([]port.Document, 0, len(c.keys))
	for _, key := range c.keys {
		docs = append(docs, port.Document{Key: key, Data: c.docs[key]})
	}
	return docs, nil
}

func (s *MemoryStore) IncrementQuantity(ctx context.Context, collection, key string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.collection(collection)
	data := c.docs[key]
	data.Quantity++
	s.put(c, key, data)
	return data.Quantity, nil
}

func (s *MemoryStore) DecrementQuantity(ctx context.Context, collection, key string) (int, bool, error) {
	if err := ctx.Err(); err != nil {
		return 0, false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.collections[collection]
	if !ok {
		return 0, false, nil
	}
	data, ok := c.docs[key]
	if !ok {
		return 0, false, nil
	}
	if data.Quantity <= 1 {
		s.remove(c, key)
		return 0, true, nil
	}
	data.Quantity--
	c.docs[key] = data
	return data.Quantity, true, nil
}

func (s *MemoryStore) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (s *MemoryStore) put(c *memoryCollection, key string, data port.DocumentData) {
	if _, exists := c.docs[key]; !exists {
		c.keys = append(c.keys, key)
	}
	c.docs[key] = data
}

func (s *MemoryStore) remove(c *memoryCollection, key string) {
	if _, exists := c.docs[key]; !exists {
		return
	}
	delete(c.docs, key)
	for i, k := range c.keys {
		if k == key {
			c.keys = append(c.keys[:i], c.keys[i+1:]...)
			return
		}
	}
}
