package storage

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rl1809/pantry-tracker/internal/port"
)

func TestMemoryStore_SetGetDelete(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	_, found, err := store.GetDocument(ctx, "inventory", "rice")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, store.SetDocument(ctx, "inventory", "rice", port.DocumentData{Quantity: 2}))

	doc, found, err := store.GetDocument(ctx, "inventory", "rice")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, port.Document{Key: "rice", Data: port.DocumentData{Quantity: 2}}, doc)

	require.NoError(t, store.DeleteDocument(ctx, "inventory", "rice"))
	_, found, _ = store.GetDocument(ctx, "inventory", "rice")
	assert.False(t, found)

	// deleting again is not an error
	require.NoError(t, store.DeleteDocument(ctx, "inventory", "rice"))
}

func TestMemoryStore_ListKeepsInsertionOrder(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	for _, name := range []string{"tea", "Apple", "bread"} {
		require.NoError(t, store.SetDocument(ctx, "inventory", name, port.DocumentData{Quantity: 1}))
	}
	// updating does not move the key
	require.NoError(t, store.SetDocument(ctx, "inventory", "tea", port.DocumentData{Quantity: 5}))

	docs, err := store.ListDocuments(ctx, "inventory")
	require.NoError(t, err)
	assert.Equal(t, []port.Document{
		{Key: "tea", Data: port.DocumentData{Quantity: 5}},
		{Key: "Apple", Data: port.DocumentData{Quantity: 1}},
		{Key: "bread", Data: port.DocumentData{Quantity: 1}},
	}, docs)
}

func TestMemoryStore_CollectionsAreSeparate(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	require.NoError(t, store.SetDocument(ctx, "a", "rice", port.DocumentData{Quantity: 1}))

	docs, err := store.ListDocuments(ctx, "b")
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestMemoryStore_KeysAreCaseSensitive(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	_, err := store.IncrementQuantity(ctx, "inventory", "Rice")
	require.NoError(t, err)
	_, err = store.IncrementQuantity(ctx, "inventory", "rice")
	require.NoError(t, err)

	docs, err := store.ListDocuments(ctx, "inventory")
	require.NoError(t, err)
	assert.Len(t, docs, 2)
}

func TestMemoryStore_IncrementDecrement(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	q, err := store.IncrementQuantity(ctx, "inventory", "milk")
	require.NoError(t, err)
	assert.Equal(t, 1, q)

	q, err = store.IncrementQuantity(ctx, "inventory", "milk")
	require.NoError(t, err)
	assert.Equal(t, 2, q)

	q, found, err := store.DecrementQuantity(ctx, "inventory", "milk")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, 1, q)

	q, found, err = store.DecrementQuantity(ctx, "inventory", "milk")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, 0, q)

	_, found, err = store.DecrementQuantity(ctx, "inventory", "milk")
	require.NoError(t, err)
	assert.False(t, found)

	docs, _ := store.ListDocuments(ctx, "inventory")
	assert.Empty(t, docs)
}

func TestMemoryStore_IncrementConcurrent(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.IncrementQuantity(ctx, "inventory", "sugar")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	doc, _, _ := store.GetDocument(ctx, "inventory", "sugar")
	assert.Equal(t, 100, doc.Data.Quantity)
}

func TestMemoryStore_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	store := NewMemoryStore()

	_, err := store.ListDocuments(ctx, "inventory")
	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, store.Ping(ctx), context.Canceled)
}
