package storage

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rl1809/pantry-tracker/internal/port"
)

var errConnRefused = errors.New("connection refused")

// flakyStore fails every call while failing is set
type flakyStore struct {
	*MemoryStore
	failing atomic.Bool
	calls   atomic.Int32
}

func (f *flakyStore) ListDocuments(ctx context.Context, collection string) ([]port.Document, error) {
	f.calls.Add(1)
	if f.failing.Load() {
		return nil, errConnRefused
	}
	return f.MemoryStore.ListDocuments(ctx, collection)
}

// plainStore hides the atomic counter of the embedded store
type plainStore struct {
	port.DocumentStore
}

func TestBreaker_TripsAfterConsecutiveFailures(t *testing.T) {
	inner := &flakyStore{MemoryStore: NewMemoryStore()}
	inner.failing.Store(true)

	store := WithBreaker(inner, BreakerSettings{Name: "test", MaxFailures: 3, OpenTimeout: time.Minute}, nil)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := store.ListDocuments(ctx, "inventory")
		assert.ErrorIs(t, err, errConnRefused)
	}

	_, err := store.ListDocuments(ctx, "inventory")
	assert.ErrorIs(t, err, port.ErrStoreUnavailable)
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, int32(3), inner.calls.Load())
}

func TestBreaker_RecoversAfterTimeout(t *testing.T) {
	inner := &flakyStore{MemoryStore: NewMemoryStore()}
	inner.failing.Store(true)

	var transitions []gobreaker.State
	store := WithBreaker(inner, BreakerSettings{Name: "test", MaxFailures: 1, OpenTimeout: 20 * time.Millisecond},
		func(name string, from, to gobreaker.State) { transitions = append(transitions, to) })
	ctx := context.Background()

	_, err := store.ListDocuments(ctx, "inventory")
	require.Error(t, err)

	inner.failing.Store(false)
	time.Sleep(40 * time.Millisecond)

	_, err = store.ListDocuments(ctx, "inventory")
	require.NoError(t, err)
	assert.Equal(t, []gobreaker.State{gobreaker.StateOpen, gobreaker.StateHalfOpen, gobreaker.StateClosed}, transitions)
}

func TestBreaker_PassesResultsThrough(t *testing.T) {
	store := WithBreaker(NewMemoryStore(), BreakerSettings{Name: "test"}, nil)
	ctx := context.Background()

	require.NoError(t, store.SetDocument(ctx, "inventory", "rice", port.DocumentData{Quantity: 2}))

	doc, found, err := store.GetDocument(ctx, "inventory", "rice")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, 2, doc.Data.Quantity)

	counter, ok := store.(port.AtomicCounter)
	require.True(t, ok)

	q, err := counter.IncrementQuantity(ctx, "inventory", "rice")
	require.NoError(t, err)
	assert.Equal(t, 3, q)

	q, found, err = counter.DecrementQuantity(ctx, "inventory", "rice")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, 2, q)

	require.NoError(t, store.DeleteDocument(ctx, "inventory", "rice"))
	docs, err := store.ListDocuments(ctx, "inventory")
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestBreaker_KeepsCounterCapability(t *testing.T) {
	wrapped := WithBreaker(plainStore{NewMemoryStore()}, BreakerSettings{Name: "test"}, nil)

	_, ok := wrapped.(port.AtomicCounter)
	assert.False(t, ok)
}

func TestBreaker_PingBypassesBreaker(t *testing.T) {
	store := WithBreaker(NewMemoryStore(), BreakerSettings{Name: "test"}, nil)

	pinger, ok := store.(port.Pinger)
	require.True(t, ok)
	assert.NoError(t, pinger.Ping(context.Background()))
}
