package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/rl1809/pantry-tracker/internal/port"
)

type BreakerSettings struct {
	Name        string
	MaxFailures uint32
	OpenTimeout time.Duration
}

// breakerStore fails fast with port.ErrStoreUnavailable while the wrapped
// store keeps failing. It never retries.
type breakerStore struct {
	inner port.DocumentStore
	cb    *gobreaker.CircuitBreaker[any]
}

// breakerCounterStore is returned when the wrapped store has an atomic counter.
type breakerCounterStore struct {
	*breakerStore
	counter port.AtomicCounter
}

// WithBreaker wraps store in a circuit breaker. The result implements
// port.AtomicCounter only if store does.
func WithBreaker(store port.DocumentStore, settings BreakerSettings, onChange func(name string, from, to gobreaker.State)) port.DocumentStore {
	maxFailures := settings.MaxFailures
	if maxFailures == 0 {
		maxFailures = 5
	}

	cb := gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        settings.Name,
		MaxRequests: 1,
		Timeout:     settings.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: onChange,
	})

	b := &breakerStore{inner: store, cb: cb}
	if counter, ok := store.(port.AtomicCounter); ok {
		return &breakerCounterStore{breakerStore: b, counter: counter}
	}
	return b
}

func execute[T any](cb *gobreaker.CircuitBreaker[any], fn func() (T, error)) (T, error) {
	result, err := cb.Execute(func() (any, error) {
		return fn()
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		var zero T
		return zero, fmt.Errorf("%w: %w", port.ErrStoreUnavailable, err)
	}
	if err != nil {
		var zero T
		return zero, err
	}
	return result.(T), nil
}

type getResult struct {
	doc   port.Document
	found bool
}

func (b *breakerStore) GetDocument(ctx context.Context, collection, key string) (port.Document, bool, error) {
	res, err := execute(b.cb, func() (getResult, error) {
		doc, found, err := b.inner.GetDocument(ctx, collection, key)
		return getResult{doc: doc, found: found}, err
	})
	return res.doc, res.found, err
}

func (b *breakerStore) SetDocument(ctx context.Context, collection, key string, data port.DocumentData) error {
	_, err := execute(b.cb, func() (struct{}, error) {
		return struct{}{}, b.inner.SetDocument(ctx, collection, key, data)
	})
	return err
}

func (b *breakerStore) DeleteDocument(ctx context.Context, collection, key string) error {
	_, err := execute(b.cb, func() (struct{}, error) {
		return struct{}{}, b.inner.DeleteDocument(ctx, collection, key)
	})
	return err
}

func (b *breakerStore) ListDocuments(ctx context.Context, collection string) ([]port.Document, error) {
	return execute(b.cb, func() ([]port.Document, error) {
		return b.inner.ListDocuments(ctx, collection)
	})
}

// Ping bypasses the breaker so health probes see the real store state.
func (b *breakerStore) Ping(ctx context.Context) error {
	if p, ok := b.inner.(port.Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}

// State reports the current breaker state.
func (b *breakerStore) State() gobreaker.State {
	return b.cb.State()
}

func (b *breakerCounterStore) IncrementQuantity(ctx context.Context, collection, key string) (int, error) {
	return execute(b.cb, func() (int, error) {
		return b.counter.IncrementQuantity(ctx, collection, key)
	})
}

type decrementResult struct {
	remaining int
	found     bool
}

func (b *breakerCounterStore) DecrementQuantity(ctx context.Context, collection, key string) (int, bool, error) {
	res, err := execute(b.cb, func() (decrementResult, error) {
		remaining, found, err := b.counter.DecrementQuantity(ctx, collection, key)
		return decrementResult{remaining: remaining, found: found}, err
	})
	return res.remaining, res.found, err
}
